package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/makerstall/payoutsapi/internal/config"
)

// AdminAuthMiddleware authenticates requests using the admin API key.
// The key is carried as a Bearer token and verified against the bcrypt hash
// from configuration. An empty configured hash rejects everything.
func AdminAuthMiddleware(cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		apiKey := strings.TrimSpace(parts[1])
		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			c.Abort()
			return
		}

		if cfg.API.AdminKeyHash == "" {
			logger.Warn("Admin API key hash not configured, rejecting request")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "admin access not configured"})
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(cfg.API.AdminKeyHash), []byte(apiKey)); err != nil {
			logger.Warn("Admin API key verification failed", zap.Int("api_key_len", len(apiKey)))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
