package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/api/handlers"
	"github.com/makerstall/payoutsapi/internal/api/middleware"
	"github.com/makerstall/payoutsapi/internal/config"
	"github.com/makerstall/payoutsapi/internal/payout"
	"github.com/makerstall/payoutsapi/internal/repository"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, gen *payout.Generator, dash *payout.Dashboard, repos *repository.Repositories, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))

	// Root: friendly response so GET / returns 200 instead of 404
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Creator Payouts API",
			"endpoints": []string{
				"GET /health",
				"GET /v1/payouts/preview",
				"POST /v1/payouts/generate",
				"GET /v1/payouts",
				"PATCH /v1/payouts/:id/status",
				"GET /v1/dashboard/stats",
			},
		})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes (admin key required)
	v1 := router.Group("/v1")
	v1.Use(middleware.AdminAuthMiddleware(cfg, logger))
	{
		v1.GET("/payouts/preview", handlers.HandlePreviewPayouts(gen, logger))
		v1.POST("/payouts/generate", handlers.HandleGeneratePayouts(gen, logger))
		// GET kept alongside POST so the batch can be kicked off from a browser.
		v1.GET("/payouts/generate", handlers.HandleGeneratePayouts(gen, logger))
		v1.GET("/payouts", handlers.HandleListPayouts(repos, cfg.Payout.BaseCurrency, logger))
		v1.PATCH("/payouts/:id/status", handlers.HandleUpdatePayoutStatus(repos, logger))
		v1.GET("/dashboard/stats", handlers.HandleDashboardStats(dash, logger))
	}

	return router
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal server error",
			"details": fmt.Sprintf("%v", recovered),
		})
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
