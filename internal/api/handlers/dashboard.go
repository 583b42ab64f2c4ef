package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/domain"
	"github.com/makerstall/payoutsapi/internal/payout"
)

// HandleDashboardStats handles GET /v1/dashboard/stats. Optional start_date
// and end_date (YYYY-MM-DD) bound the order range; omitted bounds default to
// all time up to now.
func HandleDashboardStats(dash *payout.Dashboard, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rng domain.DateRange
		if raw := c.Query("start_date"); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, expected YYYY-MM-DD"})
				return
			}
			rng.Start = t
		}
		if raw := c.Query("end_date"); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, expected YYYY-MM-DD"})
				return
			}
			// Inclusive end of day.
			rng.End = t.AddDate(0, 0, 1).Add(-time.Second)
		}
		if !rng.Start.IsZero() && !rng.End.IsZero() && rng.End.Before(rng.Start) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date before start_date"})
			return
		}

		report, err := dash.Build(c.Request.Context(), rng)
		if err != nil {
			logger.Error("Dashboard build failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch order data"})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}
