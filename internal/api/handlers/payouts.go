package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/domain"
	"github.com/makerstall/payoutsapi/internal/payout"
	"github.com/makerstall/payoutsapi/internal/repository"
	"github.com/makerstall/payoutsapi/pkg/errors"
)

// parsePeriodParam parses the required ?period=YYYY-MM query parameter into
// a calendar-month payout window.
func parsePeriodParam(c *gin.Context) (domain.Period, bool) {
	raw := c.Query("period")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period query parameter required (format YYYY-MM)"})
		return domain.Period{}, false
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period, expected YYYY-MM"})
		return domain.Period{}, false
	}
	return domain.PeriodForMonth(t.Year(), t.Month()), true
}

// HandlePreviewPayouts handles GET /v1/payouts/preview
func HandlePreviewPayouts(gen *payout.Generator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		period, ok := parsePeriodParam(c)
		if !ok {
			return
		}
		overrides, err := payout.ParseOverrides(c.Query("manual_amounts"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		batch, err := gen.Preview(c.Request.Context(), period, overrides)
		if err != nil {
			if vErr, ok := err.(*errors.ErrValidation); ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
				return
			}
			logger.Error("Payout preview failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to preview payouts"})
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

// HandleGeneratePayouts handles POST and GET /v1/payouts/generate.
// Per-creator failures are reported inside the result list with a 200; only
// a batch-level failure returns an error status.
func HandleGeneratePayouts(gen *payout.Generator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		period, ok := parsePeriodParam(c)
		if !ok {
			return
		}
		overrides, err := payout.ParseOverrides(c.Query("manual_amounts"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		batch, err := gen.Generate(c.Request.Context(), period, overrides)
		if err != nil {
			if vErr, ok := err.(*errors.ErrValidation); ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
				return
			}
			logger.Error("Payout generation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate payouts"})
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

// HandleListPayouts handles GET /v1/payouts
func HandleListPayouts(repos *repository.Repositories, baseCurrency string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if creatorParam := c.Query("creator_id"); creatorParam != "" {
			creatorID, err := uuid.Parse(creatorParam)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator_id"})
				return
			}
			payouts, err := repos.Payout.ListByCreatorID(c.Request.Context(), creatorID)
			if err != nil {
				logger.Error("Failed to list payouts", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payouts"})
				return
			}
			fillCurrency(payouts, baseCurrency)
			c.JSON(http.StatusOK, gin.H{"payouts": payouts})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}
		payouts, err := repos.Payout.List(c.Request.Context(), limit, offset)
		if err != nil {
			logger.Error("Failed to list payouts", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payouts"})
			return
		}
		fillCurrency(payouts, baseCurrency)
		c.JSON(http.StatusOK, gin.H{"payouts": payouts, "limit": limit, "offset": offset})
	}
}

// fillCurrency backfills the shop base currency on rows imported before the
// currency column was enforced.
func fillCurrency(payouts []*domain.Payout, base string) {
	for _, p := range payouts {
		if p.Currency == "" {
			p.Currency = base
		}
	}
}

// UpdatePayoutStatusRequest represents the status patch body
type UpdatePayoutStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// HandleUpdatePayoutStatus handles PATCH /v1/payouts/:id/status
func HandleUpdatePayoutStatus(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout id"})
			return
		}

		var req UpdatePayoutStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status field required"})
			return
		}
		status := domain.PayoutStatus(strings.ToLower(strings.TrimSpace(req.Status)))
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}

		if err := repos.Payout.UpdateStatus(c.Request.Context(), id, status); err != nil {
			if _, ok := err.(*errors.ErrNotFound); ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "payout not found"})
				return
			}
			logger.Error("Failed to update payout status", zap.String("payout_id", id.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update payout status"})
			return
		}

		updated, err := repos.Payout.GetByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"id": id.String(), "status": string(status)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": updated.ID.String(), "status": string(updated.Status)})
	}
}
