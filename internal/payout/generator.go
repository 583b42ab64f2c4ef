package payout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/domain"
	"github.com/makerstall/payoutsapi/internal/reconcile"
	"github.com/makerstall/payoutsapi/internal/repository"
	apperrors "github.com/makerstall/payoutsapi/pkg/errors"
)

// ParseOverrides parses a comma-separated list of creator_id:amount pairs
// into manual payout overrides, as accepted on the command line and in the
// manual_amounts query parameter.
func ParseOverrides(raw string) (map[uuid.UUID]decimal.Decimal, error) {
	overrides := make(map[uuid.UUID]decimal.Decimal)
	if raw == "" {
		return overrides, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, &apperrors.ErrValidation{Message: fmt.Sprintf("invalid manual amount entry %q, expected creator_id:amount", pair)}
		}
		id, err := uuid.Parse(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, &apperrors.ErrValidation{Message: fmt.Sprintf("invalid creator id in manual amount entry %q", pair)}
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil || amount.IsNegative() {
			return nil, &apperrors.ErrValidation{Message: fmt.Sprintf("invalid amount in manual amount entry %q", pair)}
		}
		overrides[id] = amount
	}
	return overrides, nil
}

// OrderFetcher is the slice of the platform client the generator needs.
type OrderFetcher interface {
	FetchOrders(ctx context.Context, productID string, rng domain.DateRange) ([]domain.Order, error)
}

// Result is one creator's entry in a batch run.
type Result struct {
	CreatorID   uuid.UUID       `json:"creator_id"`
	CreatorName string          `json:"creator_name,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// BatchResult is the outcome of one preview or generate run.
type BatchResult struct {
	Period  domain.Period `json:"period"`
	Results []Result      `json:"results"`
}

// Generator orchestrates a calendar month's payout batch: fetch each
// creator's orders, reconcile refunds, total net revenue, decide the payout
// and (outside preview mode) persist one row per eligible creator.
//
// All platform fetches run sequentially in one loop; the fetcher's pacing
// keeps the run under the platform's rate ceiling.
type Generator struct {
	fetcher    OrderFetcher
	reconciler reconcile.Reconciler
	calc       Calculator
	repos      *repository.Repositories
	logger     *zap.Logger
}

// NewGenerator creates a payout batch generator.
func NewGenerator(fetcher OrderFetcher, reconciler reconcile.Reconciler, calc Calculator, repos *repository.Repositories, logger *zap.Logger) *Generator {
	return &Generator{
		fetcher:    fetcher,
		reconciler: reconciler,
		calc:       calc,
		repos:      repos,
		logger:     logger,
	}
}

// Preview computes the batch without persisting anything.
func (g *Generator) Preview(ctx context.Context, period domain.Period, overrides map[uuid.UUID]decimal.Decimal) (*BatchResult, error) {
	return g.run(ctx, period, overrides, false)
}

// Generate computes the batch and writes one payout row per eligible creator
// not already paid for the period. Regenerating the same period is a no-op
// for creators that already have a row.
func (g *Generator) Generate(ctx context.Context, period domain.Period, overrides map[uuid.UUID]decimal.Decimal) (*BatchResult, error) {
	return g.run(ctx, period, overrides, true)
}

func (g *Generator) run(ctx context.Context, period domain.Period, overrides map[uuid.UUID]decimal.Decimal, persist bool) (*BatchResult, error) {
	// A manual amount for a creator that doesn't exist is a typo in the
	// request, not a batch condition: reject the run before touching anything.
	for id := range overrides {
		if _, err := g.repos.Creator.GetByID(ctx, id); err != nil {
			var nf *apperrors.ErrNotFound
			if errors.As(err, &nf) {
				return nil, &apperrors.ErrValidation{Message: fmt.Sprintf("manual amount for unknown creator %s", id)}
			}
			return nil, fmt.Errorf("look up creator %s: %w", id, err)
		}
	}

	creators, err := g.repos.Creator.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active creators: %w", err)
	}

	batch := &BatchResult{Period: period, Results: make([]Result, 0, len(creators))}
	rng := domain.DateRange{Start: period.Start, End: period.End}

	for _, creator := range creators {
		result := g.runCreator(ctx, creator, rng, overrides, persist, period)
		batch.Results = append(batch.Results, result)
	}
	return batch, nil
}

// runCreator handles one creator; its failure never aborts the batch.
func (g *Generator) runCreator(ctx context.Context, creator *domain.Creator, rng domain.DateRange, overrides map[uuid.UUID]decimal.Decimal, persist bool, period domain.Period) Result {
	result := Result{
		CreatorID:   creator.ID,
		CreatorName: creator.Name,
		Amount:      decimal.Zero,
	}

	products, err := g.repos.Product.ListActiveByCreatorID(ctx, creator.ID)
	if err != nil {
		g.logger.Error("Failed to list creator products", zap.String("creator_id", creator.ID.String()), zap.Error(err))
		result.Error = fmt.Sprintf("list products: %v", err)
		return result
	}

	netRevenue := decimal.Zero
	var fetchErrs []error
	for _, product := range products {
		orders, err := g.fetcher.FetchOrders(ctx, product.ShopifyProductID, rng)
		if err != nil {
			// Isolated per product: the creator's other products still count.
			fetchErr := &apperrors.ErrProductFetch{ProductID: product.ShopifyProductID, Err: err}
			fetchErrs = append(fetchErrs, fetchErr)
			g.logger.Warn("Order fetch failed for product, contributing zero",
				zap.String("creator_id", creator.ID.String()),
				zap.Error(fetchErr))
			continue
		}
		for _, order := range orders {
			breakdown := g.reconciler.Reconcile(order, product.ShopifyProductID)
			netRevenue = netRevenue.Add(breakdown.NetRevenue)
		}
	}

	if len(products) > 0 && len(fetchErrs) == len(products) {
		result.Error = fmt.Sprintf("order fetch failed for all products: %v", fetchErrs[0])
		return result
	}

	var override *decimal.Decimal
	if amount, ok := overrides[creator.ID]; ok {
		override = &amount
	}
	decision := g.calc.ForCreator(creator).Decide(netRevenue, override, creator.PayoutCurrency)

	if !decision.Eligible {
		result.Success = true
		result.Message = decision.Message
		return result
	}

	result.Amount = decision.Amount
	result.Currency = decision.Currency

	if !persist {
		// Preview still flags creators a generate run would skip.
		exists, err := g.repos.Payout.ExistsForPeriod(ctx, creator.ID, period.Start, period.End)
		if err != nil {
			g.logger.Warn("Failed to check for existing payout",
				zap.String("creator_id", creator.ID.String()), zap.Error(err))
		} else if exists {
			result.Message = "Payout already generated for this period"
		}
		result.Success = true
		return result
	}

	row := &domain.Payout{
		ID:          uuid.New(),
		CreatorID:   creator.ID,
		Amount:      decision.Amount,
		Currency:    decision.Currency,
		Status:      domain.PayoutStatusPending,
		Method:      creator.PayoutMethod,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		CreatedAt:   time.Now().UTC(),
	}
	inserted, err := g.repos.Payout.InsertIfAbsent(ctx, row)
	if err != nil {
		g.logger.Error("Failed to insert payout", zap.String("creator_id", creator.ID.String()), zap.Error(err))
		result.Error = fmt.Sprintf("insert payout: %v", err)
		return result
	}
	if !inserted {
		g.logger.Info("Skipping duplicate payout",
			zap.Error(&apperrors.ErrDuplicatePayout{CreatorID: creator.ID, PeriodStart: period.Start}))
		result.Success = true
		result.Amount = decimal.Zero
		result.Message = "Payout already generated for this period"
		return result
	}

	g.logger.Info("Created pending payout",
		zap.String("creator_id", creator.ID.String()),
		zap.String("amount", decision.Amount.String()),
		zap.String("currency", decision.Currency),
		zap.Time("period_start", period.Start))
	result.Success = true
	return result
}
