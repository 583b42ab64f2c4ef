package payout

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/domain"
	"github.com/makerstall/payoutsapi/internal/reconcile"
	"github.com/makerstall/payoutsapi/internal/repository"
)

// OrderSummary is one order row on the dashboard, deduplicated across the
// per-product order streams it may appear in.
type OrderSummary struct {
	OrderID         string          `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	CustomerName    string          `json:"customer_name,omitempty"`
	FinancialStatus string          `json:"financial_status"`
	CreatedAt       time.Time       `json:"created_at"`
	Total           decimal.Decimal `json:"total"`
	Refunded        decimal.Decimal `json:"refunded"`
}

// DashboardReport is the full payload behind GET /v1/dashboard/stats.
type DashboardReport struct {
	Products   []domain.ProductAggregate  `json:"products"`
	Orders     []OrderSummary             `json:"orders"`
	Stats      reconcile.Stats            `json:"stats"`
	SalesTrend []domain.MonthlyTrendPoint `json:"sales_trend"`
	DateRange  domain.DateRange           `json:"date_range"`
}

// Dashboard assembles revenue aggregates across every active product.
type Dashboard struct {
	fetcher    OrderFetcher
	reconciler reconcile.Reconciler
	rate       decimal.Decimal
	repos      *repository.Repositories
	logger     *zap.Logger
	now        func() time.Time
}

// NewDashboard creates a dashboard service. now is the clock anchoring the
// six-month trend window; pass time.Now in production.
func NewDashboard(fetcher OrderFetcher, reconciler reconcile.Reconciler, rate decimal.Decimal, repos *repository.Repositories, logger *zap.Logger, now func() time.Time) *Dashboard {
	return &Dashboard{
		fetcher:    fetcher,
		reconciler: reconciler,
		rate:       rate,
		repos:      repos,
		logger:     logger,
		now:        now,
	}
}

// Build fetches every active product's orders for the range and folds them
// into the report. A single product's fetch failure degrades the report
// rather than failing it; only a platform-wide failure returns an error.
func (d *Dashboard) Build(ctx context.Context, rng domain.DateRange) (*DashboardReport, error) {
	products, err := d.repos.Product.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}

	tracked := make(map[string]bool, len(products))
	titles := make(map[string]string, len(products))
	for _, p := range products {
		tracked[p.ShopifyProductID] = true
		titles[p.ShopifyProductID] = p.Title
	}

	agg := reconcile.NewAggregator(d.rate, d.now(), d.logger)
	summaries := make(map[string]OrderSummary)
	fetchFailures := 0

	for _, product := range products {
		orders, err := d.fetcher.FetchOrders(ctx, product.ShopifyProductID, rng)
		if err != nil {
			fetchFailures++
			d.logger.Warn("Order fetch failed for product, omitting from dashboard",
				zap.String("product_id", product.ShopifyProductID),
				zap.Error(err))
			continue
		}
		for _, order := range orders {
			if rec, ok := d.reconciler.SaleRecord(order, product.ShopifyProductID); ok {
				agg.FoldSale(rec, product.Title)
			}
			agg.FoldOrderTrend(order, tracked)
			if order.ExternalID != "" {
				if _, seen := summaries[order.ExternalID]; !seen {
					summaries[order.ExternalID] = OrderSummary{
						OrderID:         order.ExternalID,
						OrderNumber:     order.OrderNumber,
						CustomerName:    order.CustomerName,
						FinancialStatus: string(order.FinancialStatus),
						CreatedAt:       order.CreatedAt,
						Total:           order.GrossTotal(),
						Refunded:        reconcile.DisplayRefund(order),
					}
				}
			}
		}
	}

	if len(products) > 0 && fetchFailures == len(products) {
		return nil, fmt.Errorf("order fetch failed for all %d products", len(products))
	}

	orders := make([]OrderSummary, 0, len(summaries))
	for _, s := range summaries {
		orders = append(orders, s)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	return &DashboardReport{
		Products:   agg.Products(),
		Orders:     orders,
		Stats:      agg.TotalStats(),
		SalesTrend: agg.Trend(),
		DateRange:  rng.Normalize(d.now()),
	}, nil
}
