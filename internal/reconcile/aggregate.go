package reconcile

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/domain"
)

const trendMonths = 6

// monthKey buckets trend data by structured (year, month); the label string
// exists only at the presentation boundary.
type monthKey struct {
	Year  int
	Month time.Month
}

func monthKeyFor(t time.Time) monthKey {
	u := t.UTC()
	return monthKey{Year: u.Year(), Month: u.Month()}
}

// Label formats the bucket as an abbreviated month name.
func (k monthKey) Label() string {
	return k.Month.String()[:3]
}

type trendBucket struct {
	Sales      int
	Revenue    decimal.Decimal
	Refunds    decimal.Decimal
	NetRevenue decimal.Decimal
}

// Stats are the run-wide totals for the dashboard response. Net revenue is
// derived once per order in the reconciler and never reduced again here.
type Stats struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalSales        int             `json:"total_sales"`
	TotalCommission   decimal.Decimal `json:"total_commission"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	TotalRefunds      decimal.Decimal `json:"total_refunds"`
	NetRevenue        decimal.Decimal `json:"net_revenue"`
	OrderCount        int             `json:"order_count"`
}

// Aggregator folds sale records into per-product totals and orders into the
// trailing six-month trend. State is local to one run and not shared.
type Aggregator struct {
	rate   decimal.Decimal
	months []monthKey // oldest to newest
	trend  map[monthKey]*trendBucket
	logger *zap.Logger

	products   map[string]*domain.ProductAggregate
	seenOrders map[string]struct{}

	grossRevenue  decimal.Decimal
	netRevenue    decimal.Decimal
	displayRefund decimal.Decimal
	totalSales    int
	orderCount    int
}

// NewAggregator creates an aggregator whose trend window is the six calendar
// months ending at now's month. All six buckets exist from the start and are
// never dropped, even if empty.
func NewAggregator(rate decimal.Decimal, now time.Time, logger *zap.Logger) *Aggregator {
	a := &Aggregator{
		rate:          rate,
		trend:         make(map[monthKey]*trendBucket, trendMonths),
		logger:        logger,
		products:      make(map[string]*domain.ProductAggregate),
		seenOrders:    make(map[string]struct{}),
		grossRevenue:  decimal.Zero,
		netRevenue:    decimal.Zero,
		displayRefund: decimal.Zero,
	}
	first := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(trendMonths - 1), 0)
	for i := 0; i < trendMonths; i++ {
		key := monthKeyFor(first.AddDate(0, i, 0))
		a.months = append(a.months, key)
		a.trend[key] = &trendBucket{
			Revenue:    decimal.Zero,
			Refunds:    decimal.Zero,
			NetRevenue: decimal.Zero,
		}
	}
	return a
}

// FoldSale accumulates one sale record into its product's running totals.
func (a *Aggregator) FoldSale(rec domain.SaleRecord, title string) {
	agg, ok := a.products[rec.ShopifyProductID]
	if !ok {
		agg = &domain.ProductAggregate{
			ShopifyProductID: rec.ShopifyProductID,
			Title:            title,
			Revenue:          decimal.Zero,
			Commission:       decimal.Zero,
		}
		a.products[rec.ShopifyProductID] = agg
	}
	agg.SalesCount += rec.Quantity
	agg.Revenue = agg.Revenue.Add(rec.NetRevenue)

	a.totalSales += rec.Quantity
	a.grossRevenue = a.grossRevenue.Add(rec.GrossRevenue)
	a.netRevenue = a.netRevenue.Add(rec.NetRevenue)
}

// FoldOrderTrend buckets one order into the monthly trend, allocating the
// order-level net and refund to tracked products proportionally to each line
// item's share of the order's gross total. An order spanning products from
// several creators has one physical refund event; the proportional split
// keeps it from being double-counted. Orders seen through more than one
// product's stream fold only once.
func (a *Aggregator) FoldOrderTrend(order domain.Order, tracked map[string]bool) {
	if order.ExternalID != "" {
		if _, seen := a.seenOrders[order.ExternalID]; seen {
			return
		}
		a.seenOrders[order.ExternalID] = struct{}{}
	}
	a.orderCount++

	// Display-only refund total, order-wise.
	if order.FinancialStatus.IndicatesRefund() {
		a.displayRefund = a.displayRefund.Add(order.GrossTotal())
	} else {
		for _, refund := range order.Refunds {
			for _, rli := range refund.LineItems {
				if tracked[rli.ShopifyProductID] {
					a.displayRefund = a.displayRefund.Add(rli.RefundedSubtotal)
				}
			}
		}
	}

	key := monthKeyFor(order.CreatedAt)
	bucket, ok := a.trend[key]
	if !ok {
		a.logger.Debug("Order outside trend window, not bucketed",
			zap.String("order_id", order.ExternalID),
			zap.Time("created_at", order.CreatedAt))
		return
	}

	gross, refund, net := OrderTotals(order)
	for _, li := range order.LineItems {
		if !tracked[li.ShopifyProductID] {
			continue
		}
		bucket.Sales += li.Quantity
		bucket.Revenue = bucket.Revenue.Add(li.LineRevenue)
		if gross.IsPositive() {
			share := li.LineRevenue.Div(gross)
			bucket.NetRevenue = bucket.NetRevenue.Add(net.Mul(share))
			bucket.Refunds = bucket.Refunds.Add(refund.Mul(share))
		}
	}
}

// Products returns the per-product aggregates, commission applied, ordered
// by revenue descending.
func (a *Aggregator) Products() []domain.ProductAggregate {
	out := make([]domain.ProductAggregate, 0, len(a.products))
	for _, agg := range a.products {
		snapshot := *agg
		snapshot.Revenue = snapshot.Revenue.Round(2)
		snapshot.Commission = agg.Revenue.Mul(a.rate).Round(2)
		out = append(out, snapshot)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].ShopifyProductID < out[j].ShopifyProductID
	})
	return out
}

// Trend returns the six buckets oldest first, labels applied.
func (a *Aggregator) Trend() []domain.MonthlyTrendPoint {
	out := make([]domain.MonthlyTrendPoint, 0, trendMonths)
	for _, key := range a.months {
		bucket := a.trend[key]
		out = append(out, domain.MonthlyTrendPoint{
			Month:      key.Label(),
			Sales:      bucket.Sales,
			Revenue:    bucket.Revenue.Round(2),
			Refunds:    bucket.Refunds.Round(2),
			NetRevenue: bucket.NetRevenue.Round(2),
		})
	}
	return out
}

// TotalStats returns the run-wide totals.
func (a *Aggregator) TotalStats() Stats {
	stats := Stats{
		TotalRevenue:      a.grossRevenue.Round(2),
		TotalSales:        a.totalSales,
		TotalCommission:   a.netRevenue.Mul(a.rate).Round(2),
		AverageOrderValue: decimal.Zero,
		TotalRefunds:      a.displayRefund.Round(2),
		NetRevenue:        a.netRevenue.Round(2),
		OrderCount:        a.orderCount,
	}
	if a.orderCount > 0 {
		stats.AverageOrderValue = a.grossRevenue.Div(decimal.NewFromInt(int64(a.orderCount))).Round(2)
	}
	return stats
}

// NetRevenueTotal is the run's accumulated net revenue before commission.
func (a *Aggregator) NetRevenueTotal() decimal.Decimal {
	return a.netRevenue
}
