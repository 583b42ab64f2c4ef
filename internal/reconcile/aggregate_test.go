package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/domain"
)

var aggNow = time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

func newTestAggregator() *Aggregator {
	return NewAggregator(d("0.30"), aggNow, zap.NewNop())
}

func TestAggregatorAlwaysHasSixTrendBuckets(t *testing.T) {
	trend := newTestAggregator().Trend()
	require.Len(t, trend, 6)

	labels := make([]string, 0, 6)
	for _, p := range trend {
		labels = append(labels, p.Month)
		assert.Zero(t, p.Sales)
		assert.True(t, p.Revenue.IsZero())
	}
	assert.Equal(t, []string{"Mar", "Apr", "May", "Jun", "Jul", "Aug"}, labels)
}

func TestAggregatorProportionalTrendAllocation(t *testing.T) {
	// Order total 150, refund 30, net 120. Tracked product 111 contributed
	// 90 of the gross, so its allocation share is 0.6: net 72, refund 18.
	order := domain.Order{
		ExternalID:      "5001",
		CreatedAt:       time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC),
		FinancialStatus: domain.FinancialStatusPartiallyRefunded,
		LineItems: []domain.LineItem{
			{ShopifyProductID: "111", Quantity: 3, LineRevenue: d("90.00")},
			{ShopifyProductID: "999", Quantity: 1, LineRevenue: d("60.00")},
		},
		Refunds: []domain.Refund{
			{LineItems: []domain.RefundLineItem{
				{ShopifyProductID: "999", RefundedSubtotal: d("30.00")},
			}},
		},
	}

	agg := newTestAggregator()
	agg.FoldOrderTrend(order, map[string]bool{"111": true})

	trend := agg.Trend()
	july := trend[4]
	require.Equal(t, "Jul", july.Month)
	assert.Equal(t, 3, july.Sales)
	assert.True(t, july.Revenue.Equal(d("90.00")))
	assert.True(t, july.NetRevenue.Equal(d("72.00")), "net allocated by the line's share of order gross")
	assert.True(t, july.Refunds.Equal(d("18.00")))
}

func TestAggregatorDeduplicatesOrdersAcrossProductStreams(t *testing.T) {
	order := domain.Order{
		ExternalID:      "5002",
		CreatedAt:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		FinancialStatus: domain.FinancialStatusPaid,
		LineItems: []domain.LineItem{
			{ShopifyProductID: "111", Quantity: 1, LineRevenue: d("10.00")},
			{ShopifyProductID: "222", Quantity: 1, LineRevenue: d("20.00")},
		},
	}
	tracked := map[string]bool{"111": true, "222": true}

	agg := newTestAggregator()
	// The same order arrives through both products' fetch streams.
	agg.FoldOrderTrend(order, tracked)
	agg.FoldOrderTrend(order, tracked)

	trend := agg.Trend()
	august := trend[5]
	assert.Equal(t, 2, august.Sales, "an order folds into the trend only once")
	assert.True(t, august.Revenue.Equal(d("30.00")))
	assert.Equal(t, 1, agg.TotalStats().OrderCount)
}

func TestAggregatorTrendSalesMatchSaleRecordQuantities(t *testing.T) {
	rec := NewReconciler(Options{LegacyStatusOverride: true})
	orders := []domain.Order{
		{
			ExternalID:      "1",
			CreatedAt:       time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC),
			FinancialStatus: domain.FinancialStatusPaid,
			LineItems:       []domain.LineItem{{ShopifyProductID: "111", Quantity: 2, LineRevenue: d("40.00")}},
		},
		{
			ExternalID:      "2",
			CreatedAt:       time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC),
			FinancialStatus: domain.FinancialStatusPartiallyRefunded,
			LineItems:       []domain.LineItem{{ShopifyProductID: "111", Quantity: 1, LineRevenue: d("25.00")}},
			Refunds: []domain.Refund{
				{LineItems: []domain.RefundLineItem{{ShopifyProductID: "111", RefundedSubtotal: d("5.00")}}},
			},
		},
	}

	agg := newTestAggregator()
	tracked := map[string]bool{"111": true}
	for _, order := range orders {
		if sale, ok := rec.SaleRecord(order, "111"); ok {
			agg.FoldSale(sale, "Poster")
		}
		agg.FoldOrderTrend(order, tracked)
	}

	trendSales := 0
	for _, p := range agg.Trend() {
		trendSales += p.Sales
	}
	assert.Equal(t, agg.TotalStats().TotalSales, trendSales,
		"trend sales and per-product sales count the same units")
	assert.Equal(t, 3, trendSales)
}

func TestAggregatorSkipsOrdersOutsideTrendWindow(t *testing.T) {
	old := domain.Order{
		ExternalID:      "5003",
		CreatedAt:       time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC),
		FinancialStatus: domain.FinancialStatusPaid,
		LineItems:       []domain.LineItem{{ShopifyProductID: "111", Quantity: 1, LineRevenue: d("10.00")}},
	}

	agg := newTestAggregator()
	agg.FoldOrderTrend(old, map[string]bool{"111": true})

	for _, p := range agg.Trend() {
		assert.Zero(t, p.Sales)
	}
	assert.Equal(t, 1, agg.TotalStats().OrderCount, "the order still counts toward run totals")
}

func TestAggregatorProductsSortedByRevenue(t *testing.T) {
	agg := newTestAggregator()
	agg.FoldSale(domain.SaleRecord{ShopifyProductID: "111", Quantity: 1, GrossRevenue: d("10.00"), NetRevenue: d("10.00")}, "Small")
	agg.FoldSale(domain.SaleRecord{ShopifyProductID: "222", Quantity: 2, GrossRevenue: d("200.00"), NetRevenue: d("200.00")}, "Big")

	products := agg.Products()
	require.Len(t, products, 2)
	assert.Equal(t, "222", products[0].ShopifyProductID)
	assert.True(t, products[0].Commission.Equal(d("60.00")), "commission is 30% of net revenue")
	assert.Equal(t, "111", products[1].ShopifyProductID)
}

func TestAggregatorTotalStats(t *testing.T) {
	agg := newTestAggregator()
	agg.FoldSale(domain.SaleRecord{ShopifyProductID: "111", Quantity: 1, GrossRevenue: d("100.00"), RefundAmount: d("40.00"), NetRevenue: d("60.00")}, "Poster")

	order := domain.Order{
		ExternalID:      "7001",
		CreatedAt:       aggNow,
		FinancialStatus: domain.FinancialStatusPaid,
		LineItems:       []domain.LineItem{{ShopifyProductID: "111", Quantity: 1, LineRevenue: d("100.00")}},
		Refunds: []domain.Refund{
			{LineItems: []domain.RefundLineItem{{ShopifyProductID: "111", RefundedSubtotal: d("40.00")}}},
		},
	}
	agg.FoldOrderTrend(order, map[string]bool{"111": true})

	stats := agg.TotalStats()
	assert.True(t, stats.TotalRevenue.Equal(d("100.00")))
	assert.True(t, stats.NetRevenue.Equal(d("60.00")))
	assert.True(t, stats.TotalCommission.Equal(d("18.00")), "commission applies to net revenue")
	assert.True(t, stats.TotalRefunds.Equal(d("40.00")))
	assert.True(t, stats.AverageOrderValue.Equal(d("100.00")))
	assert.Equal(t, 1, stats.OrderCount)
	assert.True(t, agg.NetRevenueTotal().Equal(d("60.00")))
}
