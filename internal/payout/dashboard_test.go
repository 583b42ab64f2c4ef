package payout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/domain"
	"github.com/makerstall/payoutsapi/internal/reconcile"
	"github.com/makerstall/payoutsapi/internal/repository"
)

func dashNow() time.Time {
	return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
}

func newDashboardFixture(creators []*domain.Creator, products map[uuid.UUID][]*domain.Product, fetcher *fakeFetcher) *Dashboard {
	repos := &repository.Repositories{
		Creator: &fakeCreatorRepo{creators: creators},
		Product: &fakeProductRepo{byCreator: products},
		Payout:  newFakePayoutRepo(),
	}
	return NewDashboard(
		fetcher,
		reconcile.NewReconciler(reconcile.Options{LegacyStatusOverride: true}),
		d("0.30"),
		repos,
		zap.NewNop(),
		dashNow,
	)
}

func TestDashboardBuildAggregatesAcrossProducts(t *testing.T) {
	creator, products := creatorWithProduct("Ana", "111")
	order := paidOrder("1", "111", "100.00")
	fetcher := &fakeFetcher{orders: map[string][]domain.Order{"111": {order}}}

	dash := newDashboardFixture([]*domain.Creator{creator}, map[uuid.UUID][]*domain.Product{creator.ID: products}, fetcher)

	report, err := dash.Build(context.Background(), domain.DateRange{})
	require.NoError(t, err)

	require.Len(t, report.Products, 1)
	assert.Equal(t, "111", report.Products[0].ShopifyProductID)
	assert.True(t, report.Products[0].Revenue.Equal(d("100.00")))
	assert.True(t, report.Products[0].Commission.Equal(d("30.00")))

	require.Len(t, report.Orders, 1)
	assert.Equal(t, "1", report.Orders[0].OrderID)
	assert.True(t, report.Orders[0].Total.Equal(d("100.00")))

	assert.Equal(t, 1, report.Stats.OrderCount)
	assert.Len(t, report.SalesTrend, 6)
	assert.Equal(t, dashNow(), report.DateRange.End, "open range end defaults to now")
}

func TestDashboardBuildDeduplicatesSharedOrders(t *testing.T) {
	// One physical order with two tracked products appears in both fetch
	// streams; stats and the order list must count it once.
	creatorA, productsA := creatorWithProduct("Ana", "111")
	creatorB, productsB := creatorWithProduct("Ben", "222")
	shared := domain.Order{
		ExternalID:      "77",
		CreatedAt:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		FinancialStatus: domain.FinancialStatusPaid,
		LineItems: []domain.LineItem{
			{ShopifyProductID: "111", Quantity: 1, LineRevenue: d("10.00")},
			{ShopifyProductID: "222", Quantity: 1, LineRevenue: d("20.00")},
		},
	}
	fetcher := &fakeFetcher{orders: map[string][]domain.Order{
		"111": {shared},
		"222": {shared},
	}}

	dash := newDashboardFixture(
		[]*domain.Creator{creatorA, creatorB},
		map[uuid.UUID][]*domain.Product{creatorA.ID: productsA, creatorB.ID: productsB},
		fetcher,
	)

	report, err := dash.Build(context.Background(), domain.DateRange{})
	require.NoError(t, err)

	assert.Len(t, report.Orders, 1)
	assert.Equal(t, 1, report.Stats.OrderCount)

	// Each product still gets its own sale record from its own stream.
	require.Len(t, report.Products, 2)
	totalSales := 0
	for _, p := range report.SalesTrend {
		totalSales += p.Sales
	}
	assert.Equal(t, 2, totalSales)
}

func TestDashboardBuildToleratesSingleProductFailure(t *testing.T) {
	creatorID := uuid.New()
	creator := &domain.Creator{ID: creatorID, Name: "Cara", IsActive: true}
	products := []*domain.Product{
		{ID: uuid.New(), CreatorID: creatorID, ShopifyProductID: "301", Status: "active"},
		{ID: uuid.New(), CreatorID: creatorID, ShopifyProductID: "302", Status: "active"},
	}
	fetcher := &fakeFetcher{
		orders: map[string][]domain.Order{"302": {paidOrder("9", "302", "50.00")}},
		errs:   map[string]error{"301": errors.New("boom")},
	}

	dash := newDashboardFixture([]*domain.Creator{creator}, map[uuid.UUID][]*domain.Product{creatorID: products}, fetcher)

	report, err := dash.Build(context.Background(), domain.DateRange{})
	require.NoError(t, err, "one failed product degrades the report, it does not fail it")
	require.Len(t, report.Products, 1)
	assert.Equal(t, "302", report.Products[0].ShopifyProductID)
}

func TestDashboardBuildFailsWhenEveryProductFails(t *testing.T) {
	creator, products := creatorWithProduct("Dot", "401")
	fetcher := &fakeFetcher{errs: map[string]error{"401": errors.New("boom")}}

	dash := newDashboardFixture([]*domain.Creator{creator}, map[uuid.UUID][]*domain.Product{creator.ID: products}, fetcher)

	_, err := dash.Build(context.Background(), domain.DateRange{})
	assert.Error(t, err)
}
