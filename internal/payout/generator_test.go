package payout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/domain"
	"github.com/makerstall/payoutsapi/internal/reconcile"
	"github.com/makerstall/payoutsapi/internal/repository"
	apperrors "github.com/makerstall/payoutsapi/pkg/errors"
)

type fakeCreatorRepo struct {
	creators []*domain.Creator
	err      error
}

func (r *fakeCreatorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Creator, error) {
	for _, c := range r.creators {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, &apperrors.ErrNotFound{Resource: "creator", ID: id.String()}
}

func (r *fakeCreatorRepo) ListActive(ctx context.Context) ([]*domain.Creator, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.creators, nil
}

type fakeProductRepo struct {
	byCreator map[uuid.UUID][]*domain.Product
}

func (r *fakeProductRepo) ListActiveByCreatorID(ctx context.Context, creatorID uuid.UUID) ([]*domain.Product, error) {
	return r.byCreator[creatorID], nil
}

func (r *fakeProductRepo) ListActive(ctx context.Context) ([]*domain.Product, error) {
	var all []*domain.Product
	for _, ps := range r.byCreator {
		all = append(all, ps...)
	}
	return all, nil
}

type payoutKey struct {
	creatorID   uuid.UUID
	periodStart time.Time
}

type fakePayoutRepo struct {
	rows      map[payoutKey]*domain.Payout
	insertErr error
}

func newFakePayoutRepo() *fakePayoutRepo {
	return &fakePayoutRepo{rows: make(map[payoutKey]*domain.Payout)}
}

func (r *fakePayoutRepo) InsertIfAbsent(ctx context.Context, p *domain.Payout) (bool, error) {
	if r.insertErr != nil {
		return false, r.insertErr
	}
	key := payoutKey{creatorID: p.CreatorID, periodStart: p.PeriodStart}
	if _, exists := r.rows[key]; exists {
		return false, nil
	}
	r.rows[key] = p
	return true, nil
}

func (r *fakePayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	for _, p := range r.rows {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, &apperrors.ErrNotFound{Resource: "payout", ID: id.String()}
}

func (r *fakePayoutRepo) ExistsForPeriod(ctx context.Context, creatorID uuid.UUID, periodStart, periodEnd time.Time) (bool, error) {
	_, ok := r.rows[payoutKey{creatorID: creatorID, periodStart: periodStart}]
	return ok, nil
}

func (r *fakePayoutRepo) ListByCreatorID(ctx context.Context, creatorID uuid.UUID) ([]*domain.Payout, error) {
	var out []*domain.Payout
	for _, p := range r.rows {
		if p.CreatorID == creatorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePayoutRepo) List(ctx context.Context, limit, offset int) ([]*domain.Payout, error) {
	var out []*domain.Payout
	for _, p := range r.rows {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePayoutRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PayoutStatus) error {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	p.Status = status
	return nil
}

type fakeFetcher struct {
	orders map[string][]domain.Order
	errs   map[string]error
}

func (f *fakeFetcher) FetchOrders(ctx context.Context, productID string, rng domain.DateRange) ([]domain.Order, error) {
	if err, ok := f.errs[productID]; ok {
		return nil, err
	}
	return f.orders[productID], nil
}

func paidOrder(id, productID, amount string) domain.Order {
	return domain.Order{
		ExternalID:      id,
		CreatedAt:       time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC),
		FinancialStatus: domain.FinancialStatusPaid,
		LineItems: []domain.LineItem{
			{ShopifyProductID: productID, Quantity: 1, LineRevenue: d(amount)},
		},
	}
}

type generatorFixture struct {
	gen     *Generator
	payouts *fakePayoutRepo
}

func newGeneratorFixture(creators []*domain.Creator, products map[uuid.UUID][]*domain.Product, fetcher *fakeFetcher) generatorFixture {
	payouts := newFakePayoutRepo()
	repos := &repository.Repositories{
		Creator: &fakeCreatorRepo{creators: creators},
		Product: &fakeProductRepo{byCreator: products},
		Payout:  payouts,
	}
	gen := NewGenerator(
		fetcher,
		reconcile.NewReconciler(reconcile.Options{LegacyStatusOverride: true}),
		testCalculator(),
		repos,
		zap.NewNop(),
	)
	return generatorFixture{gen: gen, payouts: payouts}
}

func creatorWithProduct(name, productID string) (*domain.Creator, []*domain.Product) {
	creatorID := uuid.New()
	creator := &domain.Creator{
		ID:             creatorID,
		Name:           name,
		PayoutMethod:   domain.PayoutMethodIBAN,
		PayoutCurrency: "GBP",
		IsActive:       true,
	}
	product := &domain.Product{
		ID:               uuid.New(),
		CreatorID:        creatorID,
		ShopifyProductID: productID,
		Title:            name + "'s product",
		Status:           "active",
	}
	return creator, []*domain.Product{product}
}

func julyPeriod() domain.Period {
	return domain.PeriodForMonth(2026, time.July)
}

func TestGenerateCreatesPendingPayouts(t *testing.T) {
	creator, products := creatorWithProduct("Ana", "111")
	fetcher := &fakeFetcher{orders: map[string][]domain.Order{
		"111": {paidOrder("1", "111", "200.00"), paidOrder("2", "111", "100.00")},
	}}
	fx := newGeneratorFixture([]*domain.Creator{creator}, map[uuid.UUID][]*domain.Product{creator.ID: products}, fetcher)

	batch, err := fx.gen.Generate(context.Background(), julyPeriod(), nil)
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)

	res := batch.Results[0]
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Amount.Equal(d("90.00")), "30 percent of 300.00 net")
	assert.Equal(t, "GBP", res.Currency)

	require.Len(t, fx.payouts.rows, 1)
	for _, row := range fx.payouts.rows {
		assert.Equal(t, domain.PayoutStatusPending, row.Status)
		assert.Equal(t, domain.PayoutMethodIBAN, row.Method)
		assert.Equal(t, julyPeriod().Start, row.PeriodStart)
	}
}

func TestGenerateIsIdempotentPerPeriod(t *testing.T) {
	creator, products := creatorWithProduct("Ana", "111")
	fetcher := &fakeFetcher{orders: map[string][]domain.Order{
		"111": {paidOrder("1", "111", "300.00")},
	}}
	fx := newGeneratorFixture([]*domain.Creator{creator}, map[uuid.UUID][]*domain.Product{creator.ID: products}, fetcher)

	_, err := fx.gen.Generate(context.Background(), julyPeriod(), nil)
	require.NoError(t, err)
	require.Len(t, fx.payouts.rows, 1)

	batch, err := fx.gen.Generate(context.Background(), julyPeriod(), nil)
	require.NoError(t, err)
	res := batch.Results[0]
	assert.True(t, res.Success)
	assert.Equal(t, "Payout already generated for this period", res.Message)
	assert.True(t, res.Amount.IsZero())
	assert.Len(t, fx.payouts.rows, 1, "no duplicate row for the same creator and period")

	// A different month still creates a row.
	_, err = fx.gen.Generate(context.Background(), domain.PeriodForMonth(2026, time.August), nil)
	require.NoError(t, err)
	assert.Len(t, fx.payouts.rows, 2)
}

func TestGenerateSkipsCreatorsBelowThreshold(t *testing.T) {
	creator, products := creatorWithProduct("Ben", "222")
	fetcher := &fakeFetcher{orders: map[string][]domain.Order{
		"222": {paidOrder("1", "222", "10.00")},
	}}
	fx := newGeneratorFixture([]*domain.Creator{creator}, map[uuid.UUID][]*domain.Product{creator.ID: products}, fetcher)

	batch, err := fx.gen.Generate(context.Background(), julyPeriod(), nil)
	require.NoError(t, err)

	res := batch.Results[0]
	assert.True(t, res.Success)
	assert.Equal(t, BelowThresholdMessage, res.Message)
	assert.Empty(t, fx.payouts.rows)
}

func TestGenerateIsolatesProductFetchFailures(t *testing.T) {
	creatorID := uuid.New()
	creator := &domain.Creator{ID: creatorID, Name: "Cara", PayoutMethod: domain.PayoutMethodPayPal, IsActive: true}
	products := []*domain.Product{
		{ID: uuid.New(), CreatorID: creatorID, ShopifyProductID: "301", Status: "active"},
		{ID: uuid.New(), CreatorID: creatorID, ShopifyProductID: "302", Status: "active"},
	}
	fetcher := &fakeFetcher{
		orders: map[string][]domain.Order{"302": {paidOrder("1", "302", "400.00")}},
		errs:   map[string]error{"301": errors.New("upstream 502")},
	}
	fx := newGeneratorFixture([]*domain.Creator{creator}, map[uuid.UUID][]*domain.Product{creatorID: products}, fetcher)

	batch, err := fx.gen.Generate(context.Background(), julyPeriod(), nil)
	require.NoError(t, err)

	res := batch.Results[0]
	require.True(t, res.Success, "one failed product must not sink the creator")
	assert.True(t, res.Amount.Equal(d("120.00")), "the reachable product still pays out")
	assert.Len(t, fx.payouts.rows, 1)
}

func TestGenerateFailsCreatorOnlyWhenAllProductsFail(t *testing.T) {
	okCreator, okProducts := creatorWithProduct("Dot", "401")
	badCreator, badProducts := creatorWithProduct("Eli", "402")
	fetcher := &fakeFetcher{
		orders: map[string][]domain.Order{"401": {paidOrder("1", "401", "100.00")}},
		errs:   map[string]error{"402": errors.New("boom")},
	}
	fx := newGeneratorFixture(
		[]*domain.Creator{okCreator, badCreator},
		map[uuid.UUID][]*domain.Product{
			okCreator.ID:  okProducts,
			badCreator.ID: badProducts,
		},
		fetcher,
	)

	batch, err := fx.gen.Generate(context.Background(), julyPeriod(), nil)
	require.NoError(t, err, "one creator's failure never aborts the batch")
	require.Len(t, batch.Results, 2)

	byName := map[string]Result{}
	for _, r := range batch.Results {
		byName[r.CreatorName] = r
	}
	assert.True(t, byName["Dot"].Success)
	assert.False(t, byName["Eli"].Success)
	assert.NotEmpty(t, byName["Eli"].Error)
	assert.Len(t, fx.payouts.rows, 1, "only the successful creator gets a row")
}

func TestPreviewDoesNotPersist(t *testing.T) {
	creator, products := creatorWithProduct("Fay", "501")
	fetcher := &fakeFetcher{orders: map[string][]domain.Order{
		"501": {paidOrder("1", "501", "300.00")},
	}}
	fx := newGeneratorFixture([]*domain.Creator{creator}, map[uuid.UUID][]*domain.Product{creator.ID: products}, fetcher)

	batch, err := fx.gen.Preview(context.Background(), julyPeriod(), nil)
	require.NoError(t, err)

	res := batch.Results[0]
	assert.True(t, res.Success)
	assert.True(t, res.Amount.Equal(d("90.00")))
	assert.Empty(t, fx.payouts.rows, "preview must not write payout rows")
}

func TestGenerateAppliesManualOverrides(t *testing.T) {
	creator, products := creatorWithProduct("Gus", "601")
	creator.PayoutCurrency = "EUR"
	fetcher := &fakeFetcher{orders: map[string][]domain.Order{
		"601": {paidOrder("1", "601", "10.00")},
	}}
	fx := newGeneratorFixture([]*domain.Creator{creator}, map[uuid.UUID][]*domain.Product{creator.ID: products}, fetcher)

	overrides := map[uuid.UUID]decimal.Decimal{creator.ID: d("500.00")}
	batch, err := fx.gen.Generate(context.Background(), julyPeriod(), overrides)
	require.NoError(t, err)

	res := batch.Results[0]
	require.True(t, res.Success)
	assert.True(t, res.Amount.Equal(d("500.00")))
	assert.Equal(t, "EUR", res.Currency)

	require.Len(t, fx.payouts.rows, 1)
	for _, row := range fx.payouts.rows {
		assert.True(t, row.Amount.Equal(d("500.00")))
		assert.Equal(t, "EUR", row.Currency)
	}
}

func TestGenerateRejectsOverrideForUnknownCreator(t *testing.T) {
	creator, products := creatorWithProduct("Ida", "801")
	fetcher := &fakeFetcher{orders: map[string][]domain.Order{
		"801": {paidOrder("1", "801", "100.00")},
	}}
	fx := newGeneratorFixture([]*domain.Creator{creator}, map[uuid.UUID][]*domain.Product{creator.ID: products}, fetcher)

	overrides := map[uuid.UUID]decimal.Decimal{uuid.New(): d("500.00")}
	_, err := fx.gen.Generate(context.Background(), julyPeriod(), overrides)
	require.Error(t, err)
	var vErr *apperrors.ErrValidation
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, fx.payouts.rows, "a rejected batch must write nothing")
}

func TestPreviewFlagsAlreadyGeneratedPayouts(t *testing.T) {
	creator, products := creatorWithProduct("Joy", "901")
	fetcher := &fakeFetcher{orders: map[string][]domain.Order{
		"901": {paidOrder("1", "901", "300.00")},
	}}
	fx := newGeneratorFixture([]*domain.Creator{creator}, map[uuid.UUID][]*domain.Product{creator.ID: products}, fetcher)

	_, err := fx.gen.Generate(context.Background(), julyPeriod(), nil)
	require.NoError(t, err)

	batch, err := fx.gen.Preview(context.Background(), julyPeriod(), nil)
	require.NoError(t, err)
	res := batch.Results[0]
	require.True(t, res.Success)
	assert.True(t, res.Amount.Equal(d("90.00")), "preview still shows the period's value")
	assert.Equal(t, "Payout already generated for this period", res.Message)

	// A fresh period carries no such flag.
	batch, err = fx.gen.Preview(context.Background(), domain.PeriodForMonth(2026, time.August), nil)
	require.NoError(t, err)
	assert.Empty(t, batch.Results[0].Message)
}

func TestGenerateUsesCreatorNegotiatedRate(t *testing.T) {
	creator, products := creatorWithProduct("Hal", "701")
	creator.CommissionRate = decimal.NullDecimal{Decimal: d("0.50"), Valid: true}
	fetcher := &fakeFetcher{orders: map[string][]domain.Order{
		"701": {paidOrder("1", "701", "100.00")},
	}}
	fx := newGeneratorFixture([]*domain.Creator{creator}, map[uuid.UUID][]*domain.Product{creator.ID: products}, fetcher)

	batch, err := fx.gen.Generate(context.Background(), julyPeriod(), nil)
	require.NoError(t, err)

	res := batch.Results[0]
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Amount.Equal(d("50.00")), "negotiated 50 percent of 100.00 net")

	require.Len(t, fx.payouts.rows, 1)
	for _, row := range fx.payouts.rows {
		assert.True(t, row.Amount.Equal(d("50.00")))
	}
}

func TestParseOverrides(t *testing.T) {
	id1 := uuid.New()
	id2 := uuid.New()

	overrides, err := ParseOverrides(fmt.Sprintf("%s:500.00, %s:12.50", id1, id2))
	require.NoError(t, err)
	require.Len(t, overrides, 2)
	assert.True(t, overrides[id1].Equal(d("500.00")))
	assert.True(t, overrides[id2].Equal(d("12.50")))

	empty, err := ParseOverrides("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseOverrides("not-a-uuid:10")
	assert.Error(t, err)

	_, err = ParseOverrides(id1.String() + ":-5")
	assert.Error(t, err)

	_, err = ParseOverrides(id1.String())
	assert.Error(t, err)
}
