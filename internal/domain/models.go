package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Creator represents a creator selling products through the shop
type Creator struct {
	ID             uuid.UUID
	Name           string
	Email          string
	PayoutMethod   PayoutMethod
	PayoutCurrency string              // creator's chosen payout currency (e.g. EUR); empty means shop base currency
	CommissionRate decimal.NullDecimal // per-creator rate; invalid means shop default
	MinThreshold   decimal.NullDecimal // per-creator minimum payout; invalid means shop default
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Product is a creator's product, created on upload approval. Read-only here.
type Product struct {
	ID               uuid.UUID
	CreatorID        uuid.UUID
	ShopifyProductID string // numeric Shopify product id as string (extracted from GID)
	Title            string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Order is a normalized platform order. Transient: fetched per reconciliation
// run, never persisted.
type Order struct {
	ExternalID      string
	OrderNumber     string
	CreatedAt       time.Time
	FinancialStatus FinancialStatus
	CustomerName    string
	CustomerEmail   string
	LineItems       []LineItem
	Refunds         []Refund
	ShippingTotal   decimal.Decimal
}

// GrossTotal is the sum of line revenue over all line items, before refunds.
func (o *Order) GrossTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.LineItems {
		total = total.Add(li.LineRevenue)
	}
	return total
}

// RefundedTotal is the sum of refunded subtotals across all refund entries.
func (o *Order) RefundedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, r := range o.Refunds {
		for _, rli := range r.LineItems {
			total = total.Add(rli.RefundedSubtotal)
		}
	}
	return total
}

// LineItem is one line of an order. LineRevenue is the discounted line total
// if the platform reported one, else Quantity x UnitPrice.
type LineItem struct {
	ID               string
	ShopifyProductID string
	Title            string
	Quantity         int
	UnitPrice        decimal.Decimal
	LineRevenue      decimal.Decimal
}

// Refund groups the refunded line items of a single refund event.
type Refund struct {
	ID        string
	CreatedAt time.Time
	LineItems []RefundLineItem
}

// RefundLineItem is a refunded portion of an order line.
type RefundLineItem struct {
	LineItemID       string
	ShopifyProductID string
	RefundedSubtotal decimal.Decimal
}

// SaleRecord is the per-order, per-product reconciliation result.
// NetRevenue is always >= 0; RefundAmount reports the raw attributed refund
// and may exceed GrossRevenue (clamping happens only when deriving net).
type SaleRecord struct {
	ShopifyProductID string
	OrderID          string
	GrossRevenue     decimal.Decimal
	RefundAmount     decimal.Decimal
	NetRevenue       decimal.Decimal
	Quantity         int
	CreatedAt        time.Time
}

// ProductAggregate is the running per-product total for one reconciliation run.
type ProductAggregate struct {
	ShopifyProductID string          `json:"product_id"`
	Title            string          `json:"title,omitempty"`
	SalesCount       int             `json:"sales_count"`
	Revenue          decimal.Decimal `json:"revenue"`
	Commission       decimal.Decimal `json:"commission"`
}

// MonthlyTrendPoint is one of the six trailing calendar-month buckets.
type MonthlyTrendPoint struct {
	Month      string          `json:"month"`
	Sales      int             `json:"sales"`
	Revenue    decimal.Decimal `json:"revenue"`
	Refunds    decimal.Decimal `json:"refunds"`
	NetRevenue decimal.Decimal `json:"net_revenue"`
}

// Payout is one payout row for a creator and period. At most one exists per
// (creator, period); the payouts table enforces this with a unique constraint.
type Payout struct {
	ID          uuid.UUID       `json:"id"`
	CreatorID   uuid.UUID       `json:"creator_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      PayoutStatus    `json:"status"`
	Method      PayoutMethod    `json:"method"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Period is a calendar-month payout window [Start, End].
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PeriodForMonth returns the period covering the given calendar month in UTC.
func PeriodForMonth(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Second),
	}
}

// PreviousMonthPeriod returns the calendar month before the one containing t.
// Stepping back from the first of t's month, not from t itself: AddDate on a
// month-end day normalizes past short months (Mar 31 - 1 month = Mar 3) and
// would land in the wrong month.
func PreviousMonthPeriod(t time.Time) Period {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	return PeriodForMonth(prev.Year(), prev.Month())
}

// DateRange bounds an order query. A zero Start means the earliest
// representable date; a zero End means now.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Normalize fills open bounds with their defaults.
func (r DateRange) Normalize(now time.Time) DateRange {
	out := r
	if out.Start.IsZero() {
		out.Start = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if out.End.IsZero() {
		out.End = now
	}
	return out
}

// Days returns the span of the range in whole days.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}
