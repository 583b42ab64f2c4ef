// Package reconcile turns platform orders into per-product sale records and
// folds them into per-run revenue aggregates.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/makerstall/payoutsapi/internal/domain"
)

// Options selects refund-attribution behavior.
type Options struct {
	// LegacyStatusOverride preserves the historical rule: any
	// refunded/partially_refunded status on the order overrides line-item
	// refund math with a full refund of the product's gross contribution.
	// With it off, line-item refund subtotals win whenever at least one
	// matches the product, and the full-gross fallback applies only when no
	// line-item refund data exists.
	LegacyStatusOverride bool
}

// Reconciler computes the refunded amount attributable to one product within
// one order.
type Reconciler struct {
	opts Options
}

// NewReconciler creates a reconciler with the given options.
func NewReconciler(opts Options) Reconciler {
	return Reconciler{opts: opts}
}

// SaleBreakdown is the reconciliation result for one (order, product) pair.
type SaleBreakdown struct {
	GrossRevenue decimal.Decimal
	RefundAmount decimal.Decimal
	NetRevenue   decimal.Decimal
	Quantity     int
}

// Reconcile computes the product's gross, attributed refund and net for the
// order. Net is floored at zero; RefundAmount is reported unclamped for
// diagnostics.
func (r Reconciler) Reconcile(order domain.Order, productID string) SaleBreakdown {
	var out SaleBreakdown

	for _, li := range order.LineItems {
		if li.ShopifyProductID != productID {
			continue
		}
		out.GrossRevenue = out.GrossRevenue.Add(li.LineRevenue)
		out.Quantity += li.Quantity
	}
	if out.Quantity == 0 && out.GrossRevenue.IsZero() {
		// Order does not touch this product at all.
		return out
	}

	lineItemRefund, hasLineItemData := refundForProduct(order, productID)
	out.RefundAmount = lineItemRefund

	if order.FinancialStatus.IndicatesRefund() {
		if r.opts.LegacyStatusOverride || !hasLineItemData {
			// Any refund flag on the order counts as a full refund of this
			// product's contribution.
			out.RefundAmount = out.GrossRevenue
		}
	}

	out.NetRevenue = out.GrossRevenue.Sub(out.RefundAmount)
	if out.NetRevenue.IsNegative() {
		out.NetRevenue = decimal.Zero
	}
	return out
}

// SaleRecord returns the breakdown as a SaleRecord, or false when the order
// contributes nothing for the product.
func (r Reconciler) SaleRecord(order domain.Order, productID string) (domain.SaleRecord, bool) {
	b := r.Reconcile(order, productID)
	if b.Quantity == 0 && b.GrossRevenue.IsZero() {
		return domain.SaleRecord{}, false
	}
	return domain.SaleRecord{
		ShopifyProductID: productID,
		OrderID:          order.ExternalID,
		GrossRevenue:     b.GrossRevenue,
		RefundAmount:     b.RefundAmount,
		NetRevenue:       b.NetRevenue,
		Quantity:         b.Quantity,
		CreatedAt:        order.CreatedAt,
	}, true
}

// refundForProduct sums refunded subtotals of the product's line items and
// reports whether any refund line matched at all.
func refundForProduct(order domain.Order, productID string) (decimal.Decimal, bool) {
	total := decimal.Zero
	matched := false
	for _, refund := range order.Refunds {
		for _, rli := range refund.LineItems {
			if rli.ShopifyProductID != productID {
				continue
			}
			total = total.Add(rli.RefundedSubtotal)
			matched = true
		}
	}
	return total, matched
}

// OrderTotals computes the order-level gross, refund and net across all line
// items from the platform's actual refund events. These feed the
// proportional trend allocation; net here is derived once and never reduced
// again downstream.
func OrderTotals(order domain.Order) (gross, refund, net decimal.Decimal) {
	gross = order.GrossTotal()
	refund = order.RefundedTotal()
	net = gross.Sub(refund)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return gross, refund, net
}

// DisplayRefund is the order's contribution to the reported refund total:
// a refund-flagged order counts its entire order total, a non-flagged order
// counts only its recorded refund subtotals.
func DisplayRefund(order domain.Order) decimal.Decimal {
	if order.FinancialStatus.IndicatesRefund() {
		return order.GrossTotal()
	}
	return order.RefundedTotal()
}
