package domain

import "strings"

// FinancialStatus is the platform's order financial status (Shopify-aligned)
type FinancialStatus string

const (
	FinancialStatusPaid              FinancialStatus = "PAID"
	FinancialStatusPartiallyPaid     FinancialStatus = "PARTIALLY_PAID"
	FinancialStatusRefunded          FinancialStatus = "REFUNDED"
	FinancialStatusPartiallyRefunded FinancialStatus = "PARTIALLY_REFUNDED"
	FinancialStatusPending           FinancialStatus = "PENDING"
	FinancialStatusVoided            FinancialStatus = "VOIDED"
)

// IndicatesPayment reports whether the order represents money actually taken:
// PAID, PARTIALLY_PAID, PARTIALLY_REFUNDED, or any status containing
// "PAID"/"COMPLETE". Fully refunded orders are excluded at the source.
func (s FinancialStatus) IndicatesPayment() bool {
	upper := strings.ToUpper(strings.TrimSpace(string(s)))
	switch FinancialStatus(upper) {
	case FinancialStatusPaid, FinancialStatusPartiallyPaid, FinancialStatusPartiallyRefunded:
		return true
	}
	return strings.Contains(upper, "PAID") || strings.Contains(upper, "COMPLETE")
}

// IndicatesRefund reports whether the status carries a refund flag
// (REFUNDED or PARTIALLY_REFUNDED, matched by substring like the platform
// sometimes reports lowercase REST statuses).
func (s FinancialStatus) IndicatesRefund() bool {
	return strings.Contains(strings.ToUpper(strings.TrimSpace(string(s))), "REFUNDED")
}

// PayoutStatus is the lifecycle state of a payout row
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusCompleted PayoutStatus = "completed"
)

// IsValid checks if the payout status is valid
func (s PayoutStatus) IsValid() bool {
	switch s {
	case PayoutStatusPending, PayoutStatusCompleted:
		return true
	default:
		return false
	}
}

// PayoutMethod is how a creator receives payouts
type PayoutMethod string

const (
	PayoutMethodIBAN   PayoutMethod = "iban"
	PayoutMethodPayPal PayoutMethod = "paypal"
)

// IsValid checks if the payout method is valid
func (m PayoutMethod) IsValid() bool {
	switch m {
	case PayoutMethodIBAN, PayoutMethodPayPal:
		return true
	default:
		return false
	}
}
