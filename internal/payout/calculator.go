// Package payout decides payout eligibility and orchestrates monthly batch
// generation.
package payout

import (
	"github.com/shopspring/decimal"

	"github.com/makerstall/payoutsapi/internal/domain"
)

// Calculator applies the commission rate and minimum-earnings threshold to a
// creator's net revenue for a period.
type Calculator struct {
	Rate         decimal.Decimal // fixed commission rate, e.g. 0.30
	MinThreshold decimal.Decimal // minimum commission in the shop's base currency
	BaseCurrency string
}

// Decision is the calculator's verdict for one creator and period.
type Decision struct {
	Eligible   bool
	Amount     decimal.Decimal
	Currency   string
	Commission decimal.Decimal
	Message    string
	Overridden bool
}

// BelowThresholdMessage is surfaced verbatim in preview/generate results.
const BelowThresholdMessage = "No earnings above threshold"

// ForCreator returns a calculator with the creator's negotiated rate and
// minimum threshold applied; unset overrides keep the shop defaults.
func (c Calculator) ForCreator(creator *domain.Creator) Calculator {
	if creator.CommissionRate.Valid {
		c.Rate = creator.CommissionRate.Decimal
	}
	if creator.MinThreshold.Valid {
		c.MinThreshold = creator.MinThreshold.Decimal
	}
	return c
}

// Decide turns net revenue into a payout decision. A manual override amount
// is expressed in the creator's chosen payout currency and replaces the
// computed commission entirely, threshold included: the admin supplied it on
// purpose. A commission exactly at the threshold is eligible.
func (c Calculator) Decide(netRevenue decimal.Decimal, override *decimal.Decimal, creatorCurrency string) Decision {
	commission := netRevenue.Mul(c.Rate).Round(2)

	if override != nil {
		currency := creatorCurrency
		if currency == "" {
			currency = c.BaseCurrency
		}
		return Decision{
			Eligible:   true,
			Amount:     override.Round(2),
			Currency:   currency,
			Commission: commission,
			Overridden: true,
		}
	}

	if commission.LessThan(c.MinThreshold) {
		return Decision{
			Eligible:   false,
			Amount:     decimal.Zero,
			Currency:   c.BaseCurrency,
			Commission: commission,
			Message:    BelowThresholdMessage,
		}
	}

	return Decision{
		Eligible:   true,
		Amount:     commission,
		Currency:   c.BaseCurrency,
		Commission: commission,
	}
}
