package services

import (
	"github.com/shopspring/decimal"

	"github.com/tourdesk/backoffice/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// PricingEngineOptions tunes quote pricing.
type PricingEngineOptions struct {
	// ClampDiscount bounds the discount to [0, total before discount] so totals never go negative.
	ClampDiscount bool
	// DefaultVATPercentage applies when a computation does not override VAT. Nil means 10%; an explicit
	// zero is a VAT exempt deployment.
	DefaultVATPercentage *float64
}

// PricingEngine computes quote price breakdowns. It is the only place quote totals are derived.
type PricingEngine struct {
	clampDiscount bool
	defaultVAT    float64
}

// NewPricingEngine constructs a pricing engine.
func NewPricingEngine(opts PricingEngineOptions) *PricingEngine {
	vat := domain.DefaultVATPercentage
	if opts.DefaultVATPercentage != nil && *opts.DefaultVATPercentage >= 0 {
		vat = *opts.DefaultVATPercentage
	}
	return &PricingEngine{clampDiscount: opts.ClampDiscount, defaultVAT: vat}
}

// ComputeQuotePricing derives the full breakdown for a group. It returns the selected services with their
// line totals filled in. Rounding happens only at the discount and VAT steps, half away from zero.
func (e *PricingEngine) ComputeQuotePricing(
	base domain.BasePricing,
	group domain.GroupInfo,
	selected []domain.SelectedService,
	discount domain.DiscountSpec,
	vatPercentage *float64,
) (domain.QuotePricing, []domain.SelectedService) {
	tourSubtotal := base.Adult*int64(group.Adults) +
		base.Child*int64(group.Children) +
		base.Infant*int64(group.Infants) +
		base.Senior*int64(group.Seniors)

	var servicesSubtotal int64
	lines := make([]domain.SelectedService, len(selected))
	for i, svc := range selected {
		qty := svc.Quantity
		if qty < 1 {
			qty = 1
		}
		svc.TotalPrice = svc.UnitPrice * int64(qty)
		servicesSubtotal += svc.TotalPrice
		lines[i] = svc
	}

	totalBeforeDiscount := tourSubtotal + servicesSubtotal

	applied := domain.QuoteDiscount{Reason: discount.Reason}
	switch {
	case discount.Percentage > 0:
		applied.Percentage = discount.Percentage
		applied.Amount = percentOf(totalBeforeDiscount, discount.Percentage)
	case discount.Amount > 0:
		applied.Amount = discount.Amount
	}
	if e.clampDiscount {
		if applied.Amount < 0 {
			applied.Amount = 0
		}
		if applied.Amount > totalBeforeDiscount {
			applied.Amount = totalBeforeDiscount
		}
	}

	total := totalBeforeDiscount - applied.Amount

	vat := e.defaultVAT
	if vatPercentage != nil {
		vat = *vatPercentage
	}
	vatAmount := percentOf(total, vat)

	return domain.QuotePricing{
		BasePrice:        base.BasePrice,
		AdultsPrice:      base.Adult,
		ChildrenPrice:    base.Child,
		InfantsPrice:     base.Infant,
		SeniorsPrice:     base.Senior,
		TourSubtotal:     tourSubtotal,
		ServicesSubtotal: servicesSubtotal,
		Discount:         applied,
		Total:            total,
		VAT:              domain.QuoteVAT{Percentage: vat, Amount: vatAmount},
		FinalTotal:       total + vatAmount,
	}, lines
}

// percentOf returns round(amount × pct / 100).
func percentOf(amount int64, pct float64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromFloat(pct)).
		Div(hundred).
		Round(0).
		IntPart()
}
