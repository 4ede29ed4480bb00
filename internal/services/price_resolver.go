package services

import "github.com/tourdesk/backoffice/internal/domain"

// ResolveBasePricing picks the price table a quote is priced from. A supplied version replaces the tour
// table entirely; a tour without a table prices adults at its base price and everyone else at zero.
func ResolveBasePricing(tour domain.Tour, version *domain.TourVersion) domain.BasePricing {
	if version != nil {
		p := version.Pricing
		basePrice := tour.Price
		if p.BasePrice > 0 {
			basePrice = p.BasePrice
		}
		return domain.BasePricing{
			Adult:     p.Adult,
			Child:     p.Child,
			Infant:    p.Infant,
			Senior:    p.Senior,
			BasePrice: basePrice,
		}
	}
	if tour.Pricing != nil {
		return domain.BasePricing{
			Adult:     tour.Pricing.Adult,
			Child:     tour.Pricing.Child,
			Infant:    tour.Pricing.Infant,
			Senior:    tour.Pricing.Senior,
			BasePrice: tour.Price,
		}
	}
	return domain.BasePricing{Adult: tour.Price, BasePrice: tour.Price}
}
