package services

import (
	"github.com/shopspring/decimal"

	"github.com/tourdesk/backoffice/internal/domain"
)

// DeriveVersionPrice applies a version's automatic pricing rule to a base price. Special versions are
// priced by the operator and pass through unchanged.
func DeriveVersionPrice(basePrice int64, versionType domain.VersionType, seasonal *domain.SeasonalInfo, promotion *domain.PromotionInfo) int64 {
	switch versionType {
	case domain.VersionTypeSeasonal:
		m := seasonal.Multiplier()
		if m <= 0 {
			return basePrice
		}
		return multiply(basePrice, decimal.NewFromFloat(m))
	case domain.VersionTypePromotion:
		if promotion == nil {
			return basePrice
		}
		if promotion.DiscountPercentage > 0 {
			factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(promotion.DiscountPercentage).Div(hundred))
			return multiply(basePrice, factor)
		}
		if promotion.DiscountAmount > 0 {
			if promotion.DiscountAmount >= basePrice {
				return 0
			}
			return basePrice - promotion.DiscountAmount
		}
	}
	return basePrice
}

// CalculateVersionPrice previews a version price against the tour price without persisting anything.
// Discount is negative when a seasonal multiplier raises the price.
func CalculateVersionPrice(tourPrice int64, versionType domain.VersionType, seasonal *domain.SeasonalInfo, promotion *domain.PromotionInfo) domain.VersionPricePreview {
	calculated := DeriveVersionPrice(tourPrice, versionType, seasonal, promotion)
	return domain.VersionPricePreview{
		OriginalPrice:   tourPrice,
		CalculatedPrice: calculated,
		Discount:        tourPrice - calculated,
	}
}

// applyDerivedPricing rewrites the adult and base price of a new version from its tour.
func applyDerivedPricing(tour domain.Tour, version *domain.TourVersion) {
	switch version.VersionType {
	case domain.VersionTypeSeasonal:
		info := version.SeasonalInfo
		if info == nil || info.PeakMultiplier == nil || *info.PeakMultiplier <= 0 {
			return
		}
		price := DeriveVersionPrice(tour.Price, domain.VersionTypeSeasonal, info, nil)
		version.Pricing.Adult = price
		version.Pricing.BasePrice = price
	case domain.VersionTypePromotion:
		if version.PromotionInfo == nil {
			return
		}
		base := version.Pricing.BasePrice
		if base <= 0 {
			base = tour.Price
		}
		price := DeriveVersionPrice(base, domain.VersionTypePromotion, nil, version.PromotionInfo)
		version.Pricing.Adult = price
		version.Pricing.BasePrice = price
	}
}

func multiply(amount int64, factor decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(factor).Round(0).IntPart()
}
