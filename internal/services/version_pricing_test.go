package services

import (
	"testing"

	"github.com/tourdesk/backoffice/internal/domain"
)

func TestCalculateVersionPrice(t *testing.T) {
	tests := []struct {
		name         string
		versionType  domain.VersionType
		seasonal     *domain.SeasonalInfo
		promotion    *domain.PromotionInfo
		wantPrice    int64
		wantDiscount int64
	}{
		{
			name:         "seasonal multiplier raises price",
			versionType:  domain.VersionTypeSeasonal,
			seasonal:     &domain.SeasonalInfo{Season: domain.SeasonPeak, PeakMultiplier: ptr(1.2)},
			wantPrice:    1_200_000,
			wantDiscount: -200_000,
		},
		{
			name:        "seasonal without multiplier is unchanged",
			versionType: domain.VersionTypeSeasonal,
			seasonal:    &domain.SeasonalInfo{Season: domain.SeasonShoulder},
			wantPrice:   1_000_000,
		},
		{
			name:         "promotion percentage",
			versionType:  domain.VersionTypePromotion,
			promotion:    &domain.PromotionInfo{DiscountPercentage: 30, DiscountAmount: 50_000},
			wantPrice:    700_000,
			wantDiscount: 300_000,
		},
		{
			name:         "promotion amount",
			versionType:  domain.VersionTypePromotion,
			promotion:    &domain.PromotionInfo{DiscountAmount: 200_000},
			wantPrice:    800_000,
			wantDiscount: 200_000,
		},
		{
			name:         "promotion amount floors at zero",
			versionType:  domain.VersionTypePromotion,
			promotion:    &domain.PromotionInfo{DiscountAmount: 5_000_000},
			wantPrice:    0,
			wantDiscount: 1_000_000,
		},
		{
			name:        "special is priced by the operator",
			versionType: domain.VersionTypeSpecial,
			promotion:   &domain.PromotionInfo{DiscountPercentage: 50},
			wantPrice:   1_000_000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preview := CalculateVersionPrice(1_000_000, tt.versionType, tt.seasonal, tt.promotion)
			if preview.OriginalPrice != 1_000_000 {
				t.Fatalf("expected original price 1000000, got %d", preview.OriginalPrice)
			}
			if preview.CalculatedPrice != tt.wantPrice {
				t.Fatalf("expected calculated price %d, got %d", tt.wantPrice, preview.CalculatedPrice)
			}
			if preview.Discount != tt.wantDiscount {
				t.Fatalf("expected discount %d, got %d", tt.wantDiscount, preview.Discount)
			}
		})
	}
}

func TestApplyDerivedPricing(t *testing.T) {
	tour := domain.Tour{Price: 1_000_000}

	seasonal := domain.TourVersion{
		VersionType:  domain.VersionTypeSeasonal,
		SeasonalInfo: &domain.SeasonalInfo{PeakMultiplier: ptr(1.2)},
		Pricing:      domain.VersionPricing{Adult: 1, Child: 400_000},
	}
	applyDerivedPricing(tour, &seasonal)
	if seasonal.Pricing.Adult != 1_200_000 || seasonal.Pricing.BasePrice != 1_200_000 || seasonal.Pricing.Child != 400_000 {
		t.Fatalf("unexpected seasonal pricing %+v", seasonal.Pricing)
	}

	promo := domain.TourVersion{
		VersionType:   domain.VersionTypePromotion,
		PromotionInfo: &domain.PromotionInfo{DiscountPercentage: 10},
		Pricing:       domain.VersionPricing{BasePrice: 2_000_000},
	}
	applyDerivedPricing(tour, &promo)
	if promo.Pricing.Adult != 1_800_000 || promo.Pricing.BasePrice != 1_800_000 {
		t.Fatalf("expected promotion to derive from payload base price, got %+v", promo.Pricing)
	}

	special := domain.TourVersion{
		VersionType: domain.VersionTypeSpecial,
		Pricing:     domain.VersionPricing{Adult: 5_000_000, BasePrice: 5_000_000},
	}
	applyDerivedPricing(tour, &special)
	if special.Pricing.Adult != 5_000_000 {
		t.Fatalf("expected special pricing untouched, got %+v", special.Pricing)
	}
}
