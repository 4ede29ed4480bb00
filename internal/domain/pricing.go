package domain

// DefaultVATPercentage is applied when a quote does not override the VAT rate.
const DefaultVATPercentage = 10.0

// BasePricing is the effective per-person-type price table used to price a quote.
type BasePricing struct {
	Adult     int64
	Child     int64
	Infant    int64
	Senior    int64
	BasePrice int64
}

// DiscountSpec is the discount requested by the operator. Percentage wins when positive.
type DiscountSpec struct {
	Percentage float64
	Amount     int64
	Reason     string
}

// QuoteDiscount records the discount applied to a quote.
type QuoteDiscount struct {
	Amount     int64
	Percentage float64
	Reason     string
}

// QuoteVAT records the VAT applied to a quote.
type QuoteVAT struct {
	Percentage float64
	Amount     int64
}

// QuotePricing captures the full monetary breakdown of a quote.
type QuotePricing struct {
	BasePrice        int64
	AdultsPrice      int64
	ChildrenPrice    int64
	InfantsPrice     int64
	SeniorsPrice     int64
	TourSubtotal     int64
	ServicesSubtotal int64
	Discount         QuoteDiscount
	Total            int64
	VAT              QuoteVAT
	FinalTotal       int64
}

// BasePricing returns the per-type prices echoed on the breakdown, so a stored quote can be re-priced
// from its own snapshot.
func (p QuotePricing) BasePricing() BasePricing {
	return BasePricing{
		Adult:     p.AdultsPrice,
		Child:     p.ChildrenPrice,
		Infant:    p.InfantsPrice,
		Senior:    p.SeniorsPrice,
		BasePrice: p.BasePrice,
	}
}

// DiscountSpec reconstructs the operator discount input from the stored breakdown.
func (p QuotePricing) DiscountSpec() DiscountSpec {
	if p.Discount.Percentage > 0 {
		return DiscountSpec{Percentage: p.Discount.Percentage, Reason: p.Discount.Reason}
	}
	return DiscountSpec{Amount: p.Discount.Amount, Reason: p.Discount.Reason}
}
