// Package records holds the persisted document shapes shared by the Firestore and MongoDB stores.
package records

import (
	"time"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/repositories"
)

type PriceTable struct {
	Adult  int64 `firestore:"adult" bson:"adult"`
	Child  int64 `firestore:"child" bson:"child"`
	Infant int64 `firestore:"infant" bson:"infant"`
	Senior int64 `firestore:"senior" bson:"senior"`
}

type ItineraryDay struct {
	Day           int      `firestore:"day" bson:"day"`
	Title         string   `firestore:"title" bson:"title"`
	Description   string   `firestore:"description,omitempty" bson:"description,omitempty"`
	Attractions   []string `firestore:"attractions,omitempty" bson:"attractions,omitempty"`
	Activities    []string `firestore:"activities,omitempty" bson:"activities,omitempty"`
	Meals         []string `firestore:"meals,omitempty" bson:"meals,omitempty"`
	Accommodation string   `firestore:"accommodation,omitempty" bson:"accommodation,omitempty"`
}

type Policies struct {
	Booking      string `firestore:"booking,omitempty" bson:"booking,omitempty"`
	Cancellation string `firestore:"cancellation,omitempty" bson:"cancellation,omitempty"`
	Rescheduling string `firestore:"rescheduling,omitempty" bson:"rescheduling,omitempty"`
	Refund       string `firestore:"refund,omitempty" bson:"refund,omitempty"`
}

type Supplier struct {
	Name    string `firestore:"name" bson:"name"`
	Contact string `firestore:"contact,omitempty" bson:"contact,omitempty"`
}

type Suppliers struct {
	Restaurants []Supplier `firestore:"restaurants,omitempty" bson:"restaurants,omitempty"`
	Hotels      []Supplier `firestore:"hotels,omitempty" bson:"hotels,omitempty"`
	Transport   []Supplier `firestore:"transport,omitempty" bson:"transport,omitempty"`
	Attractions []Supplier `firestore:"attractions,omitempty" bson:"attractions,omitempty"`
}

// Tour is the stored form of domain.Tour.
type Tour struct {
	ID               string         `firestore:"-" bson:"_id"`
	Name             string         `firestore:"name" bson:"name"`
	Description      string         `firestore:"description" bson:"description"`
	Category         string         `firestore:"category" bson:"category"`
	CategoryLabel    string         `firestore:"categoryLabel" bson:"categoryLabel"`
	IsCustom         bool           `firestore:"isCustom" bson:"isCustom"`
	Destination      string         `firestore:"destination" bson:"destination"`
	Price            int64          `firestore:"price" bson:"price"`
	Pricing          *PriceTable    `firestore:"pricing,omitempty" bson:"pricing,omitempty"`
	Duration         int            `firestore:"duration" bson:"duration"`
	MaxParticipants  int            `firestore:"maxParticipants" bson:"maxParticipants"`
	Status           string         `firestore:"status" bson:"status"`
	Itinerary        []ItineraryDay `firestore:"itinerary,omitempty" bson:"itinerary,omitempty"`
	IncludedServices []string       `firestore:"includedServices,omitempty" bson:"includedServices,omitempty"`
	ExcludedServices []string       `firestore:"excludedServices,omitempty" bson:"excludedServices,omitempty"`
	Policies         Policies       `firestore:"policies" bson:"policies"`
	Suppliers        Suppliers      `firestore:"suppliers" bson:"suppliers"`
	Images           []string       `firestore:"images,omitempty" bson:"images,omitempty"`
	SearchKey        string         `firestore:"searchKey" bson:"searchKey"`
	CreatedBy        string         `firestore:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt        time.Time      `firestore:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time      `firestore:"updatedAt" bson:"updatedAt"`
}

// FromTour converts a domain tour into its stored form.
func FromTour(t domain.Tour) Tour {
	rec := Tour{
		ID:               t.ID,
		Name:             t.Name,
		Description:      t.Description,
		Category:         string(t.Category),
		CategoryLabel:    t.CategoryLabel,
		IsCustom:         t.IsCustom,
		Destination:      t.Destination,
		Price:            t.Price,
		Duration:         t.Duration,
		MaxParticipants:  t.MaxParticipants,
		Status:           string(t.Status),
		Itinerary:        fromItinerary(t.Itinerary),
		IncludedServices: t.IncludedServices,
		ExcludedServices: t.ExcludedServices,
		Policies:         Policies(t.Policies),
		Suppliers: Suppliers{
			Restaurants: fromSuppliers(t.Suppliers.Restaurants),
			Hotels:      fromSuppliers(t.Suppliers.Hotels),
			Transport:   fromSuppliers(t.Suppliers.Transport),
			Attractions: fromSuppliers(t.Suppliers.Attractions),
		},
		Images:    t.Images,
		SearchKey: repositories.SearchKey(repositories.TourSearchFields(t)...),
		CreatedBy: t.CreatedBy,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
	if t.Pricing != nil {
		p := PriceTable(*t.Pricing)
		rec.Pricing = &p
	}
	return rec
}

// Domain converts the record back into a domain tour.
func (r Tour) Domain() domain.Tour {
	t := domain.Tour{
		ID:               r.ID,
		Name:             r.Name,
		Description:      r.Description,
		Category:         domain.TourCategory(r.Category),
		CategoryLabel:    r.CategoryLabel,
		IsCustom:         r.IsCustom,
		Destination:      r.Destination,
		Price:            r.Price,
		Duration:         r.Duration,
		MaxParticipants:  r.MaxParticipants,
		Status:           domain.TourStatus(r.Status),
		Itinerary:        toItinerary(r.Itinerary),
		IncludedServices: r.IncludedServices,
		ExcludedServices: r.ExcludedServices,
		Policies:         domain.TourPolicies(r.Policies),
		Suppliers: domain.TourSuppliers{
			Restaurants: toSuppliers(r.Suppliers.Restaurants),
			Hotels:      toSuppliers(r.Suppliers.Hotels),
			Transport:   toSuppliers(r.Suppliers.Transport),
			Attractions: toSuppliers(r.Suppliers.Attractions),
		},
		Images:    r.Images,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.Pricing != nil {
		p := domain.PriceTable(*r.Pricing)
		t.Pricing = &p
	}
	return t
}

type VersionPricing struct {
	Adult     int64 `firestore:"adult" bson:"adult"`
	Child     int64 `firestore:"child" bson:"child"`
	Infant    int64 `firestore:"infant" bson:"infant"`
	Senior    int64 `firestore:"senior" bson:"senior"`
	BasePrice int64 `firestore:"basePrice" bson:"basePrice"`
}

type SeasonalInfo struct {
	Season         string   `firestore:"season" bson:"season"`
	PeakMultiplier *float64 `firestore:"peakMultiplier,omitempty" bson:"peakMultiplier,omitempty"`
	Description    string   `firestore:"description,omitempty" bson:"description,omitempty"`
}

type PromotionInfo struct {
	DiscountPercentage float64  `firestore:"discountPercentage" bson:"discountPercentage"`
	DiscountAmount     int64    `firestore:"discountAmount" bson:"discountAmount"`
	BonusServices      []string `firestore:"bonusServices,omitempty" bson:"bonusServices,omitempty"`
	PromotionCode      string   `firestore:"promotionCode,omitempty" bson:"promotionCode,omitempty"`
	MinBookingDays     int      `firestore:"minBookingDays,omitempty" bson:"minBookingDays,omitempty"`
	MaxParticipants    int      `firestore:"maxParticipants,omitempty" bson:"maxParticipants,omitempty"`
}

type SpecialInfo struct {
	EventType         string   `firestore:"eventType" bson:"eventType"`
	EventName         string   `firestore:"eventName,omitempty" bson:"eventName,omitempty"`
	IsVIP             bool     `firestore:"isVIP" bson:"isVIP"`
	MaxParticipants   int      `firestore:"maxParticipants" bson:"maxParticipants"`
	LuxuryLevel       int      `firestore:"luxuryLevel" bson:"luxuryLevel"`
	ExclusiveServices []string `firestore:"exclusiveServices,omitempty" bson:"exclusiveServices,omitempty"`
	Requirements      string   `firestore:"requirements,omitempty" bson:"requirements,omitempty"`
}

type Schedule struct {
	DepartureDate  time.Time `firestore:"departureDate" bson:"departureDate"`
	ReturnDate     time.Time `firestore:"returnDate" bson:"returnDate"`
	AvailableSlots int       `firestore:"availableSlots" bson:"availableSlots"`
	BookedSlots    int       `firestore:"bookedSlots" bson:"bookedSlots"`
	Status         string    `firestore:"status" bson:"status"`
}

type AdditionalService struct {
	Name        string `firestore:"name" bson:"name"`
	Price       int64  `firestore:"price" bson:"price"`
	Description string `firestore:"description,omitempty" bson:"description,omitempty"`
}

// TourVersion is the stored form of domain.TourVersion.
type TourVersion struct {
	ID                 string              `firestore:"-" bson:"_id"`
	TourID             string              `firestore:"tourId" bson:"tourId"`
	Name               string              `firestore:"name" bson:"name"`
	Description        string              `firestore:"description,omitempty" bson:"description,omitempty"`
	VersionType        string              `firestore:"versionType" bson:"versionType"`
	StartDate          time.Time           `firestore:"startDate" bson:"startDate"`
	EndDate            time.Time           `firestore:"endDate" bson:"endDate"`
	Pricing            VersionPricing      `firestore:"pricing" bson:"pricing"`
	SeasonalInfo       *SeasonalInfo       `firestore:"seasonalInfo,omitempty" bson:"seasonalInfo,omitempty"`
	PromotionInfo      *PromotionInfo      `firestore:"promotionInfo,omitempty" bson:"promotionInfo,omitempty"`
	SpecialInfo        *SpecialInfo        `firestore:"specialInfo,omitempty" bson:"specialInfo,omitempty"`
	Schedules          []Schedule          `firestore:"schedules,omitempty" bson:"schedules,omitempty"`
	CustomItinerary    []ItineraryDay      `firestore:"customItinerary,omitempty" bson:"customItinerary,omitempty"`
	AdditionalServices []AdditionalService `firestore:"additionalServices,omitempty" bson:"additionalServices,omitempty"`
	IncludedServices   []string            `firestore:"includedServices,omitempty" bson:"includedServices,omitempty"`
	ExcludedServices   []string            `firestore:"excludedServices,omitempty" bson:"excludedServices,omitempty"`
	Status             string              `firestore:"status" bson:"status"`
	DisplayPriority    int                 `firestore:"displayPriority" bson:"displayPriority"`
	BookedCount        int                 `firestore:"bookedCount" bson:"bookedCount"`
	Notes              string              `firestore:"notes,omitempty" bson:"notes,omitempty"`
	CreatedBy          string              `firestore:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt          time.Time           `firestore:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time           `firestore:"updatedAt" bson:"updatedAt"`
}

// FromTourVersion converts a domain version into its stored form.
func FromTourVersion(v domain.TourVersion) TourVersion {
	rec := TourVersion{
		ID:               v.ID,
		TourID:           v.TourID,
		Name:             v.Name,
		Description:      v.Description,
		VersionType:      string(v.VersionType),
		StartDate:        v.StartDate.UTC(),
		EndDate:          v.EndDate.UTC(),
		Pricing:          VersionPricing(v.Pricing),
		CustomItinerary:  fromItinerary(v.CustomItinerary),
		IncludedServices: v.IncludedServices,
		ExcludedServices: v.ExcludedServices,
		Status:           string(v.Status),
		DisplayPriority:  v.DisplayPriority,
		BookedCount:      v.BookedCount,
		Notes:            v.Notes,
		CreatedBy:        v.CreatedBy,
		CreatedAt:        v.CreatedAt.UTC(),
		UpdatedAt:        v.UpdatedAt.UTC(),
	}
	if s := v.SeasonalInfo; s != nil {
		rec.SeasonalInfo = &SeasonalInfo{Season: string(s.Season), PeakMultiplier: s.PeakMultiplier, Description: s.Description}
	}
	if p := v.PromotionInfo; p != nil {
		rec.PromotionInfo = &PromotionInfo{
			DiscountPercentage: p.DiscountPercentage,
			DiscountAmount:     p.DiscountAmount,
			BonusServices:      p.BonusServices,
			PromotionCode:      p.PromotionCode,
			MinBookingDays:     p.MinBookingDays,
			MaxParticipants:    p.MaxParticipants,
		}
	}
	if s := v.SpecialInfo; s != nil {
		rec.SpecialInfo = &SpecialInfo{
			EventType:         string(s.EventType),
			EventName:         s.EventName,
			IsVIP:             s.IsVIP,
			MaxParticipants:   s.MaxParticipants,
			LuxuryLevel:       s.LuxuryLevel,
			ExclusiveServices: s.ExclusiveServices,
			Requirements:      s.Requirements,
		}
	}
	for _, s := range v.Schedules {
		rec.Schedules = append(rec.Schedules, Schedule{
			DepartureDate:  s.DepartureDate.UTC(),
			ReturnDate:     s.ReturnDate.UTC(),
			AvailableSlots: s.AvailableSlots,
			BookedSlots:    s.BookedSlots,
			Status:         string(s.Status),
		})
	}
	for _, s := range v.AdditionalServices {
		rec.AdditionalServices = append(rec.AdditionalServices, AdditionalService(s))
	}
	return rec
}

// Domain converts the record back into a domain version.
func (r TourVersion) Domain() domain.TourVersion {
	v := domain.TourVersion{
		ID:               r.ID,
		TourID:           r.TourID,
		Name:             r.Name,
		Description:      r.Description,
		VersionType:      domain.VersionType(r.VersionType),
		StartDate:        r.StartDate.UTC(),
		EndDate:          r.EndDate.UTC(),
		Pricing:          domain.VersionPricing(r.Pricing),
		CustomItinerary:  toItinerary(r.CustomItinerary),
		IncludedServices: r.IncludedServices,
		ExcludedServices: r.ExcludedServices,
		Status:           domain.VersionStatus(r.Status),
		DisplayPriority:  r.DisplayPriority,
		BookedCount:      r.BookedCount,
		Notes:            r.Notes,
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	if s := r.SeasonalInfo; s != nil {
		v.SeasonalInfo = &domain.SeasonalInfo{Season: domain.Season(s.Season), PeakMultiplier: s.PeakMultiplier, Description: s.Description}
	}
	if p := r.PromotionInfo; p != nil {
		v.PromotionInfo = &domain.PromotionInfo{
			DiscountPercentage: p.DiscountPercentage,
			DiscountAmount:     p.DiscountAmount,
			BonusServices:      p.BonusServices,
			PromotionCode:      p.PromotionCode,
			MinBookingDays:     p.MinBookingDays,
			MaxParticipants:    p.MaxParticipants,
		}
	}
	if s := r.SpecialInfo; s != nil {
		v.SpecialInfo = &domain.SpecialInfo{
			EventType:         domain.SpecialEventType(s.EventType),
			EventName:         s.EventName,
			IsVIP:             s.IsVIP,
			MaxParticipants:   s.MaxParticipants,
			LuxuryLevel:       s.LuxuryLevel,
			ExclusiveServices: s.ExclusiveServices,
			Requirements:      s.Requirements,
		}
	}
	for _, s := range r.Schedules {
		v.Schedules = append(v.Schedules, domain.DepartureSchedule{
			DepartureDate:  s.DepartureDate.UTC(),
			ReturnDate:     s.ReturnDate.UTC(),
			AvailableSlots: s.AvailableSlots,
			BookedSlots:    s.BookedSlots,
			Status:         domain.ScheduleStatus(s.Status),
		})
	}
	for _, s := range r.AdditionalServices {
		v.AdditionalServices = append(v.AdditionalServices, domain.AdditionalService(s))
	}
	return v
}

type Customer struct {
	Name    string `firestore:"name" bson:"name"`
	Company string `firestore:"company,omitempty" bson:"company,omitempty"`
	Email   string `firestore:"email,omitempty" bson:"email,omitempty"`
	Phone   string `firestore:"phone,omitempty" bson:"phone,omitempty"`
	Address string `firestore:"address,omitempty" bson:"address,omitempty"`
	Zalo    string `firestore:"zalo,omitempty" bson:"zalo,omitempty"`
}

type GroupInfo struct {
	TotalParticipants int        `firestore:"totalParticipants" bson:"totalParticipants"`
	Adults            int        `firestore:"adults" bson:"adults"`
	Children          int        `firestore:"children" bson:"children"`
	Infants           int        `firestore:"infants" bson:"infants"`
	Seniors           int        `firestore:"seniors" bson:"seniors"`
	DepartureDate     *time.Time `firestore:"departureDate,omitempty" bson:"departureDate,omitempty"`
	ReturnDate        *time.Time `firestore:"returnDate,omitempty" bson:"returnDate,omitempty"`
	Notes             string     `firestore:"notes,omitempty" bson:"notes,omitempty"`
}

type SelectedService struct {
	ServiceID   string `firestore:"serviceId,omitempty" bson:"serviceId,omitempty"`
	Name        string `firestore:"serviceName" bson:"serviceName"`
	Type        string `firestore:"serviceType" bson:"serviceType"`
	Quantity    int    `firestore:"quantity" bson:"quantity"`
	UnitPrice   int64  `firestore:"unitPrice" bson:"unitPrice"`
	TotalPrice  int64  `firestore:"totalPrice" bson:"totalPrice"`
	Description string `firestore:"description,omitempty" bson:"description,omitempty"`
}

type QuoteDiscount struct {
	Amount     int64   `firestore:"amount" bson:"amount"`
	Percentage float64 `firestore:"percentage" bson:"percentage"`
	Reason     string  `firestore:"reason,omitempty" bson:"reason,omitempty"`
}

type QuoteVAT struct {
	Percentage float64 `firestore:"percentage" bson:"percentage"`
	Amount     int64   `firestore:"amount" bson:"amount"`
}

type QuotePricing struct {
	BasePrice        int64         `firestore:"basePrice" bson:"basePrice"`
	AdultsPrice      int64         `firestore:"adultsPrice" bson:"adultsPrice"`
	ChildrenPrice    int64         `firestore:"childrenPrice" bson:"childrenPrice"`
	InfantsPrice     int64         `firestore:"infantsPrice" bson:"infantsPrice"`
	SeniorsPrice     int64         `firestore:"seniorsPrice" bson:"seniorsPrice"`
	TourSubtotal     int64         `firestore:"tourSubtotal" bson:"tourSubtotal"`
	ServicesSubtotal int64         `firestore:"servicesSubtotal" bson:"servicesSubtotal"`
	Discount         QuoteDiscount `firestore:"discount" bson:"discount"`
	Total            int64         `firestore:"total" bson:"total"`
	VAT              QuoteVAT      `firestore:"vat" bson:"vat"`
	FinalTotal       int64         `firestore:"finalTotal" bson:"finalTotal"`
}

type QuoteTerms struct {
	ValidityDays       int    `firestore:"validityDays" bson:"validityDays"`
	PaymentTerms       string `firestore:"paymentTerms,omitempty" bson:"paymentTerms,omitempty"`
	CancellationPolicy string `firestore:"cancellationPolicy,omitempty" bson:"cancellationPolicy,omitempty"`
	Notes              string `firestore:"notes,omitempty" bson:"notes,omitempty"`
}

type SentInfo struct {
	SentAt       *time.Time `firestore:"sentAt,omitempty" bson:"sentAt,omitempty"`
	SentBy       string     `firestore:"sentBy,omitempty" bson:"sentBy,omitempty"`
	SentVia      string     `firestore:"sentVia,omitempty" bson:"sentVia,omitempty"`
	EmailSent    bool       `firestore:"emailSent" bson:"emailSent"`
	ZaloSent     bool       `firestore:"zaloSent" bson:"zaloSent"`
	ViewCount    int        `firestore:"viewCount" bson:"viewCount"`
	LastViewedAt *time.Time `firestore:"lastViewedAt,omitempty" bson:"lastViewedAt,omitempty"`
}

// Quote is the stored form of domain.Quote.
type Quote struct {
	ID               string            `firestore:"-" bson:"_id"`
	QuoteNumber      string            `firestore:"quoteNumber" bson:"quoteNumber"`
	TourID           string            `firestore:"tourId" bson:"tourId"`
	TourVersionID    string            `firestore:"tourVersionId,omitempty" bson:"tourVersionId,omitempty"`
	Customer         Customer          `firestore:"customer" bson:"customer"`
	GroupInfo        GroupInfo         `firestore:"groupInfo" bson:"groupInfo"`
	SelectedServices []SelectedService `firestore:"selectedServices,omitempty" bson:"selectedServices,omitempty"`
	Pricing          QuotePricing      `firestore:"pricing" bson:"pricing"`
	Terms            QuoteTerms        `firestore:"terms" bson:"terms"`
	Status           string            `firestore:"status" bson:"status"`
	SentInfo         SentInfo          `firestore:"sentInfo" bson:"sentInfo"`
	InternalNotes    string            `firestore:"internalNotes,omitempty" bson:"internalNotes,omitempty"`
	SearchKey        string            `firestore:"searchKey" bson:"searchKey"`
	CreatedBy        string            `firestore:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt        time.Time         `firestore:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time         `firestore:"updatedAt" bson:"updatedAt"`
}

// FromQuote converts a domain quote into its stored form.
func FromQuote(q domain.Quote) Quote {
	rec := Quote{
		ID:            q.ID,
		QuoteNumber:   q.QuoteNumber,
		TourID:        q.TourID,
		TourVersionID: q.TourVersionID,
		Customer:      Customer(q.Customer),
		GroupInfo: GroupInfo{
			TotalParticipants: q.GroupInfo.TotalParticipants,
			Adults:            q.GroupInfo.Adults,
			Children:          q.GroupInfo.Children,
			Infants:           q.GroupInfo.Infants,
			Seniors:           q.GroupInfo.Seniors,
			DepartureDate:     utcPtr(q.GroupInfo.DepartureDate),
			ReturnDate:        utcPtr(q.GroupInfo.ReturnDate),
			Notes:             q.GroupInfo.Notes,
		},
		Pricing: QuotePricing{
			BasePrice:        q.Pricing.BasePrice,
			AdultsPrice:      q.Pricing.AdultsPrice,
			ChildrenPrice:    q.Pricing.ChildrenPrice,
			InfantsPrice:     q.Pricing.InfantsPrice,
			SeniorsPrice:     q.Pricing.SeniorsPrice,
			TourSubtotal:     q.Pricing.TourSubtotal,
			ServicesSubtotal: q.Pricing.ServicesSubtotal,
			Discount:         QuoteDiscount(q.Pricing.Discount),
			Total:            q.Pricing.Total,
			VAT:              QuoteVAT(q.Pricing.VAT),
			FinalTotal:       q.Pricing.FinalTotal,
		},
		Terms:  QuoteTerms(q.Terms),
		Status: string(q.Status),
		SentInfo: SentInfo{
			SentAt:       utcPtr(q.SentInfo.SentAt),
			SentBy:       q.SentInfo.SentBy,
			SentVia:      string(q.SentInfo.SentVia),
			EmailSent:    q.SentInfo.EmailSent,
			ZaloSent:     q.SentInfo.ZaloSent,
			ViewCount:    q.SentInfo.ViewCount,
			LastViewedAt: utcPtr(q.SentInfo.LastViewedAt),
		},
		InternalNotes: q.InternalNotes,
		SearchKey:     repositories.SearchKey(repositories.QuoteSearchFields(q)...),
		CreatedBy:     q.CreatedBy,
		CreatedAt:     q.CreatedAt.UTC(),
		UpdatedAt:     q.UpdatedAt.UTC(),
	}
	for _, s := range q.SelectedServices {
		rec.SelectedServices = append(rec.SelectedServices, SelectedService{
			ServiceID:   s.ServiceID,
			Name:        s.Name,
			Type:        string(s.Type),
			Quantity:    s.Quantity,
			UnitPrice:   s.UnitPrice,
			TotalPrice:  s.TotalPrice,
			Description: s.Description,
		})
	}
	return rec
}

// Domain converts the record back into a domain quote.
func (r Quote) Domain() domain.Quote {
	q := domain.Quote{
		ID:            r.ID,
		QuoteNumber:   r.QuoteNumber,
		TourID:        r.TourID,
		TourVersionID: r.TourVersionID,
		Customer:      domain.Customer(r.Customer),
		GroupInfo: domain.GroupInfo{
			TotalParticipants: r.GroupInfo.TotalParticipants,
			Adults:            r.GroupInfo.Adults,
			Children:          r.GroupInfo.Children,
			Infants:           r.GroupInfo.Infants,
			Seniors:           r.GroupInfo.Seniors,
			DepartureDate:     utcPtr(r.GroupInfo.DepartureDate),
			ReturnDate:        utcPtr(r.GroupInfo.ReturnDate),
			Notes:             r.GroupInfo.Notes,
		},
		Pricing: domain.QuotePricing{
			BasePrice:        r.Pricing.BasePrice,
			AdultsPrice:      r.Pricing.AdultsPrice,
			ChildrenPrice:    r.Pricing.ChildrenPrice,
			InfantsPrice:     r.Pricing.InfantsPrice,
			SeniorsPrice:     r.Pricing.SeniorsPrice,
			TourSubtotal:     r.Pricing.TourSubtotal,
			ServicesSubtotal: r.Pricing.ServicesSubtotal,
			Discount:         domain.QuoteDiscount(r.Pricing.Discount),
			Total:            r.Pricing.Total,
			VAT:              domain.QuoteVAT(r.Pricing.VAT),
			FinalTotal:       r.Pricing.FinalTotal,
		},
		Terms:  domain.QuoteTerms(r.Terms),
		Status: domain.QuoteStatus(r.Status),
		SentInfo: domain.SentInfo{
			SentAt:       utcPtr(r.SentInfo.SentAt),
			SentBy:       r.SentInfo.SentBy,
			SentVia:      domain.DeliveryChannel(r.SentInfo.SentVia),
			EmailSent:    r.SentInfo.EmailSent,
			ZaloSent:     r.SentInfo.ZaloSent,
			ViewCount:    r.SentInfo.ViewCount,
			LastViewedAt: utcPtr(r.SentInfo.LastViewedAt),
		},
		InternalNotes: r.InternalNotes,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	for _, s := range r.SelectedServices {
		q.SelectedServices = append(q.SelectedServices, domain.SelectedService{
			ServiceID:   s.ServiceID,
			Name:        s.Name,
			Type:        domain.ServiceType(s.Type),
			Quantity:    s.Quantity,
			UnitPrice:   s.UnitPrice,
			TotalPrice:  s.TotalPrice,
			Description: s.Description,
		})
	}
	return q
}

// Counter is the stored state of a named sequence.
type Counter struct {
	ID           string    `firestore:"-" bson:"_id"`
	CurrentValue int64     `firestore:"currentValue" bson:"currentValue"`
	Step         int64     `firestore:"step" bson:"step"`
	MaxValue     *int64    `firestore:"maxValue,omitempty" bson:"maxValue,omitempty"`
	UpdatedAt    time.Time `firestore:"updatedAt" bson:"updatedAt"`
}

func fromItinerary(days []domain.ItineraryDay) []ItineraryDay {
	if len(days) == 0 {
		return nil
	}
	out := make([]ItineraryDay, len(days))
	for i, d := range days {
		out[i] = ItineraryDay(d)
	}
	return out
}

func toItinerary(days []ItineraryDay) []domain.ItineraryDay {
	if len(days) == 0 {
		return nil
	}
	out := make([]domain.ItineraryDay, len(days))
	for i, d := range days {
		out[i] = domain.ItineraryDay(d)
	}
	return out
}

func fromSuppliers(items []domain.Supplier) []Supplier {
	if len(items) == 0 {
		return nil
	}
	out := make([]Supplier, len(items))
	for i, s := range items {
		out[i] = Supplier(s)
	}
	return out
}

func toSuppliers(items []Supplier) []domain.Supplier {
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.Supplier, len(items))
	for i, s := range items {
		out[i] = domain.Supplier(s)
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
