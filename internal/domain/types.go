package domain

import (
	"time"
)

// Pagination defines offset-token paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// Page wraps a page of results with the token to request the next one.
type Page[T any] struct {
	Items         []T
	NextPageToken string
}

// TourCategory classifies tours for catalogue filtering.
type TourCategory string

const (
	TourCategoryDomestic      TourCategory = "domestic"
	TourCategoryInternational TourCategory = "international"
	TourCategoryCustom        TourCategory = "custom"
)

// TourStatus tracks whether a tour is sellable.
type TourStatus string

const (
	TourStatusDraft    TourStatus = "draft"
	TourStatusActive   TourStatus = "active"
	TourStatusInactive TourStatus = "inactive"
)

// PriceTable holds per-person-type prices.
type PriceTable struct {
	Adult  int64
	Child  int64
	Infant int64
	Senior int64
}

// ItineraryDay describes a single day of a tour programme.
type ItineraryDay struct {
	Day           int
	Title         string
	Description   string
	Attractions   []string
	Activities    []string
	Meals         []string
	Accommodation string
}

// TourPolicies bundles the contractual terms shown to customers.
type TourPolicies struct {
	Booking      string
	Cancellation string
	Rescheduling string
	Refund       string
}

// Supplier is a named partner with a contact line.
type Supplier struct {
	Name    string
	Contact string
}

// TourSuppliers groups suppliers by kind.
type TourSuppliers struct {
	Restaurants []Supplier
	Hotels      []Supplier
	Transport   []Supplier
	Attractions []Supplier
}

// Tour is a sellable trip template.
type Tour struct {
	ID               string
	Name             string
	Description      string
	Category         TourCategory
	CategoryLabel    string
	IsCustom         bool
	Destination      string
	Price            int64
	Pricing          *PriceTable
	Duration         int
	MaxParticipants  int
	Status           TourStatus
	Itinerary        []ItineraryDay
	IncludedServices []string
	ExcludedServices []string
	Policies         TourPolicies
	Suppliers        TourSuppliers
	Images           []string
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// VersionType discriminates the pricing variant a tour version represents.
type VersionType string

const (
	VersionTypeSeasonal  VersionType = "seasonal"
	VersionTypePromotion VersionType = "promotion"
	VersionTypeSpecial   VersionType = "special"
)

// VersionStatus is the lifecycle state of a tour version.
type VersionStatus string

const (
	VersionStatusDraft    VersionStatus = "draft"
	VersionStatusActive   VersionStatus = "active"
	VersionStatusInactive VersionStatus = "inactive"
	VersionStatusExpired  VersionStatus = "expired"
)

// VersionPricing is the price table stored on a version, including its base price.
type VersionPricing struct {
	Adult     int64
	Child     int64
	Infant    int64
	Senior    int64
	BasePrice int64
}

// Season names the seasonal band of a seasonal version.
type Season string

const (
	SeasonPeak     Season = "peak"
	SeasonOffPeak  Season = "off-peak"
	SeasonShoulder Season = "shoulder"
)

// SeasonalInfo configures a seasonal version.
type SeasonalInfo struct {
	Season         Season
	PeakMultiplier *float64
	Description    string
}

// Multiplier returns the configured peak multiplier, defaulting to 1.0.
func (s *SeasonalInfo) Multiplier() float64 {
	if s == nil || s.PeakMultiplier == nil {
		return 1.0
	}
	return *s.PeakMultiplier
}

// PromotionInfo configures a promotional version.
type PromotionInfo struct {
	DiscountPercentage float64
	DiscountAmount     int64
	BonusServices      []string
	PromotionCode      string
	MinBookingDays     int
	MaxParticipants    int
}

// SpecialEventType enumerates the kinds of special versions.
type SpecialEventType string

const (
	SpecialEventVIP     SpecialEventType = "vip"
	SpecialEventHoliday SpecialEventType = "holiday"
	SpecialEventEvent   SpecialEventType = "event"
	SpecialEventCustom  SpecialEventType = "custom"
)

// SpecialInfo configures a special version.
type SpecialInfo struct {
	EventType         SpecialEventType
	EventName         string
	IsVIP             bool
	MaxParticipants   int
	LuxuryLevel       int
	ExclusiveServices []string
	Requirements      string
}

// ScheduleStatus reports departure availability.
type ScheduleStatus string

const (
	ScheduleStatusAvailable ScheduleStatus = "available"
	ScheduleStatusFull      ScheduleStatus = "full"
	ScheduleStatusClosed    ScheduleStatus = "closed"
)

// DepartureSchedule is a bookable departure of a version.
type DepartureSchedule struct {
	DepartureDate  time.Time
	ReturnDate     time.Time
	AvailableSlots int
	BookedSlots    int
	Status         ScheduleStatus
}

// AdditionalService is an optional paid extra offered by a version.
type AdditionalService struct {
	Name        string
	Price       int64
	Description string
}

// TourVersion is a time-bounded pricing or feature override of a tour.
type TourVersion struct {
	ID                 string
	TourID             string
	Name               string
	Description        string
	VersionType        VersionType
	StartDate          time.Time
	EndDate            time.Time
	Pricing            VersionPricing
	SeasonalInfo       *SeasonalInfo
	PromotionInfo      *PromotionInfo
	SpecialInfo        *SpecialInfo
	Schedules          []DepartureSchedule
	CustomItinerary    []ItineraryDay
	AdditionalServices []AdditionalService
	IncludedServices   []string
	ExcludedServices   []string
	Status             VersionStatus
	DisplayPriority    int
	BookedCount        int
	Notes              string
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// VersionPricePreview is the non-persisted result of previewing a version price.
type VersionPricePreview struct {
	OriginalPrice   int64
	CalculatedPrice int64
	Discount        int64
}

// QuoteStatus is the lifecycle state of a quote.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusViewed   QuoteStatus = "viewed"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusExpired  QuoteStatus = "expired"
)

// DeliveryChannel records how a quote reached the customer.
type DeliveryChannel string

const (
	DeliveryChannelEmail  DeliveryChannel = "email"
	DeliveryChannelZalo   DeliveryChannel = "zalo"
	DeliveryChannelBoth   DeliveryChannel = "both"
	DeliveryChannelManual DeliveryChannel = "manual"
)

// Customer is the contact block of a quote.
type Customer struct {
	Name    string
	Company string
	Email   string
	Phone   string
	Address string
	Zalo    string
}

// GroupInfo describes the travelling party.
type GroupInfo struct {
	TotalParticipants int
	Adults            int
	Children          int
	Infants           int
	Seniors           int
	DepartureDate     *time.Time
	ReturnDate        *time.Time
	Notes             string
}

// ServiceType classifies a selected service.
type ServiceType string

const (
	ServiceTypeAdditional ServiceType = "additional"
	ServiceTypeUpgrade    ServiceType = "upgrade"
	ServiceTypeCustom     ServiceType = "custom"
)

// SelectedService is a priced add-on line of a quote.
type SelectedService struct {
	ServiceID   string
	Name        string
	Type        ServiceType
	Quantity    int
	UnitPrice   int64
	TotalPrice  int64
	Description string
}

// QuoteTerms are the commercial terms attached to a quote.
type QuoteTerms struct {
	ValidityDays       int
	PaymentTerms       string
	CancellationPolicy string
	Notes              string
}

// SentInfo tracks delivery and viewing of a quote.
type SentInfo struct {
	SentAt       *time.Time
	SentBy       string
	SentVia      DeliveryChannel
	EmailSent    bool
	ZaloSent     bool
	ViewCount    int
	LastViewedAt *time.Time
}

// Quote is a frozen, customer-specific price proposal.
type Quote struct {
	ID               string
	QuoteNumber      string
	TourID           string
	TourVersionID    string
	Customer         Customer
	GroupInfo        GroupInfo
	SelectedServices []SelectedService
	Pricing          QuotePricing
	Terms            QuoteTerms
	Status           QuoteStatus
	SentInfo         SentInfo
	InternalNotes    string
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
