package services

import (
	"context"
	"time"

	"github.com/tourdesk/backoffice/internal/domain"
)

// TourService manages the tour catalogue.
type TourService interface {
	CreateTour(ctx context.Context, cmd TourCommand) (domain.Tour, error)
	GetTour(ctx context.Context, tourID string) (domain.Tour, error)
	ListTours(ctx context.Context, filter TourListFilter) (domain.Page[domain.Tour], error)
	// ListToursByCategory returns only active tours of category.
	ListToursByCategory(ctx context.Context, category domain.TourCategory, pager domain.Pagination) (domain.Page[domain.Tour], error)
	UpdateTour(ctx context.Context, tourID string, cmd TourCommand) (domain.Tour, error)
	DeleteTour(ctx context.Context, tourID string) error
}

// TourVersionService manages time-bounded variants of tours.
type TourVersionService interface {
	CreateVersion(ctx context.Context, cmd TourVersionCommand) (domain.TourVersion, error)
	UpdateVersion(ctx context.Context, versionID string, cmd TourVersionCommand) (domain.TourVersion, error)
	GetVersion(ctx context.Context, versionID string) (domain.TourVersion, error)
	ListVersions(ctx context.Context, filter TourVersionListFilter) (domain.Page[domain.TourVersion], error)
	// ListVersionsByTour returns the active and draft versions of a tour, highest priority first and
	// then by start date.
	ListVersionsByTour(ctx context.Context, tourID string) ([]domain.TourVersion, error)
	DeleteVersion(ctx context.Context, versionID string) error
	CalculateVersionPricePreview(ctx context.Context, cmd VersionPricePreviewCommand) (domain.VersionPricePreview, error)
}

// QuoteService prices, stores and delivers customer quotes.
type QuoteService interface {
	QuickCalculate(ctx context.Context, cmd QuickCalculateCommand) (domain.QuotePricing, error)
	CreateQuote(ctx context.Context, cmd CreateQuoteCommand) (domain.Quote, error)
	// GetQuote returns the quote and records the view.
	GetQuote(ctx context.Context, quoteID string) (domain.Quote, error)
	ListQuotes(ctx context.Context, filter QuoteListFilter) (domain.Page[domain.Quote], error)
	UpdateQuote(ctx context.Context, quoteID string, cmd UpdateQuoteCommand) (domain.Quote, error)
	DeleteQuote(ctx context.Context, quoteID string) error
	SendQuote(ctx context.Context, cmd SendQuoteCommand) (domain.Quote, error)
}

// SystemService exposes health information for liveness and readiness probes.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.SystemHealthReport, error)
}

// TourCommand carries the editable fields of a tour. Update replaces every field.
type TourCommand struct {
	Name             string
	Description      string
	Category         domain.TourCategory
	Destination      string
	Price            int64
	Pricing          *domain.PriceTable
	Duration         int
	MaxParticipants  int
	Status           domain.TourStatus
	Itinerary        []domain.ItineraryDay
	IncludedServices []string
	ExcludedServices []string
	Policies         domain.TourPolicies
	Suppliers        domain.TourSuppliers
	Images           []string
	ActorID          string
}

// TourListFilter narrows ListTours.
type TourListFilter struct {
	Category   domain.TourCategory
	Status     domain.TourStatus
	Search     string
	Pagination domain.Pagination
}

// TourVersionCommand carries the editable fields of a tour version.
type TourVersionCommand struct {
	TourID             string
	Name               string
	Description        string
	VersionType        domain.VersionType
	StartDate          time.Time
	EndDate            time.Time
	Pricing            domain.VersionPricing
	SeasonalInfo       *domain.SeasonalInfo
	PromotionInfo      *domain.PromotionInfo
	SpecialInfo        *domain.SpecialInfo
	Schedules          []domain.DepartureSchedule
	CustomItinerary    []domain.ItineraryDay
	AdditionalServices []domain.AdditionalService
	IncludedServices   []string
	ExcludedServices   []string
	Status             domain.VersionStatus
	Notes              string
	ActorID            string
}

// TourVersionListFilter narrows ListVersions. Status matches the stored status.
type TourVersionListFilter struct {
	TourID      string
	VersionType domain.VersionType
	Status      domain.VersionStatus
	Pagination  domain.Pagination
}

// VersionPricePreviewCommand asks what a version of the given type would cost.
type VersionPricePreviewCommand struct {
	TourID        string
	VersionType   domain.VersionType
	SeasonalInfo  *domain.SeasonalInfo
	PromotionInfo *domain.PromotionInfo
}

// QuickCalculateCommand prices a group without persisting a quote.
type QuickCalculateCommand struct {
	TourID           string
	TourVersionID    string
	GroupInfo        domain.GroupInfo
	SelectedServices []domain.SelectedService
	Discount         domain.DiscountSpec
	VATPercentage    *float64
}

// CreateQuoteCommand creates and prices a draft quote.
type CreateQuoteCommand struct {
	TourID           string
	TourVersionID    string
	Customer         domain.Customer
	GroupInfo        domain.GroupInfo
	SelectedServices []domain.SelectedService
	Discount         domain.DiscountSpec
	VATPercentage    *float64
	Terms            *domain.QuoteTerms
	InternalNotes    string
	ActorID          string
}

// UpdateQuoteCommand patches a quote. Nil fields are left untouched. GroupInfo, SelectedServices,
// Discount and VATPercentage may only change while the quote is a draft.
type UpdateQuoteCommand struct {
	Customer         *domain.Customer
	Terms            *domain.QuoteTerms
	Status           *domain.QuoteStatus
	InternalNotes    *string
	GroupInfo        *domain.GroupInfo
	SelectedServices *[]domain.SelectedService
	Discount         *domain.DiscountSpec
	VATPercentage    *float64
	ActorID          string
}

// QuoteListFilter narrows ListQuotes.
type QuoteListFilter struct {
	TourID     string
	Status     domain.QuoteStatus
	Search     string
	Pagination domain.Pagination
}

// SendQuoteCommand delivers a quote over one channel.
type SendQuoteCommand struct {
	QuoteID string
	Channel domain.DeliveryChannel
	ActorID string
}
