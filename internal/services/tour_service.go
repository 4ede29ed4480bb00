package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/platform/textutil"
	"github.com/tourdesk/backoffice/internal/repositories"
)

const defaultTourMaxParticipants = 50

var categoryLabels = map[domain.TourCategory]string{
	domain.TourCategoryDomestic:      "Tour trong nước",
	domain.TourCategoryInternational: "Tour quốc tế",
	domain.TourCategoryCustom:        "Tour theo yêu cầu",
}

// CategoryLabel returns the display label of a tour category.
func CategoryLabel(category domain.TourCategory) (string, bool) {
	label, ok := categoryLabels[category]
	return label, ok
}

// TourServiceDeps wires the tour service.
type TourServiceDeps struct {
	Tours       repositories.TourRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type tourService struct {
	tours  repositories.TourRepository
	now    func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewTourService constructs a TourService.
func NewTourService(deps TourServiceDeps) (TourService, error) {
	if deps.Tours == nil {
		return nil, errors.New("tour service: tour repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &tourService{
		tours:  deps.Tours,
		now:    func() time.Time { return clock().UTC() },
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *tourService) CreateTour(ctx context.Context, cmd TourCommand) (domain.Tour, error) {
	tour, err := buildTour(cmd)
	if err != nil {
		return domain.Tour{}, err
	}
	now := s.now()
	tour.ID = s.newID()
	tour.CreatedBy = strings.TrimSpace(cmd.ActorID)
	tour.CreatedAt = now
	tour.UpdatedAt = now

	if err := s.tours.Insert(ctx, tour); err != nil {
		return domain.Tour{}, translateRepoError(err, "tour", tour.ID)
	}
	s.logger(ctx, "tour.created", map[string]any{"tourId": tour.ID, "category": string(tour.Category)})
	return tour, nil
}

func (s *tourService) GetTour(ctx context.Context, tourID string) (domain.Tour, error) {
	tourID = strings.TrimSpace(tourID)
	if tourID == "" {
		return domain.Tour{}, invalid("id", "is required")
	}
	tour, err := s.tours.FindByID(ctx, tourID)
	if err != nil {
		return domain.Tour{}, translateRepoError(err, "tour", tourID)
	}
	return tour, nil
}

func (s *tourService) ListTours(ctx context.Context, filter TourListFilter) (domain.Page[domain.Tour], error) {
	if filter.Category != "" {
		if _, ok := categoryLabels[filter.Category]; !ok {
			return domain.Page[domain.Tour]{}, invalid("category", "is not supported")
		}
	}
	if filter.Status != "" && !validTourStatus(filter.Status) {
		return domain.Page[domain.Tour]{}, invalid("status", "is not supported")
	}
	page, err := s.tours.List(ctx, repositories.TourFilter{
		Category:   filter.Category,
		Status:     filter.Status,
		Search:     strings.TrimSpace(filter.Search),
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.Page[domain.Tour]{}, translateRepoError(err, "tour", "")
	}
	return page, nil
}

func (s *tourService) ListToursByCategory(ctx context.Context, category domain.TourCategory, pager domain.Pagination) (domain.Page[domain.Tour], error) {
	if _, ok := categoryLabels[category]; !ok {
		return domain.Page[domain.Tour]{}, invalid("category", "is not supported")
	}
	return s.ListTours(ctx, TourListFilter{Category: category, Status: domain.TourStatusActive, Pagination: pager})
}

func (s *tourService) UpdateTour(ctx context.Context, tourID string, cmd TourCommand) (domain.Tour, error) {
	existing, err := s.GetTour(ctx, tourID)
	if err != nil {
		return domain.Tour{}, err
	}
	tour, err := buildTour(cmd)
	if err != nil {
		return domain.Tour{}, err
	}
	tour.ID = existing.ID
	tour.CreatedBy = existing.CreatedBy
	tour.CreatedAt = existing.CreatedAt
	tour.UpdatedAt = s.now()

	if err := s.tours.Update(ctx, tour); err != nil {
		return domain.Tour{}, translateRepoError(err, "tour", tour.ID)
	}
	s.logger(ctx, "tour.updated", map[string]any{"tourId": tour.ID})
	return tour, nil
}

func (s *tourService) DeleteTour(ctx context.Context, tourID string) error {
	tourID = strings.TrimSpace(tourID)
	if tourID == "" {
		return invalid("id", "is required")
	}
	if err := s.tours.Delete(ctx, tourID); err != nil {
		return translateRepoError(err, "tour", tourID)
	}
	s.logger(ctx, "tour.deleted", map[string]any{"tourId": tourID})
	return nil
}

func buildTour(cmd TourCommand) (domain.Tour, error) {
	tour := domain.Tour{
		Name:             textutil.Sanitize(cmd.Name),
		Description:      textutil.Sanitize(cmd.Description),
		Category:         domain.TourCategory(strings.ToLower(strings.TrimSpace(string(cmd.Category)))),
		Destination:      textutil.Sanitize(cmd.Destination),
		Price:            cmd.Price,
		Duration:         cmd.Duration,
		MaxParticipants:  cmd.MaxParticipants,
		Status:           cmd.Status,
		IncludedServices: textutil.SanitizeAll(cmd.IncludedServices),
		ExcludedServices: textutil.SanitizeAll(cmd.ExcludedServices),
		Policies: domain.TourPolicies{
			Booking:      textutil.Sanitize(cmd.Policies.Booking),
			Cancellation: textutil.Sanitize(cmd.Policies.Cancellation),
			Rescheduling: textutil.Sanitize(cmd.Policies.Rescheduling),
			Refund:       textutil.Sanitize(cmd.Policies.Refund),
		},
		Suppliers: domain.TourSuppliers{
			Restaurants: sanitizeSuppliers(cmd.Suppliers.Restaurants),
			Hotels:      sanitizeSuppliers(cmd.Suppliers.Hotels),
			Transport:   sanitizeSuppliers(cmd.Suppliers.Transport),
			Attractions: sanitizeSuppliers(cmd.Suppliers.Attractions),
		},
		Images: trimAll(cmd.Images),
	}

	switch {
	case tour.Name == "":
		return domain.Tour{}, invalid("name", "is required")
	case tour.Description == "":
		return domain.Tour{}, invalid("description", "is required")
	case tour.Destination == "":
		return domain.Tour{}, invalid("destination", "is required")
	case tour.Price < 0:
		return domain.Tour{}, invalid("price", "must not be negative")
	case tour.Duration < 1:
		return domain.Tour{}, invalid("duration", "must be at least 1 day")
	case tour.MaxParticipants < 0:
		return domain.Tour{}, invalid("maxParticipants", "must not be negative")
	}

	label, ok := categoryLabels[tour.Category]
	if !ok {
		return domain.Tour{}, invalid("category", "must be one of domestic, international, custom")
	}
	tour.CategoryLabel = label
	tour.IsCustom = tour.Category == domain.TourCategoryCustom

	if tour.Status == "" {
		tour.Status = domain.TourStatusDraft
	}
	if !validTourStatus(tour.Status) {
		return domain.Tour{}, invalid("status", "must be one of draft, active, inactive")
	}
	if tour.MaxParticipants == 0 {
		tour.MaxParticipants = defaultTourMaxParticipants
	}

	if cmd.Pricing != nil {
		p := *cmd.Pricing
		if p.Adult < 0 || p.Child < 0 || p.Infant < 0 || p.Senior < 0 {
			return domain.Tour{}, invalid("pricing", "entries must not be negative")
		}
		tour.Pricing = &p
	}

	itinerary, err := sanitizeItinerary("itinerary", cmd.Itinerary)
	if err != nil {
		return domain.Tour{}, err
	}
	tour.Itinerary = itinerary
	return tour, nil
}

func validTourStatus(status domain.TourStatus) bool {
	switch status {
	case domain.TourStatusDraft, domain.TourStatusActive, domain.TourStatusInactive:
		return true
	}
	return false
}

func sanitizeItinerary(field string, days []domain.ItineraryDay) ([]domain.ItineraryDay, error) {
	if len(days) == 0 {
		return nil, nil
	}
	out := make([]domain.ItineraryDay, 0, len(days))
	for i, day := range days {
		if day.Day < 1 {
			return nil, invalid(fmt.Sprintf("%s[%d].day", field, i), "must be at least 1")
		}
		title := textutil.Sanitize(day.Title)
		if title == "" {
			return nil, invalid(fmt.Sprintf("%s[%d].title", field, i), "is required")
		}
		out = append(out, domain.ItineraryDay{
			Day:           day.Day,
			Title:         title,
			Description:   textutil.Sanitize(day.Description),
			Attractions:   textutil.SanitizeAll(day.Attractions),
			Activities:    textutil.SanitizeAll(day.Activities),
			Meals:         textutil.SanitizeAll(day.Meals),
			Accommodation: textutil.Sanitize(day.Accommodation),
		})
	}
	return out, nil
}

func sanitizeSuppliers(suppliers []domain.Supplier) []domain.Supplier {
	if len(suppliers) == 0 {
		return nil
	}
	out := make([]domain.Supplier, 0, len(suppliers))
	for _, s := range suppliers {
		name := textutil.Sanitize(s.Name)
		if name == "" {
			continue
		}
		out = append(out, domain.Supplier{Name: name, Contact: textutil.Sanitize(s.Contact)})
	}
	return out
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
