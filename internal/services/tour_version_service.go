package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/platform/textutil"
	"github.com/tourdesk/backoffice/internal/repositories"
)

const (
	defaultSpecialMaxParticipants = 10
	defaultSpecialLuxuryLevel     = 5
)

// TourVersionServiceDeps wires the tour version service.
type TourVersionServiceDeps struct {
	Tours       repositories.TourRepository
	Versions    repositories.TourVersionRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type tourVersionService struct {
	tours     repositories.TourRepository
	versions  repositories.TourVersionRepository
	lifecycle *VersionLifecycle
	now       func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewTourVersionService constructs a TourVersionService.
func NewTourVersionService(deps TourVersionServiceDeps) (TourVersionService, error) {
	if deps.Tours == nil {
		return nil, errors.New("tour version service: tour repository is required")
	}
	lifecycle, err := NewVersionLifecycle(deps.Versions)
	if err != nil {
		return nil, fmt.Errorf("tour version service: %w", err)
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
	return &tourVersionService{
		tours:     deps.Tours,
		versions:  deps.Versions,
		lifecycle: lifecycle,
		now:       func() time.Time { return clock().UTC() },
		newID:     idGen,
		logger:    logger,
	}, nil
}

func (s *tourVersionService) CreateVersion(ctx context.Context, cmd TourVersionCommand) (domain.TourVersion, error) {
	tourID := strings.TrimSpace(cmd.TourID)
	if tourID == "" {
		return domain.TourVersion{}, invalid("tourId", "is required")
	}
	version, err := buildVersion(cmd)
	if err != nil {
		return domain.TourVersion{}, err
	}
	tour, err := s.tours.FindByID(ctx, tourID)
	if err != nil {
		return domain.TourVersion{}, translateRepoError(err, "tour", tourID)
	}

	now := s.now()
	version.ID = s.newID()
	version.TourID = tour.ID
	version.CreatedBy = strings.TrimSpace(cmd.ActorID)
	version.CreatedAt = now
	version.UpdatedAt = now

	applyDerivedPricing(tour, &version)
	ApplyLifecycle(&version, now)

	if err := s.lifecycle.ValidateOverlap(ctx, version); err != nil {
		return domain.TourVersion{}, err
	}
	if err := s.versions.Insert(ctx, version); err != nil {
		return domain.TourVersion{}, translateRepoError(err, "tour version", version.ID)
	}
	s.logger(ctx, "tour_version.created", map[string]any{
		"versionId":   version.ID,
		"tourId":      version.TourID,
		"versionType": string(version.VersionType),
		"status":      string(version.Status),
		"adultPrice":  version.Pricing.Adult,
	})
	return version, nil
}

func (s *tourVersionService) UpdateVersion(ctx context.Context, versionID string, cmd TourVersionCommand) (domain.TourVersion, error) {
	versionID = strings.TrimSpace(versionID)
	if versionID == "" {
		return domain.TourVersion{}, invalid("id", "is required")
	}
	existing, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return domain.TourVersion{}, translateRepoError(err, "tour version", versionID)
	}
	if tourID := strings.TrimSpace(cmd.TourID); tourID != "" && tourID != existing.TourID {
		return domain.TourVersion{}, invalid("tourId", "cannot be changed")
	}

	version, err := buildVersion(cmd)
	if err != nil {
		return domain.TourVersion{}, err
	}
	version.ID = existing.ID
	version.TourID = existing.TourID
	version.BookedCount = existing.BookedCount
	version.CreatedBy = existing.CreatedBy
	version.CreatedAt = existing.CreatedAt
	version.UpdatedAt = s.now()
	ApplyLifecycle(&version, version.UpdatedAt)

	windowChanged := !version.StartDate.Equal(existing.StartDate) ||
		!version.EndDate.Equal(existing.EndDate) ||
		version.VersionType != existing.VersionType
	// Siblings may have claimed the window while this version was inactive or expired.
	reactivated := !occupiesWindow(existing.Status) && occupiesWindow(version.Status)
	if windowChanged || reactivated {
		if err := s.lifecycle.ValidateOverlap(ctx, version); err != nil {
			return domain.TourVersion{}, err
		}
	}

	if err := s.versions.Update(ctx, version); err != nil {
		return domain.TourVersion{}, translateRepoError(err, "tour version", version.ID)
	}
	s.logger(ctx, "tour_version.updated", map[string]any{"versionId": version.ID, "status": string(version.Status)})
	return version, nil
}

func (s *tourVersionService) GetVersion(ctx context.Context, versionID string) (domain.TourVersion, error) {
	versionID = strings.TrimSpace(versionID)
	if versionID == "" {
		return domain.TourVersion{}, invalid("id", "is required")
	}
	version, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return domain.TourVersion{}, translateRepoError(err, "tour version", versionID)
	}
	version.Status = EffectiveStatus(version, s.now())
	return version, nil
}

func (s *tourVersionService) ListVersions(ctx context.Context, filter TourVersionListFilter) (domain.Page[domain.TourVersion], error) {
	if filter.VersionType != "" && !validVersionType(filter.VersionType) {
		return domain.Page[domain.TourVersion]{}, invalid("versionType", "is not supported")
	}
	if filter.Status != "" && !validVersionStatus(filter.Status) {
		return domain.Page[domain.TourVersion]{}, invalid("status", "is not supported")
	}
	page, err := s.versions.List(ctx, repositories.TourVersionFilter{
		TourID:      strings.TrimSpace(filter.TourID),
		VersionType: filter.VersionType,
		Status:      filter.Status,
		Pagination:  filter.Pagination,
	})
	if err != nil {
		return domain.Page[domain.TourVersion]{}, translateRepoError(err, "tour version", "")
	}
	now := s.now()
	for i := range page.Items {
		page.Items[i].Status = EffectiveStatus(page.Items[i], now)
	}
	return page, nil
}

func (s *tourVersionService) ListVersionsByTour(ctx context.Context, tourID string) ([]domain.TourVersion, error) {
	tourID = strings.TrimSpace(tourID)
	if tourID == "" {
		return nil, invalid("tourId", "is required")
	}
	versions, err := s.versions.ListSiblings(ctx, tourID, []domain.VersionStatus{domain.VersionStatusActive, domain.VersionStatusDraft})
	if err != nil {
		return nil, translateRepoError(err, "tour", tourID)
	}
	now := s.now()
	for i := range versions {
		versions[i].Status = EffectiveStatus(versions[i], now)
	}
	sort.SliceStable(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if a.DisplayPriority != b.DisplayPriority {
			return a.DisplayPriority > b.DisplayPriority
		}
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.ID < b.ID
	})
	return versions, nil
}

func (s *tourVersionService) DeleteVersion(ctx context.Context, versionID string) error {
	versionID = strings.TrimSpace(versionID)
	if versionID == "" {
		return invalid("id", "is required")
	}
	if err := s.versions.Delete(ctx, versionID); err != nil {
		return translateRepoError(err, "tour version", versionID)
	}
	s.logger(ctx, "tour_version.deleted", map[string]any{"versionId": versionID})
	return nil
}

func (s *tourVersionService) CalculateVersionPricePreview(ctx context.Context, cmd VersionPricePreviewCommand) (domain.VersionPricePreview, error) {
	tourID := strings.TrimSpace(cmd.TourID)
	if tourID == "" {
		return domain.VersionPricePreview{}, invalid("tourId", "is required")
	}
	if !validVersionType(cmd.VersionType) {
		return domain.VersionPricePreview{}, invalid("versionType", "must be one of seasonal, promotion, special")
	}
	tour, err := s.tours.FindByID(ctx, tourID)
	if err != nil {
		return domain.VersionPricePreview{}, translateRepoError(err, "tour", tourID)
	}
	return CalculateVersionPrice(tour.Price, cmd.VersionType, cmd.SeasonalInfo, cmd.PromotionInfo), nil
}

func buildVersion(cmd TourVersionCommand) (domain.TourVersion, error) {
	version := domain.TourVersion{
		Name:             textutil.Sanitize(cmd.Name),
		Description:      textutil.Sanitize(cmd.Description),
		VersionType:      domain.VersionType(strings.ToLower(strings.TrimSpace(string(cmd.VersionType)))),
		StartDate:        cmd.StartDate.UTC(),
		EndDate:          cmd.EndDate.UTC(),
		Pricing:          cmd.Pricing,
		IncludedServices: textutil.SanitizeAll(cmd.IncludedServices),
		ExcludedServices: textutil.SanitizeAll(cmd.ExcludedServices),
		Status:           cmd.Status,
		Notes:            textutil.Sanitize(cmd.Notes),
	}

	switch {
	case version.Name == "":
		return domain.TourVersion{}, invalid("name", "is required")
	case !validVersionType(version.VersionType):
		return domain.TourVersion{}, invalid("versionType", "must be one of seasonal, promotion, special")
	case cmd.StartDate.IsZero():
		return domain.TourVersion{}, invalid("startDate", "is required")
	case cmd.EndDate.IsZero():
		return domain.TourVersion{}, invalid("endDate", "is required")
	case !version.EndDate.After(version.StartDate):
		return domain.TourVersion{}, invalid("endDate", "must be after startDate")
	}

	p := version.Pricing
	if p.Adult < 0 || p.Child < 0 || p.Infant < 0 || p.Senior < 0 || p.BasePrice < 0 {
		return domain.TourVersion{}, invalid("pricing", "entries must not be negative")
	}

	if version.Status == "" {
		version.Status = domain.VersionStatusDraft
	}
	if !validVersionStatus(version.Status) {
		return domain.TourVersion{}, invalid("status", "must be one of draft, active, inactive, expired")
	}

	if info := cmd.SeasonalInfo; info != nil {
		seasonal := *info
		switch seasonal.Season {
		case "", domain.SeasonPeak, domain.SeasonOffPeak, domain.SeasonShoulder:
		default:
			return domain.TourVersion{}, invalid("seasonalInfo.season", "must be one of peak, off-peak, shoulder")
		}
		if seasonal.PeakMultiplier != nil && *seasonal.PeakMultiplier <= 0 {
			return domain.TourVersion{}, invalid("seasonalInfo.peakMultiplier", "must be positive")
		}
		seasonal.Description = textutil.Sanitize(seasonal.Description)
		version.SeasonalInfo = &seasonal
	}

	if info := cmd.PromotionInfo; info != nil {
		promo := *info
		if promo.DiscountPercentage < 0 || promo.DiscountPercentage > 100 {
			return domain.TourVersion{}, invalid("promotionInfo.discountPercentage", "must be between 0 and 100")
		}
		if promo.DiscountAmount < 0 {
			return domain.TourVersion{}, invalid("promotionInfo.discountAmount", "must not be negative")
		}
		if promo.MinBookingDays < 0 || promo.MaxParticipants < 0 {
			return domain.TourVersion{}, invalid("promotionInfo", "limits must not be negative")
		}
		promo.PromotionCode = strings.ToUpper(strings.TrimSpace(promo.PromotionCode))
		promo.BonusServices = textutil.SanitizeAll(promo.BonusServices)
		version.PromotionInfo = &promo
	}

	if info := cmd.SpecialInfo; info != nil {
		special := *info
		switch special.EventType {
		case "", domain.SpecialEventVIP, domain.SpecialEventHoliday, domain.SpecialEventEvent, domain.SpecialEventCustom:
		default:
			return domain.TourVersion{}, invalid("specialInfo.eventType", "must be one of vip, holiday, event, custom")
		}
		if special.MaxParticipants == 0 {
			special.MaxParticipants = defaultSpecialMaxParticipants
		}
		if special.MaxParticipants < 1 {
			return domain.TourVersion{}, invalid("specialInfo.maxParticipants", "must be at least 1")
		}
		if special.LuxuryLevel == 0 {
			special.LuxuryLevel = defaultSpecialLuxuryLevel
		}
		if special.LuxuryLevel < 1 || special.LuxuryLevel > 5 {
			return domain.TourVersion{}, invalid("specialInfo.luxuryLevel", "must be between 1 and 5")
		}
		special.EventName = textutil.Sanitize(special.EventName)
		special.Requirements = textutil.Sanitize(special.Requirements)
		special.ExclusiveServices = textutil.SanitizeAll(special.ExclusiveServices)
		version.SpecialInfo = &special
	}

	for i, schedule := range cmd.Schedules {
		field := fmt.Sprintf("schedules[%d]", i)
		if schedule.DepartureDate.IsZero() {
			return domain.TourVersion{}, invalid(field+".departureDate", "is required")
		}
		if schedule.AvailableSlots < 0 || schedule.BookedSlots < 0 {
			return domain.TourVersion{}, invalid(field, "slots must not be negative")
		}
		switch schedule.Status {
		case "":
			schedule.Status = domain.ScheduleStatusAvailable
		case domain.ScheduleStatusAvailable, domain.ScheduleStatusFull, domain.ScheduleStatusClosed:
		default:
			return domain.TourVersion{}, invalid(field+".status", "must be one of available, full, closed")
		}
		schedule.DepartureDate = schedule.DepartureDate.UTC()
		schedule.ReturnDate = schedule.ReturnDate.UTC()
		version.Schedules = append(version.Schedules, schedule)
	}

	for i, svc := range cmd.AdditionalServices {
		name := textutil.Sanitize(svc.Name)
		if name == "" {
			return domain.TourVersion{}, invalid(fmt.Sprintf("additionalServices[%d].name", i), "is required")
		}
		if svc.Price < 0 {
			return domain.TourVersion{}, invalid(fmt.Sprintf("additionalServices[%d].price", i), "must not be negative")
		}
		version.AdditionalServices = append(version.AdditionalServices, domain.AdditionalService{
			Name:        name,
			Price:       svc.Price,
			Description: textutil.Sanitize(svc.Description),
		})
	}

	itinerary, err := sanitizeItinerary("customItinerary", cmd.CustomItinerary)
	if err != nil {
		return domain.TourVersion{}, err
	}
	version.CustomItinerary = itinerary
	return version, nil
}

func validVersionType(t domain.VersionType) bool {
	switch t {
	case domain.VersionTypeSeasonal, domain.VersionTypePromotion, domain.VersionTypeSpecial:
		return true
	}
	return false
}

func occupiesWindow(status domain.VersionStatus) bool {
	return status == domain.VersionStatusActive || status == domain.VersionStatusDraft
}

func validVersionStatus(status domain.VersionStatus) bool {
	switch status {
	case domain.VersionStatusDraft, domain.VersionStatusActive, domain.VersionStatusInactive, domain.VersionStatusExpired:
		return true
	}
	return false
}
