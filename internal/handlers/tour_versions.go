package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/platform/requestctx"
	"github.com/tourdesk/backoffice/internal/services"
)

// TourVersionHandlers exposes seasonal, promotional and special variants of tours.
type TourVersionHandlers struct {
	versions services.TourVersionService
}

// NewTourVersionHandlers constructs version handlers backed by the given service.
func NewTourVersionHandlers(versions services.TourVersionService) *TourVersionHandlers {
	return &TourVersionHandlers{versions: versions}
}

// Routes registers the /tour-versions endpoints.
func (h *TourVersionHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listVersions)
	r.Post("/", h.createVersion)
	r.Post("/calculate-price", h.previewPrice)
	r.Get("/tour/{tourID}", h.listVersionsByTour)
	r.Get("/{versionID}", h.getVersion)
	r.Put("/{versionID}", h.updateVersion)
	r.Delete("/{versionID}", h.deleteVersion)
}

type versionPricingPayload struct {
	Adult     int64 `json:"adult"`
	Child     int64 `json:"child"`
	Infant    int64 `json:"infant"`
	Senior    int64 `json:"senior"`
	BasePrice int64 `json:"basePrice"`
}

type seasonalInfoPayload struct {
	Season         string   `json:"season"`
	PeakMultiplier *float64 `json:"peakMultiplier,omitempty"`
	Description    string   `json:"description,omitempty"`
}

type promotionInfoPayload struct {
	DiscountPercentage float64  `json:"discountPercentage"`
	DiscountAmount     int64    `json:"discountAmount"`
	BonusServices      []string `json:"bonusServices,omitempty"`
	PromotionCode      string   `json:"promotionCode,omitempty"`
	MinBookingDays     int      `json:"minBookingDays,omitempty"`
	MaxParticipants    int      `json:"maxParticipants,omitempty"`
}

type specialInfoPayload struct {
	EventType         string   `json:"eventType"`
	EventName         string   `json:"eventName,omitempty"`
	IsVIP             bool     `json:"isVip"`
	MaxParticipants   int      `json:"maxParticipants"`
	LuxuryLevel       int      `json:"luxuryLevel"`
	ExclusiveServices []string `json:"exclusiveServices,omitempty"`
	Requirements      string   `json:"requirements,omitempty"`
}

type schedulePayload struct {
	DepartureDate  apiDate `json:"departureDate"`
	ReturnDate     apiDate `json:"returnDate"`
	AvailableSlots int     `json:"availableSlots"`
	BookedSlots    int     `json:"bookedSlots"`
	Status         string  `json:"status,omitempty"`
}

type scheduleResponse struct {
	DepartureDate  string `json:"departureDate"`
	ReturnDate     string `json:"returnDate"`
	AvailableSlots int    `json:"availableSlots"`
	BookedSlots    int    `json:"bookedSlots"`
	Status         string `json:"status"`
}

type additionalServicePayload struct {
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description,omitempty"`
}

func (p *seasonalInfoPayload) toDomain() *domain.SeasonalInfo {
	if p == nil {
		return nil
	}
	return &domain.SeasonalInfo{Season: domain.Season(p.Season), PeakMultiplier: p.PeakMultiplier, Description: p.Description}
}

func (p *promotionInfoPayload) toDomain() *domain.PromotionInfo {
	if p == nil {
		return nil
	}
	return &domain.PromotionInfo{
		DiscountPercentage: p.DiscountPercentage,
		DiscountAmount:     p.DiscountAmount,
		BonusServices:      p.BonusServices,
		PromotionCode:      p.PromotionCode,
		MinBookingDays:     p.MinBookingDays,
		MaxParticipants:    p.MaxParticipants,
	}
}

func (p *specialInfoPayload) toDomain() *domain.SpecialInfo {
	if p == nil {
		return nil
	}
	return &domain.SpecialInfo{
		EventType:         domain.SpecialEventType(p.EventType),
		EventName:         p.EventName,
		IsVIP:             p.IsVIP,
		MaxParticipants:   p.MaxParticipants,
		LuxuryLevel:       p.LuxuryLevel,
		ExclusiveServices: p.ExclusiveServices,
		Requirements:      p.Requirements,
	}
}

type tourVersionRequest struct {
	TourID             string                     `json:"tourId"`
	Name               string                     `json:"name"`
	Description        string                     `json:"description"`
	VersionType        string                     `json:"versionType"`
	StartDate          apiDate                    `json:"startDate"`
	EndDate            apiDate                    `json:"endDate"`
	Pricing            versionPricingPayload      `json:"pricing"`
	SeasonalInfo       *seasonalInfoPayload       `json:"seasonalInfo"`
	PromotionInfo      *promotionInfoPayload      `json:"promotionInfo"`
	SpecialInfo        *specialInfoPayload        `json:"specialInfo"`
	Schedules          []schedulePayload          `json:"schedules"`
	CustomItinerary    []itineraryDayPayload      `json:"customItinerary"`
	AdditionalServices []additionalServicePayload `json:"additionalServices"`
	IncludedServices   []string                   `json:"includedServices"`
	ExcludedServices   []string                   `json:"excludedServices"`
	Status             string                     `json:"status"`
	Notes              string                     `json:"notes"`
}

func (req *tourVersionRequest) command(actor string) services.TourVersionCommand {
	cmd := services.TourVersionCommand{
		TourID:      req.TourID,
		Name:        req.Name,
		Description: req.Description,
		VersionType: domain.VersionType(req.VersionType),
		StartDate:   req.StartDate.value(),
		EndDate:     req.EndDate.value(),
		Pricing: domain.VersionPricing{
			Adult:     req.Pricing.Adult,
			Child:     req.Pricing.Child,
			Infant:    req.Pricing.Infant,
			Senior:    req.Pricing.Senior,
			BasePrice: req.Pricing.BasePrice,
		},
		SeasonalInfo:     req.SeasonalInfo.toDomain(),
		PromotionInfo:    req.PromotionInfo.toDomain(),
		SpecialInfo:      req.SpecialInfo.toDomain(),
		CustomItinerary:  itineraryToDomain(req.CustomItinerary),
		IncludedServices: req.IncludedServices,
		ExcludedServices: req.ExcludedServices,
		Status:           domain.VersionStatus(req.Status),
		Notes:            req.Notes,
		ActorID:          actor,
	}
	for i := range req.Schedules {
		s := &req.Schedules[i]
		cmd.Schedules = append(cmd.Schedules, domain.DepartureSchedule{
			DepartureDate:  s.DepartureDate.value(),
			ReturnDate:     s.ReturnDate.value(),
			AvailableSlots: s.AvailableSlots,
			BookedSlots:    s.BookedSlots,
			Status:         domain.ScheduleStatus(s.Status),
		})
	}
	for _, svc := range req.AdditionalServices {
		cmd.AdditionalServices = append(cmd.AdditionalServices, domain.AdditionalService{
			Name:        svc.Name,
			Price:       svc.Price,
			Description: svc.Description,
		})
	}
	return cmd
}

type tourVersionResponse struct {
	ID                 string                     `json:"id"`
	TourID             string                     `json:"tourId"`
	Name               string                     `json:"name"`
	Description        string                     `json:"description"`
	VersionType        string                     `json:"versionType"`
	StartDate          string                     `json:"startDate"`
	EndDate            string                     `json:"endDate"`
	Pricing            versionPricingPayload      `json:"pricing"`
	SeasonalInfo       *seasonalInfoPayload       `json:"seasonalInfo,omitempty"`
	PromotionInfo      *promotionInfoPayload      `json:"promotionInfo,omitempty"`
	SpecialInfo        *specialInfoPayload        `json:"specialInfo,omitempty"`
	Schedules          []scheduleResponse         `json:"schedules"`
	CustomItinerary    []itineraryDayPayload      `json:"customItinerary"`
	AdditionalServices []additionalServicePayload `json:"additionalServices"`
	IncludedServices   []string                   `json:"includedServices"`
	ExcludedServices   []string                   `json:"excludedServices"`
	Status             string                     `json:"status"`
	DisplayPriority    int                        `json:"displayPriority"`
	BookedCount        int                        `json:"bookedCount"`
	Notes              string                     `json:"notes,omitempty"`
	CreatedBy          string                     `json:"createdBy,omitempty"`
	CreatedAt          string                     `json:"createdAt,omitempty"`
	UpdatedAt          string                     `json:"updatedAt,omitempty"`
}

func newTourVersionResponse(v domain.TourVersion) tourVersionResponse {
	resp := tourVersionResponse{
		ID:          v.ID,
		TourID:      v.TourID,
		Name:        v.Name,
		Description: v.Description,
		VersionType: string(v.VersionType),
		StartDate:   formatTime(v.StartDate),
		EndDate:     formatTime(v.EndDate),
		Pricing: versionPricingPayload{
			Adult:     v.Pricing.Adult,
			Child:     v.Pricing.Child,
			Infant:    v.Pricing.Infant,
			Senior:    v.Pricing.Senior,
			BasePrice: v.Pricing.BasePrice,
		},
		Schedules:          make([]scheduleResponse, 0, len(v.Schedules)),
		CustomItinerary:    itineraryFromDomain(v.CustomItinerary),
		AdditionalServices: make([]additionalServicePayload, 0, len(v.AdditionalServices)),
		IncludedServices:   nonNilStrings(v.IncludedServices),
		ExcludedServices:   nonNilStrings(v.ExcludedServices),
		Status:             string(v.Status),
		DisplayPriority:    v.DisplayPriority,
		BookedCount:        v.BookedCount,
		Notes:              v.Notes,
		CreatedBy:          v.CreatedBy,
		CreatedAt:          formatTime(v.CreatedAt),
		UpdatedAt:          formatTime(v.UpdatedAt),
	}
	if s := v.SeasonalInfo; s != nil {
		resp.SeasonalInfo = &seasonalInfoPayload{Season: string(s.Season), PeakMultiplier: s.PeakMultiplier, Description: s.Description}
	}
	if p := v.PromotionInfo; p != nil {
		resp.PromotionInfo = &promotionInfoPayload{
			DiscountPercentage: p.DiscountPercentage,
			DiscountAmount:     p.DiscountAmount,
			BonusServices:      p.BonusServices,
			PromotionCode:      p.PromotionCode,
			MinBookingDays:     p.MinBookingDays,
			MaxParticipants:    p.MaxParticipants,
		}
	}
	if s := v.SpecialInfo; s != nil {
		resp.SpecialInfo = &specialInfoPayload{
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
		resp.Schedules = append(resp.Schedules, scheduleResponse{
			DepartureDate:  formatTime(s.DepartureDate),
			ReturnDate:     formatTime(s.ReturnDate),
			AvailableSlots: s.AvailableSlots,
			BookedSlots:    s.BookedSlots,
			Status:         string(s.Status),
		})
	}
	for _, svc := range v.AdditionalServices {
		resp.AdditionalServices = append(resp.AdditionalServices, additionalServicePayload{
			Name:        svc.Name,
			Price:       svc.Price,
			Description: svc.Description,
		})
	}
	return resp
}

type pricePreviewRequest struct {
	TourID        string                `json:"tourId"`
	VersionType   string                `json:"versionType"`
	SeasonalInfo  *seasonalInfoPayload  `json:"seasonalInfo"`
	PromotionInfo *promotionInfoPayload `json:"promotionInfo"`
}

type pricePreviewResponse struct {
	OriginalPrice   int64 `json:"originalPrice"`
	CalculatedPrice int64 `json:"calculatedPrice"`
	Discount        int64 `json:"discount"`
}

func (h *TourVersionHandlers) listVersions(w http.ResponseWriter, r *http.Request) {
	pager, ok := parsePagination(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	page, err := h.versions.ListVersions(r.Context(), services.TourVersionListFilter{
		TourID:      strings.TrimSpace(query.Get("tourId")),
		VersionType: domain.VersionType(strings.TrimSpace(query.Get("versionType"))),
		Status:      domain.VersionStatus(strings.TrimSpace(query.Get("status"))),
		Pagination:  pager,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newPageResponse(page, newTourVersionResponse))
}

func (h *TourVersionHandlers) listVersionsByTour(w http.ResponseWriter, r *http.Request) {
	versions, err := h.versions.ListVersionsByTour(r.Context(), chi.URLParam(r, "tourID"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newPageResponse(domain.Page[domain.TourVersion]{Items: versions}, newTourVersionResponse))
}

func (h *TourVersionHandlers) getVersion(w http.ResponseWriter, r *http.Request) {
	version, err := h.versions.GetVersion(r.Context(), chi.URLParam(r, "versionID"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newTourVersionResponse(version))
}

func (h *TourVersionHandlers) createVersion(w http.ResponseWriter, r *http.Request) {
	var req tourVersionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	version, err := h.versions.CreateVersion(r.Context(), req.command(requestctx.Operator(r.Context())))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newTourVersionResponse(version))
}

func (h *TourVersionHandlers) updateVersion(w http.ResponseWriter, r *http.Request) {
	var req tourVersionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	version, err := h.versions.UpdateVersion(r.Context(), chi.URLParam(r, "versionID"), req.command(requestctx.Operator(r.Context())))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newTourVersionResponse(version))
}

func (h *TourVersionHandlers) deleteVersion(w http.ResponseWriter, r *http.Request) {
	if err := h.versions.DeleteVersion(r.Context(), chi.URLParam(r, "versionID")); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TourVersionHandlers) previewPrice(w http.ResponseWriter, r *http.Request) {
	var req pricePreviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	preview, err := h.versions.CalculateVersionPricePreview(r.Context(), services.VersionPricePreviewCommand{
		TourID:        req.TourID,
		VersionType:   domain.VersionType(req.VersionType),
		SeasonalInfo:  req.SeasonalInfo.toDomain(),
		PromotionInfo: req.PromotionInfo.toDomain(),
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, pricePreviewResponse{
		OriginalPrice:   preview.OriginalPrice,
		CalculatedPrice: preview.CalculatedPrice,
		Discount:        preview.Discount,
	})
}
