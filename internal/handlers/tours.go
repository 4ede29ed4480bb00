package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/platform/requestctx"
	"github.com/tourdesk/backoffice/internal/services"
)

// TourHandlers exposes the tour catalogue.
type TourHandlers struct {
	tours services.TourService
}

// NewTourHandlers constructs tour handlers backed by the given service.
func NewTourHandlers(tours services.TourService) *TourHandlers {
	return &TourHandlers{tours: tours}
}

// Routes registers the /tours endpoints.
func (h *TourHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listTours)
	r.Post("/", h.createTour)
	r.Get("/category/{category}", h.listToursByCategory)
	r.Get("/{tourID}", h.getTour)
	r.Put("/{tourID}", h.updateTour)
	r.Delete("/{tourID}", h.deleteTour)
}

type tourRequest struct {
	Name             string                `json:"name"`
	Description      string                `json:"description"`
	Category         string                `json:"category"`
	Destination      string                `json:"destination"`
	Price            int64                 `json:"price"`
	Pricing          *priceTablePayload    `json:"pricing"`
	Duration         int                   `json:"duration"`
	MaxParticipants  int                   `json:"maxParticipants"`
	Status           string                `json:"status"`
	Itinerary        []itineraryDayPayload `json:"itinerary"`
	IncludedServices []string              `json:"includedServices"`
	ExcludedServices []string              `json:"excludedServices"`
	Policies         policiesPayload       `json:"policies"`
	Suppliers        suppliersPayload      `json:"suppliers"`
	Images           []string              `json:"images"`
}

func (req tourRequest) command(actor string) services.TourCommand {
	return services.TourCommand{
		Name:             req.Name,
		Description:      req.Description,
		Category:         domain.TourCategory(req.Category),
		Destination:      req.Destination,
		Price:            req.Price,
		Pricing:          req.Pricing.toDomain(),
		Duration:         req.Duration,
		MaxParticipants:  req.MaxParticipants,
		Status:           domain.TourStatus(req.Status),
		Itinerary:        itineraryToDomain(req.Itinerary),
		IncludedServices: req.IncludedServices,
		ExcludedServices: req.ExcludedServices,
		Policies: domain.TourPolicies{
			Booking:      req.Policies.Booking,
			Cancellation: req.Policies.Cancellation,
			Rescheduling: req.Policies.Rescheduling,
			Refund:       req.Policies.Refund,
		},
		Suppliers: req.Suppliers.toDomain(),
		Images:    req.Images,
		ActorID:   actor,
	}
}

type tourResponse struct {
	ID               string                `json:"id"`
	Name             string                `json:"name"`
	Description      string                `json:"description"`
	Category         string                `json:"category"`
	CategoryLabel    string                `json:"categoryLabel"`
	IsCustom         bool                  `json:"isCustom"`
	Destination      string                `json:"destination"`
	Price            int64                 `json:"price"`
	Pricing          *priceTablePayload    `json:"pricing,omitempty"`
	Duration         int                   `json:"duration"`
	MaxParticipants  int                   `json:"maxParticipants"`
	Status           string                `json:"status"`
	Itinerary        []itineraryDayPayload `json:"itinerary"`
	IncludedServices []string              `json:"includedServices"`
	ExcludedServices []string              `json:"excludedServices"`
	Policies         policiesPayload       `json:"policies"`
	Suppliers        suppliersPayload      `json:"suppliers"`
	Images           []string              `json:"images"`
	CreatedBy        string                `json:"createdBy,omitempty"`
	CreatedAt        string                `json:"createdAt,omitempty"`
	UpdatedAt        string                `json:"updatedAt,omitempty"`
}

func newTourResponse(t domain.Tour) tourResponse {
	return tourResponse{
		ID:               t.ID,
		Name:             t.Name,
		Description:      t.Description,
		Category:         string(t.Category),
		CategoryLabel:    t.CategoryLabel,
		IsCustom:         t.IsCustom,
		Destination:      t.Destination,
		Price:            t.Price,
		Pricing:          priceTableFromDomain(t.Pricing),
		Duration:         t.Duration,
		MaxParticipants:  t.MaxParticipants,
		Status:           string(t.Status),
		Itinerary:        itineraryFromDomain(t.Itinerary),
		IncludedServices: nonNilStrings(t.IncludedServices),
		ExcludedServices: nonNilStrings(t.ExcludedServices),
		Policies: policiesPayload{
			Booking:      t.Policies.Booking,
			Cancellation: t.Policies.Cancellation,
			Rescheduling: t.Policies.Rescheduling,
			Refund:       t.Policies.Refund,
		},
		Suppliers: suppliersPayloadFromDomain(t.Suppliers),
		Images:    nonNilStrings(t.Images),
		CreatedBy: t.CreatedBy,
		CreatedAt: formatTime(t.CreatedAt),
		UpdatedAt: formatTime(t.UpdatedAt),
	}
}

func (h *TourHandlers) listTours(w http.ResponseWriter, r *http.Request) {
	pager, ok := parsePagination(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	page, err := h.tours.ListTours(r.Context(), services.TourListFilter{
		Category:   domain.TourCategory(strings.TrimSpace(query.Get("category"))),
		Status:     domain.TourStatus(strings.TrimSpace(query.Get("status"))),
		Search:     strings.TrimSpace(query.Get("search")),
		Pagination: pager,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newPageResponse(page, newTourResponse))
}

func (h *TourHandlers) listToursByCategory(w http.ResponseWriter, r *http.Request) {
	pager, ok := parsePagination(w, r)
	if !ok {
		return
	}
	category := domain.TourCategory(strings.TrimSpace(chi.URLParam(r, "category")))
	page, err := h.tours.ListToursByCategory(r.Context(), category, pager)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newPageResponse(page, newTourResponse))
}

func (h *TourHandlers) getTour(w http.ResponseWriter, r *http.Request) {
	tour, err := h.tours.GetTour(r.Context(), chi.URLParam(r, "tourID"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newTourResponse(tour))
}

func (h *TourHandlers) createTour(w http.ResponseWriter, r *http.Request) {
	var req tourRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tour, err := h.tours.CreateTour(r.Context(), req.command(requestctx.Operator(r.Context())))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newTourResponse(tour))
}

func (h *TourHandlers) updateTour(w http.ResponseWriter, r *http.Request) {
	var req tourRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tour, err := h.tours.UpdateTour(r.Context(), chi.URLParam(r, "tourID"), req.command(requestctx.Operator(r.Context())))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newTourResponse(tour))
}

func (h *TourHandlers) deleteTour(w http.ResponseWriter, r *http.Request) {
	if err := h.tours.DeleteTour(r.Context(), chi.URLParam(r, "tourID")); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
