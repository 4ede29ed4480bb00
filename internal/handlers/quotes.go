package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/platform/requestctx"
	"github.com/tourdesk/backoffice/internal/services"
)

// QuoteHandlers exposes quote pricing, persistence and delivery.
type QuoteHandlers struct {
	quotes            services.QuoteService
	calculateLimiter  rateLimiter
	createMiddlewares []func(http.Handler) http.Handler
}

// QuoteHandlersOption customises QuoteHandlers.
type QuoteHandlersOption func(*QuoteHandlers)

// WithQuoteCalculateRateLimit throttles POST /quotes/calculate per caller.
func WithQuoteCalculateRateLimit(perMinute, burst int, clock func() time.Time) QuoteHandlersOption {
	return func(h *QuoteHandlers) {
		h.calculateLimiter = newKeyedRateLimiter(perMinute, burst, clock)
	}
}

// WithQuoteCreateMiddlewares wraps POST /quotes, typically with the idempotency middleware.
func WithQuoteCreateMiddlewares(mw ...func(http.Handler) http.Handler) QuoteHandlersOption {
	return func(h *QuoteHandlers) {
		h.createMiddlewares = append(h.createMiddlewares, mw...)
	}
}

// NewQuoteHandlers constructs quote handlers backed by the given service.
func NewQuoteHandlers(quotes services.QuoteService, opts ...QuoteHandlersOption) *QuoteHandlers {
	h := &QuoteHandlers{quotes: quotes}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /quotes endpoints.
func (h *QuoteHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listQuotes)
	r.With(h.createMiddlewares...).Post("/", h.createQuote)
	r.With(rateLimitMiddleware(h.calculateLimiter)).Post("/calculate", h.quickCalculate)
	r.Get("/{quoteID}", h.getQuote)
	r.Put("/{quoteID}", h.updateQuote)
	r.Delete("/{quoteID}", h.deleteQuote)
	r.Post("/{quoteID}/send-email", h.sendQuote(domain.DeliveryChannelEmail))
	r.Post("/{quoteID}/send-zalo", h.sendQuote(domain.DeliveryChannelZalo))
}

type customerPayload struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
	Zalo    string `json:"zalo,omitempty"`
}

func (p customerPayload) toDomain() domain.Customer {
	return domain.Customer{Name: p.Name, Company: p.Company, Email: p.Email, Phone: p.Phone, Address: p.Address, Zalo: p.Zalo}
}

type groupInfoPayload struct {
	TotalParticipants int      `json:"totalParticipants"`
	Adults            int      `json:"adults"`
	Children          int      `json:"children"`
	Infants           int      `json:"infants"`
	Seniors           int      `json:"seniors"`
	DepartureDate     *apiDate `json:"departureDate,omitempty"`
	ReturnDate        *apiDate `json:"returnDate,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

func (p groupInfoPayload) toDomain() domain.GroupInfo {
	return domain.GroupInfo{
		TotalParticipants: p.TotalParticipants,
		Adults:            p.Adults,
		Children:          p.Children,
		Infants:           p.Infants,
		Seniors:           p.Seniors,
		DepartureDate:     p.DepartureDate.pointer(),
		ReturnDate:        p.ReturnDate.pointer(),
		Notes:             p.Notes,
	}
}

type groupInfoResponse struct {
	TotalParticipants int     `json:"totalParticipants"`
	Adults            int     `json:"adults"`
	Children          int     `json:"children"`
	Infants           int     `json:"infants"`
	Seniors           int     `json:"seniors"`
	DepartureDate     *string `json:"departureDate,omitempty"`
	ReturnDate        *string `json:"returnDate,omitempty"`
	Notes             string  `json:"notes,omitempty"`
}

type selectedServicePayload struct {
	ServiceID   string `json:"serviceId,omitempty"`
	ServiceName string `json:"serviceName"`
	ServiceType string `json:"serviceType,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	TotalPrice  int64  `json:"totalPrice"`
	Description string `json:"description,omitempty"`
}

func selectedServicesToDomain(list []selectedServicePayload) []domain.SelectedService {
	if len(list) == 0 {
		return nil
	}
	out := make([]domain.SelectedService, 0, len(list))
	for _, s := range list {
		out = append(out, domain.SelectedService{
			ServiceID:   s.ServiceID,
			Name:        s.ServiceName,
			Type:        domain.ServiceType(s.ServiceType),
			Quantity:    s.Quantity,
			UnitPrice:   s.UnitPrice,
			Description: s.Description,
		})
	}
	return out
}

type discountPayload struct {
	Percentage float64 `json:"percentage"`
	Amount     int64   `json:"amount"`
	Reason     string  `json:"reason,omitempty"`
}

func (p *discountPayload) toDomain() domain.DiscountSpec {
	if p == nil {
		return domain.DiscountSpec{}
	}
	return domain.DiscountSpec{Percentage: p.Percentage, Amount: p.Amount, Reason: p.Reason}
}

type termsPayload struct {
	ValidityDays       int    `json:"validityDays"`
	PaymentTerms       string `json:"paymentTerms,omitempty"`
	CancellationPolicy string `json:"cancellationPolicy,omitempty"`
	Notes              string `json:"notes,omitempty"`
}

func (p *termsPayload) toDomain() *domain.QuoteTerms {
	if p == nil {
		return nil
	}
	return &domain.QuoteTerms{
		ValidityDays:       p.ValidityDays,
		PaymentTerms:       p.PaymentTerms,
		CancellationPolicy: p.CancellationPolicy,
		Notes:              p.Notes,
	}
}

type quickCalculateRequest struct {
	TourID           string                   `json:"tourId"`
	TourVersionID    string                   `json:"tourVersionId"`
	GroupInfo        groupInfoPayload         `json:"groupInfo"`
	SelectedServices []selectedServicePayload `json:"selectedServices"`
	Discount         *discountPayload         `json:"discount"`
	VATPercentage    *float64                 `json:"vatPercentage"`
}

type createQuoteRequest struct {
	quickCalculateRequest
	Customer      customerPayload `json:"customer"`
	Terms         *termsPayload   `json:"terms"`
	InternalNotes string          `json:"internalNotes"`
}

type updateQuoteRequest struct {
	Customer         *customerPayload          `json:"customer"`
	Terms            *termsPayload             `json:"terms"`
	Status           *string                   `json:"status"`
	InternalNotes    *string                   `json:"internalNotes"`
	GroupInfo        *groupInfoPayload         `json:"groupInfo"`
	SelectedServices *[]selectedServicePayload `json:"selectedServices"`
	Discount         *discountPayload          `json:"discount"`
	VATPercentage    *float64                  `json:"vatPercentage"`
}

func (req updateQuoteRequest) command(actor string) services.UpdateQuoteCommand {
	cmd := services.UpdateQuoteCommand{
		Terms:         req.Terms.toDomain(),
		InternalNotes: req.InternalNotes,
		VATPercentage: req.VATPercentage,
		ActorID:       actor,
	}
	if req.Customer != nil {
		customer := req.Customer.toDomain()
		cmd.Customer = &customer
	}
	if req.Status != nil {
		status := domain.QuoteStatus(strings.TrimSpace(*req.Status))
		cmd.Status = &status
	}
	if req.GroupInfo != nil {
		group := req.GroupInfo.toDomain()
		cmd.GroupInfo = &group
	}
	if req.SelectedServices != nil {
		selected := selectedServicesToDomain(*req.SelectedServices)
		if selected == nil {
			selected = []domain.SelectedService{}
		}
		cmd.SelectedServices = &selected
	}
	if req.Discount != nil {
		discount := req.Discount.toDomain()
		cmd.Discount = &discount
	}
	return cmd
}

type vatPayload struct {
	Percentage float64 `json:"percentage"`
	Amount     int64   `json:"amount"`
}

type quotePricingResponse struct {
	BasePrice        int64           `json:"basePrice"`
	AdultsPrice      int64           `json:"adultsPrice"`
	ChildrenPrice    int64           `json:"childrenPrice"`
	InfantsPrice     int64           `json:"infantsPrice"`
	SeniorsPrice     int64           `json:"seniorsPrice"`
	TourSubtotal     int64           `json:"tourSubtotal"`
	ServicesSubtotal int64           `json:"servicesSubtotal"`
	Discount         discountPayload `json:"discount"`
	Total            int64           `json:"total"`
	VAT              vatPayload      `json:"vat"`
	FinalTotal       int64           `json:"finalTotal"`
}

func newQuotePricingResponse(p domain.QuotePricing) quotePricingResponse {
	return quotePricingResponse{
		BasePrice:        p.BasePrice,
		AdultsPrice:      p.AdultsPrice,
		ChildrenPrice:    p.ChildrenPrice,
		InfantsPrice:     p.InfantsPrice,
		SeniorsPrice:     p.SeniorsPrice,
		TourSubtotal:     p.TourSubtotal,
		ServicesSubtotal: p.ServicesSubtotal,
		Discount: discountPayload{
			Percentage: p.Discount.Percentage,
			Amount:     p.Discount.Amount,
			Reason:     p.Discount.Reason,
		},
		Total:      p.Total,
		VAT:        vatPayload{Percentage: p.VAT.Percentage, Amount: p.VAT.Amount},
		FinalTotal: p.FinalTotal,
	}
}

type sentInfoResponse struct {
	SentAt       *string `json:"sentAt,omitempty"`
	SentBy       string  `json:"sentBy,omitempty"`
	SentVia      string  `json:"sentVia,omitempty"`
	EmailSent    bool    `json:"emailSent"`
	ZaloSent     bool    `json:"zaloSent"`
	ViewCount    int     `json:"viewCount"`
	LastViewedAt *string `json:"lastViewedAt,omitempty"`
}

type quoteResponse struct {
	ID               string                   `json:"id"`
	QuoteNumber      string                   `json:"quoteNumber"`
	TourID           string                   `json:"tourId"`
	TourVersionID    string                   `json:"tourVersionId,omitempty"`
	Customer         customerPayload          `json:"customer"`
	GroupInfo        groupInfoResponse        `json:"groupInfo"`
	SelectedServices []selectedServicePayload `json:"selectedServices"`
	Pricing          quotePricingResponse     `json:"pricing"`
	Terms            termsPayload             `json:"terms"`
	Status           string                   `json:"status"`
	SentInfo         sentInfoResponse         `json:"sentInfo"`
	InternalNotes    string                   `json:"internalNotes,omitempty"`
	CreatedBy        string                   `json:"createdBy,omitempty"`
	CreatedAt        string                   `json:"createdAt,omitempty"`
	UpdatedAt        string                   `json:"updatedAt,omitempty"`
}

func newQuoteResponse(q domain.Quote) quoteResponse {
	c := q.Customer
	g := q.GroupInfo
	resp := quoteResponse{
		ID:            q.ID,
		QuoteNumber:   q.QuoteNumber,
		TourID:        q.TourID,
		TourVersionID: q.TourVersionID,
		Customer:      customerPayload{Name: c.Name, Company: c.Company, Email: c.Email, Phone: c.Phone, Address: c.Address, Zalo: c.Zalo},
		GroupInfo: groupInfoResponse{
			TotalParticipants: g.TotalParticipants,
			Adults:            g.Adults,
			Children:          g.Children,
			Infants:           g.Infants,
			Seniors:           g.Seniors,
			DepartureDate:     formatTimePtr(g.DepartureDate),
			ReturnDate:        formatTimePtr(g.ReturnDate),
			Notes:             g.Notes,
		},
		SelectedServices: make([]selectedServicePayload, 0, len(q.SelectedServices)),
		Pricing:          newQuotePricingResponse(q.Pricing),
		Terms: termsPayload{
			ValidityDays:       q.Terms.ValidityDays,
			PaymentTerms:       q.Terms.PaymentTerms,
			CancellationPolicy: q.Terms.CancellationPolicy,
			Notes:              q.Terms.Notes,
		},
		Status: string(q.Status),
		SentInfo: sentInfoResponse{
			SentAt:       formatTimePtr(q.SentInfo.SentAt),
			SentBy:       q.SentInfo.SentBy,
			SentVia:      string(q.SentInfo.SentVia),
			EmailSent:    q.SentInfo.EmailSent,
			ZaloSent:     q.SentInfo.ZaloSent,
			ViewCount:    q.SentInfo.ViewCount,
			LastViewedAt: formatTimePtr(q.SentInfo.LastViewedAt),
		},
		InternalNotes: q.InternalNotes,
		CreatedBy:     q.CreatedBy,
		CreatedAt:     formatTime(q.CreatedAt),
		UpdatedAt:     formatTime(q.UpdatedAt),
	}
	for _, s := range q.SelectedServices {
		resp.SelectedServices = append(resp.SelectedServices, selectedServicePayload{
			ServiceID:   s.ServiceID,
			ServiceName: s.Name,
			ServiceType: string(s.Type),
			Quantity:    s.Quantity,
			UnitPrice:   s.UnitPrice,
			TotalPrice:  s.TotalPrice,
			Description: s.Description,
		})
	}
	return resp
}

func (h *QuoteHandlers) quickCalculate(w http.ResponseWriter, r *http.Request) {
	var req quickCalculateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	pricing, err := h.quotes.QuickCalculate(r.Context(), services.QuickCalculateCommand{
		TourID:           req.TourID,
		TourVersionID:    req.TourVersionID,
		GroupInfo:        req.GroupInfo.toDomain(),
		SelectedServices: selectedServicesToDomain(req.SelectedServices),
		Discount:         req.Discount.toDomain(),
		VATPercentage:    req.VATPercentage,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newQuotePricingResponse(pricing))
}

func (h *QuoteHandlers) createQuote(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	quote, err := h.quotes.CreateQuote(r.Context(), services.CreateQuoteCommand{
		TourID:           req.TourID,
		TourVersionID:    req.TourVersionID,
		Customer:         req.Customer.toDomain(),
		GroupInfo:        req.GroupInfo.toDomain(),
		SelectedServices: selectedServicesToDomain(req.SelectedServices),
		Discount:         req.Discount.toDomain(),
		VATPercentage:    req.VATPercentage,
		Terms:            req.Terms.toDomain(),
		InternalNotes:    req.InternalNotes,
		ActorID:          requestctx.Operator(r.Context()),
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newQuoteResponse(quote))
}

func (h *QuoteHandlers) listQuotes(w http.ResponseWriter, r *http.Request) {
	pager, ok := parsePagination(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	page, err := h.quotes.ListQuotes(r.Context(), services.QuoteListFilter{
		TourID:     strings.TrimSpace(query.Get("tourId")),
		Status:     domain.QuoteStatus(strings.TrimSpace(query.Get("status"))),
		Search:     strings.TrimSpace(query.Get("search")),
		Pagination: pager,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newPageResponse(page, newQuoteResponse))
}

func (h *QuoteHandlers) getQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.quotes.GetQuote(r.Context(), chi.URLParam(r, "quoteID"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newQuoteResponse(quote))
}

func (h *QuoteHandlers) updateQuote(w http.ResponseWriter, r *http.Request) {
	var req updateQuoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	quote, err := h.quotes.UpdateQuote(r.Context(), chi.URLParam(r, "quoteID"), req.command(requestctx.Operator(r.Context())))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newQuoteResponse(quote))
}

func (h *QuoteHandlers) deleteQuote(w http.ResponseWriter, r *http.Request) {
	if err := h.quotes.DeleteQuote(r.Context(), chi.URLParam(r, "quoteID")); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QuoteHandlers) sendQuote(channel domain.DeliveryChannel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quote, err := h.quotes.SendQuote(r.Context(), services.SendQuoteCommand{
			QuoteID: chi.URLParam(r, "quoteID"),
			Channel: channel,
			ActorID: requestctx.Operator(r.Context()),
		})
		if err != nil {
			writeServiceError(r.Context(), w, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, newQuoteResponse(quote))
	}
}
