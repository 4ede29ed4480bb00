package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/platform/idempotency"
	"github.com/tourdesk/backoffice/internal/platform/observability"
	"github.com/tourdesk/backoffice/internal/repositories/memory"
	"github.com/tourdesk/backoffice/internal/services"
)

var apiNow = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

type capturedDeliveries struct {
	messages []services.QuoteDeliveryMessage
	err      error
}

func (c *capturedDeliveries) PublishQuoteDelivery(_ context.Context, msg services.QuoteDeliveryMessage) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.messages = append(c.messages, msg)
	return "msg", nil
}

type testAPI struct {
	handler    http.Handler
	store      *memory.Registry
	deliveries *capturedDeliveries
}

type testAPIOption func(*[]QuoteHandlersOption)

func withCalculateLimit(perMinute, burst int) testAPIOption {
	return func(opts *[]QuoteHandlersOption) {
		*opts = append(*opts, WithQuoteCalculateRateLimit(perMinute, burst, func() time.Time { return apiNow }))
	}
}

func newTestAPI(t *testing.T, opts ...testAPIOption) *testAPI {
	t.Helper()
	store := memory.NewRegistry()
	clock := func() time.Time { return apiNow }
	ids := 0
	nextID := func() string {
		ids++
		return fmt.Sprintf("id-%03d", ids)
	}

	tours, err := services.NewTourService(services.TourServiceDeps{Tours: store.Tours(), Clock: clock, IDGenerator: nextID})
	if err != nil {
		t.Fatalf("tour service: %v", err)
	}
	versions, err := services.NewTourVersionService(services.TourVersionServiceDeps{
		Tours: store.Tours(), Versions: store.TourVersions(), Clock: clock, IDGenerator: nextID,
	})
	if err != nil {
		t.Fatalf("version service: %v", err)
	}
	counters, err := services.NewCounterService(services.CounterServiceDeps{Repository: store.Counters(), Clock: clock})
	if err != nil {
		t.Fatalf("counter service: %v", err)
	}
	numbers, err := services.NewQuoteNumberGenerator(services.QuoteNumberGeneratorDeps{Counters: counters, Quotes: store.Quotes()})
	if err != nil {
		t.Fatalf("quote numbers: %v", err)
	}
	deliveries := &capturedDeliveries{}
	quotes, err := services.NewQuoteService(services.QuoteServiceDeps{
		Tours:       store.Tours(),
		Versions:    store.TourVersions(),
		Quotes:      store.Quotes(),
		Numbers:     numbers,
		Publisher:   deliveries,
		Clock:       clock,
		IDGenerator: nextID,
	})
	if err != nil {
		t.Fatalf("quote service: %v", err)
	}

	quoteOpts := []QuoteHandlersOption{
		WithQuoteCreateMiddlewares(idempotency.Middleware(idempotency.NewMemoryStore(), idempotency.WithClock(clock))),
	}
	for _, opt := range opts {
		opt(&quoteOpts)
	}

	router := NewRouter(
		WithMiddlewares(observability.OperatorMiddleware),
		WithTourRoutes(NewTourHandlers(tours).Routes),
		WithTourVersionRoutes(NewTourVersionHandlers(versions).Routes),
		WithQuoteRoutes(NewQuoteHandlers(quotes, quoteOpts...).Routes),
	)
	return &testAPI{handler: router, store: store, deliveries: deliveries}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(observability.OperatorHeader, "op-lan")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) seedTour(t *testing.T, id string) domain.Tour {
	t.Helper()
	tour := domain.Tour{
		ID:            id,
		Name:          "Đà Nẵng - Hội An 4N3Đ",
		Description:   "Bà Nà Hills và phố cổ Hội An",
		Category:      domain.TourCategoryDomestic,
		CategoryLabel: "Tour trong nước",
		Destination:   "Đà Nẵng",
		Price:         1_000_000,
		Pricing:       &domain.PriceTable{Adult: 1_000_000, Child: 500_000, Senior: 800_000},
		Duration:      4,
		Status:        domain.TourStatusActive,
		CreatedAt:     apiNow.Add(-time.Hour),
		UpdatedAt:     apiNow.Add(-time.Hour),
	}
	if err := a.store.Tours().Insert(context.Background(), tour); err != nil {
		t.Fatalf("seed tour: %v", err)
	}
	return tour
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}
