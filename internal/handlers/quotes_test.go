package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/repositories"
)

func calculatePayload(tourID string) map[string]any {
	return map[string]any{
		"tourId": tourID,
		"groupInfo": map[string]any{
			"totalParticipants": 3,
			"adults":            2,
			"children":          1,
			"departureDate":     "2024-04-05",
		},
		"selectedServices": []map[string]any{
			{"serviceName": "Xe đưa đón sân bay", "unitPrice": 200_000, "quantity": 1},
		},
		"discount": map[string]any{"percentage": 10, "reason": "Khách quen"},
	}
}

func createPayload(tourID string) map[string]any {
	payload := calculatePayload(tourID)
	payload["customer"] = map[string]any{
		"name":    "Nguyễn Văn An",
		"email":   "An.Nguyen@Example.com",
		"phone":   "0901234567",
		"company": "Công ty Minh Phát",
	}
	payload["internalNotes"] = "Ưu tiên phòng hướng biển"
	return payload
}

func TestQuoteHandlers_CalculateBreakdown(t *testing.T) {
	api := newTestAPI(t)
	api.seedTour(t, "tour-1")

	rr := api.do(t, http.MethodPost, "/api/v1/quotes/calculate", calculatePayload("tour-1"))
	expectStatus(t, rr, http.StatusOK)

	pricing := decodeJSON[quotePricingResponse](t, rr)
	assert.EqualValues(t, 2_500_000, pricing.TourSubtotal)
	assert.EqualValues(t, 200_000, pricing.ServicesSubtotal)
	assert.EqualValues(t, 270_000, pricing.Discount.Amount)
	assert.Equal(t, 10.0, pricing.Discount.Percentage)
	assert.Equal(t, "Khách quen", pricing.Discount.Reason)
	assert.EqualValues(t, 2_430_000, pricing.Total)
	assert.EqualValues(t, 243_000, pricing.VAT.Amount)
	assert.Equal(t, 10.0, pricing.VAT.Percentage)
	assert.EqualValues(t, 2_673_000, pricing.FinalTotal)

	raw := decodeJSON[map[string]any](t, rr)
	assert.Equal(t, map[string]any{"percentage": 10.0, "amount": 270_000.0, "reason": "Khách quen"}, raw["discount"])
	assert.Equal(t, map[string]any{"percentage": 10.0, "amount": 243_000.0}, raw["vat"])
	assert.NotContains(t, raw, "discountAmount")
	assert.NotContains(t, raw, "vatAmount")

	count, err := api.store.Quotes().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestQuoteHandlers_CalculateRateLimited(t *testing.T) {
	api := newTestAPI(t, withCalculateLimit(60, 2))
	api.seedTour(t, "tour-1")

	for i := 0; i < 2; i++ {
		rr := api.do(t, http.MethodPost, "/api/v1/quotes/calculate", calculatePayload("tour-1"))
		expectStatus(t, rr, http.StatusOK)
	}
	rr := api.do(t, http.MethodPost, "/api/v1/quotes/calculate", calculatePayload("tour-1"))
	expectStatus(t, rr, http.StatusTooManyRequests)
	assert.Equal(t, "rate_limited", decodeJSON[errorBody](t, rr).Error)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestQuoteHandlers_CreateAssignsNumberAndFreezesPricing(t *testing.T) {
	api := newTestAPI(t)
	api.seedTour(t, "tour-1")

	rr := api.do(t, http.MethodPost, "/api/v1/quotes", createPayload("tour-1"))
	expectStatus(t, rr, http.StatusCreated)

	quote := decodeJSON[quoteResponse](t, rr)
	assert.Equal(t, "QT2024030001", quote.QuoteNumber)
	assert.Equal(t, "draft", quote.Status)
	assert.Equal(t, "an.nguyen@example.com", quote.Customer.Email)
	assert.Equal(t, "op-lan", quote.CreatedBy)
	assert.Equal(t, 7, quote.Terms.ValidityDays)
	assert.EqualValues(t, 2_673_000, quote.Pricing.FinalTotal)
	assert.EqualValues(t, 270_000, quote.Pricing.Discount.Amount)
	assert.EqualValues(t, 243_000, quote.Pricing.VAT.Amount)
	rawPricing, ok := decodeJSON[map[string]any](t, rr)["pricing"].(map[string]any)
	require.True(t, ok, "expected pricing object")
	assert.Contains(t, rawPricing, "discount")
	assert.Contains(t, rawPricing, "vat")
	require.Len(t, quote.SelectedServices, 1)
	assert.EqualValues(t, 200_000, quote.SelectedServices[0].TotalPrice)
	assert.Equal(t, "additional", quote.SelectedServices[0].ServiceType)
	require.NotNil(t, quote.GroupInfo.DepartureDate)
	assert.Equal(t, "2024-04-05T00:00:00Z", *quote.GroupInfo.DepartureDate)

	rr = api.do(t, http.MethodPost, "/api/v1/quotes", createPayload("tour-1"))
	expectStatus(t, rr, http.StatusCreated)
	assert.Equal(t, "QT2024030002", decodeJSON[quoteResponse](t, rr).QuoteNumber)
}

func TestQuoteHandlers_CreateReplaysIdempotentRequest(t *testing.T) {
	api := newTestAPI(t)
	api.seedTour(t, "tour-1")

	first := api.do(t, http.MethodPost, "/api/v1/quotes", createPayload("tour-1"), "Idempotency-Key", "quote-key-1")
	expectStatus(t, first, http.StatusCreated)
	second := api.do(t, http.MethodPost, "/api/v1/quotes", createPayload("tour-1"), "Idempotency-Key", "quote-key-1")
	expectStatus(t, second, http.StatusCreated)

	assert.Equal(t, "true", second.Header().Get("X-Idempotent-Replay"))
	assert.Equal(t, decodeJSON[quoteResponse](t, first).QuoteNumber, decodeJSON[quoteResponse](t, second).QuoteNumber)

	count, err := api.store.Quotes().Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestQuoteHandlers_CreateValidation(t *testing.T) {
	api := newTestAPI(t)
	api.seedTour(t, "tour-1")

	cases := map[string]struct {
		mutate func(map[string]any)
		status int
		field  string
	}{
		"missing email": {
			mutate: func(p map[string]any) { p["customer"].(map[string]any)["email"] = "" },
			status: http.StatusBadRequest,
			field:  "customer.email",
		},
		"discount over 100": {
			mutate: func(p map[string]any) { p["discount"] = map[string]any{"percentage": 150} },
			status: http.StatusBadRequest,
			field:  "discount.percentage",
		},
		"vat over 100": {
			mutate: func(p map[string]any) { p["vatPercentage"] = 150 },
			status: http.StatusBadRequest,
			field:  "vatPercentage",
		},
		"negative vat": {
			mutate: func(p map[string]any) { p["vatPercentage"] = -1 },
			status: http.StatusBadRequest,
			field:  "vatPercentage",
		},
		"unknown tour": {
			mutate: func(p map[string]any) { p["tourId"] = "ghost" },
			status: http.StatusNotFound,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			payload := createPayload("tour-1")
			tc.mutate(payload)
			rr := api.do(t, http.MethodPost, "/api/v1/quotes", payload)
			expectStatus(t, rr, tc.status)
			if tc.field != "" {
				assert.Equal(t, tc.field, decodeJSON[errorBody](t, rr).Details["field"])
			}
		})
	}
}

func TestQuoteHandlers_GetRecordsViews(t *testing.T) {
	api := newTestAPI(t)
	api.seedTour(t, "tour-1")
	rr := api.do(t, http.MethodPost, "/api/v1/quotes", createPayload("tour-1"))
	expectStatus(t, rr, http.StatusCreated)
	id := decodeJSON[quoteResponse](t, rr).ID

	api.do(t, http.MethodGet, "/api/v1/quotes/"+id, nil)
	rr = api.do(t, http.MethodGet, "/api/v1/quotes/"+id, nil)
	expectStatus(t, rr, http.StatusOK)

	quote := decodeJSON[quoteResponse](t, rr)
	assert.Equal(t, 2, quote.SentInfo.ViewCount)
	require.NotNil(t, quote.SentInfo.LastViewedAt)
}

func TestQuoteHandlers_SendOverBothChannels(t *testing.T) {
	api := newTestAPI(t)
	api.seedTour(t, "tour-1")
	rr := api.do(t, http.MethodPost, "/api/v1/quotes", createPayload("tour-1"))
	expectStatus(t, rr, http.StatusCreated)
	id := decodeJSON[quoteResponse](t, rr).ID

	rr = api.do(t, http.MethodPost, "/api/v1/quotes/"+id+"/send-email", nil)
	expectStatus(t, rr, http.StatusOK)
	sent := decodeJSON[quoteResponse](t, rr)
	assert.Equal(t, "sent", sent.Status)
	assert.Equal(t, "email", sent.SentInfo.SentVia)
	assert.True(t, sent.SentInfo.EmailSent)
	assert.Equal(t, "op-lan", sent.SentInfo.SentBy)

	rr = api.do(t, http.MethodPost, "/api/v1/quotes/"+id+"/send-zalo", nil)
	expectStatus(t, rr, http.StatusOK)
	both := decodeJSON[quoteResponse](t, rr)
	assert.Equal(t, "both", both.SentInfo.SentVia)
	assert.True(t, both.SentInfo.ZaloSent)

	require.Len(t, api.deliveries.messages, 2)
	assert.Equal(t, "an.nguyen@example.com", api.deliveries.messages[0].Recipient)
	assert.Equal(t, "0901234567", api.deliveries.messages[1].Recipient)
	assert.Equal(t, domain.DeliveryChannelZalo, api.deliveries.messages[1].Channel)
}

func TestQuoteHandlers_SendPublishFailure(t *testing.T) {
	api := newTestAPI(t)
	api.seedTour(t, "tour-1")
	rr := api.do(t, http.MethodPost, "/api/v1/quotes", createPayload("tour-1"))
	expectStatus(t, rr, http.StatusCreated)
	id := decodeJSON[quoteResponse](t, rr).ID

	api.deliveries.err = errors.New("pubsub down")
	rr = api.do(t, http.MethodPost, "/api/v1/quotes/"+id+"/send-email", nil)
	expectStatus(t, rr, http.StatusServiceUnavailable)

	stored, err := api.store.Quotes().FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusDraft, stored.Status)
	assert.False(t, stored.SentInfo.EmailSent)
}

func TestQuoteHandlers_UpdateRules(t *testing.T) {
	api := newTestAPI(t)
	api.seedTour(t, "tour-1")
	rr := api.do(t, http.MethodPost, "/api/v1/quotes", createPayload("tour-1"))
	expectStatus(t, rr, http.StatusCreated)
	id := decodeJSON[quoteResponse](t, rr).ID

	rr = api.do(t, http.MethodPut, "/api/v1/quotes/"+id, map[string]any{
		"groupInfo": map[string]any{"totalParticipants": 4, "adults": 3, "children": 1},
	})
	expectStatus(t, rr, http.StatusOK)
	repriced := decodeJSON[quoteResponse](t, rr)
	assert.EqualValues(t, 3_500_000, repriced.Pricing.TourSubtotal)
	assert.EqualValues(t, 4, repriced.GroupInfo.TotalParticipants)

	rr = api.do(t, http.MethodPost, "/api/v1/quotes/"+id+"/send-email", nil)
	expectStatus(t, rr, http.StatusOK)

	rr = api.do(t, http.MethodPut, "/api/v1/quotes/"+id, map[string]any{"discount": map[string]any{"amount": 100_000}})
	expectStatus(t, rr, http.StatusConflict)

	rr = api.do(t, http.MethodPut, "/api/v1/quotes/"+id, map[string]any{"internalNotes": "Khách đã gọi lại", "status": "accepted"})
	expectStatus(t, rr, http.StatusOK)
	updated := decodeJSON[quoteResponse](t, rr)
	assert.Equal(t, "accepted", updated.Status)
	assert.Equal(t, "Khách đã gọi lại", updated.InternalNotes)
}

func TestQuoteHandlers_ListSearchAndDelete(t *testing.T) {
	api := newTestAPI(t)
	api.seedTour(t, "tour-1")
	rr := api.do(t, http.MethodPost, "/api/v1/quotes", createPayload("tour-1"))
	expectStatus(t, rr, http.StatusCreated)
	id := decodeJSON[quoteResponse](t, rr).ID

	rr = api.do(t, http.MethodGet, "/api/v1/quotes?search=minh%20phat", nil)
	expectStatus(t, rr, http.StatusOK)
	page := decodeJSON[pageResponse[quoteResponse]](t, rr)
	require.Len(t, page.Items, 1)
	assert.Equal(t, id, page.Items[0].ID)

	rr = api.do(t, http.MethodGet, "/api/v1/quotes?status=sent", nil)
	expectStatus(t, rr, http.StatusOK)
	assert.Empty(t, decodeJSON[pageResponse[quoteResponse]](t, rr).Items)

	rr = api.do(t, http.MethodDelete, "/api/v1/quotes/"+id, nil)
	expectStatus(t, rr, http.StatusNoContent)

	_, err := api.store.Quotes().FindByID(context.Background(), id)
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsNotFound())
}
