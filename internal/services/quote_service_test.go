package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/repositories/memory"
)

type recordingPublisher struct {
	messages []QuoteDeliveryMessage
	err      error
}

func (p *recordingPublisher) PublishQuoteDelivery(ctx context.Context, message QuoteDeliveryMessage) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.messages = append(p.messages, message)
	return "msg-1", nil
}

type quoteFixture struct {
	store     *memory.Registry
	service   QuoteService
	publisher *recordingPublisher
	tour      domain.Tour
}

func newQuoteFixture(t *testing.T) quoteFixture {
	t.Helper()
	store := memory.NewRegistry()
	tour := seedTour(t, store, "tour-1")

	counters, err := NewCounterService(CounterServiceDeps{Repository: store.Counters(), Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewCounterService: %v", err)
	}
	numbers, err := NewQuoteNumberGenerator(QuoteNumberGeneratorDeps{Counters: counters, Quotes: store.Quotes()})
	if err != nil {
		t.Fatalf("NewQuoteNumberGenerator: %v", err)
	}
	publisher := &recordingPublisher{}
	svc, err := NewQuoteService(QuoteServiceDeps{
		Tours:       store.Tours(),
		Versions:    store.TourVersions(),
		Quotes:      store.Quotes(),
		Numbers:     numbers,
		Engine:      NewPricingEngine(PricingEngineOptions{}),
		Publisher:   publisher,
		Clock:       fixedClock,
		IDGenerator: sequentialIDs("quote-"),
	})
	if err != nil {
		t.Fatalf("NewQuoteService: %v", err)
	}
	return quoteFixture{store: store, service: svc, publisher: publisher, tour: tour}
}

func sampleCreateCommand(tourID string) CreateQuoteCommand {
	return CreateQuoteCommand{
		TourID: tourID,
		Customer: domain.Customer{
			Name:    "Nguyễn Văn An",
			Company: "Công ty Du lịch Sao Mai",
			Email:   "  An.Nguyen@Example.VN ",
			Phone:   "0901234567",
			Zalo:    "0901234567",
		},
		GroupInfo: domain.GroupInfo{TotalParticipants: 3, Adults: 2, Children: 1},
		SelectedServices: []domain.SelectedService{
			{Name: "Đưa đón sân bay", Quantity: 2, UnitPrice: 100_000},
		},
		Discount: domain.DiscountSpec{Percentage: 10, Reason: "Khách đoàn"},
		ActorID:  "op-7",
	}
}

func TestQuoteService_CreateQuotePricesAndNumbers(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()

	quote, err := f.service.CreateQuote(ctx, sampleCreateCommand(f.tour.ID))
	if err != nil {
		t.Fatalf("CreateQuote: %v", err)
	}

	if quote.QuoteNumber != "QT2024030001" {
		t.Fatalf("expected first quote number QT2024030001, got %s", quote.QuoteNumber)
	}
	if quote.Status != domain.QuoteStatusDraft {
		t.Fatalf("expected draft status, got %s", quote.Status)
	}
	if quote.Customer.Email != "an.nguyen@example.vn" {
		t.Fatalf("expected lower-cased email, got %q", quote.Customer.Email)
	}
	if quote.Terms.ValidityDays != 7 {
		t.Fatalf("expected default validity 7 days, got %d", quote.Terms.ValidityDays)
	}
	p := quote.Pricing
	if p.TourSubtotal != 2_500_000 || p.ServicesSubtotal != 200_000 || p.Discount.Amount != 270_000 ||
		p.Total != 2_430_000 || p.VAT.Amount != 243_000 || p.FinalTotal != 2_673_000 {
		t.Fatalf("unexpected pricing %+v", p)
	}
	if quote.SelectedServices[0].Type != domain.ServiceTypeAdditional || quote.SelectedServices[0].TotalPrice != 200_000 {
		t.Fatalf("unexpected service line %+v", quote.SelectedServices[0])
	}
	if quote.CreatedBy != "op-7" || !quote.CreatedAt.Equal(testNow) {
		t.Fatalf("expected audit fields, got %q %v", quote.CreatedBy, quote.CreatedAt)
	}

	second, err := f.service.CreateQuote(ctx, sampleCreateCommand(f.tour.ID))
	if err != nil {
		t.Fatalf("CreateQuote: %v", err)
	}
	if second.QuoteNumber != "QT2024030002" {
		t.Fatalf("expected QT2024030002, got %s", second.QuoteNumber)
	}
}

func TestQuoteService_CreateQuoteWithVersion(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()
	seedVersion(t, f.store, domain.TourVersion{
		ID: "ver-peak", TourID: f.tour.ID, VersionType: domain.VersionTypeSeasonal,
		StartDate: day(0), EndDate: day(30), Status: domain.VersionStatusActive,
		Pricing: domain.VersionPricing{Adult: 1_200_000, BasePrice: 1_200_000},
	})
	seedVersion(t, f.store, domain.TourVersion{
		ID: "ver-foreign", TourID: "tour-2", VersionType: domain.VersionTypeSeasonal,
		StartDate: day(0), EndDate: day(30), Status: domain.VersionStatusActive,
	})

	cmd := sampleCreateCommand(f.tour.ID)
	cmd.TourVersionID = "ver-peak"
	cmd.SelectedServices = nil
	cmd.Discount = domain.DiscountSpec{}
	quote, err := f.service.CreateQuote(ctx, cmd)
	if err != nil {
		t.Fatalf("CreateQuote: %v", err)
	}
	if quote.TourVersionID != "ver-peak" || quote.Pricing.ChildrenPrice != 0 || quote.Pricing.TourSubtotal != 2_400_000 {
		t.Fatalf("expected version table to replace the tour table, got %+v", quote.Pricing)
	}

	cmd.TourVersionID = "ver-missing"
	if _, err := f.service.CreateQuote(ctx, cmd); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown version, got %v", err)
	}
	cmd.TourVersionID = "ver-foreign"
	if _, err := f.service.CreateQuote(ctx, cmd); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for version of another tour, got %v", err)
	}
}

func TestQuoteService_CreateQuoteValidation(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateQuoteCommand)
		target error
		field  string
	}{
		{name: "missing tour", mutate: func(c *CreateQuoteCommand) { c.TourID = "nope" }, target: ErrNotFound},
		{name: "no participants", mutate: func(c *CreateQuoteCommand) { c.GroupInfo.TotalParticipants = 0 }, target: ErrInvalidInput, field: "groupInfo.totalParticipants"},
		{name: "bad email", mutate: func(c *CreateQuoteCommand) { c.Customer.Email = "not-an-email" }, target: ErrInvalidInput, field: "customer.email"},
		{name: "negative quantity", mutate: func(c *CreateQuoteCommand) { c.SelectedServices[0].Quantity = -1 }, target: ErrInvalidInput, field: "selectedServices[0].quantity"},
		{name: "discount over 100", mutate: func(c *CreateQuoteCommand) { c.Discount.Percentage = 120 }, target: ErrInvalidInput, field: "discount.percentage"},
		{name: "vat over 100", mutate: func(c *CreateQuoteCommand) { c.VATPercentage = ptr(101.0) }, target: ErrInvalidInput, field: "vatPercentage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := sampleCreateCommand(f.tour.ID)
			tt.mutate(&cmd)
			_, err := f.service.CreateQuote(ctx, cmd)
			if !errors.Is(err, tt.target) {
				t.Fatalf("expected %v, got %v", tt.target, err)
			}
			var vErr *ValidationError
			if tt.field != "" && (!errors.As(err, &vErr) || vErr.Field != tt.field) {
				t.Fatalf("expected validation error on %s, got %v", tt.field, err)
			}
		})
	}
	if count, _ := f.store.Quotes().Count(ctx); count != 0 {
		t.Fatalf("expected no quotes persisted, got %d", count)
	}
}

func TestQuoteService_TotalParticipantsIsNotRecomputed(t *testing.T) {
	f := newQuoteFixture(t)
	cmd := sampleCreateCommand(f.tour.ID)
	cmd.GroupInfo = domain.GroupInfo{TotalParticipants: 10, Adults: 2}

	quote, err := f.service.CreateQuote(context.Background(), cmd)
	if err != nil {
		t.Fatalf("CreateQuote: %v", err)
	}
	if quote.GroupInfo.TotalParticipants != 10 {
		t.Fatalf("expected totalParticipants to be kept as given, got %d", quote.GroupInfo.TotalParticipants)
	}
}

func TestQuoteService_QuickCalculateDoesNotPersist(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()

	pricing, err := f.service.QuickCalculate(ctx, QuickCalculateCommand{
		TourID:        f.tour.ID,
		GroupInfo:     domain.GroupInfo{TotalParticipants: 2, Adults: 1, Seniors: 1},
		VATPercentage: ptr(8.0),
	})
	if err != nil {
		t.Fatalf("QuickCalculate: %v", err)
	}
	if pricing.TourSubtotal != 1_800_000 || pricing.VAT.Amount != 144_000 || pricing.FinalTotal != 1_944_000 {
		t.Fatalf("unexpected pricing %+v", pricing)
	}
	if count, _ := f.store.Quotes().Count(ctx); count != 0 {
		t.Fatalf("expected quick calculate to persist nothing, got %d quotes", count)
	}
}

func TestQuoteService_GetRecordsView(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()
	created, err := f.service.CreateQuote(ctx, sampleCreateCommand(f.tour.ID))
	if err != nil {
		t.Fatalf("CreateQuote: %v", err)
	}

	var got domain.Quote
	for i := 0; i < 3; i++ {
		got, err = f.service.GetQuote(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetQuote: %v", err)
		}
	}
	if got.SentInfo.ViewCount != 3 {
		t.Fatalf("expected 3 views, got %d", got.SentInfo.ViewCount)
	}
	if got.SentInfo.LastViewedAt == nil || !got.SentInfo.LastViewedAt.Equal(testNow) {
		t.Fatalf("expected lastViewedAt to be stamped, got %v", got.SentInfo.LastViewedAt)
	}
	if _, err := f.service.GetQuote(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQuoteService_SendBothChannels(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()
	created, err := f.service.CreateQuote(ctx, sampleCreateCommand(f.tour.ID))
	if err != nil {
		t.Fatalf("CreateQuote: %v", err)
	}

	afterZalo, err := f.service.SendQuote(ctx, SendQuoteCommand{QuoteID: created.ID, Channel: domain.DeliveryChannelZalo, ActorID: "op-7"})
	if err != nil {
		t.Fatalf("SendQuote zalo: %v", err)
	}
	if afterZalo.SentInfo.SentVia != domain.DeliveryChannelZalo || afterZalo.Status != domain.QuoteStatusSent {
		t.Fatalf("expected zalo/sent, got %s/%s", afterZalo.SentInfo.SentVia, afterZalo.Status)
	}

	afterEmail, err := f.service.SendQuote(ctx, SendQuoteCommand{QuoteID: created.ID, Channel: domain.DeliveryChannelEmail, ActorID: "op-8"})
	if err != nil {
		t.Fatalf("SendQuote email: %v", err)
	}
	info := afterEmail.SentInfo
	if info.SentVia != domain.DeliveryChannelBoth || !info.EmailSent || !info.ZaloSent {
		t.Fatalf("expected both channels flagged, got %+v", info)
	}
	if info.SentBy != "op-8" || info.SentAt == nil {
		t.Fatalf("expected sentBy and sentAt, got %+v", info)
	}

	if len(f.publisher.messages) != 2 {
		t.Fatalf("expected two delivery jobs, got %d", len(f.publisher.messages))
	}
	if msg := f.publisher.messages[1]; msg.Recipient != "an.nguyen@example.vn" || msg.QuoteNumber != created.QuoteNumber || msg.FinalTotal != 2_673_000 {
		t.Fatalf("unexpected email job %+v", msg)
	}
}

func TestQuoteService_SendKeepsLaterStatus(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()
	created, _ := f.service.CreateQuote(ctx, sampleCreateCommand(f.tour.ID))
	accepted := domain.QuoteStatusAccepted
	if _, err := f.service.UpdateQuote(ctx, created.ID, UpdateQuoteCommand{Status: &accepted}); err != nil {
		t.Fatalf("UpdateQuote: %v", err)
	}

	sent, err := f.service.SendQuote(ctx, SendQuoteCommand{QuoteID: created.ID, Channel: domain.DeliveryChannelEmail})
	if err != nil {
		t.Fatalf("SendQuote: %v", err)
	}
	if sent.Status != domain.QuoteStatusAccepted {
		t.Fatalf("expected accepted status to be kept, got %s", sent.Status)
	}
}

func TestQuoteService_SendPublishFailureLeavesQuoteUntouched(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()
	created, _ := f.service.CreateQuote(ctx, sampleCreateCommand(f.tour.ID))
	f.publisher.err = errors.New("topic not found")

	if _, err := f.service.SendQuote(ctx, SendQuoteCommand{QuoteID: created.ID, Channel: domain.DeliveryChannelEmail}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	stored, _ := f.store.Quotes().FindByID(ctx, created.ID)
	if stored.Status != domain.QuoteStatusDraft || stored.SentInfo.EmailSent {
		t.Fatalf("expected quote to stay an unsent draft, got %s %+v", stored.Status, stored.SentInfo)
	}
}

func TestQuoteService_UpdateRepricesDraftFromSnapshot(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()
	created, _ := f.service.CreateQuote(ctx, sampleCreateCommand(f.tour.ID))

	// Later tour price changes must not leak into the stored quote.
	tour := f.tour
	tour.Pricing = &domain.PriceTable{Adult: 9_999_999}
	if err := f.store.Tours().Update(ctx, tour); err != nil {
		t.Fatalf("update tour: %v", err)
	}

	group := domain.GroupInfo{TotalParticipants: 4, Adults: 3, Children: 1}
	updated, err := f.service.UpdateQuote(ctx, created.ID, UpdateQuoteCommand{GroupInfo: &group})
	if err != nil {
		t.Fatalf("UpdateQuote: %v", err)
	}
	p := updated.Pricing
	// 3×1,000,000 + 500,000 + 200,000 services = 3,700,000; 10% off = 370,000; VAT 333,000.
	if p.TourSubtotal != 3_500_000 || p.Discount.Amount != 370_000 || p.Total != 3_330_000 || p.FinalTotal != 3_663_000 {
		t.Fatalf("unexpected repriced breakdown %+v", p)
	}
	if updated.QuoteNumber != created.QuoteNumber {
		t.Fatalf("quote number must not change on update")
	}
}

func TestQuoteService_UpdateRejectsPricingEditAfterSend(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()
	created, _ := f.service.CreateQuote(ctx, sampleCreateCommand(f.tour.ID))
	if _, err := f.service.SendQuote(ctx, SendQuoteCommand{QuoteID: created.ID, Channel: domain.DeliveryChannelEmail}); err != nil {
		t.Fatalf("SendQuote: %v", err)
	}

	if _, err := f.service.UpdateQuote(ctx, created.ID, UpdateQuoteCommand{Discount: &domain.DiscountSpec{Amount: 1}}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for pricing edit on a sent quote, got %v", err)
	}

	notes := "Khách hẹn gọi lại thứ Hai"
	updated, err := f.service.UpdateQuote(ctx, created.ID, UpdateQuoteCommand{InternalNotes: &notes})
	if err != nil {
		t.Fatalf("expected notes to stay editable, got %v", err)
	}
	if updated.InternalNotes != notes || updated.Pricing != created.Pricing {
		t.Fatalf("unexpected update result %+v", updated)
	}
}

func TestQuoteService_ListSearchAndDelete(t *testing.T) {
	f := newQuoteFixture(t)
	ctx := context.Background()
	first, _ := f.service.CreateQuote(ctx, sampleCreateCommand(f.tour.ID))
	other := sampleCreateCommand(f.tour.ID)
	other.Customer.Name = "Trần Thị Bình"
	other.Customer.Company = ""
	other.Customer.Email = "binh@example.vn"
	if _, err := f.service.CreateQuote(ctx, other); err != nil {
		t.Fatalf("CreateQuote: %v", err)
	}

	page, err := f.service.ListQuotes(ctx, QuoteListFilter{Search: "nguyen van"})
	if err != nil {
		t.Fatalf("ListQuotes: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != first.ID {
		t.Fatalf("expected accent-insensitive match on the first quote, got %+v", page.Items)
	}
	if _, err := f.service.ListQuotes(ctx, QuoteListFilter{Status: "archived"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown status, got %v", err)
	}

	if err := f.service.DeleteQuote(ctx, first.ID); err != nil {
		t.Fatalf("DeleteQuote: %v", err)
	}
	if err := f.service.DeleteQuote(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
