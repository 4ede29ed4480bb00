package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/platform/textutil"
	"github.com/tourdesk/backoffice/internal/repositories"
)

const defaultQuoteValidityDays = 7

// QuoteServiceDeps wires the quote service.
type QuoteServiceDeps struct {
	Tours     repositories.TourRepository
	Versions  repositories.TourVersionRepository
	Quotes    repositories.QuoteRepository
	Numbers   QuoteNumberGenerator
	Engine    *PricingEngine
	Publisher QuoteDeliveryPublisher
	Clock     func() time.Time
	// IDGenerator produces quote document ids.
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type quoteService struct {
	tours     repositories.TourRepository
	versions  repositories.TourVersionRepository
	quotes    repositories.QuoteRepository
	numbers   QuoteNumberGenerator
	engine    *PricingEngine
	publisher QuoteDeliveryPublisher
	now       func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewQuoteService constructs a QuoteService. Without a publisher, deliveries are only logged.
func NewQuoteService(deps QuoteServiceDeps) (QuoteService, error) {
	switch {
	case deps.Tours == nil:
		return nil, errors.New("quote service: tour repository is required")
	case deps.Versions == nil:
		return nil, errors.New("quote service: tour version repository is required")
	case deps.Quotes == nil:
		return nil, errors.New("quote service: quote repository is required")
	case deps.Numbers == nil:
		return nil, errors.New("quote service: quote number generator is required")
	}
	engine := deps.Engine
	if engine == nil {
		engine = NewPricingEngine(PricingEngineOptions{})
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
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logOnlyDeliveryPublisher{logger: logger}
	}
	return &quoteService{
		tours:     deps.Tours,
		versions:  deps.Versions,
		quotes:    deps.Quotes,
		numbers:   deps.Numbers,
		engine:    engine,
		publisher: publisher,
		now:       func() time.Time { return clock().UTC() },
		newID:     idGen,
		logger:    logger,
	}, nil
}

func (s *quoteService) QuickCalculate(ctx context.Context, cmd QuickCalculateCommand) (domain.QuotePricing, error) {
	group, err := normalizeGroup(cmd.GroupInfo)
	if err != nil {
		return domain.QuotePricing{}, err
	}
	selected, err := normalizeServices(cmd.SelectedServices)
	if err != nil {
		return domain.QuotePricing{}, err
	}
	if err := validateAdjustments(cmd.Discount, cmd.VATPercentage); err != nil {
		return domain.QuotePricing{}, err
	}
	base, _, err := s.resolveBase(ctx, cmd.TourID, cmd.TourVersionID)
	if err != nil {
		return domain.QuotePricing{}, err
	}
	pricing, _ := s.engine.ComputeQuotePricing(base, group, selected, cmd.Discount, cmd.VATPercentage)
	return pricing, nil
}

func (s *quoteService) CreateQuote(ctx context.Context, cmd CreateQuoteCommand) (domain.Quote, error) {
	customer, err := normalizeCustomer(cmd.Customer)
	if err != nil {
		return domain.Quote{}, err
	}
	group, err := normalizeGroup(cmd.GroupInfo)
	if err != nil {
		return domain.Quote{}, err
	}
	selected, err := normalizeServices(cmd.SelectedServices)
	if err != nil {
		return domain.Quote{}, err
	}
	if err := validateAdjustments(cmd.Discount, cmd.VATPercentage); err != nil {
		return domain.Quote{}, err
	}
	terms, err := normalizeTerms(cmd.Terms)
	if err != nil {
		return domain.Quote{}, err
	}

	base, versionID, err := s.resolveBase(ctx, cmd.TourID, cmd.TourVersionID)
	if err != nil {
		return domain.Quote{}, err
	}
	discount := cmd.Discount
	discount.Reason = textutil.Sanitize(discount.Reason)
	pricing, lines := s.engine.ComputeQuotePricing(base, group, selected, discount, cmd.VATPercentage)

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("quote service: allocate quote number: %w", err)
	}

	now := s.now()
	quote := domain.Quote{
		ID:               s.newID(),
		QuoteNumber:      number,
		TourID:           strings.TrimSpace(cmd.TourID),
		TourVersionID:    versionID,
		Customer:         customer,
		GroupInfo:        group,
		SelectedServices: lines,
		Pricing:          pricing,
		Terms:            terms,
		Status:           domain.QuoteStatusDraft,
		InternalNotes:    textutil.Sanitize(cmd.InternalNotes),
		CreatedBy:        strings.TrimSpace(cmd.ActorID),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.quotes.Insert(ctx, quote); err != nil {
		return domain.Quote{}, translateRepoError(err, "quote", quote.ID)
	}
	s.logger(ctx, "quote.created", map[string]any{
		"quoteId":     quote.ID,
		"quoteNumber": quote.QuoteNumber,
		"tourId":      quote.TourID,
		"finalTotal":  quote.Pricing.FinalTotal,
	})
	return quote, nil
}

func (s *quoteService) GetQuote(ctx context.Context, quoteID string) (domain.Quote, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return domain.Quote{}, invalid("id", "is required")
	}
	quote, err := s.quotes.RecordView(ctx, quoteID, s.now())
	if err != nil {
		return domain.Quote{}, translateRepoError(err, "quote", quoteID)
	}
	return quote, nil
}

func (s *quoteService) ListQuotes(ctx context.Context, filter QuoteListFilter) (domain.Page[domain.Quote], error) {
	if filter.Status != "" && !validQuoteStatus(filter.Status) {
		return domain.Page[domain.Quote]{}, invalid("status", "is not supported")
	}
	page, err := s.quotes.List(ctx, repositories.QuoteFilter{
		TourID:     strings.TrimSpace(filter.TourID),
		Status:     filter.Status,
		Search:     strings.TrimSpace(filter.Search),
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.Page[domain.Quote]{}, translateRepoError(err, "quote", "")
	}
	return page, nil
}

func (s *quoteService) UpdateQuote(ctx context.Context, quoteID string, cmd UpdateQuoteCommand) (domain.Quote, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return domain.Quote{}, invalid("id", "is required")
	}
	quote, err := s.quotes.FindByID(ctx, quoteID)
	if err != nil {
		return domain.Quote{}, translateRepoError(err, "quote", quoteID)
	}

	if cmd.Customer != nil {
		customer, err := normalizeCustomer(*cmd.Customer)
		if err != nil {
			return domain.Quote{}, err
		}
		quote.Customer = customer
	}
	if cmd.Terms != nil {
		terms, err := normalizeTerms(cmd.Terms)
		if err != nil {
			return domain.Quote{}, err
		}
		quote.Terms = terms
	}
	if cmd.InternalNotes != nil {
		quote.InternalNotes = textutil.Sanitize(*cmd.InternalNotes)
	}

	repricing := cmd.GroupInfo != nil || cmd.SelectedServices != nil || cmd.Discount != nil || cmd.VATPercentage != nil
	if repricing {
		if quote.Status != domain.QuoteStatusDraft {
			return domain.Quote{}, fmt.Errorf("%w: quote %s is %s; pricing can only change while draft", ErrConflict, quote.QuoteNumber, quote.Status)
		}
		if err := s.reprice(&quote, cmd); err != nil {
			return domain.Quote{}, err
		}
	}

	if cmd.Status != nil {
		if !validQuoteStatus(*cmd.Status) {
			return domain.Quote{}, invalid("status", "is not supported")
		}
		quote.Status = *cmd.Status
	}

	quote.UpdatedAt = s.now()
	if err := s.quotes.Update(ctx, quote); err != nil {
		return domain.Quote{}, translateRepoError(err, "quote", quote.ID)
	}
	s.logger(ctx, "quote.updated", map[string]any{
		"quoteId":    quote.ID,
		"repriced":   repricing,
		"status":     string(quote.Status),
		"finalTotal": quote.Pricing.FinalTotal,
		"actorId":    cmd.ActorID,
	})
	return quote, nil
}

// reprice recomputes a draft from its own frozen per-type prices.
func (s *quoteService) reprice(quote *domain.Quote, cmd UpdateQuoteCommand) error {
	group := quote.GroupInfo
	if cmd.GroupInfo != nil {
		normalized, err := normalizeGroup(*cmd.GroupInfo)
		if err != nil {
			return err
		}
		group = normalized
	}
	selected := quote.SelectedServices
	if cmd.SelectedServices != nil {
		normalized, err := normalizeServices(*cmd.SelectedServices)
		if err != nil {
			return err
		}
		selected = normalized
	}
	discount := quote.Pricing.DiscountSpec()
	if cmd.Discount != nil {
		discount = *cmd.Discount
		discount.Reason = textutil.Sanitize(discount.Reason)
	}
	vat := quote.Pricing.VAT.Percentage
	if cmd.VATPercentage != nil {
		vat = *cmd.VATPercentage
	}
	if err := validateAdjustments(discount, &vat); err != nil {
		return err
	}

	pricing, lines := s.engine.ComputeQuotePricing(quote.Pricing.BasePricing(), group, selected, discount, &vat)
	quote.GroupInfo = group
	quote.SelectedServices = lines
	quote.Pricing = pricing
	return nil
}

func (s *quoteService) DeleteQuote(ctx context.Context, quoteID string) error {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return invalid("id", "is required")
	}
	if err := s.quotes.Delete(ctx, quoteID); err != nil {
		return translateRepoError(err, "quote", quoteID)
	}
	s.logger(ctx, "quote.deleted", map[string]any{"quoteId": quoteID})
	return nil
}

func (s *quoteService) SendQuote(ctx context.Context, cmd SendQuoteCommand) (domain.Quote, error) {
	quoteID := strings.TrimSpace(cmd.QuoteID)
	if quoteID == "" {
		return domain.Quote{}, invalid("id", "is required")
	}
	if cmd.Channel != domain.DeliveryChannelEmail && cmd.Channel != domain.DeliveryChannelZalo {
		return domain.Quote{}, invalid("channel", "must be email or zalo")
	}
	quote, err := s.quotes.FindByID(ctx, quoteID)
	if err != nil {
		return domain.Quote{}, translateRepoError(err, "quote", quoteID)
	}
	recipient := deliveryRecipient(quote.Customer, cmd.Channel)
	if recipient == "" {
		return domain.Quote{}, invalid("customer", fmt.Sprintf("has no %s contact", cmd.Channel))
	}

	now := s.now()
	actor := strings.TrimSpace(cmd.ActorID)
	messageID, err := s.publisher.PublishQuoteDelivery(ctx, QuoteDeliveryMessage{
		QuoteID:      quote.ID,
		QuoteNumber:  quote.QuoteNumber,
		Channel:      cmd.Channel,
		Recipient:    recipient,
		CustomerName: quote.Customer.Name,
		FinalTotal:   quote.Pricing.FinalTotal,
		RequestedBy:  actor,
		RequestedAt:  now,
	})
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: dispatch quote %s: %v", ErrUnavailable, quote.QuoteNumber, err)
	}

	markSent(&quote, cmd.Channel, actor, now)
	quote.UpdatedAt = now
	if err := s.quotes.Update(ctx, quote); err != nil {
		return domain.Quote{}, translateRepoError(err, "quote", quote.ID)
	}
	s.logger(ctx, "quote.sent", map[string]any{
		"quoteId":   quote.ID,
		"channel":   string(cmd.Channel),
		"sentVia":   string(quote.SentInfo.SentVia),
		"messageId": messageID,
	})
	return quote, nil
}

// markSent flags the channel, upgrades sentVia to both when the other channel already went out and
// promotes a draft to sent. Any later status is kept.
func markSent(quote *domain.Quote, channel domain.DeliveryChannel, actor string, now time.Time) {
	info := &quote.SentInfo
	var otherSent bool
	switch channel {
	case domain.DeliveryChannelEmail:
		info.EmailSent = true
		otherSent = info.ZaloSent
	case domain.DeliveryChannelZalo:
		info.ZaloSent = true
		otherSent = info.EmailSent
	}
	info.SentVia = channel
	if otherSent {
		info.SentVia = domain.DeliveryChannelBoth
	}
	sentAt := now
	info.SentAt = &sentAt
	info.SentBy = actor
	if quote.Status == domain.QuoteStatusDraft {
		quote.Status = domain.QuoteStatusSent
	}
}

// resolveBase loads the tour and optional version and returns the price table to quote from along
// with the normalized version id.
func (s *quoteService) resolveBase(ctx context.Context, tourID, versionID string) (domain.BasePricing, string, error) {
	tourID = strings.TrimSpace(tourID)
	if tourID == "" {
		return domain.BasePricing{}, "", invalid("tourId", "is required")
	}
	tour, err := s.tours.FindByID(ctx, tourID)
	if err != nil {
		return domain.BasePricing{}, "", translateRepoError(err, "tour", tourID)
	}

	versionID = strings.TrimSpace(versionID)
	if versionID == "" {
		return ResolveBasePricing(tour, nil), "", nil
	}
	version, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return domain.BasePricing{}, "", translateRepoError(err, "tour version", versionID)
	}
	if version.TourID != tour.ID {
		return domain.BasePricing{}, "", invalid("tourVersionId", "does not belong to the tour")
	}
	return ResolveBasePricing(tour, &version), version.ID, nil
}

func normalizeCustomer(c domain.Customer) (domain.Customer, error) {
	customer := domain.Customer{
		Name:    textutil.Sanitize(c.Name),
		Company: textutil.Sanitize(c.Company),
		Email:   strings.ToLower(strings.TrimSpace(c.Email)),
		Phone:   strings.TrimSpace(c.Phone),
		Address: textutil.Sanitize(c.Address),
		Zalo:    strings.TrimSpace(c.Zalo),
	}
	switch {
	case customer.Name == "":
		return domain.Customer{}, invalid("customer.name", "is required")
	case customer.Email == "":
		return domain.Customer{}, invalid("customer.email", "is required")
	case customer.Phone == "":
		return domain.Customer{}, invalid("customer.phone", "is required")
	}
	if addr, err := mail.ParseAddress(customer.Email); err != nil || addr.Address != customer.Email {
		return domain.Customer{}, invalid("customer.email", "is not a valid address")
	}
	return customer, nil
}

func normalizeGroup(g domain.GroupInfo) (domain.GroupInfo, error) {
	switch {
	case g.TotalParticipants < 1:
		return domain.GroupInfo{}, invalid("groupInfo.totalParticipants", "must be at least 1")
	case g.Adults < 0, g.Children < 0, g.Infants < 0, g.Seniors < 0:
		return domain.GroupInfo{}, invalid("groupInfo", "participant counts must not be negative")
	}
	if g.DepartureDate != nil && g.ReturnDate != nil && g.ReturnDate.Before(*g.DepartureDate) {
		return domain.GroupInfo{}, invalid("groupInfo.returnDate", "must not be before departureDate")
	}
	group := g
	group.Notes = textutil.Sanitize(g.Notes)
	if g.DepartureDate != nil {
		d := g.DepartureDate.UTC()
		group.DepartureDate = &d
	}
	if g.ReturnDate != nil {
		r := g.ReturnDate.UTC()
		group.ReturnDate = &r
	}
	return group, nil
}

func normalizeServices(services []domain.SelectedService) ([]domain.SelectedService, error) {
	if len(services) == 0 {
		return nil, nil
	}
	out := make([]domain.SelectedService, 0, len(services))
	for i, svc := range services {
		field := fmt.Sprintf("selectedServices[%d]", i)
		name := textutil.Sanitize(svc.Name)
		if name == "" {
			return nil, invalid(field+".serviceName", "is required")
		}
		switch svc.Type {
		case "":
			svc.Type = domain.ServiceTypeAdditional
		case domain.ServiceTypeAdditional, domain.ServiceTypeUpgrade, domain.ServiceTypeCustom:
		default:
			return nil, invalid(field+".serviceType", "must be one of additional, upgrade, custom")
		}
		if svc.Quantity == 0 {
			svc.Quantity = 1
		}
		if svc.Quantity < 1 {
			return nil, invalid(field+".quantity", "must be at least 1")
		}
		if svc.UnitPrice < 0 {
			return nil, invalid(field+".unitPrice", "must not be negative")
		}
		svc.Name = name
		svc.ServiceID = strings.TrimSpace(svc.ServiceID)
		svc.Description = textutil.Sanitize(svc.Description)
		out = append(out, svc)
	}
	return out, nil
}

func validateAdjustments(discount domain.DiscountSpec, vat *float64) error {
	if discount.Percentage < 0 || discount.Percentage > 100 {
		return invalid("discount.percentage", "must be between 0 and 100")
	}
	if discount.Amount < 0 {
		return invalid("discount.amount", "must not be negative")
	}
	if vat != nil && (*vat < 0 || *vat > 100) {
		return invalid("vatPercentage", "must be between 0 and 100")
	}
	return nil
}

func normalizeTerms(t *domain.QuoteTerms) (domain.QuoteTerms, error) {
	if t == nil {
		return domain.QuoteTerms{ValidityDays: defaultQuoteValidityDays}, nil
	}
	terms := domain.QuoteTerms{
		ValidityDays:       t.ValidityDays,
		PaymentTerms:       textutil.Sanitize(t.PaymentTerms),
		CancellationPolicy: textutil.Sanitize(t.CancellationPolicy),
		Notes:              textutil.Sanitize(t.Notes),
	}
	if terms.ValidityDays == 0 {
		terms.ValidityDays = defaultQuoteValidityDays
	}
	if terms.ValidityDays < 1 {
		return domain.QuoteTerms{}, invalid("terms.validityDays", "must be at least 1")
	}
	return terms, nil
}

func validQuoteStatus(status domain.QuoteStatus) bool {
	switch status {
	case domain.QuoteStatusDraft, domain.QuoteStatusSent, domain.QuoteStatusViewed,
		domain.QuoteStatusAccepted, domain.QuoteStatusRejected, domain.QuoteStatusExpired:
		return true
	}
	return false
}
