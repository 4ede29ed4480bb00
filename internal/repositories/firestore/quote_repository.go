package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tourdesk/backoffice/internal/domain"
	pfirestore "github.com/tourdesk/backoffice/internal/platform/firestore"
	"github.com/tourdesk/backoffice/internal/platform/pagination"
	"github.com/tourdesk/backoffice/internal/repositories"
	"github.com/tourdesk/backoffice/internal/repositories/records"
)

const (
	quotesCollection       = "quotes"
	quoteNumbersCollection = "quoteNumbers"
)

// quoteNumberDocument reserves a quote number so two quotes can never share one.
type quoteNumberDocument struct {
	QuoteID   string    `firestore:"quoteId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// QuoteRepository persists quotes together with their quote number reservations.
type QuoteRepository struct {
	base    *pfirestore.BaseRepository[records.Quote]
	numbers *pfirestore.BaseRepository[quoteNumberDocument]
}

var _ repositories.QuoteRepository = (*QuoteRepository)(nil)

// NewQuoteRepository constructs a Firestore-backed quote repository.
func NewQuoteRepository(provider *pfirestore.Provider) (*QuoteRepository, error) {
	if provider == nil {
		return nil, errors.New("quote repository requires firestore provider")
	}
	return &QuoteRepository{
		base:    pfirestore.NewBaseRepository[records.Quote](provider, quotesCollection),
		numbers: pfirestore.NewBaseRepository[quoteNumberDocument](provider, quoteNumbersCollection),
	}, nil
}

// Insert creates the quote and its number reservation in one transaction.
func (r *QuoteRepository) Insert(ctx context.Context, quote domain.Quote) error {
	quoteRef, err := r.base.DocumentRef(ctx, quote.ID)
	if err != nil {
		return err
	}
	numberRef, err := r.numbers.DocumentRef(ctx, quote.QuoteNumber)
	if err != nil {
		return err
	}

	rec := records.FromQuote(quote)
	return r.base.Provider().RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(numberRef)
		switch status.Code(err) {
		case codes.OK:
			return pfirestore.NewConflictError("quotes.insert", fmt.Errorf("quote number %s already issued", quote.QuoteNumber))
		case codes.NotFound:
		default:
			return pfirestore.WrapError("quotes.insert", err)
		}
		if err := tx.Create(numberRef, quoteNumberDocument{QuoteID: quote.ID, CreatedAt: rec.CreatedAt}); err != nil {
			return err
		}
		return tx.Create(quoteRef, rec)
	})
}

func (r *QuoteRepository) Update(ctx context.Context, quote domain.Quote) error {
	return replaceDocument(ctx, r.base, "quotes.update", quote.ID, records.FromQuote(quote))
}

func (r *QuoteRepository) FindByID(ctx context.Context, quoteID string) (domain.Quote, error) {
	doc, err := r.base.Get(ctx, quoteID)
	if err != nil {
		return domain.Quote{}, err
	}
	doc.Data.ID = doc.ID
	return doc.Data.Domain(), nil
}

func (r *QuoteRepository) List(ctx context.Context, filter repositories.QuoteFilter) (domain.Page[domain.Quote], error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if id := strings.TrimSpace(filter.TourID); id != "" {
			q = q.Where("tourId", "==", id)
		}
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		return q
	})
	if err != nil {
		return domain.Page[domain.Quote]{}, err
	}

	quotes := make([]domain.Quote, 0, len(docs))
	for _, doc := range docs {
		doc.Data.ID = doc.ID
		quote := doc.Data.Domain()
		if filter.Matches(quote) {
			quotes = append(quotes, quote)
		}
	}
	repositories.SortQuotes(quotes)
	return pagination.Apply(quotes, filter.Pagination)
}

func (r *QuoteRepository) Count(ctx context.Context) (int64, error) {
	return r.base.Count(ctx)
}

// RecordView increments the view counter server side so concurrent views are never lost.
func (r *QuoteRepository) RecordView(ctx context.Context, quoteID string, viewedAt time.Time) (domain.Quote, error) {
	updates := []firestore.Update{
		{Path: "sentInfo.viewCount", Value: firestore.Increment(1)},
		{Path: "sentInfo.lastViewedAt", Value: viewedAt.UTC()},
	}
	if err := r.base.Update(ctx, quoteID, updates); err != nil {
		return domain.Quote{}, err
	}
	return r.FindByID(ctx, quoteID)
}

// Delete removes the quote and releases its number reservation.
func (r *QuoteRepository) Delete(ctx context.Context, quoteID string) error {
	quoteRef, err := r.base.DocumentRef(ctx, quoteID)
	if err != nil {
		return err
	}
	numbers, err := r.numbers.CollectionRef(ctx)
	if err != nil {
		return err
	}
	return r.base.Provider().RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snapshot, err := tx.Get(quoteRef)
		if err != nil {
			return pfirestore.WrapError("quotes.delete", err)
		}
		doc, err := pfirestore.DecodeSnapshot[records.Quote](snapshot)
		if err != nil {
			return err
		}
		if number := strings.TrimSpace(doc.Data.QuoteNumber); number != "" {
			if err := tx.Delete(numbers.Doc(number)); err != nil {
				return err
			}
		}
		return tx.Delete(quoteRef)
	})
}
