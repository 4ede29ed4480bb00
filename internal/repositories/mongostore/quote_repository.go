package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/platform/pagination"
	"github.com/tourdesk/backoffice/internal/repositories"
	"github.com/tourdesk/backoffice/internal/repositories/records"
)

// QuoteRepository persists quotes in MongoDB. The unique quoteNumber index rejects duplicate numbers.
type QuoteRepository struct {
	coll *mongo.Collection
}

var _ repositories.QuoteRepository = (*QuoteRepository)(nil)

func (r *QuoteRepository) Insert(ctx context.Context, quote domain.Quote) error {
	return insert(ctx, r.coll, "quotes.insert", records.FromQuote(quote))
}

func (r *QuoteRepository) Update(ctx context.Context, quote domain.Quote) error {
	return replace(ctx, r.coll, "quotes.update", "quote", quote.ID, records.FromQuote(quote))
}

func (r *QuoteRepository) FindByID(ctx context.Context, quoteID string) (domain.Quote, error) {
	rec, err := findByID[records.Quote](ctx, r.coll, "quotes.get", "quote", quoteID)
	if err != nil {
		return domain.Quote{}, err
	}
	return rec.Domain(), nil
}

func (r *QuoteRepository) List(ctx context.Context, filter repositories.QuoteFilter) (domain.Page[domain.Quote], error) {
	query := bson.M{}
	if id := strings.TrimSpace(filter.TourID); id != "" {
		query["tourId"] = id
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	searchClause(query, filter.Search)

	recs, err := findAll[records.Quote](ctx, r.coll, "quotes.list", query)
	if err != nil {
		return domain.Page[domain.Quote]{}, err
	}
	quotes := make([]domain.Quote, 0, len(recs))
	for _, rec := range recs {
		quotes = append(quotes, rec.Domain())
	}
	repositories.SortQuotes(quotes)
	return pagination.Apply(quotes, filter.Pagination)
}

func (r *QuoteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, wrapError("quotes.count", err)
	}
	return n, nil
}

func (r *QuoteRepository) RecordView(ctx context.Context, quoteID string, viewedAt time.Time) (domain.Quote, error) {
	update := bson.M{
		"$inc": bson.M{"sentInfo.viewCount": 1},
		"$set": bson.M{"sentInfo.lastViewedAt": viewedAt.UTC()},
	}
	var rec records.Quote
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": quoteID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Quote{}, repositories.NewNotFoundError("quotes.recordView", "quote", quoteID)
	}
	if err != nil {
		return domain.Quote{}, wrapError("quotes.recordView", err)
	}
	return rec.Domain(), nil
}

func (r *QuoteRepository) Delete(ctx context.Context, quoteID string) error {
	return deleteByID(ctx, r.coll, "quotes.delete", "quote", quoteID)
}
