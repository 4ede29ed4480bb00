package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/platform/pagination"
	"github.com/tourdesk/backoffice/internal/repositories"
	"github.com/tourdesk/backoffice/internal/repositories/records"
)

// TourRepository persists tours in MongoDB.
type TourRepository struct {
	coll *mongo.Collection
}

var _ repositories.TourRepository = (*TourRepository)(nil)

func (r *TourRepository) Insert(ctx context.Context, tour domain.Tour) error {
	return insert(ctx, r.coll, "tours.insert", records.FromTour(tour))
}

func (r *TourRepository) Update(ctx context.Context, tour domain.Tour) error {
	return replace(ctx, r.coll, "tours.update", "tour", tour.ID, records.FromTour(tour))
}

func (r *TourRepository) FindByID(ctx context.Context, tourID string) (domain.Tour, error) {
	rec, err := findByID[records.Tour](ctx, r.coll, "tours.get", "tour", tourID)
	if err != nil {
		return domain.Tour{}, err
	}
	return rec.Domain(), nil
}

func (r *TourRepository) List(ctx context.Context, filter repositories.TourFilter) (domain.Page[domain.Tour], error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = string(filter.Category)
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	searchClause(query, filter.Search)

	recs, err := findAll[records.Tour](ctx, r.coll, "tours.list", query)
	if err != nil {
		return domain.Page[domain.Tour]{}, err
	}
	tours := make([]domain.Tour, 0, len(recs))
	for _, rec := range recs {
		tours = append(tours, rec.Domain())
	}
	repositories.SortTours(tours)
	return pagination.Apply(tours, filter.Pagination)
}

func (r *TourRepository) Delete(ctx context.Context, tourID string) error {
	return deleteByID(ctx, r.coll, "tours.delete", "tour", tourID)
}
