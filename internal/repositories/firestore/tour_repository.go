package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	"github.com/tourdesk/backoffice/internal/domain"
	pfirestore "github.com/tourdesk/backoffice/internal/platform/firestore"
	"github.com/tourdesk/backoffice/internal/platform/pagination"
	"github.com/tourdesk/backoffice/internal/repositories"
	"github.com/tourdesk/backoffice/internal/repositories/records"
)

const toursCollection = "tours"

// TourRepository persists tours in Firestore.
type TourRepository struct {
	base *pfirestore.BaseRepository[records.Tour]
}

var _ repositories.TourRepository = (*TourRepository)(nil)

// NewTourRepository constructs a Firestore-backed tour repository.
func NewTourRepository(provider *pfirestore.Provider) (*TourRepository, error) {
	if provider == nil {
		return nil, errors.New("tour repository requires firestore provider")
	}
	return &TourRepository{base: pfirestore.NewBaseRepository[records.Tour](provider, toursCollection)}, nil
}

func (r *TourRepository) Insert(ctx context.Context, tour domain.Tour) error {
	return r.base.Create(ctx, tour.ID, records.FromTour(tour))
}

func (r *TourRepository) Update(ctx context.Context, tour domain.Tour) error {
	return replaceDocument(ctx, r.base, "tours.update", tour.ID, records.FromTour(tour))
}

func (r *TourRepository) FindByID(ctx context.Context, tourID string) (domain.Tour, error) {
	doc, err := r.base.Get(ctx, tourID)
	if err != nil {
		return domain.Tour{}, err
	}
	doc.Data.ID = doc.ID
	return doc.Data.Domain(), nil
}

// List narrows by category and status in Firestore and applies search and ordering in memory.
func (r *TourRepository) List(ctx context.Context, filter repositories.TourFilter) (domain.Page[domain.Tour], error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Category != "" {
			q = q.Where("category", "==", string(filter.Category))
		}
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		return q
	})
	if err != nil {
		return domain.Page[domain.Tour]{}, err
	}

	tours := make([]domain.Tour, 0, len(docs))
	for _, doc := range docs {
		doc.Data.ID = doc.ID
		tour := doc.Data.Domain()
		if filter.Matches(tour) {
			tours = append(tours, tour)
		}
	}
	repositories.SortTours(tours)
	return pagination.Apply(tours, filter.Pagination)
}

func (r *TourRepository) Delete(ctx context.Context, tourID string) error {
	return r.base.Delete(ctx, tourID)
}
