package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	"github.com/tourdesk/backoffice/internal/domain"
	pfirestore "github.com/tourdesk/backoffice/internal/platform/firestore"
	"github.com/tourdesk/backoffice/internal/platform/pagination"
	"github.com/tourdesk/backoffice/internal/repositories"
	"github.com/tourdesk/backoffice/internal/repositories/records"
)

const tourVersionsCollection = "tourVersions"

// TourVersionRepository persists tour versions in a top-level collection keyed by version ID.
type TourVersionRepository struct {
	base *pfirestore.BaseRepository[records.TourVersion]
}

var _ repositories.TourVersionRepository = (*TourVersionRepository)(nil)

// NewTourVersionRepository constructs a Firestore-backed version repository.
func NewTourVersionRepository(provider *pfirestore.Provider) (*TourVersionRepository, error) {
	if provider == nil {
		return nil, errors.New("tour version repository requires firestore provider")
	}
	return &TourVersionRepository{base: pfirestore.NewBaseRepository[records.TourVersion](provider, tourVersionsCollection)}, nil
}

func (r *TourVersionRepository) Insert(ctx context.Context, version domain.TourVersion) error {
	return r.base.Create(ctx, version.ID, records.FromTourVersion(version))
}

func (r *TourVersionRepository) Update(ctx context.Context, version domain.TourVersion) error {
	return replaceDocument(ctx, r.base, "tourVersions.update", version.ID, records.FromTourVersion(version))
}

func (r *TourVersionRepository) FindByID(ctx context.Context, versionID string) (domain.TourVersion, error) {
	doc, err := r.base.Get(ctx, versionID)
	if err != nil {
		return domain.TourVersion{}, err
	}
	doc.Data.ID = doc.ID
	return doc.Data.Domain(), nil
}

func (r *TourVersionRepository) List(ctx context.Context, filter repositories.TourVersionFilter) (domain.Page[domain.TourVersion], error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if id := strings.TrimSpace(filter.TourID); id != "" {
			q = q.Where("tourId", "==", id)
		}
		if filter.VersionType != "" {
			q = q.Where("versionType", "==", string(filter.VersionType))
		}
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		return q
	})
	if err != nil {
		return domain.Page[domain.TourVersion]{}, err
	}

	versions := make([]domain.TourVersion, 0, len(docs))
	for _, doc := range docs {
		doc.Data.ID = doc.ID
		version := doc.Data.Domain()
		if filter.Matches(version) {
			versions = append(versions, version)
		}
	}
	repositories.SortVersions(versions)
	return pagination.Apply(versions, filter.Pagination)
}

func (r *TourVersionRepository) ListSiblings(ctx context.Context, tourID string, statuses []domain.VersionStatus) ([]domain.TourVersion, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("tourId", "==", strings.TrimSpace(tourID))
		if len(statuses) > 0 {
			values := make([]string, len(statuses))
			for i, s := range statuses {
				values[i] = string(s)
			}
			q = q.Where("status", "in", values)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	versions := make([]domain.TourVersion, 0, len(docs))
	for _, doc := range docs {
		doc.Data.ID = doc.ID
		versions = append(versions, doc.Data.Domain())
	}
	return versions, nil
}

func (r *TourVersionRepository) Delete(ctx context.Context, versionID string) error {
	return r.base.Delete(ctx, versionID)
}
