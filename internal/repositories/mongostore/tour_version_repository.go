package mongostore

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/platform/pagination"
	"github.com/tourdesk/backoffice/internal/repositories"
	"github.com/tourdesk/backoffice/internal/repositories/records"
)

// TourVersionRepository persists tour versions in MongoDB.
type TourVersionRepository struct {
	coll *mongo.Collection
}

var _ repositories.TourVersionRepository = (*TourVersionRepository)(nil)

func (r *TourVersionRepository) Insert(ctx context.Context, version domain.TourVersion) error {
	return insert(ctx, r.coll, "tourVersions.insert", records.FromTourVersion(version))
}

func (r *TourVersionRepository) Update(ctx context.Context, version domain.TourVersion) error {
	return replace(ctx, r.coll, "tourVersions.update", "tour version", version.ID, records.FromTourVersion(version))
}

func (r *TourVersionRepository) FindByID(ctx context.Context, versionID string) (domain.TourVersion, error) {
	rec, err := findByID[records.TourVersion](ctx, r.coll, "tourVersions.get", "tour version", versionID)
	if err != nil {
		return domain.TourVersion{}, err
	}
	return rec.Domain(), nil
}

func (r *TourVersionRepository) List(ctx context.Context, filter repositories.TourVersionFilter) (domain.Page[domain.TourVersion], error) {
	query := bson.M{}
	if id := strings.TrimSpace(filter.TourID); id != "" {
		query["tourId"] = id
	}
	if filter.VersionType != "" {
		query["versionType"] = string(filter.VersionType)
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	recs, err := findAll[records.TourVersion](ctx, r.coll, "tourVersions.list", query)
	if err != nil {
		return domain.Page[domain.TourVersion]{}, err
	}
	versions := make([]domain.TourVersion, 0, len(recs))
	for _, rec := range recs {
		versions = append(versions, rec.Domain())
	}
	repositories.SortVersions(versions)
	return pagination.Apply(versions, filter.Pagination)
}

func (r *TourVersionRepository) ListSiblings(ctx context.Context, tourID string, statuses []domain.VersionStatus) ([]domain.TourVersion, error) {
	query := bson.M{"tourId": strings.TrimSpace(tourID)}
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		query["status"] = bson.M{"$in": values}
	}
	recs, err := findAll[records.TourVersion](ctx, r.coll, "tourVersions.siblings", query)
	if err != nil {
		return nil, err
	}
	versions := make([]domain.TourVersion, 0, len(recs))
	for _, rec := range recs {
		versions = append(versions, rec.Domain())
	}
	return versions, nil
}

func (r *TourVersionRepository) Delete(ctx context.Context, versionID string) error {
	return deleteByID(ctx, r.coll, "tourVersions.delete", "tour version", versionID)
}
