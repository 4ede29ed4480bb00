package repositories

import (
	"context"
	"time"

	"github.com/tourdesk/backoffice/internal/domain"
)

// Registry bundles the repositories of one store driver together with its lifecycle hooks.
type Registry interface {
	Tours() TourRepository
	TourVersions() TourVersionRepository
	Quotes() QuoteRepository
	Counters() CounterRepository
	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// TourRepository persists tours.
type TourRepository interface {
	Insert(ctx context.Context, tour domain.Tour) error
	Update(ctx context.Context, tour domain.Tour) error
	FindByID(ctx context.Context, tourID string) (domain.Tour, error)
	List(ctx context.Context, filter TourFilter) (domain.Page[domain.Tour], error)
	Delete(ctx context.Context, tourID string) error
}

// TourVersionRepository persists tour versions.
type TourVersionRepository interface {
	Insert(ctx context.Context, version domain.TourVersion) error
	Update(ctx context.Context, version domain.TourVersion) error
	FindByID(ctx context.Context, versionID string) (domain.TourVersion, error)
	List(ctx context.Context, filter TourVersionFilter) (domain.Page[domain.TourVersion], error)
	// ListSiblings returns every version of tourID whose stored status is one of statuses.
	ListSiblings(ctx context.Context, tourID string, statuses []domain.VersionStatus) ([]domain.TourVersion, error)
	Delete(ctx context.Context, versionID string) error
}

// QuoteRepository persists quotes. Insert rejects a duplicate quote number with a conflict.
type QuoteRepository interface {
	Insert(ctx context.Context, quote domain.Quote) error
	Update(ctx context.Context, quote domain.Quote) error
	FindByID(ctx context.Context, quoteID string) (domain.Quote, error)
	List(ctx context.Context, filter QuoteFilter) (domain.Page[domain.Quote], error)
	Count(ctx context.Context) (int64, error)
	// RecordView atomically increments the view counter and stamps lastViewedAt.
	RecordView(ctx context.Context, quoteID string, viewedAt time.Time) (domain.Quote, error)
	Delete(ctx context.Context, quoteID string) error
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// CounterConfig customises increment behaviour and bounds for a counter. InitialValue only ever
// raises the stored value, so seeding cannot rewind a live sequence.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}

// TourFilter narrows tour listings. Zero values match everything.
type TourFilter struct {
	Category   domain.TourCategory
	Status     domain.TourStatus
	Search     string
	Pagination domain.Pagination
}

// TourVersionFilter narrows version listings.
type TourVersionFilter struct {
	TourID      string
	VersionType domain.VersionType
	Status      domain.VersionStatus
	Pagination  domain.Pagination
}

// QuoteFilter narrows quote listings.
type QuoteFilter struct {
	TourID     string
	Status     domain.QuoteStatus
	Search     string
	Pagination domain.Pagination
}
