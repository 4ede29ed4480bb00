// Package mongostore implements the repositories on MongoDB for deployments outside Google Cloud.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tourdesk/backoffice/internal/platform/config"
	"github.com/tourdesk/backoffice/internal/repositories"
)

const (
	toursCollection        = "tours"
	tourVersionsCollection = "tourVersions"
	quotesCollection       = "quotes"
	countersCollection     = "counters"

	defaultConnectTimeout = 10 * time.Second
)

// Registry wires the MongoDB repositories onto one database handle.
type Registry struct {
	client   *mongo.Client
	db       *mongo.Database
	tours    *TourRepository
	versions *TourVersionRepository
	quotes   *QuoteRepository
	counters *CounterRepository
}

var _ repositories.Registry = (*Registry)(nil)

// Connect dials MongoDB, verifies the primary is reachable, and ensures the indexes exist.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Registry, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("mongostore: uri is required")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	registry := NewRegistry(client.Database(cfg.Database))
	registry.client = client
	if err := registry.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return registry, nil
}

// NewRegistry builds repositories over an existing database handle.
func NewRegistry(db *mongo.Database) *Registry {
	return &Registry{
		db:       db,
		tours:    &TourRepository{coll: db.Collection(toursCollection)},
		versions: &TourVersionRepository{coll: db.Collection(tourVersionsCollection)},
		quotes:   &QuoteRepository{coll: db.Collection(quotesCollection)},
		counters: &CounterRepository{coll: db.Collection(countersCollection), clock: time.Now},
	}
}

// EnsureIndexes creates the unique quote number index and the listing indexes.
func (r *Registry) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		quotesCollection: {
			{Keys: bson.D{{Key: "quoteNumber", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_quote_number")},
			{Keys: bson.D{{Key: "tourId", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("tour_status")},
		},
		tourVersionsCollection: {
			{Keys: bson.D{{Key: "tourId", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("tour_status")},
		},
		toursCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("category_status")},
		},
	}
	for name, models := range indexes {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return wrapError(name+".indexes", err)
		}
	}
	return nil
}

func (r *Registry) Tours() repositories.TourRepository               { return r.tours }
func (r *Registry) TourVersions() repositories.TourVersionRepository { return r.versions }
func (r *Registry) Quotes() repositories.QuoteRepository             { return r.quotes }
func (r *Registry) Counters() repositories.CounterRepository         { return r.counters }

// Ping checks the primary is reachable.
func (r *Registry) Ping(ctx context.Context) error {
	if err := r.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return wrapError("ping", err)
	}
	return nil
}

// Close disconnects the client opened by Connect.
func (r *Registry) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Disconnect(ctx)
}

// wrapError maps driver errors onto repository error kinds. Context cancellations pass through.
func wrapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, mongo.ErrNoDocuments):
		return repositories.NewNotFoundError(op, "document", "")
	case mongo.IsDuplicateKeyError(err):
		return repositories.NewConflictError(op, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return repositories.NewUnavailableError(op, err)
	default:
		return repositories.NewStoreError(op, err)
	}
}
