package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/tourdesk/backoffice/internal/platform/firestore"
	"github.com/tourdesk/backoffice/internal/repositories"
)

// Registry wires every Firestore repository onto one shared provider.
type Registry struct {
	provider *pfirestore.Provider
	tours    *TourRepository
	versions *TourVersionRepository
	quotes   *QuoteRepository
	counters *CounterRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs the Firestore repositories.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	tours, err := NewTourRepository(provider)
	if err != nil {
		return nil, err
	}
	versions, err := NewTourVersionRepository(provider)
	if err != nil {
		return nil, err
	}
	quotes, err := NewQuoteRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{provider: provider, tours: tours, versions: versions, quotes: quotes, counters: counters}, nil
}

func (r *Registry) Tours() repositories.TourRepository               { return r.tours }
func (r *Registry) TourVersions() repositories.TourVersionRepository { return r.versions }
func (r *Registry) Quotes() repositories.QuoteRepository             { return r.quotes }
func (r *Registry) Counters() repositories.CounterRepository         { return r.counters }

func (r *Registry) Ping(ctx context.Context) error  { return r.provider.Ping(ctx) }
func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }
