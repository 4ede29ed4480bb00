// Package memory provides in-process repositories used by tests and single-node development runs.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/platform/pagination"
	"github.com/tourdesk/backoffice/internal/repositories"
)

// Registry holds every in-memory repository behind one lock per collection.
type Registry struct {
	tours    *TourRepository
	versions *TourVersionRepository
	quotes   *QuoteRepository
	counters *CounterRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry returns an empty in-memory store.
func NewRegistry() *Registry {
	return &Registry{
		tours:    NewTourRepository(),
		versions: NewTourVersionRepository(),
		quotes:   NewQuoteRepository(),
		counters: NewCounterRepository(),
	}
}

func (r *Registry) Tours() repositories.TourRepository               { return r.tours }
func (r *Registry) TourVersions() repositories.TourVersionRepository { return r.versions }
func (r *Registry) Quotes() repositories.QuoteRepository             { return r.quotes }
func (r *Registry) Counters() repositories.CounterRepository         { return r.counters }
func (r *Registry) Ping(context.Context) error                       { return nil }
func (r *Registry) Close(context.Context) error                      { return nil }

// TourRepository keeps tours in a map keyed by ID.
type TourRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Tour
}

// NewTourRepository returns an empty tour repository.
func NewTourRepository() *TourRepository {
	return &TourRepository{items: make(map[string]domain.Tour)}
}

func (r *TourRepository) Insert(_ context.Context, tour domain.Tour) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[tour.ID]; ok {
		return repositories.NewConflictError("tours.insert", fmt.Errorf("tour %q already exists", tour.ID))
	}
	r.items[tour.ID] = tour
	return nil
}

func (r *TourRepository) Update(_ context.Context, tour domain.Tour) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[tour.ID]; !ok {
		return repositories.NewNotFoundError("tours.update", "tour", tour.ID)
	}
	r.items[tour.ID] = tour
	return nil
}

func (r *TourRepository) FindByID(_ context.Context, tourID string) (domain.Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tour, ok := r.items[tourID]
	if !ok {
		return domain.Tour{}, repositories.NewNotFoundError("tours.get", "tour", tourID)
	}
	return tour, nil
}

func (r *TourRepository) List(_ context.Context, filter repositories.TourFilter) (domain.Page[domain.Tour], error) {
	r.mu.RLock()
	tours := make([]domain.Tour, 0, len(r.items))
	for _, tour := range r.items {
		if filter.Matches(tour) {
			tours = append(tours, tour)
		}
	}
	r.mu.RUnlock()
	repositories.SortTours(tours)
	return pagination.Apply(tours, filter.Pagination)
}

func (r *TourRepository) Delete(_ context.Context, tourID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[tourID]; !ok {
		return repositories.NewNotFoundError("tours.delete", "tour", tourID)
	}
	delete(r.items, tourID)
	return nil
}

// TourVersionRepository keeps versions in a map keyed by ID.
type TourVersionRepository struct {
	mu    sync.RWMutex
	items map[string]domain.TourVersion
}

// NewTourVersionRepository returns an empty tour version repository.
func NewTourVersionRepository() *TourVersionRepository {
	return &TourVersionRepository{items: make(map[string]domain.TourVersion)}
}

func (r *TourVersionRepository) Insert(_ context.Context, version domain.TourVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[version.ID]; ok {
		return repositories.NewConflictError("tourVersions.insert", fmt.Errorf("version %q already exists", version.ID))
	}
	r.items[version.ID] = version
	return nil
}

func (r *TourVersionRepository) Update(_ context.Context, version domain.TourVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[version.ID]; !ok {
		return repositories.NewNotFoundError("tourVersions.update", "tour version", version.ID)
	}
	r.items[version.ID] = version
	return nil
}

func (r *TourVersionRepository) FindByID(_ context.Context, versionID string) (domain.TourVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	version, ok := r.items[versionID]
	if !ok {
		return domain.TourVersion{}, repositories.NewNotFoundError("tourVersions.get", "tour version", versionID)
	}
	return version, nil
}

func (r *TourVersionRepository) List(_ context.Context, filter repositories.TourVersionFilter) (domain.Page[domain.TourVersion], error) {
	r.mu.RLock()
	versions := make([]domain.TourVersion, 0, len(r.items))
	for _, version := range r.items {
		if filter.Matches(version) {
			versions = append(versions, version)
		}
	}
	r.mu.RUnlock()
	repositories.SortVersions(versions)
	return pagination.Apply(versions, filter.Pagination)
}

func (r *TourVersionRepository) ListSiblings(_ context.Context, tourID string, statuses []domain.VersionStatus) ([]domain.TourVersion, error) {
	tourID = strings.TrimSpace(tourID)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.TourVersion
	for _, version := range r.items {
		if version.TourID != tourID {
			continue
		}
		if len(statuses) > 0 && !repositories.ContainsStatus(statuses, version.Status) {
			continue
		}
		out = append(out, version)
	}
	repositories.SortVersions(out)
	return out, nil
}

func (r *TourVersionRepository) Delete(_ context.Context, versionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[versionID]; !ok {
		return repositories.NewNotFoundError("tourVersions.delete", "tour version", versionID)
	}
	delete(r.items, versionID)
	return nil
}

// QuoteRepository keeps quotes in a map and indexes quote numbers for uniqueness.
type QuoteRepository struct {
	mu      sync.RWMutex
	items   map[string]domain.Quote
	numbers map[string]string
}

// NewQuoteRepository returns an empty quote repository with its quote number index.
func NewQuoteRepository() *QuoteRepository {
	return &QuoteRepository{items: make(map[string]domain.Quote), numbers: make(map[string]string)}
}

func (r *QuoteRepository) Insert(_ context.Context, quote domain.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[quote.ID]; ok {
		return repositories.NewConflictError("quotes.insert", fmt.Errorf("quote %q already exists", quote.ID))
	}
	if _, ok := r.numbers[quote.QuoteNumber]; ok {
		return repositories.NewConflictError("quotes.insert", fmt.Errorf("quote number %s already issued", quote.QuoteNumber))
	}
	r.items[quote.ID] = quote
	r.numbers[quote.QuoteNumber] = quote.ID
	return nil
}

func (r *QuoteRepository) Update(_ context.Context, quote domain.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[quote.ID]; !ok {
		return repositories.NewNotFoundError("quotes.update", "quote", quote.ID)
	}
	r.items[quote.ID] = quote
	return nil
}

func (r *QuoteRepository) FindByID(_ context.Context, quoteID string) (domain.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	quote, ok := r.items[quoteID]
	if !ok {
		return domain.Quote{}, repositories.NewNotFoundError("quotes.get", "quote", quoteID)
	}
	return quote, nil
}

func (r *QuoteRepository) List(_ context.Context, filter repositories.QuoteFilter) (domain.Page[domain.Quote], error) {
	r.mu.RLock()
	quotes := make([]domain.Quote, 0, len(r.items))
	for _, quote := range r.items {
		if filter.Matches(quote) {
			quotes = append(quotes, quote)
		}
	}
	r.mu.RUnlock()
	repositories.SortQuotes(quotes)
	return pagination.Apply(quotes, filter.Pagination)
}

func (r *QuoteRepository) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func (r *QuoteRepository) RecordView(_ context.Context, quoteID string, viewedAt time.Time) (domain.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	quote, ok := r.items[quoteID]
	if !ok {
		return domain.Quote{}, repositories.NewNotFoundError("quotes.recordView", "quote", quoteID)
	}
	at := viewedAt.UTC()
	quote.SentInfo.ViewCount++
	quote.SentInfo.LastViewedAt = &at
	r.items[quoteID] = quote
	return quote, nil
}

func (r *QuoteRepository) Delete(_ context.Context, quoteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quote, ok := r.items[quoteID]
	if !ok {
		return repositories.NewNotFoundError("quotes.delete", "quote", quoteID)
	}
	delete(r.numbers, quote.QuoteNumber)
	delete(r.items, quoteID)
	return nil
}

type counterState struct {
	value    int64
	step     int64
	maxValue *int64
}

// CounterRepository serialises sequence increments behind a mutex.
type CounterRepository struct {
	mu       sync.Mutex
	counters map[string]*counterState
}

// NewCounterRepository returns a counter repository with no sequences allocated.
func NewCounterRepository() *CounterRepository {
	return &CounterRepository{counters: make(map[string]*counterState)}
}

func (r *CounterRepository) Next(_ context.Context, counterID string, step int64) (int64, error) {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return 0, repositories.NewCounterError("counters.next", repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}
	if step < 0 {
		return 0, repositories.NewCounterError("counters.next", repositories.CounterErrorInvalidInput, fmt.Sprintf("step must be positive, got %d", step), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.state(id)
	increment := step
	if increment <= 0 {
		increment = state.step
	}
	if increment <= 0 {
		increment = 1
	}
	next := state.value + increment
	if state.maxValue != nil && next > *state.maxValue {
		return 0, repositories.NewCounterError("counters.next", repositories.CounterErrorExhausted, fmt.Sprintf("counter %s exceeded max value %d", id, *state.maxValue), nil)
	}
	state.value = next
	return next, nil
}

func (r *CounterRepository) Configure(_ context.Context, counterID string, cfg repositories.CounterConfig) error {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return repositories.NewCounterError("counters.configure", repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.state(id)
	if cfg.Step > 0 {
		state.step = cfg.Step
	}
	if cfg.MaxValue != nil {
		limit := *cfg.MaxValue
		state.maxValue = &limit
	}
	state.value = cfg.RaiseTo(state.value)
	return nil
}

func (r *CounterRepository) state(id string) *counterState {
	state, ok := r.counters[id]
	if !ok {
		state = &counterState{}
		r.counters[id] = state
	}
	return state
}
