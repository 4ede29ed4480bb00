package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tourdesk/backoffice/internal/repositories"
)

const quoteCounterID = "quotes:global"

var (
	// ErrCounterInvalidInput indicates the caller supplied invalid counter parameters.
	ErrCounterInvalidInput = errors.New("counter: invalid input")
	// ErrCounterExhausted indicates the requested counter cannot increment further due to max bounds.
	ErrCounterExhausted = errors.New("counter: exhausted")
)

// CounterGenerationOptions controls how counter values are incremented and formatted.
type CounterGenerationOptions struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
	Prefix       string
	Suffix       string
	PadLength    int
	Formatter    func(now time.Time, seq int64) string
}

// CounterValue is a generated sequence value and its formatted rendering.
type CounterValue struct {
	Value     int64
	Formatted string
}

// CounterService issues formatted sequence values.
type CounterService interface {
	Next(ctx context.Context, scope, name string, opts CounterGenerationOptions) (CounterValue, error)
}

// QuoteNumberGenerator issues unique quote numbers.
type QuoteNumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

// CounterServiceDeps bundles collaborators required to construct a counter service instance.
type CounterServiceDeps struct {
	Repository repositories.CounterRepository
	Clock      func() time.Time
}

type counterService struct {
	repo       repositories.CounterRepository
	clock      func() time.Time
	configMu   sync.Mutex
	configured map[string]counterConfigSignature
}

type counterConfigSignature struct {
	stepSet      bool
	step         int64
	maxSet       bool
	maxValue     int64
	initialSet   bool
	initialValue int64
}

// NewCounterService constructs a service that manages counter sequences on top of the repository.
func NewCounterService(deps CounterServiceDeps) (CounterService, error) {
	if deps.Repository == nil {
		return nil, errors.New("counter service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &counterService{
		repo: deps.Repository,
		clock: func() time.Time {
			return clock().UTC()
		},
		configured: make(map[string]counterConfigSignature),
	}, nil
}

func (s *counterService) Next(ctx context.Context, scope, name string, opts CounterGenerationOptions) (CounterValue, error) {
	scope = strings.TrimSpace(scope)
	name = strings.TrimSpace(name)
	if scope == "" {
		return CounterValue{}, fmt.Errorf("%w: scope is required", ErrCounterInvalidInput)
	}
	if name == "" {
		return CounterValue{}, fmt.Errorf("%w: name is required", ErrCounterInvalidInput)
	}

	counterID := scope + ":" + name
	if err := s.ensureConfiguration(ctx, counterID, opts); err != nil {
		return CounterValue{}, err
	}

	value, err := s.repo.Next(ctx, counterID, opts.Step)
	if err != nil {
		var counterErr *repositories.CounterError
		if errors.As(err, &counterErr) {
			switch counterErr.Code {
			case repositories.CounterErrorInvalidInput:
				return CounterValue{}, fmt.Errorf("%w: %s", ErrCounterInvalidInput, counterErr.Message)
			case repositories.CounterErrorExhausted:
				return CounterValue{}, fmt.Errorf("%w: %s", ErrCounterExhausted, counterErr.Message)
			}
		}
		return CounterValue{}, translateRepoError(err, "counter", counterID)
	}

	return CounterValue{Value: value, Formatted: s.formatValue(s.clock(), value, opts)}, nil
}

func (s *counterService) ensureConfiguration(ctx context.Context, counterID string, opts CounterGenerationOptions) error {
	signature := counterConfigSignature{}
	if opts.Step > 0 {
		signature.stepSet = true
		signature.step = opts.Step
	}
	if opts.MaxValue != nil {
		signature.maxSet = true
		signature.maxValue = *opts.MaxValue
	}
	if opts.InitialValue != nil {
		signature.initialSet = true
		signature.initialValue = *opts.InitialValue
	}

	s.configMu.Lock()
	defer s.configMu.Unlock()

	if existing, ok := s.configured[counterID]; ok && existing == signature {
		return nil
	}

	cfg := repositories.CounterConfig{}
	if signature.stepSet {
		cfg.Step = signature.step
	}
	if signature.maxSet {
		cfg.MaxValue = &signature.maxValue
	}
	if signature.initialSet {
		cfg.InitialValue = &signature.initialValue
	}

	if signature.stepSet || signature.maxSet || signature.initialSet {
		if err := s.repo.Configure(ctx, counterID, cfg); err != nil {
			return translateRepoError(err, "counter", counterID)
		}
	}
	s.configured[counterID] = signature
	return nil
}

func (s *counterService) formatValue(now time.Time, value int64, opts CounterGenerationOptions) string {
	if opts.Formatter != nil {
		return opts.Formatter(now, value)
	}
	formatted := strconv.FormatInt(value, 10)
	if opts.PadLength > 0 {
		formatted = fmt.Sprintf("%0*d", opts.PadLength, value)
	}
	return opts.Prefix + formatted + opts.Suffix
}

// QuoteNumberGeneratorDeps bundles collaborators of the quote number generator.
type QuoteNumberGeneratorDeps struct {
	Counters CounterService
	Quotes   repositories.QuoteRepository
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type quoteNumberGenerator struct {
	counters CounterService
	quotes   repositories.QuoteRepository
	logger   func(context.Context, string, map[string]any)

	seedMu sync.Mutex
	seed   *int64
}

// NewQuoteNumberGenerator constructs a generator backed by the global quote counter. The counter is
// seeded once per process with the number of stored quotes so existing data keeps its numbering.
func NewQuoteNumberGenerator(deps QuoteNumberGeneratorDeps) (QuoteNumberGenerator, error) {
	if deps.Counters == nil {
		return nil, errors.New("quote number generator: counter service is required")
	}
	if deps.Quotes == nil {
		return nil, errors.New("quote number generator: quote repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &quoteNumberGenerator{counters: deps.Counters, quotes: deps.Quotes, logger: logger}, nil
}

func (g *quoteNumberGenerator) Next(ctx context.Context) (string, error) {
	seed, err := g.seedValue(ctx)
	if err != nil {
		return "", err
	}
	scope, name, _ := strings.Cut(quoteCounterID, ":")
	value, err := g.counters.Next(ctx, scope, name, CounterGenerationOptions{
		Step:         1,
		InitialValue: &seed,
		Formatter:    FormatQuoteNumber,
	})
	if err != nil {
		return "", err
	}
	return value.Formatted, nil
}

func (g *quoteNumberGenerator) seedValue(ctx context.Context) (int64, error) {
	g.seedMu.Lock()
	defer g.seedMu.Unlock()
	if g.seed != nil {
		return *g.seed, nil
	}
	count, err := g.quotes.Count(ctx)
	if err != nil {
		return 0, translateRepoError(err, "quote", "")
	}
	g.seed = &count
	g.logger(ctx, "quote_number.seeded", map[string]any{"counterId": quoteCounterID, "existingQuotes": count})
	return count, nil
}
