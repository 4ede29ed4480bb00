package di

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/tourdesk/backoffice/internal/platform/config"
	pfirestore "github.com/tourdesk/backoffice/internal/platform/firestore"
	"github.com/tourdesk/backoffice/internal/platform/idempotency"
	"github.com/tourdesk/backoffice/internal/platform/jobs"
	"github.com/tourdesk/backoffice/internal/platform/observability"
	"github.com/tourdesk/backoffice/internal/repositories"
	firestoreRepo "github.com/tourdesk/backoffice/internal/repositories/firestore"
	"github.com/tourdesk/backoffice/internal/repositories/memory"
	"github.com/tourdesk/backoffice/internal/repositories/mongostore"
	"github.com/tourdesk/backoffice/internal/services"
)

const (
	envPubSubEmulatorHost = "PUBSUB_EMULATOR_HOST"
	storeCheckTimeout     = 1500 * time.Millisecond
	pubsubCheckTimeout    = 2 * time.Second
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Tours        services.TourService
	TourVersions services.TourVersionService
	Quotes       services.QuoteService
	Counters     services.CounterService
	System       services.SystemService
}

// Container wires repositories, services, and messaging infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
	Engine       *services.PricingEngine
	Idempotency  idempotency.Store

	closers []func(context.Context) error
}

// Option customises container construction.
type Option func(*containerOptions)

type containerOptions struct {
	registry    repositories.Registry
	logger      *zap.Logger
	publisher   services.QuoteDeliveryPublisher
	clock       func() time.Time
	idGenerator func() string
	build       services.BuildInfo
	checks      []repositories.DependencyCheck
}

// WithRegistry supplies a pre-built repository registry instead of opening one from configuration.
func WithRegistry(reg repositories.Registry) Option {
	return func(o *containerOptions) {
		o.registry = reg
	}
}

// WithLogger sets the base logger handed to services and infrastructure.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDeliveryPublisher overrides the quote delivery publisher.
func WithDeliveryPublisher(publisher services.QuoteDeliveryPublisher) Option {
	return func(o *containerOptions) {
		o.publisher = publisher
	}
}

// WithClock overrides the time source shared by all services.
func WithClock(clock func() time.Time) Option {
	return func(o *containerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithIDGenerator overrides document id generation.
func WithIDGenerator(gen func() string) Option {
	return func(o *containerOptions) {
		o.idGenerator = gen
	}
}

// WithBuildInfo records the build metadata reported by the readiness probe.
func WithBuildInfo(build services.BuildInfo) Option {
	return func(o *containerOptions) {
		o.build = build
	}
}

// WithDependencyChecks appends readiness checks, e.g. for the secret fetcher.
func WithDependencyChecks(checks ...repositories.DependencyCheck) Option {
	return func(o *containerOptions) {
		o.checks = append(o.checks, checks...)
	}
}

// NewContainer constructs the runtime dependencies. Production wiring opens the configured store,
// while tests can supply an in-memory registry through WithRegistry.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	options := containerOptions{
		logger: zap.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	c := &Container{Config: cfg}

	reg := options.registry
	var provider *pfirestore.Provider
	if reg == nil {
		var err error
		reg, provider, err = OpenRegistry(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, reg.Close)
	}
	c.Repositories = reg

	if provider != nil {
		c.Idempotency = idempotency.NewFirestoreStore(provider, "")
	} else {
		c.Idempotency = idempotency.NewMemoryStore()
	}

	checks := []repositories.DependencyCheck{{
		Name:     "store",
		Timeout:  storeCheckTimeout,
		Critical: true,
		Check:    reg.Ping,
	}}

	publisher := options.publisher
	if publisher == nil && strings.TrimSpace(cfg.PubSub.DeliveryTopic) != "" {
		topic, closeTopic, err := openDeliveryTopic(ctx, cfg.PubSub)
		if err != nil {
			_ = c.Close(ctx)
			return nil, err
		}
		c.closers = append(c.closers, closeTopic)
		pub, err := jobs.NewPubSubDeliveryPublisher(topic)
		if err != nil {
			_ = c.Close(ctx)
			return nil, err
		}
		publisher = pub
		checks = append(checks, repositories.DependencyCheck{
			Name:    "pubsub",
			Timeout: pubsubCheckTimeout,
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s does not exist", topic.ID())
				}
				return nil
			},
		})
	}
	checks = append(checks, options.checks...)

	engine := services.NewPricingEngine(services.PricingEngineOptions{
		ClampDiscount:        cfg.Pricing.ClampDiscount,
		DefaultVATPercentage: &cfg.Pricing.DefaultVATPercentage,
	})
	c.Engine = engine

	svc, err := buildServices(reg, engine, publisher, checks, options)
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	c.Services = svc
	return c, nil
}

// Close releases repository clients and messaging resources in reverse order of acquisition.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// OpenRegistry connects the repository registry selected by the store driver. The Firestore provider
// is returned for infrastructure sharing the same database.
func OpenRegistry(ctx context.Context, cfg config.StoreConfig) (repositories.Registry, *pfirestore.Provider, error) {
	switch cfg.Driver {
	case config.StoreDriverFirestore, "":
		provider := pfirestore.NewProvider(cfg.Firestore)
		if _, err := provider.Client(ctx); err != nil {
			return nil, nil, fmt.Errorf("open firestore: %w", err)
		}
		reg, err := firestoreRepo.NewRegistry(provider)
		if err != nil {
			_ = provider.Close(ctx)
			return nil, nil, err
		}
		return reg, provider, nil
	case config.StoreDriverMongo:
		reg, err := mongostore.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo: %w", err)
		}
		return reg, nil, nil
	case config.StoreDriverMemory:
		return memory.NewRegistry(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func openDeliveryTopic(ctx context.Context, cfg config.PubSubConfig) (*pubsub.Topic, func(context.Context) error, error) {
	var opts []option.ClientOption
	if host := strings.TrimSpace(cfg.EmulatorHost); host != "" {
		if os.Getenv(envPubSubEmulatorHost) == "" {
			_ = os.Setenv(envPubSubEmulatorHost, host)
		}
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("open pubsub: %w", err)
	}
	topic := client.Topic(cfg.DeliveryTopic)
	closeFn := func(context.Context) error {
		topic.Stop()
		return client.Close()
	}
	return topic, closeFn, nil
}

func buildServices(reg repositories.Registry, engine *services.PricingEngine, publisher services.QuoteDeliveryPublisher, checks []repositories.DependencyCheck, opts containerOptions) (Services, error) {
	logger := observability.ServiceLogger(opts.logger.Named("services"))

	tourSvc, err := services.NewTourService(services.TourServiceDeps{
		Tours:       reg.Tours(),
		Clock:       opts.clock,
		IDGenerator: opts.idGenerator,
		Logger:      logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build tour service: %w", err)
	}

	versionSvc, err := services.NewTourVersionService(services.TourVersionServiceDeps{
		Tours:       reg.Tours(),
		Versions:    reg.TourVersions(),
		Clock:       opts.clock,
		IDGenerator: opts.idGenerator,
		Logger:      logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build tour version service: %w", err)
	}

	counterSvc, err := services.NewCounterService(services.CounterServiceDeps{
		Repository: reg.Counters(),
		Clock:      opts.clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build counter service: %w", err)
	}

	numbers, err := services.NewQuoteNumberGenerator(services.QuoteNumberGeneratorDeps{
		Counters: counterSvc,
		Quotes:   reg.Quotes(),
		Logger:   logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build quote number generator: %w", err)
	}

	quoteSvc, err := services.NewQuoteService(services.QuoteServiceDeps{
		Tours:       reg.Tours(),
		Versions:    reg.TourVersions(),
		Quotes:      reg.Quotes(),
		Numbers:     numbers,
		Engine:      engine,
		Publisher:   publisher,
		Clock:       opts.clock,
		IDGenerator: opts.idGenerator,
		Logger:      logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build quote service: %w", err)
	}

	healthRepo, err := repositories.NewDependencyHealthRepository(checks, repositories.WithDependencyClock(opts.clock))
	if err != nil {
		return Services{}, fmt.Errorf("build health repository: %w", err)
	}
	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: healthRepo,
		Clock:            opts.clock,
		Build:            opts.build,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}

	return Services{
		Tours:        tourSvc,
		TourVersions: versionSvc,
		Quotes:       quoteSvc,
		Counters:     counterSvc,
		System:       systemSvc,
	}, nil
}
