package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultEnvironment         = "local"
	defaultLogLevel            = "info"
	defaultStoreDriver         = StoreDriverFirestore
	defaultMongoDatabase       = "tourdesk"
	defaultVATPercentage       = 10.0
	defaultCalculatePerMinute  = 120
	defaultCalculateBurst      = 20
	defaultIdempotencyHeader   = "Idempotency-Key"
	defaultIdempotencyTTL      = 24 * time.Hour
	defaultIdempotencyRequired = false
)

// Supported persistence backends.
const (
	StoreDriverFirestore = "firestore"
	StoreDriverMongo     = "mongo"
	StoreDriverMemory    = "memory"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	App         AppConfig
	Server      ServerConfig
	Log         LogConfig
	Store       StoreConfig
	PubSub      PubSubConfig
	Pricing     PricingConfig
	RateLimits  RateLimitConfig
	CORS        CORSConfig
	Idempotency IdempotencyConfig
}

// AppConfig identifies the running build.
type AppConfig struct {
	Environment string
	Version     string
	CommitSHA   string
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Driver    string
	Firestore FirestoreConfig
	Mongo     MongoConfig
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// MongoConfig stores MongoDB connection parameters. URI may be a secret:// reference.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// PubSubConfig configures quote delivery dispatch. An empty DeliveryTopic disables publishing.
type PubSubConfig struct {
	ProjectID     string
	DeliveryTopic string
	EmulatorHost  string
}

// PricingConfig tunes the quote pricing engine.
type PricingConfig struct {
	ClampDiscount        bool
	DefaultVATPercentage float64
}

// RateLimitConfig controls request throttling on the quick calculation endpoint.
type RateLimitConfig struct {
	CalculatePerMinute int
	CalculateBurst     int
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header   string
	TTL      time.Duration
	Required bool
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// EnvironmentValues returns the effective key/value map after applying the same precedence as
// Load (dotenv < process env < explicit map). Callers use it to build the secret fetcher before
// calling Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := newLoaderOptions(opts)
	dotEnvValues, err := readDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(dotEnvValues))
	for key, value := range dotEnvValues {
		values[key] = value
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			values[key] = value
		}
	}
	for key, value := range options.envMap {
		values[key] = value
	}
	return values, nil
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and secret references.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)
	values, err := EnvironmentValues(opts...)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		value, ok := values[key]
		return strings.TrimSpace(value), ok
	}

	cfg := Config{
		App: AppConfig{
			Environment: strings.ToLower(stringWithDefault(lookup, "API_ENVIRONMENT", defaultEnvironment)),
			Version:     stringWithDefault(lookup, "API_BUILD_VERSION", "dev"),
			CommitSHA:   stringWithDefault(lookup, "API_BUILD_COMMIT_SHA", "unknown"),
		},
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Log: LogConfig{
			Level: strings.ToLower(stringWithDefault(lookup, "API_LOG_LEVEL", defaultLogLevel)),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(stringWithDefault(lookup, "API_STORE_DRIVER", defaultStoreDriver)),
			Firestore: FirestoreConfig{
				ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
				EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
			},
			Mongo: MongoConfig{
				URI:            stringWithDefault(lookup, "API_MONGO_URI", ""),
				Database:       stringWithDefault(lookup, "API_MONGO_DATABASE", defaultMongoDatabase),
				ConnectTimeout: durationWithDefault(lookup, "API_MONGO_CONNECT_TIMEOUT", 10*time.Second),
			},
		},
		PubSub: PubSubConfig{
			ProjectID:     stringWithDefault(lookup, "API_PUBSUB_PROJECT_ID", ""),
			DeliveryTopic: stringWithDefault(lookup, "API_DELIVERY_TOPIC", ""),
			EmulatorHost:  stringWithDefault(lookup, "API_PUBSUB_EMULATOR_HOST", ""),
		},
		Pricing: PricingConfig{
			ClampDiscount:        boolWithDefault(lookup, "API_PRICING_CLAMP_DISCOUNT", false),
			DefaultVATPercentage: floatWithDefault(lookup, "API_PRICING_DEFAULT_VAT", defaultVATPercentage),
		},
		RateLimits: RateLimitConfig{
			CalculatePerMinute: intWithDefault(lookup, "API_RATELIMIT_CALCULATE_PER_MIN", defaultCalculatePerMinute),
			CalculateBurst:     intWithDefault(lookup, "API_RATELIMIT_CALCULATE_BURST", defaultCalculateBurst),
		},
		CORS: CORSConfig{
			AllowedOrigins: csvWithDefault(lookup, "API_CORS_ALLOWED_ORIGINS"),
		},
		Idempotency: IdempotencyConfig{
			Header:   stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:      durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			Required: boolWithDefault(lookup, "API_IDEMPOTENCY_REQUIRED", defaultIdempotencyRequired),
		},
	}

	// Pub/Sub shares the Firestore project unless told otherwise.
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Store.Firestore.ProjectID
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	if cfg.Store.Driver == StoreDriverMongo {
		resolved, err := resolveSecret(ctx, cfg.Store.Mongo.URI, options.secret)
		if err != nil {
			return Config{}, err
		}
		cfg.Store.Mongo.URI = resolved
	}

	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	ref := strings.TrimSpace(value)
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return strings.TrimSpace(secret), nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	switch cfg.Store.Driver {
	case StoreDriverFirestore:
		if cfg.Store.Firestore.ProjectID == "" {
			missing = append(missing, "Store.Firestore.ProjectID")
		}
	case StoreDriverMongo:
		if cfg.Store.Mongo.URI == "" {
			missing = append(missing, "Store.Mongo.URI")
		}
		if cfg.Store.Mongo.Database == "" {
			missing = append(missing, "Store.Mongo.Database")
		}
	case StoreDriverMemory:
	default:
		missing = append(missing, "Store.Driver")
	}
	if cfg.PubSub.DeliveryTopic != "" && cfg.PubSub.ProjectID == "" {
		missing = append(missing, "PubSub.ProjectID")
	}
	if cfg.Pricing.DefaultVATPercentage < 0 || cfg.Pricing.DefaultVATPercentage > 100 {
		missing = append(missing, "Pricing.DefaultVATPercentage")
	}
	if cfg.RateLimits.CalculatePerMinute <= 0 {
		missing = append(missing, "RateLimits.CalculatePerMinute")
	}
	if cfg.RateLimits.CalculateBurst <= 0 {
		missing = append(missing, "RateLimits.CalculateBurst")
	}
	if cfg.Idempotency.Header == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "secret://")
}

func readDotEnv(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
