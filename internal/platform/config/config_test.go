package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "tourdesk-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Store.Driver != StoreDriverFirestore {
		t.Errorf("expected firestore driver by default, got %s", cfg.Store.Driver)
	}
	if cfg.PubSub.ProjectID != "tourdesk-dev" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.DeliveryTopic != "" {
		t.Errorf("expected delivery topic disabled by default, got %s", cfg.PubSub.DeliveryTopic)
	}
	if cfg.Pricing.ClampDiscount {
		t.Errorf("expected discount clamp disabled by default")
	}
	if cfg.Pricing.DefaultVATPercentage != 10 {
		t.Errorf("unexpected default vat: %v", cfg.Pricing.DefaultVATPercentage)
	}
	if cfg.RateLimits.CalculatePerMinute != defaultCalculatePerMinute {
		t.Errorf("unexpected default rate limit: %d", cfg.RateLimits.CalculatePerMinute)
	}
	if len(cfg.CORS.AllowedOrigins) != 0 {
		t.Errorf("expected no allowed origins, got %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.App.Environment != "local" {
		t.Errorf("expected default environment local, got %s", cfg.App.Environment)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("expected default idempotency header, got %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != defaultIdempotencyTTL {
		t.Errorf("unexpected default idempotency ttl: %s", cfg.Idempotency.TTL)
	}
	if cfg.Idempotency.Required {
		t.Errorf("expected idempotency key optional by default")
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_ENVIRONMENT":                 "PROD",
		"API_SERVER_PORT":                 "9090",
		"API_SERVER_READ_TIMEOUT":         "20s",
		"API_SERVER_WRITE_TIMEOUT":        "25s",
		"API_SERVER_IDLE_TIMEOUT":         "2m",
		"API_LOG_LEVEL":                   "DEBUG",
		"API_STORE_DRIVER":                "mongo",
		"API_MONGO_URI":                   "secret://mongo_uri",
		"API_MONGO_DATABASE":              "tours",
		"API_PUBSUB_PROJECT_ID":           "tourdesk-events",
		"API_DELIVERY_TOPIC":              "quote-deliveries",
		"API_PRICING_CLAMP_DISCOUNT":      "true",
		"API_PRICING_DEFAULT_VAT":         "8",
		"API_RATELIMIT_CALCULATE_PER_MIN": "30",
		"API_RATELIMIT_CALCULATE_BURST":   "5",
		"API_CORS_ALLOWED_ORIGINS":        "https://admin.example.vn, https://ops.example.vn",
		"API_IDEMPOTENCY_HEADER":          "X-Idem-Key",
		"API_IDEMPOTENCY_TTL":             "48h",
		"API_IDEMPOTENCY_REQUIRED":        "yes",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref == "secret://mongo_uri" {
			return "mongodb://db.internal:27017", nil
		}
		return "", errors.New("unknown secret")
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Environment != "prod" {
		t.Errorf("expected environment lower-cased, got %s", cfg.App.Environment)
	}
	if cfg.Server.Port != "9090" || cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Store.Mongo.URI != "mongodb://db.internal:27017" {
		t.Errorf("expected resolved mongo uri, got %s", cfg.Store.Mongo.URI)
	}
	if cfg.Store.Mongo.Database != "tours" {
		t.Errorf("unexpected mongo database %s", cfg.Store.Mongo.Database)
	}
	if cfg.PubSub.ProjectID != "tourdesk-events" || cfg.PubSub.DeliveryTopic != "quote-deliveries" {
		t.Errorf("unexpected pubsub config: %+v", cfg.PubSub)
	}
	if !cfg.Pricing.ClampDiscount || cfg.Pricing.DefaultVATPercentage != 8 {
		t.Errorf("unexpected pricing config: %+v", cfg.Pricing)
	}
	if cfg.RateLimits.CalculatePerMinute != 30 || cfg.RateLimits.CalculateBurst != 5 {
		t.Errorf("unexpected rate limits: %+v", cfg.RateLimits)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://ops.example.vn" {
		t.Errorf("unexpected cors origins: %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Idempotency.Header != "X-Idem-Key" || cfg.Idempotency.TTL != 48*time.Hour || !cfg.Idempotency.Required {
		t.Errorf("unexpected idempotency config: %+v", cfg.Idempotency)
	}
}

func TestLoadKeepsZeroVAT(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{
		"API_STORE_DRIVER":        "memory",
		"API_PRICING_DEFAULT_VAT": "0",
	}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Pricing.DefaultVATPercentage != 0 {
		t.Errorf("expected explicit 0%% VAT to be kept, got %v", cfg.Pricing.DefaultVATPercentage)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "# local settings\nAPI_STORE_DRIVER=memory\nexport API_SERVER_PORT=\"7070\"\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Driver != StoreDriverMemory {
		t.Errorf("expected memory driver from env file, got %s", cfg.Store.Driver)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from env file, got %s", cfg.Server.Port)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{
		"API_PRICING_DEFAULT_VAT": "150",
	}), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := vErr.Fields()
	want := map[string]bool{"Store.Firestore.ProjectID": false, "Pricing.DefaultVATPercentage": false}
	for _, f := range fields {
		if _, ok := want[f]; ok {
			want[f] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("expected %s in validation fields %v", name, fields)
		}
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{
		"API_STORE_DRIVER": "postgres",
	}), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if fields := vErr.Fields(); len(fields) != 1 || fields[0] != "Store.Driver" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	env := map[string]string{
		"API_STORE_DRIVER": "mongo",
		"API_MONGO_URI":    "secret://mongo_uri",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var sErr *SecretError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if sErr.Ref != "secret://mongo_uri" {
		t.Fatalf("unexpected ref %s", sErr.Ref)
	}
	if !errors.Is(err, errSecretResolverNotConfigured) {
		t.Fatalf("expected resolver not configured error, got %v", err)
	}
}

func TestEnvironmentValuesMergesSources(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "API_SERVER_PORT=7000\nAPI_LOG_LEVEL=warn\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	values, err := EnvironmentValues(
		WithoutSystemEnv(),
		WithEnvFile(envPath),
		WithEnvMap(map[string]string{"API_SERVER_PORT": "7100"}),
	)
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}
	if values["API_SERVER_PORT"] != "7100" {
		t.Fatalf("expected explicit map to win, got %s", values["API_SERVER_PORT"])
	}
	if values["API_LOG_LEVEL"] != "warn" {
		t.Fatalf("expected dotenv value, got %s", values["API_LOG_LEVEL"])
	}
}

func TestEnvironmentValuesMissingEnvFileIsIgnored(t *testing.T) {
	values, err := EnvironmentValues(WithoutSystemEnv(), WithEnvFile(filepath.Join(t.TempDir(), "absent.env")))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected no values, got %v", values)
	}
}
