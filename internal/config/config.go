package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	LLM           LLMConfig
	Pipeline      PipelineConfig
	Metrics       MetricsConfig
	Report        ReportConfig
	ObjectStore   ObjectStoreConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig selects the data source queries run against. Driver must
// be one of sqlite3, duckdb, or pgx.
type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// LLMConfig selects the generation backend. Provider is "openai" for any
// OpenAI-compatible endpoint or "ollama" for a local Ollama daemon.
type LLMConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type PipelineConfig struct {
	MaxRetries       int
	MaxResultRows    int
	EnableGuardrails bool
	StatementTimeout time.Duration
	MaxFetchRows     int
}

// MetricsConfig holds the composite-score weights as metric=weight pairs.
type MetricsConfig struct {
	Weights map[string]float64
}

type ReportConfig struct {
	OutputDir      string
	ArchiveEnabled bool
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type RateLimitConfig struct {
	Enabled   bool
	RedisAddr string
	PerMinute int
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("QUERYPILOT_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid QUERYPILOT_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "QUERYPILOT_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYPILOT_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYPILOT_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYPILOT_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_DB_DRIVER", &cfg.Database.Driver); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_DB_DSN", &cfg.Database.DSN); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYPILOT_DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYPILOT_DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYPILOT_DB_CONN_MAX_IDLE_TIME", &cfg.Database.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYPILOT_DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_LLM_PROVIDER", &cfg.LLM.Provider); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_LLM_BASE_URL", &cfg.LLM.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_LLM_API_KEY", &cfg.LLM.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_LLM_MODEL", &cfg.LLM.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "QUERYPILOT_LLM_TEMPERATURE", &cfg.LLM.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYPILOT_LLM_TIMEOUT", &cfg.LLM.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYPILOT_PIPELINE_MAX_RETRIES", &cfg.Pipeline.MaxRetries); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYPILOT_PIPELINE_MAX_RESULT_ROWS", &cfg.Pipeline.MaxResultRows); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYPILOT_PIPELINE_ENABLE_GUARDRAILS", &cfg.Pipeline.EnableGuardrails); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYPILOT_PIPELINE_STATEMENT_TIMEOUT", &cfg.Pipeline.StatementTimeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYPILOT_PIPELINE_MAX_FETCH_ROWS", &cfg.Pipeline.MaxFetchRows); err != nil {
		return Config{}, err
	}
	if err := applyWeights(lookup, "QUERYPILOT_METRIC_WEIGHTS", &cfg.Metrics.Weights); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_REPORT_OUTPUT_DIR", &cfg.Report.OutputDir); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYPILOT_REPORT_ARCHIVE_ENABLED", &cfg.Report.ArchiveEnabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYPILOT_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYPILOT_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYPILOT_RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_RATE_LIMIT_REDIS_ADDR", &cfg.RateLimit.RedisAddr); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYPILOT_RATE_LIMIT_PER_MINUTE", &cfg.RateLimit.PerMinute); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYPILOT_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "QUERYPILOT_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYPILOT_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYPILOT_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if !isValidDriver(cfg.Database.Driver) {
		return Config{}, fmt.Errorf("invalid QUERYPILOT_DB_DRIVER: %q", cfg.Database.Driver)
	}
	if !isValidProvider(cfg.LLM.Provider) {
		return Config{}, fmt.Errorf("invalid QUERYPILOT_LLM_PROVIDER: %q", cfg.LLM.Provider)
	}
	if cfg.Pipeline.MaxRetries < 1 || cfg.Pipeline.MaxRetries > 5 {
		return Config{}, fmt.Errorf("QUERYPILOT_PIPELINE_MAX_RETRIES must be between 1 and 5, got %d", cfg.Pipeline.MaxRetries)
	}
	if cfg.Pipeline.MaxResultRows < 1 {
		return Config{}, fmt.Errorf("QUERYPILOT_PIPELINE_MAX_RESULT_ROWS must be positive, got %d", cfg.Pipeline.MaxResultRows)
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.PerMinute < 1 {
		return Config{}, fmt.Errorf("QUERYPILOT_RATE_LIMIT_PER_MINUTE must be positive, got %d", cfg.RateLimit.PerMinute)
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "querypilot-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite3",
			DSN:             "file:querypilot.db?mode=ro",
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			BaseURL:     "http://localhost:11434",
			Model:       "codellama",
			Temperature: 0.1,
			Timeout:     5 * time.Minute,
		},
		Pipeline: PipelineConfig{
			MaxRetries:       3,
			MaxResultRows:    10000,
			EnableGuardrails: true,
			StatementTimeout: 30 * time.Second,
			MaxFetchRows:     10000,
		},
		Metrics: MetricsConfig{
			Weights: map[string]float64{},
		},
		Report: ReportConfig{
			OutputDir:      "reports",
			ArchiveEnabled: false,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "querypilot-reports",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:   false,
			RedisAddr: "localhost:6379",
			PerMinute: 10,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.RateLimit.Enabled = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func isValidDriver(driver string) bool {
	switch driver {
	case "sqlite3", "duckdb", "pgx":
		return true
	default:
		return false
	}
}

func isValidProvider(provider string) bool {
	switch provider {
	case "openai", "ollama":
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

// applyWeights parses "name=weight" pairs separated by commas, e.g.
// "exact_match=0.2,bleu=0.3". An empty value clears the weights so the
// scorer falls back to uniform weighting.
func applyWeights(lookup LookupFunc, key string, dst *map[string]float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	weights := map[string]float64{}
	if raw == "" {
		*dst = weights
		return nil
	}
	for _, pair := range strings.Split(raw, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			return fmt.Errorf("invalid %s: pair %q is not name=weight", key, pair)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if weight < 0 {
			return fmt.Errorf("invalid %s: weight for %q is negative", key, name)
		}
		weights[strings.TrimSpace(name)] = weight
	}
	*dst = weights
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
