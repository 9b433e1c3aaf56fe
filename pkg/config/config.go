// Package config is the single source of truth for environment-derived
// configuration. No other package calls os.Getenv directly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the aggregator process.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (audit/history store)
	Database DatabaseConfig

	// Redis (cache backend)
	Redis RedisConfig

	// Aggregator behavior, spec.md §6 "Configuration (environment)"
	Aggregator AggregatorConfig

	// Cache TTLs and jitter, spec.md §4.G
	Cache CacheConfig

	// Per-provider credentials, keyed by provider id
	ProviderCredentials map[string]ProviderCredential

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	Enabled bool
}

// AggregatorConfig holds fan-out and dispatch tunables, spec.md §4.E.
type AggregatorConfig struct {
	PerProviderTimeoutMS int
	MaxWorkers           int
	MaxAmount            string // decimal string cap on QuoteRequest.amount
}

// CacheConfig holds TTL and jitter tunables, spec.md §4.G.
type CacheConfig struct {
	QuoteTTLSeconds    int
	CorridorTTLSeconds int
	ProviderTTLSeconds int
	JitterMaxSeconds   int
}

// ProviderCredential holds an opaque credential blob for one provider,
// read from <ID>_API_KEY / <ID>_API_SECRET / <ID>_BASE_URL environment
// variables (e.g. GLOBALPAY_API_KEY). Adapters interpret their own fields.
type ProviderCredential struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// Known provider ids whose credentials are read eagerly at startup.
var knownProviderIDs = []string{"mockwire", "globalpay", "remitweb"}

// Load reads configuration from environment variables, best-effort
// loading a .env file first.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "remitquote"),
			User:            getEnv("DB_USER", "remitquote"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
			Enabled:         getEnvAsBool("DB_ENABLED", false),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Aggregator: AggregatorConfig{
			PerProviderTimeoutMS: getEnvAsInt("PER_PROVIDER_TIMEOUT_MS", 30000),
			MaxWorkers:           getEnvAsInt("AGGREGATOR_MAX_WORKERS", 32),
			MaxAmount:            getEnv("AGGREGATOR_MAX_AMOUNT", "1000000"),
		},

		Cache: CacheConfig{
			QuoteTTLSeconds:    getEnvAsInt("QUOTE_CACHE_TTL", 1800),
			CorridorTTLSeconds: getEnvAsInt("CORRIDOR_CACHE_TTL", 43200),
			ProviderTTLSeconds: getEnvAsInt("PROVIDER_CACHE_TTL", 86400),
			JitterMaxSeconds:   getEnvAsInt("JITTER_MAX_SECONDS", 300),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	cfg.ProviderCredentials = loadProviderCredentials()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}
	if c.Aggregator.MaxWorkers <= 0 {
		return fmt.Errorf("AGGREGATOR_MAX_WORKERS must be positive")
	}
	if c.Aggregator.PerProviderTimeoutMS <= 0 {
		return fmt.Errorf("PER_PROVIDER_TIMEOUT_MS must be positive")
	}
	return nil
}

func loadProviderCredentials() map[string]ProviderCredential {
	out := make(map[string]ProviderCredential, len(knownProviderIDs))
	for _, id := range knownProviderIDs {
		prefix := strings.ToUpper(id)
		out[id] = ProviderCredential{
			APIKey:    os.Getenv(prefix + "_API_KEY"),
			APISecret: os.Getenv(prefix + "_API_SECRET"),
			BaseURL:   os.Getenv(prefix + "_BASE_URL"),
		}
	}
	return out
}

func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
