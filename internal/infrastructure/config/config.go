package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Rate cache backends.
const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
)

// Config holds all application configuration.
type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Pipeline
	ReferenceCurrency   string  `env:"REFERENCE_CURRENCY"    envDefault:"USD"`
	HighAmountThreshold float64 `env:"HIGH_AMOUNT_THRESHOLD" envDefault:"10000"`
	MappingFile         string  `env:"MAPPING_FILE"          envDefault:""`

	// Rate service
	FXAPIBase    string        `env:"FX_API_BASE"    envDefault:"https://api.frankfurter.dev/v1"`
	FXTimeout    time.Duration `env:"FX_TIMEOUT"     envDefault:"15s"`
	FXMaxRetries int           `env:"FX_MAX_RETRIES" envDefault:"3"`

	// Rate cache
	FXCacheBackend string        `env:"FX_CACHE_BACKEND" envDefault:"file"`
	FXCachePath    string        `env:"FX_CACHE_PATH"    envDefault:".fx_cache.json"`
	FXCacheTTL     time.Duration `env:"FX_CACHE_TTL"     envDefault:"0s"`

	// Redis
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`

	// Database (optional - leave empty to disable)
	DatabaseURL      string `env:"DATABASE_URL"       envDefault:""`
	DatabaseMaxConns int    `env:"DATABASE_MAX_CONNS" envDefault:"4"`
	DatabaseMinConns int    `env:"DATABASE_MIN_CONNS" envDefault:"1"`

	// Metrics (optional)
	MetricsAddr    string `env:"METRICS_ADDR"    envDefault:""`
	PushgatewayURL string `env:"PUSHGATEWAY_URL" envDefault:""`

	// Artifact mirror (optional)
	GCSBucket string `env:"GCS_BUCKET" envDefault:""`
	GCSPrefix string `env:"GCS_PREFIX" envDefault:""`
}

// Load loads configuration from environment variables, after applying any
// .env files given. A missing .env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values env cannot check on its own.
func (c *Config) Validate() error {
	switch c.FXCacheBackend {
	case CacheBackendFile, CacheBackendRedis:
	default:
		return fmt.Errorf("invalid FX_CACHE_BACKEND %q: want %q or %q", c.FXCacheBackend, CacheBackendFile, CacheBackendRedis)
	}
	if c.FXMaxRetries < 0 {
		return fmt.Errorf("invalid FX_MAX_RETRIES %d", c.FXMaxRetries)
	}
	if len(c.ReferenceCurrency) != 3 {
		return fmt.Errorf("invalid REFERENCE_CURRENCY %q", c.ReferenceCurrency)
	}
	return nil
}
