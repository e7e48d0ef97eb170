package config

import (
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	BGG         BGGConfig
	Redis       RedisConfig
	Cache       CacheConfig
	Aggregation AggregationConfig
	Warmer      WarmerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.BGG.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"BGGCOLLECTIONS_APP_ENV" default:"dev"`
	Port         string   `envconfig:"BGGCOLLECTIONS_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"BGGCOLLECTIONS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"BGGCOLLECTIONS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"BGGCOLLECTIONS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type BGGConfig struct {
	BaseURL     string        `envconfig:"BGGCOLLECTIONS_BGG_BASE_URL" default:"https://boardgamegeek.com/xmlapi2"`
	Token       string        `envconfig:"BGGCOLLECTIONS_BGG_TOKEN"`
	Timeout     time.Duration `envconfig:"BGGCOLLECTIONS_BGG_TIMEOUT" default:"30s"`
	MaxAttempts int           `envconfig:"BGGCOLLECTIONS_BGG_MAX_ATTEMPTS" default:"3"`
	RetryDelay  time.Duration `envconfig:"BGGCOLLECTIONS_BGG_RETRY_DELAY" default:"1s"`
	BatchSize   int           `envconfig:"BGGCOLLECTIONS_BGG_BATCH_SIZE" default:"20"`
}

func (b *BGGConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(b.BaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute url", EnvBGGBaseURL)
	}
	if b.BatchSize <= 0 {
		return fmt.Errorf("%s must be positive", EnvBGGBatchSize)
	}
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = 1
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"BGGCOLLECTIONS_REDIS_URL"`
	Address      string        `envconfig:"BGGCOLLECTIONS_REDIS_ADDR"`
	Password     string        `envconfig:"BGGCOLLECTIONS_REDIS_PASSWORD"`
	DB           int           `envconfig:"BGGCOLLECTIONS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BGGCOLLECTIONS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BGGCOLLECTIONS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BGGCOLLECTIONS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BGGCOLLECTIONS_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"BGGCOLLECTIONS_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a redis endpoint was configured. The metadata
// cache is optional.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type CacheConfig struct {
	MetadataTTL time.Duration `envconfig:"BGGCOLLECTIONS_CACHE_METADATA_TTL" default:"24h"`
}

type AggregationConfig struct {
	Workers int `envconfig:"BGGCOLLECTIONS_AGGREGATION_WORKERS" default:"0"`
}

// WorkerLimit returns the per-user task pool size, defaulting to the
// available parallelism.
func (a AggregationConfig) WorkerLimit() int {
	if a.Workers > 0 {
		return a.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// WarmerConfig drives the background job that keeps the metadata cache
// populated for the default usernames.
type WarmerConfig struct {
	Interval time.Duration `envconfig:"BGGCOLLECTIONS_WARMER_INTERVAL" default:"6h"`
	LockTTL  time.Duration `envconfig:"BGGCOLLECTIONS_WARMER_LOCK_TTL" default:"1h"`
}
