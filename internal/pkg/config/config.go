package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type Config struct {
	Port         string        `env:"PORT,          default=8080"`
	Env          string        `env:"ENV,           default=development"`
	LogLevel     string        `env:"LOG_LEVEL,     default=info"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT, default=5s"`
	AuditWorkers int           `env:"AUDIT_WORKERS, default=4"`

	JWT       JWTConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Throttle  ThrottleConfig
}

type JWTConfig struct {
	Secret        string        `env:"JWT_SECRET"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_TTL,  default=15m"`
	RefreshTTL    time.Duration `env:"JWT_REFRESH_TTL, default=168h"`
	BcryptCost    int           `env:"BCRYPT_COST,     default=12"`
	TokenHashCost int           `env:"TOKEN_HASH_COST, default=10"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_service"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,       default=0"`
	CacheTTL time.Duration `env:"USER_CACHE_TTL, default=1m"`
}

// RateLimitConfig bounds authenticated requests per principal.
type RateLimitConfig struct {
	Max              int           `env:"RATE_LIMIT_MAX,               default=20"`
	Window           time.Duration `env:"RATE_LIMIT_WINDOW,            default=1m"`
	SweepProbability float64       `env:"RATE_LIMIT_SWEEP_PROBABILITY, default=0.1"`
}

// ThrottleConfig bounds unauthenticated login and register attempts per IP.
type ThrottleConfig struct {
	PerMinute int `env:"LOGIN_THROTTLE_PER_MINUTE, default=30"`
	Burst     int `env:"LOGIN_THROTTLE_BURST,      default=10"`
}

// Load reads configuration from environment variables using go-envconfig and
// validates it. Any failure is fatal to the process.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith is Load with an explicit lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the process cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.JWT.Secret == "":
		return fmt.Errorf("%w: JWT_SECRET is required", domain.ErrConfiguration)
	case c.JWT.AccessTTL <= 0:
		return fmt.Errorf("%w: JWT_ACCESS_TTL must be positive", domain.ErrConfiguration)
	case c.JWT.RefreshTTL <= c.JWT.AccessTTL:
		return fmt.Errorf("%w: JWT_REFRESH_TTL must be longer than JWT_ACCESS_TTL", domain.ErrConfiguration)
	case c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0:
		return fmt.Errorf("%w: rate limit max and window must be positive", domain.ErrConfiguration)
	case c.RateLimit.SweepProbability < 0 || c.RateLimit.SweepProbability > 1:
		return fmt.Errorf("%w: RATE_LIMIT_SWEEP_PROBABILITY must be within [0,1]", domain.ErrConfiguration)
	}
	return nil
}

// IsDevelopment reports whether the process runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
