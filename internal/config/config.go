package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MinSigningKeyBytes is the smallest HMAC key accepted for HS256 tokens.
const MinSigningKeyBytes = 32

// Config holds the application configuration.
type Config struct {
	ServerPort int    `env:"PORT"     envDefault:"8080"`
	AppEnv     string `env:"APP_ENV"  envDefault:"development"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	Database DatabaseConfig
	JWT      JWTConfig
	Cache    CacheConfig
	HTTP     HTTPConfig
	Events   EventsConfig

	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
	// AdminUsernames are granted the ADMIN role at startup if they exist.
	AdminUsernames []string `env:"ADMIN_USERNAMES" envSeparator:","`
}

// DatabaseConfig selects the SQL driver and its data source.
type DatabaseConfig struct {
	// Driver is "sqlite" (modernc) or "pgx" (PostgreSQL).
	Driver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	URL    string `env:"DATABASE_URL"    envDefault:"./accounts.db"`
}

// JWTConfig carries the token signing settings. Secret is base64 encoded.
type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET,required"`
	Expiration time.Duration `env:"JWT_EXPIRATION" envDefault:"24h"`
}

// CacheConfig configures the user cache. An empty RedisAddr selects the
// in-process LRU.
type CacheConfig struct {
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB"   envDefault:"0"`
	TTL           time.Duration `env:"CACHE_TTL"  envDefault:"10m"`
	Size          int           `env:"CACHE_SIZE" envDefault:"1024"`
}

// HTTPConfig holds HTTP server tuning.
type HTTPConfig struct {
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT"    envDefault:"10s"`
	WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT"   envDefault:"15s"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"      envDefault:"5s"`
}

// EventsConfig controls retention of the account event log.
type EventsConfig struct {
	Retention     time.Duration `env:"EVENT_RETENTION"      envDefault:"720h"`
	PruneSchedule string        `env:"EVENT_PRUNE_SCHEDULE" envDefault:"@daily"`
}

// Load loads configuration from environment variables, reading an optional
// .env file first. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values env parsing cannot.
func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid PORT %d", c.ServerPort)
	}
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	if c.JWT.Expiration <= 0 {
		return errors.New("JWT_EXPIRATION must be positive")
	}
	if c.Events.Retention <= 0 {
		return errors.New("EVENT_RETENTION must be positive")
	}
	if _, err := c.SigningKey(); err != nil {
		return err
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = 1024
	}
	return nil
}

// SigningKey decodes the base64 JWT secret.
func (c *Config) SigningKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.JWT.Secret)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET is not valid base64: %w", err)
	}
	if len(key) < MinSigningKeyBytes {
		return nil, fmt.Errorf("JWT_SECRET must decode to at least %d bytes, got %d", MinSigningKeyBytes, len(key))
	}
	return key, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
