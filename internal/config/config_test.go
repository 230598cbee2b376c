package config

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSecret() string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", MinSigningKeyBytes)))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.AllowedOrigins)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Equal(t, 30*24*time.Hour, cfg.Events.Retention)
	assert.Equal(t, "@daily", cfg.Events.PruneSchedule)
	assert.Empty(t, cfg.AdminUsernames)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret())
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/accounts")
	t.Setenv("JWT_EXPIRATION", "15m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ADMIN_USERNAMES", "root,ops")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.JWT.Expiration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, []string{"root", "ops"}, cfg.AdminUsernames)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			ServerPort: 8080,
			Database:   DatabaseConfig{Driver: "sqlite"},
			JWT:        JWTConfig{Secret: validSecret(), Expiration: time.Hour},
			Cache:      CacheConfig{Size: 10},
			Events:     EventsConfig{Retention: time.Hour, PruneSchedule: "@daily"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.ServerPort = 0 }, wantErr: "invalid PORT"},
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "DATABASE_DRIVER"},
		{name: "non-positive expiration", mutate: func(c *Config) { c.JWT.Expiration = 0 }, wantErr: "JWT_EXPIRATION"},
		{name: "non-positive retention", mutate: func(c *Config) { c.Events.Retention = 0 }, wantErr: "EVENT_RETENTION"},
		{name: "not base64", mutate: func(c *Config) { c.JWT.Secret = "%%%" }, wantErr: "base64"},
		{
			name:    "short key",
			mutate:  func(c *Config) { c.JWT.Secret = base64.StdEncoding.EncodeToString([]byte("short")) },
			wantErr: "at least 32 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
