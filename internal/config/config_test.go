package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.False(t, cfg.Database.Seed)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Equal(t, 600, cfg.Security.RateLimitRPM)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Security.CORSAllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PUB_ENV", "prod")
	t.Setenv("PUB_DB_TYPE", "SQLite")
	t.Setenv("PUB_DB_DSN", "/tmp/publicator.db")
	t.Setenv("PUB_DB_SEED", "true")
	t.Setenv("PUB_RATE_LIMIT_RPM", "30")
	t.Setenv("PUB_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("PUB_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "/tmp/publicator.db", cfg.Database.DSN)
	assert.True(t, cfg.Database.Seed)
	assert.Equal(t, 30, cfg.Security.RateLimitRPM)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSAllowedOrigins)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown db type", map[string]string{"PUB_DB_TYPE": "mongo"}, "PUB_DB_TYPE"},
		{"postgres without dsn", map[string]string{"PUB_DB_TYPE": "postgres"}, "PUB_DB_DSN"},
		{"zero rpm", map[string]string{"PUB_RATE_LIMIT_RPM": "0"}, "PUB_RATE_LIMIT_RPM"},
		{"bad env", map[string]string{"PUB_ENV": "staging"}, "PUB_ENV"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
