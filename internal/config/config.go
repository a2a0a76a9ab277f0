package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Env      string `mapstructure:"PUB_ENV"`
	LogLevel string `mapstructure:"PUB_LOG_LEVEL"`
	HTTPAddr string `mapstructure:"PUB_HTTP_ADDR"`

	ShutdownTimeout time.Duration `mapstructure:"PUB_SHUTDOWN_TIMEOUT"`

	Database DBConfig       `mapstructure:",squash"`
	Cache    CacheConfig    `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type DBConfig struct {
	Type     string `mapstructure:"PUB_DB_TYPE"` // memory, postgres, sqlite
	DSN      string `mapstructure:"PUB_DB_DSN"`
	MaxConns int32  `mapstructure:"PUB_DB_MAX_CONNS"`
	Seed     bool   `mapstructure:"PUB_DB_SEED"`
}

type CacheConfig struct {
	RedisAddr string `mapstructure:"PUB_REDIS_ADDR"`
}

type SecurityConfig struct {
	RateLimitRPM       int      `mapstructure:"PUB_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string `mapstructure:"PUB_CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if resolved, err := filepath.Abs(path); err == nil {
			abs = resolved
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PUB_ENV", "dev")
	v.SetDefault("PUB_LOG_LEVEL", "")
	v.SetDefault("PUB_HTTP_ADDR", ":8080")
	v.SetDefault("PUB_SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("PUB_DB_TYPE", "memory")
	v.SetDefault("PUB_DB_DSN", "")
	v.SetDefault("PUB_DB_MAX_CONNS", 10)
	v.SetDefault("PUB_DB_SEED", false)
	v.SetDefault("PUB_REDIS_ADDR", "")
	v.SetDefault("PUB_RATE_LIMIT_RPM", 600)
	v.SetDefault("PUB_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")

	// Comma-separated lists
	if origins := v.GetString("PUB_CORS_ALLOWED_ORIGINS"); origins != "" {
		v.Set("PUB_CORS_ALLOWED_ORIGINS", splitList(origins))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Type = strings.ToLower(strings.TrimSpace(cfg.Database.Type))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) validate() error {
	switch c.Env {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid PUB_ENV %q (must be dev or prod)", c.Env)
	}
	switch c.Database.Type {
	case "memory":
	case "postgres", "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("PUB_DB_DSN is required for PUB_DB_TYPE=%s", c.Database.Type)
		}
	default:
		return fmt.Errorf("invalid PUB_DB_TYPE %q (must be memory, postgres, or sqlite)", c.Database.Type)
	}
	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("PUB_DB_MAX_CONNS must be positive")
	}
	if c.Security.RateLimitRPM <= 0 {
		return fmt.Errorf("PUB_RATE_LIMIT_RPM must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("PUB_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
