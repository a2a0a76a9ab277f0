package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/howjmay/publicator/internal/db/backends/memory"
	"github.com/howjmay/publicator/internal/db/backends/postgres"
	"github.com/howjmay/publicator/internal/db/backends/sqldb"
	"github.com/howjmay/publicator/internal/db/backends/sqlite"
	"github.com/howjmay/publicator/internal/db/interfaces"
)

// Supported backend types
const (
	TypeMemory   = "memory"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// Config holds database configuration
type Config struct {
	Type     string // "memory", "postgres", "sqlite"
	DSN      string // postgres URL or sqlite file path
	MaxConns int32  // pool size for postgres
}

// NewDatabase creates a new database instance based on configuration
func NewDatabase(config *Config, logger *zap.SugaredLogger) (interfaces.Database, error) {
	if config == nil {
		config = &Config{Type: TypeMemory}
	}

	switch config.Type {
	case "", TypeMemory:
		logger.Infow("Using in-memory database")
		return memory.NewDatabase(logger), nil
	case TypePostgres, TypeSQLite:
		db, err := NewSQLDatabase(config, logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}
}

// NewSQLDatabase creates a postgres or sqlite database. Unlike NewDatabase
// it returns the concrete type so callers can drive migrations directly.
func NewSQLDatabase(config *Config, logger *zap.SugaredLogger) (*sqldb.Database, error) {
	switch config.Type {
	case TypePostgres:
		if config.DSN == "" {
			return nil, fmt.Errorf("postgres backend requires a DSN")
		}
		logger.Infow("Using PostgreSQL database", "max_conns", config.MaxConns)
		return postgres.NewDatabase(postgres.Config{DSN: config.DSN, MaxConns: config.MaxConns}, logger), nil
	case TypeSQLite:
		if config.DSN == "" {
			return nil, fmt.Errorf("sqlite backend requires a file path")
		}
		logger.Infow("Using SQLite database", "path", config.DSN)
		return sqlite.NewDatabase(config.DSN, logger), nil
	default:
		return nil, fmt.Errorf("not a SQL database type: %s", config.Type)
	}
}

// NewInMemoryDatabase creates a new in-memory database instance
func NewInMemoryDatabase(logger *zap.SugaredLogger) interfaces.Database {
	return memory.NewDatabase(logger)
}

// ConnectAndMigrate connects to the database and runs migrations
func ConnectAndMigrate(ctx context.Context, db interfaces.Database, schemas []*interfaces.Schema) error {
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if !db.IsHealthy(ctx) {
		return fmt.Errorf("database health check failed")
	}

	if err := db.Migrate(ctx, schemas); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
