// Package postgres provides the PostgreSQL backend, backed by a pgx pool.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/howjmay/publicator/internal/db/backends/sqldb"
	"github.com/howjmay/publicator/internal/db/interfaces"
)

// SQLSTATE codes for constraint violations
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Config holds pool settings
type Config struct {
	DSN      string
	MaxConns int32
}

// NewDatabase creates a PostgreSQL database. The pool is opened on Connect.
func NewDatabase(cfg Config, logger *zap.SugaredLogger) *sqldb.Database {
	return sqldb.New(Dialect{}, opener(cfg), logger)
}

func opener(cfg Config) sqldb.Opener {
	return func(ctx context.Context) (*sql.DB, func(), error) {
		poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if cfg.MaxConns > 0 {
			poolConfig.MaxConns = cfg.MaxConns
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}

		return stdlib.OpenDBFromPool(pool), pool.Close, nil
	}
}

// Dialect implements sqldb.Dialect for PostgreSQL
type Dialect struct{}

// Name returns the goose dialect name
func (Dialect) Name() string { return "postgres" }

// MigrationsDir returns the migrations directory for PostgreSQL
func (Dialect) MigrationsDir() string { return "postgres" }

// Placeholder returns $n
func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// EncodeValue normalizes ints to int64 and times to UTC
func (Dialect) EncodeValue(field interfaces.FieldSchema, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case time.Time:
		return val.UTC(), nil
	}
	return v, nil
}

// DecodeValue converts values scanned by pgx back to the field's Go type
func (Dialect) DecodeValue(field interfaces.FieldSchema, v interface{}) (interface{}, error) {
	switch field.Type {
	case interfaces.TypeInt64:
		switch val := v.(type) {
		case int64:
			return val, nil
		case int32:
			return int64(val), nil
		}
	case interfaces.TypeString:
		switch val := v.(type) {
		case string:
			return val, nil
		case []byte:
			return string(val), nil
		}
	case interfaces.TypeBool:
		if val, ok := v.(bool); ok {
			return val, nil
		}
	case interfaces.TypeTime:
		if val, ok := v.(time.Time); ok {
			return val.UTC(), nil
		}
	}
	return nil, fmt.Errorf("unexpected %T for %s column", v, field.Type)
}

// TranslateError maps unique and foreign key violations to the interfaces
// sentinels
func (Dialect) TranslateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s", interfaces.ErrUniqueConstraint, pgErr.ConstraintName)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %s", interfaces.ErrForeignKeyConstraint, pgErr.ConstraintName)
	}
	return err
}
