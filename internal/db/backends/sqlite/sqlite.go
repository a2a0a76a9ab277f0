// Package sqlite provides the SQLite backend on the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/howjmay/publicator/internal/db/backends/sqldb"
	"github.com/howjmay/publicator/internal/db/interfaces"
)

// timeLayout is fixed width so stored times order lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// NewDatabase creates a SQLite database for the file at path
func NewDatabase(path string, logger *zap.SugaredLogger) *sqldb.Database {
	return sqldb.New(Dialect{}, opener(path), logger)
}

func opener(path string) sqldb.Opener {
	return func(ctx context.Context) (*sql.DB, func(), error) {
		dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}

		// SQLite allows a single writer
		db.SetMaxOpenConns(1)

		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
		}
		for _, pragma := range pragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
			}
		}

		return db, nil, nil
	}
}

// Dialect implements sqldb.Dialect for SQLite
type Dialect struct{}

// Name returns the goose dialect name
func (Dialect) Name() string { return "sqlite3" }

// MigrationsDir returns the migrations directory for SQLite
func (Dialect) MigrationsDir() string { return "sqlite" }

// Placeholder returns ?
func (Dialect) Placeholder(int) string { return "?" }

// EncodeValue stores times as UTC text and bools as integers
func (Dialect) EncodeValue(field interfaces.FieldSchema, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case time.Time:
		return val.UTC().Format(timeLayout), nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return v, nil
}

// DecodeValue converts stored values back to the field's Go type
func (Dialect) DecodeValue(field interfaces.FieldSchema, v interface{}) (interface{}, error) {
	switch field.Type {
	case interfaces.TypeInt64:
		if val, ok := v.(int64); ok {
			return val, nil
		}
	case interfaces.TypeString:
		switch val := v.(type) {
		case string:
			return val, nil
		case []byte:
			return string(val), nil
		}
	case interfaces.TypeBool:
		if val, ok := v.(int64); ok {
			return val != 0, nil
		}
	case interfaces.TypeTime:
		switch val := v.(type) {
		case string:
			return time.Parse(timeLayout, val)
		case time.Time:
			return val.UTC(), nil
		}
	}
	return nil, fmt.Errorf("unexpected %T for %s column", v, field.Type)
}

// TranslateError maps unique and foreign key violations to the interfaces
// sentinels
func (Dialect) TranslateError(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch code := sqliteErr.Code(); {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %s", interfaces.ErrUniqueConstraint, sqliteErr.Error())
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, isRestrictViolation(code, sqliteErr.Error()):
		return fmt.Errorf("%w: %s", interfaces.ErrForeignKeyConstraint, sqliteErr.Error())
	}
	return err
}

// isRestrictViolation matches ON DELETE RESTRICT failures, which SQLite
// raises through its internal FK trigger as SQLITE_CONSTRAINT_TRIGGER
// (1811) instead of SQLITE_CONSTRAINT_FOREIGNKEY.
func isRestrictViolation(code int, msg string) bool {
	return code == sqlite3.SQLITE_CONSTRAINT_TRIGGER && strings.Contains(msg, "FOREIGN KEY constraint failed")
}
