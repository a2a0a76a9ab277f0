// Package sqldb implements the database interfaces on top of database/sql.
// The postgres and sqlite backends supply a Dialect and a way to open the
// connection; schema changes come from the goose migrations.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/howjmay/publicator/internal/db/interfaces"
	"github.com/howjmay/publicator/internal/db/query"
	"github.com/howjmay/publicator/migrations"
)

// Dialect extends the query dialect with what the backend needs to run
// migrations and map driver values and errors.
type Dialect interface {
	query.Dialect

	// Name is the goose dialect name
	Name() string

	// MigrationsDir is the directory inside migrations.FS holding the
	// dialect's migration files
	MigrationsDir() string

	// DecodeValue converts a scanned driver value back to the Go type of field
	DecodeValue(field interfaces.FieldSchema, v interface{}) (interface{}, error)

	// TranslateError maps constraint violations to the interfaces sentinels
	TranslateError(err error) error
}

// Opener opens the underlying connection. The returned release func, if not
// nil, is called after the *sql.DB is closed.
type Opener func(ctx context.Context) (*sql.DB, func(), error)

const healthTimeout = 2 * time.Second

// Database implements interfaces.Database for SQL backends
type Database struct {
	mu      sync.RWMutex
	db      *sql.DB
	release func()
	open    Opener
	dialect Dialect
	logger  *zap.SugaredLogger
}

// New creates a database that connects through open
func New(dialect Dialect, open Opener, logger *zap.SugaredLogger) *Database {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Database{
		open:    open,
		dialect: dialect,
		logger:  logger,
	}
}

// Connect opens and pings the connection
func (d *Database) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		return nil
	}

	db, release, err := d.open(ctx)
	if err != nil {
		return &interfaces.DatabaseError{Op: "connect", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if release != nil {
			release()
		}
		return &interfaces.DatabaseError{Op: "ping", Err: err}
	}

	d.db = db
	d.release = release
	d.logger.Infow("Connected to database", "dialect", d.dialect.Name())
	return nil
}

// Disconnect closes the connection
func (d *Database) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}

	err := d.db.Close()
	if d.release != nil {
		d.release()
	}
	d.db = nil
	d.release = nil
	d.logger.Infow("Disconnected from database", "dialect", d.dialect.Name())
	return err
}

// IsHealthy pings the database
func (d *Database) IsHealthy(ctx context.Context) bool {
	db, err := d.conn()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return db.PingContext(ctx) == nil
}

// DB exposes the underlying connection, nil before Connect
func (d *Database) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// Transaction runs fn inside a transaction. If ctx already carries one, it
// is reused and committing or rolling back is left to the outer call.
func (d *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	if outer, ok := getTx(ctx); ok {
		if outer.IsCompleted() {
			return interfaces.ErrTransactionCompleted
		}
		return fn(ctx, outer)
	}

	db, err := d.conn()
	if err != nil {
		return err
	}

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &interfaces.DatabaseError{Op: "begin", Err: err}
	}
	tx := &Transaction{tx: sqlTx}

	if err := fn(withTx(ctx, tx), tx); err != nil {
		if !tx.IsCompleted() {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				return fmt.Errorf("failed to rollback transaction after error %v: %w", err, rbErr)
			}
		}
		return err
	}

	if tx.IsCompleted() {
		return nil
	}
	if err := tx.Commit(ctx); err != nil {
		return d.dialect.TranslateError(err)
	}
	return nil
}

// Repository returns a repository for the given schema
func (d *Database) Repository(schema *interfaces.Schema) interfaces.Repository {
	return newRepository(d, schema)
}

// Migrate applies pending goose migrations and checks that a table exists
// for every schema.
func (d *Database) Migrate(ctx context.Context, schemas []*interfaces.Schema) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	if err := d.RunMigrations(ctx, "up"); err != nil {
		return err
	}

	for _, schema := range schemas {
		stmt := fmt.Sprintf("SELECT %s FROM %s WHERE 1=0", quoteColumns(schema.Columns()), query.QuoteIdent(schema.TableName))
		rows, err := db.QueryContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("table %s does not match its schema: %w", schema.TableName, err)
		}
		rows.Close()
	}

	d.logger.Infow("Migration completed", "dialect", d.dialect.Name(), "schemas", len(schemas))
	return nil
}

// RunMigrations runs a goose command against the embedded migrations of
// the dialect. Supported commands are up, down, redo, status and version.
func (d *Database) RunMigrations(ctx context.Context, command string) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{d.logger})
	if err := goose.SetDialect(d.dialect.Name()); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	dir := d.dialect.MigrationsDir()
	switch command {
	case "up":
		err = goose.UpContext(ctx, db, dir)
	case "down":
		err = goose.DownContext(ctx, db, dir)
	case "redo":
		err = goose.RedoContext(ctx, db, dir)
	case "status":
		err = goose.StatusContext(ctx, db, dir)
	case "version":
		err = goose.VersionContext(ctx, db, dir)
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
	if err != nil {
		return &interfaces.DatabaseError{Op: "migrate " + command, Err: err}
	}
	return nil
}

// Seed inserts initial data in a single transaction. A table that already
// holds rows is left untouched so seeding can run on every start.
func (d *Database) Seed(ctx context.Context, schema *interfaces.Schema, data []map[string]interface{}) error {
	repo := d.Repository(schema)
	return d.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		n, err := repo.Count(ctx, nil)
		if err != nil {
			return err
		}
		if n > 0 {
			d.logger.Infow("Skipping seed, table not empty", "table", schema.TableName, "rows", n)
			return nil
		}

		for i, record := range data {
			if _, err := repo.Create(ctx, record); err != nil {
				return fmt.Errorf("seed %s record %d: %w", schema.TableName, i, err)
			}
		}
		d.logger.Infow("Seeded records", "table", schema.TableName, "count", len(data))
		return nil
	})
}

func (d *Database) conn() (*sql.DB, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, interfaces.ErrDatabaseNotConnected
	}
	return d.db, nil
}

type gooseLogger struct {
	logger *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Infof(format, v...)
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatalf(format, v...)
}
