package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/howjmay/publicator/internal/db/interfaces"
)

type table struct {
	rows map[int64]map[string]interface{}
	seq  int64
}

func newTable() *table {
	return &table{rows: make(map[int64]map[string]interface{})}
}

func (t *table) clone() *table {
	c := &table{rows: make(map[int64]map[string]interface{}, len(t.rows)), seq: t.seq}
	for id, row := range t.rows {
		c.rows[id] = copyRecord(row)
	}
	return c
}

// Database implements the Database interface for in-memory storage.
// Transactions are serialized: txMu is held for the lifetime of a
// transaction and by every write made outside of one. Reads take only mu,
// so a read outside a transaction may observe rows another transaction
// later rolls back (read uncommitted).
type Database struct {
	mu        sync.RWMutex
	txMu      sync.Mutex
	tables    map[string]*table
	schemas   map[string]*interfaces.Schema
	connected bool
	logger    *zap.SugaredLogger
}

// NewDatabase creates a new in-memory database
func NewDatabase(logger *zap.SugaredLogger) *Database {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Database{
		tables:  make(map[string]*table),
		schemas: make(map[string]*interfaces.Schema),
		logger:  logger,
	}
}

// Connect establishes a connection to the database
func (db *Database) Connect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = true
	db.logger.Infow("Connected to in-memory database")
	return nil
}

// Disconnect drops all tables and marks the database as closed
func (db *Database) Disconnect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = false
	db.tables = make(map[string]*table)
	db.schemas = make(map[string]*interfaces.Schema)
	db.logger.Infow("Disconnected from in-memory database")
	return nil
}

// IsHealthy checks if the database connection is healthy
func (db *Database) IsHealthy(ctx context.Context) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.connected
}

// Transaction executes fn within a transaction. A nested call made with the
// ctx of an outer transaction runs inside the outer one.
func (db *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrDatabaseNotConnected
	}

	if outer := db.txFromContext(ctx); outer != nil {
		if outer.IsCompleted() {
			return interfaces.ErrTransactionCompleted
		}
		return fn(ctx, outer)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	tx := newTransaction(db)
	txCtx := context.WithValue(ctx, txKey{}, tx)

	if err := fn(txCtx, tx); err != nil {
		if !tx.IsCompleted() {
			_ = tx.Rollback(ctx)
		}
		return err
	}

	if tx.IsCompleted() {
		return nil
	}
	return tx.Commit(ctx)
}

// Repository returns a repository for the given schema
func (db *Database) Repository(schema *interfaces.Schema) interfaces.Repository {
	db.mu.Lock()
	db.register(schema)
	db.mu.Unlock()

	return NewRepository(db, schema)
}

// Migrate creates tables for the given schemas
func (db *Database) Migrate(ctx context.Context, schemas []*interfaces.Schema) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrDatabaseNotConnected
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, schema := range schemas {
		if _, exists := db.tables[schema.TableName]; !exists {
			db.logger.Infow("Created in-memory table", "table", schema.TableName)
		}
		db.register(schema)
	}

	db.logger.Infow("Migration completed", "schemas", len(schemas))
	return nil
}

// Seed inserts initial data in a single transaction. A table that already
// holds rows is left untouched.
func (db *Database) Seed(ctx context.Context, schema *interfaces.Schema, data []map[string]interface{}) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrDatabaseNotConnected
	}

	repo := db.Repository(schema)
	return db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		n, err := repo.Count(ctx, nil)
		if err != nil {
			return err
		}
		if n > 0 {
			db.logger.Infow("Skipping seed, table not empty", "table", schema.TableName, "rows", n)
			return nil
		}

		for i, record := range data {
			if _, err := repo.Create(ctx, record); err != nil {
				return fmt.Errorf("seed %s record %d: %w", schema.TableName, i, err)
			}
		}
		db.logger.Infow("Seeded records", "table", schema.TableName, "count", len(data))
		return nil
	})
}

// Tables returns all table names in lexical order
func (db *Database) Tables() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes all rows and resets id sequences
func (db *Database) Clear() {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	db.mu.Lock()
	defer db.mu.Unlock()

	for name := range db.tables {
		db.tables[name] = newTable()
	}
}

// register must be called with mu held.
func (db *Database) register(schema *interfaces.Schema) {
	db.schemas[schema.TableName] = schema
	if _, exists := db.tables[schema.TableName]; !exists {
		db.tables[schema.TableName] = newTable()
	}
}

// write runs fn under the write lock, taking txMu first unless ctx already
// belongs to a transaction of this database.
func (db *Database) write(ctx context.Context, fn func() error) error {
	if tx := db.txFromContext(ctx); tx == nil {
		db.txMu.Lock()
		defer db.txMu.Unlock()
	} else if tx.IsCompleted() {
		return interfaces.ErrTransactionCompleted
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.connected {
		return interfaces.ErrDatabaseNotConnected
	}
	return fn()
}

func (db *Database) snapshot() map[string]*table {
	db.mu.RLock()
	defer db.mu.RUnlock()

	snap := make(map[string]*table, len(db.tables))
	for name, t := range db.tables {
		snap[name] = t.clone()
	}
	return snap
}

func (db *Database) restore(snap map[string]*table) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.tables = snap
}

func copyRecord(record map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out
}
