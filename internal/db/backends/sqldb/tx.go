package sqldb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/howjmay/publicator/internal/db/interfaces"
)

// txKey is the key type for storing transaction in context
type txKey struct{}

// Transaction wraps a *sql.Tx so it satisfies interfaces.Transaction
type Transaction struct {
	mu   sync.Mutex
	tx   *sql.Tx
	done bool
}

// Commit commits the transaction
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return interfaces.ErrTransactionCompleted
	}
	t.done = true
	return t.tx.Commit()
}

// Rollback rolls back the transaction
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return interfaces.ErrTransactionCompleted
	}
	t.done = true
	return t.tx.Rollback()
}

// IsCompleted returns true if the transaction has been committed or rolled back
func (t *Transaction) IsCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.done
}

// withTx returns a new context with the transaction attached
func withTx(ctx context.Context, tx *Transaction) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// getTx retrieves the transaction from context if it exists
func getTx(ctx context.Context) (*Transaction, bool) {
	tx, ok := ctx.Value(txKey{}).(*Transaction)
	return tx, ok
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getExecutor returns either the transaction from context or the base
// connection, so repositories join a transaction when one is running.
func getExecutor(ctx context.Context, db *sql.DB) executor {
	if tx, ok := getTx(ctx); ok {
		return tx.tx
	}
	return db
}
