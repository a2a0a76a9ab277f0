package memory

import (
	"context"
	"sync"

	"github.com/howjmay/publicator/internal/db/interfaces"
)

type txKey struct{}

// Transaction represents an in-memory transaction. Writes go straight to the
// live tables; Rollback restores the snapshot taken when it began.
type Transaction struct {
	mu         sync.RWMutex
	db         *Database
	snapshot   map[string]*table
	committed  bool
	rolledBack bool
}

func newTransaction(db *Database) *Transaction {
	return &Transaction{
		db:       db,
		snapshot: db.snapshot(),
	}
}

// Commit commits the transaction
func (tx *Transaction) Commit(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.committed || tx.rolledBack {
		return interfaces.ErrTransactionCompleted
	}

	tx.committed = true
	tx.snapshot = nil
	return nil
}

// Rollback rolls back the transaction
func (tx *Transaction) Rollback(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.committed || tx.rolledBack {
		return interfaces.ErrTransactionCompleted
	}

	tx.db.restore(tx.snapshot)
	tx.snapshot = nil
	tx.rolledBack = true
	return nil
}

// IsCompleted returns true if the transaction has been committed or rolled back
func (tx *Transaction) IsCompleted() bool {
	tx.mu.RLock()
	defer tx.mu.RUnlock()

	return tx.committed || tx.rolledBack
}

// txFromContext returns the transaction of this database carried by ctx, if
// any. A transaction that already finished is still returned so callers can
// report it instead of waiting on txMu.
func (db *Database) txFromContext(ctx context.Context) *Transaction {
	tx, ok := ctx.Value(txKey{}).(*Transaction)
	if !ok || tx.db != db {
		return nil
	}
	return tx
}
