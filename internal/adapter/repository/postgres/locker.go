package postgres

import (
	"context"
	"fmt"

	"github.com/iho/finledger/internal/infrastructure/postgres/generated"
	"github.com/iho/finledger/internal/usecase"
)

// Locker implements usecase.Locker with transaction-scoped advisory locks.
// Postgres releases the lock when the transaction ends.
type Locker struct{}

// NewLocker creates a new Locker.
func NewLocker() *Locker {
	return &Locker{}
}

// Lock blocks until the advisory lock for key is held by tx.
func (l *Locker) Lock(ctx context.Context, tx usecase.Transaction, key string) error {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return err
	}

	if err := generated.New(pgxTx).AcquireXactLock(ctx, key); err != nil {
		return fmt.Errorf("acquire lock %q: %w", key, err)
	}
	return nil
}
