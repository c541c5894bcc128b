package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/finledger/internal/domain"
)

// StatementRepository defines data access for statements.
type StatementRepository interface {
	Create(ctx context.Context, tx Transaction, statement *domain.Statement) error
	// FindByID returns domain.ErrStatementNotFound when the statement does not
	// exist or belongs to another user.
	FindByID(ctx context.Context, statementID, ownerID string) (*domain.Statement, error)
	// ListForUser returns statements owned by userID, oldest first.
	ListForUser(ctx context.Context, tx Transaction, userID string) ([]*domain.Statement, error)
	// ListSentByUser returns transfers whose sender is userID, oldest first.
	ListSentByUser(ctx context.Context, tx Transaction, userID string) ([]*domain.Statement, error)
}

// UserRepository defines data access for users.
// Find methods return (nil, nil) when no user matches.
type UserRepository interface {
	Create(ctx context.Context, tx Transaction, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	Totals(ctx context.Context, tx Transaction) (LedgerTotals, error)
	UserBalances(ctx context.Context, tx Transaction) ([]UserBalance, error)
}

// LedgerTotals sums statement amounts per operation type.
type LedgerTotals struct {
	Deposits    decimal.Decimal
	Withdrawals decimal.Decimal
	Transfers   decimal.Decimal
}

// UserBalance is one user's derived balance.
type UserBalance struct {
	UserID  string
	Balance decimal.Decimal
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
	// BeginSnapshot starts a read-only transaction in which every read
	// observes the same committed state.
	BeginSnapshot(ctx context.Context) (Transaction, error)
}

// Locker serializes work on a key for the lifetime of a transaction.
// The lock is released when the transaction commits or rolls back.
type Locker interface {
	Lock(ctx context.Context, tx Transaction, key string) error
}

// BalanceReader computes a user's balance inside an open transaction.
type BalanceReader interface {
	BalanceOf(ctx context.Context, tx Transaction, userID string) (*domain.Balance, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// TokenIssuer issues session tokens for authenticated users.
type TokenIssuer interface {
	Generate(user *domain.User) (string, error)
}

// StatementMetrics records statement outcomes.
type StatementMetrics interface {
	StatementCreated(operation domain.OperationType, amount decimal.Decimal)
	StatementRejected(reason string)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim so the request can be retried.
	Release(ctx context.Context, key string) error
}

type noopMetrics struct{}

func (noopMetrics) StatementCreated(domain.OperationType, decimal.Decimal) {}
func (noopMetrics) StatementRejected(string)                              {}
