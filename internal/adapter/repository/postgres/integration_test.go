package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/finledger/internal/adapter/repository/postgres"
	"github.com/iho/finledger/internal/domain"
	"github.com/iho/finledger/internal/infrastructure/idgen"
	infrapg "github.com/iho/finledger/internal/infrastructure/postgres"
	"github.com/iho/finledger/internal/usecase"
)

const migrationsPath = "../../../../migrations"

type testEnv struct {
	pool        *pgxpool.Pool
	outbox      *postgres.OutboxRepository
	statements  *usecase.StatementUseCase
	balances    *usecase.BalanceUseCase
	ledger      *usecase.LedgerUseCase
	users       *postgres.UserRepository
	txManager   *postgres.TxManager
	ids         *idgen.ULIDGenerator
	userCounter atomic.Int32
}

// newTestEnv connects to FINLEDGER_TEST_DATABASE_URL, migrates it and
// truncates all tables.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dbURL := os.Getenv("FINLEDGER_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("FINLEDGER_TEST_DATABASE_URL not set")
	}

	require.NoError(t, infrapg.RunMigrations(dbURL, migrationsPath, zerolog.Nop()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infrapg.NewPoolWithConfig(ctx, infrapg.PoolConfig{DatabaseURL: dbURL, MaxConns: 20, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE TABLE outbox_events, statements, users CASCADE`)
	require.NoError(t, err)

	txManager := postgres.NewTxManager(pool)
	locker := postgres.NewLocker()
	userRepo := postgres.NewUserRepository(pool)
	statementRepo := postgres.NewStatementRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	ids := idgen.NewULIDGenerator()

	balanceUC := usecase.NewBalanceUseCase(txManager, userRepo, statementRepo)

	return &testEnv{
		pool:       pool,
		outbox:     outboxRepo,
		statements: usecase.NewStatementUseCase(txManager, locker, userRepo, statementRepo, outboxRepo, balanceUC, ids),
		balances:   balanceUC,
		ledger:     usecase.NewLedgerUseCase(txManager, postgres.NewLedgerRepository()),
		users:      userRepo,
		txManager:  txManager,
		ids:        ids,
	}
}

func (e *testEnv) createUser(t *testing.T, name string) string {
	t.Helper()
	ctx := context.Background()

	n := e.userCounter.Add(1)
	now := time.Now().UTC()
	user := &domain.User{
		ID:             fmt.Sprintf("user-%d", n),
		Name:           name,
		Email:          fmt.Sprintf("%s-%d@example.com", name, n),
		HashedPassword: "x",
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := e.txManager.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, e.users.Create(ctx, tx, user))
	require.NoError(t, tx.Commit(ctx))

	return user.ID
}

func (e *testEnv) deposit(t *testing.T, userID string, amount int64) {
	t.Helper()

	_, err := e.statements.CreateStatement(context.Background(), usecase.CreateStatementInput{
		UserID:      userID,
		Type:        domain.OperationDeposit,
		Description: "seed",
		Amount:      decimal.NewFromInt(amount),
	})
	require.NoError(t, err)
}

func (e *testEnv) balanceOf(t *testing.T, userID string) decimal.Decimal {
	t.Helper()

	balance, err := e.balances.GetBalance(context.Background(), usecase.GetBalanceInput{UserID: userID})
	require.NoError(t, err)
	return balance.Amount
}

func TestIntegration_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	env.deposit(t, alice, 1000)

	const attempts = 120
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)

	wg.Add(attempts)
	for range attempts {
		go func() {
			defer wg.Done()

			_, err := env.statements.CreateStatement(context.Background(), usecase.CreateStatementInput{
				UserID:      alice,
				Type:        domain.OperationWithdraw,
				Description: "atm",
				Amount:      decimal.NewFromInt(10),
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(100), succeeded.Load())
	assert.Equal(t, int32(attempts-100), rejected.Load())
	assert.True(t, env.balanceOf(t, alice).IsZero())

	report, err := env.ledger.CheckConsistency(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestIntegration_ConcurrentTransfersFromOneSender(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	env.deposit(t, alice, 500)

	var wg sync.WaitGroup
	for i := range 60 {
		wg.Add(1)
		recipient := bob
		if i%2 == 1 {
			recipient = carol
		}
		go func(recipient string) {
			defer wg.Done()
			sender := alice
			_, err := env.statements.CreateStatement(context.Background(), usecase.CreateStatementInput{
				SenderID:    &sender,
				UserID:      recipient,
				Type:        domain.OperationTransfer,
				Description: "split",
				Amount:      decimal.NewFromInt(10),
			})
			if err != nil && !errors.Is(err, domain.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}(recipient)
	}
	wg.Wait()

	total := env.balanceOf(t, bob).Add(env.balanceOf(t, carol))
	assert.True(t, env.balanceOf(t, alice).IsZero())
	assert.True(t, total.Equal(decimal.NewFromInt(500)), "recipients got %s", total)
}

func TestIntegration_StatementWritesOutboxEvent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	env.deposit(t, alice, 25)

	events, err := env.outbox.GetUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeStatementCreated, events[0].EventType)

	require.NoError(t, env.outbox.MarkPublished(context.Background(), events[0].ID, time.Now().UTC()))
	events, err = env.outbox.GetUnpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestIntegration_HistoryOrderedAcrossOwnedAndSent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	env.deposit(t, alice, 100)

	sender := alice
	_, err := env.statements.CreateStatement(context.Background(), usecase.CreateStatementInput{
		SenderID: &sender, UserID: bob, Type: domain.OperationTransfer, Description: "lunch", Amount: decimal.NewFromInt(15),
	})
	require.NoError(t, err)
	env.deposit(t, alice, 5)

	balance, err := env.balances.GetBalance(context.Background(), usecase.GetBalanceInput{UserID: alice, WithStatement: true})
	require.NoError(t, err)

	assert.True(t, balance.Amount.Equal(decimal.NewFromInt(90)))
	require.Len(t, balance.Statements, 3)
	assert.Equal(t, domain.OperationDeposit, balance.Statements[0].Type)
	assert.Equal(t, domain.OperationTransfer, balance.Statements[1].Type)
	assert.Equal(t, domain.OperationDeposit, balance.Statements[2].Type)
}
