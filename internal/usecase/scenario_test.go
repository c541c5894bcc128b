package usecase_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/finledger/internal/adapter/repository/memory"
	"github.com/iho/finledger/internal/domain"
	"github.com/iho/finledger/internal/infrastructure/idgen"
	"github.com/iho/finledger/internal/usecase"
)

type staticTokens struct{}

func (staticTokens) Generate(user *domain.User) (string, error) {
	return "token-" + user.ID, nil
}

type ledgerHarness struct {
	store      *memory.Store
	users      *usecase.UserUseCase
	balances   *usecase.BalanceUseCase
	statements *usecase.StatementUseCase
	ledger     *usecase.LedgerUseCase
	outbox     *memory.OutboxRepository
}

func newLedgerHarness() *ledgerHarness {
	store := memory.NewStore()
	txManager := memory.NewTxManager(store)
	locker := memory.NewLocker(store)
	userRepo := memory.NewUserRepository(store)
	statementRepo := memory.NewStatementRepository(store)
	outboxRepo := memory.NewOutboxRepository(store)
	ulids := idgen.NewULIDGenerator()

	balances := usecase.NewBalanceUseCase(txManager, userRepo, statementRepo)

	return &ledgerHarness{
		store:      store,
		users:      usecase.NewUserUseCase(txManager, locker, userRepo, outboxRepo, idgen.NewUUIDGenerator(), ulids, staticTokens{}),
		balances:   balances,
		statements: usecase.NewStatementUseCase(txManager, locker, userRepo, statementRepo, outboxRepo, balances, ulids),
		ledger:     usecase.NewLedgerUseCase(txManager, memory.NewLedgerRepository(store)),
		outbox:     outboxRepo,
	}
}

func (h *ledgerHarness) register(t *testing.T, name string) string {
	t.Helper()
	user, err := h.users.CreateUser(context.Background(), usecase.CreateUserInput{
		Name:     name,
		Email:    name + "@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return user.ID
}

func (h *ledgerHarness) deposit(userID string, amount int64) (*domain.Statement, error) {
	return h.statements.CreateStatement(context.Background(), usecase.CreateStatementInput{
		UserID: userID,
		Type:   domain.OperationDeposit,
		Amount: decimal.NewFromInt(amount),
	})
}

func (h *ledgerHarness) withdraw(userID string, amount int64) (*domain.Statement, error) {
	return h.statements.CreateStatement(context.Background(), usecase.CreateStatementInput{
		UserID: userID,
		Type:   domain.OperationWithdraw,
		Amount: decimal.NewFromInt(amount),
	})
}

func (h *ledgerHarness) transfer(from, to string, amount int64) (*domain.Statement, error) {
	return h.statements.CreateStatement(context.Background(), usecase.CreateStatementInput{
		UserID:   to,
		SenderID: &from,
		Type:     domain.OperationTransfer,
		Amount:   decimal.NewFromInt(amount),
	})
}

func (h *ledgerHarness) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	b, err := h.balances.GetBalance(context.Background(), usecase.GetBalanceInput{UserID: userID})
	require.NoError(t, err)
	return b.Amount
}

func assertAmount(t *testing.T, expected int64, got decimal.Decimal) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(expected)) {
		t.Fatalf("expected balance %d, got %s", expected, got)
	}
}

func TestScenario_DepositThenWithdrawals(t *testing.T) {
	h := newLedgerHarness()
	alice := h.register(t, "alice")

	_, err := h.deposit(alice, 200)
	require.NoError(t, err)
	assertAmount(t, 200, h.balance(t, alice))

	_, err = h.withdraw(alice, 50)
	require.NoError(t, err)
	assertAmount(t, 150, h.balance(t, alice))

	_, err = h.withdraw(alice, 200)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assertAmount(t, 150, h.balance(t, alice))
}

func TestScenario_TransferSymmetry(t *testing.T) {
	h := newLedgerHarness()
	alice := h.register(t, "alice")
	bob := h.register(t, "bob")

	_, err := h.deposit(alice, 100)
	require.NoError(t, err)

	transfer, err := h.transfer(alice, bob, 30)
	require.NoError(t, err)

	assertAmount(t, 70, h.balance(t, alice))
	assertAmount(t, 30, h.balance(t, bob))

	assert.Equal(t, bob, transfer.UserID)
	require.NotNil(t, transfer.SenderID)
	assert.Equal(t, alice, *transfer.SenderID)
	assert.Equal(t, domain.OperationTransfer, transfer.Type)
	assert.True(t, transfer.Amount.Equal(decimal.NewFromInt(30)))

	stored, err := h.statements.GetStatementOperation(context.Background(), usecase.GetStatementOperationInput{
		StatementID: transfer.ID,
		UserID:      bob,
	})
	require.NoError(t, err)
	assert.Equal(t, transfer.ID, stored.ID)
}

func TestScenario_UnknownUser(t *testing.T) {
	h := newLedgerHarness()

	_, err := h.deposit("ghost", 10)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	report, err := h.ledger.CheckConsistency(context.Background())
	require.NoError(t, err)
	assert.True(t, report.TotalDeposits.IsZero(), "no statement may be persisted")
}

func TestScenario_TransferFromUnknownSender(t *testing.T) {
	h := newLedgerHarness()
	bob := h.register(t, "bob")

	// An unknown sender has a zero balance, so the funds check fails first.
	_, err := h.transfer("ghost", bob, 10)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestScenario_StatementScopedToOwner(t *testing.T) {
	h := newLedgerHarness()
	alice := h.register(t, "alice")
	bob := h.register(t, "bob")

	statement, err := h.deposit(alice, 10)
	require.NoError(t, err)

	_, err = h.statements.GetStatementOperation(context.Background(), usecase.GetStatementOperationInput{
		StatementID: statement.ID,
		UserID:      bob,
	})
	assert.ErrorIs(t, err, domain.ErrStatementNotFound)

	_, err = h.statements.GetStatementOperation(context.Background(), usecase.GetStatementOperationInput{
		StatementID: statement.ID,
		UserID:      "ghost",
	})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestProperty_BalanceAdditivity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		h := newLedgerHarness()
		user := h.register(t, "user")

		expected := int64(0)
		for i := 0; i < 25; i++ {
			amount := rng.Int63n(500) + 1
			if rng.Intn(3) == 0 {
				_, err := h.withdraw(user, amount)
				if amount > expected {
					require.ErrorIs(t, err, domain.ErrInsufficientFunds)
					continue
				}
				require.NoError(t, err)
				expected -= amount
				continue
			}
			_, err := h.deposit(user, amount)
			require.NoError(t, err)
			expected += amount
		}

		assertAmount(t, expected, h.balance(t, user))
	}
}

func TestProperty_NonNegativeBoundary(t *testing.T) {
	h := newLedgerHarness()
	alice := h.register(t, "alice")
	bob := h.register(t, "bob")

	_, err := h.deposit(alice, 100)
	require.NoError(t, err)

	_, err = h.transfer(alice, bob, 101)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = h.transfer(alice, bob, 100)
	require.NoError(t, err)
	assertAmount(t, 0, h.balance(t, alice))

	_, err = h.withdraw(alice, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestProperty_HistoryOrderingAndIdempotentRead(t *testing.T) {
	h := newLedgerHarness()
	alice := h.register(t, "alice")
	bob := h.register(t, "bob")

	_, err := h.deposit(alice, 100)
	require.NoError(t, err)
	_, err = h.transfer(alice, bob, 40)
	require.NoError(t, err)
	_, err = h.transfer(bob, alice, 15)
	require.NoError(t, err)
	_, err = h.withdraw(alice, 5)
	require.NoError(t, err)

	input := usecase.GetBalanceInput{UserID: alice, WithStatement: true}
	first, err := h.balances.GetBalance(context.Background(), input)
	require.NoError(t, err)
	second, err := h.balances.GetBalance(context.Background(), input)
	require.NoError(t, err)

	assertAmount(t, 70, first.Amount)
	require.Len(t, first.Statements, 4)
	for i := 1; i < len(first.Statements); i++ {
		assert.False(t, domain.StatementLess(first.Statements[i], first.Statements[i-1]),
			"statement %d is out of order", i)
	}

	assert.True(t, first.Amount.Equal(second.Amount))
	require.Len(t, second.Statements, len(first.Statements))
	for i := range first.Statements {
		assert.Equal(t, first.Statements[i].ID, second.Statements[i].ID)
	}
}

func TestConcurrency_NoOverWithdrawal(t *testing.T) {
	h := newLedgerHarness()
	alice := h.register(t, "alice")

	_, err := h.deposit(alice, 100)
	require.NoError(t, err)

	const attempts = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.withdraw(alice, 10)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, attempts-10, rejected)
	assertAmount(t, 0, h.balance(t, alice))
}

func TestConcurrency_OppositeTransfers(t *testing.T) {
	h := newLedgerHarness()
	alice := h.register(t, "alice")
	bob := h.register(t, "bob")

	_, err := h.deposit(alice, 1000)
	require.NoError(t, err)
	_, err = h.deposit(bob, 1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := h.transfer(alice, bob, 5)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := h.transfer(bob, alice, 5)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assertAmount(t, 1000, h.balance(t, alice))
	assertAmount(t, 1000, h.balance(t, bob))

	report, err := h.ledger.CheckConsistency(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestOutboxEventsWrittenWithStatements(t *testing.T) {
	h := newLedgerHarness()
	alice := h.register(t, "alice")

	statement, err := h.deposit(alice, 25)
	require.NoError(t, err)

	_, err = h.withdraw(alice, 1000)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	events, err := h.outbox.GetUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, domain.EventTypeUserCreated, events[0].EventType)
	assert.Equal(t, alice, events[0].AggregateID)

	assert.Equal(t, domain.EventTypeStatementCreated, events[1].EventType)
	assert.Equal(t, statement.ID, events[1].AggregateID)
	assert.Equal(t, "25", events[1].Payload["amount"])
}

func TestScenario_RegistrationAndSignIn(t *testing.T) {
	h := newLedgerHarness()
	ctx := context.Background()
	id := h.register(t, "carol")

	_, err := h.users.CreateUser(ctx, usecase.CreateUserInput{
		Name:     "Carol Again",
		Email:    "CAROL@example.com",
		Password: "another-secret",
	})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyInUse)

	session, err := h.users.Authenticate(ctx, usecase.AuthenticateInput{Email: "carol@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, id, session.User.ID)
	assert.Equal(t, "token-"+id, session.Token)
	assert.Empty(t, session.User.HashedPassword)

	_, err = h.users.Authenticate(ctx, usecase.AuthenticateInput{Email: "carol@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	profile, err := h.users.ShowProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", profile.Email)
}

func TestLedgerConsistencyAfterActivity(t *testing.T) {
	h := newLedgerHarness()
	alice := h.register(t, "alice")
	bob := h.register(t, "bob")

	_, err := h.deposit(alice, 300)
	require.NoError(t, err)
	_, err = h.transfer(alice, bob, 120)
	require.NoError(t, err)
	_, err = h.withdraw(bob, 20)
	require.NoError(t, err)

	report, err := h.ledger.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.True(t, report.TotalDeposits.Equal(decimal.NewFromInt(300)))
	assert.True(t, report.TotalWithdrawals.Equal(decimal.NewFromInt(20)))
	assert.True(t, report.TotalTransfers.Equal(decimal.NewFromInt(120)))
	assert.True(t, report.NetBalance.Equal(decimal.NewFromInt(280)))
	assert.Empty(t, report.NegativeBalances)
}
