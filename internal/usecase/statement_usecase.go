package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/finledger/internal/domain"
)

// StatementUseCase records deposits, withdrawals and transfers.
type StatementUseCase struct {
	txManager     TransactionManager
	locker        Locker
	userRepo      UserRepository
	statementRepo StatementRepository
	outboxRepo    OutboxRepository
	balances      BalanceReader
	idGen         IDGenerator
	metrics       StatementMetrics
}

// NewStatementUseCase creates a new StatementUseCase.
func NewStatementUseCase(
	txManager TransactionManager,
	locker Locker,
	userRepo UserRepository,
	statementRepo StatementRepository,
	outboxRepo OutboxRepository,
	balances BalanceReader,
	idGen IDGenerator,
) *StatementUseCase {
	return &StatementUseCase{
		txManager:     txManager,
		locker:        locker,
		userRepo:      userRepo,
		statementRepo: statementRepo,
		outboxRepo:    outboxRepo,
		balances:      balances,
		idGen:         idGen,
		metrics:       noopMetrics{},
	}
}

// WithMetrics sets the recorder for statement outcomes.
func (uc *StatementUseCase) WithMetrics(m StatementMetrics) *StatementUseCase {
	if m != nil {
		uc.metrics = m
	}
	return uc
}

// CreateStatementInput represents input for recording a statement.
// UserID owns the statement; for transfers it is the recipient.
type CreateStatementInput struct {
	SenderID    *string
	UserID      string
	Type        domain.OperationType
	Description string
	Amount      decimal.Decimal
}

// CreateStatement validates and persists a statement.
//
// The debited account (the owner of a withdrawal, the sender of a transfer)
// is locked for the whole check-then-create sequence, so concurrent debits
// against one account cannot overdraw it.
func (uc *StatementUseCase) CreateStatement(ctx context.Context, input CreateStatementInput) (*domain.Statement, error) {
	statement := &domain.Statement{
		UserID:      input.UserID,
		SenderID:    input.SenderID,
		Type:        input.Type,
		Description: input.Description,
		Amount:      input.Amount,
	}

	if err := uc.requireUser(ctx, input.UserID); err != nil {
		uc.reject(err)
		return nil, err
	}

	if err := statement.Validate(); err != nil {
		uc.metrics.StatementRejected(RejectReasonValidation)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if debited := statement.DebitedUserID(); debited != "" {
		if err := uc.locker.Lock(ctx, tx, debited); err != nil {
			return nil, err
		}

		balance, err := uc.balances.BalanceOf(ctx, tx, debited)
		if err != nil {
			return nil, err
		}

		if !balance.Covers(statement.Amount) {
			uc.metrics.StatementRejected(RejectReasonInsufficientFunds)
			return nil, domain.ErrInsufficientFunds
		}
	}

	if statement.Type == domain.OperationTransfer {
		if err := uc.requireUser(ctx, *statement.SenderID); err != nil {
			uc.reject(err)
			return nil, err
		}
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	statement.ID = uc.idGen.Generate()
	statement.CreatedAt = now
	statement.UpdatedAt = now

	if err := uc.statementRepo.Create(ctx, tx, statement); err != nil {
		return nil, err
	}

	event := domain.NewStatementCreatedEvent(uc.idGen.Generate(), statement)
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	uc.metrics.StatementCreated(statement.Type, statement.Amount)

	return statement, nil
}

// GetStatementOperationInput represents input for fetching one statement.
type GetStatementOperationInput struct {
	StatementID string
	UserID      string
}

// GetStatementOperation returns a statement owned by the requesting user.
func (uc *StatementUseCase) GetStatementOperation(ctx context.Context, input GetStatementOperationInput) (*domain.Statement, error) {
	if err := uc.requireUser(ctx, input.UserID); err != nil {
		return nil, err
	}

	return uc.statementRepo.FindByID(ctx, input.StatementID, input.UserID)
}

func (uc *StatementUseCase) requireUser(ctx context.Context, userID string) error {
	user, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if user == nil {
		return domain.ErrUserNotFound
	}

	return nil
}

func (uc *StatementUseCase) reject(err error) {
	if errors.Is(err, domain.ErrUserNotFound) {
		uc.metrics.StatementRejected(RejectReasonUserNotFound)
	}
}
