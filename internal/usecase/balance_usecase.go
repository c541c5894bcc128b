package usecase

import (
	"context"

	"github.com/iho/finledger/internal/domain"
)

// BalanceUseCase derives user balances from the statement history.
type BalanceUseCase struct {
	txManager     TransactionManager
	userRepo      UserRepository
	statementRepo StatementRepository
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(
	txManager TransactionManager,
	userRepo UserRepository,
	statementRepo StatementRepository,
) *BalanceUseCase {
	return &BalanceUseCase{
		txManager:     txManager,
		userRepo:      userRepo,
		statementRepo: statementRepo,
	}
}

// GetBalanceInput represents input for a balance query.
type GetBalanceInput struct {
	UserID        string
	WithStatement bool
}

// GetBalance returns the balance of an existing user, optionally with the
// merged statement history.
func (uc *BalanceUseCase) GetBalance(ctx context.Context, input GetBalanceInput) (*domain.Balance, error) {
	user, err := uc.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	// Both scans must observe the same committed state.
	tx, err := uc.txManager.BeginSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	balance, err := uc.compute(ctx, tx, input.UserID, input.WithStatement)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return balance, nil
}

// BalanceOf computes the balance of userID inside tx without checking that
// the user exists. Unknown users have a zero balance.
func (uc *BalanceUseCase) BalanceOf(ctx context.Context, tx Transaction, userID string) (*domain.Balance, error) {
	return uc.compute(ctx, tx, userID, false)
}

func (uc *BalanceUseCase) compute(ctx context.Context, tx Transaction, userID string, withHistory bool) (*domain.Balance, error) {
	owned, err := uc.statementRepo.ListForUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	sent, err := uc.statementRepo.ListSentByUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	return domain.ComputeBalance(userID, owned, sent, withHistory), nil
}
