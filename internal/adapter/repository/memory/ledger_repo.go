package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iho/finledger/internal/domain"
	"github.com/iho/finledger/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

// Totals sums the statements visible to tx by operation type.
func (r *LedgerRepository) Totals(ctx context.Context, tx usecase.Transaction) (usecase.LedgerTotals, error) {
	t, err := asTx(tx)
	if err != nil {
		return usecase.LedgerTotals{}, err
	}

	totals := usecase.LedgerTotals{
		Deposits:    decimal.Zero,
		Withdrawals: decimal.Zero,
		Transfers:   decimal.Zero,
	}

	for _, s := range t.visibleStatements() {
		switch s.Type {
		case domain.OperationDeposit:
			totals.Deposits = totals.Deposits.Add(s.Amount)
		case domain.OperationWithdraw:
			totals.Withdrawals = totals.Withdrawals.Add(s.Amount)
		case domain.OperationTransfer:
			totals.Transfers = totals.Transfers.Add(s.Amount)
		}
	}

	return totals, nil
}

// UserBalances derives the balance of every user visible to tx, ordered by ID.
func (r *LedgerRepository) UserBalances(ctx context.Context, tx usecase.Transaction) ([]usecase.UserBalance, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	statements := t.visibleStatements()
	ids := t.visibleUserIDs()
	sort.Strings(ids)

	balances := make(map[string]decimal.Decimal, len(ids))
	for _, s := range statements {
		balances[s.UserID] = balances[s.UserID].Add(s.EffectOn(s.UserID))
		if s.SenderID != nil {
			balances[*s.SenderID] = balances[*s.SenderID].Add(s.EffectOn(*s.SenderID))
		}
	}

	result := make([]usecase.UserBalance, 0, len(ids))
	for _, id := range ids {
		result = append(result, usecase.UserBalance{UserID: id, Balance: balances[id]})
	}

	return result, nil
}
