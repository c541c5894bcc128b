package postgres

import (
	"context"

	"github.com/iho/finledger/internal/infrastructure/postgres/generated"
	"github.com/iho/finledger/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct{}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

// Totals sums statement amounts per operation type as seen by tx.
func (r *LedgerRepository) Totals(ctx context.Context, tx usecase.Transaction) (usecase.LedgerTotals, error) {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return usecase.LedgerTotals{}, err
	}

	row, err := generated.New(pgxTx).GetStatementTotals(ctx)
	if err != nil {
		return usecase.LedgerTotals{}, err
	}

	return usecase.LedgerTotals{
		Deposits:    numericToDecimal(row.TotalDeposits),
		Withdrawals: numericToDecimal(row.TotalWithdrawals),
		Transfers:   numericToDecimal(row.TotalTransfers),
	}, nil
}

// UserBalances derives every user's balance as seen by tx, ordered by ID.
func (r *LedgerRepository) UserBalances(ctx context.Context, tx usecase.Transaction) ([]usecase.UserBalance, error) {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return nil, err
	}

	rows, err := generated.New(pgxTx).ListUserBalances(ctx)
	if err != nil {
		return nil, err
	}

	balances := make([]usecase.UserBalance, 0, len(rows))
	for _, row := range rows {
		balances = append(balances, usecase.UserBalance{
			UserID:  row.UserID,
			Balance: numericToDecimal(row.Balance),
		})
	}

	return balances, nil
}
