package usecase

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	// ErrInconsistentLedger is returned when derived balances disagree with statement totals.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: balances do not match statement totals")
)

// ConsistencyReport summarizes a ledger-wide audit.
type ConsistencyReport struct {
	TotalDeposits    decimal.Decimal
	TotalWithdrawals decimal.Decimal
	TotalTransfers   decimal.Decimal
	NetBalance       decimal.Decimal
	NegativeBalances []UserBalance
	Consistent       bool
}

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	txManager  TransactionManager
	ledgerRepo LedgerRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(txManager TransactionManager, ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:  txManager,
		ledgerRepo: ledgerRepo,
	}
}

// CheckConsistency recomputes every balance in one snapshot and verifies that
// transfers net to zero across users and that no balance is negative.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	tx, err := uc.txManager.BeginSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	totals, err := uc.ledgerRepo.Totals(ctx, tx)
	if err != nil {
		return nil, err
	}

	balances, err := uc.ledgerRepo.UserBalances(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	report := &ConsistencyReport{
		TotalDeposits:    totals.Deposits,
		TotalWithdrawals: totals.Withdrawals,
		TotalTransfers:   totals.Transfers,
		NetBalance:       decimal.Zero,
		NegativeBalances: []UserBalance{},
	}

	for _, b := range balances {
		report.NetBalance = report.NetBalance.Add(b.Balance)
		if b.Balance.IsNegative() {
			report.NegativeBalances = append(report.NegativeBalances, b)
		}
	}

	sort.Slice(report.NegativeBalances, func(i, j int) bool {
		return report.NegativeBalances[i].UserID < report.NegativeBalances[j].UserID
	})

	expected := totals.Deposits.Sub(totals.Withdrawals)
	report.Consistent = report.NetBalance.Equal(expected) && len(report.NegativeBalances) == 0

	return report, nil
}

// Verify runs CheckConsistency and returns ErrInconsistentLedger when the
// report is not consistent.
func (uc *LedgerUseCase) Verify(ctx context.Context) (*ConsistencyReport, error) {
	report, err := uc.CheckConsistency(ctx)
	if err != nil {
		return nil, err
	}

	if !report.Consistent {
		return report, ErrInconsistentLedger
	}

	return report, nil
}
