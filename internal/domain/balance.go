package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Balance is a user's derived balance, optionally with the statements behind it.
type Balance struct {
	UserID     string
	Amount     decimal.Decimal
	Statements []*Statement
}

// ComputeBalance folds the statements owned by userID and the transfers userID
// sent into a balance.
//
// owned holds statements whose UserID is userID; sent holds transfers whose
// SenderID is userID. When withHistory is set, both sequences are merged in
// ascending CreatedAt order, ties broken by ID.
func ComputeBalance(userID string, owned, sent []*Statement, withHistory bool) *Balance {
	received := decimal.Zero
	for _, s := range owned {
		switch s.Type {
		case OperationDeposit, OperationTransfer:
			received = received.Add(s.Amount)
		case OperationWithdraw:
			received = received.Sub(s.Amount)
		}
	}

	sentTotal := decimal.Zero
	for _, s := range sent {
		sentTotal = sentTotal.Add(s.Amount)
	}

	balance := &Balance{
		UserID: userID,
		Amount: received.Sub(sentTotal),
	}

	if withHistory {
		balance.Statements = MergeHistory(owned, sent)
	}

	return balance
}

// MergeHistory returns owned and sent as one sequence sorted by CreatedAt, then ID.
func MergeHistory(owned, sent []*Statement) []*Statement {
	merged := make([]*Statement, 0, len(owned)+len(sent))
	merged = append(merged, owned...)
	merged = append(merged, sent...)

	sort.SliceStable(merged, func(i, j int) bool {
		return StatementLess(merged[i], merged[j])
	})

	return merged
}

// StatementLess orders statements by creation time, then by ID.
func StatementLess(a, b *Statement) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Covers reports whether the balance can fund amount without going negative.
func (b *Balance) Covers(amount decimal.Decimal) bool {
	return b.Amount.GreaterThanOrEqual(amount)
}
