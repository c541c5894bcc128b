package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType is the kind of ledger movement a statement records.
type OperationType string

const (
	OperationDeposit  OperationType = "deposit"
	OperationWithdraw OperationType = "withdraw"
	OperationTransfer OperationType = "transfer"
)

// IsValid checks if the operation type is known.
func (t OperationType) IsValid() bool {
	switch t {
	case OperationDeposit, OperationWithdraw, OperationTransfer:
		return true
	}
	return false
}

// Debits reports whether the operation takes money out of an account.
func (t OperationType) Debits() bool {
	return t == OperationWithdraw || t == OperationTransfer
}

// Statement is an immutable ledger entry.
//
// A transfer is stored once, owned by the recipient (UserID) with SenderID
// pointing at the account that funded it.
type Statement struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SenderID    *string
	ID          string
	UserID      string
	Type        OperationType
	Description string
	Amount      decimal.Decimal
}

// Validate checks the statement shape before it is persisted.
func (s *Statement) Validate() error {
	if !s.Type.IsValid() {
		return ErrInvalidOperationType
	}

	if err := ValidateAmount(s.Amount); err != nil {
		return err
	}

	if err := ValidateDescription(s.Description); err != nil {
		return err
	}

	if s.Type == OperationTransfer {
		if s.SenderID == nil || *s.SenderID == "" {
			return ErrSenderRequired
		}
		if *s.SenderID == s.UserID {
			return ErrSameUser
		}
		return nil
	}

	if s.SenderID != nil {
		return ErrUnexpectedSender
	}

	return nil
}

// IsSentBy reports whether the statement is a transfer funded by userID.
func (s *Statement) IsSentBy(userID string) bool {
	return s.Type == OperationTransfer && s.SenderID != nil && *s.SenderID == userID
}

// DebitedUserID returns the account whose balance must cover the statement,
// or "" for deposits.
func (s *Statement) DebitedUserID() string {
	switch s.Type {
	case OperationWithdraw:
		return s.UserID
	case OperationTransfer:
		if s.SenderID != nil {
			return *s.SenderID
		}
	}
	return ""
}

// EffectOn returns the signed amount the statement contributes to userID's balance.
func (s *Statement) EffectOn(userID string) decimal.Decimal {
	effect := decimal.Zero

	if s.UserID == userID {
		switch s.Type {
		case OperationDeposit, OperationTransfer:
			effect = effect.Add(s.Amount)
		case OperationWithdraw:
			effect = effect.Sub(s.Amount)
		}
	}

	if s.IsSentBy(userID) {
		effect = effect.Sub(s.Amount)
	}

	return effect
}
