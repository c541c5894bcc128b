package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/finledger/internal/domain"
	"github.com/iho/finledger/internal/usecase"
)

// UserResponse represents a user in API responses. The password hash is
// never exposed.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserFromDomain converts domain user to response.
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// SessionResponse is returned by a successful login.
type SessionResponse struct {
	User  *UserResponse `json:"user"`
	Token string        `json:"token"`
}

// SessionFromUseCase converts a session to response.
func SessionFromUseCase(s *usecase.Session) *SessionResponse {
	return &SessionResponse{
		User:  UserFromDomain(s.User),
		Token: s.Token,
	}
}

// StatementResponse represents a statement in API responses.
type StatementResponse struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	SenderID    *string         `json:"sender_id,omitempty"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// StatementFromDomain converts domain statement to response.
func StatementFromDomain(s *domain.Statement) *StatementResponse {
	return &StatementResponse{
		ID:          s.ID,
		UserID:      s.UserID,
		SenderID:    s.SenderID,
		Type:        string(s.Type),
		Description: s.Description,
		Amount:      s.Amount,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// StatementsFromDomain converts domain statements to responses.
func StatementsFromDomain(statements []*domain.Statement) []*StatementResponse {
	result := make([]*StatementResponse, len(statements))
	for i, s := range statements {
		result[i] = StatementFromDomain(s)
	}
	return result
}

// BalanceResponse carries a balance without history.
type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// BalanceWithStatementResponse carries a balance and its ordered history.
type BalanceWithStatementResponse struct {
	Balance   decimal.Decimal      `json:"balance"`
	Statement []*StatementResponse `json:"statement"`
}

// BalanceFromDomain picks the response shape matching the request.
func BalanceFromDomain(b *domain.Balance, withStatement bool) any {
	if !withStatement {
		return &BalanceResponse{Balance: b.Amount}
	}
	return &BalanceWithStatementResponse{
		Balance:   b.Amount,
		Statement: StatementsFromDomain(b.Statements),
	}
}

// UserBalanceResponse is one user's derived balance.
type UserBalanceResponse struct {
	UserID  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

// ConsistencyResponse reports a ledger consistency check.
type ConsistencyResponse struct {
	Consistent       bool                   `json:"consistent"`
	TotalDeposits    decimal.Decimal        `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal        `json:"total_withdrawals"`
	TotalTransfers   decimal.Decimal        `json:"total_transfers"`
	NetBalance       decimal.Decimal        `json:"net_balance"`
	NegativeBalances []*UserBalanceResponse `json:"negative_balances"`
}

// ConsistencyFromUseCase converts a consistency report to response.
func ConsistencyFromUseCase(r *usecase.ConsistencyReport) *ConsistencyResponse {
	negatives := make([]*UserBalanceResponse, len(r.NegativeBalances))
	for i, b := range r.NegativeBalances {
		negatives[i] = &UserBalanceResponse{UserID: b.UserID, Balance: b.Balance}
	}

	return &ConsistencyResponse{
		Consistent:       r.Consistent,
		TotalDeposits:    r.TotalDeposits,
		TotalWithdrawals: r.TotalWithdrawals,
		TotalTransfers:   r.TotalTransfers,
		NetBalance:       r.NetBalance,
		NegativeBalances: negatives,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
