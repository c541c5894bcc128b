package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/finledger/internal/domain"
	"github.com/iho/finledger/internal/usecase"
)

// CreateUserRequest represents a request to register a user.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateUserRequest) ToUseCaseInput() usecase.CreateUserInput {
	return usecase.CreateUserInput{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
	}
}

// CreateSessionRequest represents a login request.
type CreateSessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateSessionRequest) ToUseCaseInput() usecase.AuthenticateInput {
	return usecase.AuthenticateInput{
		Email:    r.Email,
		Password: r.Password,
	}
}

// CreateStatementRequest is the body of deposit, withdraw and transfer
// requests. Amount accepts a JSON number or a decimal string.
type CreateStatementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// ToUseCaseInput converts to use case input. The owner is the caller for
// deposits and withdrawals, and the recipient for transfers.
func (r *CreateStatementRequest) ToUseCaseInput(opType domain.OperationType, userID string, senderID *string) usecase.CreateStatementInput {
	return usecase.CreateStatementInput{
		SenderID:    senderID,
		UserID:      userID,
		Type:        opType,
		Description: r.Description,
		Amount:      r.Amount,
	}
}
