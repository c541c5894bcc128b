package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/finledger/internal/adapter/http/dto"
	"github.com/iho/finledger/internal/domain"
	"github.com/iho/finledger/internal/usecase"
)

// StatementService defines the behavior needed by StatementHandler.
type StatementService interface {
	CreateStatement(ctx context.Context, input usecase.CreateStatementInput) (*domain.Statement, error)
	GetStatementOperation(ctx context.Context, input usecase.GetStatementOperationInput) (*domain.Statement, error)
}

// BalanceService defines the behavior needed by StatementHandler.Balance.
type BalanceService interface {
	GetBalance(ctx context.Context, input usecase.GetBalanceInput) (*domain.Balance, error)
}

// StatementHandler handles statement and balance requests.
type StatementHandler struct {
	statementUC StatementService
	balanceUC   BalanceService
}

// NewStatementHandler creates a new StatementHandler.
func NewStatementHandler(statementUC StatementService, balanceUC BalanceService) *StatementHandler {
	return &StatementHandler{
		statementUC: statementUC,
		balanceUC:   balanceUC,
	}
}

// Deposit credits the caller.
func (h *StatementHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, domain.OperationDeposit)
}

// Withdraw debits the caller.
func (h *StatementHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, domain.OperationWithdraw)
}

// Transfer moves funds from the caller to the user in the path. Transfers to
// the caller's own ID are rejected with 400.
func (h *StatementHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, domain.OperationTransfer)
}

func (h *StatementHandler) create(w http.ResponseWriter, r *http.Request, opType domain.OperationType) {
	callerID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req dto.CreateStatementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input := req.ToUseCaseInput(opType, callerID, nil)
	if opType == domain.OperationTransfer {
		recipientID := chi.URLParam(r, "user_id")
		if recipientID == "" {
			writeError(w, http.StatusBadRequest, "missing recipient user ID", "")
			return
		}
		input = req.ToUseCaseInput(opType, recipientID, &callerID)
	}

	statement, err := h.statementUC.CreateStatement(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.StatementFromDomain(statement))
}

// Get retrieves one of the caller's statements.
func (h *StatementHandler) Get(w http.ResponseWriter, r *http.Request) {
	callerID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "statement_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing statement ID", "")
		return
	}

	statement, err := h.statementUC.GetStatementOperation(r.Context(), usecase.GetStatementOperationInput{
		StatementID: id,
		UserID:      callerID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatementFromDomain(statement))
}

// Balance returns the caller's balance, with history when
// with_statement=true.
func (h *StatementHandler) Balance(w http.ResponseWriter, r *http.Request) {
	callerID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	withStatement := parseBoolQuery(r, "with_statement", false)

	balance, err := h.balanceUC.GetBalance(r.Context(), usecase.GetBalanceInput{
		UserID:        callerID,
		WithStatement: withStatement,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(balance, withStatement))
}
