package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iho/finledger/internal/adapter/http/dto"
	"github.com/iho/finledger/internal/domain"
	"github.com/iho/finledger/internal/usecase"
)

// UserService defines the behavior needed by UserHandler.
type UserService interface {
	CreateUser(ctx context.Context, input usecase.CreateUserInput) (*domain.User, error)
	Authenticate(ctx context.Context, input usecase.AuthenticateInput) (*usecase.Session, error)
	ShowProfile(ctx context.Context, id string) (*domain.User, error)
}

// AuthMetrics records login outcomes.
type AuthMetrics interface {
	AuthAttempt(success bool)
}

type noopAuthMetrics struct{}

func (noopAuthMetrics) AuthAttempt(bool) {}

// UserHandler handles registration, login and profile requests.
type UserHandler struct {
	userUC  UserService
	metrics AuthMetrics
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userUC UserService) *UserHandler {
	return &UserHandler{userUC: userUC, metrics: noopAuthMetrics{}}
}

// WithMetrics attaches a login outcome recorder.
func (h *UserHandler) WithMetrics(m AuthMetrics) *UserHandler {
	if m != nil {
		h.metrics = m
	}
	return h
}

// Register creates a new user.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	user, err := h.userUC.CreateUser(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.UserFromDomain(user))
}

// CreateSession exchanges credentials for a bearer token.
func (h *UserHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	session, err := h.userUC.Authenticate(r.Context(), req.ToUseCaseInput())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			h.metrics.AuthAttempt(false)
		}
		writeDomainError(w, r, err)
		return
	}
	h.metrics.AuthAttempt(true)

	writeJSON(w, http.StatusCreated, dto.SessionFromUseCase(session))
}

// Profile returns the authenticated user.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	user, err := h.userUC.ShowProfile(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(user))
}
