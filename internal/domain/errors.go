package domain

import "errors"

var (
	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyInUse  = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// Statement errors
	ErrStatementNotFound    = errors.New("statement not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidOperationType = errors.New("invalid operation type")
	ErrSenderRequired       = errors.New("transfer requires a sender")
	ErrUnexpectedSender     = errors.New("only transfers can have a sender")
	ErrSameUser             = errors.New("cannot transfer to the same user")
)
