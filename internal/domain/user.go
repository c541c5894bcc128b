package domain

import (
	"errors"
	"time"
)

// User represents a ledger account holder
type User struct {
	ID             string
	Name           string
	Email          string
	HashedPassword string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Sanitized returns a copy of the user without the password hash
func (u *User) Sanitized() *User {
	clone := *u
	clone.HashedPassword = ""
	return &clone
}

// Authentication errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)
