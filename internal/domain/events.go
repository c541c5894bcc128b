package domain

import (
	"encoding/json"
	"time"
)

// Event types
const (
	EventTypeStatementCreated = "statement.created"
	EventTypeUserCreated      = "user.created"
)

// Aggregate types
const (
	AggregateTypeStatement = "statement"
	AggregateTypeUser      = "user"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// StatementCreatedEvent payload
type StatementCreatedEvent struct {
	StatementID string `json:"statement_id"`
	UserID      string `json:"user_id"`
	SenderID    string `json:"sender_id,omitempty"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	CreatedAt   string `json:"created_at"`
}

// UserCreatedEvent payload
type UserCreatedEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// NewStatementCreatedEvent builds the outbox event for a persisted statement.
func NewStatementCreatedEvent(id string, s *Statement) *OutboxEvent {
	payload := StatementCreatedEvent{
		StatementID: s.ID,
		UserID:      s.UserID,
		Type:        string(s.Type),
		Amount:      s.Amount.String(),
		CreatedAt:   s.CreatedAt.Format(time.RFC3339Nano),
	}
	if s.SenderID != nil {
		payload.SenderID = *s.SenderID
	}

	return &OutboxEvent{
		ID:            id,
		AggregateID:   s.ID,
		AggregateType: AggregateTypeStatement,
		EventType:     EventTypeStatementCreated,
		Payload:       MarshalPayload(payload),
		CreatedAt:     s.CreatedAt,
	}
}

// NewUserCreatedEvent builds the outbox event for a registered user.
func NewUserCreatedEvent(id string, u *User) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   u.ID,
		AggregateType: AggregateTypeUser,
		EventType:     EventTypeUserCreated,
		Payload:       MarshalPayload(UserCreatedEvent{UserID: u.ID, Email: u.Email}),
		CreatedAt:     u.CreatedAt,
	}
}

// MarshalPayload converts an event struct to the generic map stored in the outbox
func MarshalPayload(v any) map[string]any {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"error": "failed to marshal payload"}
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return map[string]any{"error": "failed to unmarshal payload"}
	}

	return result
}
