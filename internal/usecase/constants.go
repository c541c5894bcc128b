package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds how long a statement write may hold
	// its account lock.
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// Rejection reasons reported to StatementMetrics.
const (
	RejectReasonValidation        = "validation"
	RejectReasonUserNotFound      = "user_not_found"
	RejectReasonInsufficientFunds = "insufficient_funds"
)

// emailLockKey namespaces registration locks away from account locks.
func emailLockKey(email string) string {
	return "email:" + email
}
