// Package retry retries connection setup against backing services at startup.
// Request handling never retries.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Retrier runs an operation with exponential backoff.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	logger          zerolog.Logger
}

// NewRetrier creates a Retrier with startup-friendly defaults.
func NewRetrier(logger zerolog.Logger) *Retrier {
	return &Retrier{
		maxRetries:      5,
		initialInterval: 200 * time.Millisecond,
		maxInterval:     5 * time.Second,
		maxElapsedTime:  30 * time.Second,
		logger:          logger,
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry calls operation until it succeeds, returns a Permanent error, the
// retry budget is spent or ctx is done.
func (r *Retrier) Retry(ctx context.Context, name string, operation func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsedTime

	attempt := 0

	return backoff.Retry(func() error {
		err := operation(ctx)
		if err == nil {
			return nil
		}

		attempt++
		if attempt > r.maxRetries {
			return backoff.Permanent(err)
		}

		r.logger.Warn().
			Err(err).
			Str("dependency", name).
			Int("attempt", attempt).
			Msg("dependency not ready, retrying")

		return err
	}, backoff.WithContext(b, ctx))
}
