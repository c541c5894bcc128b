package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/finledger/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks responses served from the cache.
	IdempotencyReplayHeader = "X-Idempotency-Replay"

	maxIdempotencyKeyLength = 255
)

// cachedResponse is what gets stored under an idempotency key once the first
// request completes.
type cachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// IdempotencyMiddleware replays the stored response of a completed request
// carrying the same Idempotency-Key.
type IdempotencyMiddleware struct {
	store    usecase.IdempotencyStore
	ttl      time.Duration
	onReplay func()
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl, onReplay: func() {}}
}

// OnReplay registers a callback run for every replayed response.
func (m *IdempotencyMiddleware) OnReplay(fn func()) *IdempotencyMiddleware {
	m.onReplay = fn
	return m
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only apply to mutating requests
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			writeError(w, http.StatusBadRequest, "idempotency key too long")
			return
		}

		key = scopedKey(r, key)

		exists, stored, err := m.store.CheckAndSet(r.Context(), key, nil, m.ttl)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("idempotency check failed")
			writeError(w, http.StatusInternalServerError, "idempotency check failed")
			return
		}

		if exists {
			var cached cachedResponse
			if json.Unmarshal(stored, &cached) != nil || cached.Status == 0 {
				writeError(w, http.StatusConflict, "a request with this idempotency key is in progress")
				return
			}

			m.onReplay()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(IdempotencyReplayHeader, "true")
			w.WriteHeader(cached.Status)
			_, _ = w.Write(cached.Body)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}

		completed := false
		defer func() {
			// Handler failed or panicked: free the key so the client can retry.
			if !completed {
				m.release(r.Context(), key)
			}
		}()

		next.ServeHTTP(recorder, r)

		if recorder.statusCode < 200 || recorder.statusCode >= 300 {
			return
		}

		payload, err := json.Marshal(cachedResponse{Status: recorder.statusCode, Body: recorder.body.Bytes()})
		if err != nil {
			return
		}
		if err := m.store.Update(context.WithoutCancel(r.Context()), key, payload, m.ttl); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to store idempotent response")
			return
		}
		completed = true
	})
}

func (m *IdempotencyMiddleware) release(ctx context.Context, key string) {
	if err := m.store.Release(context.WithoutCancel(ctx), key); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to release idempotency key")
	}
}

// scopedKey keeps keys from colliding across callers and endpoints.
func scopedKey(r *http.Request, key string) string {
	scope := r.Method + " " + r.URL.Path
	if userID, ok := UserIDFromContext(r.Context()); ok {
		scope = userID + " " + scope
	}
	return scope + " " + key
}

type responseRecorder struct {
	http.ResponseWriter

	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
