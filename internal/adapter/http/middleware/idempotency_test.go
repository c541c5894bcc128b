package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdempotencyStore struct {
	data     map[string][]byte
	checkErr error
	released []string
	updated  []string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{data: map[string][]byte{}}
}

func (f *fakeIdempotencyStore) CheckAndSet(_ context.Context, key string, _ []byte, _ time.Duration) (bool, []byte, error) {
	if f.checkErr != nil {
		return false, nil, f.checkErr
	}
	if v, ok := f.data[key]; ok {
		return true, v, nil
	}
	f.data[key] = []byte("processing")
	return false, nil, nil
}

func (f *fakeIdempotencyStore) Update(_ context.Context, key string, response []byte, _ time.Duration) error {
	f.updated = append(f.updated, key)
	f.data[key] = response
	return nil
}

func (f *fakeIdempotencyStore) Release(_ context.Context, key string) error {
	f.released = append(f.released, key)
	delete(f.data, key)
	return nil
}

func countingHandler(status int, body string, calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func postWithKey(path, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"amount":"10"}`))
	req.Header.Set(IdempotencyKeyHeader, key)
	return req
}

func TestIdempotencyMiddleware_ReplaysCompletedResponse(t *testing.T) {
	store := newFakeIdempotencyStore()
	replays := 0
	calls := 0
	handler := NewIdempotencyMiddleware(store, time.Hour).
		OnReplay(func() { replays++ }).
		Wrap(countingHandler(http.StatusCreated, `{"id":"st-1"}`, &calls))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postWithKey("/api/v1/statements/deposit", "key-1"))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(IdempotencyReplayHeader))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postWithKey("/api/v1/statements/deposit", "key-1"))

	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(IdempotencyReplayHeader))
	assert.JSONEq(t, `{"id":"st-1"}`, second.Body.String())
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, replays)
}

func TestIdempotencyMiddleware_ReleasesFailedRequests(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := NewIdempotencyMiddleware(store, time.Hour).
		Wrap(countingHandler(http.StatusBadRequest, `{"error":"insufficient funds"}`, &calls))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, postWithKey("/api/v1/statements/withdraw", "key-2"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	assert.Equal(t, 2, calls)
	assert.Len(t, store.released, 2)
	assert.Empty(t, store.updated)
}

func TestIdempotencyMiddleware_InFlightKeyConflicts(t *testing.T) {
	store := newFakeIdempotencyStore()
	req := postWithKey("/api/v1/statements/deposit", "key-3")
	store.data[scopedKey(req, "key-3")] = []byte("processing")

	calls := 0
	rec := httptest.NewRecorder()
	NewIdempotencyMiddleware(store, time.Hour).
		Wrap(countingHandler(http.StatusCreated, `{}`, &calls)).
		ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, calls)
}

func TestIdempotencyMiddleware_StoreErrorFailsRequest(t *testing.T) {
	store := newFakeIdempotencyStore()
	store.checkErr = errors.New("redis down")

	calls := 0
	rec := httptest.NewRecorder()
	NewIdempotencyMiddleware(store, time.Hour).
		Wrap(countingHandler(http.StatusCreated, `{}`, &calls)).
		ServeHTTP(rec, postWithKey("/api/v1/statements/deposit", "key-4"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Zero(t, calls)
}

func TestIdempotencyMiddleware_SkipsWithoutKeyOrForReads(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := NewIdempotencyMiddleware(store, time.Hour).
		Wrap(countingHandler(http.StatusOK, `{}`, &calls))

	get := httptest.NewRequest(http.MethodGet, "/api/v1/statements/balance", nil)
	get.Header.Set(IdempotencyKeyHeader, "key-5")
	handler.ServeHTTP(httptest.NewRecorder(), get)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/statements/deposit", nil))

	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyMiddleware_RejectsOversizedKey(t *testing.T) {
	calls := 0
	rec := httptest.NewRecorder()
	NewIdempotencyMiddleware(newFakeIdempotencyStore(), time.Hour).
		Wrap(countingHandler(http.StatusCreated, `{}`, &calls)).
		ServeHTTP(rec, postWithKey("/api/v1/statements/deposit", strings.Repeat("k", 256)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, calls)
}

func TestIdempotencyMiddleware_KeysAreScopedPerUser(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := NewIdempotencyMiddleware(store, time.Hour).
		Wrap(countingHandler(http.StatusCreated, `{}`, &calls))

	for _, user := range []string{"alice", "bob"} {
		req := postWithKey("/api/v1/statements/deposit", "shared")
		req = req.WithContext(ContextWithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get(IdempotencyReplayHeader))
	}

	assert.Equal(t, 2, calls)
}

func TestCachedResponseRoundTrip(t *testing.T) {
	payload, err := json.Marshal(cachedResponse{Status: 201, Body: []byte(`{"id":"x"}`)})
	require.NoError(t, err)

	var decoded cachedResponse
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, 201, decoded.Status)
	assert.Equal(t, `{"id":"x"}`, string(decoded.Body))
}
