package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "lon...", truncate("longerstring", 6))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}))

	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestHashPasswordCmd(t *testing.T) {
	orig := bcryptGenerate
	bcryptGenerate = func(p []byte, cost int) ([]byte, error) {
		return []byte("hashed-value"), nil
	}
	defer func() { bcryptGenerate = orig }()

	out, err := runCLI(t, "hash-password", "secret")

	require.NoError(t, err)
	assert.Equal(t, "hashed-value", strings.TrimSpace(out))
}

func TestBalanceCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/statements/balance", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("with_statement"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"balance":"70","statement":[]}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "balance", "--with-statement", "--url", srv.URL, "--token", "tok")

	require.NoError(t, err)
	assert.Contains(t, out, `"balance": "70"`)
}

func TestStatementGetCmd_ReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/statements/st-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"statement not found"}`))
	}))
	defer srv.Close()

	_, err := runCLI(t, "statement", "get", "st-1", "--url", srv.URL, "--token", "tok")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement not found")
	assert.Contains(t, err.Error(), "404")
}

func TestLedgerConsistencyCmd(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantOut string
		wantErr bool
	}{
		{name: "consistent", body: `{"consistent":true,"net_balance":"100","negative_balances":[]}`, wantOut: "PASSED"},
		{name: "inconsistent", body: `{"consistent":false,"net_balance":"-10","negative_balances":[{"user_id":"a","balance":"-10"}]}`, wantOut: "FAILED", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			out, err := runCLI(t, "ledger", "consistency", "--url", srv.URL, "--token", "tok")

			assert.Contains(t, out, tt.wantOut)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoginCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/sessions", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"jwt-123","user":{"id":"u1"}}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "login", "--email", "a@example.com", "--password", "password123", "--url", srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "jwt-123", strings.TrimSpace(out))
}
