package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health-check", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	assert.JSONEq(t, `{"status":"ok"}`, string(decode(t, rec).Data))

	rec = s.do(t, http.MethodGet, "/health-check", "", map[string]string{"ping": "pong"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ping":"pong"}`, string(decode(t, rec).Data))
}

func TestHealthCheckCode(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health-check/check-code", "", map[string]int{"statusCode": 418})
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected status %d got %d", http.StatusTeapot, rec.Code)
	}
	env := decode(t, rec)
	assert.False(t, env.Success)

	rec = s.do(t, http.MethodGet, "/health-check/check-code?statusCode=201", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decode(t, rec).Success)

	for _, query := range []string{"?statusCode=999", "?statusCode=102", "?statusCode=abc", ""} {
		rec = s.do(t, http.MethodGet, "/health-check/check-code"+query, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}
