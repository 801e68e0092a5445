package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLiveness(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestReadiness(t *testing.T) {
	ok := Check{Name: "redis", Ping: func(context.Context) error { return nil }}
	down := Check{Name: "postgres", Ping: func(context.Context) error { return errors.New("connection refused") }}

	tests := []struct {
		name   string
		checks []Check
		status int
		body   map[string]string
	}{
		{"no dependencies", nil, http.StatusOK, map[string]string{"status": "ready"}},
		{"all healthy", []Check{ok}, http.StatusOK, map[string]string{"status": "ready", "redis": "ok"}},
		{"one down", []Check{ok, down}, http.StatusServiceUnavailable, map[string]string{"error": "postgres unhealthy", "message": "connection refused"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.checks...).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			for k, v := range tt.body {
				if body[k] != v {
					t.Fatalf("expected %s=%q, got %q", k, v, body[k])
				}
			}
		})
	}
}
