package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestHealthHandler_Readiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checks   map[string]PingFunc
		wantCode int
		wantBad  string
	}{
		{"all up", map[string]PingFunc{"postgres": ok, "redis": ok}, http.StatusOK, ""},
		{"redis down", map[string]PingFunc{"postgres": ok, "redis": down}, http.StatusServiceUnavailable, "redis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			c, rec := jsonContext(e, http.MethodGet, "/health/ready", "")

			if err := NewHealthHandler(tt.checks).Readiness(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			var resp readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if len(resp.Dependencies) != len(tt.checks) {
				t.Fatalf("unexpected dependencies %+v", resp.Dependencies)
			}
			if tt.wantBad != "" && resp.Dependencies[tt.wantBad].Status != "unhealthy" {
				t.Fatalf("expected %s unhealthy, got %+v", tt.wantBad, resp.Dependencies)
			}
		})
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	e := newTestEcho()
	c, rec := jsonContext(e, http.MethodGet, "/health", "")

	if err := NewHealthHandler(nil).Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
