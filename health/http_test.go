package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("Body = %q, want OK", rec.Body.String())
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		status   Status
		wantCode int
		wantBody string
	}{
		{StatusHealthy, http.StatusOK, "OK"},
		{StatusDegraded, http.StatusOK, "DEGRADED"},
		{StatusUnhealthy, http.StatusServiceUnavailable, "UNHEALTHY"},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			agg := NewAggregator()
			agg.Register("c", fixed(tt.status))

			rec := httptest.NewRecorder()
			ReadinessHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("Status = %d, want %d", rec.Code, tt.wantCode)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestDetailedHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Register("backend", fixed(StatusDegraded))
	agg.Register("memory", fixed(StatusHealthy))

	rec := httptest.NewRecorder()
	DetailedHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", resp.Status)
	}
	if len(resp.Checks) != 2 || resp.Checks["backend"].Status != "degraded" {
		t.Errorf("Checks = %+v", resp.Checks)
	}
}

func TestSingleCheckHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Register("memory", fixed(StatusUnhealthy))

	rec := httptest.NewRecorder()
	SingleCheckHandler(agg, "memory")(rec, httptest.NewRequest(http.MethodGet, "/health/memory", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var resp CheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != ErrCheckFailed.Error() {
		t.Errorf("Error = %q, want %q", resp.Error, ErrCheckFailed.Error())
	}

	rec = httptest.NewRecorder()
	SingleCheckHandler(agg, "missing")(rec, httptest.NewRequest(http.MethodGet, "/health/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRegisterHandlers(t *testing.T) {
	agg := NewAggregator()
	agg.Register("backend", NewCheckerFunc("backend", func(ctx context.Context) Result {
		return Healthy("ok")
	}))

	mux := http.NewServeMux()
	RegisterHandlers(mux, agg)

	for _, path := range []string{"/healthz", "/readyz", "/health", "/health/backend"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}
