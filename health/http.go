package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Probe deadlines.
const (
	ReadinessTimeout = 5 * time.Second
	DetailedTimeout  = 10 * time.Second
)

// readinessBody is the plain-text body of /readyz per overall status.
var readinessBody = map[Status]string{
	StatusHealthy:   "OK",
	StatusDegraded:  "DEGRADED",
	StatusUnhealthy: "UNHEALTHY",
}

// HealthResponse is the body of the detailed endpoint.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is one check in a HealthResponse, and the body of a single
// check endpoint.
type CheckResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func newCheckResponse(r Result) CheckResponse {
	resp := CheckResponse{
		Status:   r.Status.String(),
		Message:  r.Message,
		Duration: r.Duration.String(),
		Details:  r.Details,
	}
	if r.Error != nil {
		resp.Error = r.Error.Error()
	}
	return resp
}

// LivenessHandler answers 200 while the process can serve HTTP at all.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "OK")
	}
}

// ReadinessHandler runs every check. Only an unhealthy result fails the
// probe; a node serving from its local tier alone stays in rotation.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), ReadinessTimeout)
		defer cancel()

		status := OverallStatus(agg.CheckAll(ctx))
		writeText(w, httpStatus(status), readinessBody[status])
	}
}

// DetailedHandler reports every check as JSON.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), DetailedTimeout)
		defer cancel()

		results := agg.CheckAll(ctx)
		status := OverallStatus(results)

		checks := make(map[string]CheckResponse, len(results))
		for name, result := range results {
			checks[name] = newCheckResponse(result)
		}
		writeJSON(w, httpStatus(status), HealthResponse{
			Status:    status.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checks,
		})
	}
}

// SingleCheckHandler reports the check registered as name.
func SingleCheckHandler(agg *Aggregator, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), ReadinessTimeout)
		defer cancel()

		result, err := agg.Check(ctx, name)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, httpStatus(result.Status), newCheckResponse(result))
	}
}

// RegisterHandlers mounts /healthz, /readyz, /health and /health/{name}
// for each checker registered so far.
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator) {
	mux.HandleFunc("GET /healthz", LivenessHandler())
	mux.HandleFunc("GET /readyz", ReadinessHandler(agg))
	mux.HandleFunc("GET /health", DetailedHandler(agg))
	for _, name := range agg.CheckerNames() {
		mux.HandleFunc("GET /health/"+name, SingleCheckHandler(agg, name))
	}
}

func httpStatus(s Status) int {
	if s >= StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
