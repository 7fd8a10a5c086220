package main

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/jonwraymond/tieredcache/auth"
	"github.com/jonwraymond/tieredcache/cache"
	"github.com/jonwraymond/tieredcache/observe"
	"github.com/jonwraymond/tieredcache/resilience"
)

// registerAdmin mounts the token-protected cache management endpoints.
func registerAdmin(mux *http.ServeMux, a *app, reaper *cache.Reaper) error {
	authn, err := auth.NewJWTAuthenticator(a.cfg.JWTConfig(), []byte(a.cfg.Server.Admin.TokenSecret))
	if err != nil {
		return err
	}
	logger := a.logger.With(observe.F("component", "admin"))
	role := a.cfg.Server.Admin.Role
	limiter := resilience.NewRateLimiter(a.cfg.AdminRateLimit())
	guard := func(h http.HandlerFunc) http.Handler {
		return rateLimited(limiter, logger, auth.RequireRole(authn, role, logger, h))
	}

	mux.Handle("DELETE /cache/{key}", guard(func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		if err := cache.ValidateKey(key); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		a.engine.Delete(r.Context(), key)
		logger.Info(r.Context(), "key deleted", observe.F("key", key), observe.F("subject", subject(r)))
		writeJSON(w, http.StatusOK, map[string]string{"deleted": key})
	}))

	mux.Handle("POST /cache/clear", guard(func(w http.ResponseWriter, r *http.Request) {
		a.engine.Clear(r.Context())
		logger.Info(r.Context(), "cache cleared by admin", observe.F("subject", subject(r)))
		writeJSON(w, http.StatusOK, a.engine.Stats())
	}))

	mux.Handle("POST /cache/sweep", guard(func(w http.ResponseWriter, r *http.Request) {
		removed := reaper.Sweep(r.Context())
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	}))

	a.logger.Info(context.Background(), "admin endpoints enabled", observe.F("role", role))
	return nil
}

// rateLimited answers 429 once the shared admin budget is spent. It runs
// before authentication so rejected tokens also spend the budget.
func rateLimited(limiter *resilience.RateLimiter, logger observe.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			retry := max(1, int(math.Ceil(limiter.RetryAfter().Seconds())))
			logger.Warn(r.Context(), "admin request throttled", observe.F("path", r.URL.Path))
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": resilience.ErrRateLimited.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func subject(r *http.Request) string {
	if id := auth.IdentityFromContext(r.Context()); id != nil {
		return id.Subject
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
