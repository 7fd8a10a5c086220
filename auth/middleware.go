package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/tieredcache/observe"
)

// RequireRole lets requests through only when they carry a valid token whose
// identity holds role. Missing or invalid tokens get 401, a valid token
// without the role gets 403.
func RequireRole(a *JWTAuthenticator, role string, logger observe.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Authenticate(r)
		if err != nil {
			logger.Warn(r.Context(), "admin request rejected",
				observe.F("path", r.URL.Path),
				observe.F("error", err),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="tieredcache"`)
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		if !id.HasRole(role) {
			logger.Warn(r.Context(), "admin request forbidden",
				observe.F("path", r.URL.Path),
				observe.F("subject", id.Subject),
			)
			writeError(w, http.StatusForbidden, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func writeError(w http.ResponseWriter, code int, err error) {
	msg := err.Error()
	// Only the sentinel reaches the client.
	for _, sentinel := range []error{ErrMissingCredentials, ErrTokenExpired, ErrTokenMalformed, ErrInvalidCredentials, ErrForbidden} {
		if errors.Is(err, sentinel) {
			msg = sentinel.Error()
			break
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
