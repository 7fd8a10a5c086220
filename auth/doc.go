// Package auth protects the cache admin endpoints with HMAC-signed JWT
// bearer tokens.
//
// A JWTAuthenticator both issues and verifies tokens for a single shared
// secret. RequireRole wraps an http.Handler so only callers holding the
// configured role reach it; the verified Identity is available to the handler
// through IdentityFromContext.
package auth
