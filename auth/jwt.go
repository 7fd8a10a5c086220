package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Defaults for JWTConfig.
const (
	DefaultIssuer    = "tieredcache"
	DefaultAudience  = "tieredcache-admin"
	DefaultAdminRole = "cache-admin"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected and issued token issuer (iss claim).
	// Default: "tieredcache"
	Issuer string

	// Audience is the expected and issued token audience (aud claim).
	// Default: "tieredcache-admin"
	Audience string

	// Leeway tolerates clock skew when checking exp, nbf and iat.
	Leeway time.Duration

	// Now is the clock. Default: time.Now
	Now func() time.Time
}

// Claims is the token payload.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthenticator issues and validates HS256 tokens.
type JWTAuthenticator struct {
	config JWTConfig
	key    []byte
}

// NewJWTAuthenticator creates a new JWT authenticator for key.
func NewJWTAuthenticator(config JWTConfig, key []byte) (*JWTAuthenticator, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	if config.Issuer == "" {
		config.Issuer = DefaultIssuer
	}
	if config.Audience == "" {
		config.Audience = DefaultAudience
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &JWTAuthenticator{config: config, key: key}, nil
}

// Issue signs a token for subject holding roles, valid for ttl.
func (a *JWTAuthenticator) Issue(subject string, roles []string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("auth: token ttl must be positive, got %s", ttl)
	}
	now := a.config.Now()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.config.Issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{a.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify validates token and returns its identity.
func (a *JWTAuthenticator) Verify(token string) (*Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.config.Issuer),
		jwt.WithAudience(a.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.config.Leeway),
		jwt.WithTimeFunc(a.config.Now),
	)
	if err != nil {
		return nil, wrapJWTError(err)
	}

	id := &Identity{
		Subject: claims.Subject,
		Roles:   claims.Roles,
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// Authenticate verifies the bearer token of r.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return nil, ErrMissingCredentials
	}
	return a.Verify(strings.TrimSpace(token))
}

func wrapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
}
