package secret

import "errors"

var (
	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrProviderNotRegistered indicates a reference to an unknown provider.
	ErrProviderNotRegistered = errors.New("secret: provider not registered")

	// ErrInvalidRef indicates a malformed or empty secret reference.
	ErrInvalidRef = errors.New("secret: invalid reference")

	// ErrNotFound indicates the provider has no secret under the reference.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmptySecret indicates a strict resolver received an empty value.
	ErrEmptySecret = errors.New("secret: empty value")
)
