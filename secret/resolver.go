package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

// Resolver expands environment variables and secret references in
// configuration values.
//
// A value that is exactly secretref:<provider>:<ref> becomes the provider's
// answer. References may also sit inside a longer value, such as
// "redis://:secretref:env:REDIS_PASSWORD@host:6379"; an inline ref ends at
// whitespace or '@'. A nil *Resolver only expands the environment.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver over providers. A strict resolver rejects
// references that resolve to the empty string.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider, len(providers)), strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds provider, replacing any provider with the same name.
func (r *Resolver) Register(provider Provider) {
	if r == nil || provider == nil {
		return
	}
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	r.providers[provider.Name()] = provider
}

// ResolveValue expands the environment in value and then resolves its
// secret references.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if r == nil || !strings.Contains(expanded, refPrefix) {
		return expanded, nil
	}
	if provider, ref, ok := ParseSecretRef(expanded); ok {
		return r.lookup(ctx, provider, ref)
	}

	var firstErr error
	out := inlineRef.ReplaceAllStringFunc(expanded, func(match string) string {
		if firstErr != nil {
			return match
		}
		provider, ref, _ := ParseSecretRef(match)
		v, err := r.lookup(ctx, provider, ref)
		if err != nil {
			firstErr = err
			return match
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Close closes every provider and joins their errors.
func (r *Resolver) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for name, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close provider %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ParseSecretRef splits secretref:<provider>:<ref>. The ref may itself
// contain colons.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

var inlineRef = regexp.MustCompile(`secretref:[^:\s]+:[^\s@]+`)

func (r *Resolver) lookup(ctx context.Context, provider, ref string) (string, error) {
	if strings.TrimSpace(provider) == "" || strings.TrimSpace(ref) == "" {
		return "", ErrInvalidRef
	}
	p, ok := r.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderNotRegistered, provider)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w: provider %q ref %q", ErrEmptySecret, provider, ref)
	}
	return v, nil
}
