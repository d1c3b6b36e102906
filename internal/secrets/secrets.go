// Package secrets resolves per-domain key material from an external source.
// Material is resolved once per cold start by the guard pipeline and handed
// to handlers as an opaque parameter; nothing else may hold it.
package secrets

import (
	"context"
	"errors"
	"os"
	"strings"
)

var ErrNotFound = errors.New("secrets: no material for domain")

// Domain names for the built-in secret scopes.
const (
	DomainFinance  = "finance"
	DomainHR       = "hr"
	DomainSettings = "settings"
)

// Provider resolves the raw passphrase for a named domain.
type Provider interface {
	Resolve(ctx context.Context, domain string) (string, error)
}

// Static serves a fixed map. Used in tests and for seeded dev setups.
type Static map[string]string

func (s Static) Resolve(_ context.Context, domain string) (string, error) {
	if v, ok := s[domain]; ok && v != "" {
		return v, nil
	}
	return "", ErrNotFound
}

// Env resolves FIELDGUARD_SECRET_<DOMAIN> from the environment.
type Env struct {
	Prefix string
}

func (e Env) Resolve(_ context.Context, domain string) (string, error) {
	prefix := e.Prefix
	if prefix == "" {
		prefix = "FIELDGUARD_SECRET_"
	}
	key := prefix + strings.ToUpper(domain)
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	return "", ErrNotFound
}
