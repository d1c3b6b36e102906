// Package guard wraps protected record operations in a fixed, ordered
// authorization sequence: identity, tenant extraction, tenant membership,
// role, step-up authentication, secret provisioning, audit, dispatch. Every
// stage is a hard gate; failing one aborts the request and never reaches the
// next. The handler receives the domain's key material only through the
// pipeline — no other path hands it out.
package guard

import (
	"context"
	"log"
	"regexp"

	"fieldguard/internal/audit"
	"fieldguard/internal/auth"
)

// minSecretLen is the shortest acceptable passphrase from the secret source;
// anything shorter is a deployment misconfiguration.
const minSecretLen = 32

// Identity verifies a presented credential.
type Identity interface {
	Verify(ctx context.Context, token string) (*auth.Principal, error)
}

// Memberships is the read-only tenant membership fact store.
type Memberships interface {
	Exists(ctx context.Context, uid, tenantID string) (bool, error)
	RoleOf(ctx context.Context, uid, tenantID string) (string, bool, error)
}

// SecretSource resolves per-domain key material.
type SecretSource interface {
	Resolve(ctx context.Context, domain string) (string, error)
}

// Request is the transport-agnostic inbound request: the bearer credential
// and the decoded body.
type Request struct {
	Token string
	Body  map[string]any
}

// Handler is a protected operation. key is the domain passphrase, valid for
// this call only; handlers must not retain it.
type Handler func(ctx context.Context, req Request, key string) (any, error)

// Protected is a handler after wrapping; the key never appears in its
// signature.
type Protected func(ctx context.Context, req Request) (any, error)

type Guard struct {
	identity Identity
	members  Memberships
	secrets  SecretSource
	recorder audit.Recorder
	logger   *log.Logger
}

func New(identity Identity, members Memberships, secrets SecretSource, recorder audit.Recorder, logger *log.Logger) *Guard {
	if logger == nil {
		logger = log.Default()
	}
	return &Guard{
		identity: identity,
		members:  members,
		secrets:  secrets,
		recorder: recorder,
		logger:   logger,
	}
}

var tenantPathRe = regexp.MustCompile(`^tenants/([^/]+)(?:/.*)?$`)

// Protect wraps h in the full seven-stage pipeline for the given policy.
func (g *Guard) Protect(policy Policy, h Handler) Protected {
	return func(ctx context.Context, req Request) (any, error) {
		// Stage 1: identity.
		pr, err := g.identity.Verify(ctx, req.Token)
		if err != nil {
			g.logger.Printf("guard: identity rejected: %v", err)
			return nil, errUnauthenticated()
		}

		// Stage 2: tenant extraction.
		tenantID, ok := extractTenant(policy, req.Body)
		if !ok {
			g.logger.Printf("guard: no derivable tenant for uid=%s domain=%s", pr.UID, policy.Domain)
			return nil, errInvalidArgument()
		}

		// Stage 3: membership. Unknown tenant and no access look identical
		// to the caller so tenants cannot be enumerated.
		exists, err := g.members.Exists(ctx, pr.UID, tenantID)
		if err != nil {
			g.logger.Printf("guard: membership lookup uid=%s tenant=%s: %v", pr.UID, tenantID, err)
			return nil, errPermissionDenied()
		}
		if !exists {
			g.logger.Printf("guard: uid=%s not a member of tenant=%s", pr.UID, tenantID)
			return nil, errPermissionDenied()
		}

		// Stage 4: role. Unrecognized role strings count as no role.
		rawRole, found, err := g.members.RoleOf(ctx, pr.UID, tenantID)
		if err != nil || !found {
			g.logger.Printf("guard: no role for uid=%s tenant=%s: %v", pr.UID, tenantID, err)
			return nil, errPermissionDenied()
		}
		role, err := ParseRole(rawRole)
		if err != nil {
			g.logger.Printf("guard: uid=%s tenant=%s: %v", pr.UID, tenantID, err)
			return nil, errPermissionDenied()
		}
		if !policy.roleAllowed(role) {
			g.logger.Printf("guard: role=%s insufficient for domain=%s", role, policy.Domain)
			return nil, errPermissionDenied()
		}

		// Stage 5: step-up authentication.
		if policy.requiresStepUp(role) && !auth.HasStepUp(pr.Claims) {
			g.logger.Printf("guard: step-up required but absent uid=%s tenant=%s role=%s", pr.UID, tenantID, role)
			g.record(audit.Event{
				Kind:    audit.KindMFARejected,
				UID:     pr.UID,
				Tenant:  tenantID,
				Domain:  policy.Domain,
				Role:    string(role),
				Actions: policy.actionNames(),
			})
			return nil, errPermissionDenied()
		}

		// Stage 6: secret provisioning.
		key, err := g.secrets.Resolve(ctx, policy.Domain)
		if err != nil {
			g.logger.Printf("guard: secret for domain=%s unavailable: %v", policy.Domain, err)
			return nil, errFailedPrecondition()
		}
		if len(key) < minSecretLen {
			g.logger.Printf("guard: secret for domain=%s below minimum length", policy.Domain)
			return nil, errFailedPrecondition()
		}

		// Stage 7: audit, then dispatch with the key as an opaque parameter.
		g.record(audit.Event{
			Kind:    audit.KindAccess,
			UID:     pr.UID,
			Tenant:  tenantID,
			Domain:  policy.Domain,
			Role:    string(role),
			Actions: policy.actionNames(),
		})
		return h(ctx, req, key)
	}
}

// ProtectOwner is the user-scoped variant for self-service personal-data
// operations: tenant, membership, role, and step-up checks collapse into a
// single owner-equality check, while secret provisioning and audit behave
// exactly as in Protect.
func (g *Guard) ProtectOwner(ownerField, domain string, h Handler) Protected {
	return func(ctx context.Context, req Request) (any, error) {
		pr, err := g.identity.Verify(ctx, req.Token)
		if err != nil {
			g.logger.Printf("guard: identity rejected: %v", err)
			return nil, errUnauthenticated()
		}

		owner, _ := req.Body[ownerField].(string)
		if owner == "" {
			g.logger.Printf("guard: owner field %q missing for uid=%s", ownerField, pr.UID)
			return nil, errInvalidArgument()
		}
		if owner != pr.UID {
			g.logger.Printf("guard: uid=%s is not owner of requested record", pr.UID)
			return nil, errPermissionDenied()
		}

		key, err := g.secrets.Resolve(ctx, domain)
		if err != nil {
			g.logger.Printf("guard: secret for domain=%s unavailable: %v", domain, err)
			return nil, errFailedPrecondition()
		}
		if len(key) < minSecretLen {
			g.logger.Printf("guard: secret for domain=%s below minimum length", domain)
			return nil, errFailedPrecondition()
		}

		g.record(audit.Event{
			Kind:   audit.KindAccess,
			UID:    pr.UID,
			Domain: domain,
			Role:   "self",
		})
		return h(ctx, req, key)
	}
}

// record is fire-and-forget: recorder failures never change the outcome of
// the request that produced the event.
func (g *Guard) record(e audit.Event) {
	if g.recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			g.logger.Printf("guard: audit recorder panicked: %v", r)
		}
	}()
	g.recorder.Record(e)
}

// extractTenant derives the tenant id from the request body, preferring the
// declared top-level field and falling back to pattern-matching a
// path-shaped field against the tenants/{id}/... convention.
func extractTenant(policy Policy, body map[string]any) (string, bool) {
	if policy.TenantField != "" {
		if v, ok := body[policy.TenantField].(string); ok && v != "" {
			return v, true
		}
	}
	if policy.TenantPathField != "" {
		if v, ok := body[policy.TenantPathField].(string); ok {
			if m := tenantPathRe.FindStringSubmatch(v); m != nil {
				return m[1], true
			}
		}
	}
	return "", false
}
