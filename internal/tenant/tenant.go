// Package tenant answers the two membership questions the guard pipeline
// asks: does (uid, tenant) exist, and with which role. The store is
// read-only from the pipeline's perspective; role strings are returned raw
// and parsed against the closed role set by the caller.
package tenant

import (
	"context"
	"sync"
)

// MembershipStore is the external membership fact store.
type MembershipStore interface {
	Exists(ctx context.Context, uid, tenantID string) (bool, error)
	RoleOf(ctx context.Context, uid, tenantID string) (string, bool, error)
}

// MemoryStore backs tests and dev setups.
type MemoryStore struct {
	mu    sync.RWMutex
	roles map[string]string // uid + "\x00" + tenantID -> role
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{roles: map[string]string{}}
}

func (s *MemoryStore) Grant(uid, tenantID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[key(uid, tenantID)] = role
}

func (s *MemoryStore) Exists(_ context.Context, uid, tenantID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roles[key(uid, tenantID)]
	return ok, nil
}

func (s *MemoryStore) RoleOf(_ context.Context, uid, tenantID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[key(uid, tenantID)]
	return r, ok, nil
}

func key(uid, tenantID string) string { return uid + "\x00" + tenantID }
