package auth

import (
	"context"
	"errors"
	"strings"
)

var ErrUserNotFound = errors.New("auth: user not found")

// User is a directory entry. Tenant roles are not stored here; they live in
// the per-tenant membership store.
type User struct {
	UID        string
	Email      string
	PassHash   string // argon2id encoded string
	TOTPSecret string
}

type UserStore interface {
	FindByUID(ctx context.Context, uid string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Add(ctx context.Context, u *User) error
}

type MemoryUserStore struct {
	byUID   map[string]*User
	byEmail map[string]*User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byUID:   map[string]*User{},
		byEmail: map[string]*User{},
	}
}

func (s *MemoryUserStore) Add(_ context.Context, u *User) error {
	if u == nil || u.UID == "" {
		return errors.New("auth: invalid user")
	}
	if _, exists := s.byUID[u.UID]; exists {
		return errors.New("auth: user already exists")
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email != "" {
		if _, exists := s.byEmail[email]; exists {
			return errors.New("auth: email already exists")
		}
	}
	clone := *u
	clone.Email = email
	s.byUID[u.UID] = &clone
	if email != "" {
		s.byEmail[email] = &clone
	}
	return nil
}

func (s *MemoryUserStore) FindByUID(_ context.Context, uid string) (*User, error) {
	if u, ok := s.byUID[uid]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, ErrUserNotFound
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	if u, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, ErrUserNotFound
}
