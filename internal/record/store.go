// Package record is the key-path addressed document store the guarded
// handlers read and write. The core defines no schema beyond the field paths
// it encrypts; concurrent writers to the same path are last-write-wins.
package record

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("record: not found")

type Store interface {
	Get(ctx context.Context, path string) (map[string]any, error)
	Set(ctx context.Context, path string, value map[string]any) error
	Update(ctx context.Context, path string, partial map[string]any) error
	Remove(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)

	// Push stores value under a fresh id below pathPrefix and returns the
	// new full path.
	Push(ctx context.Context, pathPrefix string, value map[string]any) (string, error)

	// List returns the paths directly under pathPrefix, sorted.
	List(ctx context.Context, pathPrefix string) ([]string, error)
}

// MemoryStore backs tests and dev setups.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string]map[string]any{}}
}

func (s *MemoryStore) Get(_ context.Context, path string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(doc), nil
}

func (s *MemoryStore) Set(_ context.Context, path string, value map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = copyDoc(value)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, path string, partial map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return ErrNotFound
	}
	merged := copyDoc(doc)
	for k, v := range partial {
		merged[k] = copyValue(v)
	}
	s.docs[path] = merged
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[path]
	return ok, nil
}

func (s *MemoryStore) Push(_ context.Context, pathPrefix string, value map[string]any) (string, error) {
	path := strings.TrimSuffix(pathPrefix, "/") + "/" + uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = copyDoc(value)
	return path, nil
}

func (s *MemoryStore) List(_ context.Context, pathPrefix string) ([]string, error) {
	prefix := strings.TrimSuffix(pathPrefix, "/") + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for p := range s.docs {
		if strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], "/") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func copyDoc(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return copyDoc(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = copyValue(e)
		}
		return out
	default:
		return x
	}
}
