// Package fields declares which parts of a stored record are sensitive and
// transforms records accordingly: encrypting and decrypting declared fields
// in place, and projecting records down to a whitelist for list views.
package fields

import (
	"fmt"
	"strings"
)

// Path is a parsed dotted field path such as "bankDetails.accountNumber".
// Paths are fixed at startup; they are never built from request input.
type Path struct {
	segments []string
	raw      string
}

// ParsePath validates and splits a dotted path.
func ParsePath(raw string) (Path, error) {
	if raw == "" {
		return Path{}, fmt.Errorf("fields: empty path")
	}
	segs := strings.Split(raw, ".")
	for _, s := range segs {
		if s == "" {
			return Path{}, fmt.Errorf("fields: path %q has an empty segment", raw)
		}
	}
	return Path{segments: segs, raw: raw}, nil
}

// MustParsePath is ParsePath for package-level declarations.
func MustParsePath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return p.raw }

// lookup walks the path through nested maps. ok is false when any segment is
// missing or an intermediate value is not a map; absence is not an error.
func (p Path) lookup(record map[string]any) (any, bool) {
	cur := any(record)
	for _, seg := range p.segments {
		m, isMap := cur.(map[string]any)
		if !isMap {
			return nil, false
		}
		next, present := m[seg]
		if !present {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// store writes v at the path, creating intermediate maps as needed. An
// intermediate that exists but is not a map leaves the record untouched.
func (p Path) store(record map[string]any, v any) bool {
	cur := record
	for _, seg := range p.segments[:len(p.segments)-1] {
		next, present := cur[seg]
		if !present {
			child := map[string]any{}
			cur[seg] = child
			cur = child
			continue
		}
		child, isMap := next.(map[string]any)
		if !isMap {
			return false
		}
		cur = child
	}
	cur[p.segments[len(p.segments)-1]] = v
	return true
}
