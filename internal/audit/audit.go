// Package audit records access decisions made by the guard pipeline. Events
// carry who acted, on which tenant and domain, and with which declared
// actions — never plaintext field values and never key material. Entries are
// hash-chained so truncation or edits are detectable.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds.
const (
	KindAccess      = "access"
	KindMFARejected = "mfa_rejected"
)

type Event struct {
	ID      string   `json:"id"`
	TS      int64    `json:"ts"`
	Kind    string   `json:"kind"`
	UID     string   `json:"uid"`
	Tenant  string   `json:"tenant"`
	Domain  string   `json:"domain"`
	Role    string   `json:"role"`
	Actions []string `json:"actions,omitempty"`
	Hash    string   `json:"hash"`
}

// Recorder accepts events without blocking the caller. Implementations must
// swallow their own failures: recording is fire-and-forget and never affects
// the decision that produced the event.
type Recorder interface {
	Record(e Event)
}

// Log is a hash-chained in-memory event log.
type Log struct {
	mu       sync.Mutex
	lastHash []byte
	entries  []Event
}

func NewLog() *Log { return &Log{} }

func (l *Log) Record(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.ID = uuid.NewString()
	if e.TS == 0 {
		e.TS = time.Now().Unix()
	}
	h := sha256.New()
	h.Write(l.lastHash)
	h.Write([]byte(chainInput(e)))
	sum := h.Sum(nil)
	l.lastHash = sum
	e.Hash = hex.EncodeToString(sum)
	l.entries = append(l.entries, e)
}

// Verify recomputes the chain and fails on any break.
func (l *Log) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var prev []byte
	for i, e := range l.entries {
		h := sha256.New()
		h.Write(prev)
		h.Write([]byte(chainInput(e)))
		sum := h.Sum(nil)
		if hex.EncodeToString(sum) != e.Hash {
			return fmt.Errorf("audit: chain broken at entry %d", i)
		}
		prev = sum
	}
	return nil
}

func (l *Log) Entries() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.entries...)
}

func chainInput(e Event) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s", e.Kind, e.UID, e.Tenant, e.Domain, e.Role, strings.Join(e.Actions, ","))
}
