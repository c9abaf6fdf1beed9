package memory

import (
	"sort"
	"sync"
	"time"
)

// Entry is one prior call recorded against a lead.
type Entry struct {
	SessionID string
	AgentID   string
	Summary   string
	Outcome   string
	At        time.Time
}

// Store persists per-lead call history.
type Store interface {
	// Remember appends an entry to the lead's history.
	Remember(leadID string, entry Entry) error
	// LatestSummary returns the most recent non-empty summary for the lead,
	// or false when the lead has no usable history.
	LatestSummary(leadID string) (string, bool)
	// History returns the lead's entries ordered oldest first. The slice is
	// a snapshot and safe for caller mutation.
	History(leadID string) ([]Entry, error)
}

// InMemoryStore is a process-local Store guarded by an RWMutex. Entries are
// append-only; there is no retention limit or eviction.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry // leadID -> entries, insertion order
}

// NewInMemoryStore returns an empty in-memory history store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string][]Entry)}
}

// Remember appends the entry to the lead's history.
func (s *InMemoryStore) Remember(leadID string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[leadID] = append(s.entries[leadID], entry)
	return nil
}

// LatestSummary scans backwards for the newest entry carrying a summary.
func (s *InMemoryStore) LatestSummary(leadID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.entries[leadID]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Summary != "" {
			return entries[i].Summary, true
		}
	}
	return "", false
}

// History returns a copy of the lead's entries sorted by timestamp.
func (s *InMemoryStore) History(leadID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.entries[leadID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}
