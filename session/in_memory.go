package session

import (
	"sync"

	"github.com/lonestardev/dialcore/core"
)

// InMemoryStore is a volatile core.SessionStore keeping live call sessions in
// a process-local map. It is safe for concurrent access. Sessions stay in the
// active index until archived after finalize; archived sessions remain
// retrievable by id until the process exits.
//
// The store hands out live *core.CallSession pointers: the session itself is
// self-synchronized and mutation rights are held by the dialer and the event
// router only. External readers should use Snapshot.
type InMemoryStore struct {
	mu       sync.RWMutex
	active   map[string]*core.CallSession // session id -> live session
	byAgent  map[string]string            // agent id -> active session id
	archived map[string]*core.CallSession
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		active:   make(map[string]*core.CallSession),
		byAgent:  make(map[string]string),
		archived: make(map[string]*core.CallSession),
	}
}

// Create registers a new live session. The single-active-session invariant is
// defended here too: a second non-terminal session for the same agent is
// refused even though admission should have made that impossible.
func (s *InMemoryStore) Create(sess *core.CallSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.active[sess.ID]; exists {
		return core.ErrSessionExists
	}
	if _, exists := s.archived[sess.ID]; exists {
		return core.ErrSessionExists
	}
	if _, exists := s.byAgent[sess.AgentID]; exists {
		return core.ErrSessionExists
	}
	s.active[sess.ID] = sess
	s.byAgent[sess.AgentID] = sess.ID
	return nil
}

// Get returns the live or archived session by id.
func (s *InMemoryStore) Get(id string) (*core.CallSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.active[id]; ok {
		return sess, nil
	}
	if sess, ok := s.archived[id]; ok {
		return sess, nil
	}
	return nil, core.ErrSessionNotFound
}

// Snapshot returns a detached deep copy by id.
func (s *InMemoryStore) Snapshot(id string) (*core.CallSession, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

// ActiveForAgent returns the agent's non-terminal session if one exists.
func (s *InMemoryStore) ActiveForAgent(agentID string) (*core.CallSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byAgent[agentID]
	if !ok {
		return nil, false
	}
	sess, ok := s.active[id]
	return sess, ok
}

// Archive moves a terminal session out of the active set.
func (s *InMemoryStore) Archive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.active[id]
	if !ok {
		if _, done := s.archived[id]; done {
			return nil
		}
		return core.ErrSessionNotFound
	}
	if !sess.Terminal() {
		return core.ErrSessionNotTerminal
	}
	delete(s.active, id)
	if s.byAgent[sess.AgentID] == id {
		delete(s.byAgent, sess.AgentID)
	}
	s.archived[id] = sess
	return nil
}

// ActiveIDs returns the ids of all non-terminal sessions.
func (s *InMemoryStore) ActiveIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	return ids
}
