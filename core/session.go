package core

import (
	"sync"
	"time"
)

// CallDirection distinguishes who originated the call.
type CallDirection string

const (
	// DirectionOutbound is an agent-originated call.
	DirectionOutbound CallDirection = "outbound"
	// DirectionInbound is a caller-originated call answered by an agent.
	DirectionInbound CallDirection = "inbound"
)

// SessionState is the call session lifecycle state.
type SessionState string

const (
	// StateRinging means the provider accepted the call but it has not connected.
	StateRinging SessionState = "ringing"
	// StateActive means the counterpart picked up.
	StateActive SessionState = "active"
	// StateEnded is the terminal state for a call that completed.
	StateEnded SessionState = "ended"
	// StateFailed is the terminal state for a call that never completed
	// (provider failure, forced stop, max-duration timeout).
	StateFailed SessionState = "failed"
)

// IsTerminal reports whether no further lifecycle events apply.
func (s SessionState) IsTerminal() bool { return s == StateEnded || s == StateFailed }

// CallOutcome classifies how a terminal call concluded. The taxonomy mirrors
// the call-log dispositions the CRM aggregates over.
type CallOutcome string

const (
	OutcomeNoAnswer          CallOutcome = "no_answer"
	OutcomeVoicemail         CallOutcome = "voicemail"
	OutcomeConnected         CallOutcome = "connected"
	OutcomeCallbackRequested CallOutcome = "callback_requested"
	OutcomeNotInterested     CallOutcome = "not_interested"
	OutcomeDNCRequested      CallOutcome = "dnc_requested"
	// OutcomeTimedOut marks a session forcibly finalized after exceeding the
	// configured maximum duration without a terminal event from the provider.
	OutcomeTimedOut CallOutcome = "timed_out"
	OutcomeFailed   CallOutcome = "failed"
)

// CallSession tracks one call attempt from admission to terminal outcome.
// It is safe for concurrent access.
//
// Contract:
//   - Mutated only by the session manager and the event router
//   - At most one non-terminal session exists per agent at any time
//   - ApplySequence is the idempotency primitive: events whose sequence is
//     not strictly greater than the last applied for their kind are discarded
//   - Clone performs deep copies for safe hand-off across boundaries.
type CallSession struct {
	ID        string        `json:"id"`
	AgentID   string        `json:"agent_id"`
	Direction CallDirection `json:"direction"`

	LeadID       string `json:"lead_id,omitempty"`
	ContactPhone string `json:"contact_phone"`
	ContactName  string `json:"contact_name,omitempty"`
	County       string `json:"county,omitempty"`

	ProviderSessionID string `json:"provider_session_id,omitempty"`

	State     SessionState `json:"state"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   *time.Time   `json:"ended_at,omitempty"`
	Duration  time.Duration `json:"duration"`

	Outcome           CallOutcome `json:"outcome,omitempty"`
	MotivationScore   *float64    `json:"motivation_score,omitempty"`
	TranscriptSummary string      `json:"transcript_summary,omitempty"`
	RecordingRef      string      `json:"recording_ref,omitempty"`

	// lastSeq tracks the highest applied event sequence per kind.
	lastSeq map[EventKind]uint64
	mu      sync.RWMutex
}

// NewCallSession creates a ringing session for an admitted call request.
func NewCallSession(agentID string, direction CallDirection, leadID, phone, name, county string) *CallSession {
	return &CallSession{
		ID:           NewID(),
		AgentID:      agentID,
		Direction:    direction,
		LeadID:       leadID,
		ContactPhone: phone,
		ContactName:  name,
		County:       county,
		State:        StateRinging,
		StartedAt:    time.Now().UTC(),
		lastSeq:      make(map[EventKind]uint64),
	}
}

// ApplySequence records the event sequence for kind and reports whether the
// event should be applied. Sequences at or below the last applied value for
// that kind are duplicates from the poll/callback race and must be dropped.
func (s *CallSession) ApplySequence(kind EventKind, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSeq == nil {
		s.lastSeq = make(map[EventKind]uint64)
	}
	if seq <= s.lastSeq[kind] {
		return false
	}
	s.lastSeq[kind] = seq
	return true
}

// CurrentState returns the lifecycle state under the read lock.
func (s *CallSession) CurrentState() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

// Terminal reports whether the session has reached a terminal state.
func (s *CallSession) Terminal() bool { return s.CurrentState().IsTerminal() }

// BindProvider attaches the provider-assigned session identifier.
func (s *CallSession) BindProvider(providerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ProviderSessionID = providerID
}

// MarkActive moves a ringing session to active. Calling it on a session that
// is already active or terminal is a no-op.
func (s *CallSession) MarkActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == StateRinging {
		s.State = StateActive
	}
}

// Finalize writes the terminal state exactly once and reports whether this
// call performed the write. Subsequent calls are no-ops returning false.
func (s *CallSession) Finalize(state SessionState, outcome CallOutcome, endedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State.IsTerminal() {
		return false
	}
	if !state.IsTerminal() {
		state = StateFailed
	}
	s.State = state
	s.Outcome = outcome
	end := endedAt.UTC()
	s.EndedAt = &end
	s.Duration = end.Sub(s.StartedAt)
	if s.Duration < 0 {
		s.Duration = 0
	}
	return true
}

// SetScore records the motivation score computed at finalize.
func (s *CallSession) SetScore(score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MotivationScore = &score
}

// SetTranscript records the provider transcript summary and recording ref.
func (s *CallSession) SetTranscript(summary, recordingRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TranscriptSummary = summary
	s.RecordingRef = recordingRef
}

// Clone returns a deep copy of the session safe for independent use. The
// sequence tracking map is copied; the clone's mutex is fresh.
func (s *CallSession) Clone() *CallSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &CallSession{
		ID:                s.ID,
		AgentID:           s.AgentID,
		Direction:         s.Direction,
		LeadID:            s.LeadID,
		ContactPhone:      s.ContactPhone,
		ContactName:       s.ContactName,
		County:            s.County,
		ProviderSessionID: s.ProviderSessionID,
		State:             s.State,
		StartedAt:         s.StartedAt,
		Duration:          s.Duration,
		Outcome:           s.Outcome,
		TranscriptSummary: s.TranscriptSummary,
		RecordingRef:      s.RecordingRef,
		lastSeq:           make(map[EventKind]uint64, len(s.lastSeq)),
	}
	if s.EndedAt != nil {
		end := *s.EndedAt
		clone.EndedAt = &end
	}
	if s.MotivationScore != nil {
		score := *s.MotivationScore
		clone.MotivationScore = &score
	}
	for k, v := range s.lastSeq {
		clone.lastSeq[k] = v
	}
	return clone
}

// SessionStore holds live call sessions for the duration of their lifecycle
// and archives them after finalize. Returned sessions are the live,
// self-synchronized records; use Snapshot for a detached copy.
type SessionStore interface {
	// Create registers a new session. It fails if the id already exists.
	Create(sess *CallSession) error

	// Get returns the live session (active or archived) by id.
	Get(id string) (*CallSession, error)

	// Snapshot returns a detached deep copy by id.
	Snapshot(id string) (*CallSession, error)

	// ActiveForAgent returns the agent's non-terminal session if one exists.
	ActiveForAgent(agentID string) (*CallSession, bool)

	// Archive moves a terminal session out of the active set. Archiving a
	// non-terminal session is an error.
	Archive(id string) error

	// ActiveIDs returns the ids of all non-terminal sessions.
	ActiveIDs() []string
}
