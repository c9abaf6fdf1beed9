package core

import (
	"time"

	"github.com/google/uuid"
)

// EventKind is the closed set of normalized call lifecycle signals. Both the
// polling path and asynchronous provider callbacks reduce to these kinds.
type EventKind string

const (
	// EventStarted signals the counterpart picked up.
	EventStarted EventKind = "started"
	// EventTranscriptChunk carries an incremental transcript fragment.
	EventTranscriptChunk EventKind = "transcriptChunk"
	// EventFunctionInvoked is a mid-call structured request from the calling
	// script (create lead, transfer to operator, do-not-contact).
	EventFunctionInvoked EventKind = "functionInvoked"
	// EventEnded is the terminal signal for a completed call.
	EventEnded EventKind = "ended"
	// EventFailed is the terminal signal for a call that never completed.
	EventFailed EventKind = "failed"
)

// Terminal reports whether the kind ends the session.
func (k EventKind) Terminal() bool { return k == EventEnded || k == EventFailed }

// FunctionInvocation is the payload of an EventFunctionInvoked: a named
// structured request raised by the calling script while the call is live.
type FunctionInvocation struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// TerminalData is the payload of a terminal event.
type TerminalData struct {
	Outcome CallOutcome `json:"outcome"`
	EndedAt time.Time   `json:"ended_at"`
	// Reason carries the provider's failure detail for EventFailed.
	Reason string `json:"reason,omitempty"`
}

// CallEvent is the unit of communication between the provider-facing paths
// (polling, callbacks) and the event router. After construction it should be
// treated as immutable.
//
// The (SessionID, Kind, Sequence) triple is the idempotency key: the router
// discards any event whose sequence is not strictly greater than the last
// applied for that session and kind, which tolerates duplicate delivery when
// polling and a callback observe the same underlying transition.
type CallEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      EventKind `json:"kind"`
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`

	// Transcript is set for EventTranscriptChunk.
	Transcript string `json:"transcript,omitempty"`
	// Function is set for EventFunctionInvoked.
	Function *FunctionInvocation `json:"function,omitempty"`
	// Terminal is set for EventEnded / EventFailed.
	Terminal *TerminalData `json:"terminal,omitempty"`
}

// NewCallEvent creates a bare event bound to a session.
func NewCallEvent(sessionID string, kind EventKind, seq uint64) CallEvent {
	return CallEvent{
		ID:        NewID(),
		SessionID: sessionID,
		Kind:      kind,
		Sequence:  seq,
		Timestamp: time.Now().UTC(),
	}
}

// NewStartedEvent signals the call connected.
func NewStartedEvent(sessionID string, seq uint64) CallEvent {
	return NewCallEvent(sessionID, EventStarted, seq)
}

// NewTranscriptChunkEvent carries an incremental transcript fragment.
func NewTranscriptChunkEvent(sessionID string, seq uint64, text string) CallEvent {
	e := NewCallEvent(sessionID, EventTranscriptChunk, seq)
	e.Transcript = text
	return e
}

// NewFunctionInvokedEvent carries a mid-call structured request.
func NewFunctionInvokedEvent(sessionID string, seq uint64, name string, args map[string]any) CallEvent {
	e := NewCallEvent(sessionID, EventFunctionInvoked, seq)
	e.Function = &FunctionInvocation{Name: name, Arguments: args}
	return e
}

// NewTerminalEvent creates an ended or failed event carrying the outcome.
func NewTerminalEvent(sessionID string, kind EventKind, seq uint64, data TerminalData) CallEvent {
	e := NewCallEvent(sessionID, kind, seq)
	if !kind.Terminal() {
		e.Kind = EventFailed
	}
	e.Terminal = &data
	return e
}

// NewID generates a new unique identifier for sessions, events, leads and
// deals. Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }
