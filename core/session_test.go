package core

import (
	"testing"
	"time"
)

func TestCallSession_ApplySequence(t *testing.T) {
	s := NewCallSession("ace", DirectionOutbound, "lead-1", "+17135551234", "", "Harris")

	if !s.ApplySequence(EventTranscriptChunk, 1) {
		t.Fatal("first sequence should apply")
	}
	if s.ApplySequence(EventTranscriptChunk, 1) {
		t.Error("duplicate sequence should be discarded")
	}
	if s.ApplySequence(EventTranscriptChunk, 0) {
		t.Error("stale sequence should be discarded")
	}
	if !s.ApplySequence(EventTranscriptChunk, 5) {
		t.Error("gaps are fine, only ordering matters")
	}
	// Sequences are tracked per kind.
	if !s.ApplySequence(EventEnded, 1) {
		t.Error("sequence tracking must be independent per event kind")
	}
}

func TestCallSession_FinalizeOnce(t *testing.T) {
	s := NewCallSession("ace", DirectionOutbound, "", "+17135551234", "", "")
	end := time.Now().Add(90 * time.Second)

	if !s.Finalize(StateEnded, OutcomeConnected, end) {
		t.Fatal("first finalize must win")
	}
	if s.Finalize(StateFailed, OutcomeFailed, end.Add(time.Minute)) {
		t.Error("second finalize must be a no-op")
	}
	if s.Outcome != OutcomeConnected {
		t.Errorf("outcome overwritten: %s", s.Outcome)
	}
	if !s.Terminal() {
		t.Error("session should be terminal")
	}
	if s.Duration <= 0 {
		t.Errorf("duration not computed: %v", s.Duration)
	}
}

func TestCallSession_MarkActive(t *testing.T) {
	s := NewCallSession("ace", DirectionOutbound, "", "+17135551234", "", "")
	s.MarkActive()
	if s.CurrentState() != StateActive {
		t.Fatalf("expected active, got %s", s.CurrentState())
	}

	s.Finalize(StateEnded, OutcomeConnected, time.Now())
	s.MarkActive()
	if s.CurrentState() != StateEnded {
		t.Error("MarkActive must not resurrect a terminal session")
	}
}

func TestCallSession_Clone(t *testing.T) {
	s := NewCallSession("ace", DirectionOutbound, "lead-1", "+17135551234", "John", "Harris")
	s.ApplySequence(EventStarted, 1)
	s.SetScore(8.2)

	clone := s.Clone()
	if clone == s {
		t.Fatal("clone should be a different pointer")
	}
	if clone.MotivationScore == s.MotivationScore {
		t.Error("score pointer should be deep copied")
	}
	if clone.ApplySequence(EventStarted, 1) {
		t.Error("clone should carry the sequence history")
	}

	// Divergence is safe.
	clone.SetScore(1.0)
	if *s.MotivationScore != 8.2 {
		t.Error("mutating the clone must not touch the original")
	}
}

func TestSessionStateTerminal(t *testing.T) {
	for state, want := range map[SessionState]bool{
		StateRinging: false,
		StateActive:  false,
		StateEnded:   true,
		StateFailed:  true,
	} {
		if state.IsTerminal() != want {
			t.Errorf("%s terminal = %v, want %v", state, state.IsTerminal(), want)
		}
	}
}
