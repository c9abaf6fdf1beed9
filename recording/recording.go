// Package recording retains call artifacts: the provider's recording
// reference and the transcript text accumulated during and after a call.
// Transcript chunks stream in while the call is live; the finalize pipeline
// seals the record with the provider's authoritative transcript and the
// recording URL.
package recording

import (
	"errors"
	"strings"
	"sync"
)

// ErrNotFound is returned when no record exists for the session.
var ErrNotFound = errors.New("recording not found")

// Record is the stored artifact set for one call session.
type Record struct {
	SessionID    string
	RecordingURL string
	Transcript   string
}

// InMemoryStore keeps recordings in a map guarded by an RWMutex. Data is
// copied on read so callers cannot mutate internal state. There is no
// retention limit; prefer a durable blob store when recordings must outlive
// the process.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	chunks  map[string][]string // live transcript chunks, session -> ordered text
}

// NewInMemoryStore returns an empty in-memory recording store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*Record),
		chunks:  make(map[string][]string),
	}
}

// AppendTranscript buffers a live transcript chunk for the session.
func (s *InMemoryStore) AppendTranscript(sessionID, text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[sessionID] = append(s.chunks[sessionID], text)
}

// LiveTranscript joins the buffered chunks for a session that has not been
// sealed yet.
func (s *InMemoryStore) LiveTranscript(sessionID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strings.Join(s.chunks[sessionID], "\n")
}

// Seal writes the final record for the session. When the provider transcript
// is empty the buffered live chunks are used instead. The chunk buffer is
// released.
func (s *InMemoryStore) Seal(sessionID, recordingURL, transcript string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if transcript == "" {
		transcript = strings.Join(s.chunks[sessionID], "\n")
	}
	delete(s.chunks, sessionID)
	s.records[sessionID] = &Record{
		SessionID:    sessionID,
		RecordingURL: recordingURL,
		Transcript:   transcript,
	}
}

// Get returns a copy of the sealed record or ErrNotFound.
func (s *InMemoryStore) Get(sessionID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

// List returns the session ids with sealed records.
func (s *InMemoryStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids
}

// Delete removes a sealed record or returns ErrNotFound.
func (s *InMemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.records, sessionID)
	return nil
}
