package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu sync.Mutex
	// limit caps the messages kept per session; <= 0 keeps everything.
	limit    int
	sessions map[string][]Message
}

// NewMemoryStore returns an empty MemoryStore that keeps at most limit
// messages per session, dropping the oldest.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{limit: limit, sessions: make(map[string][]Message)}
}

// Create registers an empty session.
func (s *MemoryStore) Create(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		s.sessions[sessionID] = nil
	}
	return nil
}

// Append records a message.
func (s *MemoryStore) Append(_ context.Context, sessionID string, role Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append(s.sessions[sessionID], Message{Role: role, Content: content, CreatedAt: time.Now()})
	if s.limit > 0 && len(msgs) > s.limit {
		msgs = append([]Message(nil), msgs[len(msgs)-s.limit:]...)
	}
	s.sessions[sessionID] = msgs
	return nil
}

// Recent returns a copy of the last n messages, oldest first.
func (s *MemoryStore) Recent(_ context.Context, sessionID string, n int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.sessions[sessionID]
	if n >= 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return append([]Message(nil), msgs...), nil
}

// Delete removes the session.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
