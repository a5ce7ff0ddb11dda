package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// MemoryStore keeps sessions in a map. Sessions are copied on the way in and
// out so callers never share a *Session with the store.
type MemoryStore struct {
	sessions map[string]Session
	mu       sync.RWMutex
	logger   zerolog.Logger
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore(logger zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		logger:   logger.With().Str("component", "memory_store").Logger(),
	}
}

// Set stores or replaces a session.
func (s *MemoryStore) Set(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = *session

	s.logger.Debug().
		Str("session_id", session.ID).
		Time("expires_at", session.ExpiresAt).
		Msg("Stored session")
	return nil
}

// Get retrieves a session by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, newNotFoundError(id)
	}
	return &session, nil
}

// Delete removes a session and returns it.
func (s *MemoryStore) Delete(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, newNotFoundError(id)
	}
	delete(s.sessions, id)

	s.logger.Debug().Str("session_id", id).Msg("Deleted session")
	return &session, nil
}

// List returns a snapshot of all stored sessions.
func (s *MemoryStore) List(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		session := session
		sessions = append(sessions, &session)
	}
	return sessions, nil
}

// Count returns the number of stored sessions.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions), nil
}

// Close drops all sessions.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := len(s.sessions)
	s.sessions = make(map[string]Session)

	s.logger.Info().Int("cleared_sessions", cleared).Msg("Memory store closed")
	return nil
}
