package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ManagerConfig contains configuration for the session manager.
type ManagerConfig struct {
	SessionTimeout time.Duration
}

// DefaultManager implements Manager on top of a Store.
type DefaultManager struct {
	store     Store
	generator *IDGenerator
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewDefaultManager creates a new session manager.
func NewDefaultManager(store Store, config ManagerConfig, logger zerolog.Logger) *DefaultManager {
	return &DefaultManager{
		store:     store,
		generator: NewIDGenerator(),
		timeout:   config.SessionTimeout,
		logger:    logger.With().Str("component", "session_manager").Logger(),
	}
}

// Create generates a new session ID and stores the session.
func (m *DefaultManager) Create(ctx context.Context, info ClientInfo) (*Session, error) {
	id, err := m.generator.Generate()
	if err != nil {
		m.logger.Error().
			Err(err).
			Str("remote_addr", info.RemoteAddr).
			Msg("Failed to generate session ID")
		return nil, err
	}

	now := time.Now()
	session := &Session{
		ID:         id,
		CreatedAt:  now,
		LastAccess: now,
		ExpiresAt:  now.Add(m.timeout),
		ClientInfo: info,
	}

	if err := m.store.Set(ctx, session); err != nil {
		m.logger.Error().
			Err(err).
			Str("session_id", id).
			Msg("Failed to store session")
		return nil, newStorageError("create", err)
	}

	m.logger.Info().
		Str("session_id", id).
		Str("remote_addr", info.RemoteAddr).
		Str("client_name", info.ClientName).
		Time("expires_at", session.ExpiresAt).
		Msg("Session created")

	return session, nil
}

// Validate checks that id is well formed, stored and not expired. Expired
// sessions are left in the store for CleanupExpired to collect.
func (m *DefaultManager) Validate(ctx context.Context, id string) (*Session, error) {
	if err := m.generator.Validate(id); err != nil {
		m.logger.Debug().Err(err).Str("session_id", id).Msg("Malformed session ID")
		return nil, err
	}

	session, err := m.store.Get(ctx, id)
	if err != nil {
		m.logger.Debug().Err(err).Str("session_id", id).Msg("Session lookup failed")
		return nil, err
	}

	if session.IsExpired() {
		m.logger.Debug().
			Str("session_id", id).
			Time("expires_at", session.ExpiresAt).
			Msg("Session has expired")
		return nil, newExpiredError(id)
	}

	return session, nil
}

// Refresh validates the session and extends its expiry.
func (m *DefaultManager) Refresh(ctx context.Context, id string) (*Session, error) {
	session, err := m.Validate(ctx, id)
	if err != nil {
		return nil, err
	}

	session.Refresh(m.timeout)
	if err := m.store.Set(ctx, session); err != nil {
		m.logger.Error().Err(err).Str("session_id", id).Msg("Failed to refresh session")
		return nil, newStorageError("refresh", err)
	}

	return session, nil
}

// Delete ends a session.
func (m *DefaultManager) Delete(ctx context.Context, id string) (*Session, error) {
	if err := m.generator.Validate(id); err != nil {
		return nil, err
	}

	session, err := m.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	m.logger.Info().Str("session_id", id).Msg("Session deleted")
	return session, nil
}

// CleanupExpired removes all expired sessions and returns the ones it deleted.
func (m *DefaultManager) CleanupExpired(ctx context.Context) ([]*Session, error) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to list sessions for cleanup")
		return nil, newStorageError("cleanup", err)
	}

	var removed []*Session
	now := time.Now()
	for _, session := range sessions {
		if !now.After(session.ExpiresAt) {
			continue
		}
		deleted, err := m.store.Delete(ctx, session.ID)
		if err != nil {
			m.logger.Warn().
				Err(err).
				Str("session_id", session.ID).
				Msg("Failed to delete expired session")
			continue
		}
		removed = append(removed, deleted)
	}

	if len(removed) > 0 {
		m.logger.Info().
			Int("deleted_count", len(removed)).
			Int("total_sessions", len(sessions)).
			Msg("Expired sessions removed")
	}

	return removed, nil
}

// Count returns the number of stored sessions.
func (m *DefaultManager) Count(ctx context.Context) (int, error) {
	count, err := m.store.Count(ctx)
	if err != nil {
		return 0, newStorageError("count", err)
	}
	return count, nil
}
