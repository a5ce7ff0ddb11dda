package session

import (
	"context"
	"time"
)

// Session is an MCP client session opened by an initialize request.
type Session struct {
	ID         string     `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	LastAccess time.Time  `json:"last_access"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ClientInfo ClientInfo `json:"client_info"`
}

// ClientInfo describes the peer that opened the session.
type ClientInfo struct {
	RemoteAddr    string `json:"remote_addr"`
	UserAgent     string `json:"user_agent"`
	ClientName    string `json:"client_name,omitempty"`
	ClientVersion string `json:"client_version,omitempty"`
}

// IsExpired reports whether the session has passed its expiry time.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Refresh marks the session as used now and pushes its expiry out by timeout.
func (s *Session) Refresh(timeout time.Duration) {
	now := time.Now()
	s.LastAccess = now
	s.ExpiresAt = now.Add(timeout)
}

// Manager defines session lifecycle operations.
type Manager interface {
	// Create generates a new session ID and stores the session.
	Create(ctx context.Context, info ClientInfo) (*Session, error)

	// Validate checks that a session ID is well formed, known and not expired.
	Validate(ctx context.Context, id string) (*Session, error)

	// Refresh validates the session and extends its expiry.
	Refresh(ctx context.Context, id string) (*Session, error)

	// Delete ends a session. The deleted session is returned.
	Delete(ctx context.Context, id string) (*Session, error)

	// CleanupExpired removes all expired sessions and returns them.
	CleanupExpired(ctx context.Context) ([]*Session, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)
}

// Store defines session persistence operations.
type Store interface {
	Set(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
