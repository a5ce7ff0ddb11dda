package telemetry

import (
	"context"
	"time"

	"mcp-calculator-go/internal/session"
)

// SessionManager wraps a session manager to record session lifecycle metrics.
type SessionManager struct {
	session.Manager
	metrics *Metrics
}

// NewSessionManager creates a metrics-recording wrapper around manager.
func NewSessionManager(manager session.Manager, metrics *Metrics) *SessionManager {
	return &SessionManager{
		Manager: manager,
		metrics: metrics,
	}
}

// Create records a created session.
func (w *SessionManager) Create(ctx context.Context, info session.ClientInfo) (*session.Session, error) {
	sess, err := w.Manager.Create(ctx, info)
	if err == nil {
		w.metrics.RecordSessionCreated()
	}
	return sess, err
}

// Delete records a deleted session.
func (w *SessionManager) Delete(ctx context.Context, id string) (*session.Session, error) {
	sess, err := w.Manager.Delete(ctx, id)
	if err == nil {
		w.metrics.RecordSessionEnded("deleted", time.Since(sess.CreatedAt))
	}
	return sess, err
}

// CleanupExpired records every session collected by the cleanup pass, then
// resyncs the active gauge with the store.
func (w *SessionManager) CleanupExpired(ctx context.Context) ([]*session.Session, error) {
	removed, err := w.Manager.CleanupExpired(ctx)
	for _, sess := range removed {
		w.metrics.RecordSessionEnded("expired", time.Since(sess.CreatedAt))
	}
	if err != nil {
		return removed, err
	}

	if count, countErr := w.Manager.Count(ctx); countErr == nil {
		w.metrics.SetActiveSessions(count)
	}
	return removed, nil
}
