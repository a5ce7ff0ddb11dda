package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CleanupConfig contains configuration for the cleanup service.
type CleanupConfig struct {
	CleanupInterval time.Duration
	// RunTimeout bounds a single cleanup pass. Zero means 30s.
	RunTimeout time.Duration
}

// CleanupService periodically removes expired sessions.
type CleanupService struct {
	manager  Manager
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewCleanupService creates a new cleanup service.
func NewCleanupService(manager Manager, config CleanupConfig, logger zerolog.Logger) *CleanupService {
	timeout := config.RunTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CleanupService{
		manager:  manager,
		interval: config.CleanupInterval,
		timeout:  timeout,
		logger:   logger.With().Str("component", "cleanup_service").Logger(),
	}
}

// Start launches the cleanup loop. Starting a running service is a no-op.
func (c *CleanupService) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active() {
		return
	}

	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.running = true

	c.logger.Info().Dur("interval", c.interval).Msg("Starting session cleanup service")
	go c.run(ctx, c.stopCh, c.doneCh)
}

// Stop halts the cleanup loop and waits for it to exit.
func (c *CleanupService) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	close(c.stopCh)
	<-c.doneCh
	c.running = false

	c.logger.Info().Msg("Session cleanup service stopped")
}

// active must be called with mu held. A loop that exited because its context
// was cancelled counts as stopped.
func (c *CleanupService) active() bool {
	if !c.running {
		return false
	}
	select {
	case <-c.doneCh:
		return false
	default:
		return true
	}
}

// RunOnce performs a single cleanup pass and returns the number of sessions removed.
func (c *CleanupService) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	removed, err := c.manager.CleanupExpired(ctx)
	if err != nil {
		c.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Session cleanup failed")
		return 0, err
	}

	c.logger.Debug().
		Int("deleted_count", len(removed)).
		Dur("duration", time.Since(start)).
		Msg("Session cleanup completed")
	return len(removed), nil
}

func (c *CleanupService) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Session cleanup stopping due to context cancellation")
			return
		case <-stop:
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, c.timeout)
			_, _ = c.RunOnce(runCtx)
			cancel()
		}
	}
}
