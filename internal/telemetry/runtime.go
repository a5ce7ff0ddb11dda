package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// RuntimeCollector periodically samples goroutine and heap usage.
type RuntimeCollector struct {
	metrics  *Metrics
	logger   zerolog.Logger
	interval time.Duration
}

// NewRuntimeCollector creates a collector sampling every interval.
func NewRuntimeCollector(metrics *Metrics, logger zerolog.Logger, interval time.Duration) *RuntimeCollector {
	return &RuntimeCollector{
		metrics:  metrics,
		logger:   logger.With().Str("component", "runtime_collector").Logger(),
		interval: interval,
	}
}

// Run samples immediately and then on every tick until ctx is cancelled.
func (c *RuntimeCollector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info().Dur("interval", c.interval).Msg("Starting runtime metrics collection")
	c.Collect()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Stopping runtime metrics collection")
			return
		case <-ticker.C:
			c.Collect()
		}
	}
}

// Collect takes one sample.
func (c *RuntimeCollector) Collect() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	goroutines := runtime.NumGoroutine()

	c.metrics.UpdateRuntime(goroutines, m.HeapAlloc)

	c.logger.Debug().
		Int("goroutines", goroutines).
		Uint64("heap_alloc_bytes", m.HeapAlloc).
		Msg("Updated runtime metrics")
}
