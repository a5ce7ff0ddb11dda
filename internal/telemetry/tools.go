package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"mcp-calculator-go/internal/tools"
)

// ToolRegistry wraps a tool registry to record call metrics.
type ToolRegistry struct {
	*tools.Registry
	metrics *Metrics
}

// NewToolRegistry creates a metrics-recording wrapper around registry.
func NewToolRegistry(registry *tools.Registry, metrics *Metrics) *ToolRegistry {
	return &ToolRegistry{
		Registry: registry,
		metrics:  metrics,
	}
}

// Call forwards to the registry and records the outcome.
func (w *ToolRegistry) Call(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	start := time.Now()
	result, err := w.Registry.Call(ctx, name, args)

	status := "success"
	if err != nil {
		status = "error"
	}
	w.metrics.RecordToolCall(name, status, time.Since(start))

	return result, err
}
