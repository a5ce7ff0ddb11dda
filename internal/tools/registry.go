package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Error codes returned by the registry.
const (
	CodeToolNotFound    = "tool_not_found"
	CodeInvalidParams   = "invalid_params"
	CodeExecutionFailed = "execution_failed"
)

// Registry manages the collection of available tools.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a new tool to the registry, replacing any tool with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// List returns all registered tools.
func (r *Registry) List() map[string]Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make(map[string]Tool, len(r.tools))
	for name, tool := range r.tools {
		tools[name] = tool
	}
	return tools
}

// Definitions returns the descriptors of all registered tools sorted by name.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Call executes a tool with the given arguments and context.
// Failures reported by the tool itself are wrapped in an *Error with
// CodeExecutionFailed unless the tool already returned an *Error.
func (r *Registry) Call(ctx context.Context, toolName string, args json.RawMessage) (json.RawMessage, error) {
	tool, exists := r.Get(toolName)
	if !exists {
		return nil, &Error{Code: CodeToolNotFound, Message: fmt.Sprintf("Tool not found: %s", toolName)}
	}

	result, err := tool.Call(ctx, args)
	if err != nil {
		if _, ok := err.(*Error); ok {
			return nil, err
		}
		return nil, &Error{Code: CodeExecutionFailed, Message: err.Error(), Cause: err}
	}
	return result, nil
}

// Error represents a tool dispatch or execution error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}
