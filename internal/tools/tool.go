package tools

import (
	"context"
	"encoding/json"
)

// Tool is the interface that all tools must implement.
type Tool interface {
	// Name returns the name of the tool, unique within a registry.
	Name() string

	// Definition returns the tool's descriptor as published in the manifest.
	Definition() Definition

	// Call executes the tool with a JSON parameter object and returns the
	// JSON-encoded result.
	Call(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// Definition describes a tool for discovery by callers.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Schema is the subset of JSON Schema used to describe a tool's parameter object.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single parameter.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Clone returns a deep copy of the definition.
func (d Definition) Clone() Definition {
	d.Parameters = d.Parameters.Clone()
	return d
}

// Clone returns a deep copy of the schema.
func (s Schema) Clone() Schema {
	props := make(map[string]Property, len(s.Properties))
	for name, p := range s.Properties {
		if p.Enum != nil {
			p.Enum = append([]string(nil), p.Enum...)
		}
		props[name] = p
	}
	s.Properties = props
	if s.Required != nil {
		s.Required = append([]string(nil), s.Required...)
	}
	return s
}

// Base carries the descriptor of a tool and can be embedded by implementations
// so they only have to provide Call.
type Base struct {
	def Definition
}

// NewBase creates a Base for the given definition.
func NewBase(def Definition) *Base {
	return &Base{def: def.Clone()}
}

// Name returns the name of the tool.
func (b *Base) Name() string {
	return b.def.Name
}

// Definition returns a copy of the tool definition.
func (b *Base) Definition() Definition {
	return b.def.Clone()
}
