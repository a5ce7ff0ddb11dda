package calculator

import (
	"context"
	"encoding/json"
	"fmt"

	"mcp-calculator-go/internal/tools"
)

const (
	// Name is the identifier the tool is registered under.
	Name = "calculator"
	// Description is the human readable summary published in the manifest.
	Description = "Perform basic arithmetic operations"
)

var descriptor = buildDescriptor()

func buildDescriptor() tools.Definition {
	ops := make([]string, 0, len(Operations()))
	for _, op := range Operations() {
		ops = append(ops, string(op))
	}

	return tools.Definition{
		Name:        Name,
		Description: Description,
		Parameters: tools.Schema{
			Type: "object",
			Properties: map[string]tools.Property{
				"operation": {
					Type:        "string",
					Enum:        ops,
					Description: "The operation to perform",
				},
				"a": {
					Type:        "number",
					Description: "First operand",
				},
				"b": {
					Type:        "number",
					Description: "Second operand",
				},
			},
			Required: []string{"operation", "a", "b"},
		},
	}
}

// Descriptor returns the calculator's tool definition. Each call returns a
// copy; the package-level value never changes.
func Descriptor() tools.Definition {
	return descriptor.Clone()
}

// Tool exposes the calculator through the tools.Tool interface.
type Tool struct {
	*tools.Base
}

// NewTool creates the calculator tool.
func NewTool() *Tool {
	return &Tool{Base: tools.NewBase(descriptor)}
}

// Call decodes the parameter object, runs the calculation and encodes the Result.
func (t *Tool) Call(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var req Request
	if err := tools.DecodeParams(descriptor.Parameters, args, &req); err != nil {
		return nil, err
	}

	res, err := Handle(req)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return out, nil
}
