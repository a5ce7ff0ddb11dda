package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeParams checks that args is a JSON object carrying every field the
// schema marks as required and decodes it into v. Only the shape is checked:
// enumerations and domain rules are left to the tool.
func DecodeParams(schema Schema, args json.RawMessage, v any) error {
	if len(bytes.TrimSpace(args)) == 0 {
		return invalidParams("missing parameters", nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(args, &fields); err != nil {
		return invalidParams("parameters must be a JSON object", err)
	}
	if fields == nil {
		return invalidParams("parameters must be a JSON object", nil)
	}

	for _, name := range schema.Required {
		raw, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return invalidParams(fmt.Sprintf("missing required parameter: %s", name), nil)
		}
	}

	if err := json.Unmarshal(args, v); err != nil {
		return invalidParams(fmt.Sprintf("invalid parameters: %v", err), err)
	}
	return nil
}

func invalidParams(msg string, cause error) *Error {
	return &Error{Code: CodeInvalidParams, Message: msg, Cause: cause}
}
