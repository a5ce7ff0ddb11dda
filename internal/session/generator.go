package session

import (
	"strings"

	"github.com/google/uuid"
)

// IDPrefix is the prefix of every session ID.
const IDPrefix = "sess"

// canonicalUUIDLen is the length of a UUID in its hyphenated form.
const canonicalUUIDLen = 36

// IDGenerator creates and checks session IDs of the form sess.<uuid v4>.
type IDGenerator struct{}

// NewIDGenerator creates a new session ID generator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Generate creates a new random session ID.
func (g *IDGenerator) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", &Error{Code: CodeGeneration, Message: "failed to generate session ID", Cause: err}
	}
	return IDPrefix + "." + id.String(), nil
}

// Validate checks that id has the expected format.
func (g *IDGenerator) Validate(id string) error {
	if id == "" {
		return newInvalidError("empty session ID")
	}

	prefix, rest, ok := strings.Cut(id, ".")
	if !ok {
		return newInvalidError("invalid session ID format")
	}
	if prefix != IDPrefix {
		return newInvalidError("invalid session ID prefix")
	}
	if len(rest) != canonicalUUIDLen {
		return newInvalidError("invalid session ID format")
	}

	parsed, err := uuid.Parse(rest)
	if err != nil {
		return newInvalidError("invalid session ID format")
	}
	if parsed.Version() != 4 {
		return newInvalidError("unsupported session ID version")
	}

	return nil
}
