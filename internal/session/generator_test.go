package session

import (
	"strings"
	"testing"
)

func TestIDGenerator_Generate(t *testing.T) {
	generator := NewIDGenerator()

	id, err := generator.Generate()
	if err != nil {
		t.Fatalf("Failed to generate session ID: %v", err)
	}

	if !strings.HasPrefix(id, IDPrefix+".") {
		t.Errorf("Expected prefix %s., got %s", IDPrefix, id)
	}
	if err := generator.Validate(id); err != nil {
		t.Errorf("Generated ID failed validation: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := generator.Generate()
		if err != nil {
			t.Fatalf("Failed to generate session ID %d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("Duplicate session ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestIDGenerator_Validate(t *testing.T) {
	generator := NewIDGenerator()
	valid, _ := generator.Generate()
	random := strings.TrimPrefix(valid, IDPrefix+".")

	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"generated", valid, true},
		{"empty", "", false},
		{"no separator", "sess" + random, false},
		{"wrong prefix", "nope." + random, false},
		{"bad characters", "sess." + strings.Repeat("*", len(random)), false},
		{"too short", "sess.abc", false},
		{"braced form", "sess.{" + random[:34] + "}", false},
		{"version 1", "sess.6ba7b810-9dad-11d1-80b4-00c04fd430c8", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := generator.Validate(tt.id)
			if tt.valid && err != nil {
				t.Errorf("Expected valid, got %v", err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatal("Expected validation error")
				}
				if ErrorCode(err) != CodeInvalid {
					t.Errorf("Expected code %s, got %s", CodeInvalid, ErrorCode(err))
				}
			}
		})
	}
}
