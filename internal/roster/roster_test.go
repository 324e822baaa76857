package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/conclave-ai/conclave/internal/errors"
)

const validRoster = `
participants:
  - id: sonnet-1
    model: claude-sonnet-4
    label: Sonnet
    params:
      temperature: 0.7
  - id: opus-1
    model: claude-opus-4
    role: synthesizer
allowed_models:
  - "claude-*"
`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(validRoster))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(r.Participants) != 2 {
		t.Fatalf("len(Participants) = %d, want 2", len(r.Participants))
	}
	if r.Participants[0].ID != "sonnet-1" {
		t.Errorf("Participants[0].ID = %q, want \"sonnet-1\"", r.Participants[0].ID)
	}
	if r.Participants[1].Role != "synthesizer" {
		t.Errorf("Participants[1].Role = %q, want \"synthesizer\"", r.Participants[1].Role)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty roster", `participants: []`},
		{"missing id", "participants:\n  - model: m1\n"},
		{"missing model", "participants:\n  - id: a\n"},
		{"duplicate id", "participants:\n  - id: a\n    model: m1\n  - id: a\n    model: m2\n"},
		{"model outside allowlist", "participants:\n  - id: a\n    model: gpt-4\nallowed_models:\n  - \"claude-*\"\n"},
		{"bad glob", "participants:\n  - id: a\n    model: m1\nallowed_models:\n  - \"[\"\n"},
		{"malformed yaml", "participants: {{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() = nil, want error")
			}
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("Parse() error should match ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestParseDuplicateMatchesSentinel(t *testing.T) {
	_, err := Parse([]byte("participants:\n  - id: a\n    model: m1\n  - id: a\n    model: m2\n"))
	if !errors.Is(err, errors.ErrDuplicateInstanceID) {
		t.Errorf("Parse() error should match ErrDuplicateInstanceID, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(validRoster), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(r.Participants) != 2 {
		t.Errorf("len(Participants) = %d, want 2", len(r.Participants))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() on missing file = nil, want error")
	}
}

func TestDescriptors(t *testing.T) {
	r, err := Parse([]byte(validRoster))
	if err != nil {
		t.Fatal(err)
	}
	descs := r.Descriptors()
	if len(descs) != 2 {
		t.Fatalf("len(Descriptors()) = %d, want 2", len(descs))
	}
	if descs[0].InstanceID != "sonnet-1" || descs[0].ModelID != "claude-sonnet-4" {
		t.Errorf("Descriptors()[0] = %+v", descs[0])
	}
	if got, ok := descs[0].FloatParam("temperature"); !ok || got != 0.7 {
		t.Errorf("FloatParam(temperature) = %v, %v, want 0.7, true", got, ok)
	}
	if descs[1].Role() != "synthesizer" {
		t.Errorf("Descriptors()[1].Role() = %q, want \"synthesizer\"", descs[1].Role())
	}
	// Role params must not leak between entries.
	if descs[0].Role() != "" {
		t.Errorf("Descriptors()[0].Role() = %q, want empty", descs[0].Role())
	}
}
