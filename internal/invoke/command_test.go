package invoke

import (
	"context"
	"strings"
	"testing"
)

func TestNewCommandInvoker_RequiresCommand(t *testing.T) {
	if _, err := NewCommandInvoker(CommandConfig{}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestCommandInvoker_Invoke(t *testing.T) {
	// cat echoes stdin back, so the result data is the prompt itself.
	inv, err := NewCommandInvoker(CommandConfig{Command: "cat"})
	if err != nil {
		t.Fatalf("NewCommandInvoker() error = %v", err)
	}

	res, err := inv.Invoke(context.Background(), Descriptor{InstanceID: "inst-1"}, "hello worker")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if res.Data != "hello worker" {
		t.Errorf("Data = %q, want %q", res.Data, "hello worker")
	}
	if !res.Usage.IsZero() {
		t.Errorf("Usage = %+v, want zero record", res.Usage)
	}
}

func TestCommandInvoker_UsageTrailer(t *testing.T) {
	inv, err := NewCommandInvoker(CommandConfig{Command: "cat"})
	if err != nil {
		t.Fatalf("NewCommandInvoker() error = %v", err)
	}

	prompt := "the answer\n<usage>{\"input_tokens\":100,\"output_tokens\":42,\"cost_microcents\":120}</usage>"
	res, err := inv.Invoke(context.Background(), Descriptor{InstanceID: "inst-1"}, prompt)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if res.Data != "the answer" {
		t.Errorf("Data = %q, want trailer stripped", res.Data)
	}
	if res.Usage.InputTokens != 100 || res.Usage.OutputTokens != 42 {
		t.Errorf("Usage tokens = %+v, want 100/42", res.Usage)
	}
	// Normalize derives the total when the provider omits it.
	if res.Usage.TotalTokens != 142 {
		t.Errorf("TotalTokens = %d, want 142", res.Usage.TotalTokens)
	}
	if res.Usage.CostMicrocents != 120 {
		t.Errorf("CostMicrocents = %d, want 120", res.Usage.CostMicrocents)
	}
}

func TestCommandInvoker_CommandFailure(t *testing.T) {
	inv, err := NewCommandInvoker(CommandConfig{Command: "false"})
	if err != nil {
		t.Fatalf("NewCommandInvoker() error = %v", err)
	}

	if _, err := inv.Invoke(context.Background(), Descriptor{InstanceID: "inst-1"}, "x"); err == nil {
		t.Fatal("expected error from failing command")
	}
}

func TestCommandInvoker_ContextCanceled(t *testing.T) {
	inv, err := NewCommandInvoker(CommandConfig{Command: "sleep", Args: []string{"10"}})
	if err != nil {
		t.Fatalf("NewCommandInvoker() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = inv.Invoke(ctx, Descriptor{InstanceID: "inst-1"}, "x")
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("error = %v, want context cancellation", err)
	}
}

func TestExtractUsage_Malformed(t *testing.T) {
	data, rec := extractUsage("answer <usage>{not json}</usage>")
	if !rec.IsZero() {
		t.Errorf("Usage = %+v, want zero for malformed trailer", rec)
	}
	if !strings.Contains(data, "answer") {
		t.Errorf("Data = %q, want original output retained", data)
	}
}

func TestDescriptor_Role(t *testing.T) {
	d := Descriptor{InstanceID: "inst-1", Params: map[string]any{ParamRole: "synthesizer"}}
	if got := d.Role(); got != "synthesizer" {
		t.Errorf("Role() = %q, want %q", got, "synthesizer")
	}
	if got := (Descriptor{}).Role(); got != "" {
		t.Errorf("Role() on empty descriptor = %q, want empty", got)
	}
}

func TestDescriptor_FloatParam(t *testing.T) {
	d := Descriptor{Params: map[string]any{"temperature": 0.7, "top_p": 1}}
	if v, ok := d.FloatParam("temperature"); !ok || v != 0.7 {
		t.Errorf("FloatParam(temperature) = %v, %v", v, ok)
	}
	if v, ok := d.FloatParam("top_p"); !ok || v != 1.0 {
		t.Errorf("FloatParam(top_p) = %v, %v", v, ok)
	}
	if _, ok := d.FloatParam("missing"); ok {
		t.Error("FloatParam(missing) should report absence")
	}
}
