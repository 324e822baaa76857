package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/conclave-ai/conclave/internal/usage"
)

// CommandConfig configures a CommandInvoker.
type CommandConfig struct {
	// Command is the executable to run per invocation (e.g. "claude").
	Command string
	// Args are fixed arguments prepended to every invocation
	// (e.g. ["--print", "--dangerously-skip-permissions"]).
	Args []string
	// ModelFlag, when non-empty, passes the descriptor's model ID as
	// "<ModelFlag> <modelID>" (e.g. "--model").
	ModelFlag string
}

// CommandInvoker implements Invoker by shelling out to a CLI backend, one
// process per worker invocation. The prompt is written to the process's
// stdin; stdout becomes the result data. Providers that report usage do so
// through a tagged JSON trailer in the output:
//
//	<usage>{"input_tokens":100,"output_tokens":42,"cost_microcents":120}</usage>
//
// The trailer is stripped from the returned data. Absent a trailer, the
// result carries an all-zero usage record.
type CommandInvoker struct {
	cfg CommandConfig
}

// NewCommandInvoker creates a CommandInvoker. The command must be non-empty.
func NewCommandInvoker(cfg CommandConfig) (*CommandInvoker, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("invoke: command required")
	}
	return &CommandInvoker{cfg: cfg}, nil
}

// paramFlags maps descriptor params onto CLI flags. Only sampling parameters
// are forwarded; everything else (roles, internal markers) stays local.
var paramFlags = map[string]string{
	"temperature": "--temperature",
	"top_p":       "--top-p",
}

// Invoke runs one backend process for the descriptor and prompt.
func (c *CommandInvoker) Invoke(ctx context.Context, desc Descriptor, prompt string) (Result, error) {
	args := append([]string{}, c.cfg.Args...)
	if c.cfg.ModelFlag != "" && desc.ModelID != "" {
		args = append(args, c.cfg.ModelFlag, desc.ModelID)
	}
	for key, flag := range paramFlags {
		if v, ok := desc.FloatParam(key); ok {
			args = append(args, flag, fmt.Sprintf("%g", v))
		}
	}

	cmd := exec.CommandContext(ctx, c.cfg.Command, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("invoke %s: %w", desc.InstanceID, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return Result{}, fmt.Errorf("invoke %s: %w: %s", desc.InstanceID, err, msg)
		}
		return Result{}, fmt.Errorf("invoke %s: %w", desc.InstanceID, err)
	}

	data, rec := extractUsage(stdout.String())
	return Result{Data: data, Usage: rec.Normalize()}, nil
}

var usageTagRe = regexp.MustCompile(`(?s)<usage>\s*(\{.*?\})\s*</usage>`)

// extractUsage parses and strips a tagged usage trailer from backend output.
// Malformed trailers are ignored rather than failing the invocation.
func extractUsage(output string) (string, usage.Record) {
	matches := usageTagRe.FindStringSubmatch(output)
	if len(matches) < 2 {
		return strings.TrimSpace(output), usage.Zero()
	}

	var rec usage.Record
	if err := json.Unmarshal([]byte(matches[1]), &rec); err != nil {
		return strings.TrimSpace(output), usage.Zero()
	}

	cleaned := usageTagRe.ReplaceAllString(output, "")
	return strings.TrimSpace(cleaned), rec
}
