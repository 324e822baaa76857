package internal

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// TestGolangciLintCompliance runs golangci-lint over the internal and cmd
// trees so lint regressions fail the test suite instead of surfacing later
// in CI. Skipped when golangci-lint is not installed.
//
// If this test fails, run: golangci-lint run ./internal/... ./cmd/...
func TestGolangciLintCompliance(t *testing.T) {
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		t.Skip("golangci-lint not found in PATH, skipping test")
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	// Tests in this package run from internal/; lint from the module root.
	projectRoot := wd
	if filepath.Base(wd) == "internal" {
		projectRoot = filepath.Dir(wd)
	}

	// Sandboxed runners may not have a writable default build cache.
	goCacheDir := t.TempDir()

	cmd := exec.Command("golangci-lint", "run", "--allow-parallel-runners", "./internal/...", "./cmd/...")
	cmd.Dir = projectRoot
	cmd.Env = append(os.Environ(), "GOCACHE="+goCacheDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Errorf("golangci-lint found issues:\n%s", output)
		t.Errorf("\nRun 'golangci-lint run ./internal/... ./cmd/...' to reproduce.")
	}
}
