// Package system provides the boundary to external operating system tools.
// It wraps command execution behind a small Runner interface and supplies
// typed parsers for the loosely structured text those tools print. Nothing in
// this package interprets network state; it only runs probes and shapes their
// output into records with explicitly optional fields.
package system

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultProbeTimeout bounds every external probe invocation. The timeout is
// deliberately short: it exists to bound address-scan and connectivity-check
// loops, not as a general timeout policy.
const DefaultProbeTimeout = 2 * time.Second

// Runner abstracts execution of external commands so that probes can be
// faked in tests without shelling out.
type Runner interface {
	// Run executes a command and returns its combined output.
	Run(name string, args ...string) (string, error)
}

// ProbeError indicates that an external collaborator command failed or
// produced output of an unexpected shape. Callers typically downgrade it to a
// missing field rather than propagating it.
type ProbeError struct {
	Probe string // Name of the probe that failed
	Err   error  // Underlying failure
}

// Error implements the error interface for ProbeError.
func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s failed: %v", e.Probe, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ProbeError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands via the operating system with a fixed timeout.
type ExecRunner struct {
	Timeout time.Duration // Per-command timeout; DefaultProbeTimeout when zero
}

// NewExecRunner creates an ExecRunner with the default probe timeout.
// Returns a pointer to the newly created ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Timeout: DefaultProbeTimeout,
	}
}

// Run executes the command and returns its combined stdout and stderr.
// The command is killed when the configured timeout elapses.
func (r *ExecRunner) Run(name string, args ...string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("failed to run %s: %w", strings.Join(append([]string{name}, args...), " "), err)
	}
	return string(output), nil
}
