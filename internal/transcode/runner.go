// Package transcode wraps the external ffmpeg/ffprobe pair behind small
// ports. The runner executes one invocation under a hard wall-clock budget
// and reports a structured result; a non-zero exit is data here, not an
// error. Callers interpret the exit code and stderr and translate them into
// their own failure modes.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrNoCommand is returned when Run is called with no arguments.
var ErrNoCommand = errors.New("transcode: no command arguments provided")

// Result is the structured outcome of one tool invocation.
type Result struct {
	// ExitCode is the process exit status. Zero means the tool reported success.
	ExitCode int
	// Stdout is the captured standard output.
	Stdout string
	// Stderr is the captured diagnostic output.
	Stderr string
	// TimedOut reports that the wall-clock budget expired and the process
	// was killed. Distinct from a tool-reported failure.
	TimedOut bool
}

// Success returns true when the tool exited cleanly within its budget.
func (r Result) Success() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// Runner executes a transcoding tool invocation with a bounded timeout.
type Runner interface {
	Run(ctx context.Context, args []string, timeout time.Duration) (Result, error)
}

// Compile-time check that ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)

// ExecRunner runs a fixed binary through os/exec.
type ExecRunner struct {
	// binPath is the path to the tool binary, e.g. "ffmpeg".
	binPath string
}

// NewRunner creates an ExecRunner for the given binary.
// If binPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewRunner(binPath string) *ExecRunner {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &ExecRunner{binPath: binPath}
}

// Run executes the binary with the given arguments, killing it once the
// timeout elapses. It returns an error only when the invocation could not
// be attempted at all (missing binary, caller context already done); the
// tool's own failures are reported through Result.
func (r *ExecRunner) Run(ctx context.Context, args []string, timeout time.Duration) (Result, error) {
	if len(args) == 0 {
		return Result{}, ErrNoCommand
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("transcode: context done before run: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec G204 - binPath is set by the application, not user input
	cmd := exec.CommandContext(runCtx, r.binPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("transcode: run %s: %w", r.binPath, err)
	}

	return res, nil
}
