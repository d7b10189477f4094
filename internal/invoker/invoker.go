// Package invoker runs external commands with a bounded timeout and captured
// output. It is the only place in the application that spawns processes.
package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/example/twintray/internal/logging"
)

// ErrTimeout reports that a command exceeded its deadline and was killed.
var ErrTimeout = errors.New("command timed out")

// Result captures the observable outcome of a completed command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Invoker executes a named command with arguments. A non-zero exit status is
// reported through Result, not as an error; errors are reserved for spawn
// failures and timeouts.
type Invoker interface {
	Invoke(ctx context.Context, name string, args ...string) (Result, error)
}

// ProcessError describes a command that ran but did not succeed. It doubles
// as the provider-layer failure carried by fetch and action errors.
type ProcessError struct {
	Name     string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Name, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Name, e.ExitCode, e.Stderr)
}

// NewProcessError builds a ProcessError from a completed Result, keeping only
// a stderr excerpt suitable for logs and error chains.
func NewProcessError(name string, res Result) *ProcessError {
	return &ProcessError{
		Name:     name,
		ExitCode: res.ExitCode,
		Stderr:   logging.Excerpt(res.Stderr, 256),
	}
}

// Exec is the production Invoker backed by os/exec.
type Exec struct {
	// Timeout bounds every invocation. The process is killed when exceeded.
	Timeout time.Duration
}

// NewExec returns an Invoker enforcing the given per-command timeout.
func NewExec(timeout time.Duration) *Exec {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Exec{Timeout: timeout}
}

// Invoke runs the command and waits for completion or timeout. On timeout the
// process is killed best-effort and ErrTimeout is returned.
func (e *Exec) Invoke(ctx context.Context, name string, args ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Do not wait forever on inherited pipes after the kill.
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()

	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return res, fmt.Errorf("%s: %w", name, ErrTimeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logging.LogInvocation(name, args, res.ExitCode, res.Stdout, res.Stderr)
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("run %s: %w", name, err)
	}

	logging.LogInvocation(name, args, res.ExitCode, res.Stdout, res.Stderr)
	return res, nil
}
