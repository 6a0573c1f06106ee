// Package execx runs external commands synchronously with captured output
// and enough failure context to diagnose a run without re-executing it.
// This is a leaf package — stdlib only, no internal imports, no logging.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"
)

// Cmd describes one external command invocation.
type Cmd struct {
	// Program is the binary to execute (resolved via PATH).
	Program string

	// Args are the program arguments, not including the program itself.
	Args []string

	// Dir is the working directory for the command. Empty means inherit.
	Dir string

	// Stdout and Stderr, when non-nil, receive the command's output
	// directly instead of being buffered. Buffered output is what ends
	// up in a failure's Error; redirected output is the caller's
	// responsibility to inspect.
	Stdout io.Writer
	Stderr io.Writer
}

// Error describes a command that was invoked but did not succeed.
type Error struct {
	// Label is the human-readable reconstruction of the command line.
	Label string

	// StartErr is set when the process could not be started at all
	// (binary missing, permission denied). Exclusive with Exited/Signaled.
	StartErr error

	// Exited is true when the process ran and exited with ExitCode != 0.
	Exited   bool
	ExitCode int

	// Signaled is true when the process was terminated by Signal.
	Signaled bool
	Signal   syscall.Signal

	// Stderr and Stdout hold buffered output, empty when the caller
	// redirected the corresponding stream.
	Stderr string
	Stdout string
}

func (e *Error) Error() string {
	if e.StartErr != nil {
		return fmt.Sprintf("failed to exec %s: %v", e.Label, e.StartErr)
	}

	var summary string
	switch {
	case e.Signaled:
		summary = fmt.Sprintf("terminated by signal %d", int(e.Signal))
	default:
		summary = fmt.Sprintf("exited with code %d", e.ExitCode)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "command failed: %s: %s", e.Label, summary)
	if e.Stderr != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s\n", e.Stderr)
	}
	if e.Stdout != "" {
		fmt.Fprintf(&b, "\nstdout:\n%s\n", e.Stdout)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.StartErr }

// Label builds the human-readable command line used in errors and logs.
// Each word is quoted so that empty or space-containing arguments stay
// visible.
func Label(program string, args ...string) string {
	words := make([]string, 0, len(args)+1)
	words = append(words, fmt.Sprintf("%q", program))
	for _, a := range args {
		words = append(words, fmt.Sprintf("%q", a))
	}
	return strings.Join(words, " ")
}

// Run executes c, waits for it to finish, and returns its buffered stdout.
//
// Success means exit status 0. Any other outcome — start failure, non-zero
// exit, or death by signal — is reported as an *Error. Run performs no
// retries and enforces no timeout.
//
// ctx is consulted only before the process starts: a canceled context
// refuses to launch, but a process already running is never killed.
// Cancellation is cooperative; callers check ctx between invocations.
func Run(ctx context.Context, c Cmd) (string, error) {
	label := Label(c.Program, c.Args...)

	cmd := exec.CommandContext(ctx, c.Program, c.Args...)
	// Clearing Cancel keeps Start's refusal to launch on a canceled
	// context but removes the kill-on-cancel watcher.
	cmd.Cancel = nil
	cmd.Dir = c.Dir

	var outBuf, errBuf bytes.Buffer
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	} else {
		cmd.Stdout = &outBuf
	}
	if c.Stderr != nil {
		cmd.Stderr = c.Stderr
	} else {
		cmd.Stderr = &errBuf
	}

	err := cmd.Run()
	if err == nil {
		return outBuf.String(), nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// The process never ran.
		return "", &Error{Label: label, StartErr: err}
	}

	e := &Error{
		Label:  label,
		Stderr: errBuf.String(),
		Stdout: outBuf.String(),
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		e.Signaled = true
		e.Signal = ws.Signal()
	} else {
		e.Exited = true
		e.ExitCode = exitErr.ExitCode()
	}
	return "", e
}
