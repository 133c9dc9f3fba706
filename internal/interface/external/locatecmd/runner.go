// Package locatecmd runs the external command that reports the device
// position.
package locatecmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

// ErrNotFound is returned when the command binary does not exist
var ErrNotFound = errors.New("location command not found")

const waitDelay = 200 * time.Millisecond

// Runner executes a location command
type Runner struct {
	Bin     string
	Args    []string
	Timeout time.Duration
}

// Result is the outcome of a command that ran to completion
type Result struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
}

// Parse splits a command line on whitespace. Quoting is not supported;
// wrap complex commands in a script.
func Parse(line string, timeout time.Duration) (Runner, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Runner{}, errors.New("empty location command")
	}
	return Runner{Bin: fields[0], Args: fields[1:], Timeout: timeout}, nil
}

// Run executes the command. A non-zero exit is reported in Result, not as
// an error. Deadline and cancellation come back as the context error.
func (r Runner) Run(ctx context.Context) (*Result, error) {
	cctx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cctx, r.Bin, r.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that keep the pipes open must not outlive the deadline
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if err == nil {
		return &Result{Stdout: stdout.Bytes(), Stderr: strings.TrimSpace(stderr.String())}, nil
	}

	if cerr := cctx.Err(); cerr != nil {
		return nil, cerr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &Result{
			Stdout:   stdout.Bytes(),
			Stderr:   strings.TrimSpace(stderr.String()),
			ExitCode: exitErr.ExitCode(),
		}, nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", r.Bin, ErrNotFound)
	}
	return nil, fmt.Errorf("location command failed: %w", err)
}
