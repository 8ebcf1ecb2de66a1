package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Invocation is one converter process launch
type Invocation struct {
	Program string
	Args    []string
	Dir     string
	Stdout  io.Writer
	Stderr  io.Writer
}

// ExitError reports a process that ran to completion with a non-zero code.
// The converter does not treat it as a failure on its own.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Runner starts a process and waits for it. A nil error or an *ExitError
// means the process exited normally. Any other error means it never started
// or was terminated abnormally.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// ExecRunner runs invocations with os/exec
type ExecRunner struct{}

// Run implements Runner. Output is copied to the writers while the process
// runs, not after it exits.
func (ExecRunner) Run(ctx context.Context, inv Invocation) error {
	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return err
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, inv Invocation) error

func (f RunnerFunc) Run(ctx context.Context, inv Invocation) error {
	return f(ctx, inv)
}
