package collector

import (
	"context"
	"os/exec"
)

// Runner executes an external command and returns its stdout.
// Output is returned even when err is non-nil (e.g. non-zero exit status).
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
