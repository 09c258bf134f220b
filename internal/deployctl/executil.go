package deployctl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Cmd is one external command invocation.
type Cmd struct {
	Path   string
	Args   []string
	Env    map[string]string // additional env vars
	Dir    string            // working directory
	Stdout io.Writer         // defaults to os.Stdout for Run
	Stderr io.Writer         // defaults to os.Stderr for Run
}

func (c Cmd) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// CmdError carries the captured stderr of a failed command.
type CmdError struct {
	Cmd    string
	Stderr string
	Err    error
}

func (e *CmdError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Cmd, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Cmd, e.Err, e.Stderr)
}

func (e *CmdError) Unwrap() error { return e.Err }

// Runner executes external commands. The docker client goes through it so
// tests can substitute a fake engine.
type Runner interface {
	// Run executes c with output attached to c.Stdout/c.Stderr.
	Run(ctx context.Context, c Cmd) error
	// Output executes c and returns its trimmed stdout.
	Output(ctx context.Context, c Cmd) (string, error)
}

type execRunner struct{}

func (execRunner) command(ctx context.Context, c Cmd) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	// inherit environment
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	return cmd
}

func (r execRunner) Run(ctx context.Context, c Cmd) error {
	debug("exec: %s", c)
	cmd := r.command(ctx, c)
	cmd.Stdout, cmd.Stderr = c.Stdout, c.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return &CmdError{Cmd: c.String(), Err: err}
	}
	return nil
}

func (r execRunner) Output(ctx context.Context, c Cmd) (string, error) {
	debug("exec: %s", c)
	cmd := r.command(ctx, c)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		return "", &CmdError{Cmd: c.String(), Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}
