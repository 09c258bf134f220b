package supervisor

import (
	"errors"
	"fmt"
	"syscall"

	"dualserve/internal/service"
)

var (
	// ErrTerminated is the shutdown cause when termination was requested
	// from outside (signal, context cancellation or Shutdown).
	ErrTerminated = errors.New("supervisor terminated")
	// ErrNotIdle is returned by Start on a supervisor that already ran.
	ErrNotIdle = errors.New("supervisor already started")
	// ErrNoServices is returned by Start when there is nothing to launch.
	ErrNoServices = errors.New("no services to launch")
)

// LaunchError reports a child that could not be started.
type LaunchError struct {
	Spec service.Spec
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s (%s): %v", e.Spec.Name, e.Spec.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ChildExitError reports a supervised child that terminated. It is the
// trigger of a shared-fate shutdown, not a failure to be recovered.
type ChildExitError struct {
	Name   string
	PID    int
	Code   int
	Signal syscall.Signal
	Err    error
}

func (e *ChildExitError) Error() string {
	if e.Signal != 0 {
		return fmt.Sprintf("service %s (pid %d) killed by signal %s", e.Name, e.PID, e.Signal)
	}
	return fmt.Sprintf("service %s (pid %d) exited with code %d", e.Name, e.PID, e.Code)
}

func (e *ChildExitError) Unwrap() error { return e.Err }

// ExitCode maps the child's termination onto a non-zero process exit code:
// the child's own code when it failed, 128+signal when it was signaled, and
// 1 when it exited cleanly.
func (e *ChildExitError) ExitCode() int {
	switch {
	case e.Code > 0:
		return e.Code
	case e.Signal != 0:
		return 128 + int(e.Signal)
	default:
		return ExitChildTerminated
	}
}

// IsLaunchError reports whether err is or wraps a LaunchError.
func IsLaunchError(err error) bool {
	var e *LaunchError
	return errors.As(err, &e)
}

// IsChildExit reports whether err is or wraps a ChildExitError.
func IsChildExit(err error) bool {
	var e *ChildExitError
	return errors.As(err, &e)
}
