//go:build !unix

package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

func procAttr() *syscall.SysProcAttr { return nil }

// terminate has no graceful variant off unix; the grace timer still runs so
// the observable sequence stays the same.
func terminate(cmd *exec.Cmd) error { return nil }

func kill(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func signalOf(ps *os.ProcessState) syscall.Signal { return 0 }
