package supervisor

import (
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"dualserve/internal/service"
)

var nextPort atomic.Int32

func init() { nextPort.Store(18100) }

// shSpec returns a spec running script under sh. Skips when sh is missing.
func shSpec(t *testing.T, name, script string) service.Spec {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
	return service.Spec{
		Name:       name,
		Host:       "127.0.0.1",
		Port:       int(nextPort.Add(1)),
		Command:    sh,
		Args:       []string{"-c", script},
		HealthPath: "/",
	}
}

func newTestSupervisor(grace time.Duration) (*Supervisor, *MemoryPublisher) {
	pub := NewMemoryPublisher()
	return New(Options{GracePeriod: grace, Publisher: pub}), pub
}

// waitStopped waits for the supervisor to stop or fails the test.
func waitStopped(t *testing.T, s *Supervisor, d time.Duration) int {
	t.Helper()
	select {
	case <-s.Done():
		return s.ExitCode()
	case <-time.After(d):
		s.Shutdown()
		t.Fatalf("supervisor did not stop within %s (state %s)", d, s.State())
		return -1
	}
}

func handleByName(s *Supervisor, name string) *Handle {
	for _, h := range s.Handles() {
		if h.Spec().Name == name {
			return h
		}
	}
	return nil
}
