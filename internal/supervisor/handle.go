package supervisor

import (
	"os/exec"
	"sync"
	"syscall"
	"time"

	"dualserve/internal/service"
	"dualserve/pkg/types"
)

// Handle is the runtime record of one launched child. It is owned by the
// Supervisor; other components only ever see Status snapshots.
type Handle struct {
	spec    service.Spec
	cmd     *exec.Cmd
	outputs []*lineWriter
	exited  chan struct{}

	mu            sync.Mutex
	pid           int
	started       time.Time
	state         HandleState
	code          int
	signal        syscall.Signal
	stopRequested bool
	forced        bool
}

func newHandle(spec service.Spec) *Handle {
	return &Handle{spec: spec, state: HandleStarting, exited: make(chan struct{})}
}

// Spec returns the spec the child was launched from.
func (h *Handle) Spec() service.Spec { return h.spec }

// State returns the current child state.
func (h *Handle) State() HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Exited is closed once the child has been reaped.
func (h *Handle) Exited() <-chan struct{} { return h.exited }

func (h *Handle) markRunning(pid int) {
	h.mu.Lock()
	h.pid = pid
	h.started = time.Now()
	h.state = HandleRunning
	h.mu.Unlock()
}

func (h *Handle) markExited(code int, sig syscall.Signal) {
	h.mu.Lock()
	h.code = code
	h.signal = sig
	if sig != 0 {
		h.state = HandleKilled
	} else {
		h.state = HandleExited
	}
	h.mu.Unlock()
	close(h.exited)
}

func (h *Handle) markStopRequested() {
	h.mu.Lock()
	h.stopRequested = true
	h.mu.Unlock()
}

func (h *Handle) markForced() {
	h.mu.Lock()
	h.forced = true
	h.mu.Unlock()
}

func (h *Handle) wasForced() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.forced
}

func (h *Handle) pidValue() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}

// Status returns a read-only snapshot of the handle.
func (h *Handle) Status() types.ServiceStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := types.ServiceStatus{
		Name:          h.spec.Name,
		Addr:          h.spec.Addr(),
		State:         string(h.state),
		PID:           h.pid,
		StopRequested: h.stopRequested,
		Forced:        h.forced,
	}
	if !h.started.IsZero() {
		st.StartedUnix = h.started.Unix()
	}
	switch h.state {
	case HandleExited:
		code := h.code
		st.ExitCode = &code
	case HandleKilled:
		st.Signal = h.signal.String()
	}
	return st
}
