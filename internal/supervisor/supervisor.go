// Package supervisor runs a fixed set of long-lived services with shared
// fate: the first child to exit, or an external termination request, stops
// every other child and ends the run.
package supervisor

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dualserve/internal/health"
	"dualserve/internal/service"
	"dualserve/pkg/types"
)

// beforeStart runs right before each child process is started.
var beforeStart = func(service.Spec) {}

// DefaultGracePeriod applies when Options.GracePeriod is unset.
const DefaultGracePeriod = 10 * time.Second

// Process exit codes.
const (
	ExitOK              = 0
	ExitChildTerminated = 1
	ExitLaunchFailed    = 1
	ExitForcedStop      = 1
	ExitConfig          = 2
)

// Options tunes a Supervisor.
type Options struct {
	// GracePeriod bounds how long a child may take to stop after SIGTERM.
	GracePeriod time.Duration
	// Signals, when set, are treated as external termination requests.
	Signals []os.Signal
	// Logger receives lifecycle logs and, with ForwardOutput, child output.
	Logger *zerolog.Logger
	// ForwardOutput logs child stdout/stderr line by line.
	ForwardOutput bool
	// Publisher receives lifecycle events.
	Publisher EventPublisher
}

// Supervisor owns the children of one run. A Supervisor is single-use.
type Supervisor struct {
	grace   time.Duration
	signals []os.Signal
	log     zerolog.Logger
	forward bool
	pub     EventPublisher
	runID   string

	mu       sync.RWMutex
	state    State
	handles  []*Handle
	cause    error
	started  time.Time
	exitCode int

	stopping atomic.Bool
	groupCtx context.Context
	cancel   context.CancelFunc
	launched chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

// New constructs an idle Supervisor.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		grace:    opts.GracePeriod,
		signals:  append([]os.Signal(nil), opts.Signals...),
		forward:  opts.ForwardOutput,
		pub:      opts.Publisher,
		runID:    uuid.NewString(),
		state:    StateIdle,
		exitCode: -1,
		launched: make(chan struct{}),
		done:     make(chan struct{}),
	}
	if s.grace <= 0 {
		s.grace = DefaultGracePeriod
	}
	if s.pub == nil {
		s.pub = noopPublisher{}
	}
	if opts.Logger != nil {
		s.log = opts.Logger.With().Str("run_id", s.runID).Logger()
	} else {
		s.log = zerolog.Nop()
	}
	s.groupCtx, s.cancel = context.WithCancel(context.Background())
	return s
}

// RunID identifies this run in logs and status.
func (s *Supervisor) RunID() string { return s.runID }

// GracePeriod returns the effective stop grace period.
func (s *Supervisor) GracePeriod() time.Duration { return s.grace }

// Start launches every spec in parallel and returns once all launches have
// been issued. If any launch fails, the children already started are torn
// down before the LaunchError is returned. Cancelling ctx, or receiving one
// of Options.Signals at any point after Start is called, triggers the
// shutdown sequence.
func (s *Supervisor) Start(ctx context.Context, specs []service.Spec) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrNotIdle
	}
	s.state = StateLaunching
	s.started = time.Now()
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	// Signals are caught before the first child exists and released only
	// once every child is gone.
	stopSignals := context.CancelFunc(func() {})
	if len(s.signals) > 0 {
		ctx, stopSignals = signal.NotifyContext(ctx, s.signals...)
	}

	if len(specs) == 0 {
		s.abort(ErrNoServices)
		stopSignals()
		return ErrNoServices
	}

	handles := make([]*Handle, len(specs))
	var g errgroup.Group
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			h, err := s.launch(spec)
			if err != nil {
				return &LaunchError{Spec: spec, Err: err}
			}
			handles[i] = h
			return nil
		})
	}
	err := g.Wait()

	s.mu.Lock()
	for _, h := range handles {
		if h != nil {
			s.handles = append(s.handles, h)
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.abort(err)
		stopSignals()
		return err
	}

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()
	s.log.Info().Int("services", len(specs)).Dur("grace", s.grace).Msg("supervisor running")

	go func() {
		<-s.done
		stopSignals()
	}()
	// A termination already requested during launch fires right away.
	go s.watchExternal(ctx)
	close(s.launched)
	go func() {
		s.wg.Wait()
		s.finish()
	}()
	return nil
}

// abort ends a run that never reached Running: any launched child is stopped
// and the supervisor goes straight to Stopped.
func (s *Supervisor) abort(cause error) {
	s.stopping.Store(true)
	s.mu.Lock()
	s.cause = cause
	n := len(s.handles)
	s.mu.Unlock()
	if n > 0 {
		s.log.Error().Err(cause).Int("launched", n).Msg("launch failed; stopping launched services")
	} else {
		s.log.Error().Err(cause).Msg("launch failed")
	}
	s.cancel()
	close(s.launched)
	s.wg.Wait()
	s.finish()
}

// launch issues one child start. The child is reaped and stopped by two
// goroutines tracked in s.wg.
func (s *Supervisor) launch(spec service.Spec) (*Handle, error) {
	if err := spec.Validate(); err != nil {
		childLaunchesTotal.WithLabelValues(spec.Name, "invalid").Inc()
		return nil, err
	}
	h := newHandle(spec)
	beforeStart(spec)
	cmd := exec.Command(spec.Command, spec.ExpandedArgs()...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Environ()...)
	cmd.SysProcAttr = procAttr()
	cmd.WaitDelay = s.grace
	if s.forward {
		stdout := newLineWriter(s.log, spec.Name, "stdout")
		stderr := newLineWriter(s.log, spec.Name, "stderr")
		cmd.Stdout, cmd.Stderr = stdout, stderr
		h.outputs = []*lineWriter{stdout, stderr}
	}
	if err := cmd.Start(); err != nil {
		childLaunchesTotal.WithLabelValues(spec.Name, "failed").Inc()
		s.log.Error().Str("service", spec.Name).Str("command", spec.Command).Err(err).Msg("launch failed")
		return nil, err
	}
	h.cmd = cmd
	h.markRunning(cmd.Process.Pid)
	childLaunchesTotal.WithLabelValues(spec.Name, "started").Inc()
	childrenRunning.Inc()
	s.log.Info().Str("service", spec.Name).Int("pid", cmd.Process.Pid).Str("addr", spec.Addr()).Msg("service started")
	s.pub.Publish(Event{Name: EventSpawnStart, Service: spec.Name, Fields: map[string]any{"pid": cmd.Process.Pid, "addr": spec.Addr()}})

	s.wg.Add(2)
	go s.watch(h)
	go s.stopOnShutdown(h)
	return h, nil
}

// watch reaps the child and, once every launch has been issued, reports its
// exit as the shutdown trigger.
func (s *Supervisor) watch(h *Handle) {
	defer s.wg.Done()
	werr := h.cmd.Wait()
	for _, o := range h.outputs {
		o.Flush()
	}
	ps := h.cmd.ProcessState
	sig := signalOf(ps)
	code := -1
	if ps != nil {
		code = ps.ExitCode()
	}
	h.markExited(code, sig)
	childrenRunning.Dec()
	childExitsTotal.WithLabelValues(h.spec.Name, string(h.State())).Inc()

	var exitErr *exec.ExitError
	if werr != nil && !errors.As(werr, &exitErr) {
		s.log.Warn().Str("service", h.spec.Name).Err(werr).Msg("wait error")
	}
	ev := s.log.Info().Str("service", h.spec.Name).Int("pid", h.pidValue())
	if sig != 0 {
		ev = ev.Str("signal", sig.String())
	} else {
		ev = ev.Int("code", code)
	}
	ev.Msg("service exited")
	s.pub.Publish(Event{Name: EventSpawnExit, Service: h.spec.Name, Fields: map[string]any{"pid": h.pidValue(), "code": code, "signal": int(sig)}})

	<-s.launched
	s.trigger(&ChildExitError{Name: h.spec.Name, PID: h.pidValue(), Code: code, Signal: sig, Err: werr})
}

// stopOnShutdown waits for the shared context to be cancelled and then stops
// the child: SIGTERM, then SIGKILL once the grace period elapses. Each child
// runs its own timer so no child's teardown waits on another's.
func (s *Supervisor) stopOnShutdown(h *Handle) {
	defer s.wg.Done()
	select {
	case <-h.exited:
		return
	case <-s.groupCtx.Done():
	}
	// Both cases may be ready at once; a reaped child must not be signalled.
	select {
	case <-h.exited:
		return
	default:
	}

	h.markStopRequested()
	log := s.log.With().Str("service", h.spec.Name).Int("pid", h.pidValue()).Logger()
	if err := terminate(h.cmd); err != nil {
		log.Warn().Err(err).Msg("stop signal failed")
	}
	log.Debug().Dur("grace", s.grace).Msg("stop requested")
	s.pub.Publish(Event{Name: EventStopRequested, Service: h.spec.Name, Fields: map[string]any{"pid": h.pidValue()}})

	t := time.NewTimer(s.grace)
	defer t.Stop()
	select {
	case <-h.exited:
		return
	case <-t.C:
	}

	h.markForced()
	forceKillsTotal.WithLabelValues(h.spec.Name).Inc()
	log.Warn().Dur("grace", s.grace).Msg("grace period elapsed; killing service")
	s.pub.Publish(Event{Name: EventForceKill, Service: h.spec.Name, Fields: map[string]any{"pid": h.pidValue()}})
	if err := kill(h.cmd); err != nil {
		log.Error().Err(err).Msg("kill failed")
	}
	<-h.exited
}

func (s *Supervisor) watchExternal(ctx context.Context) {
	select {
	case <-ctx.Done():
		s.trigger(ErrTerminated)
	case <-s.done:
	}
}

// trigger starts the shutdown sequence exactly once. Later calls are
// observed but ignored; the return value reports whether this call won.
func (s *Supervisor) trigger(cause error) bool {
	if !s.stopping.CompareAndSwap(false, true) {
		if IsChildExit(cause) {
			s.log.Debug().Str("cause", cause.Error()).Msg("service exited during shutdown")
		}
		return false
	}
	s.mu.Lock()
	s.cause = cause
	s.state = StateShuttingDown
	s.mu.Unlock()

	label := "external"
	var ce *ChildExitError
	if errors.As(cause, &ce) {
		label = "child_exit"
		s.log.Error().Str("service", ce.Name).Int("pid", ce.PID).Str("cause", cause.Error()).Msg("service exited; shutting down all services")
	} else {
		s.log.Info().Str("cause", cause.Error()).Msg("termination requested; shutting down all services")
	}
	shutdownsTotal.WithLabelValues(label).Inc()
	s.pub.Publish(Event{Name: EventShutdown, Fields: map[string]any{"trigger": label, "cause": cause.Error()}})
	s.cancel()
	return true
}

func (s *Supervisor) finish() {
	s.mu.Lock()
	s.state = StateStopped
	s.exitCode = s.exitCodeLocked()
	code := s.exitCode
	s.mu.Unlock()
	s.cancel()
	s.log.Info().Int("exit_code", code).Msg("supervisor stopped")
	s.pub.Publish(Event{Name: EventStopped, Fields: map[string]any{"exit_code": code}})
	close(s.done)
}

func (s *Supervisor) exitCodeLocked() int {
	var ce *ChildExitError
	switch {
	case errors.As(s.cause, &ce):
		return ce.ExitCode()
	case errors.Is(s.cause, ErrTerminated):
		for _, h := range s.handles {
			if h.wasForced() {
				return ExitForcedStop
			}
		}
		return ExitOK
	default:
		return ExitLaunchFailed
	}
}

// Shutdown requests termination from outside. It takes the same path as a
// child exit and is safe to call any number of times, from any goroutine.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	if s.state == StateIdle {
		s.state = StateStopped
		s.cause = ErrTerminated
		s.exitCode = ExitOK
		s.stopping.Store(true)
		s.mu.Unlock()
		close(s.launched)
		close(s.done)
		return
	}
	s.mu.Unlock()
	<-s.launched
	s.trigger(ErrTerminated)
}

// Done is closed once the supervisor is Stopped.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

// Wait blocks until the supervisor is Stopped and returns its exit code.
func (s *Supervisor) Wait() int {
	<-s.done
	return s.ExitCode()
}

// ExitCode returns the process exit code, or -1 while still running.
func (s *Supervisor) ExitCode() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exitCode
}

// Err returns what triggered the shutdown, or nil while none has started.
func (s *Supervisor) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cause
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Handles returns the launched handles in launch order.
func (s *Supervisor) Handles() []*Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Handle(nil), s.handles...)
}

// Targets returns the health targets of every Running child. It satisfies
// health.Source and hands out copies only.
func (s *Supervisor) Targets() []health.Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]health.Target, 0, len(s.handles))
	for _, h := range s.handles {
		if h.State() != HandleRunning {
			continue
		}
		out = append(out, health.Target{Name: h.spec.Name, URL: h.spec.HealthURL()})
	}
	return out
}

// Status returns a read-only snapshot for /status.
func (s *Supervisor) Status() types.SupervisorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := types.SupervisorStatus{
		RunID:    s.runID,
		State:    string(s.state),
		Services: make([]types.ServiceStatus, 0, len(s.handles)),
	}
	for _, h := range s.handles {
		st.Services = append(st.Services, h.Status())
	}
	if s.cause != nil {
		st.Cause = s.cause.Error()
	}
	if s.state == StateStopped {
		code := s.exitCode
		st.ExitCode = &code
	}
	if !s.started.IsZero() {
		st.UptimeSeconds = int64(time.Since(s.started).Seconds())
	}
	return st
}
