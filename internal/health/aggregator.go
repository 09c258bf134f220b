// Package health combines the readiness probes of supervised services into a
// single signal for container-platform probing.
package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultProbeTimeout bounds a single probe when no timeout is configured.
const DefaultProbeTimeout = 2 * time.Second

// Target is a read-only summary of a service to probe.
type Target struct {
	Name string
	URL  string
}

// Source yields the targets to probe on each check.
type Source interface {
	Targets() []Target
}

// StaticSource probes a fixed list of targets.
type StaticSource []Target

func (s StaticSource) Targets() []Target { return append([]Target(nil), s...) }

// Policy folds per-service readiness into one outcome.
type Policy string

const (
	// PolicyAny is ready when at least one probe succeeds.
	PolicyAny Policy = "any"
	// PolicyAll is ready only when every probe succeeds.
	PolicyAll Policy = "all"
)

// ParsePolicy accepts "any" or "all" (case-insensitive); empty means any.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "or":
		return PolicyAny, nil
	case "all", "and":
		return PolicyAll, nil
	}
	return "", fmt.Errorf("invalid readiness policy %q (want any or all)", s)
}

// ProbeUnreachableError records a probe that could not reach its service.
// It never leaves the aggregator except inside a ProbeResult.
type ProbeUnreachableError struct {
	Name string
	URL  string
	Err  error
}

func (e *ProbeUnreachableError) Error() string {
	return fmt.Sprintf("probe %s unreachable at %s: %v", e.Name, e.URL, e.Err)
}

func (e *ProbeUnreachableError) Unwrap() error { return e.Err }

// IsProbeUnreachable reports whether err is or wraps a ProbeUnreachableError.
func IsProbeUnreachable(err error) bool {
	var e *ProbeUnreachableError
	return errors.As(err, &e)
}

// ProbeResult is the outcome of probing one target.
type ProbeResult struct {
	Target     Target
	Ready      bool
	StatusCode int
	Latency    time.Duration
	Err        error
}

// Report is the outcome of one Check.
type Report struct {
	Ready  bool
	Policy Policy
	Probes []ProbeResult
}

// Aggregator probes every target of its Source and folds the results.
type Aggregator struct {
	src     Source
	policy  Policy
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTimeout sets the per-probe timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithClient overrides the HTTP client used for probes.
func WithClient(c *http.Client) Option {
	return func(a *Aggregator) {
		if c != nil {
			a.client = c
		}
	}
}

// WithLogger installs a logger for probe failures (debug level).
func WithLogger(l zerolog.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// New builds an Aggregator over src.
func New(src Source, policy Policy, opts ...Option) *Aggregator {
	if policy == "" {
		policy = PolicyAny
	}
	a := &Aggregator{
		src:     src,
		policy:  policy,
		timeout: DefaultProbeTimeout,
		// Timeout=0: every probe carries its own context deadline.
		client: &http.Client{Timeout: 0},
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Policy returns the readiness policy.
func (a *Aggregator) Policy() Policy { return a.policy }

// Check probes all current targets concurrently. With no targets the result
// is NotReady.
func (a *Aggregator) Check(ctx context.Context) Report {
	targets := a.src.Targets()
	rep := Report{Policy: a.policy, Probes: make([]ProbeResult, len(targets))}
	var g errgroup.Group
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			rep.Probes[i] = a.probe(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
	rep.Ready = fold(a.policy, rep.Probes)
	return rep
}

// Ready is Check reduced to its boolean outcome.
func (a *Aggregator) Ready(ctx context.Context) bool { return a.Check(ctx).Ready }

func fold(p Policy, probes []ProbeResult) bool {
	if len(probes) == 0 {
		return false
	}
	if p == PolicyAll {
		for _, r := range probes {
			if !r.Ready {
				return false
			}
		}
		return true
	}
	for _, r := range probes {
		if r.Ready {
			return true
		}
	}
	return false
}

func (a *Aggregator) probe(ctx context.Context, t Target) ProbeResult {
	res := ProbeResult{Target: t}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		res.Err = &ProbeUnreachableError{Name: t.Name, URL: t.URL, Err: err}
		return res
	}
	resp, err := a.client.Do(req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = &ProbeUnreachableError{Name: t.Name, URL: t.URL, Err: err}
		a.log.Debug().Str("service", t.Name).Str("url", t.URL).Err(err).Msg("probe unreachable")
		return res
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
	res.StatusCode = resp.StatusCode
	res.Ready = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !res.Ready {
		a.log.Debug().Str("service", t.Name).Int("status", resp.StatusCode).Msg("probe not ready")
	}
	return res
}
