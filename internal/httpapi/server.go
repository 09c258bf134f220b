package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dualserve/internal/health"
	"dualserve/pkg/types"
)

// Supervisor is the read-only view of the supervisor the HTTP layer needs.
type Supervisor interface {
	Status() types.SupervisorStatus
}

// Checker aggregates service readiness.
type Checker interface {
	Check(ctx context.Context) health.Report
}

type server struct {
	sup  Supervisor
	chk  Checker
	mode string
}

// NewMux builds the health surface of the supervisor process.
func NewMux(sup Supervisor, chk Checker, mode string) http.Handler {
	s := &server{sup: sup, chk: chk, mode: mode}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(accessLog)
	if c := corsMiddleware(); c != nil {
		r.Use(c)
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/status", s.handleStatus)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

// handleHealthz godoc
// @Summary      Liveness
// @Description  Returns 200 while the supervisor process is alive.
// @Tags         health
// @Produce      plain
// @Success      200  {string}  string  "ok"
// @Router       /healthz [get]
func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz godoc
// @Summary      Aggregated readiness
// @Description  Probes every running service and folds the results with the configured policy.
// @Tags         health
// @Produce      plain
// @Success      200  {string}  string  "ready"
// @Failure      503  {string}  string  "not ready"
// @Router       /readyz [get]
func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	rep := s.chk.Check(ctx)
	observeReport(rep)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if rep.Ready {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

// handleStatus godoc
// @Summary      Supervisor status
// @Description  Supervisor state, per-service process state and per-probe readiness.
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Failure      500  {object}  types.ErrorResponse
// @Router       /status [get]
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	rep := s.chk.Check(ctx)
	observeReport(rep)
	resp := types.StatusResponse{
		Mode:           s.mode,
		Policy:         string(rep.Policy),
		Ready:          rep.Ready,
		Supervisor:     s.sup.Status(),
		Probes:         probeStatuses(rep),
		ServerTimeUnix: time.Now().Unix(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

func probeStatuses(rep health.Report) []types.ProbeStatus {
	out := make([]types.ProbeStatus, 0, len(rep.Probes))
	for _, p := range rep.Probes {
		ps := types.ProbeStatus{
			Name:       p.Target.Name,
			URL:        p.Target.URL,
			Ready:      p.Ready,
			StatusCode: p.StatusCode,
			LatencyMS:  p.Latency.Milliseconds(),
		}
		if p.Err != nil {
			ps.Error = p.Err.Error()
		}
		out = append(out, ps)
	}
	return out
}
