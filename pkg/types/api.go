package types

// ServiceStatus summarizes one supervised child for /status.
type ServiceStatus struct {
	// Service name.
	// example: predict
	Name string `json:"name" example:"predict"`
	// Bind address handed to the child.
	// example: 0.0.0.0:8000
	Addr string `json:"addr" example:"0.0.0.0:8000"`
	// Lifecycle state of the child (starting, running, exited, killed).
	// example: running
	State string `json:"state" example:"running"`
	// Process ID of the child.
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// Start time (unix seconds).
	// example: 1700000000
	StartedUnix int64 `json:"started_unix,omitempty" example:"1700000000"`
	// Exit code once the child has exited.
	// example: 0
	ExitCode *int `json:"exit_code,omitempty" example:"0"`
	// Terminating signal when the child was killed.
	// example: terminated
	Signal string `json:"signal,omitempty" example:"terminated"`
	// True once the supervisor asked the child to stop.
	StopRequested bool `json:"stop_requested,omitempty"`
	// True when the child had to be killed after the grace period.
	Forced bool `json:"forced,omitempty"`
}

// SupervisorStatus is the supervisor part of GET /status.
type SupervisorStatus struct {
	// Unique id of this supervisor run.
	// example: 3f0b5f9e-1c1d-4a0e-9f3c-2b8e4c1d9a77
	RunID string `json:"run_id" example:"3f0b5f9e-1c1d-4a0e-9f3c-2b8e4c1d9a77"`
	// Supervisor lifecycle state (idle, launching, running, shutting_down, stopped).
	// example: running
	State string `json:"state" example:"running"`
	// Supervised services in launch order.
	Services []ServiceStatus `json:"services"`
	// What triggered the shutdown, once one started.
	// example: service ui (pid 4242) exited with code 1
	Cause string `json:"cause,omitempty" example:"service ui (pid 4242) exited with code 1"`
	// Process exit code, set once stopped.
	ExitCode *int `json:"exit_code,omitempty"`
	// Uptime in seconds since Start.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}

// ProbeStatus reports one health probe.
type ProbeStatus struct {
	// Service name.
	// example: ui
	Name string `json:"name" example:"ui"`
	// Probed URL.
	// example: http://127.0.0.1:8501/_stcore/health
	URL string `json:"url" example:"http://127.0.0.1:8501/_stcore/health"`
	// Whether the probe succeeded.
	Ready bool `json:"ready"`
	// HTTP status returned by the probe, 0 when unreachable.
	// example: 200
	StatusCode int `json:"status_code,omitempty" example:"200"`
	// Probe failure, if any.
	Error string `json:"error,omitempty"`
	// Probe latency in milliseconds.
	// example: 3
	LatencyMS int64 `json:"latency_ms" example:"3"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Selected service mode.
	// example: Both
	Mode string `json:"mode" example:"Both"`
	// Readiness policy (any or all).
	// example: any
	Policy string `json:"policy" example:"any"`
	// Aggregated readiness.
	Ready bool `json:"ready"`
	// Supervisor state and children.
	Supervisor SupervisorStatus `json:"supervisor"`
	// Per-service probe results.
	Probes []ProbeStatus `json:"probes"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: encode failed
	Error string `json:"error" example:"encode failed"`
	// HTTP status code.
	// example: 500
	Code int `json:"code" example:"500"`
}
