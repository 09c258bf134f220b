package supervisor

// State is the supervisor lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateLaunching    State = "launching"
	StateRunning      State = "running"
	StateShuttingDown State = "shutting_down"
	StateStopped      State = "stopped"
)

// HandleState is the lifecycle state of one supervised child.
type HandleState string

const (
	HandleStarting HandleState = "starting"
	HandleRunning  HandleState = "running"
	HandleExited   HandleState = "exited"
	HandleKilled   HandleState = "killed"
)

// Alive reports whether a child in this state may still be running.
func (s HandleState) Alive() bool { return s == HandleStarting || s == HandleRunning }
