package supervisor

import "sync"

// Event names published by the supervisor.
const (
	EventSpawnStart    = "spawn_start"
	EventSpawnExit     = "spawn_exit"
	EventStopRequested = "stop_requested"
	EventForceKill     = "force_kill"
	EventShutdown      = "shutdown"
	EventStopped       = "stopped"
)

// Event represents a supervisor lifecycle event.
// Minimal and stable: name + service and optional fields via key/values.
type Event struct {
	Name    string
	Service string
	Fields  map[string]any
}

// EventPublisher receives events from the supervisor. Implementations should
// be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Count returns how many events named name were published.
func (p *MemoryPublisher) Count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Name == name {
			n++
		}
	}
	return n
}
