package manager

// Event represents a job or model lifecycle event.
// Minimal and stable: name + job/model ids and optional fields.
type Event struct {
	Name    string
	JobID   string
	ModelID string
	Fields  map[string]any
}

// EventPublisher receives events from the manager. Implementations
// should be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
