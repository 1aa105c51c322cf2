// Package tlmt provides anonymous usage telemetry.
package tlmt

import "context"

// Event is a single telemetry event
type Event struct {
	Name       string
	Properties map[string]any
}

// NewEvent creates a new telemetry event
func NewEvent(name string, properties map[string]any) Event {
	return Event{
		Name:       name,
		Properties: properties,
	}
}

// Telemetry sends usage events to a collector
type Telemetry interface {
	Send(ctx context.Context, event Event) error
	Close() error
}
