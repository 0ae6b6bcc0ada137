// Package event defines the lifecycle notification surface for procwatch.
// Supervisors publish events to a Bus rather than invoking listeners through
// a base type, so external sinks can subscribe and unsubscribe without the
// supervisor knowing who is listening.
package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "server.<phase>" (e.g. "server.opening", "server.stdout").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers published by a supervisor.
const (
	TypeOpening = "server.opening"
	TypeOpen    = "server.open"
	TypeClosing = "server.closing"
	TypeClose   = "server.close"
	TypeStdout  = "server.stdout"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// OpeningEvent is emitted when a supervisor begins an open transition,
// immediately before the server process is spawned.
type OpeningEvent struct {
	baseEvent
	Bin string // server binary being started
}

// NewOpeningEvent creates an OpeningEvent.
func NewOpeningEvent(bin string) OpeningEvent {
	return OpeningEvent{baseEvent: newBaseEvent(TypeOpening), Bin: bin}
}

// OpenEvent is emitted when the server has reported readiness.
type OpenEvent struct {
	baseEvent
	Bin string
	PID int // process ID of the running server
}

// NewOpenEvent creates an OpenEvent.
func NewOpenEvent(bin string, pid int) OpenEvent {
	return OpenEvent{baseEvent: newBaseEvent(TypeOpen), Bin: bin, PID: pid}
}

// ClosingEvent is emitted when a supervisor begins a close transition,
// either on request or because startup classification failed.
type ClosingEvent struct {
	baseEvent
	Bin string
}

// NewClosingEvent creates a ClosingEvent.
func NewClosingEvent(bin string) ClosingEvent {
	return ClosingEvent{baseEvent: newBaseEvent(TypeClosing), Bin: bin}
}

// CloseEvent is emitted when the server process has exited, whatever the
// cause: a requested close, a startup failure, or a crash.
type CloseEvent struct {
	baseEvent
	Bin string
}

// NewCloseEvent creates a CloseEvent.
func NewCloseEvent(bin string) CloseEvent {
	return CloseEvent{baseEvent: newBaseEvent(TypeClose), Bin: bin}
}

// StdoutEvent carries a raw chunk of the server's output stream. Chunks are
// forwarded as they arrive and are not guaranteed to align with line
// boundaries.
type StdoutEvent struct {
	baseEvent
	Bin  string
	Text string // raw decoded output chunk
}

// NewStdoutEvent creates a StdoutEvent.
func NewStdoutEvent(bin, text string) StdoutEvent {
	return StdoutEvent{baseEvent: newBaseEvent(TypeStdout), Bin: bin, Text: text}
}
