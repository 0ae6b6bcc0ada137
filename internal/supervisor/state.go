package supervisor

// State represents the lifecycle state of a supervised server.
type State int

const (
	// StateIdle indicates no open has ever been requested.
	StateIdle State = iota

	// StateOpening indicates an open transition is in flight: the server is
	// being spawned or has not yet produced a definitive startup verdict.
	StateOpening

	// StateRunning indicates the server reported readiness and is alive.
	StateRunning

	// StateClosing indicates a close transition is in flight.
	StateClosing

	// StateClosed indicates the server has exited. The next open starts a
	// wholly new process.
	StateClosed
)

// String returns a human-readable string for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateRunning:
		return "running"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
