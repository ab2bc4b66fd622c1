package crawler

// State represents where a crawl run is in its lifecycle.
// A scheduler moves Idle -> Running -> (Completed | Aborted) and never
// re-enters an earlier state.
type State int

const (
	// StateIdle means Run has not been called yet.
	StateIdle State = iota

	// StateRunning means the frontier loop is active.
	StateRunning

	// StateCompleted means the run ended naturally: the frontier drained
	// or the visited count reached the URL cap.
	StateCompleted

	// StateAborted means a health threshold or a context cancellation
	// stopped the run before it could finish. The result snapshot is
	// still produced in full.
	StateAborted
)

// String returns a human-readable description of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is Completed or Aborted.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}
