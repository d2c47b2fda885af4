package fetch

// FailedMessage is the only failure text shown to users. Error details stay in
// logs and traces.
const FailedMessage = "Failed to load posts."

// State enumerates the fetch lifecycle states.
type State uint8

const (
	StateIdle State = iota
	StateLoading
	StateSucceeded
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is the tagged state of the most recent fetch. Fields are unexported
// so that only the constructors below can build one: a message exists only on
// a failed status.
type Status struct {
	state   State
	message string
}

// Idle is the status before the first fetch.
func Idle() Status { return Status{state: StateIdle} }

// Loading is the status while a fetch is in flight.
func Loading() Status { return Status{state: StateLoading} }

// Succeeded is the status after the catalog was replaced.
func Succeeded() Status { return Status{state: StateSucceeded} }

// Failed is the status after a fetch error.
func Failed(message string) Status { return Status{state: StateFailed, message: message} }

// State returns the active state.
func (s Status) State() State { return s.state }

// Message returns the failure message, or "" unless the state is StateFailed.
func (s Status) Message() string { return s.message }

// IsLoading reports whether a fetch is in flight.
func (s Status) IsLoading() bool { return s.state == StateLoading }

func (s Status) String() string {
	if s.state == StateFailed {
		return s.state.String() + ": " + s.message
	}
	return s.state.String()
}
