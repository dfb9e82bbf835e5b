package types

// State represents the node lifecycle state.
//
// States follow a fixed progression:
//
//	StateInit → StateLoading → StateServing → StateTerminated
//
// StateFailed is terminal and entered from any state on a fatal error.
type State int

const (
	// StateInit is the initial state before any operations.
	StateInit State = iota

	// StateLoading indicates content is being assigned and materialized.
	StateLoading

	// StateServing indicates the node is driving or following the command stream.
	StateServing

	// StateTerminated indicates a terminate command was processed.
	StateTerminated

	// StateFailed indicates a fatal configuration, protocol or collective error.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateLoading:
		return "Loading"
	case StateServing:
		return "Serving"
	case StateTerminated:
		return "Terminated"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
