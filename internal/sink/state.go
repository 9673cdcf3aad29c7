package sink

// State is the sink lifecycle. Transitions only move forward:
// Open -> Closing -> Closed, or Open -> Closed on a fault.
type State int

const (
	Open State = iota
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
