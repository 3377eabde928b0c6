package session

// Phase is where the machine is in resolving the current principal.
type Phase int

const (
	Unresolved Phase = iota
	Resolving
	Ready
	ResolutionFailed
)

func (p Phase) String() string {
	switch p {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Ready:
		return "ready"
	case ResolutionFailed:
		return "resolution_failed"
	default:
		return "unknown"
	}
}

// Settled reports whether no resolution is in flight.
func (p Phase) Settled() bool {
	return p == Ready || p == ResolutionFailed
}
