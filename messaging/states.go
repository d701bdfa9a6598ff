package messaging

// ConnectionState is the externally visible progress indicator of the
// lifecycle state machine, always paired with a human-readable status
// message. The subscriber side shares this enumeration.
type ConnectionState int32

const (
	// StateInitializing is the initial state, before the first connection
	// attempt resolves.
	StateInitializing ConnectionState = iota
	// StateOpen means the transport-level connection is established.
	StateOpen
	// StateClosed means the connection was closed, expectedly or not.
	StateClosed
	// StateError means the last connection attempt failed.
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
