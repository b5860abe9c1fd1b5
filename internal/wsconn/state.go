package wsconn

import "time"

// State represents the lifecycle state of a Manager.
type State int

const (
	// StateConnecting indicates a connection attempt is in flight.
	StateConnecting State = iota
	// StateOpen indicates the connection completed its handshake and is usable.
	StateOpen
	// StateClosedPendingRetry indicates the connection was lost and a retry is scheduled.
	StateClosedPendingRetry
	// StateClosed indicates the manager was closed and will not reconnect.
	StateClosed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosedPendingRetry:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Info holds connection health information for status reporting.
type Info struct {
	State          State     `json:"state"`
	StateString    string    `json:"stateString"`
	URL            string    `json:"url"`
	EverConnected  bool      `json:"everConnected"`
	Opens          int       `json:"opens"`
	ReconnectCount int       `json:"reconnectCount,omitempty"`
	LastOpen       time.Time `json:"lastOpen,omitempty"`
	LastError      string    `json:"lastError,omitempty"`
}
