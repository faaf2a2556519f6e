package scorecard

// ConnectionState is the per-stream lifecycle position.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const tsNone int64 = -1

type cursor struct {
	state        ConnectionState
	attemptStart int64
	ipConfigured int64
	polled       bool
	session      string
}

func idleCursor() cursor {
	return cursor{state: StateDisconnected, attemptStart: tsNone, ipConfigured: tsNone}
}

// elapsedSince returns now minus the attempt start, or false when there is no
// attempt start or the clock went backwards.
func (c cursor) elapsedSince(now int64) (int64, bool) {
	if c.attemptStart == tsNone {
		return 0, false
	}
	d := now - c.attemptStart
	if d < 0 {
		return 0, false
	}
	return d, true
}

// CursorState is a read-only view of the lifecycle cursor.
type CursorState struct {
	State          string `json:"state"`
	Session        string `json:"session,omitempty"`
	AttemptStartMs int64  `json:"attempt_start_ms"`
	IPConfiguredMs int64  `json:"ip_configured_ms"`
	Polled         bool   `json:"polled"`
}

func (c cursor) view() CursorState {
	return CursorState{
		State:          c.state.String(),
		Session:        c.session,
		AttemptStartMs: c.attemptStart,
		IPConfiguredMs: c.ipConfigured,
		Polled:         c.polled,
	}
}
