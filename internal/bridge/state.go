package bridge

// State is a connection session's lifecycle state. The Session is the sole
// owner: every state change happens through its transition method, and all
// side effects hang off a transition.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateSubscribed
	StateDisconnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether a session in this state has finished. A terminal
// session is never restarted; the supervisor creates a new one.
func (s State) Terminal() bool {
	return s == StateDisconnected || s == StateFailed
}
