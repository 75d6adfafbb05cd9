package coordinator

// State is the coordinator's position in the refresh lifecycle.
type State int32

const (
	// StateIdle means no refresh is in progress.
	StateIdle State = iota
	// StateAwaitingLock means a refresh is needed and the coordinator is
	// competing for, or waiting out, the advisory refresh lock.
	StateAwaitingLock
	// StateRefreshing means this coordinator holds the lock and is calling
	// the refresh endpoint.
	StateRefreshing
	// StateBroadcasting means the refresh succeeded and the new pair is
	// being published to sibling participants.
	StateBroadcasting
	// StateSessionExpired is terminal: the session cannot be refreshed and
	// every current and future request fails with ErrSessionExpired.
	StateSessionExpired
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingLock:
		return "awaiting_lock"
	case StateRefreshing:
		return "refreshing"
	case StateBroadcasting:
		return "broadcasting"
	case StateSessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}
