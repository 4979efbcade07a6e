package accessory

// State is the lifecycle state of an Accessory.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StatePopulated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StatePopulated:
		return "POPULATED"
	default:
		return "UNKNOWN"
	}
}

// IsConnected returns true for CONNECTED and POPULATED.
func (s State) IsConnected() bool {
	return s == StateConnected || s == StatePopulated
}
