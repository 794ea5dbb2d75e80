package dispatch

// State is the dispatcher's view of the gateway connection.
//
//	Disconnected -> Connecting   Start, after the first configuration load
//	Connecting   -> Ready        Ready event
//	Ready        -> Connected    any other event
//
// Connected is kept until the process exits; a later Ready (a new gateway
// session) moves back to Ready.
type State int32

const (
	Disconnected State = iota
	Connecting
	Ready
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}
