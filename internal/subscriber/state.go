package subscriber

// State is a Manager lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateConnectionPending
	StateConnected
	StateSubscriptionPending
	StateSubscribed
	StateTerminated
)

var stateNames = map[State]string{
	StateUninitialized:       "uninitialized",
	StateConnectionPending:   "connection_pending",
	StateConnected:           "connected",
	StateSubscriptionPending: "subscription_pending",
	StateSubscribed:          "subscribed",
	StateTerminated:          "terminated",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// accepting reports whether inbound messages are processed in this state.
// SubscriptionPending is included because a broker may deliver the first
// message before the confirmation callback has run.
func (s State) accepting() bool {
	return s == StateSubscriptionPending || s == StateSubscribed
}
