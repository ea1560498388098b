package session

// State is the coarse presence of a vehicle.
type State int

const (
	StateUnknown State = iota
	StateAsleep
	StateWaking
	StateOnline
)

func (s State) String() string {
	switch s {
	case StateAsleep:
		return "asleep"
	case StateWaking:
		return "waking"
	case StateOnline:
		return "online"
	}
	return "unknown"
}

// parseState maps the state field of a vehicle listing. The server reports "offline" for
// vehicles in deep sleep.
func parseState(state string) State {
	switch state {
	case "online":
		return StateOnline
	case "asleep", "offline":
		return StateAsleep
	}
	return StateUnknown
}
