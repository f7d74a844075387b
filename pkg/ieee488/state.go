package ieee488

import "fmt"

// StateKind is the role the bus connection currently holds.
type StateKind uint8

const (
	StateUninitialized StateKind = iota
	StateReady
	StateTalking
	StateListening
)

var stateKindNames = map[StateKind]string{
	StateUninitialized: "Uninitialized",
	StateReady:         "Ready",
	StateTalking:       "Talking",
	StateListening:     "Listening",
}

func (k StateKind) String() string {
	if name, ok := stateKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("StateKind(%d)", k)
}

// State is the bus state tracked by a Bus. Channel is only meaningful while
// Talking or Listening and holds the addressed endpoint.
type State struct {
	Kind    StateKind
	Channel DeviceChannel
}

// Addressed reports whether a device currently holds a talk or listen role.
func (s State) Addressed() bool {
	return s.Kind == StateTalking || s.Kind == StateListening
}

func (s State) String() string {
	if s.Addressed() {
		return fmt.Sprintf("%s(%s)", s.Kind, s.Channel)
	}
	return s.Kind.String()
}
