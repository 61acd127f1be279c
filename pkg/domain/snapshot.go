package domain

// Snapshot is the persistence model of a machine: the graph by name plus
// the tape contents. Loading replays it through ordinary edit operations.
type Snapshot struct {
	Alphabet   string      `json:"alphabet,omitempty" yaml:"alphabet,omitempty"`
	Blank      string      `json:"blank,omitempty" yaml:"blank,omitempty"`
	Tape       string      `json:"tape" yaml:"tape"`
	StartState string      `json:"start_state,omitempty" yaml:"start_state,omitempty"`
	States     []StateSpec `json:"states" yaml:"states"`
}

// StateSpec describes one state and its outgoing transitions.
type StateSpec struct {
	Name        string           `json:"name" yaml:"name"`
	Position    Vec2             `json:"position" yaml:"position"`
	Final       bool             `json:"final,omitempty" yaml:"final,omitempty"`
	Transitions []TransitionSpec `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

// TransitionSpec describes one outgoing transition by target name.
type TransitionSpec struct {
	Read      string    `json:"read" yaml:"read"`
	Write     string    `json:"write" yaml:"write"`
	To        string    `json:"to" yaml:"to"`
	Direction Direction `json:"direction" yaml:"direction"`
	Anchor    Vec2      `json:"anchor" yaml:"anchor"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.States = make([]StateSpec, len(s.States))
	for i, st := range s.States {
		st.Transitions = append([]TransitionSpec(nil), st.Transitions...)
		c.States[i] = st
	}
	return &c
}

// State returns the spec with the given name.
func (s *Snapshot) State(name string) (StateSpec, bool) {
	for _, st := range s.States {
		if st.Name == name {
			return st, true
		}
	}
	return StateSpec{}, false
}
