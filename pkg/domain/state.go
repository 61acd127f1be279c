package domain

// Vec2 is a free-form 2D coordinate used for layout.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns the component-wise sum of v and o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// EntityKind tags what an id resolves to.
type EntityKind string

const (
	KindNone       EntityKind = ""
	KindState      EntityKind = "state"
	KindTransition EntityKind = "transition"
)

// State is a node of the machine graph.
// Out and In hold transition ids; the graph owns the transitions themselves.
type State struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Position Vec2   `json:"position"`
	IsStart  bool   `json:"is_start"`
	IsFinal  bool   `json:"is_final"`

	Out []int `json:"out,omitempty"`
	In  []int `json:"in,omitempty"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	c := s
	c.Out = append([]int(nil), s.Out...)
	c.In = append([]int(nil), s.In...)
	return c
}
