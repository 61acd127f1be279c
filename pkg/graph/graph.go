// Package graph holds the states and transitions of a machine in an arena
// keyed by stable integer ids.
//
// States and transitions share one id space allocated from a monotonic
// counter, so any id resolves to at most one entity. All cross references go
// through ids: a state lists the ids of its outgoing and incoming
// transitions, a transition stores the ids of its endpoints.
package graph

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/aretw0/turing/pkg/domain"
)

// Entity is the result of a polymorphic id lookup.
type Entity struct {
	Kind       domain.EntityKind
	State      domain.State
	Transition domain.Transition
}

// Conflict reports more than one outgoing transition of a state matching
// the same read symbol.
type Conflict struct {
	StateID       int
	Symbol        string
	TransitionIDs []int
}

// Graph is the entity arena. Not safe for concurrent use.
type Graph struct {
	states      map[int]*domain.State
	transitions map[int]*domain.Transition

	stateOrder []int
	transOrder []int

	start  int
	nextID int
}

// New creates an empty graph.
func New() *Graph {
	g := &Graph{}
	g.Reset()
	return g
}

// Reset clears every entity, the start designation and the id counter.
func (g *Graph) Reset() {
	g.states = make(map[int]*domain.State)
	g.transitions = make(map[int]*domain.Transition)
	g.stateOrder = nil
	g.transOrder = nil
	g.start = 0
	g.nextID = 0
}

func (g *Graph) allocate(id int) (int, error) {
	if id <= 0 {
		g.nextID++
		return g.nextID, nil
	}
	if _, ok := g.states[id]; ok {
		return 0, fmt.Errorf("%w: %d", domain.ErrDuplicateID, id)
	}
	if _, ok := g.transitions[id]; ok {
		return 0, fmt.Errorf("%w: %d", domain.ErrDuplicateID, id)
	}
	if id > g.nextID {
		g.nextID = id
	}
	return id, nil
}

// NumStates returns the number of live states.
func (g *Graph) NumStates() int { return len(g.stateOrder) }

// NumTransitions returns the number of live transitions.
func (g *Graph) NumTransitions() int { return len(g.transOrder) }

// AddState creates a state. An empty name is generated as "state<N>".
// A positive id is used verbatim, which is how undo/redo recreates a
// deleted state under its original identity.
//
// Ids grow with creation time, so every id list is kept sorted: a
// recreated entity goes back to the position it was deleted from.
func (g *Graph) AddState(pos domain.Vec2, name string, id int) (domain.State, error) {
	if name == "" {
		name = g.generateName()
	} else if _, taken := g.StateByName(name); taken {
		return domain.State{}, fmt.Errorf("%w: %q", domain.ErrNameTaken, name)
	}

	uid, err := g.allocate(id)
	if err != nil {
		return domain.State{}, err
	}

	s := &domain.State{ID: uid, Name: name, Position: pos}
	g.states[uid] = s
	g.stateOrder = insertID(g.stateOrder, uid)
	return s.Clone(), nil
}

func (g *Graph) generateName() string {
	n := len(g.stateOrder)
	name := "state" + strconv.Itoa(n)
	for i := 1; ; i++ {
		if _, taken := g.StateByName(name); !taken {
			return name
		}
		name = "state" + strconv.Itoa(n+i)
	}
}

// DeleteState removes a state together with every transition touching it
// and returns copies of the removed transitions, outgoing first.
func (g *Graph) DeleteState(id int) ([]domain.Transition, error) {
	s, ok := g.states[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrStateNotFound, id)
	}

	touching := make([]int, 0, len(s.Out)+len(s.In))
	touching = append(touching, s.Out...)
	touching = append(touching, s.In...)

	removed := make([]domain.Transition, 0, len(touching))
	for _, tid := range touching {
		t, err := g.DeleteTransition(tid)
		if err != nil {
			return removed, err
		}
		removed = append(removed, t)
	}

	if g.start == id {
		g.start = 0
	}
	delete(g.states, id)
	g.stateOrder = removeID(g.stateOrder, id)
	return removed, nil
}

// AddTransition creates a transition between two existing states.
// A nil anchor takes the default offset for its shape.
func (g *Graph) AddTransition(from, to int, anchor *domain.Vec2, dir domain.Direction, read, write string, id int) (domain.Transition, error) {
	fs, ok := g.states[from]
	if !ok {
		return domain.Transition{}, fmt.Errorf("%w: from %d", domain.ErrStateNotFound, from)
	}
	ts, ok := g.states[to]
	if !ok {
		return domain.Transition{}, fmt.Errorf("%w: to %d", domain.ErrStateNotFound, to)
	}

	a := domain.DefaultAnchor
	if from == to {
		a = domain.DefaultLoopAnchor
	}
	if anchor != nil {
		a = *anchor
	}

	uid, err := g.allocate(id)
	if err != nil {
		return domain.Transition{}, err
	}

	t := &domain.Transition{
		ID:        uid,
		From:      from,
		To:        to,
		Direction: dir,
		Read:      read,
		Write:     write,
		Anchor:    a,
	}
	g.transitions[uid] = t
	g.transOrder = insertID(g.transOrder, uid)

	fs.Out = insertID(fs.Out, uid)
	if from != to {
		ts.In = insertID(ts.In, uid)
	}
	return *t, nil
}

// DeleteTransition unregisters a transition from both endpoints exactly once
// and removes it. Deleting the same id twice reports ErrTransitionNotFound.
func (g *Graph) DeleteTransition(id int) (domain.Transition, error) {
	t, ok := g.transitions[id]
	if !ok {
		return domain.Transition{}, fmt.Errorf("%w: %d", domain.ErrTransitionNotFound, id)
	}

	if fs, ok := g.states[t.From]; ok {
		fs.Out = removeID(fs.Out, id)
	}
	if t.To != t.From {
		if ts, ok := g.states[t.To]; ok {
			ts.In = removeID(ts.In, id)
		}
	}

	delete(g.transitions, id)
	g.transOrder = removeID(g.transOrder, id)
	return *t, nil
}

// State returns a copy of the state with the given id.
func (g *Graph) State(id int) (domain.State, bool) {
	s, ok := g.states[id]
	if !ok {
		return domain.State{}, false
	}
	return s.Clone(), true
}

// Transition returns a copy of the transition with the given id.
func (g *Graph) Transition(id int) (domain.Transition, bool) {
	t, ok := g.transitions[id]
	if !ok {
		return domain.Transition{}, false
	}
	return *t, true
}

// StateByName performs a lookup by display name.
func (g *Graph) StateByName(name string) (domain.State, bool) {
	for _, id := range g.stateOrder {
		if s := g.states[id]; s.Name == name {
			return s.Clone(), true
		}
	}
	return domain.State{}, false
}

// ByID resolves an id to either a state or a transition.
func (g *Graph) ByID(id int) Entity {
	if s, ok := g.states[id]; ok {
		return Entity{Kind: domain.KindState, State: s.Clone()}
	}
	if t, ok := g.transitions[id]; ok {
		return Entity{Kind: domain.KindTransition, Transition: *t}
	}
	return Entity{Kind: domain.KindNone}
}

// States returns copies of all states in creation order.
func (g *Graph) States() []domain.State {
	out := make([]domain.State, 0, len(g.stateOrder))
	for _, id := range g.stateOrder {
		out = append(out, g.states[id].Clone())
	}
	return out
}

// Transitions returns copies of all transitions in creation order.
func (g *Graph) Transitions() []domain.Transition {
	out := make([]domain.Transition, 0, len(g.transOrder))
	for _, id := range g.transOrder {
		out = append(out, *g.transitions[id])
	}
	return out
}

// Outgoing returns the outgoing transitions of a state in registration order.
func (g *Graph) Outgoing(stateID int) []domain.Transition {
	s, ok := g.states[stateID]
	if !ok {
		return nil
	}
	out := make([]domain.Transition, 0, len(s.Out))
	for _, tid := range s.Out {
		out = append(out, *g.transitions[tid])
	}
	return out
}

// Incoming returns the incoming non-loop transitions of a state.
func (g *Graph) Incoming(stateID int) []domain.Transition {
	s, ok := g.states[stateID]
	if !ok {
		return nil
	}
	out := make([]domain.Transition, 0, len(s.In))
	for _, tid := range s.In {
		out = append(out, *g.transitions[tid])
	}
	return out
}

// Start returns the designated start state.
func (g *Graph) Start() (domain.State, bool) {
	if g.start == 0 {
		return domain.State{}, false
	}
	return g.State(g.start)
}

// SetStart designates id as the start state and returns the previous
// holder's id (0 when there was none).
func (g *Graph) SetStart(id int) (int, error) {
	s, ok := g.states[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", domain.ErrStateNotFound, id)
	}
	prev := g.start
	if prevState, ok := g.states[prev]; ok {
		prevState.IsStart = false
	}
	s.IsStart = true
	g.start = id
	return prev, nil
}

// ClearStart removes the start designation and returns the previous holder.
func (g *Graph) ClearStart() int {
	prev := g.start
	if s, ok := g.states[prev]; ok {
		s.IsStart = false
	}
	g.start = 0
	return prev
}

// SetFinal toggles the accepting flag of a state.
func (g *Graph) SetFinal(id int, final bool) error {
	s, ok := g.states[id]
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrStateNotFound, id)
	}
	s.IsFinal = final
	return nil
}

// Rename changes a state's display name, keeping names unique.
func (g *Graph) Rename(id int, name string) error {
	s, ok := g.states[id]
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrStateNotFound, id)
	}
	if s.Name == name {
		return nil
	}
	if _, taken := g.StateByName(name); taken {
		return fmt.Errorf("%w: %q", domain.ErrNameTaken, name)
	}
	s.Name = name
	return nil
}

// SetPosition moves a state.
func (g *Graph) SetPosition(id int, pos domain.Vec2) error {
	s, ok := g.states[id]
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrStateNotFound, id)
	}
	s.Position = pos
	return nil
}

func (g *Graph) transition(id int) (*domain.Transition, error) {
	t, ok := g.transitions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrTransitionNotFound, id)
	}
	return t, nil
}

// SetAnchor moves a transition's layout anchor.
func (g *Graph) SetAnchor(id int, anchor domain.Vec2) error {
	t, err := g.transition(id)
	if err != nil {
		return err
	}
	t.Anchor = anchor
	return nil
}

// SetDirection changes a transition's head motion.
func (g *Graph) SetDirection(id int, dir domain.Direction) error {
	t, err := g.transition(id)
	if err != nil {
		return err
	}
	t.Direction = dir
	return nil
}

// SetRead changes a transition's read symbol.
func (g *Graph) SetRead(id int, sym string) error {
	t, err := g.transition(id)
	if err != nil {
		return err
	}
	t.Read = sym
	return nil
}

// SetWrite changes a transition's write symbol.
func (g *Graph) SetWrite(id int, sym string) error {
	t, err := g.transition(id)
	if err != nil {
		return err
	}
	t.Write = sym
	return nil
}

// Match returns the outgoing transition of stateID reading sym.
// When several transitions read the same symbol the lowest id wins.
func (g *Graph) Match(stateID int, sym string) (domain.Transition, bool) {
	s, ok := g.states[stateID]
	if !ok {
		return domain.Transition{}, false
	}
	best := 0
	for _, tid := range s.Out {
		if g.transitions[tid].Read != sym {
			continue
		}
		if best == 0 || tid < best {
			best = tid
		}
	}
	if best == 0 {
		return domain.Transition{}, false
	}
	return *g.transitions[best], true
}

// Conflicts lists every (state, symbol) pair with more than one candidate
// transition, ordered by state insertion and then symbol.
func (g *Graph) Conflicts() []Conflict {
	var out []Conflict
	for _, sid := range g.stateOrder {
		bySym := make(map[string][]int)
		for _, tid := range g.states[sid].Out {
			sym := g.transitions[tid].Read
			bySym[sym] = append(bySym[sym], tid)
		}
		syms := make([]string, 0, len(bySym))
		for sym, ids := range bySym {
			if len(ids) > 1 {
				syms = append(syms, sym)
			}
		}
		sort.Strings(syms)
		for _, sym := range syms {
			ids := bySym[sym]
			sort.Ints(ids)
			out = append(out, Conflict{StateID: sid, Symbol: sym, TransitionIDs: ids})
		}
	}
	return out
}

func removeID(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// insertID adds id to a sorted list at its ordered position.
func insertID(ids []int, id int) []int {
	i := sort.SearchInts(ids, id)
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}
