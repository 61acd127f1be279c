package dsl

import "github.com/aretw0/turing/pkg/domain"

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	builder *Builder
	i       int
}

func (s *StateBuilder) spec() *domain.StateSpec {
	return &s.builder.snap.States[s.i]
}

// At places the state.
func (s *StateBuilder) At(x, y float64) *StateBuilder {
	s.spec().Position = domain.Vec2{X: x, Y: y}
	return s
}

// Start makes this the start state, replacing any earlier one.
func (s *StateBuilder) Start() *StateBuilder {
	s.builder.snap.StartState = s.spec().Name
	return s
}

// Final marks the state as accepting.
func (s *StateBuilder) Final() *StateBuilder {
	s.spec().Final = true
	return s
}

// On adds a transition: reading read, write write, move dir and go to the
// named state. The target may be declared later.
func (s *StateBuilder) On(read, write string, dir domain.Direction, to string) *StateBuilder {
	anchor := domain.DefaultAnchor
	if to == s.spec().Name {
		anchor = domain.DefaultLoopAnchor
	}
	s.spec().Transitions = append(s.spec().Transitions, domain.TransitionSpec{
		Read:      read,
		Write:     write,
		To:        to,
		Direction: dir,
		Anchor:    anchor,
	})
	return s
}

// Add declares the next state.
func (s *StateBuilder) Add(name string) *StateBuilder {
	return s.builder.Add(name)
}

// Tape sets the initial tape contents.
func (s *StateBuilder) Tape(t string) *StateBuilder {
	s.builder.Tape(t)
	return s
}

// Build finishes the machine. See Builder.Build.
func (s *StateBuilder) Build() (*domain.Snapshot, error) {
	return s.builder.Build()
}
