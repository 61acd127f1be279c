package dsl

import (
	"fmt"

	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/machine"
)

// Builder manages the machine construction.
type Builder struct {
	snap  domain.Snapshot
	index map[string]int
}

// New creates a new machine builder.
func New() *Builder {
	return &Builder{
		index: make(map[string]int),
	}
}

// Tape sets the initial tape contents.
func (b *Builder) Tape(s string) *Builder {
	b.snap.Tape = s
	return b
}

// Alphabet sets the alphabet recorded with the machine.
func (b *Builder) Alphabet(s string) *Builder {
	b.snap.Alphabet = s
	return b
}

// Add declares a state. States are laid out on a row 150 units apart unless
// At says otherwise. If the state already exists, its builder is returned.
func (b *Builder) Add(name string) *StateBuilder {
	if i, ok := b.index[name]; ok {
		return &StateBuilder{builder: b, i: i}
	}
	i := len(b.snap.States)
	b.snap.States = append(b.snap.States, domain.StateSpec{
		Name:     name,
		Position: domain.Vec2{X: float64(i) * 150},
	})
	b.index[name] = i
	return &StateBuilder{builder: b, i: i}
}

// Snapshot returns a copy of the description without checking it.
func (b *Builder) Snapshot() *domain.Snapshot {
	return b.snap.Clone()
}

// Build checks that the description loads and returns it.
func (b *Builder) Build() (*domain.Snapshot, error) {
	snap := b.snap.Clone()
	if _, err := machine.Open(snap); err != nil {
		return nil, fmt.Errorf("failed to build machine: %w", err)
	}
	return snap, nil
}
