// Package machine wires the graph, the tape, the undo log and the simulator
// into one editable, runnable Turing machine.
//
// A Machine is the session that exclusively owns those components. Edits
// are recorded in the undo log unless they come from an undo/redo replay,
// and are refused while the machine is in run mode. All methods are safe for
// concurrent use; a single mutex serializes them so that steps stay atomic.
package machine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/turing/internal/logging"
	"github.com/aretw0/turing/internal/runtime"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/graph"
	"github.com/aretw0/turing/pkg/tape"
	"github.com/aretw0/turing/pkg/undo"
)

// Machine is one editable Turing machine.
type Machine struct {
	mu sync.Mutex

	graph *graph.Graph
	tape  *tape.Tape
	log   *undo.Log
	sim   *runtime.Simulator

	alphabet string
	speed    float64

	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Machine.
type Option func(*Machine)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated options merge.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Machine) {
		m.hooks = m.hooks.Merge(hooks)
	}
}

// WithSpeed sets the playback slider value (0..200).
func WithSpeed(slider float64) Option {
	return func(m *Machine) {
		m.speed = slider
	}
}

// New creates a blank machine: no states and a single blank tape cell.
func New(opts ...Option) *Machine {
	m := &Machine{
		graph:    graph.New(),
		alphabet: domain.DefaultAlphabet,
		speed:    -1,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = undo.NewLog(undo.WithLogger(m.logger))
	m.reset(domain.Blank)
	return m
}

// Open creates a machine and loads snap into it.
func Open(snap *domain.Snapshot, opts ...Option) (*Machine, error) {
	m := New(opts...)
	if err := m.Load(snap); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Machine) reset(blank string) {
	m.graph.Reset()
	m.tape = tape.NewWithBlank("", blank)
	m.sim = runtime.NewSimulator(m.graph, m.tape,
		runtime.WithLogger(m.logger),
		runtime.WithLifecycleHooks(m.hooks),
	)
	if m.speed >= 0 {
		m.sim.SetSpeed(m.speed)
	}
	m.log.Reset()
}

// Reset wipes the machine back to a blank one with an empty edit history.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset(domain.Blank)
	m.alphabet = domain.DefaultAlphabet
}

// Load rebuilds the machine from a snapshot by replaying ordinary edits and
// then clearing the undo history. On any failure the machine is left blank
// and the error wraps domain.ErrMalformedMachine.
func (m *Machine) Load(snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if snap == nil {
		m.reset(domain.Blank)
		return fmt.Errorf("%w: empty snapshot", domain.ErrMalformedMachine)
	}

	blank := snap.Blank
	if blank == "" {
		blank = domain.Blank
	}
	m.reset(blank)

	if err := m.load(snap); err != nil {
		m.reset(domain.Blank)
		m.alphabet = domain.DefaultAlphabet
		m.logger.Warn("Load failed, machine reset", "err", err)
		return fmt.Errorf("%w: %w", domain.ErrMalformedMachine, err)
	}

	m.log.Reset()
	m.logger.Debug("Machine loaded", "states", m.graph.NumStates(), "transitions", m.graph.NumTransitions())
	return nil
}

func (m *Machine) load(snap *domain.Snapshot) error {
	m.alphabet = snap.Alphabet
	if m.alphabet == "" {
		m.alphabet = domain.DefaultAlphabet
	}

	if err := m.setTape(snap.Tape, undo.FromUndo); err != nil {
		return err
	}

	for _, spec := range snap.States {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return fmt.Errorf("%w: state without a name", domain.ErrInvalidName)
		}
		st, err := m.addState(spec.Position, name, 0, undo.FromUndo)
		if err != nil {
			return err
		}
		if spec.Final {
			if err := m.setFinal(st.ID, true, undo.FromUndo); err != nil {
				return err
			}
		}
	}

	if snap.StartState != "" && snap.StartState != domain.NoInitialState {
		st, ok := m.graph.StateByName(snap.StartState)
		if !ok {
			return fmt.Errorf("%w: initial state %q", domain.ErrStateNotFound, snap.StartState)
		}
		if err := m.setStart(st.ID, true, undo.FromUndo); err != nil {
			return err
		}
	}

	// Transitions are added once every state exists.
	for _, spec := range snap.States {
		from, ok := m.graph.StateByName(strings.TrimSpace(spec.Name))
		if !ok {
			return fmt.Errorf("%w: transition source %q", domain.ErrStateNotFound, spec.Name)
		}
		for _, ts := range spec.Transitions {
			to, ok := m.graph.StateByName(ts.To)
			if !ok {
				return fmt.Errorf("%w: transition target %q", domain.ErrStateNotFound, ts.To)
			}
			read, err := symbol(ts.Read)
			if err != nil {
				return err
			}
			write, err := symbol(ts.Write)
			if err != nil {
				return err
			}
			dir, err := domain.ParseDirection(string(ts.Direction))
			if err != nil {
				return err
			}
			anchor := ts.Anchor
			if _, err := m.addTransition(from.ID, to.ID, &anchor, dir, read, write, 0, undo.FromUndo); err != nil {
				return err
			}
		}
	}
	return nil
}

// Save captures the machine as a snapshot.
func (m *Machine) Save() *domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &domain.Snapshot{
		Alphabet: m.alphabet,
		Blank:    m.tape.Blank(),
		Tape:     m.tape.String(),
		States:   make([]domain.StateSpec, 0, m.graph.NumStates()),
	}
	if st, ok := m.graph.Start(); ok {
		snap.StartState = st.Name
	}

	for _, st := range m.graph.States() {
		spec := domain.StateSpec{
			Name:     st.Name,
			Position: st.Position,
			Final:    st.IsFinal,
		}
		for _, t := range m.graph.Outgoing(st.ID) {
			to, _ := m.graph.State(t.To)
			spec.Transitions = append(spec.Transitions, domain.TransitionSpec{
				Read:      t.Read,
				Write:     t.Write,
				To:        to.Name,
				Direction: t.Direction,
				Anchor:    t.Anchor,
			})
		}
		snap.States = append(snap.States, spec)
	}
	return snap
}

// States returns copies of all states in insertion order.
func (m *Machine) States() []domain.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph.States()
}

// Transitions returns copies of all transitions in insertion order.
func (m *Machine) Transitions() []domain.Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph.Transitions()
}

// State returns a copy of the state with the given id.
func (m *Machine) State(id int) (domain.State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph.State(id)
}

// Transition returns a copy of the transition with the given id.
func (m *Machine) Transition(id int) (domain.Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph.Transition(id)
}

// StateByName looks a state up by display name.
func (m *Machine) StateByName(name string) (domain.State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph.StateByName(name)
}

// Entity resolves an id to a state or a transition.
func (m *Machine) Entity(id int) graph.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph.ByID(id)
}

// Conflicts reports nondeterministic (state, symbol) pairs.
func (m *Machine) Conflicts() []graph.Conflict {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph.Conflicts()
}

// Tape returns the tape contents from the first non-blank cell.
func (m *Machine) Tape() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tape.String()
}

func (m *Machine) emitEdit(kind undo.Kind, fromUndo, redo bool) {
	hook := m.hooks.OnEdit
	if fromUndo {
		hook = m.hooks.OnUndo
	}
	if hook == nil {
		return
	}
	e := &domain.EditEvent{Kind: string(kind), FromUndo: fromUndo, Redo: redo}
	e.Type = domain.EventEdit
	if fromUndo {
		e.Type = domain.EventUndo
	}
	e.Timestamp = now()
	hook(context.Background(), e)
}
