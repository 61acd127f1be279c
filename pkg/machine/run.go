package machine

import (
	"context"
	"time"

	"github.com/aretw0/turing/internal/runtime"
	"github.com/aretw0/turing/pkg/domain"
)

// DefaultMaxSteps bounds Run when the caller passes a non-positive limit.
const DefaultMaxSteps = 100000

// DefaultWindow is the number of tape cells View returns when none is asked.
const DefaultWindow = 21

// EnterRunMode starts a run from the start state.
func (m *Machine) EnterRunMode(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sim.EnterRunMode(ctx)
}

// ExitRunMode stops playback and returns to edit mode.
func (m *Machine) ExitRunMode() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sim.ExitRunMode()
}

// Running reports whether the machine is in run mode.
func (m *Machine) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sim.Running()
}

// StepForward applies one transition. It returns false with the halt outcome
// when no transition matches.
func (m *Machine) StepForward(ctx context.Context) (bool, domain.HaltOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sim.Running() {
		return false, domain.HaltNone, domain.ErrNotInRunMode
	}
	ok, outcome := m.sim.StepForward(ctx)
	return ok, outcome, nil
}

// StepBack undoes one simulation step and reports whether the run is back at
// its first step.
func (m *Machine) StepBack(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sim.Running() {
		return false, domain.ErrNotInRunMode
	}
	return m.sim.StepBack(ctx), nil
}

// ChangeStep seeks to an absolute step index.
func (m *Machine) ChangeStep(ctx context.Context, step int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sim.ChangeStep(ctx, step)
}

// ChangeStepNormalized seeks to a fraction of the recorded history.
func (m *Machine) ChangeStepNormalized(ctx context.Context, t float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sim.ChangeStepNormalized(ctx, t)
}

// SetSpeed maps a slider value in [0, 200] onto the playback rate.
func (m *Machine) SetSpeed(slider float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speed = slider
	m.sim.SetSpeed(slider)
}

// Tick advances the playback clock by one tick.
func (m *Machine) Tick(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sim.Tick(ctx)
}

// Playing reports whether the clock is driving the machine.
func (m *Machine) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sim.Playing()
}

// Play starts a clock goroutine that ticks the machine until it halts, is
// paused, leaves run mode or ctx is cancelled. The returned channel closes
// when the clock stops.
func (m *Machine) Play(ctx context.Context, interval time.Duration) (<-chan struct{}, error) {
	m.mu.Lock()
	err := m.sim.Play()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	p := runtime.NewPlayer(m)
	if interval > 0 {
		p.Interval = interval
	}
	return p.Start(ctx), nil
}

// Pause stops the clock at the next tick boundary.
func (m *Machine) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sim.Pause()
}

// History returns a copy of the step history.
func (m *Machine) History() []runtime.Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sim.History()
}

// Run enters run mode when needed and steps until the machine halts or
// maxSteps steps have been taken, in which case it returns
// domain.ErrStepLimit. A non-positive limit means DefaultMaxSteps.
func (m *Machine) Run(ctx context.Context, maxSteps int) (domain.HaltOutcome, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if !m.sim.Running() {
		if err := m.sim.EnterRunMode(ctx); err != nil {
			return domain.HaltNone, 0, err
		}
	}

	steps := 0
	for {
		if err := ctx.Err(); err != nil {
			return domain.HaltNone, steps, err
		}
		if steps >= maxSteps {
			return domain.HaltNone, steps, domain.ErrStepLimit
		}
		ok, outcome := m.sim.StepForward(ctx)
		if !ok {
			return outcome, steps, nil
		}
		steps++
	}
}

// View is a read-only picture of the machine for presentation layers.
type View struct {
	Mode              runtime.Mode       `json:"mode"`
	Playing           bool               `json:"playing"`
	Step              int                `json:"step"`
	TotalSteps        int                `json:"total_steps"`
	Halted            bool               `json:"halted"`
	Outcome           domain.HaltOutcome `json:"outcome,omitempty"`
	CurrentState      string             `json:"current_state,omitempty"`
	CurrentTransition int                `json:"current_transition,omitempty"`
	Tape              string             `json:"tape"`
	Head              int                `json:"head"`
	WindowStart       int                `json:"window_start"`
	Window            []string           `json:"window"`
	States            int                `json:"states"`
	Transitions       int                `json:"transitions"`
	CanUndo           bool               `json:"can_undo"`
	CanRedo           bool               `json:"can_redo"`
}

// View captures count tape cells starting at from. A non-positive count
// yields DefaultWindow cells centred on the head.
func (m *Machine) View(from, count int) View {
	m.mu.Lock()
	defer m.mu.Unlock()

	if count <= 0 {
		count = DefaultWindow
		from = m.tape.Head() - count/2
	}

	v := View{
		Mode:        m.sim.Mode(),
		Playing:     m.sim.Playing(),
		Step:        m.sim.Step(),
		TotalSteps:  m.sim.TotalSteps(),
		Halted:      m.sim.Halted(),
		Tape:        m.tape.String(),
		Head:        m.tape.Head(),
		WindowStart: from,
		Window:      m.tape.Window(from, count),
		States:      m.graph.NumStates(),
		Transitions: m.graph.NumTransitions(),
		CanUndo:     m.log.CanUndo(),
		CanRedo:     m.log.CanRedo(),
	}
	if v.Halted {
		v.Outcome = m.sim.LastHalt()
	}
	if m.sim.Running() {
		v.CurrentState = m.stateName(m.sim.CurrentState())
		if t, ok := m.sim.CurrentTransition(); ok {
			v.CurrentTransition = t.ID
		}
	}
	return v
}
