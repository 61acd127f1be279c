package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aretw0/turing/internal/logging"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/graph"
	"github.com/aretw0/turing/pkg/tape"
)

// Mode is the top-level simulator mode.
type Mode string

const (
	ModeEdit Mode = "edit"
	ModeRun  Mode = "run"
)

// TicksPerStep is the accumulator threshold: at speed 1 the machine steps
// once every 60 ticks, i.e. once per second with a 60 Hz driver.
const TicksPerStep = 60

// DefaultSpeed is the accumulator increment per tick.
const DefaultSpeed = 1.0

// Step is one entry of the step history: the state the machine was in, the
// transition it was about to take (nil if none), and the symbols and
// motion of that step.
type Step struct {
	StateID    int                `json:"state_id"`
	Transition *domain.Transition `json:"transition,omitempty"`
	Read       string             `json:"read"`
	Write      string             `json:"write,omitempty"`
	Direction  domain.Direction   `json:"direction,omitempty"`
}

// Simulator interprets a graph against a tape. It reads the graph and owns
// read/write access to the tape while in run mode. Not safe for concurrent
// use; the enclosing machine serializes calls.
type Simulator struct {
	graph *graph.Graph
	tape  *tape.Tape

	mode    Mode
	playing bool

	state      int
	transition *domain.Transition

	history []Step
	cursor  int

	halted   bool
	lastHalt domain.HaltOutcome

	speed float64
	accum float64

	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Simulator.
type Option func(*Simulator)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Simulator) {
		s.hooks = hooks
	}
}

// NewSimulator creates a simulator in edit mode.
func NewSimulator(g *graph.Graph, t *tape.Tape, opts ...Option) *Simulator {
	s := &Simulator{
		graph:  g,
		tape:   t,
		mode:   ModeEdit,
		speed:  DefaultSpeed,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the current mode.
func (s *Simulator) Mode() Mode { return s.mode }

// Running reports whether the simulator is in run mode.
func (s *Simulator) Running() bool { return s.mode == ModeRun }

// Playing reports whether the clocked driver should keep ticking.
func (s *Simulator) Playing() bool { return s.playing }

// CurrentState returns the id of the current state (0 in edit mode).
func (s *Simulator) CurrentState() int { return s.state }

// CurrentTransition returns the transition the next forward step will take.
func (s *Simulator) CurrentTransition() (domain.Transition, bool) {
	if s.transition == nil {
		return domain.Transition{}, false
	}
	return *s.transition, true
}

// Step returns the step cursor.
func (s *Simulator) Step() int { return s.cursor }

// TotalSteps returns the number of recorded history entries.
func (s *Simulator) TotalSteps() int { return len(s.history) }

// History returns a copy of the step history.
func (s *Simulator) History() []Step {
	return append([]Step(nil), s.history...)
}

// Halted reports whether the last forward step halted.
func (s *Simulator) Halted() bool { return s.halted }

// LastHalt returns the outcome of the most recent halt.
func (s *Simulator) LastHalt() domain.HaltOutcome { return s.lastHalt }

// Speed returns the accumulator increment per tick.
func (s *Simulator) Speed() float64 { return s.speed }

// SetSpeed maps a slider value in [0, 200] onto the tick increment with a
// cubic curve: 0 gives half a step per second and 200 gives about sixty.
func (s *Simulator) SetSpeed(slider float64) {
	slider = math.Max(0, math.Min(200, slider))
	r := slider / 200
	s.speed = 0.5 + r*r*r*60
}

// EnterRunMode starts a run from the designated start state. Any previous
// step history is discarded.
func (s *Simulator) EnterRunMode(ctx context.Context) error {
	start, ok := s.graph.Start()
	if !ok {
		return domain.ErrNoStartState
	}

	s.mode = ModeRun
	s.playing = false
	s.halted = false
	s.lastHalt = domain.HaltNone
	s.history = s.history[:0]
	s.cursor = 0

	s.state = start.ID
	s.match()
	s.record()

	s.logger.Debug("Entered run mode", "state", start.Name, "tape", s.tape.String())
	return nil
}

// ExitRunMode stops the driver and returns to edit mode. History is kept
// until the next EnterRunMode.
func (s *Simulator) ExitRunMode() {
	s.playing = false
	s.mode = ModeEdit
}

// Play marks the simulator as driven by the clock. The accumulator starts
// full so the first tick steps immediately.
func (s *Simulator) Play() error {
	if s.mode != ModeRun {
		return domain.ErrNotInRunMode
	}
	s.playing = true
	s.accum = TicksPerStep
	return nil
}

// Pause stops future ticks from stepping.
func (s *Simulator) Pause() {
	s.playing = false
}

// Tick advances the accumulator and steps when it crosses the threshold.
// A halt stops playback. Returns whether a step ran.
func (s *Simulator) Tick(ctx context.Context) bool {
	if !s.playing || s.mode != ModeRun {
		return false
	}
	s.accum += s.speed
	if s.accum < TicksPerStep {
		return false
	}
	s.accum -= TicksPerStep
	if ok, _ := s.forward(ctx, true); !ok {
		s.playing = false
	}
	return true
}

// StepForward applies the current transition. When no transition matches
// the machine halts: the tape is untouched, the result is false and the
// outcome is successful iff the current state is final.
func (s *Simulator) StepForward(ctx context.Context) (bool, domain.HaltOutcome) {
	if s.mode != ModeRun {
		return false, domain.HaltNone
	}
	return s.forward(ctx, true)
}

func (s *Simulator) forward(ctx context.Context, notify bool) (bool, domain.HaltOutcome) {
	s.halted = false

	if s.transition == nil {
		outcome := domain.HaltFailed
		if st, ok := s.graph.State(s.state); ok && st.IsFinal {
			outcome = domain.HaltSuccessful
		}
		s.halted = true
		s.lastHalt = outcome
		s.logger.Info("Machine halted", "step", s.cursor, "state_id", s.state, "outcome", outcome)
		if s.hooks.OnHalt != nil {
			s.hooks.OnHalt(ctx, &domain.HaltEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventHalt},
				Step:      s.cursor,
				StateID:   s.state,
				Outcome:   outcome,
			})
		}
		return false, outcome
	}

	t := *s.transition
	s.cursor++
	s.tape.Write(t.Write)
	s.tape.Move(t.Direction)
	s.state = t.To
	s.match()

	if s.cursor >= len(s.history) {
		s.record()
	}

	if notify {
		s.emitStep(ctx, domain.EventStep, false)
	}
	return true, domain.HaltNone
}

// StepBack replays the history entry before the cursor in reverse. Returns
// true when the cursor is at (or already was at) the first step.
func (s *Simulator) StepBack(ctx context.Context) bool {
	if s.mode != ModeRun {
		return true
	}
	return s.back(ctx, true)
}

func (s *Simulator) back(ctx context.Context, notify bool) bool {
	if s.cursor == 0 {
		return true
	}
	s.cursor--
	entry := s.history[s.cursor]

	switch entry.Direction {
	case domain.Left:
		s.tape.MoveRight()
	case domain.Right:
		s.tape.MoveLeft()
	}
	s.tape.Write(entry.Read)

	s.state = entry.StateID
	s.transition = nil
	if entry.Transition != nil {
		t := *entry.Transition
		s.transition = &t
	}
	s.halted = false

	if notify {
		s.emitStep(ctx, domain.EventStep, true)
	}
	return s.cursor == 0
}

// ChangeStep seeks to target by stepping forward or backward without
// per-step notifications, then emits a single seek event.
func (s *Simulator) ChangeStep(ctx context.Context, target int) error {
	if s.mode != ModeRun {
		return domain.ErrNotInRunMode
	}
	if target < 0 || target >= len(s.history) {
		return fmt.Errorf("%w: %d not in [0,%d)", domain.ErrStepOutOfRange, target, len(s.history))
	}

	for s.cursor < target {
		if ok, _ := s.forward(ctx, false); !ok {
			break
		}
	}
	for s.cursor > target {
		s.back(ctx, false)
	}

	s.emitStep(ctx, domain.EventSeek, false)
	return nil
}

// ChangeStepNormalized seeks to floor(t*(total-1)) for t in [0,1] and
// reports whether the target is the first step.
func (s *Simulator) ChangeStepNormalized(ctx context.Context, t float64) (bool, error) {
	t = math.Max(0, math.Min(1, t))
	total := len(s.history)
	target := 0
	if total > 0 {
		target = int(math.Floor(t * float64(total-1)))
	}
	if err := s.ChangeStep(ctx, target); err != nil {
		return false, err
	}
	return target == 0, nil
}

func (s *Simulator) match() {
	s.transition = nil
	if t, ok := s.graph.Match(s.state, s.tape.Read()); ok {
		s.transition = &t
	}
}

func (s *Simulator) record() {
	entry := Step{StateID: s.state, Read: s.tape.Read()}
	if s.transition != nil {
		t := *s.transition
		entry.Transition = &t
		entry.Write = t.Write
		entry.Direction = t.Direction
	}
	s.history = append(s.history, entry)
}

func (s *Simulator) emitStep(ctx context.Context, typ domain.EventType, backward bool) {
	hook := s.hooks.OnStep
	if typ == domain.EventSeek {
		hook = s.hooks.OnSeek
	}
	if hook == nil {
		return
	}
	e := &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ},
		Step:      s.cursor,
		StateID:   s.state,
		Head:      s.tape.Head(),
		Backward:  backward,
		Symbol:    s.tape.Read(),
	}
	if s.transition != nil {
		e.TransitionID = s.transition.ID
	}
	hook(ctx, e)
}
