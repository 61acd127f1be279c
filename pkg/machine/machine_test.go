package machine_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/machine"
	"github.com/aretw0/turing/pkg/undo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds A(start) -a/b R-> B -b/a L-> C(final), a blank loop on C
// and B -a/a R-> A. Ids: A=1 B=2 C=3, transitions 4..7. Tape "ab".
func fixture(t *testing.T) *machine.Machine {
	t.Helper()
	m := machine.New()

	a, err := m.AddState(domain.Vec2{X: 0, Y: 0}, "A")
	require.NoError(t, err)
	b, err := m.AddState(domain.Vec2{X: 100, Y: 0}, "B")
	require.NoError(t, err)
	c, err := m.AddState(domain.Vec2{X: 200, Y: 0}, "C")
	require.NoError(t, err)

	require.NoError(t, m.SetStart(a.ID, true))
	require.NoError(t, m.SetFinal(c.ID, true))

	_, err = m.AddTransition(a.ID, b.ID, nil, domain.Right, "a", "b")
	require.NoError(t, err)
	_, err = m.AddTransition(b.ID, c.ID, nil, domain.Left, "b", "a")
	require.NoError(t, err)
	_, err = m.AddTransition(c.ID, c.ID, nil, domain.Right, "_", "_")
	require.NoError(t, err)
	_, err = m.AddTransition(b.ID, a.ID, nil, domain.Right, "a", "a")
	require.NoError(t, err)

	require.NoError(t, m.SetTape("ab"))
	return m
}

type picture struct {
	States      []domain.State
	Transitions []domain.Transition
	Saved       *domain.Snapshot
	Cells       []string
	Head        int
}

// capture records entities in their stored order, the saved snapshot and
// the raw leading tape cells, so order and leading blanks both count.
func capture(m *machine.Machine) picture {
	view := m.View(0, 5)
	return picture{
		States:      m.States(),
		Transitions: m.Transitions(),
		Saved:       m.Save(),
		Cells:       view.Window,
		Head:        view.Head,
	}
}

func TestMachine_UndoRedoInverse(t *testing.T) {
	tests := []struct {
		name string
		kind undo.Kind
		edit func(m *machine.Machine) error
	}{
		{"add state", undo.KindAddState, func(m *machine.Machine) error {
			_, err := m.AddState(domain.Vec2{X: 50, Y: 50}, "")
			return err
		}},
		{"delete state with transitions", undo.KindDeleteState, func(m *machine.Machine) error {
			return m.DeleteState(2)
		}},
		{"delete start state", undo.KindDeleteState, func(m *machine.Machine) error {
			return m.DeleteState(1)
		}},
		{"add transition", undo.KindAddTransition, func(m *machine.Machine) error {
			_, err := m.AddTransition(3, 1, nil, domain.Left, "a", "b")
			return err
		}},
		{"delete transition", undo.KindDeleteTransition, func(m *machine.Machine) error {
			return m.DeleteTransition(5)
		}},
		{"delete loop", undo.KindDeleteTransition, func(m *machine.Machine) error {
			return m.DeleteTransition(6)
		}},
		{"rename", undo.KindStateName, func(m *machine.Machine) error {
			return m.Rename(2, "Bee")
		}},
		{"set final", undo.KindStateFinal, func(m *machine.Machine) error {
			return m.SetFinal(2, true)
		}},
		{"hand over start", undo.KindStateStart, func(m *machine.Machine) error {
			return m.SetStart(2, true)
		}},
		{"clear start", undo.KindStateStart, func(m *machine.Machine) error {
			return m.SetStart(1, false)
		}},
		{"move state", undo.KindMoveObject, func(m *machine.Machine) error {
			return m.Move(1, domain.Vec2{X: 5, Y: 5})
		}},
		{"move anchor", undo.KindMoveObject, func(m *machine.Machine) error {
			return m.Move(4, domain.Vec2{X: 1, Y: 2})
		}},
		{"tape", undo.KindTape, func(m *machine.Machine) error {
			return m.SetTape("bba")
		}},
		{"tape with leading blank", undo.KindTape, func(m *machine.Machine) error {
			return m.SetTape("_ab")
		}},
		{"direction", undo.KindTransDirection, func(m *machine.Machine) error {
			return m.SetDirection(4, domain.Left)
		}},
		{"read", undo.KindTransRead, func(m *machine.Machine) error {
			return m.SetRead(4, "b")
		}},
		{"write", undo.KindTransWrite, func(m *machine.Machine) error {
			return m.SetWrite(4, "a")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fixture(t)
			before := capture(m)

			require.NoError(t, tt.edit(m))
			after := capture(m)
			assert.NotEqual(t, before, after)

			kind, err := m.Undo()
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, before, capture(m))

			kind, err = m.Redo()
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, after, capture(m))
		})
	}
}

func TestMachine_UndoTapeKeepsLeadingBlanks(t *testing.T) {
	m := machine.New()
	require.NoError(t, m.SetTape("a"))
	require.NoError(t, m.MoveHead(domain.Right))
	require.NoError(t, m.SetTape("_a"))
	assert.Equal(t, []string{"_", "a", "_"}, m.View(0, 3).Window)
	assert.Equal(t, 0, m.View(0, 3).Head)

	require.NoError(t, m.SetTape("b"))
	kind, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, undo.KindTape, kind)
	assert.Equal(t, []string{"_", "a", "_"}, m.View(0, 3).Window)

	kind, err = m.Undo()
	require.NoError(t, err)
	assert.Equal(t, undo.KindTape, kind, "the leading blank edit is recorded")
	assert.Equal(t, []string{"a", "_", "_"}, m.View(0, 3).Window)
}

func TestMachine_UndoDeleteStateKeepsOrder(t *testing.T) {
	m := fixture(t)
	before := m.Save()

	require.NoError(t, m.DeleteState(2))
	_, err := m.Undo()
	require.NoError(t, err)

	after := m.Save()
	assert.Equal(t, before, after)
	names := make([]string, 0, len(after.States))
	for _, st := range after.States {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{"A", "B", "C"}, names)
}

func TestMachine_BatchRollsBack(t *testing.T) {
	m := fixture(t)
	before := capture(m)
	depth := m.View(0, 0).CanRedo

	err := m.Batch(func() error {
		if err := m.SetRead(4, "z"); err != nil {
			return err
		}
		if err := m.Rename(2, "Bee"); err != nil {
			return err
		}
		return m.SetWrite(4, " ")
	})
	require.ErrorIs(t, err, domain.ErrInvalidSymbol)
	assert.Equal(t, before, capture(m), "no edit of a failed batch survives")
	assert.Equal(t, depth, m.View(0, 0).CanRedo, "rolled back edits are not redoable")

	kind, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, undo.KindTape, kind, "the fixture's last edit is next to undo")

	require.NoError(t, m.Batch(func() error { return m.Rename(2, "Bee") }))
	st, ok := m.State(2)
	require.True(t, ok)
	assert.Equal(t, "Bee", st.Name)
}

func TestMachine_DeleteStateCascade(t *testing.T) {
	m := fixture(t)

	require.NoError(t, m.DeleteState(2))
	_, ok := m.Transition(4)
	assert.False(t, ok)
	_, ok = m.Transition(5)
	assert.False(t, ok)
	_, ok = m.Transition(7)
	assert.False(t, ok)
	assert.Len(t, m.Transitions(), 1)

	_, err := m.Undo()
	require.NoError(t, err)

	b, ok := m.StateByName("B")
	require.True(t, ok)
	assert.Equal(t, 2, b.ID)
	assert.ElementsMatch(t, []int{5, 7}, b.Out)
	assert.ElementsMatch(t, []int{4}, b.In)

	tr, ok := m.Transition(4)
	require.True(t, ok)
	assert.Equal(t, 1, tr.From)
	assert.Equal(t, 2, tr.To)
	assert.Equal(t, "a", tr.Read)
	assert.Equal(t, "b", tr.Write)
}

func TestMachine_UndoDeleteRestoresStart(t *testing.T) {
	m := fixture(t)
	require.NoError(t, m.DeleteState(1))
	assert.Empty(t, m.Save().StartState)

	_, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, "A", m.Save().StartState)
}

func TestMachine_StartHandover(t *testing.T) {
	m := fixture(t)
	require.NoError(t, m.SetStart(2, true))

	a, _ := m.State(1)
	b, _ := m.State(2)
	assert.False(t, a.IsStart)
	assert.True(t, b.IsStart)

	_, err := m.Undo()
	require.NoError(t, err)
	a, _ = m.State(1)
	b, _ = m.State(2)
	assert.True(t, a.IsStart)
	assert.False(t, b.IsStart)
}

func TestMachine_BranchCut(t *testing.T) {
	m := machine.New()
	_, err := m.AddState(domain.Vec2{}, "one")
	require.NoError(t, err)
	_, err = m.AddState(domain.Vec2{}, "two")
	require.NoError(t, err)

	_, err = m.Undo()
	require.NoError(t, err)
	assert.True(t, m.CanRedo())

	_, err = m.AddState(domain.Vec2{}, "three")
	require.NoError(t, err)
	assert.False(t, m.CanRedo())

	_, err = m.Redo()
	assert.ErrorIs(t, err, domain.ErrNothingToRedo)

	_, ok := m.StateByName("two")
	assert.False(t, ok)
}

func TestMachine_UndoBounds(t *testing.T) {
	m := machine.New()
	_, err := m.Undo()
	assert.ErrorIs(t, err, domain.ErrNothingToUndo)
	_, err = m.Redo()
	assert.ErrorIs(t, err, domain.ErrNothingToRedo)
}

func TestMachine_UnchangedEditsRecordNothing(t *testing.T) {
	m := fixture(t)
	require.NoError(t, m.Rename(1, "A"))
	require.NoError(t, m.SetFinal(3, true))
	require.NoError(t, m.SetStart(1, true))
	require.NoError(t, m.SetRead(4, "a"))
	require.NoError(t, m.SetTape("ab"))
	assert.False(t, m.CanRedo())

	kind, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, undo.KindTape, kind, "the last recorded edit is still the fixture's tape")
}

func TestMachine_Sanitization(t *testing.T) {
	m := fixture(t)

	require.NoError(t, m.Rename(1, "  verylongname  "))
	a, _ := m.State(1)
	assert.Equal(t, "verylon", a.Name)

	assert.ErrorIs(t, m.Rename(1, "   "), domain.ErrInvalidName)
	assert.ErrorIs(t, m.Rename(1, "B"), domain.ErrNameTaken)

	require.NoError(t, m.SetRead(4, "xyz"))
	tr, _ := m.Transition(4)
	assert.Equal(t, "x", tr.Read)

	assert.ErrorIs(t, m.SetWrite(4, ""), domain.ErrInvalidSymbol)
	assert.ErrorIs(t, m.SetWrite(4, " "), domain.ErrInvalidSymbol)
	assert.Error(t, m.SetDirection(4, "U"))
}

func TestMachine_AddTransitionDefaults(t *testing.T) {
	m := fixture(t)

	tr, err := m.AddTransition(1, 3, nil, domain.Right, "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.Blank, tr.Read)
	assert.Equal(t, domain.Blank, tr.Write)
	assert.Equal(t, domain.DefaultAnchor, tr.Anchor)

	loop, err := m.AddTransition(1, 1, nil, domain.Left, "b", "b")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultLoopAnchor, loop.Anchor)
}

func TestMachine_RunModeRejectsEdits(t *testing.T) {
	m := fixture(t)
	ctx := context.Background()
	require.NoError(t, m.EnterRunMode(ctx))

	_, err := m.AddState(domain.Vec2{}, "")
	assert.ErrorIs(t, err, domain.ErrRunModeActive)
	assert.ErrorIs(t, m.DeleteState(1), domain.ErrRunModeActive)
	assert.ErrorIs(t, m.SetTape("b"), domain.ErrRunModeActive)
	_, err = m.Undo()
	assert.ErrorIs(t, err, domain.ErrRunModeActive)

	m.ExitRunMode()
	_, err = m.AddState(domain.Vec2{}, "")
	assert.NoError(t, err)
}

func TestMachine_EndToEnd(t *testing.T) {
	m := machine.New()
	s0, _ := m.AddState(domain.Vec2{}, "s0")
	s1, _ := m.AddState(domain.Vec2{X: 100}, "s1")
	require.NoError(t, m.SetStart(s0.ID, true))
	require.NoError(t, m.SetFinal(s1.ID, true))
	_, err := m.AddTransition(s0.ID, s1.ID, nil, domain.Right, "a", "b")
	require.NoError(t, err)
	require.NoError(t, m.SetTape("a"))

	ctx := context.Background()
	require.NoError(t, m.EnterRunMode(ctx))
	assert.Equal(t, "s0", m.View(0, 0).CurrentState)

	ok, _, err := m.StepForward(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	v := m.View(0, 2)
	assert.Equal(t, "b_", v.Tape)
	assert.Equal(t, []string{"b", "_"}, v.Window)
	assert.Equal(t, 1, v.Head)
	assert.Equal(t, "s1", v.CurrentState)

	ok, outcome, err := m.StepForward(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.HaltSuccessful, outcome)
	assert.True(t, m.View(0, 0).Halted)
}

func TestMachine_Run(t *testing.T) {
	m := fixture(t)
	outcome, steps, err := m.Run(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, domain.HaltSuccessful, outcome)
	assert.Equal(t, 2, steps)
	assert.Equal(t, "ba", m.Tape())
}

func TestMachine_RunStepLimit(t *testing.T) {
	m := machine.New()
	s, err := m.AddState(domain.Vec2{}, "spin")
	require.NoError(t, err)
	require.NoError(t, m.SetStart(s.ID, true))
	_, err = m.AddTransition(s.ID, s.ID, nil, domain.Right, "_", "_")
	require.NoError(t, err)

	outcome, steps, err := m.Run(context.Background(), 50)
	assert.ErrorIs(t, err, domain.ErrStepLimit)
	assert.Equal(t, domain.HaltNone, outcome)
	assert.Equal(t, 50, steps)
}

func TestMachine_RunWithoutStart(t *testing.T) {
	m := machine.New()
	_, _, err := m.Run(context.Background(), 10)
	assert.ErrorIs(t, err, domain.ErrNoStartState)
}

func TestMachine_StepOutsideRunMode(t *testing.T) {
	m := fixture(t)
	_, _, err := m.StepForward(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotInRunMode)
	_, err = m.StepBack(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotInRunMode)
}

func TestMachine_SaveLoadRoundTrip(t *testing.T) {
	m := fixture(t)
	require.NoError(t, m.Move(4, domain.Vec2{X: 7, Y: -3}))
	snap := m.Save()

	assert.Equal(t, "A", snap.StartState)
	assert.Equal(t, "ab", snap.Tape)
	require.Len(t, snap.States, 3)

	loaded, err := machine.Open(snap)
	require.NoError(t, err)
	assert.Equal(t, snap, loaded.Save())
	assert.False(t, loaded.CanUndo(), "loading clears the edit history")

	tr, ok := loaded.Transition(4)
	require.True(t, ok)
	assert.Equal(t, domain.Vec2{X: 7, Y: -3}, tr.Anchor)
}

func TestMachine_LoadMalformedResets(t *testing.T) {
	m := fixture(t)
	bad := &domain.Snapshot{
		Tape: "a",
		States: []domain.StateSpec{{
			Name:        "q0",
			Transitions: []domain.TransitionSpec{{Read: "a", Write: "b", To: "missing", Direction: domain.Right}},
		}},
	}

	err := m.Load(bad)
	assert.ErrorIs(t, err, domain.ErrMalformedMachine)
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
	assert.Empty(t, m.States())
	assert.Equal(t, "", m.Tape())
	assert.False(t, m.CanUndo())
}

func TestMachine_LoadNoInitialState(t *testing.T) {
	m := machine.New()
	err := m.Load(&domain.Snapshot{
		StartState: domain.NoInitialState,
		Tape:       domain.Blank,
		States:     []domain.StateSpec{{Name: "q0"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "", m.Save().StartState)
	assert.Equal(t, "", m.Tape())
}

func TestMachine_LoadPaddedNames(t *testing.T) {
	m := machine.New()
	err := m.Load(&domain.Snapshot{
		Tape:       "a",
		StartState: "q0",
		States: []domain.StateSpec{
			{Name: " q0 ", Transitions: []domain.TransitionSpec{
				{Read: "a", Write: "b", To: "done", Direction: domain.Right},
			}},
			{Name: "done", Final: true},
		},
	})
	require.NoError(t, err)

	q0, ok := m.StateByName("q0")
	require.True(t, ok)
	require.Len(t, q0.Out, 1)
	tr, ok := m.Transition(q0.Out[0])
	require.True(t, ok)
	done, _ := m.StateByName("done")
	assert.Equal(t, done.ID, tr.To)
}

func TestMachine_Hooks(t *testing.T) {
	var edits, undos []string
	m := machine.New(machine.WithLifecycleHooks(domain.LifecycleHooks{
		OnEdit: func(_ context.Context, e *domain.EditEvent) { edits = append(edits, e.Kind) },
		OnUndo: func(_ context.Context, e *domain.EditEvent) { undos = append(undos, e.Kind) },
	}))

	s, err := m.AddState(domain.Vec2{}, "")
	require.NoError(t, err)
	require.NoError(t, m.SetFinal(s.ID, true))
	_, err = m.Undo()
	require.NoError(t, err)

	assert.Equal(t, []string{"add_state", "state_final"}, edits)
	assert.Equal(t, []string{"state_final"}, undos)
}

func TestMachine_Play(t *testing.T) {
	m := fixture(t)
	m.SetSpeed(200)

	ctx := context.Background()
	_, err := m.Play(ctx, time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrNotInRunMode)

	require.NoError(t, m.EnterRunMode(ctx))
	done, err := m.Play(ctx, time.Millisecond)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not stop at the halt")
	}
	assert.False(t, m.Playing())
	v := m.View(0, 0)
	assert.True(t, v.Halted)
	assert.Equal(t, domain.HaltSuccessful, v.Outcome)
	assert.Equal(t, 2, v.Step)
}
