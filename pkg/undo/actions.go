package undo

import (
	"fmt"

	"github.com/aretw0/turing/pkg/domain"
)

// Kind names an action type. Values double as metric labels.
type Kind string

const (
	KindAddState         Kind = "add_state"
	KindDeleteState      Kind = "delete_state"
	KindAddTransition    Kind = "add_transition"
	KindDeleteTransition Kind = "delete_transition"
	KindStateName        Kind = "state_name"
	KindStateFinal       Kind = "state_final"
	KindStateStart       Kind = "state_start"
	KindMoveObject       Kind = "move_object"
	KindTape             Kind = "tape"
	KindTransDirection   Kind = "trans_direction"
	KindTransRead        Kind = "trans_read"
	KindTransWrite       Kind = "trans_write"
)

// Editor is the surface actions replay against. Every call made by an
// action passes FromUndo so the replay is not recorded again.
type Editor interface {
	StateByName(name string) (domain.State, bool)
	Kind(id int) domain.EntityKind

	AddState(pos domain.Vec2, name string, id int, origin Origin) (domain.State, error)
	DeleteState(id int, origin Origin) error
	AddTransition(from, to int, anchor *domain.Vec2, dir domain.Direction, read, write string, id int, origin Origin) (domain.Transition, error)
	DeleteTransition(id int, origin Origin) error

	Rename(id int, name string, origin Origin) error
	SetFinal(id int, final bool, origin Origin) error
	SetStart(id int, start bool, origin Origin) error
	SetPosition(id int, pos domain.Vec2, origin Origin) error
	SetAnchor(id int, anchor domain.Vec2, origin Origin) error
	SetDirection(id int, dir domain.Direction, origin Origin) error
	SetRead(id int, sym string, origin Origin) error
	SetWrite(id int, sym string, origin Origin) error
	SetTape(s string, origin Origin) error
}

// Action is one reversible edit.
type Action interface {
	Kind() Kind
	Undo(e Editor) error
	Redo(e Editor) error
}

// TransitionRecord is a value copy of a transition with endpoints by name.
type TransitionRecord struct {
	ID        int
	From      string
	To        string
	Direction domain.Direction
	Read      string
	Write     string
	Anchor    domain.Vec2
}

// NewTransitionRecord captures t using the given endpoint names.
func NewTransitionRecord(t domain.Transition, from, to string) TransitionRecord {
	return TransitionRecord{
		ID:        t.ID,
		From:      from,
		To:        to,
		Direction: t.Direction,
		Read:      t.Read,
		Write:     t.Write,
		Anchor:    t.Anchor,
	}
}

func (r TransitionRecord) restore(e Editor) error {
	from, ok := e.StateByName(r.From)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrStateNotFound, r.From)
	}
	to, ok := e.StateByName(r.To)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrStateNotFound, r.To)
	}
	anchor := r.Anchor
	_, err := e.AddTransition(from.ID, to.ID, &anchor, r.Direction, r.Read, r.Write, r.ID, FromUndo)
	return err
}

func stateByName(e Editor, name string) (domain.State, error) {
	s, ok := e.StateByName(name)
	if !ok {
		return domain.State{}, fmt.Errorf("%w: %q", domain.ErrStateNotFound, name)
	}
	return s, nil
}

// AddState records the creation of a state.
type AddState struct {
	ID       int
	Name     string
	Position domain.Vec2
}

func (a *AddState) Kind() Kind { return KindAddState }

func (a *AddState) Undo(e Editor) error {
	return e.DeleteState(a.ID, FromUndo)
}

func (a *AddState) Redo(e Editor) error {
	_, err := e.AddState(a.Position, a.Name, a.ID, FromUndo)
	return err
}

// DeleteState records a deleted state with a full copy of the transitions
// that were removed with it.
type DeleteState struct {
	ID       int
	Name     string
	Position domain.Vec2
	Final    bool
	Start    bool
	Out      []TransitionRecord
	In       []TransitionRecord
}

func (a *DeleteState) Kind() Kind { return KindDeleteState }

func (a *DeleteState) Undo(e Editor) error {
	s, err := e.AddState(a.Position, a.Name, a.ID, FromUndo)
	if err != nil {
		return err
	}
	if a.Final {
		if err := e.SetFinal(s.ID, true, FromUndo); err != nil {
			return err
		}
	}
	if a.Start {
		if err := e.SetStart(s.ID, true, FromUndo); err != nil {
			return err
		}
	}
	for _, r := range a.Out {
		if err := r.restore(e); err != nil {
			return err
		}
	}
	for _, r := range a.In {
		if err := r.restore(e); err != nil {
			return err
		}
	}
	return nil
}

func (a *DeleteState) Redo(e Editor) error {
	s, err := stateByName(e, a.Name)
	if err != nil {
		return err
	}
	return e.DeleteState(s.ID, FromUndo)
}

// AddTransition records the creation of a transition.
type AddTransition struct {
	Transition TransitionRecord
}

func (a *AddTransition) Kind() Kind { return KindAddTransition }

func (a *AddTransition) Undo(e Editor) error {
	return e.DeleteTransition(a.Transition.ID, FromUndo)
}

func (a *AddTransition) Redo(e Editor) error {
	return a.Transition.restore(e)
}

// DeleteTransition records a removed transition.
type DeleteTransition struct {
	Transition TransitionRecord
}

func (a *DeleteTransition) Kind() Kind { return KindDeleteTransition }

func (a *DeleteTransition) Undo(e Editor) error {
	return a.Transition.restore(e)
}

func (a *DeleteTransition) Redo(e Editor) error {
	return e.DeleteTransition(a.Transition.ID, FromUndo)
}

// ChangeStateName records a rename.
type ChangeStateName struct {
	Prev string
	Curr string
}

func (a *ChangeStateName) Kind() Kind { return KindStateName }

func (a *ChangeStateName) Undo(e Editor) error {
	s, err := stateByName(e, a.Curr)
	if err != nil {
		return err
	}
	return e.Rename(s.ID, a.Prev, FromUndo)
}

func (a *ChangeStateName) Redo(e Editor) error {
	s, err := stateByName(e, a.Prev)
	if err != nil {
		return err
	}
	return e.Rename(s.ID, a.Curr, FromUndo)
}

// ChangeStateFinal records an accepting-flag toggle.
type ChangeStateFinal struct {
	Name string
	Prev bool
	Curr bool
}

func (a *ChangeStateFinal) Kind() Kind { return KindStateFinal }

func (a *ChangeStateFinal) Undo(e Editor) error {
	s, err := stateByName(e, a.Name)
	if err != nil {
		return err
	}
	return e.SetFinal(s.ID, a.Prev, FromUndo)
}

func (a *ChangeStateFinal) Redo(e Editor) error {
	s, err := stateByName(e, a.Name)
	if err != nil {
		return err
	}
	return e.SetFinal(s.ID, a.Curr, FromUndo)
}

// ChangeStateStart records a start designation change. PrevHolder names the
// state that lost the designation when this one gained it.
type ChangeStateStart struct {
	Name       string
	Prev       bool
	Curr       bool
	PrevHolder string
}

func (a *ChangeStateStart) Kind() Kind { return KindStateStart }

func (a *ChangeStateStart) Undo(e Editor) error {
	s, err := stateByName(e, a.Name)
	if err != nil {
		return err
	}
	if a.Prev {
		return e.SetStart(s.ID, true, FromUndo)
	}
	if err := e.SetStart(s.ID, false, FromUndo); err != nil {
		return err
	}
	if a.PrevHolder == "" {
		return nil
	}
	prev, err := stateByName(e, a.PrevHolder)
	if err != nil {
		return err
	}
	return e.SetStart(prev.ID, true, FromUndo)
}

func (a *ChangeStateStart) Redo(e Editor) error {
	s, err := stateByName(e, a.Name)
	if err != nil {
		return err
	}
	return e.SetStart(s.ID, a.Curr, FromUndo)
}

// MoveObject records a drag of a state or a transition anchor. The target
// kind is resolved by id when the action is replayed.
type MoveObject struct {
	ID   int
	Prev domain.Vec2
	Curr domain.Vec2
}

func (a *MoveObject) Kind() Kind { return KindMoveObject }

func (a *MoveObject) Undo(e Editor) error { return a.apply(e, a.Prev) }

func (a *MoveObject) Redo(e Editor) error { return a.apply(e, a.Curr) }

func (a *MoveObject) apply(e Editor, pos domain.Vec2) error {
	switch e.Kind(a.ID) {
	case domain.KindState:
		return e.SetPosition(a.ID, pos, FromUndo)
	case domain.KindTransition:
		return e.SetAnchor(a.ID, pos, FromUndo)
	}
	return fmt.Errorf("%w: object %d", domain.ErrStateNotFound, a.ID)
}

// ChangeTape records an initial tape edit.
type ChangeTape struct {
	Prev string
	Curr string
}

func (a *ChangeTape) Kind() Kind { return KindTape }

func (a *ChangeTape) Undo(e Editor) error { return e.SetTape(a.Prev, FromUndo) }

func (a *ChangeTape) Redo(e Editor) error { return e.SetTape(a.Curr, FromUndo) }

// TransDirection records a head-motion change on a transition.
type TransDirection struct {
	ID   int
	Prev domain.Direction
	Curr domain.Direction
}

func (a *TransDirection) Kind() Kind { return KindTransDirection }

func (a *TransDirection) Undo(e Editor) error { return e.SetDirection(a.ID, a.Prev, FromUndo) }

func (a *TransDirection) Redo(e Editor) error { return e.SetDirection(a.ID, a.Curr, FromUndo) }

// TransRead records a read-symbol change on a transition.
type TransRead struct {
	ID   int
	Prev string
	Curr string
}

func (a *TransRead) Kind() Kind { return KindTransRead }

func (a *TransRead) Undo(e Editor) error { return e.SetRead(a.ID, a.Prev, FromUndo) }

func (a *TransRead) Redo(e Editor) error { return e.SetRead(a.ID, a.Curr, FromUndo) }

// TransWrite records a write-symbol change on a transition.
type TransWrite struct {
	ID   int
	Prev string
	Curr string
}

func (a *TransWrite) Kind() Kind { return KindTransWrite }

func (a *TransWrite) Undo(e Editor) error { return e.SetWrite(a.ID, a.Prev, FromUndo) }

func (a *TransWrite) Redo(e Editor) error { return e.SetWrite(a.ID, a.Curr, FromUndo) }
