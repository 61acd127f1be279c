package machine

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/undo"
)

var now = time.Now

// sanitizeName trims a state name and cuts it to MaxNameLength runes.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrInvalidName
	}
	if utf8.RuneCountInString(name) > domain.MaxNameLength {
		name = string([]rune(name)[:domain.MaxNameLength])
	}
	return name, nil
}

// symbol keeps the first rune of s. Empty input and a space are rejected.
func symbol(s string) (string, error) {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == ' ' || r == utf8.RuneError {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidSymbol, s)
	}
	return string(r), nil
}

func (m *Machine) editable() error {
	if m.sim.Running() {
		return domain.ErrRunModeActive
	}
	return nil
}

func (m *Machine) record(origin undo.Origin, a undo.Action) {
	if origin == undo.FromUndo {
		return
	}
	m.log.Record(a)
	m.emitEdit(a.Kind(), false, false)
}

func (m *Machine) stateName(id int) string {
	s, _ := m.graph.State(id)
	return s.Name
}

// AddState creates a state at pos. An empty name is generated.
func (m *Machine) AddState(pos domain.Vec2, name string) (domain.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return domain.State{}, err
	}
	return m.addState(pos, strings.TrimSpace(name), 0, undo.FromUser)
}

func (m *Machine) addState(pos domain.Vec2, name string, id int, origin undo.Origin) (domain.State, error) {
	s, err := m.graph.AddState(pos, name, id)
	if err != nil {
		return domain.State{}, err
	}
	m.record(origin, &undo.AddState{ID: s.ID, Name: s.Name, Position: s.Position})
	return s, nil
}

// DeleteState removes a state and every transition touching it.
func (m *Machine) DeleteState(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	return m.deleteState(id, undo.FromUser)
}

func (m *Machine) deleteState(id int, origin undo.Origin) error {
	s, ok := m.graph.State(id)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrStateNotFound, id)
	}

	a := &undo.DeleteState{
		ID:       s.ID,
		Name:     s.Name,
		Position: s.Position,
		Final:    s.IsFinal,
		Start:    s.IsStart,
	}
	for _, t := range m.graph.Outgoing(id) {
		a.Out = append(a.Out, undo.NewTransitionRecord(t, s.Name, m.stateName(t.To)))
	}
	for _, t := range m.graph.Incoming(id) {
		a.In = append(a.In, undo.NewTransitionRecord(t, m.stateName(t.From), s.Name))
	}

	if _, err := m.graph.DeleteState(id); err != nil {
		return err
	}
	m.record(origin, a)
	return nil
}

// AddTransition connects two states. Empty symbols default to the blank and
// a nil anchor takes the default offset.
func (m *Machine) AddTransition(from, to int, anchor *domain.Vec2, dir domain.Direction, read, write string) (domain.Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return domain.Transition{}, err
	}

	var err error
	if dir, err = domain.ParseDirection(string(dir)); err != nil {
		return domain.Transition{}, err
	}
	if read == "" {
		read = m.tape.Blank()
	}
	if write == "" {
		write = m.tape.Blank()
	}
	if read, err = symbol(read); err != nil {
		return domain.Transition{}, err
	}
	if write, err = symbol(write); err != nil {
		return domain.Transition{}, err
	}
	return m.addTransition(from, to, anchor, dir, read, write, 0, undo.FromUser)
}

func (m *Machine) addTransition(from, to int, anchor *domain.Vec2, dir domain.Direction, read, write string, id int, origin undo.Origin) (domain.Transition, error) {
	t, err := m.graph.AddTransition(from, to, anchor, dir, read, write, id)
	if err != nil {
		return domain.Transition{}, err
	}
	m.record(origin, &undo.AddTransition{
		Transition: undo.NewTransitionRecord(t, m.stateName(from), m.stateName(to)),
	})
	return t, nil
}

// DeleteTransition removes one transition.
func (m *Machine) DeleteTransition(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	return m.deleteTransition(id, undo.FromUser)
}

func (m *Machine) deleteTransition(id int, origin undo.Origin) error {
	t, ok := m.graph.Transition(id)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrTransitionNotFound, id)
	}
	rec := undo.NewTransitionRecord(t, m.stateName(t.From), m.stateName(t.To))
	if _, err := m.graph.DeleteTransition(id); err != nil {
		return err
	}
	m.record(origin, &undo.DeleteTransition{Transition: rec})
	return nil
}

// Rename changes a state's display name. The name is trimmed and cut to
// domain.MaxNameLength runes; an unchanged name records nothing.
func (m *Machine) Rename(id int, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	name, err := sanitizeName(name)
	if err != nil {
		return err
	}
	return m.rename(id, name, undo.FromUser)
}

func (m *Machine) rename(id int, name string, origin undo.Origin) error {
	s, ok := m.graph.State(id)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrStateNotFound, id)
	}
	if s.Name == name {
		return nil
	}
	if err := m.graph.Rename(id, name); err != nil {
		return err
	}
	m.record(origin, &undo.ChangeStateName{Prev: s.Name, Curr: name})
	return nil
}

// SetFinal toggles the accepting flag of a state.
func (m *Machine) SetFinal(id int, final bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	return m.setFinal(id, final, undo.FromUser)
}

func (m *Machine) setFinal(id int, final bool, origin undo.Origin) error {
	s, ok := m.graph.State(id)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrStateNotFound, id)
	}
	if s.IsFinal == final {
		return nil
	}
	if err := m.graph.SetFinal(id, final); err != nil {
		return err
	}
	m.record(origin, &undo.ChangeStateFinal{Name: s.Name, Prev: s.IsFinal, Curr: final})
	return nil
}

// SetStart designates or clears the start state. Designating a state takes
// the flag away from the previous holder.
func (m *Machine) SetStart(id int, start bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	return m.setStart(id, start, undo.FromUser)
}

func (m *Machine) setStart(id int, start bool, origin undo.Origin) error {
	s, ok := m.graph.State(id)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrStateNotFound, id)
	}
	if s.IsStart == start {
		return nil
	}

	a := &undo.ChangeStateStart{Name: s.Name, Prev: s.IsStart, Curr: start}
	if start {
		prev, err := m.graph.SetStart(id)
		if err != nil {
			return err
		}
		a.PrevHolder = m.stateName(prev)
	} else {
		m.graph.ClearStart()
	}
	m.record(origin, a)
	return nil
}

// Move repositions a state or a transition anchor, whichever id names.
func (m *Machine) Move(id int, pos domain.Vec2) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	switch m.graph.ByID(id).Kind {
	case domain.KindState:
		return m.setPosition(id, pos, undo.FromUser)
	case domain.KindTransition:
		return m.setAnchor(id, pos, undo.FromUser)
	}
	return fmt.Errorf("%w: object %d", domain.ErrStateNotFound, id)
}

func (m *Machine) setPosition(id int, pos domain.Vec2, origin undo.Origin) error {
	s, ok := m.graph.State(id)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrStateNotFound, id)
	}
	if s.Position == pos {
		return nil
	}
	if err := m.graph.SetPosition(id, pos); err != nil {
		return err
	}
	m.record(origin, &undo.MoveObject{ID: id, Prev: s.Position, Curr: pos})
	return nil
}

func (m *Machine) setAnchor(id int, anchor domain.Vec2, origin undo.Origin) error {
	t, ok := m.graph.Transition(id)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrTransitionNotFound, id)
	}
	if t.Anchor == anchor {
		return nil
	}
	if err := m.graph.SetAnchor(id, anchor); err != nil {
		return err
	}
	m.record(origin, &undo.MoveObject{ID: id, Prev: t.Anchor, Curr: anchor})
	return nil
}

// SetDirection changes the head motion of a transition.
func (m *Machine) SetDirection(id int, dir domain.Direction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	dir, err := domain.ParseDirection(string(dir))
	if err != nil {
		return err
	}
	return m.setDirection(id, dir, undo.FromUser)
}

func (m *Machine) setDirection(id int, dir domain.Direction, origin undo.Origin) error {
	t, ok := m.graph.Transition(id)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrTransitionNotFound, id)
	}
	if t.Direction == dir {
		return nil
	}
	if err := m.graph.SetDirection(id, dir); err != nil {
		return err
	}
	m.record(origin, &undo.TransDirection{ID: id, Prev: t.Direction, Curr: dir})
	return nil
}

// SetRead changes the read symbol of a transition. Only the first rune is
// kept.
func (m *Machine) SetRead(id int, sym string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	sym, err := symbol(sym)
	if err != nil {
		return err
	}
	return m.setRead(id, sym, undo.FromUser)
}

func (m *Machine) setRead(id int, sym string, origin undo.Origin) error {
	t, ok := m.graph.Transition(id)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrTransitionNotFound, id)
	}
	if t.Read == sym {
		return nil
	}
	if err := m.graph.SetRead(id, sym); err != nil {
		return err
	}
	m.record(origin, &undo.TransRead{ID: id, Prev: t.Read, Curr: sym})
	return nil
}

// SetWrite changes the write symbol of a transition. Only the first rune is
// kept.
func (m *Machine) SetWrite(id int, sym string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	sym, err := symbol(sym)
	if err != nil {
		return err
	}
	return m.setWrite(id, sym, undo.FromUser)
}

func (m *Machine) setWrite(id int, sym string, origin undo.Origin) error {
	t, ok := m.graph.Transition(id)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrTransitionNotFound, id)
	}
	if t.Write == sym {
		return nil
	}
	if err := m.graph.SetWrite(id, sym); err != nil {
		return err
	}
	m.record(origin, &undo.TransWrite{ID: id, Prev: t.Write, Curr: sym})
	return nil
}

// SetTape replaces the tape contents and parks the head on the first cell.
func (m *Machine) SetTape(s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	return m.setTape(s, undo.FromUser)
}

// setTape records the raw cells, leading blanks included, so that undo
// restores exactly what was replaced.
func (m *Machine) setTape(s string, origin undo.Origin) error {
	prev := strings.Join(m.tape.Cells(), "")
	m.tape.Set(s)
	if curr := strings.Join(m.tape.Cells(), ""); curr != prev {
		m.record(origin, &undo.ChangeTape{Prev: prev, Curr: curr})
	}
	return nil
}

// MoveHead shifts the tape head one cell without touching the graph.
// Head motion is not an undoable edit.
func (m *Machine) MoveHead(dir domain.Direction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	dir, err := domain.ParseDirection(string(dir))
	if err != nil {
		return err
	}
	m.tape.Move(dir)
	return nil
}

// ResetTapeHead parks the head on the first non-blank cell.
func (m *Machine) ResetTapeHead() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return err
	}
	m.tape.ResetHead()
	return nil
}

// CanUndo reports whether an edit can be undone.
func (m *Machine) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.log.CanUndo()
}

// CanRedo reports whether an undone edit can be reapplied.
func (m *Machine) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.log.CanRedo()
}

// Undo reverts the most recent edit and returns its kind.
func (m *Machine) Undo() (undo.Kind, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return "", err
	}
	a, err := m.log.Undo(editor{m})
	if err != nil {
		return "", err
	}
	m.emitEdit(a.Kind(), true, false)
	return a.Kind(), nil
}

// Redo reapplies the most recently undone edit and returns its kind.
func (m *Machine) Redo() (undo.Kind, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editable(); err != nil {
		return "", err
	}
	a, err := m.log.Redo(editor{m})
	if err != nil {
		return "", err
	}
	m.emitEdit(a.Kind(), true, true)
	return a.Kind(), nil
}

// Batch runs fn, which may make several edits, as one change. If fn fails,
// the edits it recorded are reverted and dropped from the log, so a failed
// batch leaves neither a partial machine nor a redo entry behind.
func (m *Machine) Batch(fn func() error) error {
	m.mu.Lock()
	mark := m.log.Cursor()
	m.mu.Unlock()

	err := fn()
	if err == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.log.Cursor() <= mark {
		return err
	}
	for m.log.Cursor() > mark {
		if _, uerr := m.log.Undo(editor{m}); uerr != nil {
			m.logger.Error("Batch rollback failed", "err", uerr)
			return errors.Join(err, fmt.Errorf("rollback: %w", uerr))
		}
	}
	m.log.Truncate()
	return err
}

// editor replays undo actions against a Machine whose lock is already held.
type editor struct{ m *Machine }

func (e editor) StateByName(name string) (domain.State, bool) { return e.m.graph.StateByName(name) }

func (e editor) Kind(id int) domain.EntityKind { return e.m.graph.ByID(id).Kind }

func (e editor) AddState(pos domain.Vec2, name string, id int, origin undo.Origin) (domain.State, error) {
	return e.m.addState(pos, name, id, origin)
}

func (e editor) DeleteState(id int, origin undo.Origin) error { return e.m.deleteState(id, origin) }

func (e editor) AddTransition(from, to int, anchor *domain.Vec2, dir domain.Direction, read, write string, id int, origin undo.Origin) (domain.Transition, error) {
	return e.m.addTransition(from, to, anchor, dir, read, write, id, origin)
}

func (e editor) DeleteTransition(id int, origin undo.Origin) error {
	return e.m.deleteTransition(id, origin)
}

func (e editor) Rename(id int, name string, origin undo.Origin) error {
	return e.m.rename(id, name, origin)
}

func (e editor) SetFinal(id int, final bool, origin undo.Origin) error {
	return e.m.setFinal(id, final, origin)
}

func (e editor) SetStart(id int, start bool, origin undo.Origin) error {
	return e.m.setStart(id, start, origin)
}

func (e editor) SetPosition(id int, pos domain.Vec2, origin undo.Origin) error {
	return e.m.setPosition(id, pos, origin)
}

func (e editor) SetAnchor(id int, anchor domain.Vec2, origin undo.Origin) error {
	return e.m.setAnchor(id, anchor, origin)
}

func (e editor) SetDirection(id int, dir domain.Direction, origin undo.Origin) error {
	return e.m.setDirection(id, dir, origin)
}

func (e editor) SetRead(id int, sym string, origin undo.Origin) error {
	return e.m.setRead(id, sym, origin)
}

func (e editor) SetWrite(id int, sym string, origin undo.Origin) error {
	return e.m.setWrite(id, sym, origin)
}

func (e editor) SetTape(s string, origin undo.Origin) error { return e.m.setTape(s, origin) }
