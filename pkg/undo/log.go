// Package undo implements the reversible edit history of a machine.
//
// The log is a command list with a cursor pointing at the last applied
// action (-1 when nothing is applied). Recording after an undo cuts the redo
// branch. Actions hold plain values only and resolve entities through an
// Editor at replay time.
package undo

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/turing/internal/logging"
	"github.com/aretw0/turing/pkg/domain"
)

// Origin tags whether an edit comes from the user or from a replay.
// Only FromUser edits are recorded.
type Origin bool

const (
	FromUser Origin = false
	FromUndo Origin = true
)

// Log is the undo/redo history. Not safe for concurrent use.
type Log struct {
	actions []Action
	cursor  int
	logger  *slog.Logger
}

// Option configures the Log.
type Option func(*Log)

// WithLogger configures a logger for replay diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// NewLog creates an empty log.
func NewLog(opts ...Option) *Log {
	l := &Log{
		cursor: -1,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reset drops every action.
func (l *Log) Reset() {
	l.actions = nil
	l.cursor = -1
}

// Len returns the number of recorded actions.
func (l *Log) Len() int { return len(l.actions) }

// Cursor returns the index of the last applied action, or -1.
func (l *Log) Cursor() int { return l.cursor }

// CanUndo reports whether Undo has an action to revert.
func (l *Log) CanUndo() bool { return l.cursor > -1 }

// CanRedo reports whether Redo has an action to reapply.
func (l *Log) CanRedo() bool { return l.cursor < len(l.actions)-1 }

// Record appends an action, discarding everything after the cursor.
func (l *Log) Record(a Action) {
	if l.cursor < len(l.actions)-1 {
		l.actions = l.actions[:l.cursor+1]
	}
	l.actions = append(l.actions, a)
	l.cursor++
}

// Truncate drops the redo branch.
func (l *Log) Truncate() {
	l.actions = l.actions[:l.cursor+1]
}

// Undo reverts the action at the cursor. On failure the cursor stays put.
func (l *Log) Undo(e Editor) (Action, error) {
	if !l.CanUndo() {
		return nil, domain.ErrNothingToUndo
	}
	a := l.actions[l.cursor]
	if err := a.Undo(e); err != nil {
		l.logger.Warn("Undo failed", "kind", a.Kind(), "err", err)
		return a, fmt.Errorf("undo %s: %w", a.Kind(), err)
	}
	l.cursor--
	return a, nil
}

// Redo reapplies the action after the cursor. On failure the cursor stays put.
func (l *Log) Redo(e Editor) (Action, error) {
	if !l.CanRedo() {
		return nil, domain.ErrNothingToRedo
	}
	a := l.actions[l.cursor+1]
	if err := a.Redo(e); err != nil {
		l.logger.Warn("Redo failed", "kind", a.Kind(), "err", err)
		return a, fmt.Errorf("redo %s: %w", a.Kind(), err)
	}
	l.cursor++
	return a, nil
}

// Actions returns a copy of the recorded actions.
func (l *Log) Actions() []Action {
	return append([]Action(nil), l.actions...)
}
