// Package tape implements the bidirectionally-infinite symbol store a
// Turing machine reads and writes.
package tape

import (
	"strings"

	"github.com/aretw0/turing/pkg/domain"
)

// Tape is a sequence of single-symbol cells plus a head index.
// Cells are materialized only when the head moves past either end.
// Not safe for concurrent use; the owning machine serializes access.
type Tape struct {
	cells []string
	head  int
	blank string
}

// New creates a tape holding s with the default blank symbol.
func New(s string) *Tape {
	return NewWithBlank(s, domain.Blank)
}

// NewWithBlank creates a tape holding s with a custom blank symbol.
func NewWithBlank(s, blank string) *Tape {
	if blank == "" {
		blank = domain.Blank
	}
	t := &Tape{blank: blank}
	t.Set(s)
	return t
}

// Set re-materializes the tape from s and resets the head to 0.
// An empty string yields a single blank cell.
func (t *Tape) Set(s string) {
	t.cells = t.cells[:0]
	for _, r := range s {
		t.cells = append(t.cells, string(r))
	}
	if len(t.cells) == 0 {
		t.cells = append(t.cells, t.blank)
	}
	t.head = 0
}

// Blank returns the blank symbol.
func (t *Tape) Blank() string { return t.blank }

// Head returns the current head index.
func (t *Tape) Head() int { return t.head }

// Len returns the number of materialized cells.
func (t *Tape) Len() int { return len(t.cells) }

// Read returns the symbol under the head.
func (t *Tape) Read() string {
	return t.At(t.head)
}

// At returns the symbol at index i, or blank outside the materialized range.
func (t *Tape) At(i int) string {
	if i < 0 || i >= len(t.cells) {
		return t.blank
	}
	return t.cells[i]
}

// Write replaces the symbol under the head.
func (t *Tape) Write(sym string) {
	t.cells[t.head] = sym
}

// MoveLeft moves the head one cell left. At the left boundary a blank cell
// is prepended and the head stays at index 0.
func (t *Tape) MoveLeft() int {
	if t.head == 0 {
		t.cells = append([]string{t.blank}, t.cells...)
		return t.head
	}
	t.head--
	return t.head
}

// MoveRight moves the head one cell right, appending a blank at the end.
func (t *Tape) MoveRight() int {
	if t.head >= len(t.cells)-1 {
		t.cells = append(t.cells, t.blank)
	}
	t.head++
	return t.head
}

// Move applies a direction. Unknown directions leave the head in place.
func (t *Tape) Move(d domain.Direction) int {
	switch d {
	case domain.Left:
		return t.MoveLeft()
	case domain.Right:
		return t.MoveRight()
	}
	return t.head
}

// Window returns count symbols starting at from, padding with blanks on any
// side outside the materialized range. The tape is not mutated.
func (t *Tape) Window(from, count int) []string {
	if count <= 0 {
		return []string{}
	}
	out := make([]string, count)
	for i := range out {
		out[i] = t.At(from + i)
	}
	return out
}

// FirstNonBlank returns the index of the leftmost non-blank cell.
func (t *Tape) FirstNonBlank() (int, bool) {
	for i, c := range t.cells {
		if c != t.blank {
			return i, true
		}
	}
	return 0, false
}

// ResetHead moves the head to the first non-blank cell, or to 0 when the
// tape is entirely blank.
func (t *Tape) ResetHead() int {
	i, _ := t.FirstNonBlank()
	t.head = i
	return t.head
}

// String returns the cells from the first non-blank one to the end.
func (t *Tape) String() string {
	first, ok := t.FirstNonBlank()
	if !ok {
		return ""
	}
	return strings.Join(t.cells[first:], "")
}

// Cells returns a copy of the materialized cells.
func (t *Tape) Cells() []string {
	return append([]string(nil), t.cells...)
}
