// Package tui renders machines for the terminal.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/turing/pkg/machine"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DefaultWidth is used when stdout is not a terminal.
const DefaultWidth = 80

// cellWidth is the printed width of one tape cell, separator included.
const cellWidth = 4

// TerminalWidth reports the width of the terminal on stdout.
func TerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

// CellsFor returns the largest odd number of tape cells that fits width
// columns, never less than one.
func CellsFor(width int) int {
	n := (width - 1) / cellWidth
	if n%2 == 0 {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Strip draws the window of v as a row of cells with a caret under the
// head. The head cell is highlighted when the profile supports it.
//
//	| a | b | _ |
//	      ^
func Strip(v machine.View, profile termenv.Profile) string {
	var top, caret strings.Builder
	top.WriteString("|")
	caret.WriteString(" ")
	for i, sym := range v.Window {
		cell := fmt.Sprintf(" %s ", sym)
		if v.WindowStart+i == v.Head {
			top.WriteString(profile.String(cell).Reverse().Bold().String())
			caret.WriteString(" ^  ")
		} else {
			top.WriteString(cell)
			caret.WriteString("    ")
		}
		top.WriteString("|")
	}
	return top.String() + "\n" + strings.TrimRight(caret.String(), " ")
}

// Status is a one-line summary of the run position.
func Status(v machine.View) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "step %d/%d", v.Step, max(v.TotalSteps-1, 0))
	if v.CurrentState != "" {
		fmt.Fprintf(&sb, "  state %s", v.CurrentState)
	}
	if v.Halted {
		fmt.Fprintf(&sb, "  halted (%s)", v.Outcome)
	}
	return sb.String()
}
