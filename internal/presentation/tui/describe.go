package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/turing/pkg/domain"
)

// Describe summarizes a machine as markdown: its tape, its states and a
// transition table.
func Describe(title string, snap *domain.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)

	tape := snap.Tape
	if tape == "" {
		tape = "(blank)"
	}
	start := snap.StartState
	if start == "" {
		start = "(none)"
	}
	fmt.Fprintf(&sb, "- **Tape:** `%s`\n", tape)
	fmt.Fprintf(&sb, "- **Start state:** %s\n", start)

	var finals []string
	transitions := 0
	for _, st := range snap.States {
		if st.Final {
			finals = append(finals, st.Name)
		}
		transitions += len(st.Transitions)
	}
	if len(finals) == 0 {
		finals = []string{"(none)"}
	}
	fmt.Fprintf(&sb, "- **Final states:** %s\n", strings.Join(finals, ", "))
	fmt.Fprintf(&sb, "- **States:** %d, **transitions:** %d\n", len(snap.States), transitions)

	if transitions == 0 {
		return sb.String()
	}

	sb.WriteString("\n## Transitions\n\n")
	sb.WriteString("| From | Read | Write | Move | To |\n")
	sb.WriteString("|------|------|-------|------|----|\n")
	for _, st := range snap.States {
		for _, t := range st.Transitions {
			fmt.Fprintf(&sb, "| %s | `%s` | `%s` | %s | %s |\n", st.Name, t.Read, t.Write, t.Direction, t.To)
		}
	}
	return sb.String()
}
