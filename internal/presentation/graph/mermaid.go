package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/turing/pkg/domain"
)

// Overlay contains run state to highlight on the graph.
type Overlay struct {
	Visited []string
	Current string
}

// GenerateMermaid produces a Mermaid flowchart of a machine.
// Shapes encode the state flags:
// - Start: ((Circle))
// - Final: (((Double circle)))
// - Default: (Rounded)
// Edges carry "read/write,move" labels. Transitions to unknown states are
// skipped.
func GenerateMermaid(snap *domain.Snapshot, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	ids := make(map[string]string, len(snap.States))
	for i, st := range snap.States {
		ids[st.Name] = fmt.Sprintf("s%d", i)
	}

	for _, st := range snap.States {
		opener, closer := "(", ")"
		switch {
		case st.Final:
			opener, closer = "(((", ")))"
		case st.Name == snap.StartState:
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", ids[st.Name], opener, escape(st.Name), closer)
	}

	for _, st := range snap.States {
		for _, t := range st.Transitions {
			to, ok := ids[t.To]
			if !ok {
				continue
			}
			label := fmt.Sprintf("%s/%s,%s", t.Read, t.Write, t.Direction)
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", ids[st.Name], escape(label), to)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.Visited {
			id, ok := ids[name]
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", id)
		}
		if id, ok := ids[overlay.Current]; ok {
			fmt.Fprintf(&sb, "    class %s current;\n", id)
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
