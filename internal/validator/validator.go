// Package validator checks machine descriptions for problems that loading
// alone does not catch.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/machine"
)

// Severity tells whether a problem stops the machine from loading.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Problem is one finding, tied to a state when State is set.
type Problem struct {
	Severity Severity
	State    string
	Message  string
}

func (p Problem) String() string {
	if p.State == "" {
		return fmt.Sprintf("%s: %s", p.Severity, p.Message)
	}
	return fmt.Sprintf("%s: state %q: %s", p.Severity, p.State, p.Message)
}

// HasErrors reports whether any problem is an error.
func HasErrors(problems []Problem) bool {
	for _, p := range problems {
		if p.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks snap for a missing or unknown start state, duplicate
// names and transitions to unknown states, which are errors, and for states
// unreachable from the start or nondeterministic transitions, which are
// warnings.
func Validate(snap *domain.Snapshot) []Problem {
	var problems []Problem
	errorf := func(state, format string, args ...any) {
		problems = append(problems, Problem{SeverityError, state, fmt.Sprintf(format, args...)})
	}

	names := make(map[string]bool, len(snap.States))
	for _, st := range snap.States {
		name := strings.TrimSpace(st.Name)
		if names[name] {
			errorf(name, "duplicate state name")
		}
		names[name] = true
	}

	start := snap.StartState
	switch {
	case start == "" || start == domain.NoInitialState:
		errorf("", "no start state")
		start = ""
	case !names[start]:
		errorf("", "start state %q does not exist", start)
		start = ""
	}

	for _, st := range snap.States {
		for _, t := range st.Transitions {
			if !names[t.To] {
				errorf(st.Name, "transition on %q targets unknown state %q", t.Read, t.To)
			}
		}
	}
	if HasErrors(problems) {
		return problems
	}

	for _, name := range unreachable(snap, start) {
		problems = append(problems, Problem{SeverityWarning, name, "unreachable from the start state"})
	}

	m, err := machine.Open(snap)
	if err != nil {
		errorf("", "%v", err)
		return problems
	}
	for _, c := range m.Conflicts() {
		st, _ := m.State(c.StateID)
		problems = append(problems, Problem{SeverityWarning, st.Name,
			fmt.Sprintf("%d transitions read %q; the lowest id wins", len(c.TransitionIDs), c.Symbol)})
	}
	return problems
}

// unreachable crawls the graph breadth-first from start and returns the
// states never visited, in declaration order.
func unreachable(snap *domain.Snapshot, start string) []string {
	out := make(map[string][]string, len(snap.States))
	for _, st := range snap.States {
		for _, t := range st.Transitions {
			out[st.Name] = append(out[st.Name], t.To)
		}
	}

	visited := make(map[string]bool)
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, target := range out[current] {
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	var missing []string
	for _, st := range snap.States {
		if !visited[st.Name] {
			missing = append(missing, st.Name)
		}
	}
	return missing
}
