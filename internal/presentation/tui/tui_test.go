package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/turing/internal/presentation/tui"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/machine"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrip(t *testing.T) {
	v := machine.View{WindowStart: -1, Window: []string{"_", "a", "b"}, Head: 0}
	got := tui.Strip(v, termenv.Ascii)
	want := "| _ | a | b |\n      ^"
	if got != want {
		t.Errorf("Strip =\n%q\nwant\n%q", got, want)
	}
}

func TestStrip_HighlightsHead(t *testing.T) {
	v := machine.View{Window: []string{"a"}, Head: 0}
	got := tui.Strip(v, termenv.ANSI)
	assert.Contains(t, got, "\x1b[")
	assert.Contains(t, got, " a ")
}

func TestCellsFor(t *testing.T) {
	tests := map[int]int{
		80: 19,
		81: 19,
		85: 21,
		4:  1,
		0:  1,
	}
	for width, want := range tests {
		if got := tui.CellsFor(width); got != want {
			t.Errorf("CellsFor(%d) = %d, want %d", width, got, want)
		}
	}
}

func TestStatus(t *testing.T) {
	v := machine.View{Step: 2, TotalSteps: 3, CurrentState: "done", Halted: true, Outcome: domain.HaltSuccessful}
	assert.Equal(t, "step 2/2  state done  halted (successful)", tui.Status(v))
	assert.Equal(t, "step 0/0", tui.Status(machine.View{}))
}

func TestDescribe(t *testing.T) {
	snap := &domain.Snapshot{
		Tape:       "ab",
		StartState: "q0",
		States: []domain.StateSpec{
			{Name: "q0", Transitions: []domain.TransitionSpec{{Read: "a", Write: "b", To: "q1", Direction: domain.Right}}},
			{Name: "q1", Final: true},
		},
	}
	md := tui.Describe("flip.tm", snap)
	assert.True(t, strings.HasPrefix(md, "# flip.tm\n"))
	assert.Contains(t, md, "- **Final states:** q1\n")
	assert.Contains(t, md, "| q0 | `a` | `b` | R | q1 |\n")

	empty := tui.Describe("blank", &domain.Snapshot{})
	assert.Contains(t, empty, "`(blank)`")
	assert.NotContains(t, empty, "## Transitions")

	render, err := tui.NewRenderer(80)
	require.NoError(t, err)
	out, err := render(md)
	require.NoError(t, err)
	assert.Contains(t, out, "flip.tm")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Greater(t, strings.Count(buf.String(), "\n"), 4)
}
