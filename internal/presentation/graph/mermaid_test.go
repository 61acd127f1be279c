package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/turing/internal/presentation/graph"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/sebdah/goldie/v2"
)

func flip() *domain.Snapshot {
	return &domain.Snapshot{
		Tape:       "aab",
		StartState: "q0",
		States: []domain.StateSpec{
			{
				Name: "q0",
				Transitions: []domain.TransitionSpec{
					{Read: "a", Write: "b", To: "q0", Direction: domain.Right},
					{Read: "b", Write: "a", To: "q0", Direction: domain.Right},
					{Read: "_", Write: "_", To: "done", Direction: domain.Left},
				},
			},
			{Name: "done", Final: true},
		},
	}
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestGenerateMermaid_Golden(t *testing.T) {
	g := golden(t)
	g.Assert(t, "flip", []byte(graph.GenerateMermaid(flip(), nil)))

	overlay := &graph.Overlay{Visited: []string{"q0", "q0", "done"}, Current: "done"}
	g.Assert(t, "flip_overlay", []byte(graph.GenerateMermaid(flip(), overlay)))
}

func TestGenerateMermaid_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		snap     *domain.Snapshot
		contains []string
		excludes []string
	}{
		{
			name: "plain state",
			snap: &domain.Snapshot{States: []domain.StateSpec{{Name: "q"}}},
			contains: []string{
				`s0("q")`,
			},
		},
		{
			name: "final start",
			snap: &domain.Snapshot{StartState: "q", States: []domain.StateSpec{{Name: "q", Final: true}}},
			contains: []string{
				`s0((("q")))`,
			},
		},
		{
			name: "quoted name",
			snap: &domain.Snapshot{States: []domain.StateSpec{{Name: `a"b`}}},
			contains: []string{
				`s0("a'b")`,
			},
		},
		{
			name: "dangling transition",
			snap: &domain.Snapshot{States: []domain.StateSpec{{
				Name:        "q",
				Transitions: []domain.TransitionSpec{{Read: "a", Write: "a", To: "ghost", Direction: domain.Left}},
			}}},
			excludes: []string{"-->"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(tt.snap, nil)
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(out, bad) {
					t.Errorf("output contains %q:\n%s", bad, out)
				}
			}
		})
	}
}
