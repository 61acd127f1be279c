package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/turing"
	"github.com/aretw0/turing/internal/presentation/graph"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/machine"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Export the machine as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph LR) of the machine's states and transitions.
With --run the machine is run first and the visited states are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := turing.ReadFile(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if run, _ := cmd.Flags().GetBool("run"); run {
			overlay, err = runOverlay(cmd.Context(), snap)
			if err != nil {
				return err
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(snap, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("run", false, "Run the machine and highlight the visited states")
}

// runOverlay runs snap to its halt and collects the states it passed
// through, in order of first visit.
func runOverlay(ctx context.Context, snap *domain.Snapshot) (*graph.Overlay, error) {
	m, err := machine.Open(snap, machine.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if _, _, err := m.Run(ctx, cfg.Run.MaxSteps); err != nil && !errors.Is(err, domain.ErrStepLimit) {
		return nil, err
	}

	overlay := &graph.Overlay{}
	seen := make(map[string]bool)
	for _, step := range m.History() {
		st, ok := m.State(step.StateID)
		if !ok || seen[st.Name] {
			continue
		}
		seen[st.Name] = true
		overlay.Visited = append(overlay.Visited, st.Name)
	}
	overlay.Current = m.View(0, 1).CurrentState
	return overlay, nil
}
