package main

import (
	"fmt"

	"github.com/aretw0/turing"
	"github.com/aretw0/turing/internal/presentation/tui"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/machine"
	"github.com/spf13/cobra"
)

var traceCmd = &cobra.Command{
	Use:   "trace <file>",
	Short: "Print the tape after every step of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxSteps, _ := cmd.Flags().GetInt("max-steps")
		if maxSteps <= 0 {
			maxSteps = cfg.Run.MaxSteps
		}
		cells, _ := cmd.Flags().GetInt("cells")
		if cells <= 0 {
			cells = cfg.Tape.Window
		}

		m, err := turing.OpenFile(args[0], machine.WithLogger(logger))
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err := m.EnterRunMode(ctx); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		width := cells*4 + 1
		printView(out, m, width)
		for steps := 0; ; steps++ {
			if steps >= maxSteps {
				return fmt.Errorf("stopped after %d steps: %w", steps, domain.ErrStepLimit)
			}
			moved, outcome, err := m.StepForward(ctx)
			if err != nil {
				return err
			}
			if !moved {
				fmt.Fprintf(out, "%s after %d steps\n", outcome, steps)
				if outcome == domain.HaltFailed {
					return errFailedHalt
				}
				return nil
			}
			fmt.Fprintln(out)
			printView(out, m, width)
		}
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.Flags().Int("max-steps", 0, "Step limit (defaults to run.max_steps from the config)")
	traceCmd.Flags().Int("cells", 0, "Tape cells per line (defaults to tape.window from the config)")
}
