package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aretw0/turing"
	"github.com/aretw0/turing/internal/presentation/tui"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/machine"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a machine file until it halts",
	Long: `Loads a .tm, .yaml or .json machine, runs it headless from its start state
and prints the final tape. Exits 1 when the machine halts in a non-final state
or the step limit is reached.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxSteps, _ := cmd.Flags().GetInt("max-steps")
		if maxSteps <= 0 {
			maxSteps = cfg.Run.MaxSteps
		}

		m, err := turing.OpenFile(args[0], machine.WithLogger(logger))
		if err != nil {
			return err
		}

		start := time.Now()
		outcome, steps, err := m.Run(cmd.Context(), maxSteps)
		limited := errors.Is(err, domain.ErrStepLimit)
		if err != nil && !limited {
			return err
		}
		logger.Debug("Run finished", "file", args[0], "steps", steps, "outcome", outcome, "elapsed", time.Since(start))

		out := cmd.OutOrStdout()
		printView(out, m, outputWidth(cmd))
		if limited {
			return fmt.Errorf("stopped after %d steps: %w", steps, err)
		}
		fmt.Fprintf(out, "%s after %d steps\n", outcome, steps)
		if outcome == domain.HaltFailed {
			return errFailedHalt
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Int("max-steps", 0, "Step limit (defaults to run.max_steps from the config)")
}

// outputWidth is the terminal width when stdout is one, DefaultWidth otherwise.
func outputWidth(cmd *cobra.Command) int {
	if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return tui.TerminalWidth()
	}
	return tui.DefaultWidth
}

// windowView centres a window of cells on the head.
func windowView(m *machine.Machine, cells int) machine.View {
	head := m.View(0, 1).Head
	return m.View(head-cells/2, cells)
}

func printView(w io.Writer, m *machine.Machine, width int) {
	v := windowView(m, tui.CellsFor(width))
	profile := termenv.NewOutput(w).Profile
	fmt.Fprintln(w, tui.Strip(v, profile))
	fmt.Fprintln(w, tui.Status(v))
}
