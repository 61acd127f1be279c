package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/turing"
	"github.com/aretw0/turing/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a machine file for consistency",
	Long: `Decodes the machine and reports a missing start state, transitions to unknown
states and duplicate state names as errors, and unreachable states and
states with more than one transition for the same symbol as warnings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := turing.ReadFile(args[0])
		if err != nil {
			return err
		}

		problems := validator.Validate(snap)
		out := cmd.OutOrStdout()
		for _, p := range problems {
			fmt.Fprintln(out, "- "+p.String())
		}
		if validator.HasErrors(problems) {
			return errors.New("validation failed")
		}
		fmt.Fprintln(out, "Machine is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
