package main

import (
	"fmt"

	"github.com/aretw0/turing"
	"github.com/aretw0/turing/pkg/machine"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Re-encode a machine file",
	Long: `Reads <in> and writes it to <out>, choosing both formats by extension
(.tm, .yaml/.yml or .json). The machine is loaded in between, so invalid
machines are rejected and names are normalized.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := turing.OpenFile(args[0], machine.WithLogger(logger))
		if err != nil {
			return err
		}
		if err := turing.SaveFile(args[1], m); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
}
