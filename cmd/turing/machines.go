package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/turing/pkg/codec"
	"github.com/spf13/cobra"
)

var machinesCmd = &cobra.Command{
	Use:   "machines",
	Short: "Manage machines in the configured store",
	Long:  `List, inspect and remove machines persisted by serve and mcp.`,
}

var machinesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored machines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, closeStore, err := openStore(cfg.Store)
		if err != nil {
			return err
		}
		defer closeStore()

		ids, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing machines: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No stored machines found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	},
}

var machinesInspectCmd = &cobra.Command{
	Use:   "inspect <machine-id>",
	Short: "Print a stored machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("format")
		format, err := codec.ParseFormat(name)
		if err != nil {
			return err
		}

		store, _, closeStore, err := openStore(cfg.Store)
		if err != nil {
			return err
		}
		defer closeStore()

		snap, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading machine '%s': %w", args[0], err)
		}
		return codec.Encode(format, cmd.OutOrStdout(), snap)
	},
}

var machinesRmCmd = &cobra.Command{
	Use:   "rm <machine-id>...",
	Short: "Remove one or more machines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, closeStore, err := openStore(cfg.Store)
		if err != nil {
			return err
		}
		defer closeStore()

		var errs []error
		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed machine '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(machinesCmd)
	machinesCmd.AddCommand(machinesLsCmd)
	machinesCmd.AddCommand(machinesInspectCmd)
	machinesCmd.AddCommand(machinesRmCmd)

	machinesInspectCmd.Flags().String("format", "yaml", "Output format: tm, yaml or json")
}
