package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/turing/internal/config"
	"github.com/aretw0/turing/internal/logging"
	"github.com/spf13/cobra"
)

// Set by the root PersistentPreRunE before any command runs.
var (
	cfg    = config.Default()
	logger = logging.NewNop()
)

// errFailedHalt makes the process exit 1 without an extra message.
var errFailedHalt = errors.New("machine halted in a non-final state")

var rootCmd = &cobra.Command{
	Use:   "turing",
	Short: "Turing is a Turing machine simulator core",
	Long: `Turing edits, runs and scrubs Turing machines.

Machines are read from .tm (XML), .yaml or .json files, run headless from the
command line, or served over HTTP and MCP for interactive front ends.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailedHalt) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (defaults to $"+config.EnvPath+")")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

func setup(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		loaded.LogLevel = lvl
	}

	level, err := logging.ParseLevel(loaded.LogLevel)
	if err != nil {
		return err
	}
	cfg = loaded
	logger = logging.NewWithWriter(cmd.ErrOrStderr(), level)
	slog.SetDefault(logger)
	return nil
}
