package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nvandessel/epidash/internal/config"
	"github.com/nvandessel/epidash/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "epidash",
		Short: "Compartmental epidemic simulations and dashboards",
		Long: `epidash runs SIR, SEIR and SEIRS epidemic models on a fixed time grid.

It exports trajectories as CSV, JSON, Arrow or text tables, serves
interactive dashboards with linked sliders, and exposes the simulators
as MCP tools for agents.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newCompareCmd(),
		newR0Cmd(),
		newAppsCmd(),
		newServeCmd(),
		newMCPServerCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// runtimeEnv bundles the configuration and loggers a command runs with.
type runtimeEnv struct {
	cfg    *config.EpidashConfig
	logger *slog.Logger
	runLog *logging.RunLogger
}

// loadEnv loads the layered config and builds the loggers for cmd.
// Operational logs go to stderr; run traces go to runs.jsonl at debug level and up.
func loadEnv(cmd *cobra.Command) (*runtimeEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &runtimeEnv{
		cfg:    cfg,
		logger: logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
		runLog: logging.NewRunLogger(cfg.RunLogDir(), cfg.Logging.Level),
	}, nil
}

func (e *runtimeEnv) Close() {
	e.runLog.Close()
}

func jsonOutput(cmd *cobra.Command) bool {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return jsonOut
}
