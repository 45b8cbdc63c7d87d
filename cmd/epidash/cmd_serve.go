package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/nvandessel/epidash/internal/trajectory"
	"github.com/nvandessel/epidash/internal/visualization"
	"github.com/spf13/cobra"
)

func newAppsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apps",
		Short: "List the dashboard apps",
		RunE: func(cmd *cobra.Command, args []string) error {
			apps := make([]visualization.App, 0)
			for _, name := range visualization.ListApps() {
				app, err := visualization.LookupApp(name)
				if err != nil {
					return err
				}
				apps = append(apps, app)
			}

			if jsonOutput(cmd) {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(apps)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTABS\tDESCRIPTION")
			for _, app := range apps {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", app.Name, len(app.Tabs), app.Description)
			}
			return tw.Flush()
		},
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [app]",
		Short: "Serve an interactive dashboard",
		Long: `Start a local HTTP server for a dashboard app and open it in the browser.

Apps: sir_demo (default), model_comparison, multi_tab_dashboard.
Press Ctrl-C to stop.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			name := "sir_demo"
			if len(args) == 1 {
				name = args[0]
			}
			app, err := visualization.LookupApp(name)
			if err != nil {
				return err
			}

			addr := env.cfg.Server.Addr
			if cmd.Flags().Changed("addr") {
				addr, _ = cmd.Flags().GetString("addr")
			}
			noOpen, _ := cmd.Flags().GetBool("no-open")
			if !env.cfg.Server.OpenBrowser {
				noOpen = true
			}

			srv := visualization.NewServer(app, visualization.ServerConfig{
				Addr:        addr,
				MaxTime:     env.cfg.Simulation.MaxTime,
				Exponential: env.cfg.Simulation.Exponential,
				Strict:      env.cfg.Simulation.Strict,
				Cull: &trajectory.CullOptions{
					Threshold:  env.cfg.Cull.Threshold,
					ExtendTime: env.cfg.Cull.ExtendTime,
				},
				Logger: env.logger,
				RunLog: env.runLog,
			})
			return runDashboardServer(cmd, srv, noOpen)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from config, localhost:0 picks a free port)")
	cmd.Flags().Bool("no-open", false, "Don't open the dashboard in a browser")

	return cmd
}

func runDashboardServer(cmd *cobra.Command, srv *visualization.Server, noOpen bool) error {
	srvCtx, srvCancel := context.WithCancel(cmd.Context())
	defer srvCancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			srvCancel()
		case <-srvCtx.Done():
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(srvCtx) }()

	// Wait for server to start
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if srv.Addr() != "" {
			break
		}
		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}

	url := srv.URL()
	if url == "" {
		return fmt.Errorf("server failed to start")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Dashboard running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	if !noOpen {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	// Block until server exits
	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
