package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/nvandessel/epidash/internal/constants"
	"github.com/nvandessel/epidash/internal/simulation"
	"github.com/nvandessel/epidash/internal/trajectory"
	"github.com/nvandessel/epidash/internal/visualization"
	"github.com/spf13/cobra"
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run several scenarios and compare their outbreaks",
		Long: `Run a list of scenarios and print peak infection, peak time and final size.

Without --scenarios the built-in SIR, SEIR and SEIRS trio is run with
shared transmission and recovery rates. Scenario files are YAML:

  scenarios:
    - name: baseline
      model: SIR
      initial_infected: 0.01
      rates: {beta: 0.3, gamma: 0.1}
    - model: SEIRS
      initial_infected: 0.01
      rates: {beta: 0.6, sigma: 0.5, gamma: 0.2, mu: 0.0143}
      scheme: exponential`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			scenarios := simulation.DefaultScenarios()
			if path, _ := cmd.Flags().GetString("scenarios"); path != "" {
				scenarios, err = simulation.LoadScenarios(path)
				if err != nil {
					return err
				}
			}
			applyScenarioDefaults(env, scenarios)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			notifySignals(sigCh)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					cancel()
				case <-ctx.Done():
				}
			}()

			runner := simulation.NewRunner(env.logger, env.runLog, "compare")
			results, err := runner.Run(ctx, scenarios)
			if err != nil {
				return fmt.Errorf("compare interrupted after %d of %d scenarios: %w", len(results), len(scenarios), err)
			}

			if svgPath, _ := cmd.Flags().GetString("svg"); svgPath != "" {
				if err := writeComparisonSVG(svgPath, results); err != nil {
					return err
				}
			}

			if jsonOutput(cmd) {
				return writeCompareJSON(cmd.OutOrStdout(), results)
			}
			return writeCompareTable(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().String("scenarios", "", "YAML file with a top-level scenarios list")
	cmd.Flags().String("svg", "", "Render the infected curves of every successful scenario to this SVG file")

	return cmd
}

// applyScenarioDefaults fills the grid, scheme and culling of scenarios
// that leave them unset.
func applyScenarioDefaults(env *runtimeEnv, scenarios []simulation.Scenario) {
	for i := range scenarios {
		sc := &scenarios[i]
		if sc.Dt == 0 {
			sc.Dt = env.cfg.Simulation.Dt
		}
		if sc.MaxTime == 0 {
			sc.MaxTime = env.cfg.Simulation.MaxTime
		}
		if sc.Scheme == "" && env.cfg.Simulation.Exponential {
			sc.Scheme = constants.SchemeExponential
		}
		if sc.Cull == nil {
			sc.Cull = &trajectory.CullOptions{
				Threshold:  env.cfg.Cull.Threshold,
				ExtendTime: env.cfg.Cull.ExtendTime,
			}
		}
	}
}

type compareRow struct {
	Name    string             `json:"name"`
	Model   string             `json:"model"`
	RunID   string             `json:"run_id"`
	R0      *float64           `json:"r0,omitempty"`
	Summary trajectory.Summary `json:"summary"`
	Error   string             `json:"error,omitempty"`
}

func writeCompareJSON(w io.Writer, results []simulation.ScenarioResult) error {
	rows := make([]compareRow, 0, len(results))
	for _, r := range results {
		row := compareRow{
			Name:    r.Scenario.Name,
			Model:   r.Scenario.Model.String(),
			RunID:   r.RunID,
			Summary: r.Summary,
		}
		if r.Err != nil {
			row.Error = r.Err.Error()
		} else if r0 := r.R0; !math.IsNaN(r0) && !math.IsInf(r0, 0) {
			row.R0 = &r0
		}
		rows = append(rows, row)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"results": rows, "count": len(rows)})
}

func writeCompareTable(w io.Writer, results []simulation.ScenarioResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tMODEL\tR0\tPEAK I\tPEAK TIME\tFINAL S\tFINAL R\tSTEPS")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\t%s\terror: %v\n", r.Scenario.Name, r.Scenario.Model, r.Err)
			continue
		}
		s := r.Summary
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.4f\t%.2f\t%.4f\t%.4f\t%d\n",
			r.Scenario.Name, r.Scenario.Model, r.R0, s.PeakI, s.PeakITime, s.FinalS, s.FinalR, s.Steps)
	}
	return tw.Flush()
}

func writeComparisonSVG(path string, results []simulation.ScenarioResult) error {
	var ts []*trajectory.Trajectory
	for _, r := range results {
		if r.Err == nil {
			ts = append(ts, r.Trajectory)
		}
	}
	opts := visualization.DefaultChartOptions()
	svg, err := visualization.RenderComparisonSVG(ts, opts.Width, opts.Height)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, svg, 0644); err != nil {
		return fmt.Errorf("write comparison: %w", err)
	}
	return nil
}
