package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/epidash/internal/calculator"
	"github.com/nvandessel/epidash/internal/constants"
	"github.com/nvandessel/epidash/internal/export"
	"github.com/nvandessel/epidash/internal/logging"
	"github.com/nvandessel/epidash/internal/models"
	"github.com/nvandessel/epidash/internal/trajectory"
	"github.com/nvandessel/epidash/internal/visualization"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate [SIR|SEIR|SEIRS]",
		Short: "Run one model and export its trajectory",
		Long: `Run an SIR, SEIR or SEIRS model and write the culled trajectory.

The trajectory goes to stdout, or to --output, in the selected format.
A one-line summary is printed to stderr; with --json the summary and
the trajectory are printed as one JSON object instead.

Examples:
  epidash simulate SIR --beta 0.6 --gamma 0.2
  epidash simulate SEIRS --beta 0.6 --sigma 0.5 --gamma 0.2 --aa 70 --format csv -o seirs.csv
  epidash simulate SEIR --format arrow -o seir.arrow --svg seir.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			label, _ := cmd.Flags().GetString("model")
			if len(args) == 1 {
				label = args[0]
			}
			m, err := models.ParseModelType(label)
			if err != nil {
				return err
			}
			formatName, _ := cmd.Flags().GetString("format")
			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}
			every, _ := cmd.Flags().GetInt("every")
			if every < 1 {
				return fmt.Errorf("--every must be at least 1, got %d", every)
			}

			req := simulateRequest(cmd, env, m)
			runID, res, err := runCalculation(env, req)
			if err != nil {
				return err
			}
			t := res.Trajectory.Sample(every)

			output, _ := cmd.Flags().GetString("output")
			svgPath, _ := cmd.Flags().GetString("svg")
			if svgPath != "" {
				svg, err := visualization.RenderSVG(res.Trajectory, visualization.ChartOptions{
					Title:             res.Title1,
					Width:             visualization.DefaultChartOptions().Width,
					Height:            visualization.DefaultChartOptions().Height,
					ShowNewInfections: true,
				})
				if err != nil {
					return fmt.Errorf("render chart: %w", err)
				}
				if err := os.WriteFile(svgPath, svg, 0644); err != nil {
					return fmt.Errorf("write chart: %w", err)
				}
			}

			if jsonOutput(cmd) {
				return writeSimulateJSON(cmd, runID, res, t, format, output)
			}

			if err := writeTrajectory(cmd.OutOrStdout(), output, format, t); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), summaryLine(res))
			return nil
		},
	}

	cmd.Flags().String("model", "SIR", "Model: SIR, SEIR or SEIRS")
	cmd.Flags().Float64("i0", constants.DefaultInitialInfectedPercent, "Initial infected, in percent of the population")
	cmd.Flags().Float64("beta", constants.DefaultBeta, "Transmission rate")
	cmd.Flags().Float64("gamma", constants.DefaultGamma, "Recovery rate")
	cmd.Flags().Float64("sigma", constants.DefaultSigma, "Incubation rate (SEIR, SEIRS)")
	cmd.Flags().Float64("aa", constants.DefaultAverageAge, "Average lifespan, mu = 1/aa (SEIRS)")
	cmd.Flags().Float64("dt", 0, "Time step (default from config)")
	cmd.Flags().Float64("max-time", 0, "Simulated horizon (default from config)")
	cmd.Flags().Bool("exponential", false, "Use the exponential hazard scheme")
	cmd.Flags().Bool("no-cull", false, "Keep the full series instead of culling the burned-out tail")
	cmd.Flags().StringP("format", "f", string(export.FormatTable), "Output format: csv, json, arrow, table")
	cmd.Flags().StringP("output", "o", "", "Write the trajectory to a file instead of stdout")
	cmd.Flags().Int("every", 1, "Write every n-th row (the last row is always kept)")
	cmd.Flags().String("svg", "", "Also render the chart to this SVG file")

	return cmd
}

// simulateRequest builds a calculator request from flags, filling the grid
// and cull settings from config when the flags are unset.
func simulateRequest(cmd *cobra.Command, env *runtimeEnv, m models.ModelType) calculator.Request {
	req := calculator.NewRequest(m)
	req.InitialInfectedPercent, _ = cmd.Flags().GetFloat64("i0")
	req.Beta, _ = cmd.Flags().GetFloat64("beta")
	req.Gamma, _ = cmd.Flags().GetFloat64("gamma")
	req.Sigma, _ = cmd.Flags().GetFloat64("sigma")
	req.AverageAge, _ = cmd.Flags().GetFloat64("aa")

	req.Dt = env.cfg.Simulation.Dt
	if cmd.Flags().Changed("dt") {
		req.Dt, _ = cmd.Flags().GetFloat64("dt")
	}
	req.MaxTime = env.cfg.Simulation.MaxTime
	if cmd.Flags().Changed("max-time") {
		req.MaxTime, _ = cmd.Flags().GetFloat64("max-time")
	}
	req.Exponential = env.cfg.Simulation.Exponential
	if cmd.Flags().Changed("exponential") {
		req.Exponential, _ = cmd.Flags().GetBool("exponential")
	}
	req.NoCull, _ = cmd.Flags().GetBool("no-cull")
	req.Cull = &trajectory.CullOptions{
		Threshold:  env.cfg.Cull.Threshold,
		ExtendTime: env.cfg.Cull.ExtendTime,
	}
	req.Permissive = !env.cfg.Simulation.Strict
	return req
}

// runCalculation calculates req and records the run.
func runCalculation(env *runtimeEnv, req calculator.Request) (string, *calculator.Result, error) {
	rec := req.RunRecord("cli")
	rec.RunID = uuid.NewString()
	start := time.Now()
	res, err := calculator.Calculate(req)
	elapsed := time.Since(start)
	rec.DurationMs = elapsed.Milliseconds()

	if err != nil {
		rec.Error = err.Error()
		env.runLog.Log(rec)
		return "", nil, err
	}
	rec.Steps = res.Trajectory.Len()
	env.runLog.Log(rec)
	env.logger.Debug("simulation complete",
		"run_id", rec.RunID,
		"model", req.Model.String(),
		"steps", rec.Steps,
		"duration", elapsed)
	env.logger.Log(context.Background(), logging.LevelTrace, "simulation rates", "run_id", rec.RunID, "rates", rec.Rates)
	return rec.RunID, res, nil
}

// writeTrajectory writes t to path, or to w when path is empty.
func writeTrajectory(w io.Writer, path string, format export.Format, t *trajectory.Trajectory) error {
	if path == "" {
		return export.Write(w, format, t)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := export.Write(f, format, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// simulateJSON is the --json output of simulate. Trajectory is omitted when
// it was written to a file.
type simulateJSON struct {
	RunID      string             `json:"run_id"`
	Result     *calculator.Result `json:"result"`
	Output     string             `json:"output,omitempty"`
	Trajectory *export.Document   `json:"trajectory,omitempty"`
}

func writeSimulateJSON(cmd *cobra.Command, runID string, res *calculator.Result, t *trajectory.Trajectory, format export.Format, output string) error {
	out := simulateJSON{RunID: runID, Result: res}
	if output != "" {
		if err := writeTrajectory(nil, output, format, t); err != nil {
			return err
		}
		out.Output = output
	} else {
		doc, err := export.NewDocument(t)
		if err != nil {
			return err
		}
		out.Trajectory = &doc
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func summaryLine(res *calculator.Result) string {
	s := res.Summary
	r0 := "undefined"
	if res.R0 != nil {
		r0 = fmt.Sprintf("%.2f", *res.R0)
	}
	return fmt.Sprintf("%s: R0=%s, peak I %.4f at t=%.2f, final S %.4f, final R %.4f, %d steps to t=%.2f",
		res.ModelType, r0, s.PeakI, s.PeakITime, s.FinalS, s.FinalR, s.Steps, s.Duration)
}

func newR0Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "r0 <beta> <gamma>",
		Short: "Compute the basic reproduction number beta/gamma",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			beta, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid beta %q: %w", args[0], err)
			}
			gamma, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid gamma %q: %w", args[1], err)
			}
			if !(gamma > 0) {
				return fmt.Errorf("gamma must be positive, got %g", gamma)
			}

			r0 := models.BasicReproductionNumber(beta, gamma)
			above := models.EpidemicThreshold(beta, gamma)
			if jsonOutput(cmd) {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"beta":            beta,
					"gamma":           gamma,
					"r0":              r0,
					"above_threshold": above,
				})
			}
			verdict := "below threshold, the outbreak dies out"
			if above {
				verdict = "above threshold, an epidemic can grow"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "R0 = %.4g (%s)\n", r0, verdict)
			return nil
		},
	}
}
