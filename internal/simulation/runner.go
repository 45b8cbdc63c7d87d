package simulation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/epidash/internal/logging"
	"github.com/nvandessel/epidash/internal/trajectory"
)

// ScenarioResult captures the outcome of one scenario.
type ScenarioResult struct {
	RunID      string                 `json:"run_id"`
	Scenario   Scenario               `json:"scenario"`
	Trajectory *trajectory.Trajectory `json:"-"`
	Summary    trajectory.Summary     `json:"summary"`
	R0         float64                `json:"r0"`
	Err        error                  `json:"-"`
}

// Runner executes scenarios sequentially and records each run.
type Runner struct {
	logger *slog.Logger
	runLog *logging.RunLogger
	source string
}

// NewRunner creates a runner. A nil logger discards operational output;
// a nil run logger disables run tracing.
func NewRunner(logger *slog.Logger, runLog *logging.RunLogger, source string) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{logger: logger, runLog: runLog, source: source}
}

// Run executes every scenario in order. Per-scenario failures are reported
// in ScenarioResult.Err; the returned error is non-nil only when ctx is
// cancelled, in which case the results gathered so far are returned.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) ([]ScenarioResult, error) {
	results := make([]ScenarioResult, 0, len(scenarios))
	for _, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, r.RunOne(sc))
	}
	return results, nil
}

// RunOne executes a single scenario.
func (r *Runner) RunOne(sc Scenario) ScenarioResult {
	res := ScenarioResult{
		RunID:    uuid.NewString(),
		Scenario: sc,
		R0:       sc.Rates.R0(),
	}
	opts := sc.Options()
	if resolved, err := opts.withDefaults(); err == nil {
		opts = resolved
	}
	start := time.Now()

	if err := sc.Validate(); err != nil {
		res.Err = err
	} else {
		res.Trajectory, res.Err = Simulate(sc.Model, sc.InitialInfected, sc.Rates, opts)
	}
	elapsed := time.Since(start)

	rec := logging.RunRecord{
		RunID:           res.RunID,
		Source:          r.source,
		Name:            sc.Name,
		Model:           sc.Model.String(),
		InitialInfected: sc.InitialInfected,
		Rates:           sc.Rates.ToMap(sc.Model),
		Dt:              opts.Dt,
		MaxTime:         opts.MaxTime,
		Exponential:     opts.Exponential,
		DurationMs:      elapsed.Milliseconds(),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
		r.logger.Warn("scenario failed", "scenario", sc.Name, "model", sc.Model.String(), "error", res.Err)
	} else {
		res.Summary = trajectory.Summarize(res.Trajectory)
		rec.Steps = res.Trajectory.Len()
		r.logger.Debug("scenario complete",
			"scenario", sc.Name,
			"model", sc.Model.String(),
			"steps", rec.Steps,
			"peak_i", res.Summary.PeakI,
			"duration", elapsed)
	}
	r.runLog.Log(rec)
	return res
}
