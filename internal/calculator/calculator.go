// Package calculator turns dashboard-style inputs (percent infected,
// average lifespan, a model label) into a simulated trajectory plus the
// titles and derived quantities shown next to it.
package calculator

import (
	"fmt"
	"math"

	"github.com/nvandessel/epidash/internal/constants"
	"github.com/nvandessel/epidash/internal/logging"
	"github.com/nvandessel/epidash/internal/models"
	"github.com/nvandessel/epidash/internal/simulation"
	"github.com/nvandessel/epidash/internal/trajectory"
)

// Title2 heads the new-infections panel for every model.
const Title2 = "New Infections"

// Request holds the inputs of one calculation.
type Request struct {
	Model models.ModelType `json:"model"`

	// InitialInfectedPercent is in percent (0-100).
	InitialInfectedPercent float64 `json:"i_0"`

	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
	Sigma float64 `json:"sigma"`

	// AverageAge sets mu = 1/AverageAge for SEIRS. SIR and SEIR ignore it.
	AverageAge float64 `json:"aa"`

	Dt          float64 `json:"dt"`
	MaxTime     float64 `json:"max_time"`
	Exponential bool    `json:"exponential"`

	Cull   *trajectory.CullOptions `json:"-"`
	NoCull bool                    `json:"no_cull,omitempty"`

	// Permissive lets negative rates and out-of-range fractions through to
	// the integrator.
	Permissive bool `json:"-"`
}

// NewRequest returns a Request with the default sliders for model.
func NewRequest(model models.ModelType) Request {
	return Request{
		Model:                  model,
		InitialInfectedPercent: constants.DefaultInitialInfectedPercent,
		Beta:                   constants.DefaultBeta,
		Gamma:                  constants.DefaultGamma,
		Sigma:                  constants.DefaultSigma,
		AverageAge:             constants.DefaultAverageAge,
		Dt:                     constants.DefaultDt,
		MaxTime:                constants.DefaultMaxTime,
	}
}

// Result is a simulated trajectory with its presentation metadata.
type Result struct {
	ModelType              models.ModelType       `json:"model"`
	Trajectory             *trajectory.Trajectory `json:"-"`
	Rates                  models.Rates           `json:"rates"`
	InitialInfectedPercent float64                `json:"i_0"`
	Title1                 string                 `json:"title1"`
	Title2                 string                 `json:"title2"`
	R0                     *float64               `json:"r0,omitempty"`
	AboveThreshold         bool                   `json:"above_threshold"`
	Summary                trajectory.Summary     `json:"summary"`
}

// Rates resolves the rate set the request simulates with.
func (r Request) Rates() models.Rates {
	rates := models.Rates{Beta: r.Beta, Gamma: r.Gamma}
	if r.Model.HasExposed() {
		rates.Sigma = r.Sigma
	}
	if r.Model.Turnover() {
		rates.Mu = models.MuFromAverageAge(r.AverageAge)
	}
	return rates
}

// Options converts the grid fields into simulation options, strict unless
// Permissive is set.
func (r Request) Options() simulation.Options {
	return simulation.Options{
		Dt:          r.Dt,
		MaxTime:     r.MaxTime,
		Exponential: r.Exponential,
		Strict:      !r.Permissive,
		Cull:        r.Cull,
		NoCull:      r.NoCull,
	}
}

// Calculate runs the simulator for req.
func Calculate(req Request) (*Result, error) {
	if !req.Model.Valid() {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedModel, req.Model)
	}

	rates := req.Rates()
	i0 := req.InitialInfectedPercent / 100
	t, err := simulation.Simulate(req.Model, i0, rates, req.Options())
	if err != nil {
		return nil, fmt.Errorf("calculating %s: %w", req.Model, err)
	}

	return &Result{
		ModelType:              req.Model,
		Trajectory:             t,
		Rates:                  rates,
		InitialInfectedPercent: req.InitialInfectedPercent,
		Title1:                 Title1(req.Model),
		Title2:                 Title2,
		R0:                     finiteR0(rates.R0()),
		AboveThreshold:         models.EpidemicThreshold(rates.Beta, rates.Gamma),
		Summary:                trajectory.Summarize(t),
	}, nil
}

// finiteR0 drops the infinite or NaN ratio a zero gamma produces, since
// JSON has no encoding for it.
func finiteR0(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// CalculateLabel parses label case-insensitively and calculates with it.
// Labels other than SIR, SEIR and SEIRS yield models.ErrUnsupportedModel.
func CalculateLabel(label string, req Request) (*Result, error) {
	m, err := models.ParseModelType(label)
	if err != nil {
		return nil, err
	}
	req.Model = m
	return Calculate(req)
}

// Title1 returns the compartment panel title for m.
func Title1(m models.ModelType) string {
	if m == models.SIR {
		return "Susceptible, Infectious, and Recovered Populations"
	}
	return m.String() + " Model Simulation"
}

// RunRecord describes req for the run log. Callers fill in the outcome.
func (r Request) RunRecord(source string) logging.RunRecord {
	return logging.RunRecord{
		Source:          source,
		Model:           r.Model.String(),
		InitialInfected: r.InitialInfectedPercent / 100,
		Rates:           r.Rates().ToMap(r.Model),
		Dt:              r.Dt,
		MaxTime:         r.MaxTime,
		Exponential:     r.Exponential,
	}
}
