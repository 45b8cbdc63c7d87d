package simulation

import (
	"fmt"

	"github.com/nvandessel/epidash/internal/constants"
	"github.com/nvandessel/epidash/internal/models"
	"github.com/nvandessel/epidash/internal/trajectory"
)

// Simulate integrates model from S = 1 − initialInfected, I = initialInfected
// and returns the trajectory culled on the infected column.
//
// SIR uses Beta, Gamma and Mu; SEIR and SEIRS additionally use Sigma. The
// model label only selects the kernel and is recorded on the result; a
// non-zero Mu applies turnover whatever the label.
func Simulate(model models.ModelType, initialInfected float64, rates models.Rates, opts Options) (*trajectory.Trajectory, error) {
	if !model.Valid() {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedModel, model)
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if opts.Strict {
		if err := validateStrict(model, initialInfected, rates); err != nil {
			return nil, err
		}
	}

	n := opts.Steps()
	t := trajectory.New(model, n)
	for k := range t.Time {
		t.Time[k] = float64(k) * opts.Dt
	}
	t.S[0] = 1.0 - initialInfected
	t.I[0] = initialInfected

	if model.HasExposed() {
		integrateSEIR(t, rates, opts.Dt, opts.Exponential)
	} else {
		integrateSIR(t, rates, opts.Dt, opts.Exponential)
	}

	if opts.NoCull {
		return t, nil
	}
	return trajectory.Cull(t, constants.CullColumn, opts.cullOptions())
}

// RunSIR runs the SIR kernel with parameters keyed "beta", "gamma" and
// optionally "mu". A missing required key yields models.ErrMissingParameter.
func RunSIR(initialInfected float64, params map[string]float64, opts Options) (*trajectory.Trajectory, error) {
	rates, err := models.RatesFromMap(models.SIR, params)
	if err != nil {
		return nil, err
	}
	return Simulate(models.SIR, initialInfected, rates, opts)
}

// RunSEIR runs the SEIR kernel with parameters keyed "beta", "sigma",
// "gamma" and optionally "mu". A non-zero mu gives SEIRS dynamics.
func RunSEIR(initialInfected float64, params map[string]float64, opts Options) (*trajectory.Trajectory, error) {
	rates, err := models.RatesFromMap(models.SEIR, params)
	if err != nil {
		return nil, err
	}
	model := models.SEIR
	if rates.Mu > 0 {
		model = models.SEIRS
	}
	return Simulate(model, initialInfected, rates, opts)
}
