package simulation

import (
	"math"
	"testing"

	"github.com/nvandessel/epidash/internal/models"
	"github.com/nvandessel/epidash/internal/trajectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uncut(dt, maxTime float64) Options {
	return Options{Dt: dt, MaxTime: maxTime, NoCull: true}
}

func TestSimulate_InitialConditions(t *testing.T) {
	for _, model := range models.AllModels {
		t.Run(model.String(), func(t *testing.T) {
			for _, i0 := range []float64{0.001, 0.01, 0.5, 1.0} {
				rates := models.Rates{Beta: 0.4, Sigma: 0.3, Gamma: 0.1, Mu: 0.01}
				tr, err := Simulate(model, i0, rates, uncut(0.1, 10))
				require.NoError(t, err)

				assert.Equal(t, 1-i0, tr.S[0])
				assert.Equal(t, i0, tr.I[0])
				assert.Equal(t, 0.0, tr.R[0])
				assert.Equal(t, 0.0, tr.NewI[0])
				assert.Equal(t, 0.0, tr.NewR[0])
				if model.HasExposed() {
					assert.Equal(t, 0.0, tr.E[0])
					assert.Equal(t, 0.0, tr.NewE[0])
				}
			}
		})
	}
}

func TestSimulate_TimeAxis(t *testing.T) {
	for _, dt := range []float64{0.01, 0.05, 0.1, 0.25, 1} {
		tr, err := Simulate(models.SIR, 0.01, models.Rates{Beta: 0.3, Gamma: 0.1}, uncut(dt, 20))
		require.NoError(t, err)
		assert.Equal(t, int(20/dt), tr.Len())
		AssertTimeAxis(t, tr, dt)
	}
}

func TestSimulate_ConservationWithTurnover(t *testing.T) {
	tests := []struct {
		name        string
		model       models.ModelType
		rates       models.Rates
		exponential bool
	}{
		{"sir linear", models.SIR, models.Rates{Beta: 0.5, Gamma: 0.1, Mu: 0.02}, false},
		{"seirs linear", models.SEIRS, models.Rates{Beta: 1, Sigma: 1, Gamma: 0.2, Mu: 1.0 / 70}, false},
		{"seirs exponential", models.SEIRS, models.Rates{Beta: 1, Sigma: 1, Gamma: 0.2, Mu: 1.0 / 70}, true},
		{"sir exponential large dt", models.SIR, models.Rates{Beta: 5, Gamma: 1, Mu: 0.1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := uncut(0.01, 100)
			opts.Exponential = tt.exponential
			tr, err := Simulate(tt.model, 0.01, tt.rates, opts)
			require.NoError(t, err)
			AssertConserved(t, tr, 1e-9)
		})
	}
}

func TestSimulate_ExponentialStaysBounded(t *testing.T) {
	rates := models.Rates{Beta: 5, Gamma: 1}
	linear, err := Simulate(models.SIR, 0.01, rates, uncut(1.0, 20))
	require.NoError(t, err)
	assert.Less(t, trajectory.Summarize(linear).MinCompartment, 0.0, "linear scheme overshoots at dt=1, beta=5")

	opts := uncut(1.0, 20)
	opts.Exponential = true
	exp, err := Simulate(models.SIR, 0.01, rates, opts)
	require.NoError(t, err)
	AssertBounded(t, exp, 0)
}

func TestSimulate_ExponentialBoundedAcrossRates(t *testing.T) {
	// Without turnover every compartment has a single outflow, which the
	// hazard form caps at the available stock.
	for _, dt := range []float64{0.1, 0.5, 2} {
		for _, beta := range []float64{0.5, 3, 10} {
			opts := uncut(dt, 40)
			opts.Exponential = true
			tr, err := Simulate(models.SEIR, 0.05, models.Rates{Beta: beta, Sigma: 4, Gamma: 3}, opts)
			require.NoError(t, err)
			AssertBounded(t, tr, 1e-12)
		}
	}
}

func TestSimulate_EndToEndSIR(t *testing.T) {
	rates := models.Rates{Beta: 0.3, Gamma: 0.1}
	opts := Options{Dt: 0.01, MaxTime: 50}

	tr, err := Simulate(models.SIR, 0.01, rates, opts)
	require.NoError(t, err)
	s := trajectory.Summarize(tr)
	assert.Greater(t, s.PeakI, 0.01, "R0 = 3 grows the epidemic")
	assert.Greater(t, s.FinalR, 0.0)
	assert.Less(t, s.FinalR, 1.0)
	assert.LessOrEqual(t, tr.Len(), int(50/0.01))

	// Over a longer horizon the tail falls below the threshold and is cut.
	opts.MaxTime = 200
	long, err := Simulate(models.SIR, 0.01, rates, opts)
	require.NoError(t, err)
	assert.Less(t, long.Len(), int(200/0.01))
	ls := trajectory.Summarize(long)
	assert.Greater(t, ls.FinalR, 0.9)
	assert.Less(t, ls.FinalR, 1.0)
}

func TestSimulate_SEIRExposedPeaksFirst(t *testing.T) {
	tests := []models.Rates{
		{Beta: 1, Sigma: 0.5, Gamma: 0.2},
		{Beta: 0.5, Sigma: 1, Gamma: 0.2},
		{Beta: 2, Sigma: 0.25, Gamma: 0.5},
	}
	for _, rates := range tests {
		tr, err := Simulate(models.SEIR, 0.01, rates, DefaultOptions())
		require.NoError(t, err)
		AssertPeakBefore(t, tr, "E", "I")
	}
}

func TestSimulate_CullFallback(t *testing.T) {
	// Without transmission the infected fraction only decays and never
	// reaches the 0.001 threshold.
	tr, err := Simulate(models.SIR, 0.0005, models.Rates{Beta: 0, Gamma: 0.1}, Options{Dt: 0.01, MaxTime: 10})
	require.NoError(t, err)
	assert.Equal(t, 1000, tr.Len())
}

func TestSimulate_CullIdempotent(t *testing.T) {
	tr, err := Simulate(models.SEIR, 0.01, models.Rates{Beta: 0.6, Sigma: 0.5, Gamma: 0.2}, DefaultOptions())
	require.NoError(t, err)
	require.Less(t, tr.Len(), 10000)

	again, err := trajectory.Cull(tr, "I", trajectory.DefaultCullOptions())
	require.NoError(t, err)
	assert.Equal(t, tr.Len(), again.Len())
}

func TestSimulate_CustomCull(t *testing.T) {
	rates := models.Rates{Beta: 0.6, Gamma: 0.2}
	def, err := Simulate(models.SIR, 0.01, rates, DefaultOptions())
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Cull = &trajectory.CullOptions{Threshold: 0.01, ExtendTime: 0}
	tight, err := Simulate(models.SIR, 0.01, rates, opts)
	require.NoError(t, err)
	assert.Less(t, tight.Len(), def.Len())
}

func TestSimulate_GridEdgeCases(t *testing.T) {
	tr, err := Simulate(models.SIR, 0.01, models.Rates{Beta: 1, Gamma: 1}, Options{Dt: 1, MaxTime: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Len(), "horizon shorter than one step keeps the initial row")

	for _, opts := range []Options{
		{Dt: -0.1, MaxTime: 10},
		{Dt: math.NaN(), MaxTime: 10},
		{Dt: 0.1, MaxTime: -1},
		{Dt: 0.1, MaxTime: math.Inf(1)},
	} {
		_, err := Simulate(models.SIR, 0.01, models.Rates{Beta: 1, Gamma: 1}, opts)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestSimulate_ZeroOptionsUseDefaults(t *testing.T) {
	tr, err := Simulate(models.SIR, 0.01, models.Rates{Beta: 0.3, Gamma: 0.1}, Options{NoCull: true})
	require.NoError(t, err)
	assert.Equal(t, 10000, tr.Len())
	assert.Equal(t, 0.01, tr.Step())
}

func TestSimulate_StrictValidation(t *testing.T) {
	strict := Options{Strict: true}
	tests := []struct {
		name  string
		i0    float64
		rates models.Rates
	}{
		{"negative infected", -0.01, models.Rates{Beta: 1, Gamma: 1}},
		{"infected above one", 1.5, models.Rates{Beta: 1, Gamma: 1}},
		{"negative beta", 0.01, models.Rates{Beta: -1, Gamma: 1}},
		{"nan gamma", 0.01, models.Rates{Beta: 1, Gamma: math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Simulate(models.SIR, tt.i0, tt.rates, strict)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSimulate_StrictAcceptsZeroInfected(t *testing.T) {
	tr, err := Simulate(models.SIR, 0, models.Rates{Beta: 1, Gamma: 1}, Options{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, 10000, tr.Len(), "nothing crosses the threshold, so the full series is kept")

	i, err := tr.Column("I")
	require.NoError(t, err)
	for k, v := range i {
		require.Zero(t, v, "I[%d]", k)
	}
}

func TestSimulate_PermissiveByDefault(t *testing.T) {
	// Out-of-range inputs propagate instead of failing.
	tr, err := Simulate(models.SIR, 0, models.Rates{Beta: 1, Gamma: 1}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 10000, tr.Len(), "zero infection never crosses the threshold")

	_, err = Simulate(models.SIR, 0.01, models.Rates{Beta: -1, Gamma: 1}, DefaultOptions())
	assert.NoError(t, err)
}

func TestSimulate_UnsupportedModel(t *testing.T) {
	_, err := Simulate(models.ModelType(42), 0.01, models.Rates{Beta: 1, Gamma: 1}, DefaultOptions())
	assert.ErrorIs(t, err, models.ErrUnsupportedModel)
}

func TestRunSIR_MissingParameter(t *testing.T) {
	_, err := RunSIR(0.01, map[string]float64{"beta": 0.3}, DefaultOptions())
	require.ErrorIs(t, err, models.ErrMissingParameter)
	assert.Contains(t, err.Error(), "gamma")
}

func TestRunSEIR_MissingParameter(t *testing.T) {
	_, err := RunSEIR(0.01, map[string]float64{"beta": 0.3, "gamma": 0.1}, DefaultOptions())
	require.ErrorIs(t, err, models.ErrMissingParameter)
	assert.Contains(t, err.Error(), "sigma")
}

func TestRunSEIR_TurnoverLabelsSEIRS(t *testing.T) {
	tr, err := RunSEIR(0.01, map[string]float64{"beta": 1, "sigma": 1, "gamma": 0.2, "mu": 0.01}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, models.SEIRS, tr.Model)

	tr, err = RunSEIR(0.01, map[string]float64{"beta": 1, "sigma": 1, "gamma": 0.2}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, models.SEIR, tr.Model)
}

func TestRunSIR_MatchesSimulate(t *testing.T) {
	a, err := RunSIR(0.02, map[string]float64{"beta": 0.4, "gamma": 0.1, "mu": 0.01}, DefaultOptions())
	require.NoError(t, err)
	b, err := Simulate(models.SIR, 0.02, models.Rates{Beta: 0.4, Gamma: 0.1, Mu: 0.01}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, a.I, b.I)
}

func TestFlow(t *testing.T) {
	assert.InDelta(t, 0.05, flow(0.5, 1, 0.1, false), 1e-15)
	assert.InDelta(t, 1-math.Exp(-0.05), flow(0.5, 1, 0.1, true), 1e-15)
	assert.Equal(t, 0.0, flow(0, 0.7, 0.1, true))
	// The hazard form never drains more than the stock.
	assert.LessOrEqual(t, flow(1000, 0.3, 1, true), 0.3)
	assert.Greater(t, flow(1000, 0.3, 1, false), 0.3)
}
