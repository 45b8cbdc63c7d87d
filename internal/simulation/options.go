package simulation

import (
	"errors"
	"fmt"
	"math"

	"github.com/nvandessel/epidash/internal/constants"
	"github.com/nvandessel/epidash/internal/models"
	"github.com/nvandessel/epidash/internal/trajectory"
)

// ErrInvalidInput is returned for inputs the simulator refuses to integrate.
var ErrInvalidInput = errors.New("simulation: invalid input")

// Options controls the integration grid, the discretization and culling.
type Options struct {
	// Dt is the fixed step size. Zero selects constants.DefaultDt.
	Dt float64

	// MaxTime is the simulated horizon. Zero selects constants.DefaultMaxTime.
	MaxTime float64

	// Exponential selects the hazard form stock × (1 − exp(−rate × dt)).
	Exponential bool

	// Strict rejects negative rates and initial infected fractions outside
	// [0, 1]. Without it those inputs propagate into the trajectory.
	Strict bool

	// Cull overrides the culling threshold and tail; nil uses the defaults.
	Cull *trajectory.CullOptions

	// NoCull returns the full pre-allocated series.
	NoCull bool
}

// DefaultOptions returns dt 0.01, horizon 100, linear scheme, permissive inputs.
func DefaultOptions() Options {
	return Options{
		Dt:      constants.DefaultDt,
		MaxTime: constants.DefaultMaxTime,
	}
}

// withDefaults fills zero Dt and MaxTime and validates the grid.
func (o Options) withDefaults() (Options, error) {
	if o.Dt == 0 {
		o.Dt = constants.DefaultDt
	}
	if o.MaxTime == 0 {
		o.MaxTime = constants.DefaultMaxTime
	}
	if !(o.Dt > 0) || math.IsInf(o.Dt, 0) {
		return o, fmt.Errorf("%w: dt must be positive and finite, got %g", ErrInvalidInput, o.Dt)
	}
	if !(o.MaxTime > 0) || math.IsInf(o.MaxTime, 0) {
		return o, fmt.Errorf("%w: max_time must be positive and finite, got %g", ErrInvalidInput, o.MaxTime)
	}
	return o, nil
}

// Steps returns the number of rows the grid allocates: floor(MaxTime/Dt), at least 1.
func (o Options) Steps() int {
	n := int(o.MaxTime / o.Dt)
	if n < 1 {
		return 1
	}
	return n
}

// cullOptions resolves the culling configuration.
func (o Options) cullOptions() trajectory.CullOptions {
	if o.Cull != nil {
		return *o.Cull
	}
	return trajectory.DefaultCullOptions()
}

// validateStrict checks the epidemiological inputs when Strict is set.
func validateStrict(model models.ModelType, initialInfected float64, rates models.Rates) error {
	if !(initialInfected >= 0 && initialInfected <= 1) {
		return fmt.Errorf("%w: initial infected fraction must be in [0, 1], got %g", ErrInvalidInput, initialInfected)
	}
	if err := rates.Validate(model); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}
