package trajectory

import (
	"errors"
	"fmt"
	"math"

	"github.com/nvandessel/epidash/internal/constants"
)

// ErrInvalidCullOptions is returned for a NaN threshold or a negative or NaN extension.
var ErrInvalidCullOptions = errors.New("trajectory: invalid cull options")

// CullOptions configures Cull.
type CullOptions struct {
	// Threshold is the minimum column value that counts as active.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// ExtendTime is how many time units to keep after the last active step.
	ExtendTime float64 `json:"extend_time" yaml:"extend_time"`
}

// DefaultCullOptions returns threshold 0.001 and a 5 time-unit tail.
func DefaultCullOptions() CullOptions {
	return CullOptions{
		Threshold:  constants.DefaultCullThreshold,
		ExtendTime: constants.DefaultCullExtendTime,
	}
}

// Validate checks the options for values Cull cannot act on.
func (o CullOptions) Validate() error {
	if math.IsNaN(o.Threshold) {
		return fmt.Errorf("%w: threshold is NaN", ErrInvalidCullOptions)
	}
	if o.ExtendTime < 0 || math.IsNaN(o.ExtendTime) {
		return fmt.Errorf("%w: extend_time=%g", ErrInvalidCullOptions, o.ExtendTime)
	}
	return nil
}

// Cull truncates t after the last row where column >= Threshold, keeping
// round(ExtendTime/dt) further rows but never more than t has.
//
// The original trajectory is returned unchanged when:
//   - it has fewer than two rows, or a non-increasing time axis (no step to infer);
//   - the column never reaches Threshold.
//
// A column the trajectory does not carry yields ErrMissingColumn. A NaN
// Threshold or a negative or NaN ExtendTime yields ErrInvalidCullOptions.
func Cull(t *Trajectory, column string, opts CullOptions) (*Trajectory, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	dt := t.Step()
	if !(dt > 0) || math.IsInf(dt, 0) {
		return t, nil
	}
	extend := int(math.RoundToEven(opts.ExtendTime / dt))

	last := -1
	for i, v := range values {
		if v >= opts.Threshold {
			last = i
		}
	}
	if last < 0 {
		return t, nil
	}

	keep := min(last+extend, t.Len()-1)
	if keep == t.Len()-1 {
		return t, nil
	}
	return t.Head(keep + 1), nil
}
