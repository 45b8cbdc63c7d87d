package trajectory

import (
	"errors"
	"fmt"

	"github.com/nvandessel/epidash/internal/models"
)

// ErrMissingColumn is returned when a named column is not part of the trajectory.
var ErrMissingColumn = errors.New("trajectory: column not found")

// TimeColumn is the name of the time axis.
const TimeColumn = "time"

// Trajectory is an ordered table of simulation results, one row per step.
// It is treated as immutable once returned by a simulator.
type Trajectory struct {
	Model models.ModelType

	Time []float64

	S []float64
	E []float64 // nil unless Model.HasExposed()
	I []float64
	R []float64

	NewE []float64 // nil unless Model.HasExposed()
	NewI []float64
	NewR []float64
}

// New allocates a zeroed trajectory with n rows for the given model.
func New(model models.ModelType, n int) *Trajectory {
	if n < 0 {
		n = 0
	}
	t := &Trajectory{
		Model: model,
		Time:  make([]float64, n),
		S:     make([]float64, n),
		I:     make([]float64, n),
		R:     make([]float64, n),
		NewI:  make([]float64, n),
		NewR:  make([]float64, n),
	}
	if model.HasExposed() {
		t.E = make([]float64, n)
		t.NewE = make([]float64, n)
	}
	return t
}

// Len returns the number of rows.
func (t *Trajectory) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Time)
}

// Columns returns all column names in table order, starting with "time".
func (t *Trajectory) Columns() []string {
	cols := []string{TimeColumn}
	cols = append(cols, t.Model.Compartments()...)
	return append(cols, t.Model.FlowColumns()...)
}

// Has reports whether name is a column of this trajectory.
func (t *Trajectory) Has(name string) bool {
	_, err := t.Column(name)
	return err == nil
}

// Column returns the backing slice for a named column.
// Callers must not modify the returned slice.
func (t *Trajectory) Column(name string) ([]float64, error) {
	exposed := t.Model.HasExposed()
	switch name {
	case TimeColumn:
		return t.Time, nil
	case "S":
		return t.S, nil
	case "I":
		return t.I, nil
	case "R":
		return t.R, nil
	case "newI":
		return t.NewI, nil
	case "newR":
		return t.NewR, nil
	case "E":
		if exposed {
			return t.E, nil
		}
	case "newE":
		if exposed {
			return t.NewE, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
}

// Row returns row i keyed by column name.
func (t *Trajectory) Row(i int) map[string]float64 {
	row := make(map[string]float64, len(t.Columns()))
	for _, name := range t.Columns() {
		col, _ := t.Column(name)
		row[name] = col[i]
	}
	return row
}

// Step returns the step size inferred from the first two time values,
// or 0 when fewer than two rows exist.
func (t *Trajectory) Step() float64 {
	if t.Len() < 2 {
		return 0
	}
	return t.Time[1] - t.Time[0]
}

// Head returns a copy holding the first n rows. n is clamped to [0, Len()].
func (t *Trajectory) Head(n int) *Trajectory {
	if n < 0 {
		n = 0
	}
	if n > t.Len() {
		n = t.Len()
	}
	return &Trajectory{
		Model: t.Model,
		Time:  clonePrefix(t.Time, n),
		S:     clonePrefix(t.S, n),
		E:     clonePrefix(t.E, n),
		I:     clonePrefix(t.I, n),
		R:     clonePrefix(t.R, n),
		NewE:  clonePrefix(t.NewE, n),
		NewI:  clonePrefix(t.NewI, n),
		NewR:  clonePrefix(t.NewR, n),
	}
}

// Population returns the sum of all compartments at row i.
func (t *Trajectory) Population(i int) float64 {
	total := t.S[i] + t.I[i] + t.R[i]
	if t.Model.HasExposed() {
		total += t.E[i]
	}
	return total
}

// clonePrefix copies s[:n], preserving nil for absent columns.
func clonePrefix(s []float64, n int) []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, n)
	copy(out, s[:n])
	return out
}

// Sample returns a copy holding every n-th row plus the final row.
// n <= 1 returns t itself.
func (t *Trajectory) Sample(n int) *Trajectory {
	if n <= 1 || t.Len() == 0 {
		return t
	}
	rows := make([]int, 0, t.Len()/n+2)
	for i := 0; i < t.Len(); i += n {
		rows = append(rows, i)
	}
	if last := t.Len() - 1; rows[len(rows)-1] != last {
		rows = append(rows, last)
	}

	out := New(t.Model, len(rows))
	for _, name := range t.Columns() {
		src, _ := t.Column(name)
		dst, _ := out.Column(name)
		for k, i := range rows {
			dst[k] = src[i]
		}
	}
	return out
}

// FromColumns builds a trajectory from named columns of equal length.
// Every column of the model must be present; extra names are rejected.
func FromColumns(model models.ModelType, cols map[string][]float64) (*Trajectory, error) {
	axis, ok := cols[TimeColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, TimeColumn)
	}
	t := New(model, len(axis))
	for _, name := range t.Columns() {
		src, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		if len(src) != len(axis) {
			return nil, fmt.Errorf("trajectory: column %q has %d rows, want %d", name, len(src), len(axis))
		}
		dst, _ := t.Column(name)
		copy(dst, src)
	}
	if len(cols) != len(t.Columns()) {
		return nil, fmt.Errorf("trajectory: %d columns given, %s has %d", len(cols), model, len(t.Columns()))
	}
	return t, nil
}
