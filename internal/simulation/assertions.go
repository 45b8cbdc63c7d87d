package simulation

import (
	"math"
	"testing"

	"github.com/nvandessel/epidash/internal/trajectory"
)

// AssertTimeAxis asserts time[k] == k*dt exactly for every row.
func AssertTimeAxis(t *testing.T, tr *trajectory.Trajectory, dt float64) {
	t.Helper()
	for k, v := range tr.Time {
		if v != float64(k)*dt {
			t.Errorf("AssertTimeAxis: row %d: time %.17g != %d*%g", k, v, k, dt)
			return
		}
	}
}

// AssertConserved asserts that the compartments sum to 1 within tol at every row.
func AssertConserved(t *testing.T, tr *trajectory.Trajectory, tol float64) {
	t.Helper()
	for k := range tr.Time {
		if d := math.Abs(tr.Population(k) - 1); d > tol {
			t.Errorf("AssertConserved: row %d (t=%g): population drift %.3g > %.3g", k, tr.Time[k], d, tol)
			return
		}
	}
}

// AssertBounded asserts every compartment stays within [0, 1] (with tol slack).
func AssertBounded(t *testing.T, tr *trajectory.Trajectory, tol float64) {
	t.Helper()
	for _, name := range tr.Model.Compartments() {
		col, err := tr.Column(name)
		if err != nil {
			t.Fatalf("AssertBounded: %v", err)
		}
		for k, v := range col {
			if v < -tol || v > 1+tol {
				t.Errorf("AssertBounded: %s[%d] = %.6g outside [0, 1]", name, k, v)
				return
			}
		}
	}
}

// AssertPeakBefore asserts that column first peaks strictly before column second.
func AssertPeakBefore(t *testing.T, tr *trajectory.Trajectory, first, second string) {
	t.Helper()
	a, err := trajectory.PeakIndex(tr, first)
	if err != nil {
		t.Fatalf("AssertPeakBefore: %v", err)
	}
	b, err := trajectory.PeakIndex(tr, second)
	if err != nil {
		t.Fatalf("AssertPeakBefore: %v", err)
	}
	if a >= b {
		t.Errorf("AssertPeakBefore: %s peaks at t=%g, not before %s at t=%g", first, tr.Time[a], second, tr.Time[b])
	}
}
