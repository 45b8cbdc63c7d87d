package simulation

import (
	"math"

	"github.com/nvandessel/epidash/internal/models"
	"github.com/nvandessel/epidash/internal/trajectory"
)

// flow returns the mass leaving stock during one step at per-capita rate.
func flow(rate, stock, dt float64, exponential bool) float64 {
	if exponential {
		return stock * (1 - math.Exp(-rate*dt))
	}
	return rate * stock * dt
}

// integrateSIR fills t row by row from its initial condition.
func integrateSIR(t *trajectory.Trajectory, r models.Rates, dt float64, exponential bool) {
	for k := 1; k < t.Len(); k++ {
		s, i, rec := t.S[k-1], t.I[k-1], t.R[k-1]

		newInfections := flow(r.Beta*i, s, dt, exponential)
		newRecoveries := flow(r.Gamma, i, dt, exponential)
		sDeaths := flow(r.Mu, s, dt, exponential)
		iDeaths := flow(r.Mu, i, dt, exponential)
		rDeaths := flow(r.Mu, rec, dt, exponential)
		births := sDeaths + iDeaths + rDeaths

		t.S[k] = s - newInfections + births - sDeaths
		t.I[k] = i + newInfections - newRecoveries - iDeaths
		t.R[k] = rec + newRecoveries - rDeaths
		t.NewI[k] = newInfections
		t.NewR[k] = newRecoveries
	}
}

// integrateSEIR fills t row by row from its initial condition.
// Exposure is driven by I, not E.
func integrateSEIR(t *trajectory.Trajectory, r models.Rates, dt float64, exponential bool) {
	for k := 1; k < t.Len(); k++ {
		s, e, i, rec := t.S[k-1], t.E[k-1], t.I[k-1], t.R[k-1]

		newExposures := flow(r.Beta*i, s, dt, exponential)
		newInfectious := flow(r.Sigma, e, dt, exponential)
		newRecoveries := flow(r.Gamma, i, dt, exponential)
		sDeaths := flow(r.Mu, s, dt, exponential)
		eDeaths := flow(r.Mu, e, dt, exponential)
		iDeaths := flow(r.Mu, i, dt, exponential)
		rDeaths := flow(r.Mu, rec, dt, exponential)
		births := sDeaths + eDeaths + iDeaths + rDeaths

		t.S[k] = s - newExposures + births - sDeaths
		t.E[k] = e + newExposures - newInfectious - eDeaths
		t.I[k] = i + newInfectious - newRecoveries - iDeaths
		t.R[k] = rec + newRecoveries - rDeaths
		t.NewE[k] = newExposures
		t.NewI[k] = newInfectious
		t.NewR[k] = newRecoveries
	}
}
