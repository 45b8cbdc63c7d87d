// Package simulation integrates the SIR and SEIR compartmental models with a
// fixed-step finite-difference scheme.
//
// Every call is a pure function of its inputs: buffers are pre-allocated to
// floor(MaxTime/Dt) rows, flows for step t are computed from the state at
// step t-1, and the finished table is culled on the infected column before
// it is returned. SEIRS is the SEIR kernel with a non-zero turnover rate mu;
// there is no direct R→S waning flow.
//
// Two discretizations are available:
//
//	linear       flow = rate × stock × dt            (explicit Euler)
//	exponential  flow = stock × (1 − exp(−rate × dt)) (never exceeds the stock)
//
// Transmission uses the hazard beta × I in both forms. Turnover removes mass
// from every compartment at rate mu and returns all of it to S in the same
// step, so the population total is preserved exactly in either scheme.
//
// Usage:
//
//	opts := simulation.DefaultOptions()
//	opts.MaxTime = 50
//	t, err := simulation.Simulate(models.SIR, 0.01, models.Rates{Beta: 0.3, Gamma: 0.1}, opts)
//
// Scenarios group a model, its inputs and options under a name; a Runner
// executes a list of them sequentially for side-by-side comparison.
package simulation
