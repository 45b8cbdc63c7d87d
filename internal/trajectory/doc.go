// Package trajectory holds the time series produced by the epidemic
// simulators and the post-processing applied to them.
//
// A Trajectory is a columnar table: one time axis plus one float64 column per
// compartment (S, [E], I, R) and per incidence flow (newE, newI, newR). Columns
// are pre-allocated to the full step count and never grow.
//
// Culling:
//
//	Cull truncates a trajectory once a column has stayed below a threshold,
//	keeping ExtendTime units of tail after the last active step. When the
//	column never reaches the threshold the full series is returned, so a
//	caller never receives an empty table.
//
//	culled, err := trajectory.Cull(t, "I", trajectory.DefaultCullOptions())
package trajectory
