// Package constants provides named constants used throughout the epidash codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Integration defaults
const (
	// DefaultDt is the fixed step size used when the caller does not pick one.
	DefaultDt = 0.01

	// DefaultMaxTime is the simulated horizon in time units before culling.
	DefaultMaxTime = 100.0

	// MinDt and MaxDt bound the time step slider on the dashboards.
	MinDt = 0.01
	MaxDt = 0.25
)

// Culling defaults
const (
	// DefaultCullThreshold is the infected fraction below which the tail of
	// a trajectory is considered burned out.
	DefaultCullThreshold = 0.001

	// DefaultCullExtendTime is how many time units are kept after the last
	// step at or above the threshold.
	DefaultCullExtendTime = 5.0

	// CullColumn is the compartment the simulators cull on.
	CullColumn = "I"
)

// Model parameter defaults, matching the dashboard sliders.
const (
	// DefaultInitialInfectedPercent is the starting infected share in percent.
	DefaultInitialInfectedPercent = 1.0

	// DefaultBeta is the default transmission rate.
	DefaultBeta = 1.0

	// DefaultSigma is the default incubation (E→I progression) rate.
	DefaultSigma = 1.0

	// DefaultGamma is the default recovery rate.
	DefaultGamma = 1.0

	// DefaultAverageAge is the default average lifespan for SEIRS turnover (mu = 1/age).
	DefaultAverageAge = 70.0
)

// Population conservation tolerance used by summaries and test helpers.
const ConservationTolerance = 1e-9

// Rate limits for tool and dashboard requests.
const (
	// SimulateRatePerSecond is the sustained simulation request rate per key.
	SimulateRatePerSecond = 5.0

	// SimulateBurst is the number of simulation requests allowed at once.
	SimulateBurst = 20
)
