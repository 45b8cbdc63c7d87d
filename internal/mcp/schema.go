package mcp

import "github.com/nvandessel/epidash/internal/trajectory"

// SimulateInput defines the input for the epidash_simulate tool.
type SimulateInput struct {
	Model                  string  `json:"model" jsonschema:"Model structure: SIR, SEIR or SEIRS"`
	InitialInfectedPercent float64 `json:"i_0,omitempty" jsonschema:"Percent of the population infectious at t=0 (default 1)"`
	Beta                   float64 `json:"beta" jsonschema:"Transmission rate"`
	Gamma                  float64 `json:"gamma" jsonschema:"Recovery rate"`
	Sigma                  float64 `json:"sigma,omitempty" jsonschema:"Incubation rate for SEIR and SEIRS (default 1)"`
	AverageAge             float64 `json:"aa,omitempty" jsonschema:"Average lifespan; SEIRS uses mu = 1/aa (default 70)"`
	Dt                     float64 `json:"dt,omitempty" jsonschema:"Time step (default from config)"`
	MaxTime                float64 `json:"max_time,omitempty" jsonschema:"Simulated horizon (default from config)"`
	Exponential            bool    `json:"exponential,omitempty" jsonschema:"Use the hazard form stock*(1-exp(-rate*dt)) instead of rate*stock*dt"`
	Every                  int     `json:"every,omitempty" jsonschema:"Return every n-th row; 0 picks a step giving about 200 rows"`
}

// SimulateOutput defines the output for the epidash_simulate tool.
type SimulateOutput struct {
	RunID          string             `json:"run_id" jsonschema:"Identifier of this run in the run log"`
	Model          string             `json:"model"`
	Title          string             `json:"title"`
	R0             *float64           `json:"r0,omitempty" jsonschema:"Basic reproduction number beta/gamma, omitted when gamma is zero"`
	AboveThreshold bool               `json:"above_threshold" jsonschema:"Whether R0 exceeds 1"`
	Summary        trajectory.Summary `json:"summary"`
	Every          int                `json:"every" jsonschema:"Row sampling step applied to rows"`
	Columns        []string           `json:"columns"`
	Rows           [][]float64        `json:"rows"`
}

// CompareScenario is one scenario of an epidash_compare call.
type CompareScenario struct {
	Name            string  `json:"name,omitempty"`
	Model           string  `json:"model" jsonschema:"SIR, SEIR or SEIRS"`
	InitialInfected float64 `json:"initial_infected" jsonschema:"Initial infected fraction in [0, 1]"`
	Beta            float64 `json:"beta"`
	Sigma           float64 `json:"sigma,omitempty"`
	Gamma           float64 `json:"gamma"`
	Mu              float64 `json:"mu,omitempty" jsonschema:"Birth and death rate"`
	Dt              float64 `json:"dt,omitempty"`
	MaxTime         float64 `json:"max_time,omitempty"`
	Scheme          string  `json:"scheme,omitempty" jsonschema:"linear (default) or exponential"`
}

// CompareInput defines the input for the epidash_compare tool.
type CompareInput struct {
	Scenarios []CompareScenario `json:"scenarios,omitempty" jsonschema:"Scenarios to run; empty runs the built-in SIR, SEIR and SEIRS trio"`
}

// CompareRow is the outcome of one scenario.
type CompareRow struct {
	Name    string             `json:"name"`
	Model   string             `json:"model"`
	RunID   string             `json:"run_id"`
	R0      *float64           `json:"r0,omitempty"`
	Summary trajectory.Summary `json:"summary"`
	Error   string             `json:"error,omitempty"`
}

// CompareOutput defines the output for the epidash_compare tool.
type CompareOutput struct {
	Results []CompareRow `json:"results"`
	Count   int          `json:"count"`
}

// R0Input defines the input for the epidash_r0 tool.
type R0Input struct {
	Beta  float64 `json:"beta" jsonschema:"Transmission rate"`
	Gamma float64 `json:"gamma" jsonschema:"Recovery rate, must be positive"`
}

// R0Output defines the output for the epidash_r0 tool.
type R0Output struct {
	R0             float64 `json:"r0"`
	AboveThreshold bool    `json:"above_threshold"`
	Message        string  `json:"message"`
}
