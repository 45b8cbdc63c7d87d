package simulation

import (
	"fmt"
	"os"

	"github.com/nvandessel/epidash/internal/constants"
	"github.com/nvandessel/epidash/internal/models"
	"github.com/nvandessel/epidash/internal/sanitize"
	"github.com/nvandessel/epidash/internal/trajectory"
	"gopkg.in/yaml.v3"
)

// Scenario defines one named simulation run.
type Scenario struct {
	Name            string           `json:"name" yaml:"name"`
	Model           models.ModelType `json:"model" yaml:"model"`
	InitialInfected float64          `json:"initial_infected" yaml:"initial_infected"`
	Rates           models.Rates     `json:"rates" yaml:"rates"`
	Dt              float64          `json:"dt,omitempty" yaml:"dt,omitempty"`
	MaxTime         float64          `json:"max_time,omitempty" yaml:"max_time,omitempty"`
	Scheme          constants.Scheme `json:"scheme,omitempty" yaml:"scheme,omitempty"`

	// Cull overrides the default threshold and tail for this scenario.
	Cull *trajectory.CullOptions `json:"cull,omitempty" yaml:"cull,omitempty"`
}

// Options converts the scenario's grid and scheme into Options with Strict set.
func (s Scenario) Options() Options {
	return Options{
		Dt:          s.Dt,
		MaxTime:     s.MaxTime,
		Exponential: s.Scheme.Exponential(),
		Strict:      true,
		Cull:        s.Cull,
	}
}

// Validate checks fields a Runner cannot default.
func (s Scenario) Validate() error {
	if !s.Model.Valid() {
		return fmt.Errorf("scenario %q: %w", s.Name, models.ErrUnsupportedModel)
	}
	if s.Scheme != "" && !s.Scheme.Valid() {
		return fmt.Errorf("scenario %q: invalid scheme %q (valid: linear, exponential)", s.Name, s.Scheme)
	}
	return nil
}

// scenarioFile is the YAML layout accepted by LoadScenarios.
type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadScenarios reads a YAML file with a top-level "scenarios" list.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return ParseScenarios(data)
}

// ParseScenarios decodes and validates scenario YAML. Names are sanitized;
// empty names become "<MODEL>-<index>".
func ParseScenarios(data []byte) ([]Scenario, error) {
	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scenario file: %w", err)
	}
	if len(f.Scenarios) == 0 {
		return nil, fmt.Errorf("parsing scenario file: no scenarios defined")
	}
	for i := range f.Scenarios {
		f.Scenarios[i].Name = sanitize.ScenarioName(f.Scenarios[i].Name)
		if f.Scenarios[i].Name == "" {
			f.Scenarios[i].Name = fmt.Sprintf("%s-%d", f.Scenarios[i].Model, i+1)
		}
		if err := f.Scenarios[i].Validate(); err != nil {
			return nil, err
		}
	}
	return f.Scenarios, nil
}

// DefaultScenarios returns one growing epidemic per model family with shared
// transmission and recovery rates, SEIRS using a 70-year average lifespan.
func DefaultScenarios() []Scenario {
	base := models.Rates{Beta: 0.6, Sigma: 0.5, Gamma: 0.2}
	seirs := base
	seirs.Mu = models.MuFromAverageAge(constants.DefaultAverageAge)
	sir := base
	sir.Sigma = 0

	return []Scenario{
		{Name: "sir", Model: models.SIR, InitialInfected: 0.01, Rates: sir},
		{Name: "seir", Model: models.SEIR, InitialInfected: 0.01, Rates: base},
		{Name: "seirs", Model: models.SEIRS, InitialInfected: 0.01, Rates: seirs},
	}
}
