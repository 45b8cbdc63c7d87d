package models

import "github.com/nvandessel/epidash/internal/constants"

// ParamSpec describes one dashboard control: a slider paired with a numeric
// input sharing the same bounds and step.
type ParamSpec struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
	Step    float64 `json:"step"`
	Percent bool    `json:"percent,omitempty"`
}

// Clamp bounds v to [Min, Max].
func (p ParamSpec) Clamp(v float64) float64 {
	if v < p.Min {
		return p.Min
	}
	if v > p.Max {
		return p.Max
	}
	return v
}

var (
	specInitialInfected = ParamSpec{ID: "i_0", Label: "Initial % Infected", Min: 0, Max: 10, Default: constants.DefaultInitialInfectedPercent, Step: 0.1, Percent: true}
	specBeta            = ParamSpec{ID: "beta", Label: "Transmission Rate (β)", Min: 0.1, Max: 10, Default: constants.DefaultBeta, Step: 0.1}
	specSigma           = ParamSpec{ID: "sigma", Label: "Incubation Rate (σ)", Min: 0.1, Max: 10, Default: constants.DefaultSigma, Step: 0.1}
	specGamma           = ParamSpec{ID: "gamma", Label: "Recovery Rate (γ)", Min: 0.1, Max: 10, Default: constants.DefaultGamma, Step: 0.1}
	specAverageAge      = ParamSpec{ID: "aa", Label: "Average Age (1/μ)", Min: 0, Max: 100, Default: constants.DefaultAverageAge, Step: 1}
	specDt              = ParamSpec{ID: "dt", Label: "Time step", Min: constants.MinDt, Max: constants.MaxDt, Default: constants.DefaultDt, Step: 0.01}
)

// ParamSpecs returns the controls shown for a model, in display order.
func ParamSpecs(m ModelType) []ParamSpec {
	specs := []ParamSpec{specInitialInfected, specBeta}
	if m.HasExposed() {
		specs = append(specs, specSigma)
	}
	specs = append(specs, specGamma)
	if m.Turnover() {
		specs = append(specs, specAverageAge)
	}
	return specs
}

// DtSpec returns the time step control.
func DtSpec() ParamSpec {
	return specDt
}

// LookupParamSpec finds a control by ID across all models, including dt.
func LookupParamSpec(id string) (ParamSpec, bool) {
	for _, s := range []ParamSpec{specInitialInfected, specBeta, specSigma, specGamma, specAverageAge, specDt} {
		if s.ID == id {
			return s, true
		}
	}
	return ParamSpec{}, false
}
