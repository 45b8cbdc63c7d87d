package models

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrMissingParameter is returned when a required rate key is absent.
	ErrMissingParameter = errors.New("models: missing required parameter")

	// ErrNegativeRate is returned when a rate is negative, NaN or infinite.
	ErrNegativeRate = errors.New("models: rate must be a finite non-negative number")
)

// Rates holds the per-unit-time transition rates of a compartmental model.
//
// Sigma is ignored by SIR. Mu is the combined birth/death rate; zero disables
// demographic turnover.
type Rates struct {
	Beta  float64 `json:"beta" yaml:"beta"`
	Sigma float64 `json:"sigma,omitempty" yaml:"sigma,omitempty"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
	Mu    float64 `json:"mu,omitempty" yaml:"mu,omitempty"`
}

// RequiredKeys returns the parameter keys that must be present for a model.
func RequiredKeys(m ModelType) []string {
	if m.HasExposed() {
		return []string{"beta", "sigma", "gamma"}
	}
	return []string{"beta", "gamma"}
}

// RatesFromMap builds Rates from a name → value mapping.
// Missing required keys yield ErrMissingParameter naming the key; "mu" is optional.
func RatesFromMap(m ModelType, params map[string]float64) (Rates, error) {
	if !m.Valid() {
		return Rates{}, fmt.Errorf("%w: %s", ErrUnsupportedModel, m.String())
	}
	for _, key := range RequiredKeys(m) {
		if _, ok := params[key]; !ok {
			return Rates{}, fmt.Errorf("%w: %q", ErrMissingParameter, key)
		}
	}
	r := Rates{
		Beta:  params["beta"],
		Gamma: params["gamma"],
		Mu:    params["mu"],
	}
	if m.HasExposed() {
		r.Sigma = params["sigma"]
	}
	return r, nil
}

// ToMap returns the rates keyed by parameter name for the given model.
func (r Rates) ToMap(m ModelType) map[string]float64 {
	out := map[string]float64{
		"beta":  r.Beta,
		"gamma": r.Gamma,
		"mu":    r.Mu,
	}
	if m.HasExposed() {
		out["sigma"] = r.Sigma
	}
	return out
}

// Validate checks that every rate used by the model is finite and non-negative.
func (r Rates) Validate(m ModelType) error {
	values := r.ToMap(m)
	for _, key := range append(RequiredKeys(m), "mu") {
		v := values[key]
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%g", ErrNegativeRate, key, v)
		}
	}
	return nil
}

// R0 returns the basic reproduction number beta/gamma.
func (r Rates) R0() float64 {
	return BasicReproductionNumber(r.Beta, r.Gamma)
}

// MuFromAverageAge converts an average lifespan into a turnover rate.
// Non-positive ages disable turnover.
func MuFromAverageAge(averageAge float64) float64 {
	if averageAge > 0 {
		return 1.0 / averageAge
	}
	return 0
}

// BasicReproductionNumber returns R0 = beta / gamma.
// gamma == 0 follows IEEE division (+Inf, or NaN when beta is also 0).
func BasicReproductionNumber(beta, gamma float64) float64 {
	return beta / gamma
}

// EpidemicThreshold reports whether R0 exceeds 1.
func EpidemicThreshold(beta, gamma float64) bool {
	return BasicReproductionNumber(beta, gamma) > 1.0
}
