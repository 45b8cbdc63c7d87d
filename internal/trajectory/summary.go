package trajectory

import "math"

// Summary condenses a trajectory into the figures the dashboards and the
// comparison table report.
type Summary struct {
	Model string `json:"model"`

	Steps    int     `json:"steps"`
	Duration float64 `json:"duration"`

	PeakI     float64 `json:"peak_i"`
	PeakITime float64 `json:"peak_i_time"`
	PeakE     float64 `json:"peak_e,omitempty"`
	PeakETime float64 `json:"peak_e_time,omitempty"`

	FinalS float64 `json:"final_s"`
	FinalR float64 `json:"final_r"`

	// TotalInfections sums newI over all rows.
	TotalInfections float64 `json:"total_infections"`

	// MinCompartment is the smallest compartment value seen; negative values
	// expose linear-scheme instability.
	MinCompartment float64 `json:"min_compartment"`

	// MaxPopulationDrift is max |sum(compartments) - 1| over all rows.
	MaxPopulationDrift float64 `json:"max_population_drift"`
}

// Summarize computes a Summary. An empty trajectory yields a zero Summary
// carrying only the model label.
func Summarize(t *Trajectory) Summary {
	s := Summary{Model: t.Model.String(), Steps: t.Len()}
	if t.Len() == 0 {
		return s
	}
	last := t.Len() - 1
	s.Duration = t.Time[last]
	s.FinalS = t.S[last]
	s.FinalR = t.R[last]

	iPeak := argMax(t.I)
	s.PeakI, s.PeakITime = t.I[iPeak], t.Time[iPeak]
	if t.Model.HasExposed() {
		ePeak := argMax(t.E)
		s.PeakE, s.PeakETime = t.E[ePeak], t.Time[ePeak]
	}

	s.MinCompartment = math.Inf(1)
	for i := range t.Time {
		s.TotalInfections += t.NewI[i]
		s.MaxPopulationDrift = math.Max(s.MaxPopulationDrift, math.Abs(t.Population(i)-1))
		for _, name := range t.Model.Compartments() {
			col, _ := t.Column(name)
			s.MinCompartment = math.Min(s.MinCompartment, col[i])
		}
	}
	return s
}

// PeakIndex returns the row index of the maximum value of column.
func PeakIndex(t *Trajectory, column string) (int, error) {
	values, err := t.Column(column)
	if err != nil {
		return 0, err
	}
	return argMax(values), nil
}

// argMax returns the first index holding the maximum, 0 for an empty slice.
func argMax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
