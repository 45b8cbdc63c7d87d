package trajectory

import (
	"testing"

	"github.com/nvandessel/epidash/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	tr := New(models.SEIR, 3)
	tr.Time = []float64{0, 1, 2}
	tr.S = []float64{0.9, 0.7, 0.6}
	tr.E = []float64{0, 0.2, 0.1}
	tr.I = []float64{0.1, 0.1, 0.2}
	tr.R = []float64{0, 0, 0.1}
	tr.NewI = []float64{0, 0.05, 0.1}

	s := Summarize(tr)
	assert.Equal(t, "SEIR", s.Model)
	assert.Equal(t, 3, s.Steps)
	assert.Equal(t, 2.0, s.Duration)
	assert.Equal(t, 0.2, s.PeakI)
	assert.Equal(t, 2.0, s.PeakITime)
	assert.Equal(t, 0.2, s.PeakE)
	assert.Equal(t, 1.0, s.PeakETime)
	assert.InDelta(t, 0.15, s.TotalInfections, 1e-12)
	assert.Equal(t, 0.0, s.MinCompartment)
	assert.InDelta(t, 0.0, s.MaxPopulationDrift, 1e-12)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(New(models.SIR, 0))
	assert.Equal(t, Summary{Model: "SIR"}, s)
}

func TestPeakIndex(t *testing.T) {
	tr := ramp(models.SIR, 1, []float64{0.1, 0.3, 0.2})
	idx, err := PeakIndex(tr, "I")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = PeakIndex(tr, "E")
	assert.ErrorIs(t, err, ErrMissingColumn)
}
