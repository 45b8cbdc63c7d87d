package visualization

import (
	"encoding/xml"
	"math"
	"strings"
	"testing"

	"github.com/nvandessel/epidash/internal/models"
	"github.com/nvandessel/epidash/internal/simulation"
	"github.com/nvandessel/epidash/internal/trajectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, m models.ModelType) *trajectory.Trajectory {
	t.Helper()
	tr, err := simulation.Simulate(m, 0.01, models.Rates{Beta: 0.6, Sigma: 0.5, Gamma: 0.2, Mu: 0.01}, simulation.DefaultOptions())
	require.NoError(t, err)
	return tr
}

// wellFormed parses the SVG as XML.
func wellFormed(t *testing.T, svg []byte) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(string(svg)))
	for {
		_, err := dec.Token()
		if err != nil {
			require.ErrorContains(t, err, "EOF")
			return
		}
	}
}

func TestColors(t *testing.T) {
	assert.Equal(t, "#377eb8", ColorFor("S"))
	assert.Equal(t, "#ff7f00", ColorFor("E"))
	assert.Equal(t, "#e41a1c", ColorFor("I"))
	assert.Equal(t, "#4daf4a", ColorFor("R"))
	assert.Equal(t, "#ff7f00", ColorFor("newI"))
	assert.Equal(t, "#984ea3", ColorFor("newE"))
	assert.Equal(t, "#4daf4a", ColorFor("newR"))
	assert.Equal(t, "#999999", ColorFor("Q"))

	p := Palette()
	p[0] = "#000000"
	assert.Equal(t, "#e41a1c", Set1[0], "Palette returns a copy")
}

func TestRenderSVG_Panels(t *testing.T) {
	tests := []struct {
		model  models.ModelType
		labels []string
	}{
		{models.SIR, []string{"Susceptible", "Infected", "Recovered", "New Infections"}},
		{models.SEIR, []string{"Susceptible", "Exposed", "Infected", "Recovered", "New Infections"}},
	}
	for _, tt := range tests {
		t.Run(tt.model.String(), func(t *testing.T) {
			svg, err := RenderSVG(run(t, tt.model), DefaultChartOptions())
			require.NoError(t, err)
			wellFormed(t, svg)

			s := string(svg)
			assert.Equal(t, 2, strings.Count(s, `class="panel"`))
			assert.Contains(t, s, tt.model.String()+" Model Simulation")
			for _, l := range tt.labels {
				assert.Contains(t, s, ">"+l+"<")
			}
			assert.Contains(t, s, ">0.00<", "ticks use two decimals")
		})
	}
}

func TestRenderSVG_SinglePanel(t *testing.T) {
	svg, err := RenderSVG(run(t, models.SIR), ChartOptions{Title: "Custom & Title", Width: 800, Height: 300})
	require.NoError(t, err)
	s := string(svg)
	assert.Equal(t, 1, strings.Count(s, `class="panel"`))
	assert.Contains(t, s, `width="400"`)
	assert.Contains(t, s, "Custom &amp; Title")
	wellFormed(t, svg)
}

func TestRenderSVG_Errors(t *testing.T) {
	_, err := RenderSVG(nil, DefaultChartOptions())
	assert.Error(t, err)

	_, err = RenderSVG(trajectory.New(models.ModelType(9), 2), DefaultChartOptions())
	assert.ErrorIs(t, err, models.ErrUnsupportedModel)
}

func TestYLimits(t *testing.T) {
	tr := trajectory.New(models.SIR, 3)
	tr.Time = []float64{0, 1, 2}
	tr.S = []float64{1.2, 0.5, -0.3}
	tr.NewI = []float64{0, 0.01, 0.02}

	p := compartmentPanel(tr, "x")
	assert.Equal(t, -0.3, p.YMin)
	assert.Equal(t, 1.2, p.YMax)

	n := newInfectionsPanel(tr)
	assert.Equal(t, 0.0, n.YMin)
	assert.Equal(t, 0.05, n.YMax, "small peaks use the 0.05 floor")

	tr.NewI[2] = 0.2
	assert.InDelta(t, 0.22, newInfectionsPanel(tr).YMax, 1e-12)

	tr.S[1] = math.NaN()
	p = compartmentPanel(tr, "x")
	assert.Equal(t, -0.3, p.YMin, "non-finite values are ignored")
}

func TestRenderSVG_Downsamples(t *testing.T) {
	tr := run(t, models.SIR)
	require.Greater(t, tr.Len(), maxPlotPoints)
	svg, err := RenderSVG(tr, DefaultChartOptions())
	require.NoError(t, err)

	for _, line := range strings.Split(string(svg), "\n") {
		if strings.HasPrefix(line, "<polyline") {
			assert.LessOrEqual(t, strings.Count(line, ","), maxPlotPoints+1)
		}
	}
}

func TestGridShape(t *testing.T) {
	tests := []struct{ n, rows, cols int }{
		{1, 1, 1}, {2, 1, 2}, {3, 2, 2}, {4, 2, 2}, {5, 2, 3}, {7, 3, 3},
	}
	for _, tt := range tests {
		r, c := gridShape(tt.n)
		assert.Equal(t, tt.rows, r, "rows for %d", tt.n)
		assert.Equal(t, tt.cols, c, "cols for %d", tt.n)
	}
}

func TestRenderComparisonSVG(t *testing.T) {
	ts := []*trajectory.Trajectory{run(t, models.SIR), run(t, models.SEIR), run(t, models.SEIRS)}
	svg, err := RenderComparisonSVG(ts, 0, 0)
	require.NoError(t, err)
	wellFormed(t, svg)
	s := string(svg)
	assert.Equal(t, 3, strings.Count(s, `class="panel"`))
	assert.Equal(t, 2, strings.Count(s, "<polygon"), "exposed area only for SEIR and SEIRS")

	_, err = RenderComparisonSVG(nil, 0, 0)
	assert.Error(t, err)
}
