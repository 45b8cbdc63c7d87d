package visualization

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strconv"

	"github.com/nvandessel/epidash/internal/models"
	"github.com/nvandessel/epidash/internal/trajectory"
)

const (
	defaultChartWidth  = 1000
	defaultChartHeight = 400

	// maxPlotPoints bounds the vertices per polyline.
	maxPlotPoints = 1000

	marginLeft   = 64
	marginRight  = 16
	marginTop    = 36
	marginBottom = 48
	tickCount    = 5
)

// ChartOptions configures RenderSVG.
type ChartOptions struct {
	// Title heads the compartment panel. Empty uses "<MODEL> Model Simulation".
	Title string

	Width  int
	Height int

	// ShowNewInfections adds the new-infections panel to the right.
	ShowNewInfections bool
}

// DefaultChartOptions shows both panels at 1000x400.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: defaultChartWidth, Height: defaultChartHeight, ShowNewInfections: true}
}

// Series is one line of a panel.
type Series struct {
	Label string
	Color string
	X     []float64
	Y     []float64

	// Fill shades the area between the line and y = 0.
	Fill bool
}

// Panel is one set of axes.
type Panel struct {
	Title  string
	XLabel string
	YLabel string
	Series []Series

	// YMin and YMax fix the y-range; when both are zero the range is
	// taken from the data.
	YMin, YMax float64
}

// RenderSVG draws the compartment panel and, optionally, the new-infections
// panel for t. The compartment y-range is [min(0, lo), max(1, hi)] over all
// compartments; the new-infections range is [0, max(1.1 * max newI, 0.05)].
func RenderSVG(t *trajectory.Trajectory, opts ChartOptions) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("render svg: nil trajectory")
	}
	if !t.Model.Valid() {
		return nil, fmt.Errorf("render svg: %w: %s", models.ErrUnsupportedModel, t.Model)
	}
	if opts.Width <= 0 {
		opts.Width = defaultChartWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultChartHeight
	}
	if opts.Title == "" {
		opts.Title = t.Model.String() + " Model Simulation"
	}

	thin := t.Sample(stride(t.Len()))
	panels := []Panel{compartmentPanel(thin, opts.Title)}
	if opts.ShowNewInfections {
		panels = append(panels, newInfectionsPanel(thin))
	} else {
		opts.Width /= 2
	}
	return RenderPanels(panels, opts.Width, opts.Height), nil
}

func compartmentPanel(t *trajectory.Trajectory, title string) Panel {
	p := Panel{Title: title, XLabel: "Time", YLabel: "Population Proportion"}
	lo, hi := 0.0, 1.0
	for _, name := range t.Model.Compartments() {
		col, _ := t.Column(name)
		p.Series = append(p.Series, Series{
			Label: seriesLabels[name],
			Color: ColorFor(name),
			X:     t.Time,
			Y:     col,
		})
		cmin, cmax := finiteRange(col)
		lo = math.Min(lo, cmin)
		hi = math.Max(hi, cmax)
	}
	p.YMin, p.YMax = lo, hi
	return p
}

func newInfectionsPanel(t *trajectory.Trajectory) Panel {
	_, peak := finiteRange(t.NewI)
	return Panel{
		Title:  "New Infections",
		XLabel: "Time",
		YLabel: "Population Proportion",
		Series: []Series{{Label: seriesLabels["newI"], Color: ColorFor("newI"), X: t.Time, Y: t.NewI}},
		YMin:   0,
		YMax:   math.Max(peak*1.1, 0.05),
	}
}

// RenderPanels lays panels out on a grid: one row for up to two panels,
// 2x2 for up to four, otherwise three columns.
func RenderPanels(panels []Panel, width, height int) []byte {
	rows, cols := gridShape(len(panels))
	cellW := float64(width) / float64(cols)
	cellH := float64(height) / float64(rows)

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="Helvetica, Arial, sans-serif" font-size="12">`+"\n",
		width, height, width, height)
	b.WriteString(`<rect width="100%" height="100%" fill="white"/>` + "\n")
	for i, p := range panels {
		x0 := float64(i%cols) * cellW
		y0 := float64(i/cols) * cellH
		writePanel(&b, p, x0, y0, cellW, cellH)
	}
	b.WriteString("</svg>\n")
	return b.Bytes()
}

func gridShape(n int) (rows, cols int) {
	switch {
	case n <= 0:
		return 1, 1
	case n <= 2:
		return 1, n
	case n <= 4:
		return 2, 2
	default:
		return (n + 2) / 3, 3
	}
}

// axes maps data coordinates into a panel's plotting area.
type axes struct {
	left, top, w, h float64
	xmin, xmax      float64
	ymin, ymax      float64
}

func (a axes) px(x float64) float64 {
	return a.left + (x-a.xmin)/(a.xmax-a.xmin)*a.w
}

func (a axes) py(y float64) float64 {
	return a.top + a.h - (y-a.ymin)/(a.ymax-a.ymin)*a.h
}

func writePanel(b *bytes.Buffer, p Panel, x0, y0, w, h float64) {
	a := axes{
		left: x0 + marginLeft,
		top:  y0 + marginTop,
		w:    w - marginLeft - marginRight,
		h:    h - marginTop - marginBottom,
	}
	a.xmin, a.xmax = math.Inf(1), math.Inf(-1)
	ylo, yhi := math.Inf(1), math.Inf(-1)
	for _, s := range p.Series {
		xl, xh := finiteRange(s.X)
		a.xmin, a.xmax = math.Min(a.xmin, xl), math.Max(a.xmax, xh)
		yl, yh := finiteRange(s.Y)
		ylo, yhi = math.Min(ylo, yl), math.Max(yhi, yh)
	}
	if p.YMin != 0 || p.YMax != 0 {
		ylo, yhi = p.YMin, p.YMax
	}
	a.xmin, a.xmax = widen(a.xmin, a.xmax)
	a.ymin, a.ymax = widen(ylo, yhi)

	fmt.Fprintf(b, `<g class="panel">`+"\n")
	fmt.Fprintf(b, `<text x="%.1f" y="%.1f" text-anchor="middle" font-size="14">%s</text>`+"\n",
		a.left+a.w/2, y0+marginTop-12, html.EscapeString(p.Title))

	// grid and ticks
	for i := 0; i <= tickCount; i++ {
		f := float64(i) / tickCount
		yv := a.ymin + f*(a.ymax-a.ymin)
		yy := a.py(yv)
		fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#000" stroke-opacity="0.3" stroke-width="0.5"/>`+"\n",
			a.left, yy, a.left+a.w, yy)
		fmt.Fprintf(b, `<text x="%.1f" y="%.1f" text-anchor="end" dominant-baseline="middle">%.2f</text>`+"\n",
			a.left-6, yy, yv)

		xv := a.xmin + f*(a.xmax-a.xmin)
		xx := a.px(xv)
		fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#000" stroke-opacity="0.3" stroke-width="0.5"/>`+"\n",
			xx, a.top, xx, a.top+a.h)
		fmt.Fprintf(b, `<text x="%.1f" y="%.1f" text-anchor="middle">%s</text>`+"\n",
			xx, a.top+a.h+16, strconv.FormatFloat(xv, 'g', 4, 64))
	}
	fmt.Fprintf(b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="none" stroke="#000"/>`+"\n",
		a.left, a.top, a.w, a.h)
	fmt.Fprintf(b, `<text x="%.1f" y="%.1f" text-anchor="middle">%s</text>`+"\n",
		a.left+a.w/2, a.top+a.h+36, html.EscapeString(p.XLabel))
	fmt.Fprintf(b, `<text transform="translate(%.1f %.1f) rotate(-90)" text-anchor="middle">%s</text>`+"\n",
		x0+14, a.top+a.h/2, html.EscapeString(p.YLabel))

	for _, s := range p.Series {
		writeSeries(b, a, s)
	}
	writeLegend(b, a, p.Series)
	b.WriteString("</g>\n")
}

func writeSeries(b *bytes.Buffer, a axes, s Series) {
	var pts bytes.Buffer
	n := min(len(s.X), len(s.Y))
	first, last := -1, -1
	for i := 0; i < n; i++ {
		if !finite(s.X[i]) || !finite(s.Y[i]) {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		fmt.Fprintf(&pts, "%.2f,%.2f ", a.px(s.X[i]), a.py(clampTo(s.Y[i], a.ymin, a.ymax)))
	}
	if first < 0 {
		return
	}
	if s.Fill {
		base := a.py(clampTo(0, a.ymin, a.ymax))
		fmt.Fprintf(b, `<polygon points="%.2f,%.2f %s%.2f,%.2f" fill="%s" fill-opacity="0.3" stroke="none"/>`+"\n",
			a.px(s.X[first]), base, pts.String(), a.px(s.X[last]), base, s.Color)
	}
	fmt.Fprintf(b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="2"><title>%s</title></polyline>`+"\n",
		bytes.TrimSpace(pts.Bytes()), s.Color, html.EscapeString(s.Label))
}

func writeLegend(b *bytes.Buffer, a axes, series []Series) {
	const rowH = 16
	boxW := 130.0
	x := a.left + a.w - boxW - 8
	y := a.top + 8
	fmt.Fprintf(b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%d" fill="white" fill-opacity="0.8" stroke="#ccc"/>`+"\n",
		x, y, boxW, len(series)*rowH+8)
	for i, s := range series {
		ly := y + 12 + float64(i*rowH)
		fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2"/>`+"\n",
			x+6, ly, x+26, ly, s.Color)
		fmt.Fprintf(b, `<text x="%.1f" y="%.1f" dominant-baseline="middle">%s</text>`+"\n",
			x+32, ly, html.EscapeString(s.Label))
	}
}

// stride picks the sampling step that keeps at most maxPlotPoints rows.
func stride(n int) int {
	if n <= maxPlotPoints {
		return 1
	}
	return (n + maxPlotPoints - 1) / maxPlotPoints
}

// finiteRange returns the min and max of the finite values, or (+Inf, -Inf)
// when there are none.
func finiteRange(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !finite(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// widen turns an empty or degenerate range into a drawable one.
func widen(lo, hi float64) (float64, float64) {
	if !finite(lo) || !finite(hi) {
		return 0, 1
	}
	if lo == hi {
		return lo - 0.5, hi + 0.5
	}
	return lo, hi
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clampTo(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// RenderComparisonSVG draws one panel per trajectory with its infected
// curve and, for models with an exposed class, the exposed curve shaded
// underneath. All panels share the y-range so peaks compare by eye.
func RenderComparisonSVG(ts []*trajectory.Trajectory, width, height int) ([]byte, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("render comparison: no trajectories")
	}
	if width <= 0 {
		width = defaultChartWidth
	}
	if height <= 0 {
		height = defaultChartHeight
	}

	panels := make([]Panel, 0, len(ts))
	hi := 0.0
	for _, t := range ts {
		if t == nil || !t.Model.Valid() {
			return nil, fmt.Errorf("render comparison: %w", models.ErrUnsupportedModel)
		}
		thin := t.Sample(stride(t.Len()))
		p := Panel{Title: t.Model.String(), XLabel: "Time", YLabel: "Population Proportion"}
		if t.Model.HasExposed() {
			p.Series = append(p.Series, Series{Label: seriesLabels["E"], Color: ColorFor("E"), X: thin.Time, Y: thin.E, Fill: true})
			_, eh := finiteRange(thin.E)
			hi = math.Max(hi, eh)
		}
		p.Series = append(p.Series, Series{Label: seriesLabels["I"], Color: ColorFor("I"), X: thin.Time, Y: thin.I})
		_, ih := finiteRange(thin.I)
		hi = math.Max(hi, ih)
		panels = append(panels, p)
	}
	for i := range panels {
		panels[i].YMin, panels[i].YMax = 0, math.Max(hi*1.1, 0.05)
	}
	return RenderPanels(panels, width, height), nil
}
