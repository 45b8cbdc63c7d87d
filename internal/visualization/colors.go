package visualization

// Set1 is the ColorBrewer Set1 palette in its canonical order.
var Set1 = []string{
	"#e41a1c", // red
	"#377eb8", // blue
	"#4daf4a", // green
	"#984ea3", // purple
	"#ff7f00", // orange
	"#ffff33", // yellow
	"#a65628", // brown
	"#f781bf", // pink
	"#999999", // gray
}

// seriesColors assigns Set1 entries to trajectory columns.
var seriesColors = map[string]string{
	"S":    Set1[1],
	"E":    Set1[4],
	"I":    Set1[0],
	"R":    Set1[2],
	"newI": Set1[4],
	"newE": Set1[3],
	"newR": Set1[2],
}

// seriesLabels are the legend entries for trajectory columns.
var seriesLabels = map[string]string{
	"S":    "Susceptible",
	"E":    "Exposed",
	"I":    "Infected",
	"R":    "Recovered",
	"newI": "New Infections",
	"newE": "New Exposures",
	"newR": "New Recoveries",
}

// ColorFor returns the chart color of a trajectory column, or gray for
// unknown names.
func ColorFor(column string) string {
	if c, ok := seriesColors[column]; ok {
		return c
	}
	return Set1[8]
}

// Palette returns a copy of Set1.
func Palette() []string {
	return append([]string(nil), Set1...)
}
