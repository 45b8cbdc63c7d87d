package visualization

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nvandessel/epidash/internal/models"
)

// ErrUnknownApp is returned by LookupApp for unregistered names.
var ErrUnknownApp = errors.New("visualization: app not found")

// TabKind selects what a dashboard tab draws.
type TabKind string

const (
	// TabSimulate draws the two standard panels for one model.
	TabSimulate TabKind = "simulate"

	// TabCompare draws one infected/exposed panel per model from shared parameters.
	TabCompare TabKind = "compare"
)

// Tab is one page of a dashboard.
type Tab struct {
	ID     string             `json:"id"`
	Title  string             `json:"title"`
	Kind   TabKind            `json:"kind"`
	Models []models.ModelType `json:"models"`

	// Prefix namespaces the control IDs, e.g. "p1" gives "p1_beta" and "p1_beta_num".
	Prefix string `json:"prefix"`

	// ShowDt adds the time step slider.
	ShowDt bool `json:"show_dt,omitempty"`

	Button string `json:"button"`
}

// ModelSelect reports whether the tab offers a model drop-down.
func (t Tab) ModelSelect() bool {
	return len(t.Models) > 1 && t.Kind == TabSimulate
}

// Controls returns the parameter specs the tab shows: the union of every
// offered model's specs in display order, plus dt when enabled.
func (t Tab) Controls() []models.ParamSpec {
	seen := make(map[string]bool)
	var specs []models.ParamSpec
	// Widest model first so shared controls keep their display order.
	for i := len(t.Models) - 1; i >= 0; i-- {
		for _, p := range models.ParamSpecs(t.Models[i]) {
			if !seen[p.ID] {
				seen[p.ID] = true
				specs = append(specs, p)
			}
		}
	}
	if t.ShowDt {
		specs = append(specs, models.DtSpec())
	}
	return specs
}

// App is a named dashboard.
type App struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Tabs        []Tab  `json:"tabs"`
}

var registry = map[string]App{
	"sir_demo": {
		Name:        "sir_demo",
		Title:       "SIR Model Demo",
		Description: "Single SIR model with transmission, recovery and time step controls",
		Tabs: []Tab{{
			ID: "sir", Title: "SIR", Kind: TabSimulate, Prefix: "sir",
			Models: []models.ModelType{models.SIR}, ShowDt: true, Button: "Run SIR Model",
		}},
	},
	"model_comparison": {
		Name:        "model_comparison",
		Title:       "Epidemiological Model Comparison",
		Description: "Switch between SIR, SEIR and SEIRS with model-specific controls",
		Tabs: []Tab{{
			ID: "comparison", Title: "Model", Kind: TabSimulate, Prefix: "comp",
			Models: models.AllModels, Button: "Run Model",
		}},
	},
	"multi_tab_dashboard": {
		Name:        "multi_tab_dashboard",
		Title:       "Multi-Tab Dashboard",
		Description: "Basic SIR, model selection and side-by-side comparison pages",
		Tabs: []Tab{
			{
				ID: "page1", Title: "Page 1", Kind: TabSimulate, Prefix: "p1",
				Models: []models.ModelType{models.SIR}, ShowDt: true, Button: "Run SIR model",
			},
			{
				ID: "page2", Title: "Page 2", Kind: TabSimulate, Prefix: "p2",
				Models: models.AllModels, Button: "Run model",
			},
			{
				ID: "page3", Title: "Page 3", Kind: TabCompare, Prefix: "p3",
				Models: models.AllModels, Button: "Compare models",
			},
		},
	},
}

// ListApps returns the registered app names, sorted.
func ListApps() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupApp returns the app registered under name.
func LookupApp(name string) (App, error) {
	app, ok := registry[name]
	if !ok {
		return App{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownApp, name, strings.Join(ListApps(), ", "))
	}
	return app, nil
}
