package visualization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
)

// dashboardData is passed to templates/dashboard.html.tmpl.
// AppJSON is pre-sanitized JSON (via json.HTMLEscape) safe for inline <script>.
type dashboardData struct {
	App     App
	AppJSON template.JS
}

// RenderDashboard produces the HTML page for app. Every control is a range
// slider paired with a numeric input; the page script keeps each pair in
// sync and requests /api/plot.svg when the tab's button is pressed.
func RenderDashboard(app App) ([]byte, error) {
	type tabView struct {
		Tab
		Controls    any  `json:"controls"`
		ModelSelect bool `json:"model_select"`
	}
	view := struct {
		App
		Tabs []tabView `json:"tabs"`
	}{App: app}
	for _, t := range app.Tabs {
		view.Tabs = append(view.Tabs, tabView{Tab: t, Controls: t.Controls(), ModelSelect: t.ModelSelect()})
	}

	appJSON, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("marshal app: %w", err)
	}

	tmplBytes, err := templates.ReadFile("templates/dashboard.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("read HTML template: %w", err)
	}
	tmpl, err := template.New("dashboard").Parse(string(tmplBytes))
	if err != nil {
		return nil, fmt.Errorf("parse HTML template: %w", err)
	}

	var escaped bytes.Buffer
	json.HTMLEscape(&escaped, appJSON)

	var buf bytes.Buffer
	data := dashboardData{
		App:     app,
		AppJSON: template.JS(escaped.String()), // #nosec G203
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute HTML template: %w", err)
	}
	return buf.Bytes(), nil
}
