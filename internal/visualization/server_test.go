package visualization

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/epidash/internal/logging"
	"github.com/nvandessel/epidash/internal/models"
)

func startServer(t *testing.T, appName string, cfg ServerConfig) *Server {
	t.Helper()
	app, err := LookupApp(appName)
	if err != nil {
		t.Fatalf("LookupApp: %v", err)
	}
	srv := NewServer(app, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	waitForServer(t, srv, 2*time.Second)
	return srv
}

func get(t *testing.T, srv *Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get("http://" + srv.Addr() + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_ServesHTML(t *testing.T) {
	srv := startServer(t, "multi_tab_dashboard", ServerConfig{})

	resp := get(t, srv, "/")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET / status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/html; charset=utf-8", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"Multi-Tab Dashboard", "bindPair", `"prefix":"p2"`, `"model_select":true`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q", want)
		}
	}

	if resp := get(t, srv, "/nope"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_SimulateEndpoint(t *testing.T) {
	srv := startServer(t, "model_comparison", ServerConfig{})

	resp := get(t, srv, "/api/simulate?model=seir&i_0=1&beta=0.6&sigma=0.5&gamma=0.2&every=100")
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}

	var out struct {
		RunID  string `json:"run_id"`
		Result struct {
			Model  string  `json:"model"`
			Title1 string  `json:"title1"`
			R0     float64 `json:"r0"`
		} `json:"result"`
		Data struct {
			Columns []string    `json:"columns"`
			Rows    [][]float64 `json:"rows"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if out.RunID == "" {
		t.Error("expected run_id")
	}
	if out.Result.Model != "SEIR" || out.Result.Title1 != "SEIR Model Simulation" {
		t.Errorf("unexpected result header %+v", out.Result)
	}
	if out.Result.R0 < 2.99 || out.Result.R0 > 3.01 {
		t.Errorf("r0 = %v, want 3", out.Result.R0)
	}
	if len(out.Data.Columns) != 8 {
		t.Errorf("columns = %v, want SEIR columns", out.Data.Columns)
	}
	if len(out.Data.Rows) == 0 || len(out.Data.Rows) > 100 {
		t.Errorf("got %d rows, want a thinned series", len(out.Data.Rows))
	}
}

func TestServer_ClampsQueryValues(t *testing.T) {
	srv := NewServer(registry["sir_demo"], ServerConfig{})
	q := map[string][]string{"beta": {"50"}, "gamma": {"-3"}, "dt": {"1"}}
	req, err := srv.parseRequest(q, "")
	if err != nil {
		t.Fatalf("parseRequest: %v", err)
	}
	if req.Beta != 10 {
		t.Errorf("beta = %v, want clamped to 10", req.Beta)
	}
	if req.Gamma != 0.1 {
		t.Errorf("gamma = %v, want clamped to 0.1", req.Gamma)
	}
	if req.Dt != 0.25 {
		t.Errorf("dt = %v, want clamped to 0.25", req.Dt)
	}
	if req.Model != models.SIR {
		t.Errorf("model = %v, want SIR default", req.Model)
	}
}

func TestServer_BadRequests(t *testing.T) {
	srv := startServer(t, "sir_demo", ServerConfig{})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown model", "/api/simulate?model=SIRS", http.StatusBadRequest},
		{"not a number", "/api/simulate?beta=fast", http.StatusBadRequest},
		{"bad width", "/api/plot.svg?width=wide", http.StatusBadRequest},
		{"bad params model", "/api/params?model=XYZ", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, srv, tt.path)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestServer_ZeroInfectedKeepsFullSeries(t *testing.T) {
	for _, strict := range []bool{true, false} {
		srv := startServer(t, "sir_demo", ServerConfig{Strict: strict})

		resp := get(t, srv, "/api/simulate?model=SIR&i_0=0")
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("strict=%v: status = %d, want 200: %s", strict, resp.StatusCode, body)
		}
		var out struct {
			Data struct {
				Columns []string    `json:"columns"`
				Rows    [][]float64 `json:"rows"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode JSON: %v", err)
		}
		if len(out.Data.Rows) != 10000 {
			t.Errorf("strict=%v: got %d rows, want the full 10000", strict, len(out.Data.Rows))
		}
		for k, row := range out.Data.Rows {
			if row[2] != 0 {
				t.Fatalf("strict=%v: I[%d] = %v, want 0", strict, k, row[2])
			}
		}

		if resp := get(t, srv, "/api/plot.svg?model=SIR&i_0=0"); resp.StatusCode != http.StatusOK {
			t.Errorf("strict=%v: plot status = %d, want 200", strict, resp.StatusCode)
		}
	}
}

func TestServer_StrictFromConfig(t *testing.T) {
	for _, strict := range []bool{true, false} {
		srv := NewServer(registry["sir_demo"], ServerConfig{Strict: strict})
		req, err := srv.parseRequest(map[string][]string{}, "")
		if err != nil {
			t.Fatalf("parseRequest: %v", err)
		}
		if req.Permissive == strict {
			t.Errorf("Strict=%v gave Permissive=%v", strict, req.Permissive)
		}
	}
}

func TestServer_PlotEndpoints(t *testing.T) {
	srv := startServer(t, "multi_tab_dashboard", ServerConfig{})

	for _, path := range []string{"/api/plot.svg?model=SEIRS&beta=2", "/api/compare.svg?beta=0.6&gamma=0.2"} {
		resp := get(t, srv, path)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
			t.Errorf("Content-Type = %q, want image/svg+xml", ct)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.HasPrefix(string(body), "<svg") {
			t.Errorf("GET %s did not return SVG", path)
		}
	}
}

func TestServer_ParamsEndpoint(t *testing.T) {
	srv := startServer(t, "sir_demo", ServerConfig{})

	resp := get(t, srv, "/api/params?model=SEIRS")
	var specs []models.ParamSpec
	if err := json.NewDecoder(resp.Body).Decode(&specs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	ids := make([]string, len(specs))
	for i, s := range specs {
		ids[i] = s.ID
	}
	if got := strings.Join(ids, ","); !strings.Contains(got, "sigma") || !strings.Contains(got, "aa") {
		t.Errorf("SEIRS params = %s, want sigma and aa", got)
	}

	resp = get(t, srv, "/api/params")
	var all map[string][]models.ParamSpec
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d models, want 3", len(all))
	}
}

func TestServer_RateLimited(t *testing.T) {
	srv := NewServer(registry["sir_demo"], ServerConfig{MaxTime: 1})
	h := srv.Handler()

	codes := make(map[int]int)
	for i := 0; i < 40; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/simulate", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[rec.Code]++
	}
	if codes[http.StatusTooManyRequests] == 0 {
		t.Errorf("expected some 429s after the burst, got %v", codes)
	}

	// Another client is unaffected.
	req := httptest.NewRequest(http.MethodGet, "/api/simulate", nil)
	req.RemoteAddr = "192.0.2.2:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d, want 200", rec.Code)
	}
}

func TestServer_WritesRunLog(t *testing.T) {
	dir := t.TempDir()
	runLog := logging.NewRunLogger(dir, "debug")
	defer runLog.Close()

	srv := NewServer(registry["sir_demo"], ServerConfig{RunLog: runLog, MaxTime: 5})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/simulate?beta=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	data, err := os.ReadFile(filepath.Join(dir, "runs.jsonl"))
	if err != nil {
		t.Fatalf("read runs.jsonl: %v", err)
	}
	if !strings.Contains(string(data), `"source":"server"`) {
		t.Errorf("run log missing server source: %s", data)
	}
}

func TestServer_CleanShutdown(t *testing.T) {
	srv := NewServer(registry["sir_demo"], ServerConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	waitForServer(t, srv, 2*time.Second)

	// Cancel context to trigger shutdown
	cancel()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			t.Errorf("unexpected error on shutdown: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down within 3 seconds")
	}
}

// waitForServer polls the server until it's ready or the timeout is reached.
func waitForServer(t *testing.T, srv *Server, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		addr := srv.Addr()
		if addr == "" {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		resp, err := http.Get("http://" + addr + "/")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not start within timeout")
}
