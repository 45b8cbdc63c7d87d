package visualization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/epidash/internal/calculator"
	"github.com/nvandessel/epidash/internal/constants"
	"github.com/nvandessel/epidash/internal/export"
	"github.com/nvandessel/epidash/internal/logging"
	"github.com/nvandessel/epidash/internal/models"
	"github.com/nvandessel/epidash/internal/ratelimit"
	"github.com/nvandessel/epidash/internal/simulation"
	"github.com/nvandessel/epidash/internal/trajectory"
)

// errBadQuery marks query strings that cannot be parsed.
var errBadQuery = errors.New("visualization: bad query")

// ServerConfig configures a dashboard server.
type ServerConfig struct {
	// Addr is the listen address; "" means localhost:0 (OS-assigned port).
	Addr string

	// MaxTime is the simulated horizon for every request; 0 uses the default.
	MaxTime     float64
	Exponential bool
	Cull        *trajectory.CullOptions

	// Strict rejects negative rates and initial fractions outside [0, 1].
	Strict bool

	Logger *slog.Logger
	RunLog *logging.RunLogger
}

// Server serves a dashboard app and the simulation API behind it.
type Server struct {
	app        App
	cfg        ServerConfig
	logger     *slog.Logger
	limiter    *ratelimit.Limiter
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a dashboard server for app.
func NewServer(app App, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MaxTime <= 0 {
		cfg.MaxTime = constants.DefaultMaxTime
	}
	return &Server{
		app:     app,
		cfg:     cfg,
		logger:  logger,
		limiter: ratelimit.NewClientLimiter(),
	}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// URL returns the dashboard URL, or "" before the server has started.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr + "/"
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/simulate", s.limited(s.handleSimulate))
	mux.HandleFunc("/api/plot.svg", s.limited(s.handlePlot))
	mux.HandleFunc("/api/compare.svg", s.limited(s.handleCompare))
	return mux
}

// ListenAndServe starts the HTTP server on the configured address and blocks
// until the context is cancelled. Returns nil on clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = "localhost:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Unlock()

	s.logger.Info("dashboard listening", "app", s.app.Name, "url", s.URL())

	// Graceful shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	// Idle client buckets are dropped once a minute.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.limiter.Prune(10 * time.Minute)
			}
		}
	}()

	err = s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// limited rejects clients that exceed the simulation request budget.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.Allow(host) {
			writeError(w, http.StatusTooManyRequests, ratelimit.ErrRateLimited)
			return
		}
		next(w, r)
	}
}

// handleIndex serves the dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page, err := RenderDashboard(s.app)
	if err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// handleParams lists the controls for ?model=, or for every model when omitted.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("model")
	if label == "" {
		all := make(map[string][]models.ParamSpec, len(models.AllModels))
		for _, m := range models.AllModels {
			all[m.String()] = models.ParamSpecs(m)
		}
		writeJSON(w, http.StatusOK, all)
		return
	}
	m, err := models.ParseModelType(label)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ParamSpecs(m))
}

type simulateResponse struct {
	RunID  string             `json:"run_id"`
	Result *calculator.Result `json:"result"`
	Data   export.Document    `json:"data"`
}

// handleSimulate returns the result summary and the trajectory, thinned
// to every ?every= row.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	every, err := intParam(q, "every", 1, 1, 10000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	runID, res, err := s.calculate(q, "")
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	doc, err := export.NewDocument(res.Trajectory.Sample(every))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, simulateResponse{RunID: runID, Result: res, Data: doc})
}

// handlePlot renders the two standard panels as SVG.
func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts, err := chartOptions(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	_, res, err := s.calculate(q, "")
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	opts.Title = res.Title1
	svg, err := RenderSVG(res.Trajectory, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeSVG(w, svg)
}

// handleCompare runs every model with the same parameters.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts, err := chartOptions(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ts := make([]*trajectory.Trajectory, 0, len(models.AllModels))
	for _, m := range models.AllModels {
		_, res, err := s.calculate(q, m.String())
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		ts = append(ts, res.Trajectory)
	}
	svg, err := RenderComparisonSVG(ts, opts.Width, opts.Height)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeSVG(w, svg)
}

// calculate parses q into a request, runs it and records the run.
// A non-empty model overrides ?model=.
func (s *Server) calculate(q url.Values, model string) (string, *calculator.Result, error) {
	req, err := s.parseRequest(q, model)
	if err != nil {
		return "", nil, err
	}

	runID := uuid.NewString()
	start := time.Now()
	res, err := calculator.Calculate(req)
	elapsed := time.Since(start)

	rec := req.RunRecord("server")
	rec.RunID = runID
	rec.DurationMs = elapsed.Milliseconds()
	if err != nil {
		rec.Error = err.Error()
		s.logger.Debug("dashboard simulation failed", "model", req.Model.String(), "error", err)
	} else {
		rec.Steps = res.Trajectory.Len()
		s.logger.Log(context.Background(), logging.LevelTrace, "dashboard simulation",
			"run_id", runID, "model", req.Model.String(), "rates", rec.Rates,
			"steps", rec.Steps, "duration", elapsed)
	}
	s.cfg.RunLog.Log(rec)
	return runID, res, err
}

// parseRequest reads the model and every control of that model from q.
// Values outside a control's range are clamped to it; absent values take
// the control's default.
func (s *Server) parseRequest(q url.Values, model string) (calculator.Request, error) {
	if model == "" {
		model = q.Get("model")
	}
	if model == "" {
		model = models.SIR.String()
	}
	m, err := models.ParseModelType(model)
	if err != nil {
		return calculator.Request{}, err
	}

	req := calculator.NewRequest(m)
	req.MaxTime = s.cfg.MaxTime
	req.Exponential = s.cfg.Exponential
	req.Cull = s.cfg.Cull
	req.Permissive = !s.cfg.Strict
	if v := q.Get("exponential"); v != "" {
		req.Exponential = v == "true" || v == "1"
	}

	specs := append(models.ParamSpecs(models.SEIRS), models.DtSpec())
	for _, spec := range specs {
		v, err := floatParam(q, spec)
		if err != nil {
			return calculator.Request{}, err
		}
		switch spec.ID {
		case "i_0":
			req.InitialInfectedPercent = v
		case "beta":
			req.Beta = v
		case "sigma":
			req.Sigma = v
		case "gamma":
			req.Gamma = v
		case "aa":
			req.AverageAge = v
		case "dt":
			req.Dt = v
		}
	}
	return req, nil
}

func floatParam(q url.Values, spec models.ParamSpec) (float64, error) {
	raw := q.Get(spec.ID)
	if raw == "" {
		return spec.Default, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", errBadQuery, spec.ID, raw)
	}
	return spec.Clamp(v), nil
}

func intParam(q url.Values, name string, def, lo, hi int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", errBadQuery, name, raw)
	}
	return max(lo, min(hi, v)), nil
}

func chartOptions(q url.Values) (ChartOptions, error) {
	opts := DefaultChartOptions()
	var err error
	if opts.Width, err = intParam(q, "width", defaultChartWidth, 200, 4000); err != nil {
		return opts, err
	}
	if opts.Height, err = intParam(q, "height", defaultChartHeight, 150, 3000); err != nil {
		return opts, err
	}
	if v := q.Get("new_infections"); v != "" {
		opts.ShowNewInfections = v == "true" || v == "1"
	}
	return opts, nil
}

// statusFor maps simulation errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadQuery),
		errors.Is(err, simulation.ErrInvalidInput),
		errors.Is(err, models.ErrUnsupportedModel),
		errors.Is(err, models.ErrNegativeRate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v before writing headers; values json cannot encode
// (±Inf from a diverged linear run) become a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]string{"error": "encoding response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeSVG(w http.ResponseWriter, svg []byte) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(svg)
}
