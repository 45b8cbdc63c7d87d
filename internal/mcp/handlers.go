package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/epidash/internal/calculator"
	"github.com/nvandessel/epidash/internal/constants"
	"github.com/nvandessel/epidash/internal/export"
	"github.com/nvandessel/epidash/internal/logging"
	"github.com/nvandessel/epidash/internal/models"
	"github.com/nvandessel/epidash/internal/ratelimit"
	"github.com/nvandessel/epidash/internal/sanitize"
	"github.com/nvandessel/epidash/internal/simulation"
	"github.com/nvandessel/epidash/internal/trajectory"
)

// ModelsURI is the resource listing the supported models and their controls.
const ModelsURI = "epidash://models"

// targetRows is the row count the simulate tool aims for when no sampling
// step is requested.
const targetRows = 200

// maxScenarios bounds a single epidash_compare call.
const maxScenarios = 20

// ErrInvalidArgument is returned for tool arguments that cannot be simulated.
var ErrInvalidArgument = errors.New("mcp: invalid argument")

// registerTools registers all epidash MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "epidash_simulate",
		Description: "Simulate an SIR, SEIR or SEIRS epidemic and return the culled trajectory with peak and final-size figures",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "epidash_compare",
		Description: "Run several scenarios and compare peak infection, peak time and final epidemic size",
	}, s.handleCompare)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "epidash_r0",
		Description: "Compute the basic reproduction number beta/gamma and whether an epidemic can grow",
	}, s.handleR0)
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         ModelsURI,
		Name:        "epidash-models",
		Description: "Supported compartmental models with their compartments, flow columns and parameter ranges.",
		MIMEType:    "application/json",
	}, s.handleModelsResource)
}

// modelInfo is one entry of the models resource.
type modelInfo struct {
	Model        string             `json:"model"`
	Title        string             `json:"title"`
	Compartments []string           `json:"compartments"`
	Flows        []string           `json:"flows"`
	Params       []models.ParamSpec `json:"params"`
}

func (s *Server) handleModelsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	infos := make([]modelInfo, 0, len(models.AllModels))
	for _, m := range models.AllModels {
		infos = append(infos, modelInfo{
			Model:        m.String(),
			Title:        calculator.Title1(m),
			Compartments: m.Compartments(),
			Flows:        m.FlowColumns(),
			Params:       append(models.ParamSpecs(m), models.DtSpec()),
		})
	}
	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding models: %w", err)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      ModelsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

// handleSimulate implements the epidash_simulate tool.
func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	defer func() { s.traceTool("epidash_simulate", start, retErr) }()

	if err := ratelimit.CheckLimit(s.toolLimiters, "epidash_simulate"); err != nil {
		return nil, SimulateOutput{}, err
	}
	if args.Every < 0 {
		return nil, SimulateOutput{}, fmt.Errorf("%w: every must be non-negative, got %d", ErrInvalidArgument, args.Every)
	}

	creq, err := s.simulateRequest(args)
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	rec := creq.RunRecord("mcp")
	rec.RunID = uuid.NewString()
	res, err := calculator.Calculate(creq)
	rec.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		rec.Error = err.Error()
		s.runLog.Log(rec)
		return nil, SimulateOutput{}, err
	}
	rec.Steps = res.Trajectory.Len()
	s.runLog.Log(rec)

	every := args.Every
	if every == 0 {
		every = max(1, res.Trajectory.Len()/targetRows)
	}
	doc, err := export.NewDocument(res.Trajectory.Sample(every))
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	return nil, SimulateOutput{
		RunID:          rec.RunID,
		Model:          res.ModelType.String(),
		Title:          res.Title1,
		R0:             res.R0,
		AboveThreshold: res.AboveThreshold,
		Summary:        res.Summary,
		Every:          every,
		Columns:        doc.Columns,
		Rows:           doc.Rows,
	}, nil
}

// simulateRequest resolves tool arguments against the dashboard defaults
// and the configured grid. Zero optional fields take their defaults.
func (s *Server) simulateRequest(args SimulateInput) (calculator.Request, error) {
	m, err := models.ParseModelType(args.Model)
	if err != nil {
		return calculator.Request{}, err
	}
	creq := calculator.NewRequest(m)
	creq.Beta = args.Beta
	creq.Gamma = args.Gamma
	if args.InitialInfectedPercent != 0 {
		creq.InitialInfectedPercent = args.InitialInfectedPercent
	}
	if args.Sigma != 0 {
		creq.Sigma = args.Sigma
	}
	if args.AverageAge != 0 {
		creq.AverageAge = args.AverageAge
	}

	creq.Dt = s.settings.Simulation.Dt
	if args.Dt != 0 {
		creq.Dt = args.Dt
	}
	creq.MaxTime = s.settings.Simulation.MaxTime
	if args.MaxTime != 0 {
		creq.MaxTime = args.MaxTime
	}
	creq.Exponential = args.Exponential || s.settings.Simulation.Exponential
	creq.Cull = s.cullOptions()
	creq.Permissive = !s.settings.Simulation.Strict
	return creq, nil
}

// handleCompare implements the epidash_compare tool.
func (s *Server) handleCompare(ctx context.Context, req *sdk.CallToolRequest, args CompareInput) (_ *sdk.CallToolResult, _ CompareOutput, retErr error) {
	start := time.Now()
	defer func() { s.traceTool("epidash_compare", start, retErr) }()

	if err := ratelimit.CheckLimit(s.toolLimiters, "epidash_compare"); err != nil {
		return nil, CompareOutput{}, err
	}
	if len(args.Scenarios) > maxScenarios {
		return nil, CompareOutput{}, fmt.Errorf("%w: at most %d scenarios per call, got %d", ErrInvalidArgument, maxScenarios, len(args.Scenarios))
	}

	var scenarios []simulation.Scenario
	if len(args.Scenarios) == 0 {
		scenarios = simulation.DefaultScenarios()
	} else {
		scenarios = make([]simulation.Scenario, 0, len(args.Scenarios))
		for i, in := range args.Scenarios {
			sc, err := s.scenario(i, in)
			if err != nil {
				return nil, CompareOutput{}, err
			}
			scenarios = append(scenarios, sc)
		}
	}
	cull := s.cullOptions()
	for i := range scenarios {
		if scenarios[i].Cull == nil {
			scenarios[i].Cull = cull
		}
	}

	results, err := s.runner.Run(ctx, scenarios)
	if err != nil {
		return nil, CompareOutput{}, err
	}

	out := CompareOutput{Results: make([]CompareRow, 0, len(results)), Count: len(results)}
	for _, r := range results {
		row := CompareRow{
			Name:    r.Scenario.Name,
			Model:   r.Scenario.Model.String(),
			RunID:   r.RunID,
			Summary: r.Summary,
		}
		if r.Err != nil {
			row.Error = r.Err.Error()
		} else {
			row.R0 = finite(r.R0)
		}
		out.Results = append(out.Results, row)
	}
	return nil, out, nil
}

// scenario converts the i-th tool scenario, filling the grid from config.
func (s *Server) scenario(i int, in CompareScenario) (simulation.Scenario, error) {
	m, err := models.ParseModelType(in.Model)
	if err != nil {
		return simulation.Scenario{}, fmt.Errorf("scenario %d: %w", i+1, err)
	}
	name := sanitize.ScenarioName(in.Name)
	if name == "" {
		name = fmt.Sprintf("%s-%d", m, i+1)
	}
	sc := simulation.Scenario{
		Name:            name,
		Model:           m,
		InitialInfected: in.InitialInfected,
		Rates:           models.Rates{Beta: in.Beta, Sigma: in.Sigma, Gamma: in.Gamma, Mu: in.Mu},
		Dt:              in.Dt,
		MaxTime:         in.MaxTime,
		Scheme:          constants.Scheme(in.Scheme),
	}
	if sc.Dt == 0 {
		sc.Dt = s.settings.Simulation.Dt
	}
	if sc.MaxTime == 0 {
		sc.MaxTime = s.settings.Simulation.MaxTime
	}
	if sc.Scheme == "" && s.settings.Simulation.Exponential {
		sc.Scheme = constants.SchemeExponential
	}
	if !m.HasExposed() {
		sc.Rates.Sigma = 0
	}
	return sc, nil
}

// handleR0 implements the epidash_r0 tool.
func (s *Server) handleR0(ctx context.Context, req *sdk.CallToolRequest, args R0Input) (_ *sdk.CallToolResult, _ R0Output, retErr error) {
	start := time.Now()
	defer func() { s.traceTool("epidash_r0", start, retErr) }()

	if err := ratelimit.CheckLimit(s.toolLimiters, "epidash_r0"); err != nil {
		return nil, R0Output{}, err
	}
	if !(args.Gamma > 0) || math.IsInf(args.Gamma, 0) {
		return nil, R0Output{}, fmt.Errorf("%w: gamma must be positive and finite, got %g", ErrInvalidArgument, args.Gamma)
	}
	if args.Beta < 0 || math.IsNaN(args.Beta) || math.IsInf(args.Beta, 0) {
		return nil, R0Output{}, fmt.Errorf("%w: beta must be finite and non-negative, got %g", ErrInvalidArgument, args.Beta)
	}

	r0 := models.BasicReproductionNumber(args.Beta, args.Gamma)
	above := models.EpidemicThreshold(args.Beta, args.Gamma)
	msg := fmt.Sprintf("R0 = %.3g: each case infects fewer than one other on average, the outbreak dies out", r0)
	if above {
		msg = fmt.Sprintf("R0 = %.3g: each case infects more than one other on average, an epidemic can grow", r0)
	}
	return nil, R0Output{R0: r0, AboveThreshold: above, Message: msg}, nil
}

func (s *Server) cullOptions() *trajectory.CullOptions {
	return &trajectory.CullOptions{
		Threshold:  s.settings.Cull.Threshold,
		ExtendTime: s.settings.Cull.ExtendTime,
	}
}

// traceTool logs a tool call at trace level, or at warn level on failure.
func (s *Server) traceTool(tool string, start time.Time, err error) {
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Warn("tool call failed", "tool", tool, "duration", elapsed, "error", err)
		return
	}
	s.logger.Log(context.Background(), logging.LevelTrace, "tool call", "tool", tool, "duration", elapsed)
}

// finite returns a pointer to v, or nil when v cannot be encoded as JSON.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
