// Package mcp provides an MCP (Model Context Protocol) server exposing
// epidash simulations as tools.
package mcp

import (
	"context"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/epidash/internal/config"
	"github.com/nvandessel/epidash/internal/logging"
	"github.com/nvandessel/epidash/internal/ratelimit"
	"github.com/nvandessel/epidash/internal/simulation"
)

// Server wraps the MCP SDK server and provides epidash-specific functionality.
type Server struct {
	server       *sdk.Server
	settings     *config.EpidashConfig
	logger       *slog.Logger
	runLog       *logging.RunLogger
	runner       *simulation.Runner
	toolLimiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "epidash")
	Version string // Server version

	// Settings supplies simulation and cull defaults; nil uses config.Default().
	Settings *config.EpidashConfig

	Logger *slog.Logger
	RunLog *logging.RunLogger
}

// NewServer creates a new MCP server with epidash tools.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		settings:     settings,
		logger:       logger,
		runLog:       cfg.RunLog,
		runner:       simulation.NewRunner(logger, cfg.RunLog, "mcp"),
		toolLimiters: ratelimit.NewToolLimiters(),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Connect serves a single session over t, for in-process clients.
func (s *Server) Connect(ctx context.Context, t sdk.Transport) (*sdk.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}
