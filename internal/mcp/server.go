package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"pbloss-mcp/internal/config"
	"pbloss-mcp/internal/model"
	"pbloss-mcp/internal/runlog"
	"pbloss-mcp/internal/simulation"
	"pbloss-mcp/internal/store"
)

// Server holds the state for the MCP server.
type Server struct {
	cfg      *config.AppConfig
	settings model.CalculationSettings
	imports  config.ImportSettings
	version  string

	store *store.Store
	runs  *runlog.Log
}

// NewServer creates a new MCP server. The calculation and import settings
// are the defaults that tool arguments override per call.
func NewServer(cfg *config.AppConfig, settings model.CalculationSettings, imports config.ImportSettings, version string) *Server {
	if cfg == nil {
		cfg = config.FromEnv("")
	}
	return &Server{
		cfg:      cfg,
		settings: settings,
		imports:  imports,
		version:  version,
		runs:     runlog.New(),
	}
}

// WithStore persists every estimate to st.
func (s *Server) WithStore(st *store.Store) *Server {
	s.store = st
	return s
}

func (s *Server) engineOptions() simulation.Options {
	return simulation.Options{
		AggregateEvery:    s.cfg.AggregateEvery,
		AggregateInterval: s.cfg.AggregateInterval,
		TaskDelay:         s.cfg.TaskDelay,
	}
}

// Handler builds the SDK server with every tool registered.
func (s *Server) Handler() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "pbloss-mcp", Version: s.version}, nil)
	s.addTools(srv)
	return srv
}

// Start serves over stdio until the client disconnects or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	log.Info().Msg("MCP Server starting Stdio loop")
	return s.Handler().Run(ctx, &mcp.StdioTransport{})
}
