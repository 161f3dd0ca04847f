// Package mcp provides an MCP (Model Context Protocol) server for pedigree.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/pedigree/internal/config"
	"github.com/nvandessel/pedigree/internal/logging"
	"github.com/nvandessel/pedigree/internal/metrics"
	"github.com/nvandessel/pedigree/internal/ratelimit"
	"github.com/nvandessel/pedigree/internal/store"
)

// Server wraps the MCP SDK server and exposes simulation runs as tools.
type Server struct {
	server       *sdk.Server
	store        store.RunStore
	root         string
	dataDir      string
	config       *config.PedigreeConfig
	logger       *slog.Logger
	metrics      *metrics.Metrics
	auditLogger  *AuditLogger
	toolLimiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "pedigree")
	Version string // Server version
	Root    string // Project root directory

	// Pedigree overrides the configuration loaded from ~/.pedigree/config.yaml.
	Pedigree *config.PedigreeConfig
}

// NewServer creates a new MCP server with pedigree tools.
func NewServer(cfg *Config) (*Server, error) {
	pcfg := cfg.Pedigree
	if pcfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		pcfg = loaded
	}
	if err := pcfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// stdout carries the protocol, so logs go to stderr.
	logger := logging.NewLogger(pcfg.Logging.Level, os.Stderr)
	dataDir := store.ResolveDataDir(cfg.Root, pcfg.Store.Dir)

	var runStore store.RunStore
	if pcfg.Store.Enabled {
		sqliteStore, err := store.NewSQLiteRunStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		runStore = sqliteStore
	} else {
		runStore = store.NewInMemoryRunStore()
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
		store:        runStore,
		root:         cfg.Root,
		dataDir:      dataDir,
		config:       pcfg,
		logger:       logger,
		metrics:      metrics.New(),
		auditLogger:  NewAuditLogger(dataDir),
		toolLimiters: ratelimit.NewToolLimiters(),
	}

	if err := s.registerTools(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	if err := s.registerResources(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

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

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.Close()
	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	auditErr := s.auditLogger.Close()
	if err := s.store.Close(); err != nil {
		return err
	}
	return auditErr
}
