package mcp

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/codesync/internal/config"
	"github.com/dshills/codesync/internal/engine"
	"github.com/dshills/codesync/internal/gitprobe"
	"github.com/dshills/codesync/internal/remote"
	"github.com/dshills/codesync/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "codesync"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the indexing engine. It is the
// process boundary the editor talks to over stdio.
type Server struct {
	mcp    *server.MCPServer
	engine *engine.Engine
	logger *zap.Logger

	// mu guards the active handle.
	mu     sync.Mutex
	handle *engine.Handle
}

// NewServer creates an MCP server around a fully wired engine.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	git := gitprobe.New()

	// A configured base URL replaces token-derived resolution.
	var deriveBaseURL remote.BaseURLFunc
	if baseURL := cfg.Remote.BaseURL; baseURL != "" {
		deriveBaseURL = func(string) string { return baseURL }
	}

	rc := remote.NewClient(remote.Options{
		Token:             cfg.Token,
		OrganizationID:    cfg.OrganizationID,
		ProjectID:         cfg.ProjectID,
		DeriveBaseURL:     deriveBaseURL,
		RequestsPerSecond: cfg.Remote.RequestsPerSecond,
		Burst:             cfg.Remote.Burst,
		Logger:            logger,
	})

	eng := engine.New(cfg, git, rc, logger)

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:    mcpServer,
		engine: eng,
		logger: logger.Named("mcp"),
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown. Any
// active indexing session is stopped on the way out.
func (s *Server) Serve(ctx context.Context) error {
	defer s.stopHandle()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(indexStartTool(), s.handleIndexStart)
	s.mcp.AddTool(indexStopTool(), s.handleIndexStop)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(indexStateTool(), s.handleIndexState)
	s.mcp.AddTool(indexClearTool(), s.handleIndexClear)
	s.mcp.AddTool(deleteBranchTool(), s.handleDeleteBranch)
	s.mcp.AddTool(deleteProjectTool(), s.handleDeleteProject)
}

// onState logs lifecycle transitions; the editor shell renders them from
// the log stream.
func (s *Server) onState(state types.IndexerState) {
	s.logger.Info("state",
		zap.String("status", string(state.Status)),
		zap.String("message", state.Message),
		zap.String("branch", state.GitBranch),
		zap.Int("totalFiles", state.TotalFiles),
		zap.Int("totalChunks", state.TotalChunks))
}

// stopHandle disposes the active session, if any.
func (s *Server) stopHandle() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	if h != nil {
		h.Stop()
	}
}
