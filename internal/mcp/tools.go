package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeAlreadyIndexing = -32001 // An indexing session is already active
	ErrorCodeNotIndexing     = -32002 // No active indexing session
	ErrorCodeEmptyQuery      = -32003 // Query parameter is empty
	ErrorCodeNotARepo        = -32004 // Workspace is not a git repository
)

// handleIndexStart handles the index_start tool invocation
func (s *Server) handleIndexStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	if s.handle != nil {
		s.mu.Unlock()
		return nil, newMCPError(ErrorCodeAlreadyIndexing, "an indexing session is already active", nil)
	}
	s.mu.Unlock()

	handle, err := s.engine.Start(ctx, s.onState)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to start indexing", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.mu.Lock()
	s.handle = handle
	s.mu.Unlock()

	state := s.engine.State(ctx)
	response := map[string]interface{}{
		"status":       string(state.Status),
		"message":      state.Message,
		"git_branch":   state.GitBranch,
		"total_files":  state.TotalFiles,
		"total_chunks": state.TotalChunks,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexStop handles the index_stop tool invocation
func (s *Server) handleIndexStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	handle := s.handle
	s.handle = nil
	s.mu.Unlock()

	if handle == nil {
		return nil, newMCPError(ErrorCodeNotIndexing, "no active indexing session", nil)
	}

	handle.Stop()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"stopped": true,
	})), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	path := getStringDefault(args, "path", "")

	results, err := s.engine.Search(ctx, query, path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		items = append(items, map[string]interface{}{
			"id":                    r.ID,
			"file_path":             r.FilePath,
			"start_line":            r.StartLine,
			"end_line":              r.EndLine,
			"score":                 r.Score,
			"git_branch":            r.GitBranch,
			"from_preferred_branch": r.FromPreferredBranch,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": items,
		"count":   len(items),
	})), nil
}

// handleIndexState handles the index_state tool invocation
func (s *Server) handleIndexState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := s.engine.State(ctx)

	response := map[string]interface{}{
		"status":     string(state.Status),
		"message":    state.Message,
		"git_branch": state.GitBranch,
	}
	if state.TotalFiles > 0 {
		response["total_files"] = state.TotalFiles
		response["total_chunks"] = state.TotalChunks
		response["last_sync_epoch_ms"] = state.LastSyncMillis
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexClear handles the index_clear tool invocation
func (s *Server) handleIndexClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.engine.Clear(ctx); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "clear failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"cleared": true,
	})), nil
}

// handleDeleteBranch handles the delete_branch tool invocation
func (s *Server) handleDeleteBranch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	branch := ""
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		branch = getStringDefault(args, "branch", "")
	}

	if err := s.engine.DeleteBranch(ctx, branch); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "delete branch failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
	})), nil
}

// handleDeleteProject handles the delete_project tool invocation
func (s *Server) handleDeleteProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.engine.DeleteProject(ctx); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "delete project failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
