package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexStartTool returns the tool definition for index_start
func indexStartTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_start",
		Description: "Start indexing the workspace: reconcile against the remote index and watch for changes",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// indexStopTool returns the tool definition for index_stop
func indexStopTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_stop",
		Description: "Stop the active indexing session and release the file watcher",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Search the remote code index with a natural language or keyword query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Optional path prefix to scope results (e.g. 'internal/')",
				},
			},
			Required: []string{"query"},
		},
	}
}

// indexStateTool returns the tool definition for index_state
func indexStateTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_state",
		Description: "Report the indexing state for the current branch",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// indexClearTool returns the tool definition for index_clear
func indexClearTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_clear",
		Description: "Clear the current branch's remote index and the local cache",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// deleteBranchTool returns the tool definition for delete_branch
func deleteBranchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_branch",
		Description: "Delete a branch's remote index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"branch": map[string]interface{}{
					"type":        "string",
					"description": "Branch to delete (defaults to the current branch)",
				},
			},
		},
	}
}

// deleteProjectTool returns the tool definition for delete_project
func deleteProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_project",
		Description: "Delete the project's remote index across all branches",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
