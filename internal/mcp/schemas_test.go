package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolDefinitions(t *testing.T) {
	tools := map[string]struct {
		name     string
		required []string
	}{
		"index_start":    {indexStartTool().Name, indexStartTool().InputSchema.Required},
		"index_stop":     {indexStopTool().Name, indexStopTool().InputSchema.Required},
		"search_code":    {searchCodeTool().Name, searchCodeTool().InputSchema.Required},
		"index_state":    {indexStateTool().Name, indexStateTool().InputSchema.Required},
		"index_clear":    {indexClearTool().Name, indexClearTool().InputSchema.Required},
		"delete_branch":  {deleteBranchTool().Name, deleteBranchTool().InputSchema.Required},
		"delete_project": {deleteProjectTool().Name, deleteProjectTool().InputSchema.Required},
	}

	for expected, tool := range tools {
		assert.Equal(t, expected, tool.name)
	}

	assert.Equal(t, []string{"query"}, tools["search_code"].required)
	assert.Empty(t, tools["delete_branch"].required, "branch parameter is optional")
}

func TestMCPError(t *testing.T) {
	err := newMCPError(ErrorCodeEmptyQuery, "query parameter is required", nil)
	assert.Contains(t, err.Error(), "query parameter is required")

	var mcpErr *MCPError
	assert.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
}

func TestFormatJSON(t *testing.T) {
	out := formatJSON(map[string]interface{}{"status": "idle"})
	assert.Contains(t, out, `"status": "idle"`)
}
