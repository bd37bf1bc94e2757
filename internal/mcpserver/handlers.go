package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"tcrun/internal/runner"
)

func (s *Server) handleListTestCases(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := request.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError("file argument is required"), nil
	}

	r := s.newRunner()
	if err := r.Load(file); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load %s: %v", file, err)), nil
	}
	return jsonResult(map[string]any{
		"file":       file,
		"test_cases": r.Repository().Names(),
	})
}

func (s *Server) handleRunTestCase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := request.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError("file argument is required"), nil
	}
	name, err := request.RequireString("test_name")
	if err != nil {
		return mcp.NewToolResultError("test_name argument is required"), nil
	}

	r, err := s.session(file)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load %s: %v", file, err)), nil
	}

	result, _ := r.Run(ctx, name)
	out, err := jsonResult(result)
	if err != nil {
		return nil, err
	}
	out.IsError = result.Status != runner.StatusPassed
	return out, nil
}

func (s *Server) handleRunTestFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := request.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError("file argument is required"), nil
	}

	r := s.newRunner()
	if err := r.Load(file); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load %s: %v", file, err)), nil
	}

	fr := r.RunAll(ctx)
	out, err := jsonResult(fr)
	if err != nil {
		return nil, err
	}
	out.IsError = fr.Failed > 0 || fr.Errored > 0 || fr.Error != ""
	return out, nil
}

func (s *Server) handleGetVariables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := request.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError("file argument is required"), nil
	}

	s.mu.Lock()
	r, ok := s.sessions[file]
	s.mu.Unlock()
	if !ok {
		return jsonResult(map[string]string{})
	}
	return jsonResult(r.Variables().Snapshot())
}

func (s *Server) handleResetVariables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := request.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError("file argument is required"), nil
	}
	if s.dropSession(file) {
		return mcp.NewToolResultText(fmt.Sprintf("Session for %s reset", file)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("No session for %s", file)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
