package mcpserver

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tcrun/internal/runner"
	"tcrun/pkg/logging"
)

// Server serves the test-case tools.
type Server struct {
	newRunner runner.RunnerFactory
	mcpServer *server.MCPServer

	mu       sync.Mutex
	sessions map[string]*runner.Runner
}

// New creates a server whose sessions are created by newRunner.
func New(name, version string, newRunner runner.RunnerFactory) *Server {
	s := &Server{
		newRunner: newRunner,
		sessions:  make(map[string]*runner.Runner),
		mcpServer: server.NewMCPServer(
			name,
			version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio blocks serving MCP over stdin and stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	logging.Info("MCPServer", "Serving test-case tools over stdio")
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_test_cases",
		mcp.WithDescription("List the test cases of a test-case document in document order"),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Test-case document, relative to the test-case directory"),
		),
	), s.handleListTestCases)

	s.mcpServer.AddTool(mcp.NewTool("run_test_case",
		mcp.WithDescription("Run one test case with its prerequisites and assertions"),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Test-case document, relative to the test-case directory"),
		),
		mcp.WithString("test_name",
			mcp.Required(),
			mcp.Description("Name of the test case to run"),
		),
	), s.handleRunTestCase)

	s.mcpServer.AddTool(mcp.NewTool("run_test_file",
		mcp.WithDescription("Run every test case of a document with a fresh variable context"),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Test-case document, relative to the test-case directory"),
		),
	), s.handleRunTestFile)

	s.mcpServer.AddTool(mcp.NewTool("get_variables",
		mcp.WithDescription("Show the variables bound in a document's session"),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Test-case document, relative to the test-case directory"),
		),
	), s.handleGetVariables)

	s.mcpServer.AddTool(mcp.NewTool("reset_variables",
		mcp.WithDescription("Drop a document's session and its variables"),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Test-case document, relative to the test-case directory"),
		),
	), s.handleResetVariables)
}

// session returns the runner kept for file, loading it on first use.
func (s *Server) session(file string) (*runner.Runner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.sessions[file]; ok {
		return r, nil
	}
	r := s.newRunner()
	if err := r.Load(file); err != nil {
		return nil, err
	}
	s.sessions[file] = r
	logging.Debug("MCPServer", "Opened session for %s", file)
	return r, nil
}

func (s *Server) dropSession(file string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[file]
	delete(s.sessions, file)
	return ok
}
