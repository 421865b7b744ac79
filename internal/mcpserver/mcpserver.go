package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/mcuscope/internal/service/analysis"
)

// Server wraps the MCP server and registers the mcuscope tools.
type Server struct {
	server *mcp.Server
	svc    *analysis.Service
}

// NewServer creates a new MCP server backed by svc. A nil svc uses a
// service with the default configuration and no cache.
func NewServer(version string, svc *analysis.Service) *Server {
	if version == "" {
		version = "dev"
	}
	if svc == nil {
		svc = analysis.New()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "mcuscope",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, svc: svc}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_mcu_project",
		Description: describeAnalyzeProject(),
	}, s.handleAnalyzeProject)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "mcu_call_tree",
		Description: describeCallTree(),
	}, s.handleCallTree)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "mcu_interfaces",
		Description: describeInterfaces(),
	}, s.handleInterfaces)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "mcu_functions",
		Description: describeFunctions(),
	}, s.handleFunctions)
}
