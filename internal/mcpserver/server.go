package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/thomas-vilte/reqtracker/internal/version"
)

const serverName = "reqtracker"

// New creates the MCP server with the pipeline tools registered.
func New(runner Runner, profiles ProfileLister) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	runTool := NewRunPipelineTool(runner)
	s.AddTool(runTool.Definition(), runTool.Handle)

	listTool := NewListProfilesTool(profiles)
	s.AddTool(listTool.Definition(), listTool.Handle)

	return s
}

// ServeStdio serves s over stdin and stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `reqtracker turns requirement text into an Azure DevOps work item and a Confluence page.
Call list_model_profiles to see the available models, then run_pipeline with the requirement text.
Each run_pipeline call creates new artifacts; do not retry a call that already returned ids.`
