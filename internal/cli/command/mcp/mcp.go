package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
	"github.com/thomas-vilte/reqtracker/internal/logger"
	"github.com/thomas-vilte/reqtracker/internal/mcpserver"
)

// RunnerProvider builds the pipeline runner served by the MCP tools.
type RunnerProvider func(ctx context.Context, store *config.Store) (mcpserver.Runner, error)

// Serve blocks serving s. Tests replace it to avoid binding stdio.
type Serve func(s *server.MCPServer) error

type MCPCommandFactory struct {
	provider RunnerProvider
	serve    Serve
}

func NewMCPCommandFactory(provider RunnerProvider, serve Serve) *MCPCommandFactory {
	if serve == nil {
		serve = mcpserver.ServeStdio
	}
	return &MCPCommandFactory{provider: provider, serve: serve}
}

func (f *MCPCommandFactory) CreateCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: t.GetMessage("mcp.command_usage", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runner, err := f.provider(ctx, store)
			if err != nil {
				return err
			}

			logger.Info(ctx, "serving MCP over stdio", "config", store.Path())
			return f.serve(mcpserver.New(runner, store))
		},
	}
}
