package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/cli/command/completion"
	configcmd "github.com/thomas-vilte/reqtracker/internal/cli/command/config"
	mcpcmd "github.com/thomas-vilte/reqtracker/internal/cli/command/mcp"
	"github.com/thomas-vilte/reqtracker/internal/cli/command/run"
	trackercmd "github.com/thomas-vilte/reqtracker/internal/cli/command/tracker"
	wikicmd "github.com/thomas-vilte/reqtracker/internal/cli/command/wiki"
	"github.com/thomas-vilte/reqtracker/internal/cli/registry"
	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/crew"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
	"github.com/thomas-vilte/reqtracker/internal/logger"
	"github.com/thomas-vilte/reqtracker/internal/mcpserver"
	"github.com/thomas-vilte/reqtracker/internal/ui"
	"github.com/thomas-vilte/reqtracker/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Initialize(false, false)

	app, translations, err := initializeApp(ctx)
	if err != nil {
		ui.HandleAppError(os.Stderr, err)
		os.Exit(1)
	}

	if err := app.Run(ctx, os.Args); err != nil {
		ui.StopActiveSpinner()
		ui.HandleAppError(os.Stderr, err, translations)
		stop()
		os.Exit(1)
	}
}

func initializeApp(ctx context.Context) (*cli.Command, *i18n.Translations, error) {
	store := config.NewStore(config.DefaultEnvPath())
	settings := config.LoadSettings(store.Load(ctx))

	translations, err := i18n.NewTranslations(settings.Language, "")
	if err != nil {
		return nil, nil, fmt.Errorf("loading translations: %w", err)
	}
	if err := translations.SetLanguage(settings.Language); err != nil {
		_ = translations.SetLanguage(config.DefaultLanguage)
	}

	newRunner := func(ctx context.Context, store *config.Store) (*crew.Crew, error) {
		return crew.NewDefault(ctx, store)
	}

	commands := registry.NewRegistry(store, translations)
	factories := map[string]registry.CommandFactory{
		"run": run.NewRunCommandFactory(func(ctx context.Context, store *config.Store) (run.Runner, error) {
			c, err := newRunner(ctx, store)
			if err != nil {
				return nil, err
			}
			return c, nil
		}),
		"mcp": mcpcmd.NewMCPCommandFactory(func(ctx context.Context, store *config.Store) (mcpserver.Runner, error) {
			c, err := newRunner(ctx, store)
			if err != nil {
				return nil, err
			}
			return c, nil
		}, nil),
		"config":     configcmd.NewConfigCommandFactory(),
		"doctor":     configcmd.NewDoctorCommand(),
		"tracker":    trackercmd.NewTrackerCommandFactory(trackercmd.DefaultProvider),
		"wiki":       wikicmd.NewWikiCommandFactory(wikicmd.DefaultProvider),
		"completion": completion.NewCompletionCommandFactory(),
	}
	for name, factory := range factories {
		if err := commands.Register(name, factory); err != nil {
			return nil, nil, err
		}
	}

	return &cli.Command{
		Name:                  "reqtracker",
		Usage:                 translations.GetMessage("app_usage", 0, nil),
		Description:           translations.GetMessage("app_description", 0, nil),
		Version:               version.Version,
		Commands:              commands.CreateCommands(),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: translations.GetMessage("flag_debug", 0, nil),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: translations.GetMessage("flag_verbose", 0, nil),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logger.Initialize(cmd.Bool("debug"), cmd.Bool("verbose"))
			return ctx, nil
		},
	}, translations, nil
}
