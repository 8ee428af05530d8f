package config

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
	"github.com/thomas-vilte/reqtracker/internal/ui"
)

func (c *ConfigCommandFactory) newInitCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: t.GetMessage("config.init_usage", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			profiles, err := store.InitializeDefaults(ctx)
			if err != nil {
				return err
			}
			ui.PrintSuccess(cmd.Root().Writer, t.GetMessage("config.init_done", len(profiles), map[string]interface{}{
				"Count": len(profiles),
				"Path":  store.Path(),
			}))
			return nil
		},
	}
}
