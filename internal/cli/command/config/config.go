package config

import (
	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
)

type ConfigCommandFactory struct{}

func NewConfigCommandFactory() *ConfigCommandFactory {
	return &ConfigCommandFactory{}
}

func (c *ConfigCommandFactory) CreateCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   t.GetMessage("config.command_usage", 0, nil),
		Commands: []*cli.Command{
			c.newShowCommand(t, store),
			c.newInitCommand(t, store),
			c.newSetModelCommand(t, store),
			c.newAddModelCommand(t, store),
			c.newUpdateModelCommand(t, store),
			c.newDeleteModelCommand(t, store),
			c.newSetKeyCommand(t, store),
			c.newSetCommand(t, store),
		},
	}
}
