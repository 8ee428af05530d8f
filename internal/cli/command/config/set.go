package config

import (
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/config"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
	"github.com/thomas-vilte/reqtracker/internal/ui"
)

// newSetCommand writes a single raw KEY=VALUE entry, for adapter credentials
// such as ADO_PAT or CONFLUENCE_TOKEN. LLM_CONFIG is edited through the model
// commands instead.
func (c *ConfigCommandFactory) newSetCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     t.GetMessage("config.set_usage", 0, nil),
		ArgsUsage: "<KEY> <VALUE>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(t, cmd, 2)
			if err != nil {
				return err
			}

			key := strings.TrimSpace(args[0])
			if key == config.ProfilesKey {
				return domainErrors.ErrInvalidProfile.
					WithContext("key", key).
					WithSuggestion("Use: reqtracker config add-model or update-model")
			}
			if err := store.Save(ctx, map[string]string{key: args[1]}); err != nil {
				return err
			}

			ui.PrintSuccess(cmd.Root().Writer, t.GetMessage("config.value_saved", 0, map[string]interface{}{"Key": key}))
			return nil
		},
	}
}
