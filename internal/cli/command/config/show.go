package config

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
	"github.com/thomas-vilte/reqtracker/internal/ui"
)

func (c *ConfigCommandFactory) newShowCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: t.GetMessage("config.show_usage", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w := cmd.Root().Writer
			manager := config.NewProfileManager(ctx, store)
			selected := manager.SelectedModel()

			ui.PrintSectionBanner(w, t.GetMessage("config.current_config", 0, nil))
			ui.PrintKeyValue(w, t.GetMessage("config.file_label", 0, nil), store.Path())
			ui.PrintKeyValue(w, t.GetMessage("config.selected_label", 0, nil), selected)
			_, _ = fmt.Fprintln(w)

			headers := []string{"", "Key", "Name", "Model", "Provider", "Base URL", "API Key", "Editable"}
			rows := make([][]string, 0)
			for _, p := range manager.Profiles() {
				marker := ""
				if p.Key == selected {
					marker = "*"
				}
				rows = append(rows, []string{
					marker,
					p.Key,
					p.Name,
					p.Model,
					string(p.Provider),
					p.BaseURL,
					maskKey(p.APIKey),
					fmt.Sprintf("%t", p.Editable),
				})
			}
			ui.PrintTable(w, headers, rows)
			return nil
		},
	}
}

// maskKey keeps the last four characters of a key visible.
func maskKey(key string) string {
	if key == "" {
		return "-"
	}
	runes := []rune(key)
	if len(runes) <= 4 {
		return "****"
	}
	return "****" + string(runes[len(runes)-4:])
}
