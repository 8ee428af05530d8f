package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
	"github.com/thomas-vilte/reqtracker/internal/ui"
)

func (c *ConfigCommandFactory) newSetModelCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:      "set-model",
		Usage:     t.GetMessage("config.set_model_usage", 0, nil),
		ArgsUsage: "<profile>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key, err := requireArgs(t, cmd, 1)
			if err != nil {
				return err
			}

			manager := config.NewProfileManager(ctx, store)
			if err := manager.Select(key[0]); err != nil {
				return err
			}
			if err := manager.SaveAll(ctx); err != nil {
				return err
			}

			ui.PrintSuccess(cmd.Root().Writer, t.GetMessage("config.model_selected", 0, map[string]interface{}{"Key": key[0]}))
			return nil
		},
	}
}

func profileFlags(t *i18n.Translations, requireKey bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: t.GetMessage("config.flag_name", 0, nil)},
		&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: t.GetMessage("config.flag_model", 0, nil)},
		&cli.StringFlag{Name: "base-url", Usage: t.GetMessage("config.flag_base_url", 0, nil)},
		&cli.StringFlag{Name: "api-key", Usage: t.GetMessage("config.flag_api_key", 0, nil)},
		&cli.StringFlag{Name: "provider", Usage: t.GetMessage("config.flag_provider", 0, nil)},
	}
	if requireKey {
		flags = append([]cli.Flag{
			&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Required: true, Usage: t.GetMessage("config.flag_key", 0, nil)},
		}, flags...)
	}
	return flags
}

func (c *ConfigCommandFactory) newAddModelCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:  "add-model",
		Usage: t.GetMessage("config.add_model_usage", 0, nil),
		Flags: append(profileFlags(t, true),
			&cli.BoolFlag{Name: "select", Usage: t.GetMessage("config.flag_select", 0, nil)},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager := config.NewProfileManager(ctx, store)
			p := config.ModelProfile{
				Key:      cmd.String("key"),
				Name:     cmd.String("name"),
				Model:    cmd.String("model"),
				BaseURL:  cmd.String("base-url"),
				APIKey:   cmd.String("api-key"),
				Provider: config.Provider(strings.ToLower(cmd.String("provider"))),
			}
			if err := manager.Add(p); err != nil {
				return err
			}
			if cmd.Bool("select") {
				if err := manager.Select(p.Key); err != nil {
					return err
				}
			}
			if err := manager.SaveAll(ctx); err != nil {
				return err
			}

			ui.PrintSuccess(cmd.Root().Writer, t.GetMessage("config.model_added", 0, map[string]interface{}{"Key": p.Key}))
			return nil
		},
	}
}

func (c *ConfigCommandFactory) newUpdateModelCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:      "update-model",
		Usage:     t.GetMessage("config.update_model_usage", 0, nil),
		ArgsUsage: "<profile>",
		Flags:     profileFlags(t, false),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(t, cmd, 1)
			if err != nil {
				return err
			}

			var upd config.ProfileUpdate
			changed := false
			set := func(flag string, dst **string) {
				if cmd.IsSet(flag) {
					v := cmd.String(flag)
					*dst = &v
					changed = true
				}
			}
			set("name", &upd.Name)
			set("model", &upd.Model)
			set("base-url", &upd.BaseURL)
			set("api-key", &upd.APIKey)
			if cmd.IsSet("provider") {
				provider := config.Provider(strings.ToLower(cmd.String("provider")))
				upd.Provider = &provider
				changed = true
			}
			if !changed {
				return fmt.Errorf("%s", t.GetMessage("config.error_nothing_to_update", 0, nil))
			}

			manager := config.NewProfileManager(ctx, store)
			if err := manager.Update(args[0], upd); err != nil {
				return err
			}
			if err := manager.SaveAll(ctx); err != nil {
				return err
			}

			ui.PrintSuccess(cmd.Root().Writer, t.GetMessage("config.model_updated", 0, map[string]interface{}{"Key": args[0]}))
			return nil
		},
	}
}

func (c *ConfigCommandFactory) newDeleteModelCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:      "delete-model",
		Usage:     t.GetMessage("config.delete_model_usage", 0, nil),
		ArgsUsage: "<profile>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(t, cmd, 1)
			if err != nil {
				return err
			}

			manager := config.NewProfileManager(ctx, store)
			if err := manager.Delete(args[0]); err != nil {
				return err
			}
			if err := manager.SaveAll(ctx); err != nil {
				return err
			}

			ui.PrintSuccess(cmd.Root().Writer, t.GetMessage("config.model_deleted", 0, map[string]interface{}{"Key": args[0]}))
			return nil
		},
	}
}

func (c *ConfigCommandFactory) newSetKeyCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:      "set-key",
		Usage:     t.GetMessage("config.set_key_usage", 0, nil),
		ArgsUsage: "<profile> <api-key>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(t, cmd, 2)
			if err != nil {
				return err
			}

			key := strings.TrimSpace(args[1])
			manager := config.NewProfileManager(ctx, store)
			if err := manager.Update(args[0], config.ProfileUpdate{APIKey: &key}); err != nil {
				return err
			}
			if err := manager.SaveAll(ctx); err != nil {
				return err
			}

			ui.PrintSuccess(cmd.Root().Writer, t.GetMessage("config.key_saved", 0, map[string]interface{}{"Key": args[0]}))
			return nil
		},
	}
}

// requireArgs returns the first n positional arguments or a usage error.
func requireArgs(t *i18n.Translations, cmd *cli.Command, n int) ([]string, error) {
	args := cmd.Args().Slice()
	if len(args) < n {
		return nil, fmt.Errorf("%s", t.GetMessage("config.error_missing_args", n, map[string]interface{}{
			"Count": n,
			"Usage": cmd.Name + " " + cmd.ArgsUsage,
		}))
	}
	for _, a := range args[:n] {
		if strings.TrimSpace(a) == "" {
			return nil, fmt.Errorf("%s", t.GetMessage("config.error_missing_args", n, map[string]interface{}{
				"Count": n,
				"Usage": cmd.Name + " " + cmd.ArgsUsage,
			}))
		}
	}
	return args[:n], nil
}
