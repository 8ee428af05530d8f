package tracker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/config"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
	"github.com/thomas-vilte/reqtracker/internal/models"
	"github.com/thomas-vilte/reqtracker/internal/tracker"
	"github.com/thomas-vilte/reqtracker/internal/tracker/ado"
	"github.com/thomas-vilte/reqtracker/internal/ui"
)

// Provider builds the issue tracker from the configuration store.
type Provider func(ctx context.Context, store *config.Store) (tracker.IssueTracker, error)

// DefaultProvider connects to Azure DevOps with the credentials in store.
func DefaultProvider(ctx context.Context, store *config.Store) (tracker.IssueTracker, error) {
	client, err := ado.NewFromSettings(config.LoadSettings(store.Load(ctx)))
	if err != nil {
		return nil, err
	}
	return client, nil
}

type TrackerCommandFactory struct {
	provider Provider
}

func NewTrackerCommandFactory(provider Provider) *TrackerCommandFactory {
	return &TrackerCommandFactory{provider: provider}
}

func (f *TrackerCommandFactory) CreateCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:    "tracker",
		Aliases: []string{"ado"},
		Usage:   t.GetMessage("tracker.command_usage", 0, nil),
		Commands: []*cli.Command{
			f.newProjectsCommand(t, store),
			f.newWorkItemsCommand(t, store),
			f.newAreasCommand(t, store),
			f.newDeleteCommand(t, store),
		},
	}
}

func projectFlag(t *i18n.Translations) cli.Flag {
	return &cli.StringFlag{
		Name:  "project",
		Usage: t.GetMessage("tracker.flag_project", 0, nil),
	}
}

// project returns the --project flag or ADO_PROJECT.
func project(ctx context.Context, cmd *cli.Command, store *config.Store) (string, error) {
	if p := cmd.String("project"); p != "" {
		return p, nil
	}
	if p := config.LoadSettings(store.Load(ctx)).ADO.Project; p != "" {
		return p, nil
	}
	return "", domainErrors.ErrTrackerNotConfigured.WithContext("field", config.KeyADOProject)
}

func (f *TrackerCommandFactory) newProjectsCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:  "projects",
		Usage: t.GetMessage("tracker.projects_usage", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := f.provider(ctx, store)
			if err != nil {
				return err
			}
			projects, err := client.ListProjects(ctx)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{p})
			}
			w := cmd.Root().Writer
			ui.PrintTable(w, []string{"Project"}, rows)
			ui.PrintInfo(w, t.GetMessage("tracker.projects_count", len(projects), map[string]interface{}{"Count": len(projects)}))
			return nil
		},
	}
}

func (f *TrackerCommandFactory) newWorkItemsCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:    "work-items",
		Aliases: []string{"wi"},
		Usage:   t.GetMessage("tracker.work_items_usage", 0, nil),
		Flags: []cli.Flag{
			projectFlag(t),
			&cli.StringFlag{
				Name:  "type",
				Usage: t.GetMessage("tracker.flag_type", 0, nil),
			},
			&cli.StringFlag{
				Name:  "area",
				Usage: t.GetMessage("tracker.flag_area", 0, nil),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			proj, err := project(ctx, cmd, store)
			if err != nil {
				return err
			}
			itemType := cmd.String("type")
			if itemType == "" {
				itemType = config.LoadSettings(store.Load(ctx)).ADO.FeatureType
			}

			client, err := f.provider(ctx, store)
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			var items []models.WorkItem
			fetching := t.GetMessage("tracker.fetching_work_items", 0, map[string]interface{}{"Project": proj})
			err = ui.WithSpinnerAndDuration(w, fetching, func() error {
				var err error
				items, err = client.ListWorkItems(ctx, proj, itemType, cmd.String("area"))
				return err
			})
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(items))
			for _, wi := range items {
				rows = append(rows, []string{strconv.Itoa(wi.ID), wi.Type, wi.State, wi.Title, wi.AssignedTo, wi.AreaPath})
			}
			ui.PrintTable(w, []string{"ID", "Type", "State", "Title", "Assigned To", "Area"}, rows)
			ui.PrintInfo(w, t.GetMessage("tracker.work_items_count", len(items), map[string]interface{}{
				"Count": len(items),
				"Type":  itemType,
			}))
			return nil
		},
	}
}

func (f *TrackerCommandFactory) newAreasCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:  "areas",
		Usage: t.GetMessage("tracker.areas_usage", 0, nil),
		Flags: []cli.Flag{projectFlag(t)},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			proj, err := project(ctx, cmd, store)
			if err != nil {
				return err
			}
			client, err := f.provider(ctx, store)
			if err != nil {
				return err
			}
			areas, err := client.ListAreaPaths(ctx, proj)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(areas))
			for _, a := range areas {
				rows = append(rows, []string{a.ID, a.Name, a.Path})
			}
			ui.PrintTable(cmd.Root().Writer, []string{"ID", "Name", "Path"}, rows)
			return nil
		},
	}
}

func (f *TrackerCommandFactory) newDeleteCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     t.GetMessage("tracker.delete_usage", 0, nil),
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   t.GetMessage("flag_yes", 0, nil),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := strconv.Atoi(cmd.Args().First())
			if err != nil || id <= 0 {
				return domainErrors.ErrInvalidArgument.WithContext("id", cmd.Args().First())
			}

			w := cmd.Root().Writer
			question := t.GetMessage("tracker.delete_confirm", 0, map[string]interface{}{"ID": id})
			if !cmd.Bool("yes") && !ui.AskConfirmation(cmd.Root().Reader, w, question) {
				ui.PrintWarning(w, t.GetMessage("cancelled", 0, nil))
				return nil
			}

			client, err := f.provider(ctx, store)
			if err != nil {
				return err
			}
			if err := client.DeleteWorkItem(ctx, id); err != nil {
				return err
			}
			ui.PrintSuccess(w, t.GetMessage("tracker.deleted", 0, map[string]interface{}{"ID": fmt.Sprint(id)}))
			return nil
		},
	}
}
