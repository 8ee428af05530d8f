package wiki

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/config"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
	"github.com/thomas-vilte/reqtracker/internal/models"
	"github.com/thomas-vilte/reqtracker/internal/ui"
	"github.com/thomas-vilte/reqtracker/internal/wiki"
	"github.com/thomas-vilte/reqtracker/internal/wiki/confluence"
)

// Provider builds the wiki client from the configuration store.
type Provider func(ctx context.Context, store *config.Store) (wiki.Wiki, error)

// DefaultProvider connects to Confluence with the credentials in store.
func DefaultProvider(ctx context.Context, store *config.Store) (wiki.Wiki, error) {
	client, err := confluence.NewFromSettings(ctx, config.LoadSettings(store.Load(ctx)))
	if err != nil {
		return nil, err
	}
	return client, nil
}

type WikiCommandFactory struct {
	provider Provider
}

func NewWikiCommandFactory(provider Provider) *WikiCommandFactory {
	return &WikiCommandFactory{provider: provider}
}

func (f *WikiCommandFactory) CreateCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:    "wiki",
		Aliases: []string{"confluence"},
		Usage:   t.GetMessage("wiki.command_usage", 0, nil),
		Commands: []*cli.Command{
			f.newSpacesCommand(t, store),
			f.newPagesCommand(t, store),
			f.newPageCommand(t, store),
			f.newDeleteCommand(t, store),
		},
	}
}

func (f *WikiCommandFactory) newSpacesCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:  "spaces",
		Usage: t.GetMessage("wiki.spaces_usage", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := f.provider(ctx, store)
			if err != nil {
				return err
			}
			spaces, err := client.ListSpaces(ctx)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(spaces))
			for _, s := range spaces {
				rows = append(rows, []string{s.Key, s.Name, s.Description})
			}
			ui.PrintTable(cmd.Root().Writer, []string{"Key", "Name", "Description"}, rows)
			return nil
		},
	}
}

func (f *WikiCommandFactory) newPagesCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:      "pages",
		Usage:     t.GetMessage("wiki.pages_usage", 0, nil),
		ArgsUsage: "[space]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "tree",
				Usage: t.GetMessage("wiki.flag_tree", 0, nil),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			space := cmd.Args().First()
			if space == "" {
				space = config.LoadSettings(store.Load(ctx)).Confluence.Space
			}
			if space == "" {
				return domainErrors.ErrWikiNotConfigured.WithContext("field", config.KeyConfluenceSpace)
			}

			client, err := f.provider(ctx, store)
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			var pages []models.Page
			fetching := t.GetMessage("wiki.fetching_pages", 0, map[string]interface{}{"Space": space})
			err = ui.WithSpinnerAndDuration(w, fetching, func() error {
				var err error
				pages, err = client.ListPages(ctx, space)
				return err
			})
			if err != nil {
				return err
			}

			if cmd.Bool("tree") {
				printTree(w, wiki.BuildPageTree(pages), 0)
			} else {
				rows := make([][]string, 0, len(pages))
				for _, p := range pages {
					parent := ""
					if p.ParentID != nil {
						parent = *p.ParentID
					}
					rows = append(rows, []string{p.ID, p.Title, parent, fmt.Sprint(p.Version)})
				}
				ui.PrintTable(w, []string{"ID", "Title", "Parent", "Version"}, rows)
			}
			ui.PrintInfo(w, t.GetMessage("wiki.pages_count", len(pages), map[string]interface{}{
				"Count": len(pages),
				"Space": space,
			}))
			return nil
		},
	}
}

func printTree(w io.Writer, nodes []*models.PageNode, depth int) {
	for _, n := range nodes {
		_, _ = fmt.Fprintf(w, "%s- %s (%s)\n", strings.Repeat("  ", depth), n.Title, n.ID)
		printTree(w, n.Children, depth+1)
	}
}

func (f *WikiCommandFactory) newPageCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:      "page",
		Usage:     t.GetMessage("wiki.page_usage", 0, nil),
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := strings.TrimSpace(cmd.Args().First())
			if id == "" {
				return domainErrors.ErrInvalidArgument.WithContext("id", id)
			}

			client, err := f.provider(ctx, store)
			if err != nil {
				return err
			}
			page, err := client.GetPageContent(ctx, id)
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			_, _ = fmt.Fprintln(w, ui.RenderPanel(page.Title, []string{
				"ID: " + page.ID,
				"Space: " + page.Space,
				fmt.Sprintf("Version: %d", page.Version),
				"Last modified: " + page.LastModified,
				"URL: " + page.URL,
			}))
			_, _ = fmt.Fprintln(w, page.Content)
			return nil
		},
	}
}

func (f *WikiCommandFactory) newDeleteCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     t.GetMessage("wiki.delete_usage", 0, nil),
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   t.GetMessage("flag_yes", 0, nil),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := strings.TrimSpace(cmd.Args().First())
			if id == "" {
				return domainErrors.ErrInvalidArgument.WithContext("id", id)
			}

			w := cmd.Root().Writer
			question := t.GetMessage("wiki.delete_confirm", 0, map[string]interface{}{"ID": id})
			if !cmd.Bool("yes") && !ui.AskConfirmation(cmd.Root().Reader, w, question) {
				ui.PrintWarning(w, t.GetMessage("cancelled", 0, nil))
				return nil
			}

			client, err := f.provider(ctx, store)
			if err != nil {
				return err
			}
			if err := client.DeletePage(ctx, id); err != nil {
				return err
			}
			ui.PrintSuccess(w, t.GetMessage("wiki.deleted", 0, map[string]interface{}{"ID": id}))
			return nil
		},
	}
}
