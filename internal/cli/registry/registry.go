package registry

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
)

type CommandFactory interface {
	CreateCommand(t *i18n.Translations, store *config.Store) *cli.Command
}

type Registry struct {
	factories map[string]CommandFactory
	store     *config.Store
	t         *i18n.Translations
}

func NewRegistry(store *config.Store, t *i18n.Translations) *Registry {
	return &Registry{
		factories: make(map[string]CommandFactory),
		store:     store,
		t:         t,
	}
}

func (r *Registry) Register(name string, factory CommandFactory) error {
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%s", r.t.GetMessage("factory_already_registered", 0, map[string]interface{}{
			"FactoryName": name,
		}))
	}
	r.factories[name] = factory
	return nil
}

// CreateCommands builds every registered command ordered by registration name.
func (r *Registry) CreateCommands() []*cli.Command {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	commands := make([]*cli.Command, 0, len(names))
	for _, name := range names {
		commands = append(commands, r.factories[name].CreateCommand(r.t, r.store))
	}
	return commands
}
