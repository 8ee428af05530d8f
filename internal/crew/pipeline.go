package crew

import (
	"context"

	"github.com/thomas-vilte/reqtracker/internal/agents"
	"github.com/thomas-vilte/reqtracker/internal/ai"
	"github.com/thomas-vilte/reqtracker/internal/ai/registry"
	"github.com/thomas-vilte/reqtracker/internal/config"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/httpclient"
	"github.com/thomas-vilte/reqtracker/internal/services/routing"
	"github.com/thomas-vilte/reqtracker/internal/tracker/ado"
	"github.com/thomas-vilte/reqtracker/internal/wiki/confluence"
)

// Stages builds the production analyzer and publisher. The publisher talks to
// Azure DevOps and Confluence with the credentials in settings.
type Stages struct {
	settings *config.Settings
	defs     *ai.Definitions
}

func NewStages(settings *config.Settings, defs *ai.Definitions) *Stages {
	return &Stages{settings: settings, defs: defs}
}

func (s *Stages) NewAnalyzer(_ context.Context, backend ai.Backend) (AnalyzeStage, error) {
	analyzer, err := agents.NewAnalyzer(backend, s.defs)
	if err != nil {
		return nil, err
	}
	return analyzer, nil
}

func (s *Stages) NewPublisher(ctx context.Context, backend ai.Backend) (PublishStage, error) {
	issues, err := ado.NewFromSettings(s.settings)
	if err != nil {
		return nil, err
	}
	if !s.settings.Confluence.Configured() {
		return nil, domainErrors.ErrWikiNotConfigured
	}
	pages, err := confluence.NewFromSettings(ctx, s.settings)
	if err != nil {
		return nil, err
	}

	return agents.NewPublisher(backend.Handle(), issues, pages, agents.PublishOptions{
		Space:    s.settings.Confluence.Space,
		ParentID: s.settings.Confluence.ParentID,
		AreaPath: s.settings.ADO.AreaPath,
	}), nil
}

// NewDefault wires a Crew to store: profiles and credentials are read from it
// and overlaid by the process environment.
func NewDefault(ctx context.Context, store *config.Store, opts ...Option) (*Crew, error) {
	settings := config.LoadSettings(store.Load(ctx))

	defs, err := ai.LoadDefinitions()
	if err != nil {
		return nil, domainErrors.NewAppError(domainErrors.TypeInternal, "failed to load agent definitions", err)
	}

	base := []Option{
		WithEnv(func(ctx context.Context) map[string]string {
			return config.Environ(store.Load(ctx))
		}),
		WithStageTimeout(settings.StageTimeout),
	}

	return New(
		routing.NewResolver(store),
		registry.Default(httpclient.New(settings.HTTPTimeout)),
		NewStages(settings, defs),
		agents.ParseRequirement,
		append(base, opts...)...,
	), nil
}

// RunPipeline runs one requirement through the pipeline using the default
// configuration file. It always returns text; failures start with ErrorPrefix.
func RunPipeline(ctx context.Context, input, profileName string) string {
	c, err := NewDefault(ctx, config.NewStore(config.DefaultEnvPath()))
	if err != nil {
		return ErrorPrefix + err.Error()
	}
	return c.Run(ctx, input, profileName)
}
