package crew

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thomas-vilte/reqtracker/internal/ai"
	"github.com/thomas-vilte/reqtracker/internal/config"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/logger"
	"github.com/thomas-vilte/reqtracker/internal/models"
)

// ErrorPrefix marks a failed run in the returned text.
const ErrorPrefix = "Error: "

type State string

const (
	StateIdle       State = "idle"
	StateResolving  State = "resolving"
	StateAnalyzing  State = "analyzing"
	StateValidating State = "validating"
	StatePublishing State = "publishing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

type (
	// Resolver picks the backend handle for a profile name.
	Resolver interface {
		Resolve(ctx context.Context, profileName string, env map[string]string) ai.BackendHandle
	}

	// BackendBuilder builds a backend for a resolved handle.
	BackendBuilder interface {
		NewBackend(ctx context.Context, h ai.BackendHandle) (ai.Backend, error)
	}

	AnalyzeStage interface {
		Run(ctx context.Context, input string) (string, error)
	}

	PublishStage interface {
		Run(ctx context.Context, record models.RequirementRecord) (*models.PublishResult, error)
	}

	// StageFactory builds fresh stages bound to one backend for every run.
	StageFactory interface {
		NewAnalyzer(ctx context.Context, backend ai.Backend) (AnalyzeStage, error)
		NewPublisher(ctx context.Context, backend ai.Backend) (PublishStage, error)
	}

	// Parser validates analyzer output before it reaches the publisher.
	Parser func(raw string) (*models.RequirementRecord, error)
)

// Crew runs the analyze then publish pipeline. A Crew holds no per-run
// state and may serve concurrent runs.
type Crew struct {
	resolver     Resolver
	backends     BackendBuilder
	stages       StageFactory
	parse        Parser
	env          func(ctx context.Context) map[string]string
	stageTimeout time.Duration
	observer     func(runID string, s State)
}

type Option func(*Crew)

// WithEnv sets the environment source used for profile resolution.
func WithEnv(env func(ctx context.Context) map[string]string) Option {
	return func(c *Crew) {
		c.env = env
	}
}

func WithStageTimeout(d time.Duration) Option {
	return func(c *Crew) {
		if d > 0 {
			c.stageTimeout = d
		}
	}
}

// WithObserver registers a callback invoked on every state transition.
func WithObserver(fn func(runID string, s State)) Option {
	return func(c *Crew) {
		c.observer = fn
	}
}

func New(resolver Resolver, backends BackendBuilder, stages StageFactory, parse Parser, opts ...Option) *Crew {
	c := &Crew{
		resolver:     resolver,
		backends:     backends,
		stages:       stages,
		parse:        parse,
		stageTimeout: config.DefaultStageTimeout,
		env: func(context.Context) map[string]string {
			return map[string]string{}
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one pipeline run and never returns an error: failures come
// back as text starting with ErrorPrefix.
func (c *Crew) Run(ctx context.Context, input, profileName string) string {
	result, err := c.Execute(ctx, input, profileName)
	if err != nil {
		return ErrorPrefix + err.Error()
	}
	return result.String()
}

// Execute is Run with a typed result. A panic inside a stage fails the run
// with ErrStagePanic instead of unwinding into the caller.
func (c *Crew) Execute(ctx context.Context, input, profileName string) (result *models.PublishResult, err error) {
	runID := uuid.NewString()
	ctx = logger.With(ctx, "run_id", runID)
	r := &run{crew: c, id: runID, state: StateIdle}

	defer func() {
		if rec := recover(); rec != nil {
			err = domainErrors.ErrStagePanic.
				WithError(fmt.Errorf("%v", rec)).
				WithContext("state", string(r.state))
			logger.Error(ctx, "pipeline stage panicked", err,
				"state", r.state,
				"stack", string(debug.Stack()))
			r.transition(StateFailed)
			result = nil
		}
	}()

	result, err = r.execute(ctx, input, profileName)
	if err != nil {
		logger.Error(ctx, "pipeline failed", err, "state", r.state)
		r.transition(StateFailed)
		return nil, err
	}
	r.transition(StateDone)
	logger.Info(ctx, "pipeline finished",
		"work_item_id", result.WorkItemID,
		"page_id", result.PageID)
	return result, nil
}

type run struct {
	crew  *Crew
	id    string
	state State
}

func (r *run) transition(s State) {
	r.state = s
	if r.crew.observer != nil {
		r.crew.observer(r.id, s)
	}
}

func (r *run) execute(ctx context.Context, input, profileName string) (*models.PublishResult, error) {
	c := r.crew

	if strings.TrimSpace(input) == "" {
		return nil, domainErrors.ErrEmptyInput
	}

	r.transition(StateResolving)
	handle := c.resolver.Resolve(ctx, profileName, c.env(ctx))
	ctx = logger.With(ctx, "backend", handle)
	logger.Info(ctx, "model resolved")

	backend, err := c.backends.NewBackend(ctx, handle)
	if err != nil {
		return nil, err
	}

	r.transition(StateAnalyzing)
	analyzer, err := c.stages.NewAnalyzer(ctx, backend)
	if err != nil {
		return nil, err
	}
	raw, err := withTimeout(ctx, c.stageTimeout, func(ctx context.Context) (string, error) {
		return analyzer.Run(ctx, input)
	})
	if err != nil {
		return nil, err
	}

	r.transition(StateValidating)
	record, err := c.parse(raw)
	if err != nil {
		return nil, err
	}

	r.transition(StatePublishing)
	publisher, err := c.stages.NewPublisher(ctx, backend)
	if err != nil {
		return nil, err
	}
	return withTimeout(ctx, c.stageTimeout, func(ctx context.Context) (*models.PublishResult, error) {
		return publisher.Run(ctx, *record)
	})
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}
