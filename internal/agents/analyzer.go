package agents

import (
	"context"
	"strings"
	"time"

	"github.com/thomas-vilte/reqtracker/internal/ai"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/logger"
	"github.com/thomas-vilte/reqtracker/internal/services/cost"
)

// Analyzer turns free-form requirement text into the JSON of a
// RequirementRecord with a single backend call.
type Analyzer struct {
	backend ai.Backend
	system  string
	task    ai.TaskDefinition
	costs   *cost.Calculator
}

func NewAnalyzer(backend ai.Backend, defs *ai.Definitions) (*Analyzer, error) {
	agent, err := defs.Agent(ai.AgentAnalyzer)
	if err != nil {
		return nil, domainErrors.NewAppError(domainErrors.TypeInternal, "analyzer definition missing", err)
	}
	task, err := defs.Task(ai.TaskAnalyzeRequirement)
	if err != nil {
		return nil, domainErrors.NewAppError(domainErrors.TypeInternal, "analyzer task missing", err)
	}
	system, err := agent.SystemPrompt()
	if err != nil {
		return nil, domainErrors.NewAppError(domainErrors.TypeInternal, "failed to render analyzer persona", err)
	}

	return &Analyzer{backend: backend, system: system, task: task, costs: cost.NewCalculator()}, nil
}

// Run returns the raw model output. It is validated by ParseRequirement.
func (a *Analyzer) Run(ctx context.Context, input string) (string, error) {
	log := logger.FromContext(ctx)

	if strings.TrimSpace(input) == "" {
		return "", domainErrors.ErrEmptyInput
	}

	prompt, err := a.task.Render(ai.TaskAnalyzeRequirement, ai.PromptData{InputText: input})
	if err != nil {
		return "", domainErrors.NewAppError(domainErrors.TypeInternal, "failed to render analyzer prompt", err)
	}

	log.Debug("analyzing requirement",
		"backend", a.backend.Handle(),
		"input_length", len(input))

	start := time.Now()
	resp, err := a.backend.Generate(ctx, ai.Request{
		System: a.system,
		Prompt: prompt,
		JSON:   true,
	})
	if err != nil {
		return "", err
	}

	args := []any{"duration_ms", time.Since(start).Milliseconds()}
	if resp.Usage != nil {
		args = append(args,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
			"estimated_cost_usd", a.costs.EstimateCost(a.backend.Handle(), resp.Usage))
	}
	log.Info("requirement analyzed", args...)

	return resp.Text, nil
}
