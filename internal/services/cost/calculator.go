package cost

import (
	"strings"

	"github.com/thomas-vilte/reqtracker/internal/ai"
	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/models"
)

type PricingTable struct {
	InputPricePerMillion  float64
	OutputPricePerMillion float64
}

type ProviderPricing map[config.Provider]map[string]PricingTable

// Azure deployments are priced like the OpenAI model they host.
func defaultPricing() ProviderPricing {
	openai := map[string]PricingTable{
		"gpt-4o":       {InputPricePerMillion: 2.50, OutputPricePerMillion: 10.00},
		"gpt-4o-mini":  {InputPricePerMillion: 0.15, OutputPricePerMillion: 0.60},
		"gpt-4-turbo":  {InputPricePerMillion: 10.00, OutputPricePerMillion: 30.00},
		"gpt-4.1":      {InputPricePerMillion: 2.00, OutputPricePerMillion: 8.00},
		"gpt-4.1-mini": {InputPricePerMillion: 0.40, OutputPricePerMillion: 1.60},
		"gpt-4":        {InputPricePerMillion: 30.00, OutputPricePerMillion: 60.00},
	}
	// OpenAI-compatible endpoints priced by their own vendors.
	compatible := map[string]PricingTable{
		"qwen-max":   {InputPricePerMillion: 1.60, OutputPricePerMillion: 6.40},
		"qwen-plus":  {InputPricePerMillion: 0.40, OutputPricePerMillion: 1.20},
		"qwen-turbo": {InputPricePerMillion: 0.05, OutputPricePerMillion: 0.20},
		"grok-beta":  {InputPricePerMillion: 5.00, OutputPricePerMillion: 15.00},
		"grok-2":     {InputPricePerMillion: 2.00, OutputPricePerMillion: 10.00},
	}
	azure := make(map[string]PricingTable, len(openai))
	for k, v := range openai {
		azure[k] = v
	}
	for k, v := range compatible {
		openai[k] = v
	}

	return ProviderPricing{
		config.ProviderOpenAI: openai,
		config.ProviderAzure:  azure,
		// https://ai.google.dev/gemini-api/docs/pricing
		config.ProviderGemini: {
			"gemini-1.5-flash": {InputPricePerMillion: 0.075, OutputPricePerMillion: 0.30},
			"gemini-1.5-pro":   {InputPricePerMillion: 1.25, OutputPricePerMillion: 5.00},
			"gemini-2.5-flash": {InputPricePerMillion: 0.30, OutputPricePerMillion: 2.50},
			"gemini-2.5-pro":   {InputPricePerMillion: 1.25, OutputPricePerMillion: 10.00},
		},
	}
}

// Calculator estimates what a backend call cost from its token usage.
type Calculator struct {
	pricing ProviderPricing
}

func NewCalculator() *Calculator {
	return &Calculator{pricing: defaultPricing()}
}

// EstimateCost returns the price in USD of usage on the handle's model, or 0
// when the model is unknown.
func (c *Calculator) EstimateCost(h ai.BackendHandle, usage *models.TokenUsage) float64 {
	if usage == nil {
		return 0
	}
	table, ok := c.lookup(h.Provider, h.Model)
	if !ok {
		return 0
	}

	inputCost := (float64(usage.InputTokens) / 1_000_000) * table.InputPricePerMillion
	outputCost := (float64(usage.OutputTokens) / 1_000_000) * table.OutputPricePerMillion

	return inputCost + outputCost
}

// lookup prefers an exact model match and falls back to the longest known
// model name contained in model, so dated snapshots share the base price.
func (c *Calculator) lookup(provider config.Provider, model string) (PricingTable, bool) {
	byModel, ok := c.pricing[config.Provider(strings.ToLower(string(provider)))]
	if !ok {
		return PricingTable{}, false
	}
	model = strings.ToLower(model)
	if table, ok := byModel[model]; ok {
		return table, true
	}

	best := ""
	for name := range byModel {
		if strings.Contains(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return PricingTable{}, false
	}
	return byModel[best], true
}
