package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/thomas-vilte/reqtracker/internal/ai"
	"github.com/thomas-vilte/reqtracker/internal/config"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/httpclient"
	"github.com/thomas-vilte/reqtracker/internal/logger"
	"github.com/thomas-vilte/reqtracker/internal/models"
)

const (
	azureModelPrefix   = "azure/"
	defaultTemperature = 0.3
)

var _ ai.Backend = (*Backend)(nil)

// Backend talks to any OpenAI-compatible chat completions endpoint, Azure
// OpenAI included.
type Backend struct {
	client *goopenai.Client
	handle ai.BackendHandle
	model  string
}

func newBackend(cfg goopenai.ClientConfig, h ai.BackendHandle, model string, client httpclient.HTTPClient) *Backend {
	if client != nil {
		cfg.HTTPClient = client
	}
	return &Backend{
		client: goopenai.NewClientWithConfig(cfg),
		handle: h,
		model:  model,
	}
}

func (b *Backend) Handle() ai.BackendHandle {
	return b.handle
}

func (b *Backend) Generate(ctx context.Context, req ai.Request) (*ai.Response, error) {
	log := logger.FromContext(ctx)

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := goopenai.ChatCompletionRequest{
		Model:       b.model,
		Messages:    messages,
		Temperature: defaultTemperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	log.Debug("calling chat completions",
		"backend", b.handle,
		"prompt_length", len(req.Prompt),
		"json", req.JSON)

	start := time.Now()
	resp, err := b.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		log.Error("chat completion failed",
			"error", err,
			"model", b.model)
		return nil, classify(err).WithContext("model", b.handle.Model)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, domainErrors.ErrEmptyAIResponse.WithContext("model", b.handle.Model)
	}

	usage := &models.TokenUsage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		Model:        b.handle.Model,
		DurationMs:   time.Since(start).Milliseconds(),
	}

	log.Debug("chat completion finished",
		"model", b.handle.Model,
		"total_tokens", usage.TotalTokens,
		"duration_ms", usage.DurationMs)

	return &ai.Response{
		Text:  resp.Choices[0].Message.Content,
		Usage: usage,
	}, nil
}

func classify(err error) *domainErrors.AppError {
	statusCode := 0

	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		statusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		statusCode = reqErr.HTTPStatusCode
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domainErrors.ErrAPIKeyInvalid.WithError(err)
	case http.StatusTooManyRequests:
		return domainErrors.ErrQuotaExceeded.WithError(err)
	}

	return ai.ClassifyError(err)
}

// Factory builds backends for OpenAI-compatible endpoints (DashScope, xAI,
// OpenAI, local gateways).
type Factory struct {
	client httpclient.HTTPClient
}

var _ ai.BackendFactory = (*Factory)(nil)

func NewFactory(client httpclient.HTTPClient) *Factory {
	return &Factory{client: client}
}

func (f *Factory) Name() string {
	return string(config.ProviderOpenAI)
}

func (f *Factory) ValidateHandle(h ai.BackendHandle) error {
	if h.APIKey == "" {
		return domainErrors.ErrAPIKeyMissing.WithContext("profile", h.ProfileKey)
	}
	if h.Model == "" {
		return domainErrors.ErrInvalidProfile.WithContext("field", "model").WithContext("profile", h.ProfileKey)
	}
	return nil
}

func (f *Factory) NewBackend(_ context.Context, h ai.BackendHandle) (ai.Backend, error) {
	cfg := goopenai.DefaultConfig(h.APIKey)
	if h.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(h.BaseURL, "/")
	}
	return newBackend(cfg, h, h.Model, f.client), nil
}

// AzureFactory builds backends for Azure OpenAI deployments. Handles carry the
// model as "azure/<deployment>" and the resource endpoint as BaseURL.
type AzureFactory struct {
	client httpclient.HTTPClient
}

var _ ai.BackendFactory = (*AzureFactory)(nil)

func NewAzureFactory(client httpclient.HTTPClient) *AzureFactory {
	return &AzureFactory{client: client}
}

func (f *AzureFactory) Name() string {
	return string(config.ProviderAzure)
}

func (f *AzureFactory) ValidateHandle(h ai.BackendHandle) error {
	if h.APIKey == "" {
		return domainErrors.ErrAPIKeyMissing.WithContext("profile", h.ProfileKey)
	}
	if h.BaseURL == "" {
		return domainErrors.ErrInvalidProfile.WithContext("field", "base_url").
			WithContext("profile", h.ProfileKey).
			WithSuggestion("Set AZURE_OPENAI_ENDPOINT in your .env file")
	}
	if Deployment(h.Model) == "" {
		return domainErrors.ErrInvalidProfile.WithContext("field", "model").WithContext("profile", h.ProfileKey)
	}
	return nil
}

func (f *AzureFactory) NewBackend(_ context.Context, h ai.BackendHandle) (ai.Backend, error) {
	deployment := Deployment(h.Model)
	cfg := goopenai.DefaultAzureConfig(h.APIKey, strings.TrimRight(h.BaseURL, "/"))
	cfg.AzureModelMapperFunc = func(string) string {
		return deployment
	}
	return newBackend(cfg, h, deployment, f.client), nil
}

// Deployment strips the "azure/" prefix from a model id.
func Deployment(model string) string {
	return strings.TrimPrefix(model, azureModelPrefix)
}
