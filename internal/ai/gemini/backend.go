package gemini

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/thomas-vilte/reqtracker/internal/ai"
	"github.com/thomas-vilte/reqtracker/internal/config"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/httpclient"
	"github.com/thomas-vilte/reqtracker/internal/logger"
	"google.golang.org/genai"
)

var _ ai.Backend = (*Backend)(nil)

type Backend struct {
	client *genai.Client
	handle ai.BackendHandle
}

func (b *Backend) Handle() ai.BackendHandle {
	return b.handle
}

func (b *Backend) Generate(ctx context.Context, req ai.Request) (*ai.Response, error) {
	log := logger.FromContext(ctx)

	log.Debug("calling gemini API",
		"backend", b.handle,
		"prompt_length", len(req.Prompt))

	start := time.Now()
	resp, err := b.client.Models.GenerateContent(ctx, b.handle.Model, genai.Text(req.Prompt), GetGenerateConfig(req.System, req.JSON))
	if err != nil {
		log.Error("gemini API call failed",
			"error", err,
			"model", b.handle.Model)
		return nil, ai.ClassifyError(err).WithContext("model", b.handle.Model)
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, domainErrors.ErrEmptyAIResponse.WithContext("model", b.handle.Model)
	}

	usage := extractUsage(resp, b.handle.Model)
	if usage != nil {
		usage.DurationMs = time.Since(start).Milliseconds()
	}

	return &ai.Response{
		Text:  text,
		Usage: usage,
	}, nil
}

type Factory struct {
	client httpclient.HTTPClient
}

var _ ai.BackendFactory = (*Factory)(nil)

func NewFactory(client httpclient.HTTPClient) *Factory {
	return &Factory{client: client}
}

func (f *Factory) Name() string {
	return string(config.ProviderGemini)
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

// NewBackend creates a Gemini API client. A non-empty BaseURL replaces the
// public endpoint.
func (f *Factory) NewBackend(ctx context.Context, h ai.BackendHandle) (ai.Backend, error) {
	cfg := &genai.ClientConfig{
		APIKey:  h.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if h.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = h.BaseURL
	}
	if hc, ok := f.client.(*http.Client); ok && hc != nil {
		cfg.HTTPClient = hc
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, ai.ClassifyError(err).WithContext("profile", h.ProfileKey)
	}

	return &Backend{
		client: client,
		handle: h,
	}, nil
}
