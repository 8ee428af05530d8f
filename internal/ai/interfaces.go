package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/models"
)

// BackendHandle is an immutable description of a resolved model endpoint.
// Stages receive a handle instead of reading global state.
type BackendHandle struct {
	ProfileKey string
	Model      string
	BaseURL    string
	APIKey     string
	Provider   config.Provider
}

func (h BackendHandle) String() string {
	return fmt.Sprintf("%s/%s", h.Provider, h.Model)
}

// LogValue keeps the API key out of log records.
func (h BackendHandle) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("profile", h.ProfileKey),
		slog.String("provider", string(h.Provider)),
		slog.String("model", h.Model),
		slog.String("base_url", h.BaseURL),
	)
}

// Request is a single-turn generation request.
type Request struct {
	System string
	Prompt string
	// JSON asks the backend to constrain output to a JSON object.
	JSON bool
}

type Response struct {
	Text  string
	Usage *models.TokenUsage
}

// Backend is a language model bound to one BackendHandle.
type Backend interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Handle() BackendHandle
}

// BackendFactory builds backends for one provider tag.
type BackendFactory interface {
	// Name returns the provider tag handled by the factory (e.g.: "openai").
	Name() string

	// ValidateHandle reports whether the handle carries what the provider needs.
	ValidateHandle(h BackendHandle) error

	NewBackend(ctx context.Context, h BackendHandle) (Backend, error)
}
