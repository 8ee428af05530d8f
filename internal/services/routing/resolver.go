package routing

import (
	"context"

	"github.com/thomas-vilte/reqtracker/internal/ai"
	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/logger"
)

// ProfileSource supplies the stored model profiles.
type ProfileSource interface {
	LoadProfiles(ctx context.Context) map[string]config.ModelProfile
}

// Resolver turns a profile name plus environment into a BackendHandle.
type Resolver struct {
	profiles ProfileSource
}

func NewResolver(profiles ProfileSource) *Resolver {
	return &Resolver{profiles: profiles}
}

// Resolve never fails: an unknown profile resolves to the default qwen
// profile built from the environment. An empty profileName selects
// env[SELECTED_MODEL], then qwen.
func (r *Resolver) Resolve(ctx context.Context, profileName string, env map[string]string) ai.BackendHandle {
	log := logger.FromContext(ctx)

	name := profileName
	if name == "" {
		name = env[config.SelectedModelKey]
	}
	if name == "" {
		name = config.DefaultProfileKey
	}

	profiles := config.DefaultProfiles()
	if r.profiles != nil {
		for key, p := range r.profiles.LoadProfiles(ctx) {
			profiles[key] = p
		}
	}

	p, ok := profiles[name]
	if !ok {
		log.Warn("model profile not found, falling back to default",
			"profile", name,
			"fallback", config.DefaultProfileKey)
		return defaultHandle(env)
	}

	h := ai.BackendHandle{
		ProfileKey: name,
		Model:      p.Model,
		BaseURL:    p.BaseURL,
		APIKey:     p.APIKey,
		Provider:   p.Provider,
	}

	if envKey, builtin := config.BuiltinSecretEnv[name]; builtin {
		if secret := env[envKey]; secret != "" {
			h.APIKey = secret
		}
	}

	if p.Provider == config.ProviderAzure {
		deployment := env[config.EnvAzureDeployment]
		if deployment == "" {
			deployment = p.AzureDeployment()
		}
		h.Model = string(config.ProviderAzure) + "/" + deployment
		if endpoint := env[config.EnvAzureEndpoint]; endpoint != "" {
			h.BaseURL = endpoint
		}
	}

	log.Debug("model profile resolved", "backend", h)
	return h
}

func defaultHandle(env map[string]string) ai.BackendHandle {
	p := config.DefaultProfiles()[config.DefaultProfileKey]
	return ai.BackendHandle{
		ProfileKey: config.DefaultProfileKey,
		Model:      p.Model,
		BaseURL:    p.BaseURL,
		APIKey:     env[config.EnvDashScopeAPIKey],
		Provider:   p.Provider,
	}
}
