package config

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/logger"
)

const (
	SelectedModelKey    = "SELECTED_MODEL"
	ProfilesKey         = "LLM_CONFIG"
	legacyProfilePrefix = "LLM_CONFIG_"
	DefaultProfileKey   = "qwen"

	EnvDashScopeAPIKey       = "DASHSCOPE_API_KEY"
	EnvAzureAPIKey           = "AZURE_OPENAI_API_KEY"
	EnvAzureEndpoint         = "AZURE_OPENAI_ENDPOINT"
	EnvAzureDeployment       = "AZURE_OPENAI_DEPLOYMENT_NAME"
	EnvGrokAPIKey            = "GROK_API_KEY"
	DefaultAzureDeployment   = "gpt-4"
	azureModelPrefix         = "azure/"
	builtinProfileQwen       = "qwen"
	builtinProfileAzure      = "azure"
	builtinProfileGrok       = "grok"
	defaultQwenModel         = "qwen-max"
	defaultQwenBaseURL       = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultGrokModel         = "grok-beta"
	defaultGrokBaseURL       = "https://api.x.ai/v1"
	defaultAzureModelName    = azureModelPrefix + DefaultAzureDeployment
	defaultCustomProviderKey = ProviderOpenAI
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderAzure  Provider = "azure"
	ProviderGemini Provider = "gemini"
)

// ModelProfile describes one selectable LLM endpoint.
type ModelProfile struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Model    string   `json:"model"`
	BaseURL  string   `json:"base_url"`
	APIKey   string   `json:"api_key"`
	Provider Provider `json:"provider"`
	Editable bool     `json:"editable"`
}

// UnmarshalJSON treats a missing "editable" field as true.
func (p *ModelProfile) UnmarshalJSON(data []byte) error {
	type alias ModelProfile
	aux := struct {
		*alias
		Editable *bool `json:"editable"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.Editable = aux.Editable == nil || *aux.Editable
	return nil
}

// AzureDeployment returns the deployment encoded in an "azure/<deployment>" model.
func (p ModelProfile) AzureDeployment() string {
	if dep, ok := strings.CutPrefix(p.Model, azureModelPrefix); ok && dep != "" {
		return dep
	}
	return DefaultAzureDeployment
}

var builtinOrder = []string{builtinProfileQwen, builtinProfileAzure, builtinProfileGrok}

// BuiltinSecretEnv maps each built-in profile to the store key holding its API key.
var BuiltinSecretEnv = map[string]string{
	builtinProfileQwen:  EnvDashScopeAPIKey,
	builtinProfileAzure: EnvAzureAPIKey,
	builtinProfileGrok:  EnvGrokAPIKey,
}

// DefaultProfiles returns a fresh copy of the built-in profiles.
func DefaultProfiles() map[string]ModelProfile {
	return map[string]ModelProfile{
		builtinProfileQwen: {
			Key:      builtinProfileQwen,
			Name:     "通义千问 (Qwen)",
			Model:    defaultQwenModel,
			BaseURL:  defaultQwenBaseURL,
			Provider: ProviderOpenAI,
		},
		builtinProfileAzure: {
			Key:      builtinProfileAzure,
			Name:     "Azure OpenAI (Microsoft Copilot基础)",
			Model:    defaultAzureModelName,
			Provider: ProviderAzure,
		},
		builtinProfileGrok: {
			Key:      builtinProfileGrok,
			Name:     "Grok (xAI)",
			Model:    defaultGrokModel,
			BaseURL:  defaultGrokBaseURL,
			Provider: ProviderOpenAI,
		},
	}
}

func IsBuiltin(key string) bool {
	_, ok := BuiltinSecretEnv[key]
	return ok
}

// SortedProfiles orders built-ins first, then custom profiles by key.
func SortedProfiles(profiles map[string]ModelProfile) []ModelProfile {
	out := make([]ModelProfile, 0, len(profiles))
	for _, key := range builtinOrder {
		if p, ok := profiles[key]; ok {
			out = append(out, p)
		}
	}

	custom := make([]string, 0, len(profiles))
	for key := range profiles {
		if !IsBuiltin(key) {
			custom = append(custom, key)
		}
	}
	sort.Strings(custom)
	for _, key := range custom {
		out = append(out, profiles[key])
	}
	return out
}

// LoadProfiles reads LLM_CONFIG, then legacy LLM_CONFIG_<KEY> entries, and
// falls back to the built-in defaults when neither yields a profile.
func (s *Store) LoadProfiles(ctx context.Context) map[string]ModelProfile {
	return profilesFromValues(ctx, s.Load(ctx))
}

func profilesFromValues(ctx context.Context, values map[string]string) map[string]ModelProfile {
	if raw, ok := values[ProfilesKey]; ok {
		profiles, err := parseProfiles(raw)
		if err != nil {
			logger.Warn(ctx, "LLM_CONFIG is not valid JSON, ignoring it", "error", err)
		} else if len(profiles) > 0 {
			return profiles
		}
	}

	if legacy := parseLegacyProfiles(ctx, values); len(legacy) > 0 {
		return legacy
	}

	return DefaultProfiles()
}

func parseProfiles(raw string) (map[string]ModelProfile, error) {
	var list []ModelProfile
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}

	profiles := make(map[string]ModelProfile, len(list))
	for _, p := range list {
		if p.Key == "" {
			continue
		}
		profiles[p.Key] = p
	}
	return profiles, nil
}

func parseLegacyProfiles(ctx context.Context, values map[string]string) map[string]ModelProfile {
	profiles := make(map[string]ModelProfile)
	for key, raw := range values {
		suffix, ok := strings.CutPrefix(key, legacyProfilePrefix)
		if !ok || suffix == "" {
			continue
		}

		var p ModelProfile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			logger.Warn(ctx, "legacy profile entry is not valid JSON, skipping it", "key", key, "error", err)
			continue
		}

		modelKey := strings.ToLower(suffix)
		if p.Key == "" {
			p.Key = modelKey
		}
		profiles[modelKey] = p
	}
	return profiles
}

// SaveProfiles writes every profile as one LLM_CONFIG entry.
func (s *Store) SaveProfiles(ctx context.Context, profiles map[string]ModelProfile) error {
	encoded, err := encodeProfiles(profiles)
	if err != nil {
		return err
	}
	return s.Save(ctx, map[string]string{ProfilesKey: encoded})
}

func encodeProfiles(profiles map[string]ModelProfile) (string, error) {
	normalized := make(map[string]ModelProfile, len(profiles))
	for key, p := range profiles {
		p.Key = key
		normalized[key] = p
	}

	encoded, err := marshalCompact(SortedProfiles(normalized))
	if err != nil {
		return "", domainErrors.ErrInvalidProfile.WithError(err)
	}
	return encoded, nil
}

// InitializeDefaults seeds LLM_CONFIG with the built-ins on first run and
// returns the profiles in effect.
func (s *Store) InitializeDefaults(ctx context.Context) (map[string]ModelProfile, error) {
	values := s.Load(ctx)
	profiles := profilesFromValues(ctx, values)

	if _, ok := values[ProfilesKey]; ok {
		return profiles, nil
	}

	if err := s.SaveProfiles(ctx, profiles); err != nil {
		return nil, err
	}
	logger.Info(ctx, "model profiles initialized", "count", len(profiles))
	return profiles, nil
}
