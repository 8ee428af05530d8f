package config

import (
	"context"
	"strings"
	"sync"

	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/logger"
)

// ProfileUpdate carries the fields to change on an existing profile. Nil
// fields are left untouched.
type ProfileUpdate struct {
	Name     *string
	Model    *string
	BaseURL  *string
	APIKey   *string
	Provider *Provider
}

func (u ProfileUpdate) touchesLockedFields() bool {
	return u.Name != nil || u.Model != nil || u.BaseURL != nil || u.Provider != nil
}

// ProfileManager edits model profiles in memory and persists them, together
// with the selected profile and the built-in secrets, through a Store.
type ProfileManager struct {
	store    *Store
	mu       sync.RWMutex
	profiles map[string]ModelProfile
	selected string
	// store keys of built-in secrets cleared since the last save
	cleared map[string]bool
}

func NewProfileManager(ctx context.Context, store *Store) *ProfileManager {
	values := store.Load(ctx)

	selected := values[SelectedModelKey]
	if selected == "" {
		selected = DefaultProfileKey
	}

	return &ProfileManager{
		store:    store,
		profiles: profilesFromValues(ctx, values),
		selected: selected,
		cleared:  make(map[string]bool),
	}
}

func (m *ProfileManager) Profiles() []ModelProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return SortedProfiles(m.profiles)
}

func (m *ProfileManager) Get(key string) (ModelProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[key]
	return p, ok
}

func (m *ProfileManager) SelectedModel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected
}

func (m *ProfileManager) Select(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[key]; !ok {
		return domainErrors.ErrProfileNotFound.WithContext("profile", key)
	}
	m.selected = key
	return nil
}

// Update applies a partial update. Built-in profiles only accept a new API key.
func (m *ProfileManager) Update(key string, upd ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[key]
	if !ok {
		return domainErrors.ErrProfileNotFound.WithContext("profile", key)
	}
	if !p.Editable && upd.touchesLockedFields() {
		return domainErrors.ErrProfileNotEditable.WithContext("profile", key)
	}

	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Model != nil {
		p.Model = *upd.Model
	}
	if upd.BaseURL != nil {
		p.BaseURL = *upd.BaseURL
	}
	if upd.APIKey != nil {
		p.APIKey = *upd.APIKey
		if envKey, builtin := BuiltinSecretEnv[key]; builtin {
			m.cleared[envKey] = p.APIKey == ""
		}
	}
	if upd.Provider != nil {
		p.Provider = *upd.Provider
	}

	if err := validateProfile(p); err != nil {
		return err
	}
	m.profiles[key] = p
	return nil
}

// Add registers a new custom profile. Custom profiles are always editable.
func (m *ProfileManager) Add(p ModelProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.Key = strings.TrimSpace(p.Key)
	if _, exists := m.profiles[p.Key]; exists || IsBuiltin(p.Key) {
		return domainErrors.ErrProfileExists.WithContext("profile", p.Key)
	}
	if p.Provider == "" {
		p.Provider = defaultCustomProviderKey
	}
	if p.Name == "" {
		p.Name = p.Key
	}
	p.Editable = true

	if err := validateProfile(p); err != nil {
		return err
	}
	m.profiles[p.Key] = p
	return nil
}

func (m *ProfileManager) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[key]
	if !ok {
		return domainErrors.ErrProfileNotFound.WithContext("profile", key)
	}
	if !p.Editable || IsBuiltin(key) {
		return domainErrors.ErrProfileNotEditable.WithContext("profile", key)
	}

	delete(m.profiles, key)
	if m.selected == key {
		m.selected = DefaultProfileKey
	}
	return nil
}

// SaveAll persists the selected profile, every profile, and mirrors the
// built-in secrets into their dedicated keys. A built-in key cleared through
// Update is written back empty so the old secret stops resolving.
func (m *ProfileManager) SaveAll(ctx context.Context) error {
	m.mu.RLock()
	merged := DefaultProfiles()
	for key, p := range m.profiles {
		merged[key] = p
	}
	selected := m.selected
	updates := map[string]string{
		SelectedModelKey: selected,
	}
	for envKey, cleared := range m.cleared {
		if cleared {
			updates[envKey] = ""
		}
	}
	m.mu.RUnlock()

	if qwen := merged[builtinProfileQwen]; qwen.APIKey != "" {
		updates[EnvDashScopeAPIKey] = qwen.APIKey
	}
	if azure := merged[builtinProfileAzure]; azure.APIKey != "" || azure.BaseURL != "" {
		if azure.APIKey != "" {
			updates[EnvAzureAPIKey] = azure.APIKey
		}
		if azure.BaseURL != "" {
			updates[EnvAzureEndpoint] = azure.BaseURL
		}
		updates[EnvAzureDeployment] = azure.AzureDeployment()
	}
	if grok := merged[builtinProfileGrok]; grok.APIKey != "" {
		updates[EnvGrokAPIKey] = grok.APIKey
	}

	encoded, err := encodeProfiles(merged)
	if err != nil {
		return err
	}
	updates[ProfilesKey] = encoded

	if err := m.store.Save(ctx, updates); err != nil {
		return err
	}

	m.mu.Lock()
	m.profiles = merged
	m.cleared = make(map[string]bool)
	m.mu.Unlock()

	logger.Info(ctx, "model profiles saved",
		"profile", selected,
		"count", len(merged))
	return nil
}

func validateProfile(p ModelProfile) error {
	if p.Key == "" {
		return domainErrors.ErrInvalidProfile.WithContext("field", "key")
	}
	if strings.TrimSpace(p.Model) == "" {
		return domainErrors.ErrInvalidProfile.WithContext("field", "model").WithContext("profile", p.Key)
	}
	switch p.Provider {
	case ProviderOpenAI, ProviderAzure, ProviderGemini:
	default:
		return domainErrors.ErrProviderNotSupported.WithContext("provider", string(p.Provider))
	}
	return nil
}
