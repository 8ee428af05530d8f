package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomas-vilte/reqtracker/internal/config"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
)

func TestSetModelCommand(t *testing.T) {
	t.Run("Success - selects built-in profile", func(t *testing.T) {
		store, translations := setupConfigTest(t, "")

		out, err := runConfig(t, store, translations, "config", "set-model", "azure")

		require.NoError(t, err)
		assert.Contains(t, out, "azure")
		assert.Equal(t, "azure", store.Load(context.Background())[config.SelectedModelKey])
	})

	t.Run("Error - unknown profile", func(t *testing.T) {
		store, translations := setupConfigTest(t, "SELECTED_MODEL=qwen\n")

		_, err := runConfig(t, store, translations, "config", "set-model", "missing")

		assert.ErrorIs(t, err, domainErrors.ErrProfileNotFound)
		assert.Equal(t, "qwen", store.Load(context.Background())[config.SelectedModelKey])
	})

	t.Run("Error - missing argument", func(t *testing.T) {
		store, translations := setupConfigTest(t, "")

		_, err := runConfig(t, store, translations, "config", "set-model")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "set-model")
	})
}

func TestAddModelCommand(t *testing.T) {
	t.Run("Success - adds editable custom profile and selects it", func(t *testing.T) {
		store, translations := setupConfigTest(t, "# credentials\nADO_PAT=keep-me\n")

		_, err := runConfig(t, store, translations, "config", "add-model",
			"--key", "local", "--model", "llama3", "--base-url", "http://localhost:11434/v1", "--select")

		require.NoError(t, err)
		profiles := store.LoadProfiles(context.Background())
		require.Contains(t, profiles, "local")
		local := profiles["local"]
		assert.Equal(t, "llama3", local.Model)
		assert.Equal(t, "local", local.Name)
		assert.Equal(t, config.ProviderOpenAI, local.Provider)
		assert.True(t, local.Editable)
		assert.Contains(t, profiles, "qwen")

		values := store.Load(context.Background())
		assert.Equal(t, "local", values[config.SelectedModelKey])
		assert.Equal(t, "keep-me", values[config.KeyADOPAT])
		assert.Contains(t, readFile(t, store), "# credentials\n")
	})

	t.Run("Error - built-in key is taken", func(t *testing.T) {
		store, translations := setupConfigTest(t, "")

		_, err := runConfig(t, store, translations, "config", "add-model", "--key", "qwen", "--model", "x")

		assert.ErrorIs(t, err, domainErrors.ErrProfileExists)
	})

	t.Run("Error - unsupported provider", func(t *testing.T) {
		store, translations := setupConfigTest(t, "")

		_, err := runConfig(t, store, translations, "config", "add-model",
			"--key", "x", "--model", "m", "--provider", "bedrock")

		assert.ErrorIs(t, err, domainErrors.ErrProviderNotSupported)
	})

	t.Run("Error - key flag is required", func(t *testing.T) {
		store, translations := setupConfigTest(t, "")

		_, err := runConfig(t, store, translations, "config", "add-model", "--model", "m")

		assert.Error(t, err)
	})
}

func TestUpdateModelCommand(t *testing.T) {
	custom := `LLM_CONFIG=[{"key":"local","name":"Local","model":"llama3","base_url":"http://a","provider":"openai"}]` + "\n"

	t.Run("Success - updates only given fields", func(t *testing.T) {
		store, translations := setupConfigTest(t, custom)

		_, err := runConfig(t, store, translations, "config", "update-model", "--model", "llama3.1", "local")

		require.NoError(t, err)
		local := store.LoadProfiles(context.Background())["local"]
		assert.Equal(t, "llama3.1", local.Model)
		assert.Equal(t, "Local", local.Name)
		assert.Equal(t, "http://a", local.BaseURL)
	})

	t.Run("Error - built-in model cannot change", func(t *testing.T) {
		store, translations := setupConfigTest(t, "")

		_, err := runConfig(t, store, translations, "config", "update-model", "--model", "qwen-plus", "qwen")

		assert.ErrorIs(t, err, domainErrors.ErrProfileNotEditable)
	})

	t.Run("Error - no flags given", func(t *testing.T) {
		store, translations := setupConfigTest(t, custom)

		_, err := runConfig(t, store, translations, "config", "update-model", "local")

		assert.Error(t, err)
	})
}

func TestDeleteModelCommand(t *testing.T) {
	t.Run("Success - deleting the selected profile falls back to default", func(t *testing.T) {
		store, translations := setupConfigTest(t,
			"SELECTED_MODEL=local\n"+`LLM_CONFIG=[{"key":"local","model":"llama3","provider":"openai"}]`+"\n")

		_, err := runConfig(t, store, translations, "config", "delete-model", "local")

		require.NoError(t, err)
		assert.NotContains(t, store.LoadProfiles(context.Background()), "local")
		assert.Equal(t, config.DefaultProfileKey, store.Load(context.Background())[config.SelectedModelKey])
	})

	t.Run("Error - built-in profile", func(t *testing.T) {
		store, translations := setupConfigTest(t, "")

		_, err := runConfig(t, store, translations, "config", "delete-model", "grok")

		assert.ErrorIs(t, err, domainErrors.ErrProfileNotEditable)
	})
}

func TestSetKeyCommand(t *testing.T) {
	t.Run("Success - built-in key is mirrored to its variable", func(t *testing.T) {
		store, translations := setupConfigTest(t, "")

		_, err := runConfig(t, store, translations, "config", "set-key", "qwen", " sk-dashscope ")

		require.NoError(t, err)
		values := store.Load(context.Background())
		assert.Equal(t, "sk-dashscope", values[config.EnvDashScopeAPIKey])
		assert.Equal(t, "sk-dashscope", store.LoadProfiles(context.Background())["qwen"].APIKey)
	})

	t.Run("Error - unknown profile", func(t *testing.T) {
		store, translations := setupConfigTest(t, "")

		_, err := runConfig(t, store, translations, "config", "set-key", "nope", "k")

		assert.ErrorIs(t, err, domainErrors.ErrProfileNotFound)
	})
}

func TestSetCommand(t *testing.T) {
	t.Run("Success - writes raw value in place", func(t *testing.T) {
		store, translations := setupConfigTest(t, "ADO_PROJECT=Old\nADO_PAT=x\n")

		_, err := runConfig(t, store, translations, "config", "set", "ADO_PROJECT", "Portside IMS")

		require.NoError(t, err)
		assert.Equal(t, "ADO_PROJECT=\"Portside IMS\"\nADO_PAT=x\n", readFile(t, store))
	})

	t.Run("Error - LLM_CONFIG is rejected", func(t *testing.T) {
		store, translations := setupConfigTest(t, "")

		_, err := runConfig(t, store, translations, "config", "set", config.ProfilesKey, "[]")

		assert.ErrorIs(t, err, domainErrors.ErrInvalidProfile)
	})
}
