package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
)

// clearedEnv keeps process variables from leaking into the store under test.
var clearedEnv = []string{
	config.EnvDashScopeAPIKey, config.EnvAzureAPIKey, config.EnvAzureEndpoint,
	config.EnvAzureDeployment, config.EnvGrokAPIKey, config.SelectedModelKey,
	config.KeyADOOrgURL, config.KeyADOPAT, config.KeyADOProject,
	config.KeyConfluenceURL, config.KeyConfluenceToken, config.KeyConfluenceSpace,
}

func setupConfigTest(t *testing.T, content string) (*config.Store, *i18n.Translations) {
	t.Helper()
	for _, key := range clearedEnv {
		t.Setenv(key, "")
	}

	path := filepath.Join(t.TempDir(), ".env")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	translations, err := i18n.NewTranslations("en", "")
	require.NoError(t, err)
	return config.NewStore(path), translations
}

func runConfig(t *testing.T, store *config.Store, translations *i18n.Translations, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	app := &cli.Command{
		Name:   "reqtracker",
		Writer: out,
		Commands: []*cli.Command{
			NewConfigCommandFactory().CreateCommand(translations, store),
			NewDoctorCommand().CreateCommand(translations, store),
		},
	}
	err := app.Run(context.Background(), append([]string{"reqtracker"}, args...))
	return out.String(), err
}

func readFile(t *testing.T, store *config.Store) string {
	t.Helper()
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	return string(data)
}

func TestConfigCommand_Subcommands(t *testing.T) {
	store, translations := setupConfigTest(t, "")

	cmd := NewConfigCommandFactory().CreateCommand(translations, store)

	names := make([]string, 0, len(cmd.Commands))
	for _, sub := range cmd.Commands {
		names = append(names, sub.Name)
	}
	assert.Equal(t, []string{"show", "init", "set-model", "add-model", "update-model", "delete-model", "set-key", "set"}, names)
}

func TestInitCommand(t *testing.T) {
	t.Run("Success - seeds built-in profiles", func(t *testing.T) {
		store, translations := setupConfigTest(t, "")

		out, err := runConfig(t, store, translations, "config", "init")

		require.NoError(t, err)
		assert.Contains(t, out, "3 model profiles")
		assert.Len(t, store.LoadProfiles(context.Background()), 3)
		assert.Contains(t, readFile(t, store), config.ProfilesKey+"=")
	})

	t.Run("Success - keeps existing profiles", func(t *testing.T) {
		store, translations := setupConfigTest(t,
			`LLM_CONFIG=[{"key":"local","name":"Local","model":"llama3","provider":"openai"}]`+"\n")

		_, err := runConfig(t, store, translations, "config", "init")

		require.NoError(t, err)
		profiles := store.LoadProfiles(context.Background())
		assert.Len(t, profiles, 1)
		assert.Contains(t, profiles, "local")
	})
}

func TestShowCommand(t *testing.T) {
	t.Run("Success - lists profiles with masked keys", func(t *testing.T) {
		store, translations := setupConfigTest(t, "SELECTED_MODEL=grok\nGROK_API_KEY=xai-secret-1234\n")
		manager := config.NewProfileManager(context.Background(), store)
		key := "xai-secret-1234"
		require.NoError(t, manager.Update("grok", config.ProfileUpdate{APIKey: &key}))
		require.NoError(t, manager.SaveAll(context.Background()))

		out, err := runConfig(t, store, translations, "config", "show")

		require.NoError(t, err)
		assert.Contains(t, out, store.Path())
		assert.Contains(t, out, "grok-beta")
		assert.Contains(t, out, "qwen-max")
		assert.Contains(t, out, "****1234")
		assert.NotContains(t, out, "xai-secret")
	})
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "-", maskKey(""))
	assert.Equal(t, "****", maskKey("abc"))
	assert.Equal(t, "****7890", maskKey("sk-1234567890"))
	assert.Equal(t, "****密钥密钥", maskKey("我的密钥密钥"))
}
