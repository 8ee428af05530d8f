package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadSettings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s := LoadSettings(map[string]string{})

		assert.Equal(t, "Feature", s.ADO.FeatureType)
		assert.Equal(t, DefaultAreaPath, s.ADO.AreaPath)
		assert.Equal(t, 60*time.Second, s.HTTPTimeout)
		assert.Equal(t, 5*time.Minute, s.StageTimeout)
		assert.False(t, s.ADO.Configured())
		assert.False(t, s.Confluence.Configured())
	})

	t.Run("store values", func(t *testing.T) {
		s := LoadSettings(map[string]string{
			KeyADOOrgURL:       "https://dev.azure.com/acme/",
			KeyADOPAT:          "pat",
			KeyADOProject:      "Portside",
			KeyConfluenceURL:   "https://wiki.acme.com",
			KeyConfluenceToken: "tok",
			KeyConfluenceSpace: "REQ",
			KeyHTTPTimeout:     "15s",
		})

		assert.Equal(t, "https://dev.azure.com/acme", s.ADO.OrgURL)
		assert.True(t, s.ADO.Configured())
		assert.True(t, s.Confluence.Configured())
		assert.Equal(t, 15*time.Second, s.HTTPTimeout)
	})

	t.Run("process environment wins", func(t *testing.T) {
		t.Setenv(KeyADOProject, "FromEnv")
		s := LoadSettings(map[string]string{KeyADOProject: "FromFile"})
		assert.Equal(t, "FromEnv", s.ADO.Project)
	})

	t.Run("language defaults to english and is lowercased", func(t *testing.T) {
		t.Setenv(KeyLanguage, "")
		assert.Equal(t, "en", LoadSettings(map[string]string{}).Language)
		assert.Equal(t, "zh", LoadSettings(map[string]string{KeyLanguage: "ZH"}).Language)
	})

	t.Run("invalid durations fall back", func(t *testing.T) {
		s := LoadSettings(map[string]string{KeyStageTimeout: "soon"})
		assert.Equal(t, 5*time.Minute, s.StageTimeout)
	})
}

func TestEnviron(t *testing.T) {
	t.Setenv("REQTRACKER_TEST_VAR", "env")

	env := Environ(map[string]string{
		"REQTRACKER_TEST_VAR":  "file",
		"REQTRACKER_FILE_ONLY": "file",
	})

	assert.Equal(t, "env", env["REQTRACKER_TEST_VAR"])
	assert.Equal(t, "file", env["REQTRACKER_FILE_ONLY"])
}
