package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyADOOrgURL          = "ADO_ORG_URL"
	KeyADOPAT             = "ADO_PAT"
	KeyADOProject         = "ADO_PROJECT"
	KeyADOFeatureType     = "ADO_FEATURE_TYPE"
	KeyADOAreaPath        = "ADO_AREA_PATH"
	KeyConfluenceURL      = "CONFLUENCE_URL"
	KeyConfluenceUser     = "CONFLUENCE_USER"
	KeyConfluenceToken    = "CONFLUENCE_TOKEN"
	KeyConfluenceSpace    = "CONFLUENCE_SPACE"
	KeyConfluenceParentID = "CONFLUENCE_PARENT_ID"
	KeyHTTPTimeout        = "HTTP_TIMEOUT"
	KeyStageTimeout       = "STAGE_TIMEOUT"
	KeyLanguage           = "REQTRACKER_LANG"

	DefaultFeatureType  = "Feature"
	DefaultAreaPath     = `Move and Sell\01. Move and Sell Portfolio\Iron Ore Product Group\Portside IMS`
	DefaultHTTPTimeout  = 60 * time.Second
	DefaultStageTimeout = 5 * time.Minute
	DefaultLanguage     = "en"
)

type ADOSettings struct {
	OrgURL      string
	PAT         string
	Project     string
	FeatureType string
	AreaPath    string
}

func (s ADOSettings) Configured() bool {
	return s.OrgURL != "" && s.PAT != "" && s.Project != ""
}

type ConfluenceSettings struct {
	URL      string
	User     string
	Token    string
	Space    string
	ParentID string
}

func (s ConfluenceSettings) Configured() bool {
	return s.URL != "" && s.Token != "" && s.Space != ""
}

// Settings holds the adapter credentials and timeouts. Process environment
// variables take precedence over values read from the store.
type Settings struct {
	ADO          ADOSettings
	Confluence   ConfluenceSettings
	HTTPTimeout  time.Duration
	StageTimeout time.Duration
	// Language selects the CLI message catalog.
	Language string
}

func LoadSettings(values map[string]string) *Settings {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(KeyADOFeatureType, DefaultFeatureType)
	v.SetDefault(KeyADOAreaPath, DefaultAreaPath)
	v.SetDefault(KeyHTTPTimeout, DefaultHTTPTimeout)
	v.SetDefault(KeyStageTimeout, DefaultStageTimeout)
	v.SetDefault(KeyLanguage, DefaultLanguage)

	for key, value := range values {
		if value != "" {
			v.SetDefault(key, value)
		}
	}

	return &Settings{
		ADO: ADOSettings{
			OrgURL:      strings.TrimRight(v.GetString(KeyADOOrgURL), "/"),
			PAT:         v.GetString(KeyADOPAT),
			Project:     v.GetString(KeyADOProject),
			FeatureType: v.GetString(KeyADOFeatureType),
			AreaPath:    v.GetString(KeyADOAreaPath),
		},
		Confluence: ConfluenceSettings{
			URL:      strings.TrimRight(v.GetString(KeyConfluenceURL), "/"),
			User:     v.GetString(KeyConfluenceUser),
			Token:    v.GetString(KeyConfluenceToken),
			Space:    v.GetString(KeyConfluenceSpace),
			ParentID: v.GetString(KeyConfluenceParentID),
		},
		HTTPTimeout:  durationOr(v.GetDuration(KeyHTTPTimeout), DefaultHTTPTimeout),
		StageTimeout: durationOr(v.GetDuration(KeyStageTimeout), DefaultStageTimeout),
		Language:     strings.ToLower(v.GetString(KeyLanguage)),
	}
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// Environ overlays the process environment on values. Non-empty process
// variables win.
func Environ(values map[string]string) map[string]string {
	env := make(map[string]string, len(values))
	for k, v := range values {
		env[k] = v
	}
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		env[key] = value
	}
	return env
}
