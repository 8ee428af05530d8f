package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/ai"
	"github.com/thomas-vilte/reqtracker/internal/ai/registry"
	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/httpclient"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
	"github.com/thomas-vilte/reqtracker/internal/services/routing"
	"github.com/thomas-vilte/reqtracker/internal/ui"
)

// ErrHealthCheckFailed is returned by doctor when at least one check errored.
var ErrHealthCheckFailed = errors.New("health check failed")

type DoctorCommand struct{}

func NewDoctorCommand() *DoctorCommand {
	return &DoctorCommand{}
}

func (d *DoctorCommand) CreateCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:    "doctor",
		Aliases: []string{"dr"},
		Usage:   t.GetMessage("doctor.command_usage", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return d.runHealthCheck(ctx, cmd.Root().Writer, t, store)
		},
	}
}

type healthCheck struct {
	name string
	fn   func(context.Context, *i18n.Translations, *doctorState) checkResult
}

type checkStatus int

const (
	checkStatusOK checkStatus = iota
	checkStatusWarning
	checkStatusError
)

type checkResult struct {
	status     checkStatus
	message    string
	suggestion string
}

// doctorState is what every check reads: the store plus the values and
// settings loaded from it once.
type doctorState struct {
	store    *config.Store
	env      map[string]string
	settings *config.Settings
}

func (d *DoctorCommand) runHealthCheck(ctx context.Context, w io.Writer, t *i18n.Translations, store *config.Store) error {
	ui.PrintSectionBanner(w, t.GetMessage("doctor.running_checks", 0, nil))

	values := store.Load(ctx)
	state := &doctorState{
		store:    store,
		env:      config.Environ(values),
		settings: config.LoadSettings(values),
	}

	checks := []healthCheck{
		{name: "doctor.check_config_file", fn: d.checkConfigFile},
		{name: "doctor.check_model_key", fn: d.checkModelKey},
		{name: "doctor.check_definitions", fn: d.checkDefinitions},
		{name: "doctor.check_ado", fn: d.checkADO},
		{name: "doctor.check_confluence", fn: d.checkConfluence},
	}

	warnings, failures := 0, 0
	for _, check := range checks {
		checkName := t.GetMessage(check.name, 0, nil)
		spinner := ui.NewSmartSpinner(w, checkName)
		spinner.Start()

		result := check.fn(ctx, t, state)

		switch result.status {
		case checkStatusOK:
			spinner.Success(checkName)
			if result.message != "" {
				ui.PrintInfo(w, "  "+result.message)
			}
		case checkStatusWarning:
			spinner.Warning(checkName)
			warnings++
			if result.message != "" {
				ui.PrintInfo(w, "  "+result.message)
			}
			if result.suggestion != "" {
				ui.PrintInfo(w, "  → "+result.suggestion)
			}
		case checkStatusError:
			spinner.Error(checkName)
			failures++
			if result.message != "" {
				ui.PrintInfo(w, "  "+result.message)
			}
			if result.suggestion != "" {
				ui.PrintInfo(w, "  → "+result.suggestion)
			}
		}
	}

	_, _ = fmt.Fprintln(w)
	ui.PrintSectionBanner(w, t.GetMessage("doctor.summary", 0, nil))

	switch {
	case failures > 0:
		ui.PrintError(w, t.GetMessage("doctor.has_errors", failures, map[string]interface{}{"Count": failures}))
		return ErrHealthCheckFailed
	case warnings > 0:
		ui.PrintWarning(w, t.GetMessage("doctor.has_warnings", warnings, map[string]interface{}{"Count": warnings}))
	default:
		ui.PrintSuccess(w, t.GetMessage("doctor.all_good", 0, nil))
	}
	return nil
}

func (d *DoctorCommand) checkConfigFile(_ context.Context, t *i18n.Translations, s *doctorState) checkResult {
	if _, err := os.Stat(s.store.Path()); err != nil {
		return checkResult{
			status:     checkStatusWarning,
			message:    t.GetMessage("doctor.config_not_found", 0, map[string]interface{}{"Path": s.store.Path()}),
			suggestion: t.GetMessage("doctor.run_config_init", 0, nil),
		}
	}
	return checkResult{
		status:  checkStatusOK,
		message: fmt.Sprintf("(%s)", s.store.Path()),
	}
}

// checkModelKey resolves the selected profile the way a run would and asks
// its provider whether the handle is usable.
func (d *DoctorCommand) checkModelKey(ctx context.Context, t *i18n.Translations, s *doctorState) checkResult {
	h := routing.NewResolver(s.store).Resolve(ctx, "", s.env)

	backends := registry.Default(httpclient.New(s.settings.HTTPTimeout))
	if !backends.IsRegistered(string(h.Provider)) {
		return checkResult{
			status:  checkStatusError,
			message: fmt.Sprintf("%s: %s", h.ProfileKey, t.GetMessage("doctor.unknown_provider", 0, map[string]interface{}{"Provider": h.Provider})),
			suggestion: t.GetMessage("doctor.supported_providers", 0, map[string]interface{}{
				"Providers": strings.Join(backends.List(), ", "),
			}),
		}
	}

	factory, err := backends.Get(string(h.Provider))
	if err == nil {
		err = factory.ValidateHandle(h)
	}
	if err != nil {
		return checkResult{
			status:     checkStatusError,
			message:    fmt.Sprintf("%s: %v", h.ProfileKey, err),
			suggestion: t.GetMessage("doctor.set_key_suggestion", 0, map[string]interface{}{"Key": h.ProfileKey}),
		}
	}
	return checkResult{
		status:  checkStatusOK,
		message: fmt.Sprintf("(%s → %s)", h.ProfileKey, h.String()),
	}
}

func (d *DoctorCommand) checkDefinitions(_ context.Context, _ *i18n.Translations, _ *doctorState) checkResult {
	if _, err := ai.LoadDefinitions(); err != nil {
		return checkResult{status: checkStatusError, message: err.Error()}
	}
	return checkResult{status: checkStatusOK}
}

func (d *DoctorCommand) checkADO(_ context.Context, t *i18n.Translations, s *doctorState) checkResult {
	ado := s.settings.ADO
	if !ado.Configured() {
		return checkResult{
			status:     checkStatusError,
			message:    t.GetMessage("doctor.ado_not_configured", 0, nil),
			suggestion: t.GetMessage("doctor.ado_suggestion", 0, nil),
		}
	}
	return checkResult{
		status:  checkStatusOK,
		message: fmt.Sprintf("(%s/%s, %s)", ado.OrgURL, ado.Project, ado.FeatureType),
	}
}

func (d *DoctorCommand) checkConfluence(_ context.Context, t *i18n.Translations, s *doctorState) checkResult {
	wiki := s.settings.Confluence
	if !wiki.Configured() {
		return checkResult{
			status:     checkStatusError,
			message:    t.GetMessage("doctor.confluence_not_configured", 0, nil),
			suggestion: t.GetMessage("doctor.confluence_suggestion", 0, nil),
		}
	}
	return checkResult{
		status:  checkStatusOK,
		message: fmt.Sprintf("(%s, space %s)", wiki.URL, wiki.Space),
	}
}
