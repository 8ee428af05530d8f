package completion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
	"github.com/thomas-vilte/reqtracker/internal/ui"
)

const bashCompletionScript = `#! /bin/bash

_reqtracker_bash_autocomplete() {
  if [[ "${COMP_WORDS[0]}" != "source" ]]; then
    local cur opts
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    local cmd_context=("${COMP_WORDS[@]:0:$COMP_CWORD}")
    opts=$( "${cmd_context[@]}" --generate-shell-completion )
    COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
    return 0
  fi
}

complete -o bashdefault -o default -o nospace -F _reqtracker_bash_autocomplete reqtracker
`

const zshCompletionScript = `#compdef reqtracker

_reqtracker() {
  local -a opts
  local cmd_context=("${(@)words[1,$CURRENT-1]}")
  opts=("${(@f)$("${cmd_context[@]}" --generate-shell-completion)}")
  _describe 'values' opts
}

compdef _reqtracker reqtracker
`

const installMarker = "# reqtracker shell completion"

const installInfo = `
` + installMarker + `
if command -v reqtracker >/dev/null 2>&1; then
	source <(reqtracker completion %s)
fi
`

type CompletionCommandFactory struct {
	// homeDir locates the shell rc files; tests point it at a temp dir.
	homeDir func() (string, error)
}

func NewCompletionCommandFactory() *CompletionCommandFactory {
	return &CompletionCommandFactory{homeDir: os.UserHomeDir}
}

func (f *CompletionCommandFactory) CreateCommand(t *i18n.Translations, _ *config.Store) *cli.Command {
	return &cli.Command{
		Name:  "completion",
		Usage: t.GetMessage("completion.command_usage", 0, nil),
		Commands: []*cli.Command{
			{
				Name:  "bash",
				Usage: t.GetMessage("completion.bash_usage", 0, nil),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, _ = fmt.Fprint(cmd.Root().Writer, bashCompletionScript)
					return nil
				},
			},
			{
				Name:  "zsh",
				Usage: t.GetMessage("completion.zsh_usage", 0, nil),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, _ = fmt.Fprint(cmd.Root().Writer, zshCompletionScript)
					return nil
				},
			},
			{
				Name:  "install",
				Usage: t.GetMessage("completion.install_usage", 0, nil),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return f.install(t, cmd)
				},
			},
		},
	}
}

func (f *CompletionCommandFactory) install(t *i18n.Translations, cmd *cli.Command) error {
	w := cmd.Root().Writer
	shell := os.Getenv("SHELL")
	home, err := f.homeDir()
	if err != nil {
		return fmt.Errorf("%s", t.GetMessage("completion.error_home_dir", 0, map[string]interface{}{"Error": err.Error()}))
	}

	var configFile, shellName string
	switch {
	case strings.Contains(shell, "zsh"):
		configFile = filepath.Join(home, ".zshrc")
		shellName = "zsh"
	case strings.Contains(shell, "bash"):
		configFile = filepath.Join(home, ".bashrc")
		shellName = "bash"
	default:
		return fmt.Errorf("%s", t.GetMessage("completion.error_unsupported_shell", 0, map[string]interface{}{"Shell": shell}))
	}

	content, err := os.ReadFile(configFile)
	if err == nil && strings.Contains(string(content), installMarker) {
		ui.PrintInfo(w, t.GetMessage("completion.already_installed", 0, map[string]interface{}{"File": configFile}))
		return nil
	}

	file, err := os.OpenFile(configFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("%s", t.GetMessage("completion.error_write_config", 0, map[string]interface{}{"Error": err.Error()}))
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := fmt.Fprintf(file, installInfo, shellName); err != nil {
		return fmt.Errorf("%s", t.GetMessage("completion.error_write_config", 0, map[string]interface{}{"Error": err.Error()}))
	}

	ui.PrintSuccess(w, t.GetMessage("completion.installed_success", 0, map[string]interface{}{"File": configFile}))
	_, _ = fmt.Fprintf(w, "  source %s\n", configFile)
	return nil
}
