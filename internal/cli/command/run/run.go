package run

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/thomas-vilte/reqtracker/internal/config"
	"github.com/thomas-vilte/reqtracker/internal/crew"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
	"github.com/thomas-vilte/reqtracker/internal/logger"
	"github.com/thomas-vilte/reqtracker/internal/ui"
)

// Runner runs one requirement through the pipeline and reports the outcome as text.
type Runner interface {
	Run(ctx context.Context, input, profileName string) string
}

// RunnerProvider builds the runner lazily so that commands which never run the
// pipeline do not need a working configuration.
type RunnerProvider func(ctx context.Context, store *config.Store) (Runner, error)

var exitWords = map[string]bool{"exit": true, "quit": true, "q": true}

type RunCommandFactory struct {
	provider RunnerProvider
}

func NewRunCommandFactory(provider RunnerProvider) *RunCommandFactory {
	return &RunCommandFactory{provider: provider}
}

func (f *RunCommandFactory) CreateCommand(t *i18n.Translations, store *config.Store) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     t.GetMessage("run.command_usage", 0, nil),
		ArgsUsage: t.GetMessage("run.args_usage", 0, nil),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Usage:   t.GetMessage("run.flag_profile", 0, nil),
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   t.GetMessage("run.flag_file", 0, nil),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			input, err := readInput(cmd)
			if err != nil {
				return err
			}

			runner, err := f.provider(ctx, store)
			if err != nil {
				return err
			}

			profile := cmd.String("profile")
			w := cmd.Root().Writer

			if strings.TrimSpace(input) != "" {
				if out, ok := runOnce(ctx, t, runner, w, input, profile); !ok {
					return errors.New(strings.TrimPrefix(out, crew.ErrorPrefix))
				}
				return nil
			}

			return interactive(ctx, t, runner, cmd.Root().Reader, w, profile)
		},
	}
}

func readInput(cmd *cli.Command) (string, error) {
	if path := cmd.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", domainErrors.NewAppError(domainErrors.TypeConfiguration, "failed to read requirement file", err).
				WithContext("path", path)
		}
		return string(data), nil
	}
	return strings.Join(cmd.Args().Slice(), " "), nil
}

// runOnce runs one requirement and prints the result. It reports false when
// the pipeline failed.
func runOnce(ctx context.Context, t *i18n.Translations, runner Runner, w io.Writer, input, profile string) (string, bool) {
	spinner := ui.NewSmartSpinner(w, t.GetMessage("run.analyzing", 0, nil))
	spinner.Start()
	out := runner.Run(ctx, input, profile)
	spinner.Stop()

	if strings.HasPrefix(out, crew.ErrorPrefix) {
		ui.PrintError(w, out)
		return out, false
	}

	ui.PrintSuccess(w, t.GetMessage("run.published", 0, nil))
	_, _ = fmt.Fprintln(w, out)
	return out, true
}

// interactive reads one requirement per line until exit, quit, q or end of
// input. A failed run does not end the session.
func interactive(ctx context.Context, t *i18n.Translations, runner Runner, r io.Reader, w io.Writer, profile string) error {
	_, _ = fmt.Fprintln(w, t.GetMessage("run.interactive_banner", 0, nil))

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	runs := 0
	for {
		_, _ = fmt.Fprint(w, t.GetMessage("run.prompt", 0, nil))
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitWords[strings.ToLower(line)] {
			break
		}

		if _, ok := runOnce(ctx, t, runner, w, line, profile); !ok {
			logger.Debug(ctx, "interactive run failed, waiting for next input")
		}
		runs++
	}

	if err := scanner.Err(); err != nil {
		return domainErrors.NewAppError(domainErrors.TypeInternal, "failed to read input", err)
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, t.GetMessage("run.goodbye", runs, map[string]interface{}{"Count": runs}))
	return nil
}
