package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/i18n"
)

var (
	// Colors for different message types
	Success = color.New(color.FgGreen, color.Bold)
	Error   = color.New(color.FgRed, color.Bold)
	Warning = color.New(color.FgYellow, color.Bold)
	Info    = color.New(color.FgCyan, color.Bold)
	Accent  = color.New(color.FgMagenta, color.Bold)
	Dim     = color.New(color.FgHiBlack)

	DocEmoji     = "📝"
	SuccessEmoji = Success.Sprint("✅")
	WarningEmoji = Warning.Sprint("⚠️")
	InfoEmoji    = Info.Sprint("ℹ️")
	RocketEmoji  = Accent.Sprint("🚀")
)

var activeSpinner *SmartSpinner

// SmartSpinner animates on stderr while work runs and prints its final
// status line to out.
type SmartSpinner struct {
	spinner *spinner.Spinner
	out     io.Writer
}

// NewSmartSpinner creates a new spinner with an initial message. The spinner
// stays silent when stderr is not a terminal.
func NewSmartSpinner(out io.Writer, initialMessage string) *SmartSpinner {
	s := spinner.New(
		spinner.CharSets[14],
		100*time.Millisecond,
		spinner.WithColor("cyan"),
		spinner.WithSuffix(" "+DocEmoji+" "+initialMessage),
		spinner.WithWriterFile(os.Stderr),
	)
	return &SmartSpinner{spinner: s, out: out}
}

// Start starts the spinner and registers it as the globally active spinner.
func (s *SmartSpinner) Start() {
	activeSpinner = s
	s.spinner.Start()
}

// Stop stops the spinner and clears the active spinner record.
func (s *SmartSpinner) Stop() {
	s.spinner.Stop()
	if activeSpinner == s {
		activeSpinner = nil
	}
}

// StopActiveSpinner stops the currently active spinner in the terminal session.
func StopActiveSpinner() {
	if activeSpinner != nil {
		activeSpinner.Stop()
	}
}

func (s *SmartSpinner) UpdateMessage(msg string) {
	s.spinner.Suffix = " " + DocEmoji + " " + msg
}

func (s *SmartSpinner) Success(msg string) {
	s.Stop()
	PrintSuccess(s.out, msg)
}

func (s *SmartSpinner) Error(msg string) {
	s.Stop()
	PrintError(s.out, msg)
}

func (s *SmartSpinner) Warning(msg string) {
	s.Stop()
	PrintWarning(s.out, msg)
}

func PrintSuccess(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", SuccessEmoji, Success.Sprint(msg))
}

func PrintError(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", Error.Sprint("❌"), Error.Sprint(msg))
}

func PrintWarning(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", WarningEmoji, Warning.Sprint(msg))
}

func PrintInfo(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", InfoEmoji, Info.Sprint(msg))
}

func PrintSectionBanner(w io.Writer, title string) {
	separator := color.New(color.FgCyan).Sprint("━━━━━━━━━━━━━━━━━━━━━━━")
	_, _ = fmt.Fprintf(w, "\n%s\n", separator)
	_, _ = fmt.Fprintf(w, "%s %s\n", RocketEmoji, Accent.Sprint(title))
	_, _ = fmt.Fprintf(w, "%s\n\n", separator)
}

func PrintDuration(w io.Writer, msg string, duration time.Duration) {
	durationStr := Dim.Sprintf("(%s)", duration.Round(10*time.Millisecond))
	_, _ = fmt.Fprintf(w, "%s %s %s\n", SuccessEmoji, Success.Sprint(msg), durationStr)
}

// HandleAppError prints err in a friendly way, including the suggestion of an
// AppError. Without translations the English prefix is used.
func HandleAppError(w io.Writer, err error, translations ...*i18n.Translations) {
	if err == nil {
		return
	}

	var t *i18n.Translations
	if len(translations) > 0 && translations[0] != nil {
		t = translations[0]
	}

	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		suggestionColor := color.New(color.FgCyan)

		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintf(w, "%s\n", Error.Sprintf("❌ %s: %s", appErr.Type, appErr.Message))

		if appErr.Err != nil {
			_, _ = fmt.Fprintf(w, "%s\n", Dim.Sprintf("   Details: %v", appErr.Err))
		}
		if body, ok := appErr.Context["response"].(string); ok && body != "" {
			_, _ = fmt.Fprintf(w, "%s\n", Dim.Sprintf("   Response: %s", body))
		}

		if appErr.Suggestion != "" {
			_, _ = fmt.Fprintln(w)
			tryPrefix := "💡 Try: "
			if t != nil {
				tryPrefix = t.GetMessage("ui_error.try_suggestion", 0, nil)
			}
			_, _ = fmt.Fprint(w, suggestionColor.Sprint(tryPrefix))
			lines := strings.Split(appErr.Suggestion, "\n")
			for i, line := range lines {
				if i == 0 {
					_, _ = fmt.Fprintln(w, line)
				} else {
					_, _ = fmt.Fprintf(w, "       %s\n", line)
				}
			}
		}
		_, _ = fmt.Fprintln(w)

		return
	}

	PrintError(w, err.Error())
}

func PrintKeyValue(w io.Writer, key, value string) {
	keyColored := Dim.Sprint(key + ":")
	valueColored := color.New(color.FgWhite, color.Bold).Sprint(value)
	_, _ = fmt.Fprintf(w, "   %s %s\n", keyColored, valueColored)
}

// AskConfirmation reads one answer line from r. Only y, yes and 是 confirm.
func AskConfirmation(r io.Reader, w io.Writer, question string) bool {
	_, _ = fmt.Fprintf(w, "\n%s (y/n): ", Info.Sprint(question))
	line, _ := bufio.NewReader(r).ReadString('\n')
	response := strings.ToLower(strings.TrimSpace(line))
	return response == "y" || response == "yes" || response == "是"
}

// WithSpinnerAndDuration runs fn behind a spinner and prints how long it took.
func WithSpinnerAndDuration(w io.Writer, message string, fn func() error) error {
	s := NewSmartSpinner(w, message)
	s.Start()

	start := time.Now()
	err := fn()
	duration := time.Since(start)

	if err != nil {
		s.Error(fmt.Sprintf("Error: %v", err))
		return err
	}

	s.Stop()
	PrintDuration(w, message, duration)
	return nil
}
