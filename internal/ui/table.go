package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 1)
	panelTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
)

// RenderTable lays rows out under headers with a normal border.
func RenderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

func PrintTable(w io.Writer, headers []string, rows [][]string) {
	_, _ = fmt.Fprintln(w, RenderTable(headers, rows))
}

// RenderPanel draws a titled box around key/value lines.
func RenderPanel(title string, lines []string) string {
	body := panelTitle.Render(title)
	if len(lines) > 0 {
		body += "\n\n" + strings.Join(lines, "\n")
	}
	return panelStyle.Render(body)
}
