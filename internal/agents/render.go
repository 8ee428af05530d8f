package agents

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/thomas-vilte/reqtracker/internal/ai"
	"github.com/thomas-vilte/reqtracker/internal/models"
)

// Section headings of the published document, in order.
const (
	HeadingProblem   = "Problem Statement"
	HeadingGoal      = "Requirement/Goal"
	HeadingArtifacts = "Artifacts"
	HeadingCriteria  = "Acceptance Criteria"
	HeadingRisks     = "Dependency/Risk/Impact"

	emptySection = "_Not provided_"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithXHTML(),
		html.WithHardWraps(),
	),
)

// RenderMarkdown lays out every record field under its section heading. The
// footer names the model the record was analyzed with.
func RenderMarkdown(record models.RequirementRecord, handle ai.BackendHandle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", record.Summary)

	sections := []struct {
		heading string
		body    string
	}{
		{HeadingProblem, record.Problem},
		{HeadingGoal, record.Goal},
		{HeadingArtifacts, record.Artifacts},
		{HeadingCriteria, record.Criteria},
		{HeadingRisks, record.Risks},
	}
	for _, s := range sections {
		body := strings.TrimSpace(s.body)
		if body == "" {
			body = emptySection
		}
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", s.heading, body)
	}

	if handle.Model != "" {
		fmt.Fprintf(&sb, "---\n\n_Analyzed with %s (profile %s)_\n", handle.Model, handle.ProfileKey)
	}

	return sb.String()
}

// RenderHTML converts markdown into XHTML accepted by the Confluence storage
// format. Raw HTML in the source is omitted.
func RenderHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("error rendering document: %w", err)
	}
	return buf.String(), nil
}
