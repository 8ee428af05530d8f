package agents

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/models"
)

// ParseRequirement validates analyzer output. The output must be one JSON
// object, optionally inside a markdown code fence, holding all six record keys
// as strings. Unknown keys are ignored. The summary must not be blank because
// it becomes the work item title, which Azure DevOps requires, and the wiki
// page title; the other fields may be empty.
func ParseRequirement(raw string) (*models.RequirementRecord, error) {
	text := stripCodeFence(raw)
	if text == "" {
		return nil, malformed("output is empty", raw)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, domainErrors.ErrMalformedAnalyzerOutput.
			WithError(err).
			WithContext("output", truncate(raw))
	}

	values := make(map[string]string, len(models.RequirementKeys))
	for _, key := range models.RequirementKeys {
		value, ok := fields[key]
		if !ok {
			return nil, malformed(fmt.Sprintf("missing key %q", key), raw)
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, malformed(fmt.Sprintf("key %q is not a string", key), raw)
		}
		values[key] = s
	}

	record := &models.RequirementRecord{
		Summary:   strings.TrimSpace(values["summary"]),
		Problem:   values["problem"],
		Goal:      values["goal"],
		Artifacts: values["artifacts"],
		Criteria:  values["criteria"],
		Risks:     values["risks"],
	}
	if record.Summary == "" {
		return nil, malformed("summary is empty, the work item needs a title", raw)
	}
	return record, nil
}

func malformed(reason, raw string) error {
	return domainErrors.ErrMalformedAnalyzerOutput.
		WithError(errors.New(reason)).
		WithContext("output", truncate(raw))
}

func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	// drop the opening fence line, which may carry a language tag
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		return ""
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func truncate(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
