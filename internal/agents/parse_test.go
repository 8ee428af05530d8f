package agents

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/models"
)

func TestParseRequirement(t *testing.T) {
	full := `{"summary":"Auto Tool","problem":"P","goal":"G","artifacts":"A","criteria":"C","risks":"R"}`
	want := &models.RequirementRecord{
		Summary: "Auto Tool", Problem: "P", Goal: "G", Artifacts: "A", Criteria: "C", Risks: "R",
	}

	tests := []struct {
		name    string
		raw     string
		want    *models.RequirementRecord
		wantErr bool
	}{
		{name: "Success - plain object", raw: full, want: want},
		{name: "Success - json code fence", raw: "```json\n" + full + "\n```", want: want},
		{name: "Success - bare code fence", raw: "```\n" + full + "\n```\n", want: want},
		{
			name: "Success - empty optional fields and extra keys",
			raw:  `{"summary":" T ","problem":"","goal":"","artifacts":"","criteria":"","risks":"","extra":1}`,
			want: &models.RequirementRecord{Summary: "T"},
		},
		{name: "Error - prose around object", raw: "Here you go: " + full, wantErr: true},
		{name: "Error - empty output", raw: "  ", wantErr: true},
		{name: "Error - missing key", raw: `{"summary":"S","problem":"P","goal":"G","artifacts":"A","criteria":"C"}`, wantErr: true},
		{name: "Error - non string value", raw: `{"summary":"S","problem":"P","goal":"G","artifacts":["a"],"criteria":"C","risks":"R"}`, wantErr: true},
		{name: "Error - blank summary", raw: `{"summary":"  ","problem":"P","goal":"G","artifacts":"A","criteria":"C","risks":"R"}`, wantErr: true},
		{name: "Error - array", raw: `[` + full + `]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequirement(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, domainErrors.ErrMalformedAnalyzerOutput)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRequirement_BlankSummaryNamesTheTitle(t *testing.T) {
	_, err := ParseRequirement(`{"summary":"\t","problem":"P","goal":"G","artifacts":"A","criteria":"C","risks":"R"}`)

	require.ErrorIs(t, err, domainErrors.ErrMalformedAnalyzerOutput)
	assert.Contains(t, err.Error(), "the work item needs a title")
}

func TestParseRequirement_AcceptsEveryEncodedRecord(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		record := models.RequirementRecord{
			Summary:   rapid.StringMatching(`[A-Za-z0-9]{1,20}`).Draw(t, "summary"),
			Problem:   rapid.String().Draw(t, "problem"),
			Goal:      rapid.String().Draw(t, "goal"),
			Artifacts: rapid.String().Draw(t, "artifacts"),
			Criteria:  rapid.String().Draw(t, "criteria"),
			Risks:     rapid.String().Draw(t, "risks"),
		}
		raw, err := json.Marshal(record)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		got, err := ParseRequirement(string(raw))
		if err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
		if *got != record {
			t.Fatalf("got %+v, want %+v", *got, record)
		}
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc"))
	long := strings.Repeat("x", 300)
	assert.Len(t, truncate(long), 203)
}
