package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestAppError_WithError(t *testing.T) {
	baseErr := errors.New("original error")
	appErr := ErrTrackerRequest.WithError(baseErr)

	if appErr.Err != baseErr {
		t.Errorf("Expected underlying error to be %v, got %v", baseErr, appErr.Err)
	}

	if appErr.Type != TypeTracker {
		t.Errorf("Expected type %s, got %s", TypeTracker, appErr.Type)
	}
}

func TestAppError_WithContext(t *testing.T) {
	appErr := ErrWikiRequest.WithContext("page_id", "9001").WithContext("response", "version conflict")

	if appErr.Context["page_id"] != "9001" {
		t.Errorf("Expected page_id context '9001', got %v", appErr.Context["page_id"])
	}

	if appErr.Context["response"] != "version conflict" {
		t.Errorf("Expected response context 'version conflict', got %v", appErr.Context["response"])
	}
}

func TestAppError_Error_Format(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		contains []string
	}{
		{
			name: "Simple error without underlying error",
			err:  ErrEmptyInput,
			contains: []string{
				"PIPELINE",
				"requirement text is empty",
			},
		},
		{
			name: "Error with underlying error",
			err:  ErrMalformedAnalyzerOutput.WithError(errors.New("unexpected end of JSON input")),
			contains: []string{
				"PIPELINE",
				"analyzer output is not a valid requirement record",
				"unexpected end of JSON input",
			},
		},
		{
			name: "Error with response body in context",
			err: ErrTrackerRequest.WithError(errors.New("400 Bad Request")).
				WithContext("status", 400).
				WithContext("response", "TF401320: Rule Error"),
			contains: []string{
				"TRACKER",
				"400 Bad Request",
				"TF401320: Rule Error",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errMsg := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errMsg, substr) {
					t.Errorf("Expected error message to contain %q, got: %s", substr, errMsg)
				}
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	appErr := ErrAIGeneration.WithError(baseErr)

	unwrapped := appErr.Unwrap()
	if unwrapped != baseErr {
		t.Errorf("Expected unwrapped error to be %v, got %v", baseErr, unwrapped)
	}

	if !errors.Is(appErr, baseErr) {
		t.Error("errors.Is should work with AppError")
	}
}

func TestAppError_IsMatchesSentinel(t *testing.T) {
	derived := ErrTrackerNotConfigured.WithError(errors.New("ADO_PAT is empty")).WithContext("key", "ADO_PAT")

	if !errors.Is(derived, ErrTrackerNotConfigured) {
		t.Error("derived error should match its sentinel")
	}

	if errors.Is(derived, ErrTrackerUnauthorized) {
		t.Error("not-configured must not match unauthorized")
	}
}

func TestAppError_ChainedContext(t *testing.T) {
	appErr := ErrWikiNotFound.
		WithError(errors.New("404")).
		WithContext("page_id", "42").
		WithContext("space", "REQ")

	if appErr.Context["page_id"] != "42" {
		t.Errorf("Expected page_id context, got %v", appErr.Context["page_id"])
	}

	if appErr.Context["space"] != "REQ" {
		t.Errorf("Expected space context, got %v", appErr.Context["space"])
	}

	// Ensure we didn't modify the original error
	if ErrWikiNotFound.Context != nil {
		t.Error("Original error should not have context")
	}
}
