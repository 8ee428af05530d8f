package errors

import "fmt"

// ErrorType defines the category of the error
type ErrorType string

const (
	TypeConfiguration ErrorType = "CONFIGURATION"
	TypeAI            ErrorType = "AI"
	TypeTracker       ErrorType = "TRACKER"
	TypeWiki          ErrorType = "WIKI"
	TypePipeline      ErrorType = "PIPELINE"
	TypeDependency    ErrorType = "DEPENDENCY"
	TypeInternal      ErrorType = "INTERNAL"
)

// AppError represents a domain-level error with a type and an underlying error
type AppError struct {
	Type       ErrorType
	Message    string
	Context    map[string]interface{}
	Err        error
	Suggestion string
}

func (e *AppError) Error() string {
	var msg string
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Type, e.Message)
	}

	if e.Context != nil {
		if body, ok := e.Context["response"].(string); ok && body != "" {
			msg += fmt.Sprintf(" - %s", body)
		}
	}

	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError of the same type and message, so that
// errors derived with WithError/WithContext still match their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithError creates a new AppError with an underlying error
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        err,
		Suggestion: e.Suggestion,
	}
}

// WithContext creates a new AppError with additional context
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	ctx := make(map[string]interface{})
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    ctx,
		Err:        e.Err,
		Suggestion: e.Suggestion,
	}
}

func (e *AppError) WithSuggestion(suggestion string) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        e.Err,
		Suggestion: suggestion,
	}
}

// NewAppError creates a new AppError
func NewAppError(t ErrorType, msg string, err error) *AppError {
	return &AppError{
		Type:    t,
		Message: msg,
		Err:     err,
	}
}

// Configuration errors
var (
	ErrConfigRead = NewAppError(TypeConfiguration, "failed to read configuration file", nil).
			WithSuggestion("Check the file permissions of your .env file")

	ErrConfigWrite = NewAppError(TypeConfiguration, "failed to write configuration file", nil).
			WithSuggestion("Check that the directory holding the .env file is writable")

	ErrUnstorableValue = NewAppError(TypeConfiguration, "value cannot be stored in the configuration file", nil).
				WithSuggestion("Remove the leading or trailing spaces, or the line breaks, from a value ending in a backslash or quote")

	ErrConfigDecode = NewAppError(TypeConfiguration, "configuration file could not be decoded", nil).
			WithSuggestion("Re-save the .env file as UTF-8")

	ErrProfileNotFound = NewAppError(TypeConfiguration, "model profile not found", nil).
				WithSuggestion("List profiles with: reqtracker config show")

	ErrProfileExists = NewAppError(TypeConfiguration, "model profile already exists", nil).
				WithSuggestion("Use: reqtracker config update-model <key>")

	ErrProfileNotEditable = NewAppError(TypeConfiguration, "built-in model profile cannot be changed", nil)

	ErrInvalidProfile = NewAppError(TypeConfiguration, "invalid model profile", nil).
				WithSuggestion("A profile needs at least a key and a model id")

	ErrInvalidArgument = NewAppError(TypeConfiguration, "invalid command argument", nil).
				WithSuggestion("Run the command with --help to see its usage")
)

// AI errors
var (
	ErrAPIKeyMissing = NewAppError(TypeAI, "model API key is missing", nil).
				WithSuggestion("Set the key with: reqtracker config set-key <profile> <key>")

	ErrProviderNotSupported = NewAppError(TypeAI, "model provider not supported", nil).
				WithSuggestion("Supported providers: openai, azure, gemini")

	ErrAIGeneration = NewAppError(TypeAI, "model generation failed", nil).
			WithSuggestion("Try again or check your API key configuration")

	ErrQuotaExceeded = NewAppError(TypeAI, "model quota exceeded or rate limited", nil).
				WithSuggestion("Wait a few minutes and try again, or check your API quota")

	ErrAPIKeyInvalid = NewAppError(TypeAI, "model API key is invalid", nil).
				WithSuggestion("Check the key of the selected profile: reqtracker config show")

	ErrEmptyAIResponse = NewAppError(TypeAI, "empty response from model", nil)
)

// Pipeline errors
var (
	ErrEmptyInput = NewAppError(TypePipeline, "requirement text is empty", nil)

	ErrMalformedAnalyzerOutput = NewAppError(TypePipeline, "analyzer output is not a valid requirement record", nil).
					WithSuggestion("Run again; if it keeps failing try another model profile")

	ErrInvalidWorkItemID = NewAppError(TypePipeline, "issue tracker returned a non-numeric work item id", nil)

	ErrInvalidPageID = NewAppError(TypePipeline, "wiki returned an invalid page id", nil)

	ErrStagePanic = NewAppError(TypePipeline, "pipeline stage crashed", nil)
)

// Issue tracker errors
var (
	ErrTrackerRequest = NewAppError(TypeTracker, "issue tracker request failed", nil)

	ErrTrackerUnauthorized = NewAppError(TypeTracker, "issue tracker rejected the credentials", nil).
				WithSuggestion("Check ADO_PAT and its work item scopes")

	ErrTrackerNotFound = NewAppError(TypeTracker, "issue tracker resource not found", nil)
)

// Wiki errors
var (
	ErrWikiRequest = NewAppError(TypeWiki, "wiki request failed", nil)

	ErrWikiUnauthorized = NewAppError(TypeWiki, "wiki rejected the credentials", nil).
				WithSuggestion("Check CONFLUENCE_TOKEN (and CONFLUENCE_USER for cloud sites)")

	ErrWikiNotFound = NewAppError(TypeWiki, "wiki resource not found", nil)
)

// Dependency errors are raised when an adapter cannot be built at all, which is
// different from the remote system refusing a call.
var (
	ErrTrackerNotConfigured = NewAppError(TypeDependency, "issue tracker adapter is not configured", nil).
				WithSuggestion("Set ADO_ORG_URL, ADO_PAT and ADO_PROJECT in your .env file")

	ErrWikiNotConfigured = NewAppError(TypeDependency, "wiki adapter is not configured", nil).
				WithSuggestion("Set CONFLUENCE_URL, CONFLUENCE_TOKEN and CONFLUENCE_SPACE in your .env file")
)
