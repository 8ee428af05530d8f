package ai

import (
	"strings"

	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
)

// ClassifyError maps a provider error message onto the AI error taxonomy.
func ClassifyError(err error) *domainErrors.AppError {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "too many requests"):
		return domainErrors.ErrQuotaExceeded.WithError(err)
	case strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "api key") ||
		strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "permission denied"):
		return domainErrors.ErrAPIKeyInvalid.WithError(err)
	default:
		return domainErrors.ErrAIGeneration.WithError(err)
	}
}
