package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports a malformed or incomplete request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Missing is shorthand for a required field that was absent or blank.
func Missing(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}

// UpstreamError wraps a non-2xx or malformed response from a hosted API.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Detail)
}

// MissingAPIKey reports a hosted provider that was never given credentials.
func MissingAPIKey(provider string) error {
	return &UpstreamError{Provider: provider, Detail: "api key is not configured"}
}

// NotFoundError reports a missing document.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func StatusFor(err error) int {
	var ve *ValidationError
	var nf *NotFoundError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// MessageFor returns the text that is safe to show a caller. Provider detail is
// surfaced, anything unclassified collapses to a generic message.
func MessageFor(err error) string {
	var ve *ValidationError
	var nf *NotFoundError
	var ue *UpstreamError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &nf):
		return nf.Error()
	case errors.As(err, &ue):
		return ue.Error()
	default:
		return "internal error"
	}
}
