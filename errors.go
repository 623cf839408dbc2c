package tutor

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
// These can be checked with errors.Is().
var (
	// ErrUnsupportedModel indicates the requested model is not one of the known variants
	// or is not registered in this process.
	ErrUnsupportedModel = errors.New("tutor: unsupported model")

	// ErrMissingCredentials indicates a hosted provider has no API key configured.
	ErrMissingCredentials = errors.New("tutor: missing credentials")

	// ErrInvalidAPIKey indicates the API key was rejected by the provider.
	ErrInvalidAPIKey = errors.New("tutor: invalid API key")

	// ErrRateLimited indicates the provider's rate limit has been exceeded.
	ErrRateLimited = errors.New("tutor: rate limit exceeded")

	// ErrProviderUnavailable indicates the provider service is down, unreachable,
	// or answered with an error while streaming.
	ErrProviderUnavailable = errors.New("tutor: provider unavailable")

	// ErrInvalidRequest indicates the explanation request is malformed.
	ErrInvalidRequest = errors.New("tutor: invalid request")

	// ErrEmptyInput is a non-fatal warning: neither code nor a follow-up question was given.
	ErrEmptyInput = errors.New("tutor: empty input")

	// ErrStreamConsumed is returned when an Explanation is iterated a second time.
	ErrStreamConsumed = errors.New("tutor: explanation stream already consumed")
)

// ConfigurationError is raised before any network activity when the selected
// model cannot be served: unknown variant, provider not registered, or missing credentials.
type ConfigurationError struct {
	Model  string // The model (provider id) that was requested
	Reason string // Human-readable explanation
	Err    error  // Wrapped sentinel (ErrUnsupportedModel or ErrMissingCredentials)
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model '%s': %s (%v)", e.Model, e.Reason, e.Err)
	}
	return fmt.Sprintf("model '%s': %s", e.Model, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ValidationError represents an error in request validation.
type ValidationError struct {
	Field  string // The request field that failed validation
	Value  any    // The invalid value
	Reason string // Human-readable explanation
	Err    error  // Wrapped error (usually ErrInvalidRequest)
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for '%s' (value: %v): %s (%v)", e.Field, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed for '%s' (value: %v): %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ProviderError represents a failure from the underlying provider while streaming.
type ProviderError struct {
	Provider   ProviderID // The provider name
	StatusCode int        // HTTP status code (if applicable)
	Message    string     // Error message from provider
	Retryable  bool       // Whether this error is potentially retryable
	Err        error      // Wrapped sentinel error (ErrRateLimited, ErrProviderUnavailable, etc.)
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider '%s' error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider '%s' error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError classifies an HTTP status code from a provider into a ProviderError.
// statusCode 0 means the backend could not be reached at all.
func NewProviderError(provider ProviderID, statusCode int, message string) *ProviderError {
	pe := &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Err:        ErrProviderUnavailable,
	}

	switch {
	case statusCode == 401 || statusCode == 403:
		pe.Err = ErrInvalidAPIKey
	case statusCode == 429:
		pe.Err = ErrRateLimited
		pe.Retryable = true
	case statusCode == 0 || statusCode >= 500:
		pe.Retryable = true
	}

	return pe
}

// IsConfigurationError checks if an error was raised before any provider call
// because the model cannot be served.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsProviderUnavailable checks if an error came from the provider side:
// network failure, backend error response, or unreachable local daemon.
func IsProviderUnavailable(err error) bool {
	if err == nil {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return true
	}

	return errors.Is(err, ErrProviderUnavailable)
}

// IsAuthError checks if an error is related to authentication.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidAPIKey) || errors.Is(err, ErrMissingCredentials) {
		return true
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		// HTTP 401/403 indicate auth issues
		return providerErr.StatusCode == 401 || providerErr.StatusCode == 403
	}

	return false
}

// IsInvalidRequest checks if an error indicates an invalid explanation request.
func IsInvalidRequest(err error) bool {
	if err == nil {
		return false
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return true
	}

	return errors.Is(err, ErrInvalidRequest)
}

// Error kinds reported to the UI.
const (
	KindConfiguration       = "configuration"
	KindProviderUnavailable = "provider_unavailable"
	KindInvalidRequest      = "invalid_request"
	KindCancelled           = "cancelled"
)

// ErrorKind maps an error to the kind string shown by the UI shell.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case IsConfigurationError(err):
		return KindConfiguration
	case IsInvalidRequest(err):
		return KindInvalidRequest
	default:
		return KindProviderUnavailable
	}
}
