package tutor

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNewProviderError_Classification(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		wantSentinel  error
		wantRetryable bool
		wantAuth      bool
	}{
		{"unauthorized", 401, ErrInvalidAPIKey, false, true},
		{"forbidden", 403, ErrInvalidAPIKey, false, true},
		{"rate limited", 429, ErrRateLimited, true, false},
		{"server error", 500, ErrProviderUnavailable, true, false},
		{"overloaded", 529, ErrProviderUnavailable, true, false},
		{"unreachable", 0, ErrProviderUnavailable, true, false},
		{"bad request", 400, ErrProviderUnavailable, false, false},
		{"model not found", 404, ErrProviderUnavailable, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewProviderError(ProviderOpenAI, tt.statusCode, "message")

			if !errors.Is(err, tt.wantSentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantSentinel)
			}
			if err.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", err.Retryable, tt.wantRetryable)
			}
			if IsAuthError(err) != tt.wantAuth {
				t.Errorf("IsAuthError = %v, want %v", IsAuthError(err), tt.wantAuth)
			}
			if !IsProviderUnavailable(err) {
				t.Error("every provider error should be classified as provider unavailable")
			}
		})
	}
}

func TestProviderError_Message(t *testing.T) {
	withStatus := NewProviderError(ProviderAnthropic, 529, "overloaded")
	if got, want := withStatus.Error(), "provider 'anthropic' error (status 529): overloaded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	noStatus := &ProviderError{Provider: ProviderOllama, Message: "daemon not reachable"}
	if got, want := noStatus.Error(), "provider 'ollama' error: daemon not reachable"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestConfigurationError_Unwrap(t *testing.T) {
	err := fmt.Errorf("explain: %w", &ConfigurationError{
		Model:  "openai",
		Reason: "OPENAI_API_KEY is not set",
		Err:    ErrMissingCredentials,
	})

	if !IsConfigurationError(err) {
		t.Error("wrapped ConfigurationError not detected")
	}
	if !errors.Is(err, ErrMissingCredentials) {
		t.Error("ConfigurationError should unwrap to its sentinel")
	}
	if !IsAuthError(err) {
		t.Error("missing credentials is an auth error")
	}
	if IsProviderUnavailable(err) {
		t.Error("configuration errors are not provider errors")
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"cancelled", context.Canceled, KindCancelled},
		{"wrapped cancel", fmt.Errorf("stream: %w", context.Canceled), KindCancelled},
		{"configuration", &ConfigurationError{Model: "x", Reason: "unknown", Err: ErrUnsupportedModel}, KindConfiguration},
		{"validation", &ValidationError{Field: "language", Err: ErrInvalidRequest}, KindInvalidRequest},
		{"provider", NewProviderError(ProviderOllama, 500, "boom"), KindProviderUnavailable},
		{"deadline", context.DeadlineExceeded, KindProviderUnavailable},
		{"plain", errors.New("anything else"), KindProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorKind(tt.err); got != tt.want {
				t.Errorf("ErrorKind() = %q, want %q", got, tt.want)
			}
		})
	}
}
