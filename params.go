package tutor

import (
	"fmt"
)

// Defaults used by every adapter when RequestParams leaves a field unset.
const (
	DefaultTemperature = 0.4
	DefaultMaxTokens   = 1024
)

// RequestParams represents the sampling parameters shared by all providers.
// All fields are optional pointers to distinguish "not set" from "set to zero value".
type RequestParams struct {
	// MaxTokens sets the maximum number of tokens to generate
	MaxTokens *int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0-2.0)
	// 0.0 = deterministic
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// ValidateRequestParams validates request parameters
func ValidateRequestParams(params *RequestParams) error {
	if params == nil {
		return nil // nil params is valid
	}

	if params.Temperature != nil {
		if *params.Temperature < 0.0 || *params.Temperature > 2.0 {
			return &ValidationError{
				Field:  "temperature",
				Value:  *params.Temperature,
				Reason: fmt.Sprintf("temperature must be between 0.0 and 2.0, got %f", *params.Temperature),
				Err:    ErrInvalidRequest,
			}
		}
	}

	if params.MaxTokens != nil {
		if *params.MaxTokens < 1 {
			return &ValidationError{
				Field:  "max_tokens",
				Value:  *params.MaxTokens,
				Reason: fmt.Sprintf("max_tokens must be positive, got %d", *params.MaxTokens),
				Err:    ErrInvalidRequest,
			}
		}
	}

	return nil
}

// GetMaxTokens returns max_tokens with default fallback
func (rp *RequestParams) GetMaxTokens(defaultValue int) int {
	if rp != nil && rp.MaxTokens != nil {
		return *rp.MaxTokens
	}
	return defaultValue
}

// GetTemperature returns temperature with default fallback
func (rp *RequestParams) GetTemperature(defaultValue float64) float64 {
	if rp != nil && rp.Temperature != nil {
		return *rp.Temperature
	}
	return defaultValue
}
