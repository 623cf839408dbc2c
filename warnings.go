package tutor

import (
	"fmt"
)

// Severity indicates how serious a warning is
type Severity string

const (
	SeverityInfo    Severity = "info"    // Informational (might be expected)
	SeverityWarning Severity = "warning" // Potentially problematic
	SeverityError   Severity = "error"   // Likely to cause API failure
)

// WarningCode is a machine-readable identifier for request warnings
type WarningCode string

const (
	WarningCodeModelUnknown          WarningCode = "MODEL_UNKNOWN"
	WarningCodeTemperatureOutOfRange WarningCode = "TEMPERATURE_OUT_OF_RANGE"
	WarningCodeMaxTokensAboveLimit   WarningCode = "MAX_TOKENS_ABOVE_LIMIT"
	WarningCodeInputTooLong          WarningCode = "INPUT_TOO_LONG"
)

// approxCharsPerToken is a rough estimate for English prose and code.
const approxCharsPerToken = 4

// ValidationWarning represents a potential issue with a request.
// Warnings are logged; requests are never blocked because of them.
type ValidationWarning struct {
	Code     WarningCode
	Field    string
	Value    any
	Message  string
	Severity Severity
}

// Warnings checks a prepared request against the catalog.
func (c *CapabilityCatalog) Warnings(provider ProviderID, req *GenerateRequest) []ValidationWarning {
	var warnings []ValidationWarning

	providerCaps, ok := c.Provider(provider)
	if !ok {
		return warnings
	}

	if t := req.Params.GetTemperature(DefaultTemperature); t < providerCaps.Constraints.TemperatureMin || t > providerCaps.Constraints.TemperatureMax {
		warnings = append(warnings, ValidationWarning{
			Code:     WarningCodeTemperatureOutOfRange,
			Field:    "temperature",
			Value:    t,
			Message:  fmt.Sprintf("temperature %.2f outside %s range [%.2f, %.2f]", t, provider.Label(), providerCaps.Constraints.TemperatureMin, providerCaps.Constraints.TemperatureMax),
			Severity: SeverityError,
		})
	}

	modelCap, ok := c.Model(provider, req.Model)
	if !ok {
		warnings = append(warnings, ValidationWarning{
			Code:     WarningCodeModelUnknown,
			Field:    "model",
			Value:    req.Model,
			Message:  fmt.Sprintf("model %s not found in %s capabilities (capabilities may be outdated)", req.Model, provider),
			Severity: SeverityInfo,
		})
		return warnings
	}

	maxTokens := req.Params.GetMaxTokens(DefaultMaxTokens)
	if modelCap.MaxOutputTokens > 0 && maxTokens > modelCap.MaxOutputTokens {
		warnings = append(warnings, ValidationWarning{
			Code:     WarningCodeMaxTokensAboveLimit,
			Field:    "max_tokens",
			Value:    maxTokens,
			Message:  fmt.Sprintf("max_tokens %d above %s limit %d", maxTokens, req.Model, modelCap.MaxOutputTokens),
			Severity: SeverityError,
		})
	}

	if modelCap.ContextWindow > 0 {
		inputTokens := (len(req.Prompt.SystemInstruction) + len(req.Prompt.UserMessage)) / approxCharsPerToken
		if inputTokens+maxTokens > modelCap.ContextWindow {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeInputTooLong,
				Field:    "code",
				Value:    inputTokens,
				Message:  fmt.Sprintf("about %d input tokens plus %d output tokens exceed the %d token context of %s", inputTokens, maxTokens, modelCap.ContextWindow, req.Model),
				Severity: SeverityWarning,
			})
		}
	}

	return warnings
}

// FilterWarningsBySeverity returns warnings matching the specified severities
func FilterWarningsBySeverity(warnings []ValidationWarning, severities ...Severity) []ValidationWarning {
	filtered := make([]ValidationWarning, 0)
	severityMap := make(map[Severity]bool)
	for _, s := range severities {
		severityMap[s] = true
	}

	for _, w := range warnings {
		if severityMap[w.Severity] {
			filtered = append(filtered, w)
		}
	}
	return filtered
}
