package tutor

import (
	"strings"
)

// Language is the programming language tag of the submitted snippet.
type Language string

// Supported languages
const (
	LanguagePython     Language = "python"
	LanguageC          Language = "c"
	LanguageJavaScript Language = "javascript"
)

// Languages returns the supported languages in UI order.
func Languages() []Language {
	return []Language{LanguagePython, LanguageC, LanguageJavaScript}
}

// ParseLanguage resolves a language tag case-insensitively.
// "js" is accepted as an alias for javascript.
func ParseLanguage(s string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "py":
		return LanguagePython, true
	case "c":
		return LanguageC, true
	case "javascript", "js":
		return LanguageJavaScript, true
	default:
		return "", false
	}
}

// IsValid returns true if the language is one of the supported languages
func (l Language) IsValid() bool {
	switch l {
	case LanguagePython, LanguageC, LanguageJavaScript:
		return true
	default:
		return false
	}
}

// DisplayName returns the human-readable language name used in prompts.
func (l Language) DisplayName() string {
	switch l {
	case LanguagePython:
		return "Python"
	case LanguageC:
		return "C"
	case LanguageJavaScript:
		return "JavaScript"
	default:
		return string(l)
	}
}

// ExplanationRequest is one user submission. It is a value type and is never
// mutated after construction.
type ExplanationRequest struct {
	// Language selects the code fence tag and the wording of the user message
	Language Language `json:"language"`

	// Code is the snippet to explain, forwarded verbatim
	Code string `json:"code"`

	// FollowUpQuestion is an optional question appended to the user message
	FollowUpQuestion string `json:"question,omitempty"`

	// Model selects which provider variant serves the request
	Model ProviderID `json:"model"`
}

// Validate checks the request shape. It never checks whether the model is
// registered; that is the registry's job.
//
// A request with neither code nor question returns ErrEmptyInput, which callers
// treat as a warning.
func (r ExplanationRequest) Validate() error {
	if !r.Language.IsValid() {
		return &ValidationError{
			Field:  "language",
			Value:  r.Language,
			Reason: "language must be one of python, c, javascript",
			Err:    ErrInvalidRequest,
		}
	}

	if strings.TrimSpace(r.Code) == "" && strings.TrimSpace(r.FollowUpQuestion) == "" {
		return ErrEmptyInput
	}

	return nil
}

// PromptPair is the system instruction and user message sent to a provider.
type PromptPair struct {
	SystemInstruction string
	UserMessage       string
}

// Snapshot is the cumulative explanation text after one more fragment arrived.
type Snapshot struct {
	// Index is the 0-based position of Fragment in the stream
	Index int `json:"index"`

	// Fragment is the piece of text that produced this snapshot
	Fragment string `json:"fragment"`

	// Text is the concatenation of all fragments up to and including Index
	Text string `json:"text"`
}
