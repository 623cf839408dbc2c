package tutor

import (
	"fmt"
	"strings"
)

// ProviderID represents a unique provider identifier.
// Using a typed constant prevents typos and provides compile-time safety.
type ProviderID string

// Known provider identifiers
const (
	// ProviderOpenAI is OpenAI's chat completions API ("GPT")
	ProviderOpenAI ProviderID = "openai"

	// ProviderAnthropic is Anthropic's Claude API ("Claude")
	ProviderAnthropic ProviderID = "anthropic"

	// ProviderOllama is a locally running Ollama daemon ("Llama")
	ProviderOllama ProviderID = "ollama"

	// ProviderLorem is the offline mock provider for demos and testing
	ProviderLorem ProviderID = "lorem"
)

// String returns the string representation of the provider ID
func (p ProviderID) String() string {
	return string(p)
}

// IsValid returns true if the provider ID is a known provider
func (p ProviderID) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderLorem:
		return true
	default:
		return false
	}
}

// Label returns the model name shown in the UI selector.
func (p ProviderID) Label() string {
	switch p {
	case ProviderOpenAI:
		return "GPT"
	case ProviderAnthropic:
		return "Claude"
	case ProviderOllama:
		return "Llama"
	case ProviderLorem:
		return "Lorem"
	default:
		return string(p)
	}
}

// ParseProviderID accepts a provider id or its UI label, case-insensitively.
// Unknown values are returned as-is so the registry can report them.
func ParseProviderID(s string) ProviderID {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, id := range KnownProviders() {
		if v == string(id) || v == strings.ToLower(id.Label()) {
			return id
		}
	}
	return ProviderID(s)
}

// KnownProviders returns every provider variant in UI order.
func KnownProviders() []ProviderID {
	return []ProviderID{ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderLorem}
}

// RegisteredProvider is a provider bound to the backend model and params it serves.
type RegisteredProvider struct {
	Provider Provider
	Model    string
	Params   *RequestParams
}

// ModelInfo describes one provider variant for the UI model selector.
type ModelInfo struct {
	ID        ProviderID `json:"id"`
	Label     string     `json:"label"`
	Model     string     `json:"model,omitempty"`
	Available bool       `json:"available"`
	Reason    string     `json:"reason,omitempty"`
}

// Registry holds the closed set of provider variants available to this process.
// It is populated once at startup and read-only afterwards.
type Registry struct {
	entries  map[ProviderID]RegisteredProvider
	disabled map[ProviderID]*ConfigurationError
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[ProviderID]RegisteredProvider),
		disabled: make(map[ProviderID]*ConfigurationError),
	}
}

// Register adds a provider that serves the given backend model.
// Registering the same ID twice replaces the earlier entry.
func (r *Registry) Register(p Provider, model string, params *RequestParams) {
	id := p.Name()
	r.entries[id] = RegisteredProvider{Provider: p, Model: model, Params: params}
	delete(r.disabled, id)
}

// Disable records why a known variant cannot serve requests
// (for example a missing API key). Lookup reports the reason.
func (r *Registry) Disable(id ProviderID, reason string, err error) {
	delete(r.entries, id)
	r.disabled[id] = &ConfigurationError{Model: id.String(), Reason: reason, Err: err}
}

// Lookup resolves the provider for a request model.
// It never touches the network.
func (r *Registry) Lookup(id ProviderID) (RegisteredProvider, error) {
	if entry, ok := r.entries[id]; ok {
		return entry, nil
	}

	if cfgErr, ok := r.disabled[id]; ok {
		return RegisteredProvider{}, cfgErr
	}

	reason := fmt.Sprintf("no provider registered for '%s'", id)
	if !id.IsValid() {
		reason = fmt.Sprintf("unknown model '%s' (expected one of GPT, Claude, Llama)", id)
	}

	return RegisteredProvider{}, &ConfigurationError{
		Model:  id.String(),
		Reason: reason,
		Err:    ErrUnsupportedModel,
	}
}

// Models lists the variants the UI should offer. Lorem is listed only when registered.
func (r *Registry) Models() []ModelInfo {
	var models []ModelInfo
	for _, id := range KnownProviders() {
		info := ModelInfo{ID: id, Label: id.Label()}

		if entry, ok := r.entries[id]; ok {
			info.Model = entry.Model
			info.Available = true
		} else if cfgErr, ok := r.disabled[id]; ok {
			info.Reason = cfgErr.Reason
		} else if id == ProviderLorem {
			continue
		} else {
			info.Reason = "not configured"
		}

		models = append(models, info)
	}
	return models
}
