package tutor

// GenerateRequest contains the parameters for one streaming call to a provider.
type GenerateRequest struct {
	// Prompt is the system instruction and user message pair
	Prompt PromptPair

	// Model is the backend model identifier (e.g., "gpt-4o-mini", "llama3.2")
	Model string

	// Params contains sampling parameters (temperature, max_tokens).
	// Provider adapters extract what they support from this unified struct.
	Params *RequestParams
}

// GetParams returns Params, or an empty RequestParams when unset.
func (r *GenerateRequest) GetParams() *RequestParams {
	if r.Params == nil {
		return &RequestParams{}
	}
	return r.Params
}
