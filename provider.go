package tutor

import (
	"context"
)

// Provider defines the interface that all explanation backends must implement.
// This abstraction allows supporting multiple providers (OpenAI, Anthropic, Ollama, ...)
// behind one streaming contract.
//
// Types used by this interface:
//   - GenerateRequest: defined in request.go
//   - FragmentStream: defined in streaming.go
type Provider interface {
	// StreamResponse returns a lazy stream of text fragments for the prompt.
	// No network or IPC call happens until the stream is ranged over.
	// Breaking out of the range loop releases the underlying call.
	//
	// Usage:
	//   for fragment, err := range provider.StreamResponse(ctx, req) {
	//     if err != nil { handle error; break }
	//     display(fragment)
	//   }
	StreamResponse(ctx context.Context, req *GenerateRequest) FragmentStream

	// Name returns the provider identifier (e.g., "openai", "anthropic", "ollama")
	Name() ProviderID
}
