package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	tutor "github.com/haowjy/meridian-tutor"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// Provider implements the tutor.Provider interface for OpenAI chat completions.
type Provider struct {
	client *openai.Client
	logger zerolog.Logger
}

// Option configures a Provider.
type Option func(*providerOptions)

type providerOptions struct {
	baseURL    string
	httpClient *http.Client
	maxRetries *int
	logger     zerolog.Logger
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *providerOptions) { o.baseURL = url }
}

// WithHTTPClient overrides the HTTP client used by the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(o *providerOptions) { o.httpClient = client }
}

// WithMaxRetries sets the SDK retry count. The tutor does not retry, so callers
// normally pass 0.
func WithMaxRetries(n int) Option {
	return func(o *providerOptions) { o.maxRetries = &n }
}

// WithLogger sets the provider logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *providerOptions) { o.logger = logger }
}

// NewProvider creates a new OpenAI provider with the given API key.
func NewProvider(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, tutor.ErrMissingCredentials
	}

	o := providerOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}
	if o.maxRetries != nil {
		reqOpts = append(reqOpts, option.WithMaxRetries(*o.maxRetries))
	}

	client := openai.NewClient(reqOpts...)

	return &Provider{
		client: &client,
		logger: o.logger,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() tutor.ProviderID {
	return tutor.ProviderOpenAI
}

// StreamResponse streams a chat completion and yields the content deltas of the
// first choice. The request is sent when the stream is first ranged over.
func (p *Provider) StreamResponse(ctx context.Context, req *tutor.GenerateRequest) tutor.FragmentStream {
	return func(yield func(string, error) bool) {
		params := buildChatParams(req)

		p.logger.Debug().Str("model", string(params.Model)).Msg("openai stream opening")
		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}

			content := chunk.Choices[0].Delta.Content
			if content == "" {
				continue
			}

			if !yield(content, nil) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			yield("", convertError(ctx, err))
		}
	}
}

// buildChatParams constructs OpenAI chat parameters from a GenerateRequest.
func buildChatParams(req *tutor.GenerateRequest) openai.ChatCompletionNewParams {
	params := req.GetParams()

	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Prompt.SystemInstruction),
			openai.UserMessage(req.Prompt.UserMessage),
		},
		Temperature:         openai.Float(params.GetTemperature(tutor.DefaultTemperature)),
		MaxCompletionTokens: openai.Int(int64(params.GetMaxTokens(tutor.DefaultMaxTokens))),
	}
}

// convertError maps SDK and transport failures to library errors.
func convertError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		pe := tutor.NewProviderError(tutor.ProviderOpenAI, apiErr.StatusCode, apiErr.Message)
		if pe.Message == "" {
			pe.Message = http.StatusText(apiErr.StatusCode)
		}
		return pe
	}

	return &tutor.ProviderError{
		Provider:  tutor.ProviderOpenAI,
		Message:   err.Error(),
		Retryable: true,
		Err:       fmt.Errorf("%w: %w", tutor.ErrProviderUnavailable, err),
	}
}

var _ tutor.Provider = (*Provider)(nil)
