package anthropic

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	tutor "github.com/haowjy/meridian-tutor"
)

// DefaultModel is the Claude model used when none is configured.
const DefaultModel = "claude-3-haiku-20240307"

// Provider implements the tutor.Provider interface for Anthropic (Claude) models.
type Provider struct {
	client *anthropic.Client
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

// WithBaseURL overrides the API endpoint (used by tests and proxies).
func WithBaseURL(url string) Option {
	return func(o *providerOptions) { o.baseURL = url }
}

// WithHTTPClient overrides the HTTP client used by the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(o *providerOptions) { o.httpClient = client }
}

// WithMaxRetries sets the SDK retry count.
func WithMaxRetries(n int) Option {
	return func(o *providerOptions) { o.maxRetries = &n }
}

// WithLogger sets the provider logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *providerOptions) { o.logger = logger }
}

// NewProvider creates a new Anthropic provider with the given API key.
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

	client := anthropic.NewClient(reqOpts...)

	return &Provider{
		client: &client,
		logger: o.logger,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() tutor.ProviderID {
	return tutor.ProviderAnthropic
}

// convertError maps SDK and transport failures to library errors.
func convertError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return tutor.NewProviderError(tutor.ProviderAnthropic, apiErr.StatusCode, apiErr.Error())
	}

	return &tutor.ProviderError{
		Provider:  tutor.ProviderAnthropic,
		Message:   err.Error(),
		Retryable: true,
		Err:       fmt.Errorf("%w: %w", tutor.ErrProviderUnavailable, err),
	}
}

var _ tutor.Provider = (*Provider)(nil)
