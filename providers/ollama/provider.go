package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	tutor "github.com/haowjy/meridian-tutor"
)

// DefaultModel is the local model used when none is configured.
const DefaultModel = "llama3.2"

// DefaultHost is where the Ollama daemon listens by default.
const DefaultHost = "http://localhost:11434"

// errStopped aborts the daemon call when the consumer stops ranging.
var errStopped = errors.New("ollama: consumer stopped")

// Provider implements the tutor.Provider interface for a local Ollama daemon.
// No credentials are needed; the daemon must be reachable.
type Provider struct {
	client *api.Client
	host   string
	logger zerolog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// NewProvider creates a provider talking to the daemon at host.
// An empty host falls back to DefaultHost; "host:port" gets an http scheme,
// matching how the ollama CLI reads OLLAMA_HOST.
func NewProvider(host string, httpClient *http.Client, opts ...Option) (*Provider, error) {
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ollama host %q: scheme and host required", host)
	}

	if httpClient == nil {
		// Local models can be slow to load; no overall timeout on the stream.
		httpClient = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 5 * time.Minute,
		}}
	}

	p := &Provider{
		client: api.NewClient(base, httpClient),
		host:   base.String(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() tutor.ProviderID {
	return tutor.ProviderOllama
}

// Host returns the daemon address this provider talks to.
func (p *Provider) Host() string {
	return p.host
}

// StreamResponse streams a chat response from the daemon.
//
// The Ollama client pushes chunks through a callback. Fragments are yielded from
// inside the callback, so the daemon call only advances as fast as the consumer
// pulls, and returning errStopped from the callback releases the call.
func (p *Provider) StreamResponse(ctx context.Context, req *tutor.GenerateRequest) tutor.FragmentStream {
	return func(yield func(string, error) bool) {
		chatReq := buildChatRequest(req)

		p.logger.Debug().Str("model", chatReq.Model).Str("host", p.host).Msg("ollama stream opening")

		err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			if resp.Message.Content == "" {
				return nil
			}
			if !yield(resp.Message.Content, nil) {
				return errStopped
			}
			return nil
		})

		switch {
		case err == nil, errors.Is(err, errStopped):
			return
		case ctx.Err() != nil:
			yield("", ctx.Err())
		default:
			yield("", p.convertError(err))
		}
	}
}

// buildChatRequest constructs the daemon chat request from a GenerateRequest.
func buildChatRequest(req *tutor.GenerateRequest) *api.ChatRequest {
	params := req.GetParams()

	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	stream := true
	return &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "system", Content: req.Prompt.SystemInstruction},
			{Role: "user", Content: req.Prompt.UserMessage},
		},
		Stream: &stream,
		Options: map[string]any{
			"temperature": params.GetTemperature(tutor.DefaultTemperature),
			"num_predict": params.GetMaxTokens(tutor.DefaultMaxTokens),
		},
	}
}

// convertError maps daemon failures to library errors. A transport error means
// the daemon is not running or not reachable.
func (p *Provider) convertError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		message := statusErr.ErrorMessage
		if message == "" {
			message = statusErr.Status
		}
		return tutor.NewProviderError(tutor.ProviderOllama, statusErr.StatusCode, message)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &tutor.ProviderError{
			Provider:  tutor.ProviderOllama,
			Message:   fmt.Sprintf("ollama daemon not reachable at %s (is `ollama serve` running?)", p.host),
			Retryable: true,
			Err:       fmt.Errorf("%w: %w", tutor.ErrProviderUnavailable, err),
		}
	}

	return &tutor.ProviderError{
		Provider: tutor.ProviderOllama,
		Message:  err.Error(),
		Err:      fmt.Errorf("%w: %w", tutor.ErrProviderUnavailable, err),
	}
}

var _ tutor.Provider = (*Provider)(nil)
