package tutor

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Explainer selects the provider for a request, builds the prompt and relays
// fragments back to the caller as growing snapshots.
type Explainer struct {
	registry     *Registry
	capabilities *CapabilityCatalog
	logger       zerolog.Logger
}

// ExplainerOption configures an Explainer (e.g. WithLogger).
type ExplainerOption func(*Explainer)

// WithLogger sets the logger used for per-request lifecycle events.
func WithLogger(logger zerolog.Logger) ExplainerOption {
	return func(e *Explainer) { e.logger = logger }
}

// WithCapabilities replaces the embedded model catalog used for request warnings.
func WithCapabilities(catalog *CapabilityCatalog) ExplainerOption {
	return func(e *Explainer) { e.capabilities = catalog }
}

// NewExplainer returns an Explainer backed by the given registry.
func NewExplainer(registry *Registry, opts ...ExplainerOption) *Explainer {
	e := &Explainer{
		registry:     registry,
		capabilities: DefaultCapabilities(),
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Models lists the provider variants for the UI.
func (e *Explainer) Models() []ModelInfo {
	return e.registry.Models()
}

// Explain prepares one explanation attempt.
//
// Validation and model resolution happen here, before any provider is called:
// an unknown, unregistered or credential-less model returns a *ConfigurationError
// and an invalid language a *ValidationError. The returned Explanation is lazy;
// the provider is invoked when Snapshots (or Collect) is consumed.
func (e *Explainer) Explain(ctx context.Context, req ExplanationRequest) (*Explanation, error) {
	requestID := uuid.NewString()
	logger := e.logger.With().
		Str("request_id", requestID).
		Str("model", req.Model.String()).
		Str("language", string(req.Language)).
		Logger()

	if err := req.Validate(); err != nil {
		if !errors.Is(err, ErrEmptyInput) {
			return nil, err
		}
		// Empty input is forwarded; explanation quality is the provider's concern.
		logger.Warn().Err(err).Msg("explaining empty input")
	}

	entry, err := e.registry.Lookup(req.Model)
	if err != nil {
		logger.Warn().Err(err).Msg("model cannot be served")
		return nil, err
	}

	genReq := &GenerateRequest{
		Prompt: BuildPrompt(req),
		Model:  entry.Model,
		Params: entry.Params,
	}
	if e.capabilities != nil {
		warnings := e.capabilities.Warnings(req.Model, genReq)
		for _, w := range FilterWarningsBySeverity(warnings, SeverityError, SeverityWarning) {
			logger.Warn().
				Str("code", string(w.Code)).
				Str("severity", string(w.Severity)).
				Msg(w.Message)
		}
		for _, w := range FilterWarningsBySeverity(warnings, SeverityInfo) {
			logger.Debug().Str("code", string(w.Code)).Msg(w.Message)
		}
	}

	return &Explanation{
		ID:       requestID,
		Request:  req,
		ctx:      ctx,
		provider: entry.Provider,
		genReq:   genReq,
		logger:   logger,
	}, nil
}

// Explanation is one streaming session. It owns the accumulated result.
type Explanation struct {
	// ID identifies the session in logs and UI messages
	ID string

	// Request is the submission being explained
	Request ExplanationRequest

	ctx      context.Context
	provider Provider
	genReq   *GenerateRequest
	logger   zerolog.Logger

	consumed atomic.Bool

	mu   sync.Mutex
	text strings.Builder
	err  error
}

// Snapshots streams the explanation. Each element carries the text accumulated
// so far; emission order matches fragment arrival order exactly.
//
// On provider failure the final element is a snapshot holding the partial text
// together with the error. The sequence may be consumed only once.
func (x *Explanation) Snapshots() iter.Seq2[Snapshot, error] {
	return func(yield func(Snapshot, error) bool) {
		if !x.consumed.CompareAndSwap(false, true) {
			yield(Snapshot{}, ErrStreamConsumed)
			return
		}

		start := time.Now()
		index := 0
		x.logger.Debug().Str("backend_model", x.genReq.Model).Msg("explanation started")

		for fragment, err := range x.provider.StreamResponse(x.ctx, x.genReq) {
			if err != nil {
				err = classifyStreamError(x.provider.Name(), err)
				partial := x.fail(err)
				x.logger.Error().Err(err).
					Int("fragments", index).
					Dur("elapsed", time.Since(start)).
					Msg("explanation failed")
				yield(Snapshot{Index: index - 1, Text: partial}, err)
				return
			}
			if fragment == "" {
				continue
			}

			text := x.append(fragment)
			if !yield(Snapshot{Index: index, Fragment: fragment, Text: text}, nil) {
				x.logger.Debug().Int("fragments", index+1).Msg("explanation abandoned by consumer")
				return
			}
			index++
		}

		x.logger.Info().
			Int("fragments", index).
			Int("chars", len(x.Text())).
			Dur("elapsed", time.Since(start)).
			Msg("explanation complete")
	}
}

// Collect consumes the whole stream and returns the final text.
// On failure the partial text is returned with the error.
func (x *Explanation) Collect() (string, error) {
	for _, err := range x.Snapshots() {
		if err != nil {
			return x.Text(), err
		}
	}
	return x.Text(), nil
}

// Text returns the text accumulated so far.
func (x *Explanation) Text() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.text.String()
}

// Err returns the terminal error of the stream, if any.
func (x *Explanation) Err() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.err
}

func (x *Explanation) append(fragment string) string {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.text.WriteString(fragment)
	return x.text.String()
}

func (x *Explanation) fail(err error) string {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.err = err
	return x.text.String()
}

// classifyStreamError makes sure every non-cancellation failure surfaces as a
// provider-side error.
func classifyStreamError(provider ProviderID, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return err
	}

	return &ProviderError{
		Provider: provider,
		Message:  err.Error(),
		Err:      fmt.Errorf("%w: %w", ErrProviderUnavailable, err),
	}
}
