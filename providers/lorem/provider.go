package lorem

import (
	"context"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/rs/zerolog"

	tutor "github.com/haowjy/meridian-tutor"
)

// DefaultWords is the length of a lorem explanation when max tokens allows it.
const DefaultWords = 80

// Provider is a mock explanation provider that streams lorem ipsum text.
// Used for demos and testing without API keys or a local daemon.
//
// The backend model name controls its behavior:
//   - lorem-slow / lorem-medium / lorem-fast: 2, 10 or 30 words per second
//   - lorem-instant: no delay
//   - any model containing "flaky": fails with ErrProviderUnavailable halfway through
type Provider struct {
	mu        sync.Mutex // golorem is not safe for concurrent use
	generator *loremgen.Lorem
	words     int
	delay     *time.Duration
	logger    zerolog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithWords sets the target word count per explanation.
func WithWords(n int) Option {
	return func(p *Provider) { p.words = n }
}

// WithDelay overrides the per-word delay derived from the model name.
func WithDelay(d time.Duration) Option {
	return func(p *Provider) { p.delay = &d }
}

// WithLogger sets the provider logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// NewProvider creates a new lorem ipsum provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		generator: loremgen.New(),
		words:     DefaultWords,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() tutor.ProviderID {
	return tutor.ProviderLorem
}

// getStreamDelay returns the delay between words based on the model name.
// - lorem-slow: 2 words/second (500ms per word)
// - lorem-fast: 30 words/second (33ms per word)
// - lorem-medium: 10 words/second (100ms per word)
// - lorem-instant: no delay
// - default: 10 words/second
func getStreamDelay(model string) time.Duration {
	if strings.Contains(model, "instant") {
		return 0
	}
	if strings.Contains(model, "slow") {
		return 500 * time.Millisecond // 2 words/second
	}
	if strings.Contains(model, "fast") {
		return 33 * time.Millisecond // 30 words/second
	}
	if strings.Contains(model, "medium") {
		return 100 * time.Millisecond // 10 words/second
	}
	return 100 * time.Millisecond // default: 10 words/second
}

// isFlakyModel returns true if the model should simulate a backend failure.
func isFlakyModel(model string) bool {
	return strings.Contains(model, "flaky")
}

// StreamResponse streams a lorem ipsum explanation one word per fragment.
// Word count is the configured target, capped by the request's max tokens.
func (p *Provider) StreamResponse(ctx context.Context, req *tutor.GenerateRequest) tutor.FragmentStream {
	return func(yield func(string, error) bool) {
		targetWords := max(0, min(p.words, req.GetParams().GetMaxTokens(p.words)))
		words := strings.Fields(p.generateTextWords(targetWords))
		if len(words) > targetWords {
			words = words[:targetWords]
		}

		delay := getStreamDelay(req.Model)
		if p.delay != nil {
			delay = *p.delay
		}

		failAt := -1
		if isFlakyModel(req.Model) {
			failAt = len(words) / 2
		}

		p.logger.Debug().
			Str("model", req.Model).
			Int("words", len(words)).
			Dur("delay", delay).
			Bool("flaky", failAt >= 0).
			Msg("lorem stream started")

		for i, word := range words {
			if i == failAt {
				yield("", tutor.NewProviderError(tutor.ProviderLorem, 503, "simulated backend failure"))
				return
			}

			if err := sleepCtx(ctx, delay); err != nil {
				yield("", err)
				return
			}

			fragment := word
			if i < len(words)-1 {
				fragment += " "
			}
			if !yield(fragment, nil) {
				return
			}
		}
	}
}

// generateTextWords generates lorem ipsum text with approximately targetWords words.
func (p *Provider) generateTextWords(targetWords int) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sb strings.Builder
	wordCount := 0

	for wordCount < targetWords {
		// Generate sentence with 5-15 words
		sentence := p.generator.Sentence(5, 15)
		sb.WriteString(sentence)
		sb.WriteString(" ")

		wordCount += len(strings.Fields(sentence))
	}

	return strings.TrimSpace(sb.String())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ tutor.Provider = (*Provider)(nil)
