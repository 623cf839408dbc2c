package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"

	tutor "github.com/haowjy/meridian-tutor"
)

// StreamResponse generates a streaming response from Claude.
// Only text deltas become fragments; the message is opened when the stream is
// first ranged over and closed when iteration ends.
func (p *Provider) StreamResponse(ctx context.Context, req *tutor.GenerateRequest) tutor.FragmentStream {
	return func(yield func(string, error) bool) {
		apiParams := buildMessageParams(req)

		p.logger.Debug().Str("model", string(apiParams.Model)).Msg("anthropic stream opening")
		stream := p.client.Messages.NewStreaming(ctx, apiParams)
		defer stream.Close()

		for stream.Next() {
			text, ok := textFromEvent(stream.Current())
			if !ok {
				continue
			}

			if !yield(text, nil) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}
			yield("", convertError(err))
		}
	}
}

// textFromEvent extracts the text of a content_block_delta / text_delta event.
//
// Anthropic stream events include:
// - MessageStart: Contains message metadata (id, model, role)
// - ContentBlockStart: New content block started (index, type)
// - ContentBlockDelta: Incremental content for current block (text_delta, input_json_delta)
// - ContentBlockStop: Current block finished
// - MessageDelta: Message-level delta (stop_reason, stop_sequence)
// - MessageStop: Streaming complete
func textFromEvent(event anthropic.MessageStreamEventUnion) (string, bool) {
	switch e := event.AsAny().(type) {
	case anthropic.ContentBlockDeltaEvent:
		if e.Delta.Type != "text_delta" || e.Delta.Text == "" {
			return "", false
		}
		return e.Delta.Text, true
	default:
		return "", false
	}
}
