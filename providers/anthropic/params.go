package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go"

	tutor "github.com/haowjy/meridian-tutor"
)

// buildMessageParams constructs Anthropic API parameters from a GenerateRequest.
// The system instruction goes in the dedicated System field, never in the messages.
func buildMessageParams(req *tutor.GenerateRequest) anthropic.MessageNewParams {
	params := req.GetParams()

	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	apiParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(params.GetMaxTokens(tutor.DefaultMaxTokens)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt.UserMessage)),
		},
		Temperature: anthropic.Float(params.GetTemperature(tutor.DefaultTemperature)),
	}

	if req.Prompt.SystemInstruction != "" {
		apiParams.System = []anthropic.TextBlockParam{
			{Text: req.Prompt.SystemInstruction},
		}
	}

	return apiParams
}
