package tutor

import (
	_ "embed"
	"strings"
)

// SystemPrompt is the fixed tutor instruction sent with every request.
// It never contains user input.
//
//go:embed prompts/system.md
var SystemPrompt string

// BuildPrompt derives the prompt pair for a request. It is a pure function:
// the code is forwarded verbatim inside a fenced block tagged with the language,
// followed by the trimmed follow-up question when one is present. The fence is
// always longer than any backtick run in the code, so the code cannot close it.
func BuildPrompt(req ExplanationRequest) PromptPair {
	var sb strings.Builder

	question := strings.TrimSpace(req.FollowUpQuestion)

	// A question without code is sent on its own, like a chat turn.
	if req.Code != "" || question == "" {
		sb.WriteString("Please explain this ")
		sb.WriteString(req.Language.DisplayName())
		fence := codeFence(req.Code)
		sb.WriteString(" code:\n\n")
		sb.WriteString(fence)
		sb.WriteString(string(req.Language))
		sb.WriteString("\n")
		sb.WriteString(req.Code)
		if !strings.HasSuffix(req.Code, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString(fence)
		sb.WriteString("\n")
	}

	if question != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Follow-up question:\n")
		sb.WriteString(question)
		sb.WriteString("\n")
	}

	return PromptPair{
		SystemInstruction: SystemPrompt,
		UserMessage:       sb.String(),
	}
}

// codeFence returns a backtick fence of at least three characters that is
// longer than the longest backtick run in code.
func codeFence(code string) string {
	longest, run := 0, 0
	for i := 0; i < len(code); i++ {
		if code[i] == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}
