package llm

import (
	"context"
	"strings"
)

type ResponseFormat string

const (
	FormatText ResponseFormat = "text"
	FormatJSON ResponseFormat = "json"
)

// Completer sends one prompt to a language model and returns the raw reply.
// With FormatJSON the reply is expected to be a JSON object, but callers
// parse and validate it themselves.
type Completer interface {
	Complete(ctx context.Context, prompt string, format ResponseFormat) (string, error)
}

func StripCodeFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 && !strings.ContainsAny(trimmed[:newline], "{[") {
		trimmed = trimmed[newline+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
