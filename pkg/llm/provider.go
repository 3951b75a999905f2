package llm

import (
	"context"
)

// Provider produces a single completion for a conversation. Generation
// requests are not retried: a failed call falls through to deterministic
// fallback content instead of burning tokens on a second attempt.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (Completion, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the full, non-streaming model output.
type Completion struct {
	Content    string
	Model      string
	StopReason string
	Usage      Usage
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
