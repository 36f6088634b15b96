package domain

import "context"

// Generator is the chat/generation model contract.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (GenerationResult, error)
}

// GenerationResult carries the generated reply and token usage.
type GenerationResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
