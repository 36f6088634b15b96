package domain

import (
	"context"
	"fmt"
)

// Embedder vectorizes free text. Query vectors and stored listing vectors
// must come from the same model.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries one vector and the provider's token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// CheckVector rejects an empty vector, or one whose length differs from want.
// want <= 0 accepts any non-empty length.
func CheckVector(v []float32, want int) error {
	switch {
	case len(v) == 0:
		return fmt.Errorf("empty vector: %w", ErrVectorDimMismatch)
	case want > 0 && len(v) != want:
		return fmt.Errorf("vector has %d dims, want %d: %w", len(v), want, ErrVectorDimMismatch)
	}
	return nil
}

// InstructionEmbedder prefixes every question with a fixed retrieval
// instruction before embedding, as instruction-tuned models such as
// Qwen3-Embedding expect for queries. Listing vectors are stored without it.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder wraps inner with the given query instruction.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed embeds instruction+text.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("embed with query instruction: %w", err)
	}
	return result, nil
}

// HealthCheck probes the inner embedder when it supports health checks.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through decorator
	}
	return nil
}
