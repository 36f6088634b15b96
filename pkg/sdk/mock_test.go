package herdask

import (
	"context"

	"github.com/kailas-cloud/herdask/internal/domain/chat"
	"github.com/kailas-cloud/herdask/internal/domain/ranking"
	assistantuc "github.com/kailas-cloud/herdask/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/herdask/internal/usecase/health"
)

type mockAssistant struct {
	askFn       func(ctx context.Context, callerID, message string) (assistantuc.Reply, error)
	recommendFn func(ctx context.Context, text string, topK int) ([]ranking.ScoredListing, error)
	historyFn   func(ctx context.Context, callerID string, limit int) ([]chat.Message, error)
}

func (m *mockAssistant) Ask(ctx context.Context, callerID, message string) (assistantuc.Reply, error) {
	return m.askFn(ctx, callerID, message)
}

func (m *mockAssistant) Recommend(ctx context.Context, text string, topK int) ([]ranking.ScoredListing, error) {
	return m.recommendFn(ctx, text, topK)
}

func (m *mockAssistant) History(ctx context.Context, callerID string, limit int) ([]chat.Message, error) {
	return m.historyFn(ctx, callerID, limit)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockGenerator struct {
	fn func(ctx context.Context, systemPrompt, userPrompt string) (GenerationResult, error)
}

func (m *mockGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (GenerationResult, error) {
	return m.fn(ctx, systemPrompt, userPrompt)
}

func testClient(a assistantUseCase, h healthUseCase) *Client {
	obs, _ := newObserver(nil, nil)
	return &Client{assistant: a, healthSvc: h, obs: obs}
}
