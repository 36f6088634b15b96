package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/herdask/internal/domain"
)

// InstrumentedEmbedder bounds every query embedding with a timeout, rejects
// unusable vectors and logs the outcome with the provider and model.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner      domain.Embedder
	provider   string
	model      string
	timeout    time.Duration
	dimensions int
	logger     *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. A non-positive timeout disables the bound.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	timeout time.Duration, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		timeout:  timeout,
		logger:   logger,
	}
}

// WithDimensions rejects vectors of any other length (0 accepts any non-empty vector).
func (p *InstrumentedEmbedder) WithDimensions(dim int) *InstrumentedEmbedder {
	p.dimensions = dim
	return p
}

// Embed delegates to the inner embedder under the configured timeout.
// An expired bound is reported as domain.ErrTimeout; an empty or
// wrong-sized vector as domain.ErrEmbeddingProvider.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)

	if err == nil {
		if verr := domain.CheckVector(result.Embedding, p.dimensions); verr != nil {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingProvider, verr)
		}
	}
	if err != nil && !errors.Is(err, domain.ErrTimeout) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}

	log := p.logger.With(
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
	)
	if err != nil {
		log.Warn("Embedding request failed",
			zap.String("error_kind", domain.ErrorKind(err)),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed query: %w", err)
	}

	log.Debug("Embedding request completed",
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through decorator
	}
	return nil
}
