package herdask

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/herdask/internal/db"
	dbRedis "github.com/kailas-cloud/herdask/internal/db/redis"
	"github.com/kailas-cloud/herdask/internal/domain"
	"github.com/kailas-cloud/herdask/internal/domain/chat"
	"github.com/kailas-cloud/herdask/internal/domain/ranking"
	admissionrepo "github.com/kailas-cloud/herdask/internal/repository/admission"
	"github.com/kailas-cloud/herdask/internal/repository/chatlog"
	listingrepo "github.com/kailas-cloud/herdask/internal/repository/listing"
	"github.com/kailas-cloud/herdask/internal/repository/resultcache"
	"github.com/kailas-cloud/herdask/internal/usecase/admission"
	assistantuc "github.com/kailas-cloud/herdask/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/herdask/internal/usecase/health"
	rankinguc "github.com/kailas-cloud/herdask/internal/usecase/ranking"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "herdask:"
	defaultCacheEntries     = 1024
)

var defaultCollections = []string{"buffaloes", "chickens", "goats"}

// Internal use case contracts, substituted in tests.
type assistantUseCase interface {
	Ask(ctx context.Context, callerID, message string) (assistantuc.Reply, error)
	Recommend(ctx context.Context, text string, topK int) ([]ranking.ScoredListing, error)
	History(ctx context.Context, callerID string, limit int) ([]chat.Message, error)
}

// Client is the herdask SDK entry point.
type Client struct {
	store     db.Store
	assistant assistantUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:    defaultKeyPrefix,
		collections:  defaultCollections,
		cacheEntries: defaultCacheEntries,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("herdask: database address required (use WithValkey or WithRedis)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("herdask: embedder required (use WithEmbedder)")
	}
	if cfg.generator == nil {
		return nil, errors.New("herdask: generator required (use WithGenerator)")
	}
	if cfg.sharedLockLease > 0 && cfg.sharedLockLease <= cfg.generationTimeout {
		return nil, fmt.Errorf("herdask: shared lock lease %s must exceed the generation timeout %s",
			cfg.sharedLockLease, cfg.generationTimeout)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("herdask: database not ready: %w", err)
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

// createStore opens the database. Redis and Valkey share one protocol client.
func createStore(cfg *clientConfig) (*dbRedis.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("herdask: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("herdask: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	ranker := rankinguc.New(listingrepo.New(store, cfg.keyPrefix), cfg.collections, zap.NewNop()).
		WithDimensions(cfg.vectorDimensions).
		WithMinSimilarity(cfg.minSimilarity)

	cache, err := resultcache.NewMemory(cfg.cacheEntries)
	if err != nil {
		return nil, fmt.Errorf("herdask: create answer cache: %w", err)
	}

	var lock assistantuc.Locker = admission.NewLock()
	if cfg.sharedLockLease > 0 {
		lock = admissionrepo.New(store, cfg.keyPrefix, cfg.sharedLockLease)
	}

	embedder := &embedderAdapter{inner: cfg.embedder}
	generator := &generatorAdapter{inner: cfg.generator}

	svc := assistantuc.New(lock, cache, embedder, ranker, generator,
		chatlog.New(store, cfg.keyPrefix),
		assistantuc.Config{
			TopK:              cfg.topK,
			CacheTTL:          cfg.cacheTTL,
			GenerationTimeout: cfg.generationTimeout,
			Locations:         cfg.locations,
			SystemPrompt:      cfg.systemPrompt,
		})

	return &Client{
		store:     store,
		assistant: svc,
		healthSvc: healthuc.New(store, embedder, nil),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Ask answers a question from callerID. Pipeline failures are reported through
// Reply.Outcome; the returned error is reserved for invalid input.
func (c *Client) Ask(ctx context.Context, callerID, message string) (Reply, error) {
	start := time.Now()

	r, err := c.assistant.Ask(ctx, callerID, message)
	if err != nil {
		c.obs.observe("ask", start, err)
		return Reply{}, fmt.Errorf("ask: %w", err)
	}
	reply := replyFromUseCase(r)
	c.obs.observeAsk(start, reply)
	return reply, nil
}

// Recommend ranks listings against free text. topK <= 0 uses the default.
func (c *Client) Recommend(ctx context.Context, text string, topK int) (_ []Recommendation, err error) {
	start := time.Now()
	defer func() { c.obs.observe("recommend", start, err) }()

	results, err := c.assistant.Recommend(ctx, text, topK)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	recs := make([]Recommendation, len(results))
	for i := range results {
		recs[i] = recommendationFromDomain(&results[i])
	}
	return recs, nil
}

// History returns up to limit of the caller's answered questions, newest first.
func (c *Client) History(ctx context.Context, callerID string, limit int) (_ []Message, err error) {
	start := time.Now()
	defer func() { c.obs.observe("history", start, err) }()

	msgs, err := c.assistant.History(ctx, callerID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = messageFromDomain(m)
	}
	return out, nil
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// HealthCheck probes the inner embedder when it supports health checks.
func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through adapter
	}
	return nil
}

// generatorAdapter wraps public Generator to satisfy internal domain.Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, systemPrompt, userPrompt string) (domain.GenerationResult, error) {
	r, err := a.inner.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("generate: %w", err)
	}
	return domain.GenerationResult{
		Content:          r.Content,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		TotalTokens:      r.TotalTokens,
	}, nil
}
