package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/herdask/internal/domain"
	"github.com/kailas-cloud/herdask/internal/domain/answer"
	"github.com/kailas-cloud/herdask/internal/domain/chat"
	"github.com/kailas-cloud/herdask/internal/domain/query"
	"github.com/kailas-cloud/herdask/internal/domain/ranking"
	"github.com/kailas-cloud/herdask/internal/logger"
	"github.com/kailas-cloud/herdask/internal/metrics"
)

// Fixed replies. Provider errors never reach the caller.
const (
	BusyReply  = "Please wait, your previous question is still being processed."
	ErrorReply = "Sorry, something went wrong while processing your question. Please try again."
	EmptyReply = "Please type your question, for example: murrah buffalo in Chitwan under 100000."
)

// Cache key namespaces.
const (
	answerNamespace    = "answer"
	recommendNamespace = "recommend"
)

// Outcome labels a finished Ask call.
type Outcome string

// Pipeline outcomes.
const (
	OutcomeAnswered Outcome = "answered"
	OutcomeCacheHit Outcome = "cache_hit"
	OutcomeBusy     Outcome = "busy"
	OutcomeFailed   Outcome = "failed"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeEmpty    Outcome = "empty"
)

// Defaults applied by New for zero-valued Config fields.
const (
	DefaultTopK          = 3
	DefaultRecommendTopK = 5
	MaxRecommendTopK     = 50
	DefaultCacheTTL      = 300 * time.Second
	DefaultHistoryLimit  = 20
)

// Config tunes the pipeline.
type Config struct {
	TopK              int
	RecommendTopK     int
	CacheTTL          time.Duration
	GenerationTimeout time.Duration // 0 disables the bound
	Locations         []string
	SystemPrompt      string
	HistoryLimit      int
}

// Reply is what the caller sees plus the classified outcome. Err is set for failed and timeout outcomes.
type Reply struct {
	Text    string
	Outcome Outcome
	Err     error
}

// Service orchestrates admission, caching, retrieval and generation.
type Service struct {
	lock      Locker
	cache     Cache
	embedder  domain.Embedder
	ranker    Ranker
	generator domain.Generator
	history   History
	cfg       Config
}

// New creates the orchestrator. history may be nil.
func New(
	lock Locker, cache Cache, embedder domain.Embedder, ranker Ranker,
	generator domain.Generator, history History, cfg Config,
) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.RecommendTopK <= 0 {
		cfg.RecommendTopK = DefaultRecommendTopK
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	return &Service{
		lock:      lock,
		cache:     cache,
		embedder:  embedder,
		ranker:    ranker,
		generator: generator,
		history:   history,
		cfg:       cfg,
	}
}

// Ask answers a caller's question. A second question from the same caller while
// one is in flight is rejected with BusyReply and a blank message gets EmptyReply.
// Pipeline failures yield ErrorReply; the returned error is reserved for a missing caller.
func (s *Service) Ask(ctx context.Context, callerID, message string) (Reply, error) {
	if callerID == "" {
		return Reply{}, domain.ErrUnauthenticated
	}

	start := time.Now()
	ctx, log := logger.With(ctx, zap.String("caller_id", callerID))

	var reply Reply
	if q := query.Parse(message, s.cfg.Locations); q.IsEmpty() {
		reply = Reply{Text: EmptyReply, Outcome: OutcomeEmpty}
	} else {
		reply = s.ask(ctx, log, callerID, q)
	}

	metrics.PipelineOutcomesTotal.WithLabelValues(string(reply.Outcome)).Inc()
	metrics.PipelineDuration.WithLabelValues(string(reply.Outcome)).Observe(time.Since(start).Seconds())

	switch reply.Outcome {
	case OutcomeFailed, OutcomeTimeout:
		log.Error("Question pipeline failed",
			zap.String("outcome", string(reply.Outcome)),
			zap.String("error_kind", domain.ErrorKind(reply.Err)),
			zap.Error(reply.Err),
		)
	case OutcomeBusy:
		log.Debug("Question rejected, caller busy")
	case OutcomeEmpty:
		log.Debug("Blank question, asked for input")
	case OutcomeCacheHit:
		log.Debug("Question served from cache")
	case OutcomeAnswered:
		log.Debug("Question answered", zap.Duration("duration", time.Since(start)))
	}

	return reply, nil
}

func (s *Service) ask(ctx context.Context, log *zap.Logger, callerID string, q query.Query) Reply {
	token, acquired, err := s.lock.TryAcquire(ctx, callerID)
	if err != nil {
		return failed(fmt.Errorf("acquire admission lock: %w", err))
	}
	if !acquired {
		return Reply{Text: BusyReply, Outcome: OutcomeBusy}
	}
	defer func() {
		// Release must survive a cancelled request context.
		if err := s.lock.Release(context.WithoutCancel(ctx), callerID, token); err != nil {
			log.Warn("Failed to release admission lock", zap.Error(err))
		}
	}()

	key := q.CacheKey(answerNamespace, s.cfg.TopK)
	if cached, ok := s.lookup(ctx, log, answerNamespace, key); ok {
		s.record(ctx, log, callerID, q.Raw(), cached.Reply)
		return Reply{Text: cached.Reply, Outcome: OutcomeCacheHit}
	}

	results, err := s.retrieve(ctx, q, s.cfg.TopK)
	if err != nil {
		return failed(err)
	}

	text, err := s.generate(ctx, q.Raw(), results)
	if err != nil {
		return failed(err)
	}

	if err := s.cache.Put(ctx, key, answer.Answer{Reply: text, Results: results}, s.cfg.CacheTTL); err != nil {
		log.Warn("Failed to cache answer", zap.Error(err))
	}
	s.record(ctx, log, callerID, q.Raw(), text)

	return Reply{Text: text, Outcome: OutcomeAnswered}
}

// Recommend returns ranked listings for a free-text query without generation or admission.
// topK <= 0 uses the configured default; larger values are capped.
func (s *Service) Recommend(ctx context.Context, text string, topK int) ([]ranking.ScoredListing, error) {
	q := query.Parse(text, s.cfg.Locations)
	if q.IsEmpty() {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrMalformedRequest)
	}
	if topK <= 0 {
		topK = s.cfg.RecommendTopK
	}
	topK = min(topK, MaxRecommendTopK)

	log := logger.FromContext(ctx)
	key := q.CacheKey(recommendNamespace, topK)
	if cached, ok := s.lookup(ctx, log, recommendNamespace, key); ok {
		return cached.Results, nil
	}

	results, err := s.retrieve(ctx, q, topK)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, key, answer.Answer{Results: results}, s.cfg.CacheTTL); err != nil {
		log.Warn("Failed to cache recommendations", zap.Error(err))
	}
	return results, nil
}

// History returns the caller's most recent messages, newest first.
// limit <= 0 or above the configured maximum uses the maximum.
func (s *Service) History(ctx context.Context, callerID string, limit int) ([]chat.Message, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if s.history == nil {
		return []chat.Message{}, nil
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	msgs, err := s.history.List(ctx, callerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return msgs, nil
}

func (s *Service) lookup(ctx context.Context, log *zap.Logger, namespace, key string) (answer.Answer, bool) {
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("Answer cache lookup failed", zap.String("namespace", namespace), zap.Error(err))
	}
	if err != nil || !ok {
		metrics.ResultCacheTotal.WithLabelValues(namespace, "miss").Inc()
		return answer.Answer{}, false
	}
	metrics.ResultCacheTotal.WithLabelValues(namespace, "hit").Inc()
	return cached, true
}

func (s *Service) retrieve(ctx context.Context, q query.Query, topK int) ([]ranking.ScoredListing, error) {
	emb, err := s.embedder.Embed(ctx, q.Normalized())
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingProvider) && !errors.Is(err, domain.ErrTimeout) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingProvider, err)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.ranker.Rank(ctx, emb.Embedding, q.Filters(), topK)
	if err != nil {
		if !errors.Is(err, domain.ErrRanking) {
			err = fmt.Errorf("%w: %w", domain.ErrRanking, err)
		}
		return nil, fmt.Errorf("rank listings: %w", err)
	}
	return results, nil
}

func (s *Service) generate(ctx context.Context, message string, results []ranking.ScoredListing) (string, error) {
	if s.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.GenerationTimeout)
		defer cancel()
	}

	res, err := s.generator.Generate(ctx, s.cfg.SystemPrompt, buildUserPrompt(buildContext(results), message))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTimeout):
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		case !errors.Is(err, domain.ErrGenerationProvider):
			err = fmt.Errorf("%w: %w", domain.ErrGenerationProvider, err)
		}
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return res.Content, nil
}

func (s *Service) record(ctx context.Context, log *zap.Logger, callerID, message, response string) {
	if s.history == nil {
		return
	}
	if _, err := s.history.Append(context.WithoutCancel(ctx), callerID, message, response); err != nil {
		log.Warn("Failed to record chat message", zap.Error(err))
	}
}

func failed(err error) Reply {
	outcome := OutcomeFailed
	if errors.Is(err, domain.ErrTimeout) {
		outcome = OutcomeTimeout
	}
	return Reply{Text: ErrorReply, Outcome: outcome, Err: err}
}
