package herdask

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	dbRedis "github.com/kailas-cloud/herdask/internal/db/redis"
	"github.com/kailas-cloud/herdask/internal/domain"
	"github.com/kailas-cloud/herdask/internal/domain/chat"
	"github.com/kailas-cloud/herdask/internal/domain/listing"
	"github.com/kailas-cloud/herdask/internal/domain/ranking"
	assistantuc "github.com/kailas-cloud/herdask/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/herdask/internal/usecase/health"
)

func okEmbedder() *mockEmbedder {
	return &mockEmbedder{fn: func(context.Context, string) (EmbeddingResult, error) {
		return EmbeddingResult{Embedding: []float32{1, 0}}, nil
	}}
}

func okGenerator() *mockGenerator {
	return &mockGenerator{fn: func(context.Context, string, string) (GenerationResult, error) {
		return GenerationResult{Content: "ok"}, nil
	}}
}

func TestNew_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{"no address", []Option{WithEmbedder(okEmbedder()), WithGenerator(okGenerator())}, "database address"},
		{"no embedder", []Option{WithValkey("localhost:6379", ""), WithGenerator(okGenerator())}, "embedder"},
		{"no generator", []Option{WithRedis("localhost:6379", ""), WithEmbedder(okEmbedder())}, "generator"},
		{"lease within generation timeout", []Option{
			WithRedis("localhost:6379", ""), WithEmbedder(okEmbedder()), WithGenerator(okGenerator()),
			WithGenerationTimeout(time.Minute), WithSharedLock(30 * time.Second),
		}, "shared lock lease"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.opts...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	_, err := createStore(cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestWireClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := dbRedis.NewStoreForTest(mock.NewClient(ctrl))

	for _, lease := range []time.Duration{0, time.Minute} {
		cfg := &clientConfig{
			embedder:        okEmbedder(),
			generator:       okGenerator(),
			collections:     defaultCollections,
			cacheEntries:    defaultCacheEntries,
			keyPrefix:       defaultKeyPrefix,
			sharedLockLease: lease,
		}
		c, err := wireClient(store, cfg, nil)
		if err != nil {
			t.Fatalf("wireClient: %v", err)
		}
		if c.assistant == nil || c.healthSvc == nil {
			t.Fatal("expected use cases to be wired")
		}
	}
}

func TestClient_Ping(t *testing.T) {
	ctrl := gomock.NewController(t)
	rc := mock.NewClient(ctrl)
	rc.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	c := &Client{store: dbRedis.NewStoreForTest(rc)}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestClient_Ask(t *testing.T) {
	var gotCaller, gotMessage string
	c := testClient(&mockAssistant{
		askFn: func(_ context.Context, callerID, message string) (assistantuc.Reply, error) {
			gotCaller, gotMessage = callerID, message
			return assistantuc.Reply{Text: "A1 is a murrah buffalo.", Outcome: assistantuc.OutcomeAnswered}, nil
		},
	}, nil)

	reply, err := c.Ask(context.Background(), "u1", "buffalo in chitwan")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if gotCaller != "u1" || gotMessage != "buffalo in chitwan" {
		t.Errorf("forwarded (%q, %q)", gotCaller, gotMessage)
	}
	if reply.Outcome != OutcomeAnswered || reply.Text != "A1 is a murrah buffalo." {
		t.Errorf("reply = %+v", reply)
	}
}

func TestClient_Ask_FailedOutcome(t *testing.T) {
	cause := errors.Join(domain.ErrGenerationProvider, errors.New("upstream 500"))
	c := testClient(&mockAssistant{
		askFn: func(context.Context, string, string) (assistantuc.Reply, error) {
			return assistantuc.Reply{Text: assistantuc.ErrorReply, Outcome: assistantuc.OutcomeFailed, Err: cause}, nil
		},
	}, nil)

	reply, err := c.Ask(context.Background(), "u1", "goat")
	if err != nil {
		t.Fatalf("pipeline failures must not be returned as errors: %v", err)
	}
	if reply.Outcome != OutcomeFailed || !errors.Is(reply.Err, ErrGenerationProvider) {
		t.Errorf("reply = %+v", reply)
	}
	if strings.Contains(reply.Text, "upstream") {
		t.Errorf("provider detail leaked into reply text: %q", reply.Text)
	}
}

func TestClient_Ask_InvalidInput(t *testing.T) {
	c := testClient(&mockAssistant{
		askFn: func(context.Context, string, string) (assistantuc.Reply, error) {
			return assistantuc.Reply{}, domain.ErrUnauthenticated
		},
	}, nil)

	if _, err := c.Ask(context.Background(), "", "goat"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestClient_Recommend(t *testing.T) {
	price := 90000.0
	loc := "chitwan"
	l := listing.Reconstruct("A1", "buffaloes", "buffalo", "murrah", &price, &loc, []float32{1, 0})
	bare := listing.Reconstruct("G7", "goats", "goat", "", nil, nil, []float32{0, 1})

	var gotTopK int
	c := testClient(&mockAssistant{
		recommendFn: func(_ context.Context, _ string, topK int) ([]ranking.ScoredListing, error) {
			gotTopK = topK
			return []ranking.ScoredListing{ranking.New(l, 1, 0.5), ranking.New(bare, 0.5, 0)}, nil
		},
	}, nil)

	recs, err := c.Recommend(context.Background(), "murrah", 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if gotTopK != 2 {
		t.Errorf("topK forwarded = %d", gotTopK)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if recs[0].AnimalID != "A1" || *recs[0].Price != 90000 || *recs[0].Location != "chitwan" {
		t.Errorf("recs[0] = %+v", recs[0])
	}
	if math.Abs(recs[0].Score-0.9) > 1e-9 {
		t.Errorf("score = %v, want 0.9", recs[0].Score)
	}
	if recs[1].Price != nil || recs[1].Location != nil {
		t.Errorf("absent fields must stay nil: %+v", recs[1])
	}
}

func TestClient_Recommend_Error(t *testing.T) {
	c := testClient(&mockAssistant{
		recommendFn: func(context.Context, string, int) ([]ranking.ScoredListing, error) {
			return nil, domain.ErrEmbeddingProvider
		},
	}, nil)

	if _, err := c.Recommend(context.Background(), "goat", 3); !errors.Is(err, ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestClient_History(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := testClient(&mockAssistant{
		historyFn: func(_ context.Context, callerID string, limit int) ([]chat.Message, error) {
			if callerID != "u1" || limit != 5 {
				t.Errorf("forwarded (%q, %d)", callerID, limit)
			}
			return []chat.Message{{ID: "m1", CallerID: "u1", Message: "q", Response: "r", CreatedAt: created}}, nil
		},
	}, nil)

	msgs, err := c.History(context.Background(), "u1", 5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m1" || msgs[0].Response != "r" || !msgs[0].CreatedAt.Equal(created) {
		t.Errorf("msgs = %+v", msgs)
	}
}

func TestClient_Health(t *testing.T) {
	c := testClient(nil, &mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "embedding": healthuc.CheckError},
	}})

	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Healthy() {
		t.Errorf("status = %q", h.Status)
	}
	if h.Version == "" {
		t.Error("expected build version")
	}
	if h.Checks["database"] != "ok" || h.Checks["embedding"] != "error" {
		t.Errorf("checks = %v", h.Checks)
	}
}

func TestClient_Close_NilStore(t *testing.T) {
	c := &Client{store: nil}
	c.Close()
}

func TestEmbedderAdapter(t *testing.T) {
	adapter := &embedderAdapter{inner: &mockEmbedder{
		fn: func(_ context.Context, text string) (EmbeddingResult, error) {
			if text != "hello" {
				t.Errorf("text = %q", text)
			}
			return EmbeddingResult{Embedding: []float32{1, 2, 3}, PromptTokens: 5, TotalTokens: 10}, nil
		},
	}}

	result, err := adapter.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.TotalTokens != 10 {
		t.Errorf("result = %+v", result)
	}
}

func TestEmbedderAdapter_Error(t *testing.T) {
	adapter := &embedderAdapter{inner: &mockEmbedder{
		fn: func(context.Context, string) (EmbeddingResult, error) {
			return EmbeddingResult{}, context.DeadlineExceeded
		},
	}}
	if _, err := adapter.Embed(context.Background(), "hello"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

type checkedEmbedder struct {
	mockEmbedder
	err error
}

func (e *checkedEmbedder) HealthCheck(context.Context) error { return e.err }

func TestEmbedderAdapter_HealthCheck(t *testing.T) {
	if err := (&embedderAdapter{inner: okEmbedder()}).HealthCheck(context.Background()); err != nil {
		t.Errorf("embedder without probe must report healthy, got %v", err)
	}
	down := &checkedEmbedder{err: errors.New("connection refused")}
	if err := (&embedderAdapter{inner: down}).HealthCheck(context.Background()); err == nil {
		t.Error("expected probe error to propagate")
	}
}

func TestGeneratorAdapter(t *testing.T) {
	adapter := &generatorAdapter{inner: &mockGenerator{
		fn: func(_ context.Context, systemPrompt, userPrompt string) (GenerationResult, error) {
			if systemPrompt != "sys" || userPrompt != "user" {
				t.Errorf("prompts = (%q, %q)", systemPrompt, userPrompt)
			}
			return GenerationResult{Content: "hi", CompletionTokens: 2, TotalTokens: 7}, nil
		},
	}}

	result, err := adapter.Generate(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "hi" || result.CompletionTokens != 2 {
		t.Errorf("result = %+v", result)
	}

	adapter.inner = &mockGenerator{fn: func(context.Context, string, string) (GenerationResult, error) {
		return GenerationResult{}, errors.New("model unloaded")
	}}
	if _, err := adapter.Generate(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error from adapter")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithValkey("localhost:6379", "secret").apply(cfg)
	if cfg.driver != "valkey" || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("valkey options = %+v", cfg)
	}

	WithRedis("localhost:6380", "pass").apply(cfg)
	if cfg.driver != "redis" || cfg.addrs[0] != "localhost:6380" {
		t.Errorf("redis options = %+v", cfg)
	}

	WithCollections("yaks").apply(cfg)
	WithLocations("jumla", "dang").apply(cfg)
	WithVectorDimensions(768).apply(cfg)
	WithMinSimilarity(0.3).apply(cfg)
	WithTopK(4).apply(cfg)
	WithAnswerCache(time.Minute, 64).apply(cfg)
	WithGenerationTimeout(30 * time.Second).apply(cfg)
	WithSystemPrompt("be brief").apply(cfg)
	WithSharedLock(2 * time.Minute).apply(cfg)
	WithKeyPrefix("farm:").apply(cfg)

	if len(cfg.collections) != 1 || cfg.collections[0] != "yaks" {
		t.Errorf("collections = %v", cfg.collections)
	}
	if len(cfg.locations) != 2 || cfg.locations[1] != "dang" {
		t.Errorf("locations = %v", cfg.locations)
	}
	if cfg.vectorDimensions != 768 || cfg.minSimilarity != 0.3 || cfg.topK != 4 {
		t.Errorf("ranking options = %+v", cfg)
	}
	if cfg.cacheTTL != time.Minute || cfg.cacheEntries != 64 {
		t.Errorf("cache options = (%v, %d)", cfg.cacheTTL, cfg.cacheEntries)
	}
	if cfg.generationTimeout != 30*time.Second || cfg.systemPrompt != "be brief" {
		t.Errorf("generation options = %+v", cfg)
	}
	if cfg.sharedLockLease != 2*time.Minute || cfg.keyPrefix != "farm:" {
		t.Errorf("storage options = %+v", cfg)
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("ask", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("ask", time.Now(), domain.ErrTimeout)

	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("ask", "ok")); got != 1 {
		t.Errorf("ok count = %v", got)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("ask", "timeout")); got != 1 {
		t.Errorf("timeout count = %v", got)
	}
	if n := testutil.CollectAndCount(obs.metrics.operations, "herdask_sdk_operations_total"); n != 2 {
		t.Errorf("expected 2 samples, got %d", n)
	}
}

func TestClient_Ask_CountsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	c := testClient(&mockAssistant{
		askFn: func(context.Context, string, string) (assistantuc.Reply, error) {
			return assistantuc.Reply{Text: assistantuc.BusyReply, Outcome: assistantuc.OutcomeBusy}, nil
		},
	}, nil)
	c.obs = obs

	if _, err := c.Ask(context.Background(), "u1", "goat"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got := testutil.ToFloat64(obs.metrics.outcomes.WithLabelValues("busy")); got != 1 {
		t.Errorf("busy outcomes = %v", got)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("ask", "ok")); got != 1 {
		t.Errorf("busy must count as a successful call, got %v", got)
	}
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second newObserver: %v", err)
	}
	if first.metrics.operations != second.metrics.operations {
		t.Error("expected the registered collector to be reused")
	}
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("history", time.Now(), nil)
	obs.observe("history", time.Now(), errors.New("test error"))
}
