package assistant

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/herdask/internal/domain"
	"github.com/kailas-cloud/herdask/internal/domain/answer"
	"github.com/kailas-cloud/herdask/internal/domain/chat"
	"github.com/kailas-cloud/herdask/internal/domain/listing"
	"github.com/kailas-cloud/herdask/internal/repository/resultcache"
	"github.com/kailas-cloud/herdask/internal/usecase/admission"
	rankuc "github.com/kailas-cloud/herdask/internal/usecase/ranking"
)

// --- embedder ---

type fakeEmbedder struct {
	mu     sync.Mutex
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: f.vector}, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// --- generator ---

// fakeGenerator returns content. Prompts containing blockOn wait on release
// (or context expiry) after signalling entered.
type fakeGenerator struct {
	mu          sync.Mutex
	content     string
	err         error
	calls       int
	userPrompts []string

	blockOn string
	entered chan struct{}
	release chan struct{}
	hang    bool
}

func (f *fakeGenerator) Generate(ctx context.Context, _, userPrompt string) (domain.GenerationResult, error) {
	f.mu.Lock()
	f.calls++
	f.userPrompts = append(f.userPrompts, userPrompt)
	content, err, hang := f.content, f.err, f.hang
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return domain.GenerationResult{}, ctx.Err()
	}
	if f.blockOn != "" && strings.Contains(userPrompt, f.blockOn) {
		f.entered <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return domain.GenerationResult{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.GenerationResult{}, err
	}
	return domain.GenerationResult{Content: content}, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// --- listing repository ---

type fakeRepo struct {
	listings []listing.Listing
	err      error
}

func (f *fakeRepo) Scan(_ context.Context, _ string) iter.Seq2[listing.Listing, error] {
	return func(yield func(listing.Listing, error) bool) {
		if f.err != nil {
			yield(listing.Listing{}, f.err)
			return
		}
		for _, l := range f.listings {
			if !yield(l, nil) {
				return
			}
		}
	}
}

// --- history ---

type fakeHistory struct {
	mu        sync.Mutex
	msgs      []chat.Message
	appendErr error
	lastLimit int
}

func (f *fakeHistory) Append(_ context.Context, callerID, message, response string) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return chat.Message{}, f.appendErr
	}
	m := chat.Message{CallerID: callerID, Message: message, Response: response, CreatedAt: time.Now()}
	f.msgs = append(f.msgs, m)
	return m, nil
}

func (f *fakeHistory) List(_ context.Context, callerID string, limit int) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	var out []chat.Message
	for i := len(f.msgs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.msgs[i].CallerID == callerID {
			out = append(out, f.msgs[i])
		}
	}
	return out, nil
}

// --- lock / cache wrappers ---

type erroringLock struct{}

func (erroringLock) TryAcquire(context.Context, string) (string, bool, error) {
	return "", false, errors.New("redis unavailable")
}
func (erroringLock) Release(context.Context, string, string) error { return nil }

type erroringCache struct{ puts int }

func (c *erroringCache) Get(context.Context, string) (answer.Answer, bool, error) {
	return answer.Answer{}, false, errors.New("redis unavailable")
}

func (c *erroringCache) Put(context.Context, string, answer.Answer, time.Duration) error {
	c.puts++
	return errors.New("redis unavailable")
}

// --- harness ---

type harness struct {
	svc       *Service
	lock      *admission.Lock
	cache     *resultcache.Memory
	embedder  *fakeEmbedder
	generator *fakeGenerator
	repo      *fakeRepo
	history   *fakeHistory
}

func ptr[T any](v T) *T { return &v }

func a1Listing() listing.Listing {
	return listing.Reconstruct("A1", "buffaloes", "buffalo", "murrah", ptr(90000.0), ptr("chitwan"), []float32{1, 0})
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	return newHarnessWith(t, cfg, nil, nil)
}

// newHarnessWith swaps in a custom lock or cache when non-nil.
func newHarnessWith(t *testing.T, cfg Config, lock Locker, cache Cache) *harness {
	t.Helper()
	cache, err := resultcache.NewMemory(100)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	h := &harness{
		lock:      admission.NewLock(),
		cache:     cache,
		embedder:  &fakeEmbedder{vector: []float32{1, 0}},
		generator: &fakeGenerator{content: "R"},
		repo:      &fakeRepo{listings: []listing.Listing{a1Listing()}},
		history:   &fakeHistory{},
	}
	if cfg.Locations == nil {
		cfg.Locations = []string{"chitwan", "kathmandu", "pokhara"}
	}
	ranker := rankuc.New(h.repo, []string{"buffaloes"}, zap.NewNop())
	if lock == nil {
		lock = h.lock
	}
	if cache == nil {
		cache = h.cache
	}
	h.svc = New(lock, cache, h.embedder, ranker, h.generator, h.history, cfg)
	return h
}
