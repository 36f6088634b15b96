package assistant

import (
	"context"
	"time"

	"github.com/kailas-cloud/herdask/internal/domain/answer"
	"github.com/kailas-cloud/herdask/internal/domain/chat"
	"github.com/kailas-cloud/herdask/internal/domain/query"
	"github.com/kailas-cloud/herdask/internal/domain/ranking"
)

// Locker is the per-caller admission gate. TryAcquire returns a token for the
// acquisition; Release frees the slot only while that token still holds it.
type Locker interface {
	TryAcquire(ctx context.Context, callerID string) (token string, ok bool, err error)
	Release(ctx context.Context, callerID, token string) error
}

// Cache memoizes answers by key with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) (answer.Answer, bool, error)
	Put(ctx context.Context, key string, value answer.Answer, ttl time.Duration) error
}

// Ranker returns the hybrid top-k for a query vector.
type Ranker interface {
	Rank(ctx context.Context, vector []float32, filters query.Filters, topK int) ([]ranking.ScoredListing, error)
}

// History records and lists answered questions.
type History interface {
	Append(ctx context.Context, callerID, message, response string) (chat.Message, error)
	List(ctx context.Context, callerID string, limit int) ([]chat.Message, error)
}
