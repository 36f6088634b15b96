package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/herdask/internal/db"
	"github.com/kailas-cloud/herdask/internal/domain/answer"
)

// store is the consumer interface for the shared cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Redis is an answer cache shared across processes. Expiry is delegated to SET EX.
type Redis struct {
	store     store
	keyPrefix string
}

// NewRedis creates a shared cache under keyPrefix + "answer_cache:".
func NewRedis(s store, keyPrefix string) *Redis {
	return &Redis{store: s, keyPrefix: keyPrefix + "answer_cache:"}
}

// Get returns the cached answer or a miss.
func (r *Redis) Get(ctx context.Context, key string) (answer.Answer, bool, error) {
	data, err := r.store.Get(ctx, r.keyPrefix+key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return answer.Answer{}, false, nil
		}
		return answer.Answer{}, false, fmt.Errorf("get cached answer: %w", err)
	}

	var dto answerDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return answer.Answer{}, false, fmt.Errorf("decode cached answer: %w", err)
	}
	return fromDTO(dto), true, nil
}

// Put stores value under key for ttl, replacing any previous entry.
func (r *Redis) Put(ctx context.Context, key string, value answer.Answer, ttl time.Duration) error {
	if ttl < time.Second {
		ttl = time.Second
	}
	data, err := json.Marshal(toDTO(value))
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, r.keyPrefix+key, data, ttl); err != nil {
		return fmt.Errorf("put cached answer: %w", err)
	}
	return nil
}
