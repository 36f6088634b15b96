package resultcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/kailas-cloud/herdask/internal/domain/answer"
)

// DefaultMaxEntries bounds the in-process cache when no size is configured.
const DefaultMaxEntries = 1024

type entry struct {
	value     answer.Answer
	expiresAt time.Time
}

// Memory is a bounded in-process answer cache.
// Entries expire passively on read; the least recently used entry is evicted when full.
type Memory struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, entry]
	now func() time.Time
}

// NewMemory creates an in-process cache holding at most maxEntries answers.
func NewMemory(maxEntries int) (*Memory, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	lru, err := simplelru.NewLRU[string, entry](maxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Memory{lru: lru, now: time.Now}, nil
}

// WithClock overrides the time source (tests).
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Get returns the cached answer. An entry is a miss once now >= expiresAt.
func (m *Memory) Get(_ context.Context, key string) (answer.Answer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lru.Get(key)
	if !ok {
		return answer.Answer{}, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		m.lru.Remove(key)
		return answer.Answer{}, false, nil
	}
	return e.value, true, nil
}

// Put stores value under key for ttl, replacing any previous entry.
func (m *Memory) Put(_ context.Context, key string, value answer.Answer, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lru.Add(key, entry{value: value, expiresAt: m.now().Add(ttl)})
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}
