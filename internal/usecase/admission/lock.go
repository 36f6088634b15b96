package admission

import (
	"context"
	"strconv"
	"sync"
)

// Lock is an in-process per-caller admission gate.
// A caller holds at most one slot; a second TryAcquire fails until Release.
// Different callers never contend beyond the map mutex.
type Lock struct {
	mu   sync.Mutex
	seq  uint64
	busy map[string]string // caller -> token of the current holder
}

// NewLock creates an empty in-process lock.
func NewLock() *Lock {
	return &Lock{busy: make(map[string]string)}
}

// TryAcquire marks callerID busy and returns the holder token.
// It never blocks and reports false when the caller is already busy.
func (l *Lock) TryAcquire(_ context.Context, callerID string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.busy[callerID]; held {
		return "", false, nil
	}
	l.seq++
	token := strconv.FormatUint(l.seq, 10)
	l.busy[callerID] = token
	return token, true, nil
}

// Release clears the busy flag when token still holds it. Anything else is a no-op.
func (l *Lock) Release(_ context.Context, callerID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.busy[callerID] == token {
		delete(l.busy, callerID)
	}
	return nil
}

// Held reports how many callers are currently busy.
func (l *Lock) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.busy)
}
