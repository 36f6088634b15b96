package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultLease bounds how long a crashed process can keep a caller locked out.
const DefaultLease = 120 * time.Second

// store is the consumer interface for the shared lock (ISP).
type store interface {
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	DelIfEqual(ctx context.Context, key string, value []byte) (bool, error)
}

// Lock is a per-caller admission gate shared across processes through Redis/Valkey.
// Acquisition is SET NX EX with a fresh token; release deletes the key only
// while it still holds that token, so a holder whose lease expired cannot
// free a later holder's slot.
type Lock struct {
	store     store
	keyPrefix string
	lease     time.Duration
	newToken  func() string
}

// New creates a shared lock. A non-positive lease falls back to DefaultLease.
func New(s store, keyPrefix string, lease time.Duration) *Lock {
	if lease <= 0 {
		lease = DefaultLease
	}
	return &Lock{store: s, keyPrefix: keyPrefix + "lock:", lease: lease, newToken: uuid.NewString}
}

// TryAcquire reports whether the caller slot was free and is now held, and returns the holder token.
func (l *Lock) TryAcquire(ctx context.Context, callerID string) (string, bool, error) {
	token := l.newToken()
	ok, err := l.store.SetNX(ctx, l.key(callerID), []byte(token), l.lease)
	if err != nil {
		return "", false, fmt.Errorf("acquire lock %s: %w", callerID, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release frees the caller slot if token still holds it. Releasing an idle
// or re-acquired caller is a no-op.
func (l *Lock) Release(ctx context.Context, callerID, token string) error {
	if _, err := l.store.DelIfEqual(ctx, l.key(callerID), []byte(token)); err != nil {
		return fmt.Errorf("release lock %s: %w", callerID, err)
	}
	return nil
}

func (l *Lock) key(callerID string) string {
	return l.keyPrefix + callerID
}
