package admission

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestLock_SecondAcquireRejected(t *testing.T) {
	l := NewLock()
	ctx := context.Background()

	_, ok, err := l.TryAcquire(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("first acquire = %v, %v; want true, nil", ok, err)
	}
	_, ok, err = l.TryAcquire(ctx, "u1")
	if err != nil || ok {
		t.Fatalf("second acquire = %v, %v; want false, nil", ok, err)
	}
}

func TestLock_ReleaseAllowsReacquire(t *testing.T) {
	l := NewLock()
	ctx := context.Background()

	token, _, _ := l.TryAcquire(ctx, "u1")
	if err := l.Release(ctx, "u1", token); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, _ := l.TryAcquire(ctx, "u1"); !ok {
		t.Fatal("expected acquire after release")
	}
}

func TestLock_ReleaseIdempotent(t *testing.T) {
	l := NewLock()
	ctx := context.Background()

	if err := l.Release(ctx, "never-acquired", "1"); err != nil {
		t.Fatalf("release of idle caller: %v", err)
	}
	token, _, _ := l.TryAcquire(ctx, "u1")
	_ = l.Release(ctx, "u1", token)
	_ = l.Release(ctx, "u1", token)
	if l.Held() != 0 {
		t.Errorf("Held() = %d, want 0", l.Held())
	}
}

func TestLock_StaleTokenKeepsNewHolder(t *testing.T) {
	l := NewLock()
	ctx := context.Background()

	first, _, _ := l.TryAcquire(ctx, "u1")
	_ = l.Release(ctx, "u1", first)
	second, ok, _ := l.TryAcquire(ctx, "u1")
	if !ok || second == first {
		t.Fatalf("second acquire = %q, %v", second, ok)
	}

	_ = l.Release(ctx, "u1", first)
	if _, ok, _ := l.TryAcquire(ctx, "u1"); ok {
		t.Fatal("stale token released the current holder")
	}
}

func TestLock_CallersIndependent(t *testing.T) {
	l := NewLock()
	ctx := context.Background()

	if _, ok, _ := l.TryAcquire(ctx, "u1"); !ok {
		t.Fatal("u1 acquire failed")
	}
	if _, ok, _ := l.TryAcquire(ctx, "u2"); !ok {
		t.Fatal("u2 must not be blocked by u1")
	}
	if l.Held() != 2 {
		t.Errorf("Held() = %d, want 2", l.Held())
	}
}

func TestLock_ConcurrentExclusivity(t *testing.T) {
	l := NewLock()
	ctx := context.Background()

	const goroutines = 64
	var (
		wg       sync.WaitGroup
		acquired atomic.Int32
		start    = make(chan struct{})
	)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok, _ := l.TryAcquire(ctx, "same-caller"); ok {
				acquired.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := acquired.Load(); got != 1 {
		t.Errorf("acquired %d times, want exactly 1", got)
	}
}
