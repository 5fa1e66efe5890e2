package ledger

import (
	"context"
	"sync"
)

// keyedLocks hands out one mutex per key (market ID or user ID), built on
// buffered channels so acquisition can be bounded by a context. sync.Mutex
// cannot time out, and a trade that cannot win its market's serialization
// point must fail retryably rather than block indefinitely.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]chan struct{})}
}

func (l *keyedLocks) get(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	return ch
}

// acquire takes the lock for key, or fails with the context's error.
// The returned release function must be called exactly once.
func (l *keyedLocks) acquire(ctx context.Context, key string) (func(), error) {
	ch := l.get(key)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
