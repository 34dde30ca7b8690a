package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a loaded value is served before it is fetched again.
const DefaultTTL = 30 * time.Second

// LoadTimeout bounds a shared load once it is detached from its callers.
const LoadTimeout = 30 * time.Second

// LoadFunc fetches the value for a key from the source of truth.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Loader fronts an LRUCache with singleflight so concurrent misses for the
// same key share one fetch. Failed loads are not cached.
type Loader[T any] struct {
	cache *LRUCache[T]
	group singleflight.Group
}

// NewLoader returns a Loader holding up to size entries for ttl.
func NewLoader[T any](size int, ttl time.Duration) *Loader[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Loader[T]{cache: NewLRUCache[T](size, ttl)}
}

// Get returns the cached value for key or calls load once for all callers
// waiting on the same key.
func (l *Loader[T]) Get(ctx context.Context, key string, load LoadFunc[T]) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	// The shared load outlives any single caller: each waiter gives up on
	// its own ctx below, but one cancelled request must not fail the others.
	ch := l.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoadTimeout)
		defer cancel()
		v, err := load(loadCtx)
		if err != nil {
			return v, err
		}
		l.cache.Set(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Invalidate drops every entry whose key starts with prefix.
func (l *Loader[T]) Invalidate(prefix string) int {
	return l.cache.DeletePrefix(prefix)
}

// Cache exposes the underlying LRU, mainly for registration with a Manager.
func (l *Loader[T]) Cache() *LRUCache[T] {
	return l.cache
}
