package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoader_SingleFlight(t *testing.T) {
	l := NewLoader[int](10, time.Minute)

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := l.Get(context.Background(), "ws1:tx", load)
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			results[i] = v
		}(i)
	}

	// Give the goroutines a moment to pile up on the same key.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("load called %d times, want 1", calls.Load())
	}
	for i, v := range results {
		if v != 42 {
			t.Errorf("result %d = %d", i, v)
		}
	}

	// Cached now.
	if _, err := l.Get(context.Background(), "ws1:tx", func(context.Context) (int, error) {
		t.Fatal("unexpected load")
		return 0, nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestLoader_ErrorsAreNotCached(t *testing.T) {
	l := NewLoader[int](10, time.Minute)
	boom := errors.New("boom")

	if _, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	v, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("Get = %d, %v", v, err)
	}
}

func TestLoader_Invalidate(t *testing.T) {
	l := NewLoader[int](10, time.Minute)
	ctx := context.Background()
	one := func(context.Context) (int, error) { return 1, nil }
	two := func(context.Context) (int, error) { return 2, nil }

	_, _ = l.Get(ctx, "ws1:a", one)
	_, _ = l.Get(ctx, "ws2:a", one)
	if n := l.Invalidate("ws1:"); n != 1 {
		t.Fatalf("Invalidate() = %d, want 1", n)
	}
	if v, _ := l.Get(ctx, "ws1:a", two); v != 2 {
		t.Errorf("expected reload after invalidation, got %d", v)
	}
	if v, _ := l.Get(ctx, "ws2:a", two); v != 1 {
		t.Errorf("expected cached value for ws2, got %d", v)
	}
}

func TestLoader_ContextCancelled(t *testing.T) {
	l := NewLoader[int](10, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block := make(chan struct{})
	defer close(block)
	_, err := l.Get(ctx, "k", func(context.Context) (int, error) {
		<-block
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestLoader_CancelledCallerDoesNotFailOthers(t *testing.T) {
	l := NewLoader[int](10, time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (int, error) {
		close(started)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-release:
			return 5, nil
		}
	}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Get(first, "ws1:page", load)
		firstErr <- err
	}()
	<-started

	type result struct {
		v   int
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := l.Get(context.Background(), "ws1:page", load)
		second <- result{v, err}
	}()
	// Let the second caller join the in-flight load.
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller err = %v, want context.Canceled", err)
	}

	close(release)
	res := <-second
	if res.err != nil || res.v != 5 {
		t.Fatalf("second caller = %d, %v, want 5", res.v, res.err)
	}
}
