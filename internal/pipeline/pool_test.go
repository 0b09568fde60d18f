package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestPool_RunsAllJobs(t *testing.T) {
	pool := NewPool(context.Background(), 3, 20, discardLogger())
	pool.Start()

	var done atomic.Int64
	for i := 0; i < 20; i++ {
		if err := pool.Submit(func(context.Context) error {
			done.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if err := pool.Drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if done.Load() != 20 {
		t.Fatalf("jobs done = %d, want 20", done.Load())
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 2
	pool := NewPool(context.Background(), workers, 6, discardLogger())
	pool.Start()

	var mu sync.Mutex
	running, peak := 0, 0
	gate := make(chan struct{})

	for i := 0; i < 6; i++ {
		if err := pool.Submit(func(context.Context) error {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			<-gate

			mu.Lock()
			running--
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	close(gate)

	if err := pool.Drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if peak > workers {
		t.Fatalf("peak concurrency = %d, bound is %d", peak, workers)
	}
}

func TestPool_QueuedSubmitsNeverBlock(t *testing.T) {
	// No Start: every submission must land in the queue without a worker.
	pool := NewPool(context.Background(), 2, 10, discardLogger())
	defer pool.Shutdown()

	for i := 0; i < 10; i++ {
		if err := pool.Submit(func(context.Context) error { return nil }); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
}

func TestPool_FirstErrorWins(t *testing.T) {
	pool := NewPool(context.Background(), 1, 2, discardLogger())
	pool.Start()

	boom := errors.New("row persist failed")
	if err := pool.Submit(func(context.Context) error { return boom }); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Later submissions may fail once the pool has cancelled; either way
	// Drain must surface the job error.
	_ = pool.Submit(func(context.Context) error { return nil })

	if err := pool.Drain(); !errors.Is(err, boom) {
		t.Fatalf("drain = %v, want the job error", err)
	}
}

func TestPool_Shutdown(t *testing.T) {
	pool := NewPool(context.Background(), 2, 0, discardLogger())
	pool.Start()
	pool.Shutdown()

	if err := pool.Submit(func(context.Context) error { return nil }); err == nil {
		t.Fatalf("submit after shutdown must fail")
	}
}
