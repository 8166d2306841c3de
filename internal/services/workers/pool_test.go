package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
)

func TestPoolRunsAllTasks(t *testing.T) {
	pool := NewPool(context.Background(), 3, arbor.NewLogger())
	pool.Start()

	var counter int64
	for i := 0; i < 20; i++ {
		err := pool.Submit(func(ctx context.Context) error {
			atomic.AddInt64(&counter, 1)
			return nil
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	pool.Wait()

	if got := atomic.LoadInt64(&counter); got != 20 {
		t.Errorf("expected 20 tasks to run, got %d", got)
	}
	if errs := pool.Errors(); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestPoolCollectsErrors(t *testing.T) {
	pool := NewPool(context.Background(), 2, arbor.NewLogger())
	pool.Start()

	for i := 0; i < 5; i++ {
		i := i
		if err := pool.Submit(func(ctx context.Context) error {
			if i%2 == 0 {
				return errors.New("task failed")
			}
			return nil
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	pool.Wait()

	if errs := pool.Errors(); len(errs) != 3 {
		t.Errorf("expected 3 errors, got %d", len(errs))
	}
}

func TestPoolHonorsParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	pool := NewPool(parent, 1, arbor.NewLogger())
	pool.Start()

	started := make(chan struct{})
	var sawCancel int64

	if err := pool.Submit(func(ctx context.Context) error {
		close(started)
		select {
		case <-ctx.Done():
			atomic.StoreInt64(&sawCancel, 1)
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	<-started
	cancel()
	pool.Wait()

	if atomic.LoadInt64(&sawCancel) != 1 {
		t.Error("task did not observe parent cancellation")
	}
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	pool := NewPool(context.Background(), 1, arbor.NewLogger())
	pool.Start()
	pool.Shutdown()

	if err := pool.Submit(func(ctx context.Context) error { return nil }); err == nil {
		t.Error("expected submit to fail after shutdown")
	}
}

func TestZeroWorkersDefaultsToBoundedPool(t *testing.T) {
	pool := NewPool(context.Background(), 0, arbor.NewLogger())
	pool.Start()

	done := make(chan struct{})
	if err := pool.Submit(func(ctx context.Context) error {
		close(done)
		return nil
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran with defaulted worker count")
	}
	pool.Wait()
}
