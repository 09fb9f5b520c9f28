package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"stayhub/internal/domain"
)

func drain(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("dispatcher drain: %v", err)
	}
}

func TestDispatcherRunsEnqueuedTask(t *testing.T) {
	d := NewDispatcher(2, 16)
	var runs int32

	ok := d.Enqueue(Task{Name: "t1", Run: func() error {
		atomic.AddInt32(&runs, 1)
		return nil
	}})
	if !ok {
		t.Fatalf("enqueue rejected")
	}
	drain(t, d)

	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("task ran %d times, want 1", got)
	}
}

func TestDispatcherDoesNotRetryExpectedNoOps(t *testing.T) {
	d := NewDispatcher(1, 16)
	var runs int32

	d.Enqueue(Task{Name: "dup", Run: func() error {
		atomic.AddInt32(&runs, 1)
		return domain.DuplicateEventError{CorrelationID: "ref-1", Operation: "settlement"}
	}})
	drain(t, d)

	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("duplicate event retried: ran %d times, want 1", got)
	}
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	d := NewDispatcher(1, 16)
	var runs int32

	d.Enqueue(Task{Name: "flaky", Run: func() error {
		if atomic.AddInt32(&runs, 1) < 3 {
			return fmt.Errorf("transient db error")
		}
		return nil
	}})
	drain(t, d)

	if got := atomic.LoadInt32(&runs); got != 3 {
		t.Fatalf("task ran %d times, want 3", got)
	}
}

func TestDispatcherRejectsAfterShutdown(t *testing.T) {
	d := NewDispatcher(1, 16)
	drain(t, d)

	if d.Enqueue(Task{Name: "late", Run: func() error { return nil }}) {
		t.Fatalf("enqueue accepted after shutdown")
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	d := NewDispatcher(1, 1)
	block := make(chan struct{})

	// occupy the single worker, then fill the one queue slot
	d.Enqueue(Task{Name: "busy", Run: func() error { <-block; return nil }})
	for !d.Enqueue(Task{Name: "queued", Run: func() error { return nil }}) {
		// first enqueue may land on the worker before it blocks
	}

	if d.Enqueue(Task{Name: "overflow", Run: func() error { return nil }}) {
		t.Fatalf("expected overflow task to be dropped")
	}

	close(block)
	drain(t, d)
}
