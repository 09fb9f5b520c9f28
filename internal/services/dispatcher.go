package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stayhub/internal/domain"
	"stayhub/internal/utils"
)

// Task is one unit of deferred webhook processing.
type Task struct {
	Name      string
	RequestID string
	Run       func() error
}

// Dispatcher decouples webhook processing from the HTTP response: the
// handler enqueues and answers 200 immediately, workers apply the event
// with per-task retry. Failed tasks that exhaust retries are logged and
// left to the reconciliation sweep, which re-derives the same event from a
// provider poll. That sweep is the at-least-once backstop.
type Dispatcher struct {
	queue      chan Task
	wg         sync.WaitGroup
	maxRetries int
	baseDelay  time.Duration

	mu     sync.Mutex
	closed bool
}

func NewDispatcher(workers, depth int) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if depth <= 0 {
		depth = 256
	}
	d := &Dispatcher{
		queue:      make(chan Task, depth),
		maxRetries: 3,
		baseDelay:  250 * time.Millisecond,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Enqueue hands a task to the workers without blocking the caller. A full
// queue drops the task (logged); the reconciliation sweep picks it up.
func (d *Dispatcher) Enqueue(t Task) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- t:
		return true
	default:
		utils.LogEvent(t.RequestID, "dispatch", "queue_full",
			fmt.Sprintf("task=%s dropped, reconciliation will recover", t.Name))
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.queue {
		d.runWithRetry(t)
	}
}

func (d *Dispatcher) runWithRetry(t Task) {
	delay := d.baseDelay
	for attempt := 1; ; attempt++ {
		err := t.Run()
		if err == nil {
			return
		}
		if !domain.Retryable(err) {
			// expected no-ops (duplicates, unmatched refs) land here
			utils.LogEvent(t.RequestID, "dispatch", "done",
				fmt.Sprintf("task=%s result=%v", t.Name, err))
			return
		}
		if attempt >= d.maxRetries {
			utils.LogEvent(t.RequestID, "dispatch", "exhausted",
				fmt.Sprintf("task=%s attempts=%d err=%v", t.Name, attempt, err))
			return
		}
		utils.LogEvent(t.RequestID, "dispatch", "retry",
			fmt.Sprintf("task=%s attempt=%d err=%v", t.Name, attempt, err))
		time.Sleep(delay)
		delay *= 2
	}
}

// Shutdown stops intake and drains in-flight tasks until ctx expires.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
