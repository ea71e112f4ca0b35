package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type writeCmd struct {
	name string
	fn   func(context.Context) error
	done chan struct{}
}

// WriterQueue serializes result writes off the console path and retries failed ones.
type WriterQueue struct {
	logger  *slog.Logger
	queue   chan writeCmd
	backoff time.Duration

	// deferred counts writes still waiting for room in a full queue; idle is
	// closed while it is zero.
	mu       sync.Mutex
	deferred int
	idle     chan struct{}
	stopped  chan struct{}
}

func NewWriterQueue(logger *slog.Logger, capacity int) *WriterQueue {
	if capacity <= 0 {
		capacity = 64
	}
	idle := make(chan struct{})
	close(idle)

	return &WriterQueue{
		logger:  logger,
		queue:   make(chan writeCmd, capacity),
		backoff: 300 * time.Millisecond,
		idle:    idle,
		stopped: make(chan struct{}),
	}
}

func (w *WriterQueue) Enqueue(name string, fn func(context.Context) error) {
	cmd := writeCmd{name: name, fn: fn}
	select {
	case w.queue <- cmd:
	default:
		w.logger.Warn("write queue full, deferring", "cmd", name)
		w.mu.Lock()
		if w.deferred == 0 {
			w.idle = make(chan struct{})
		}
		w.deferred++
		w.mu.Unlock()
		go func() {
			defer w.handedOff()
			select {
			case w.queue <- cmd:
			case <-w.stopped:
			}
		}()
	}
}

// Flush waits until every write enqueued before the call has been attempted,
// including writes deferred by a full queue.
func (w *WriterQueue) Flush(ctx context.Context) error {
	w.mu.Lock()
	idle := w.idle
	w.mu.Unlock()
	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}

	done := make(chan struct{})
	select {
	case w.queue <- writeCmd{name: "flush", done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *WriterQueue) handedOff() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deferred--
	if w.deferred == 0 {
		close(w.idle)
	}
}

func (w *WriterQueue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				close(w.stopped)
				return
			case cmd := <-w.queue:
				if cmd.done != nil {
					close(cmd.done)
					continue
				}
				w.runWithRetry(ctx, cmd)
			}
		}
	}()
}

func (w *WriterQueue) runWithRetry(ctx context.Context, cmd writeCmd) {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := cmd.fn(ctx)
		if err == nil {
			return
		}
		w.logger.Error("result write failed", "cmd", cmd.name, "attempt", attempt, "error", err)
		if attempt == maxAttempts {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * w.backoff):
		}
	}
}
