package device

import (
	"sync"
	"time"
)

// IntervalTimer is a restartable ticker. C returns nil while stopped so it can sit in a select.
type IntervalTimer struct {
	mu       sync.Mutex
	ticker   *time.Ticker
	interval time.Duration
}

func NewIntervalTimer() *IntervalTimer {
	return &IntervalTimer{}
}

// Start (re)starts the timer. A non-positive interval leaves it stopped.
func (t *IntervalTimer) Start(interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	if interval <= 0 {
		return
	}
	t.ticker = time.NewTicker(interval)
	t.interval = interval
}

func (t *IntervalTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
}

func (t *IntervalTimer) C() <-chan time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker == nil {
		return nil
	}

	return t.ticker.C
}

// Interval returns the active interval, or 0 when stopped.
func (t *IntervalTimer) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.interval
}

func (t *IntervalTimer) stopLocked() {
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
	t.interval = 0
}
