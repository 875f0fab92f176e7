package syncer

import (
	"context"
	"sync"
	"time"
)

// Coalescer buffers rapid scalar mutations (streak bumps, setting changes)
// for a short window and flushes them as one write, latest value per key.
// The window and flush trigger are explicit so the debounce behavior is
// testable on its own.
type Coalescer struct {
	window time.Duration
	flush  func(ctx context.Context, payloads []StreakPayload)

	mu      sync.Mutex
	pending map[string]StreakPayload // key: userID|date
	timer   *time.Timer
}

// NewCoalescer creates a Coalescer that calls flush at most once per window.
func NewCoalescer(window time.Duration, flush func(ctx context.Context, payloads []StreakPayload)) *Coalescer {
	return &Coalescer{
		window:  window,
		flush:   flush,
		pending: make(map[string]StreakPayload),
	}
}

// Add buffers a payload, replacing any pending one for the same user and
// day, and arms the flush timer if it is not already running.
func (c *Coalescer) Add(p StreakPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending[p.UserID+"|"+p.Date] = p
	if c.timer == nil {
		c.timer = time.AfterFunc(c.window, func() {
			c.Flush(context.Background())
		})
	}
}

// Flush writes out everything pending immediately and disarms the timer.
func (c *Coalescer) Flush(ctx context.Context) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	payloads := make([]StreakPayload, 0, len(c.pending))
	for _, p := range c.pending {
		payloads = append(payloads, p)
	}
	c.pending = make(map[string]StreakPayload)
	c.mu.Unlock()

	c.flush(ctx, payloads)
}

// Pending returns how many distinct keys are buffered.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
