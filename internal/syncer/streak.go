package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

// StreakTracker folds completed sessions into per-day streak counts and
// forwards them as streak-update ops through a coalescing buffer, so a burst
// of short sessions produces one mirror write. Streak data belongs to the
// gamification collaborator; the engine only counts and forwards.
type StreakTracker struct {
	writer    *Writer
	coalescer *Coalescer

	mu     sync.Mutex
	counts map[string]int // userID|date → completed sessions

	now func() time.Time
}

// NewStreakTracker creates a tracker flushing through the given writer at
// most once per window.
func NewStreakTracker(writer *Writer, window time.Duration) *StreakTracker {
	t := &StreakTracker{
		writer: writer,
		counts: make(map[string]int),
		now:    time.Now,
	}
	t.coalescer = NewCoalescer(window, func(ctx context.Context, payloads []StreakPayload) {
		for _, p := range payloads {
			if err := t.writer.WriteStreak(ctx, p); err != nil {
				// WriteStreak only fails on marshal, which cannot happen for
				// a struct literal; nothing to retry.
				continue
			}
		}
	})
	return t
}

// Run consumes session events until the channel closes or the context ends,
// then flushes what is pending. Wire it to a Bus subscription.
func (t *StreakTracker) Run(ctx context.Context, events <-chan entities.SessionEvent) {
	for {
		select {
		case <-ctx.Done():
			t.coalescer.Flush(context.WithoutCancel(ctx))
			return
		case ev, ok := <-events:
			if !ok {
				t.coalescer.Flush(ctx)
				return
			}
			t.observe(ev)
		}
	}
}

func (t *StreakTracker) observe(ev entities.SessionEvent) {
	if ev.Type != entities.EventSessionCompleted {
		return
	}
	date := ev.At.Format("2006-01-02")
	key := ev.UserID + "|" + date

	t.mu.Lock()
	t.counts[key]++
	count := t.counts[key]
	t.mu.Unlock()

	t.coalescer.Add(StreakPayload{
		UserID:    ev.UserID,
		Date:      date,
		Count:     count,
		UpdatedAt: t.now().UnixMilli(),
	})
}

// Flush forces out anything pending, for shutdown paths.
func (t *StreakTracker) Flush(ctx context.Context) {
	t.coalescer.Flush(ctx)
}
