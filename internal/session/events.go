package session

import (
	"sync"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

// Bus is the session event stream. The manager publishes lifecycle events;
// external collaborators (UI, gamification) subscribe. Gamification may also
// publish achievement-unlocked events back onto the stream — the engine
// itself owns no reward logic. Delivery is non-blocking: a subscriber that
// falls behind misses events rather than stalling the review loop.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan entities.SessionEvent
	next int
}

// NewBus creates an event bus with no subscribers.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan entities.SessionEvent)}
}

// Subscribe registers a subscriber with the given channel buffer and returns
// the receive channel plus an unsubscribe function.
func (b *Bus) Subscribe(buffer int) (<-chan entities.SessionEvent, func()) {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan entities.SessionEvent, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(event entities.SessionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
