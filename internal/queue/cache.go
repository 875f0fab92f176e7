package queue

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

// resultCache is a short-lived cache of generated queues keyed by
// (userID, options hash). Any schedule mutation for a user invalidates all
// of that user's entries.
type resultCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	byUser  map[string][]string // userID → keys, for invalidation
}

type cacheEntry struct {
	items     []entities.QueueItem
	expiresAt time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		byUser:  make(map[string][]string),
	}
}

func cacheKey(userID string, opts Options) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%t|%t|%d",
		userID, opts.SessionSize, opts.MaxNewItems, opts.DisableNewItems, opts.DeprioritizeLeeches, opts.ShuffleWindow)))
	return userID + ":" + hex.EncodeToString(sum[:])
}

func (c *resultCache) get(key string, now time.Time) ([]entities.QueueItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || now.After(entry.expiresAt) {
		return nil, false
	}
	out := make([]entities.QueueItem, len(entry.items))
	copy(out, entry.items)
	return out, true
}

func (c *resultCache) put(key, userID string, items []entities.QueueItem, now time.Time) {
	stored := make([]entities.QueueItem, len(items))
	copy(stored, items)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{items: stored, expiresAt: now.Add(c.ttl)}
	c.byUser[userID] = append(c.byUser[userID], key)
}

func (c *resultCache) invalidateUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.byUser[userID] {
		delete(c.entries, key)
	}
	delete(c.byUser, userID)
}
