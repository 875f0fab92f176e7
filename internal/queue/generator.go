// Package queue builds prioritized, lightly shuffled review queues from the
// persisted schedule population of a user.
package queue

import (
	"context"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
	"github.com/HelyeFab/moshimoshi-sub004/internal/repository"
)

// Below this population size priority scoring runs inline; above it the
// computation is chunked across workers.
const parallelThreshold = 200

// Priority scoring weights. Overdue items always outrank due-today items,
// which outrank new intake.
const (
	overdueBase   = 100.0
	overdueWeight = 5.0 // per day overdue
	dueBase       = 50.0
	easeWeight    = 10.0 // harder items (lower ease) first within due-today
	newBase       = 30.0
	leechFactor   = 0.5 // applied when leeches are deprioritized
)

// Options control one generation pass. Zero values take defaults.
type Options struct {
	SessionSize         int  // zero → 20
	MaxNewItems         int  // new-item intake per session; zero → 5
	DisableNewItems     bool // suppress new intake entirely
	DeprioritizeLeeches bool
	ShuffleWindow       int // max positions an item may move; zero → 3, negative disables
}

// merge fills zero fields from the generator-level defaults before the
// hard-coded fallbacks apply.
func (o Options) merge(d Options) Options {
	if o.SessionSize == 0 {
		o.SessionSize = d.SessionSize
	}
	if o.MaxNewItems == 0 {
		o.MaxNewItems = d.MaxNewItems
	}
	if o.ShuffleWindow == 0 {
		o.ShuffleWindow = d.ShuffleWindow
	}
	return o
}

func (o Options) withDefaults() Options {
	if o.SessionSize == 0 {
		o.SessionSize = 20
	}
	if o.MaxNewItems == 0 {
		o.MaxNewItems = 5
	}
	if o.ShuffleWindow == 0 {
		o.ShuffleWindow = 3
	}
	return o
}

// Result is a generated queue plus whether it was served from cache.
type Result struct {
	Items     []entities.QueueItem
	FromCache bool
}

// GeneratorConfig carries process-level generation settings, typically from
// the application configuration. Zero values take defaults.
type GeneratorConfig struct {
	CacheTTL time.Duration // how long generated queues stay cached; zero → 5m
	Defaults Options       // fallbacks for zero Options fields on Generate
}

// Generator builds session queues. Construct one per process and share it;
// it is safe for concurrent use.
type Generator struct {
	schedules repository.ScheduleRepository
	cache     *resultCache
	defaults  Options
	logger    *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand

	now func() time.Time
}

// NewGenerator creates a Generator with a minutes-scale result cache.
func NewGenerator(schedules repository.ScheduleRepository, logger *zap.Logger, cfg GeneratorConfig) *Generator {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Generator{
		schedules: schedules,
		cache:     newResultCache(ttl),
		defaults:  cfg.Defaults,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// InvalidateUser drops cached queues for the user. Call after any schedule
// mutation.
func (g *Generator) InvalidateUser(userID string) {
	g.cache.invalidateUser(userID)
}

// Generate produces the next session queue for the user. An empty schedule
// population yields an empty queue, not an error.
func (g *Generator) Generate(ctx context.Context, userID string, opts Options) (Result, error) {
	opts = opts.merge(g.defaults).withDefaults()
	now := g.now()

	key := cacheKey(userID, opts)
	if items, ok := g.cache.get(key, now); ok {
		return Result{Items: items, FromCache: true}, nil
	}

	states, err := g.schedules.ListByUser(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if len(states) == 0 {
		return Result{Items: []entities.QueueItem{}}, nil
	}

	scored, err := g.score(ctx, states, opts, now)
	if err != nil {
		return Result{}, err
	}

	items := g.order(scored, opts)

	g.cache.put(key, userID, items, now)
	g.logger.Debug("queue generated",
		zap.String("user_id", userID),
		zap.Int("population", len(states)),
		zap.Int("queue_size", len(items)),
	)
	return Result{Items: items}, nil
}

// score classifies and prioritizes every state. Items not yet due (and not
// new) score zero and are dropped later. Chunks are independent, so large
// populations are fanned out across workers.
func (g *Generator) score(ctx context.Context, states []*entities.ScheduleState, opts Options, now time.Time) ([]entities.QueueItem, error) {
	out := make([]entities.QueueItem, len(states))

	if len(states) <= parallelThreshold {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, s := range states {
			out[i] = scoreOne(s, opts, now)
		}
		return out, nil
	}

	workers := runtime.NumCPU()
	chunk := (len(states) + workers - 1) / workers

	grp, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(states); start += chunk {
		start, end := start, min(start+chunk, len(states))
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				out[i] = scoreOne(states[i], opts, now)
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func scoreOne(s *entities.ScheduleState, opts Options, now time.Time) entities.QueueItem {
	item := entities.QueueItem{
		ItemID:      s.ItemID,
		ContentType: s.ContentType,
		Status:      s.Status,
		IsNew:       s.Status == entities.StatusNew,
	}

	switch {
	case s.Status == entities.StatusNew:
		if !opts.DisableNewItems {
			item.Priority = newBase
		}
	case !s.IsDue(now):
		// not yet due: priority stays zero
	case s.DaysOverdue(now) >= 1:
		item.DaysOverdue = s.DaysOverdue(now)
		item.Priority = overdueBase + overdueWeight*item.DaysOverdue
	default:
		item.Priority = dueBase + easeWeight*(2.5-s.EaseFactor)
	}

	if s.Status == entities.StatusLeech && opts.DeprioritizeLeeches {
		item.Priority *= leechFactor
	}
	return item
}

// order sorts by priority, caps new-item intake, applies the bounded shuffle
// and truncates to the session size.
func (g *Generator) order(scored []entities.QueueItem, opts Options) []entities.QueueItem {
	kept := scored[:0]
	newCount := 0
	for _, item := range scored {
		if item.Priority <= 0 {
			continue
		}
		if item.IsNew {
			if newCount >= opts.MaxNewItems {
				continue
			}
			newCount++
		}
		kept = append(kept, item)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Priority != kept[j].Priority {
			return kept[i].Priority > kept[j].Priority
		}
		return kept[i].ItemID < kept[j].ItemID
	})

	g.smartShuffle(kept, opts.ShuffleWindow)

	if len(kept) > opts.SessionSize {
		kept = kept[:opts.SessionSize]
	}
	out := make([]entities.QueueItem, len(kept))
	copy(out, kept)
	return out
}

// smartShuffle swaps each item with a neighbor at most window positions
// ahead, so the queue is not perfectly sorted but no item strays far from
// its priority rank.
func (g *Generator) smartShuffle(items []entities.QueueItem, window int) {
	if window <= 0 || len(items) < 2 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range items {
		j := i + g.rng.Intn(window+1)
		if j >= len(items) {
			j = len(items) - 1
		}
		items[i], items[j] = items[j], items[i]
	}
}
