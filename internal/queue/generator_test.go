package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

// fakeScheduleRepo serves a fixed population and counts list calls.
type fakeScheduleRepo struct {
	states    []*entities.ScheduleState
	listCalls int
}

func (f *fakeScheduleRepo) Upsert(ctx context.Context, state *entities.ScheduleState) error {
	return nil
}

func (f *fakeScheduleRepo) Get(ctx context.Context, userID, itemID string) (*entities.ScheduleState, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) ListByUser(ctx context.Context, userID string) ([]*entities.ScheduleState, error) {
	f.listCalls++
	return f.states, nil
}

func (f *fakeScheduleRepo) ListDue(ctx context.Context, userID string, before time.Time, limit int) ([]*entities.ScheduleState, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) ListLeeches(ctx context.Context, userID string) ([]*entities.ScheduleState, error) {
	return nil, nil
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestGenerator(repo *fakeScheduleRepo) *Generator {
	g := NewGenerator(repo, zap.NewNop(), GeneratorConfig{})
	g.now = func() time.Time { return testNow }
	return g
}

func reviewState(itemID string, nextReview time.Time, ease float64) *entities.ScheduleState {
	return &entities.ScheduleState{
		ItemID: itemID, UserID: "u1",
		ContentType: entities.ContentVocabulary,
		Status:      entities.StatusReview,
		EaseFactor:  ease, IntervalDays: 5, Repetitions: 2,
		LearningStepIndex: -1,
		NextReviewAt:      nextReview,
	}
}

func newState(itemID string) *entities.ScheduleState {
	return entities.NewScheduleState("u1", itemID, entities.ContentKana, 2.5, testNow)
}

func TestGenerateEmptyPopulation(t *testing.T) {
	g := newTestGenerator(&fakeScheduleRepo{})

	res, err := g.Generate(context.Background(), "u1", Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.False(t, res.FromCache)
}

func TestGenerateOverdueOutranksDueAndNew(t *testing.T) {
	repo := &fakeScheduleRepo{states: []*entities.ScheduleState{
		newState("brand-new"),
		reviewState("due-today", testNow.Add(-time.Hour), 2.5),
		reviewState("overdue", testNow.AddDate(0, 0, -4), 2.5),
	}}
	g := newTestGenerator(repo)

	res, err := g.Generate(context.Background(), "u1", Options{ShuffleWindow: -1})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "overdue", res.Items[0].ItemID)
	assert.Equal(t, "due-today", res.Items[1].ItemID)
	assert.Equal(t, "brand-new", res.Items[2].ItemID)
	assert.InDelta(t, 4.0, res.Items[0].DaysOverdue, 0.1)
}

func TestGenerateHarderItemsFirstWithinDueToday(t *testing.T) {
	repo := &fakeScheduleRepo{states: []*entities.ScheduleState{
		reviewState("easy-item", testNow.Add(-time.Hour), 2.5),
		reviewState("hard-item", testNow.Add(-time.Hour), 1.3),
	}}
	g := newTestGenerator(repo)

	res, err := g.Generate(context.Background(), "u1", Options{ShuffleWindow: -1})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "hard-item", res.Items[0].ItemID)
}

func TestGenerateNotDueExcluded(t *testing.T) {
	repo := &fakeScheduleRepo{states: []*entities.ScheduleState{
		reviewState("future", testNow.AddDate(0, 0, 3), 2.5),
		reviewState("due", testNow.Add(-time.Hour), 2.5),
	}}
	g := newTestGenerator(repo)

	res, err := g.Generate(context.Background(), "u1", Options{ShuffleWindow: -1})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "due", res.Items[0].ItemID)
}

func TestGenerateNewItemCap(t *testing.T) {
	var states []*entities.ScheduleState
	for i := 0; i < 10; i++ {
		states = append(states, newState(fmt.Sprintf("new-%02d", i)))
	}
	g := newTestGenerator(&fakeScheduleRepo{states: states})

	res, err := g.Generate(context.Background(), "u1", Options{MaxNewItems: 3, ShuffleWindow: -1})
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
	for _, item := range res.Items {
		assert.True(t, item.IsNew)
	}
}

func TestGenerateDisableNewItems(t *testing.T) {
	repo := &fakeScheduleRepo{states: []*entities.ScheduleState{
		newState("brand-new"),
		reviewState("due", testNow.Add(-time.Hour), 2.5),
	}}
	g := newTestGenerator(repo)

	res, err := g.Generate(context.Background(), "u1", Options{DisableNewItems: true, ShuffleWindow: -1})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "due", res.Items[0].ItemID)
}

func TestGenerateLeechDeprioritized(t *testing.T) {
	leech := reviewState("leech", testNow.Add(-time.Hour), 2.5)
	leech.Status = entities.StatusLeech
	repo := &fakeScheduleRepo{states: []*entities.ScheduleState{
		leech,
		reviewState("plain", testNow.Add(-time.Hour), 2.5),
	}}
	g := newTestGenerator(repo)

	res, err := g.Generate(context.Background(), "u1", Options{DeprioritizeLeeches: true, ShuffleWindow: -1})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "plain", res.Items[0].ItemID)
	assert.Equal(t, "leech", res.Items[1].ItemID)
}

func TestGenerateSessionSizeTruncation(t *testing.T) {
	var states []*entities.ScheduleState
	for i := 0; i < 50; i++ {
		states = append(states, reviewState(fmt.Sprintf("item-%02d", i), testNow.Add(-time.Hour), 2.0))
	}
	g := newTestGenerator(&fakeScheduleRepo{states: states})

	res, err := g.Generate(context.Background(), "u1", Options{SessionSize: 10})
	require.NoError(t, err)
	assert.Len(t, res.Items, 10)
}

func TestGenerateCacheHit(t *testing.T) {
	repo := &fakeScheduleRepo{states: []*entities.ScheduleState{
		reviewState("due", testNow.Add(-time.Hour), 2.5),
	}}
	g := newTestGenerator(repo)
	opts := Options{}

	first, err := g.Generate(context.Background(), "u1", opts)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := g.Generate(context.Background(), "u1", opts)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, 1, repo.listCalls, "cached result must not hit the repository")
}

func TestGenerateCacheKeyedByOptions(t *testing.T) {
	repo := &fakeScheduleRepo{states: []*entities.ScheduleState{
		reviewState("due", testNow.Add(-time.Hour), 2.5),
	}}
	g := newTestGenerator(repo)

	_, err := g.Generate(context.Background(), "u1", Options{SessionSize: 10})
	require.NoError(t, err)
	res, err := g.Generate(context.Background(), "u1", Options{SessionSize: 15})
	require.NoError(t, err)
	assert.False(t, res.FromCache, "different options must not share a cache entry")
	assert.Equal(t, 2, repo.listCalls)
}

func TestGenerateCacheExpiry(t *testing.T) {
	repo := &fakeScheduleRepo{states: []*entities.ScheduleState{
		reviewState("due", testNow.Add(-time.Hour), 2.5),
	}}
	g := newTestGenerator(repo)

	_, err := g.Generate(context.Background(), "u1", Options{})
	require.NoError(t, err)

	g.now = func() time.Time { return testNow.Add(6 * time.Minute) }
	res, err := g.Generate(context.Background(), "u1", Options{})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
}

func TestGenerateConfiguredCacheTTL(t *testing.T) {
	repo := &fakeScheduleRepo{states: []*entities.ScheduleState{
		reviewState("due", testNow.Add(-time.Hour), 2.5),
	}}
	g := NewGenerator(repo, zap.NewNop(), GeneratorConfig{CacheTTL: time.Minute})
	g.now = func() time.Time { return testNow }

	_, err := g.Generate(context.Background(), "u1", Options{})
	require.NoError(t, err)

	// Still inside the configured minute.
	g.now = func() time.Time { return testNow.Add(50 * time.Second) }
	res, err := g.Generate(context.Background(), "u1", Options{})
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	// Past it, but well inside the default five minutes.
	g.now = func() time.Time { return testNow.Add(70 * time.Second) }
	res, err = g.Generate(context.Background(), "u1", Options{})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
}

func TestGenerateConfiguredDefaults(t *testing.T) {
	var states []*entities.ScheduleState
	for i := 0; i < 50; i++ {
		states = append(states, reviewState(fmt.Sprintf("item-%02d", i), testNow.Add(-time.Hour), 2.0))
	}
	g := NewGenerator(&fakeScheduleRepo{states: states}, zap.NewNop(), GeneratorConfig{
		Defaults: Options{SessionSize: 8},
	})
	g.now = func() time.Time { return testNow }

	// Zero options fall back to the configured session size, not the
	// built-in 20.
	res, err := g.Generate(context.Background(), "u1", Options{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 8)

	// An explicit option still wins over the configured default.
	res, err = g.Generate(context.Background(), "u1", Options{SessionSize: 5})
	require.NoError(t, err)
	assert.Len(t, res.Items, 5)
}

func TestInvalidateUser(t *testing.T) {
	repo := &fakeScheduleRepo{states: []*entities.ScheduleState{
		reviewState("due", testNow.Add(-time.Hour), 2.5),
	}}
	g := newTestGenerator(repo)

	_, err := g.Generate(context.Background(), "u1", Options{})
	require.NoError(t, err)

	g.InvalidateUser("u1")

	res, err := g.Generate(context.Background(), "u1", Options{})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 2, repo.listCalls)
}

func TestGenerateParallelMatchesSerial(t *testing.T) {
	// Well above the parallel threshold; the result set must be identical
	// regardless of the scoring path.
	var states []*entities.ScheduleState
	for i := 0; i < 1000; i++ {
		states = append(states, reviewState(fmt.Sprintf("item-%04d", i), testNow.AddDate(0, 0, -(i%7)), 2.0))
	}
	g := newTestGenerator(&fakeScheduleRepo{states: states})

	res, err := g.Generate(context.Background(), "u1", Options{SessionSize: 1000, ShuffleWindow: -1})
	require.NoError(t, err)
	require.Len(t, res.Items, 1000)
	for i := 1; i < len(res.Items); i++ {
		assert.GreaterOrEqual(t, res.Items[i-1].Priority, res.Items[i].Priority,
			"priorities must be non-increasing at position %d", i)
	}
}

func TestSmartShuffleKeepsSetAndFront(t *testing.T) {
	var states []*entities.ScheduleState
	for i := 0; i < 30; i++ {
		states = append(states, reviewState(fmt.Sprintf("item-%02d", i), testNow.AddDate(0, 0, -i), 2.0))
	}
	g := newTestGenerator(&fakeScheduleRepo{states: states})

	sorted, err := g.Generate(context.Background(), "u1", Options{SessionSize: 30, ShuffleWindow: -1})
	require.NoError(t, err)
	g.InvalidateUser("u1")
	shuffled, err := g.Generate(context.Background(), "u1", Options{SessionSize: 30, ShuffleWindow: 3})
	require.NoError(t, err)

	// Same membership.
	ids := func(items []entities.QueueItem) map[string]bool {
		m := make(map[string]bool, len(items))
		for _, it := range items {
			m[it.ItemID] = true
		}
		return m
	}
	assert.Equal(t, ids(sorted.Items), ids(shuffled.Items))

	// The front slot can only come from the top of the sorted order.
	front := map[string]bool{}
	for _, it := range sorted.Items[:4] {
		front[it.ItemID] = true
	}
	assert.True(t, front[shuffled.Items[0].ItemID],
		"front item %s strayed further than the shuffle window", shuffled.Items[0].ItemID)
}
