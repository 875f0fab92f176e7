package srs

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

func mustScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	s, err := NewScheduler(cfg)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

func TestNewSchedulerDefaults(t *testing.T) {
	s := mustScheduler(t, Config{})
	cfg := s.Config()
	if got := len(cfg.LearningSteps); got != 3 {
		t.Errorf("LearningSteps = %d steps, want 3", got)
	}
	if cfg.StartingEase != 2.5 {
		t.Errorf("StartingEase = %v, want 2.5", cfg.StartingEase)
	}
	if cfg.MinEase != 1.3 {
		t.Errorf("MinEase = %v, want 1.3", cfg.MinEase)
	}
	if cfg.MaxIntervalDays != 365 {
		t.Errorf("MaxIntervalDays = %v, want 365", cfg.MaxIntervalDays)
	}
	if cfg.LeechThreshold != 8 {
		t.Errorf("LeechThreshold = %v, want 8", cfg.LeechThreshold)
	}
}

func TestNewSchedulerRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"negative step", Config{LearningSteps: []time.Duration{-time.Minute}}},
		{"empty steps", Config{LearningSteps: []time.Duration{}}},
		{"ease bounds inverted", Config{MinEase: 2.0, MaxEase: 1.5, StartingEase: 1.8}},
		{"starting ease out of bounds", Config{MinEase: 1.3, MaxEase: 2.5, StartingEase: 3.0}},
		{"graduating interval negative", Config{GraduatingInterval: -1}},
		{"max interval below graduating", Config{GraduatingInterval: 10, MaxIntervalDays: 5}},
		{"leech threshold negative", Config{LeechThreshold: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewScheduler(tc.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestNewState(t *testing.T) {
	s := mustScheduler(t, Config{})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	state := s.NewState("u1", "kana-a", entities.ContentKana, now)

	if state.Status != entities.StatusNew {
		t.Errorf("Status = %v, want new", state.Status)
	}
	if state.EaseFactor != 2.5 {
		t.Errorf("EaseFactor = %v, want 2.5", state.EaseFactor)
	}
	if !state.IsDue(now) {
		t.Error("new state should be immediately due")
	}
}

func TestLadderGraduation(t *testing.T) {
	steps := []time.Duration{5 * time.Minute, 15 * time.Minute, 30 * time.Minute}
	s := mustScheduler(t, Config{LearningSteps: steps})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	state := *s.NewState("u1", "item", entities.ContentVocabulary, now)

	// First correct answer advances to step 1 and waits its duration.
	state = s.Process(state, entities.GradeGood, now)
	if state.Status != entities.StatusLearning {
		t.Fatalf("Status = %v, want learning", state.Status)
	}
	if state.LearningStepIndex != 1 {
		t.Fatalf("LearningStepIndex = %d, want 1", state.LearningStepIndex)
	}
	if got := state.NextReviewAt.Sub(now); got != steps[1] {
		t.Errorf("next review in %v, want %v", got, steps[1])
	}

	// Second correct answer advances to step 2.
	now = now.Add(steps[1])
	state = s.Process(state, entities.GradeGood, now)
	if state.LearningStepIndex != 2 {
		t.Fatalf("LearningStepIndex = %d, want 2", state.LearningStepIndex)
	}

	// Third correct answer graduates.
	now = now.Add(steps[2])
	state = s.Process(state, entities.GradeGood, now)
	if state.Status != entities.StatusReview {
		t.Errorf("Status = %v, want review", state.Status)
	}
	if state.Repetitions != 1 {
		t.Errorf("Repetitions = %d, want 1", state.Repetitions)
	}
	if state.IntervalDays != 1 {
		t.Errorf("IntervalDays = %d, want 1", state.IntervalDays)
	}
	if state.LearningStepIndex != -1 {
		t.Errorf("LearningStepIndex = %d, want -1", state.LearningStepIndex)
	}
	if got := state.NextReviewAt; !got.Equal(now.AddDate(0, 0, 1)) {
		t.Errorf("NextReviewAt = %v, want one day out", got)
	}
}

func TestLadderIncorrectResetsStep(t *testing.T) {
	s := mustScheduler(t, Config{})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	state := *s.NewState("u1", "item", entities.ContentKanji, now)

	state = s.Process(state, entities.GradeGood, now)
	state = s.Process(state, entities.GradeGood, now)
	if state.LearningStepIndex != 2 {
		t.Fatalf("setup: LearningStepIndex = %d, want 2", state.LearningStepIndex)
	}

	state = s.Process(state, entities.GradeAgain, now)
	if state.LearningStepIndex != 0 {
		t.Errorf("LearningStepIndex = %d, want 0 after miss", state.LearningStepIndex)
	}
	if state.Status != entities.StatusLearning {
		t.Errorf("Status = %v, want learning", state.Status)
	}
	if got := state.NextReviewAt.Sub(now); got != 5*time.Minute {
		t.Errorf("next review in %v, want first step 5m", got)
	}
}

func TestReviewIntervalGrowth(t *testing.T) {
	s := mustScheduler(t, Config{})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	state := entities.ScheduleState{
		ItemID: "item", UserID: "u1",
		Status: entities.StatusReview, EaseFactor: 2.5,
		IntervalDays: 4, Repetitions: 2, LearningStepIndex: -1,
	}

	next := s.Process(state, entities.GradeGood, now)
	if next.IntervalDays != 10 { // round(4 × 2.5 × 1.0)
		t.Errorf("IntervalDays = %d, want 10", next.IntervalDays)
	}
	if next.Repetitions != 3 {
		t.Errorf("Repetitions = %d, want 3", next.Repetitions)
	}
	// Input not mutated.
	if state.IntervalDays != 4 {
		t.Errorf("input IntervalDays changed to %d", state.IntervalDays)
	}
}

func TestReviewHardNeverShrinksInterval(t *testing.T) {
	s := mustScheduler(t, Config{})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	state := entities.ScheduleState{
		Status: entities.StatusReview, EaseFactor: 1.3,
		IntervalDays: 20, Repetitions: 4, LearningStepIndex: -1,
	}

	prev := state.IntervalDays
	for i := 0; i < 10; i++ {
		state = s.Process(state, entities.GradeHard, now)
		if state.IntervalDays < prev {
			t.Fatalf("interval shrank from %d to %d on hard answer", prev, state.IntervalDays)
		}
		prev = state.IntervalDays
		now = now.AddDate(0, 0, state.IntervalDays)
	}
}

func TestReviewIntervalCap(t *testing.T) {
	s := mustScheduler(t, Config{MaxIntervalDays: 365})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	state := entities.ScheduleState{
		Status: entities.StatusReview, EaseFactor: 2.5,
		IntervalDays: 300, Repetitions: 9, LearningStepIndex: -1,
	}

	state = s.Process(state, entities.GradeEasy, now)
	if state.IntervalDays != 365 {
		t.Errorf("IntervalDays = %d, want capped at 365", state.IntervalDays)
	}
}

func TestLapseResets(t *testing.T) {
	s := mustScheduler(t, Config{})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	state := entities.ScheduleState{
		Status: entities.StatusReview, EaseFactor: 2.5,
		IntervalDays: 30, Repetitions: 6, LearningStepIndex: -1,
	}

	next := s.Process(state, entities.GradeAgain, now)
	if next.Lapses != 1 {
		t.Errorf("Lapses = %d, want 1", next.Lapses)
	}
	if next.Repetitions != 0 {
		t.Errorf("Repetitions = %d, want 0", next.Repetitions)
	}
	if next.IntervalDays != 0 {
		t.Errorf("IntervalDays = %d, want 0", next.IntervalDays)
	}
	if next.Status != entities.StatusLearning {
		t.Errorf("Status = %v, want learning", next.Status)
	}
	if next.EaseFactor != 2.3 {
		t.Errorf("EaseFactor = %v, want 2.3", next.EaseFactor)
	}
	if next.LearningStepIndex != 0 {
		t.Errorf("LearningStepIndex = %d, want 0", next.LearningStepIndex)
	}
}

func TestLeechFlaggedAtThreshold(t *testing.T) {
	s := mustScheduler(t, Config{LeechThreshold: 3})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	state := entities.ScheduleState{
		Status: entities.StatusReview, EaseFactor: 2.5,
		IntervalDays: 10, Repetitions: 3, LearningStepIndex: -1,
	}

	for i := 0; i < 3; i++ {
		// Re-graduate then lapse again.
		state.Status = entities.StatusReview
		state.IntervalDays = 10
		state.LearningStepIndex = -1
		state = s.Process(state, entities.GradeAgain, now)
	}

	if state.Lapses != 3 {
		t.Fatalf("Lapses = %d, want 3", state.Lapses)
	}
	if state.Status != entities.StatusLeech {
		t.Errorf("Status = %v, want leech at threshold", state.Status)
	}
}

func TestLeechStaysScheduled(t *testing.T) {
	s := mustScheduler(t, Config{LeechThreshold: 1})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	state := entities.ScheduleState{
		Status: entities.StatusReview, EaseFactor: 2.0,
		IntervalDays: 5, Repetitions: 2, LearningStepIndex: -1,
	}

	// Lapse flags the leech and puts it back on the ladder.
	state = s.Process(state, entities.GradeAgain, now)
	if state.Status != entities.StatusLeech {
		t.Fatalf("Status = %v, want leech", state.Status)
	}
	if state.NextReviewAt.IsZero() {
		t.Fatal("leech must still be scheduled")
	}

	// It climbs the ladder and graduates, keeping the flag.
	for i := 0; i < 3; i++ {
		now = state.NextReviewAt
		state = s.Process(state, entities.GradeGood, now)
	}
	if state.Status != entities.StatusLeech {
		t.Errorf("Status = %v, leech flag should stick through graduation", state.Status)
	}
	if state.IntervalDays != 1 {
		t.Errorf("IntervalDays = %d, want graduating interval 1", state.IntervalDays)
	}
	if state.Repetitions != 1 {
		t.Errorf("Repetitions = %d, want 1", state.Repetitions)
	}
}

func TestEaseStaysBoundedUnderRandomSequences(t *testing.T) {
	s := mustScheduler(t, Config{})
	grades := []entities.Grade{
		entities.GradeAgain, entities.GradeHard, entities.GradeGood, entities.GradeEasy,
	}
	rng := rand.New(rand.NewSource(42))
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	state := *s.NewState("u1", "item", entities.ContentSentence, now)

	for i := 0; i < 500; i++ {
		state = s.Process(state, grades[rng.Intn(len(grades))], now)
		if state.EaseFactor < 1.3 || state.EaseFactor > 2.5 {
			t.Fatalf("step %d: EaseFactor %v out of [1.3, 2.5]", i, state.EaseFactor)
		}
		if math.IsNaN(state.EaseFactor) {
			t.Fatalf("step %d: EaseFactor is NaN", i)
		}
		if state.NextReviewAt.Before(state.LastReviewedAt) {
			t.Fatalf("step %d: NextReviewAt before LastReviewedAt", i)
		}
		if state.IntervalDays < 0 || state.IntervalDays > 365 {
			t.Fatalf("step %d: IntervalDays %d out of range", i, state.IntervalDays)
		}
		now = state.NextReviewAt.Add(time.Minute)
	}
}

func TestGradeFrom(t *testing.T) {
	cases := []struct {
		correct    bool
		nearMiss   bool
		confidence entities.Confidence
		want       entities.Grade
	}{
		{false, false, entities.ConfidenceEasy, entities.GradeAgain},
		{true, true, entities.ConfidenceEasy, entities.GradeHard},
		{true, false, entities.ConfidenceHard, entities.GradeHard},
		{true, false, "", entities.GradeGood},
		{true, false, entities.ConfidenceGood, entities.GradeGood},
		{true, false, entities.ConfidenceEasy, entities.GradeEasy},
	}
	for _, tc := range cases {
		got := entities.GradeFrom(tc.correct, tc.nearMiss, tc.confidence)
		if got != tc.want {
			t.Errorf("GradeFrom(%v, %v, %q) = %v, want %v",
				tc.correct, tc.nearMiss, tc.confidence, got, tc.want)
		}
	}
}
