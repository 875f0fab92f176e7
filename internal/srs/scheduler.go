// Package srs implements the spaced-repetition scheduler: a pure function
// from (schedule state, graded answer, time) to the next schedule state.
// It performs no I/O and is safe to call from any goroutine.
package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

// Config holds the scheduling parameters. Zero values are replaced with
// defaults by NewScheduler; out-of-range values return an error.
type Config struct {
	LearningSteps      []time.Duration // nil → [5m, 30m, 2h]; the sub-day ladder
	GraduatingInterval int             // days after the ladder is exhausted; zero → 1
	StartingEase       float64         // zero → 2.5
	MinEase            float64         // zero → 1.3
	MaxEase            float64         // zero → 2.5
	EasyBonus          float64         // ease nudge on "easy"; zero → 0.15
	HardPenalty        float64         // ease nudge on "hard"; zero → 0.15
	LapsePenalty       float64         // ease nudge on a lapse; zero → 0.2
	HardMultiplier     float64         // interval multiplier on "hard"; zero → 0.8
	EasyMultiplier     float64         // interval multiplier on "easy"; zero → 1.3
	MaxIntervalDays    int             // zero → 365
	LeechThreshold     int             // lapses before the leech flag; zero → 8
}

func (c Config) withDefaults() Config {
	if c.LearningSteps == nil {
		c.LearningSteps = []time.Duration{5 * time.Minute, 30 * time.Minute, 2 * time.Hour}
	}
	if c.GraduatingInterval == 0 {
		c.GraduatingInterval = 1
	}
	if c.StartingEase == 0 {
		c.StartingEase = 2.5
	}
	if c.MinEase == 0 {
		c.MinEase = 1.3
	}
	if c.MaxEase == 0 {
		c.MaxEase = 2.5
	}
	if c.EasyBonus == 0 {
		c.EasyBonus = 0.15
	}
	if c.HardPenalty == 0 {
		c.HardPenalty = 0.15
	}
	if c.LapsePenalty == 0 {
		c.LapsePenalty = 0.2
	}
	if c.HardMultiplier == 0 {
		c.HardMultiplier = 0.8
	}
	if c.EasyMultiplier == 0 {
		c.EasyMultiplier = 1.3
	}
	if c.MaxIntervalDays == 0 {
		c.MaxIntervalDays = 365
	}
	if c.LeechThreshold == 0 {
		c.LeechThreshold = 8
	}
	return c
}

func (c Config) validate() error {
	for i, step := range c.LearningSteps {
		if step <= 0 {
			return fmt.Errorf("srs: learning step %d must be positive, got %v", i, step)
		}
	}
	if len(c.LearningSteps) == 0 {
		return fmt.Errorf("srs: at least one learning step is required")
	}
	if c.MinEase <= 0 || c.MaxEase < c.MinEase {
		return fmt.Errorf("srs: ease bounds [%f, %f] invalid", c.MinEase, c.MaxEase)
	}
	if c.StartingEase < c.MinEase || c.StartingEase > c.MaxEase {
		return fmt.Errorf("srs: starting ease %f outside [%f, %f]", c.StartingEase, c.MinEase, c.MaxEase)
	}
	if c.GraduatingInterval < 1 {
		return fmt.Errorf("srs: graduating interval %d must be at least 1 day", c.GraduatingInterval)
	}
	if c.HardMultiplier <= 0 || c.EasyMultiplier < 1 {
		return fmt.Errorf("srs: grade multipliers (%f, %f) invalid", c.HardMultiplier, c.EasyMultiplier)
	}
	if c.MaxIntervalDays < c.GraduatingInterval {
		return fmt.Errorf("srs: max interval %d below graduating interval %d", c.MaxIntervalDays, c.GraduatingInterval)
	}
	if c.LeechThreshold < 1 {
		return fmt.Errorf("srs: leech threshold %d must be at least 1", c.LeechThreshold)
	}
	return nil
}

// Scheduler computes schedule transitions. It holds only configuration and
// is safe for concurrent use.
type Scheduler struct {
	cfg Config
}

// NewScheduler creates a Scheduler, filling zero config fields with defaults.
func NewScheduler(cfg Config) (*Scheduler, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Scheduler{cfg: cfg}, nil
}

// Config returns the effective configuration after defaulting.
func (s *Scheduler) Config() Config { return s.cfg }

// NewState creates the schedule record for an item's first exposure.
func (s *Scheduler) NewState(userID, itemID string, ctype entities.ContentType, now time.Time) *entities.ScheduleState {
	return entities.NewScheduleState(userID, itemID, ctype, s.cfg.StartingEase, now)
}

// Process applies one graded answer to the state and returns the next state.
// The input is not mutated.
func (s *Scheduler) Process(state entities.ScheduleState, grade entities.Grade, now time.Time) entities.ScheduleState {
	next := state
	next.LastReviewedAt = now
	next.UpdatedAt = now

	if s.inLadder(state) {
		s.processLadder(&next, grade, now)
	} else {
		s.processReview(&next, grade, now)
	}

	s.clamp(&next)
	return next
}

// inLadder reports whether the state is in the short-interval ladder rather
// than day-scale review. Leeches keep scheduling: a relapsed leech walks the
// ladder again (step index ≥ 0), a graduated one reviews normally.
func (s *Scheduler) inLadder(state entities.ScheduleState) bool {
	switch state.Status {
	case entities.StatusNew, entities.StatusLearning:
		return true
	case entities.StatusLeech:
		return state.LearningStepIndex >= 0 && state.IntervalDays == 0
	default:
		return false
	}
}

func (s *Scheduler) processLadder(state *entities.ScheduleState, grade entities.Grade, now time.Time) {
	if state.Status == entities.StatusNew {
		state.Status = entities.StatusLearning
	}

	if !grade.Correct() {
		state.LearningStepIndex = 0
		state.NextReviewAt = now.Add(s.cfg.LearningSteps[0])
		s.flagLeech(state)
		return
	}

	step := state.LearningStepIndex + 1
	if step >= len(s.cfg.LearningSteps) {
		// Graduation: enter day-scale review. A leech stays flagged.
		if state.Status != entities.StatusLeech {
			state.Status = entities.StatusReview
		}
		state.LearningStepIndex = -1
		state.IntervalDays = s.cfg.GraduatingInterval
		state.Repetitions = 1
		state.NextReviewAt = now.AddDate(0, 0, state.IntervalDays)
		return
	}

	state.LearningStepIndex = step
	state.NextReviewAt = now.Add(s.cfg.LearningSteps[step])
}

func (s *Scheduler) processReview(state *entities.ScheduleState, grade entities.Grade, now time.Time) {
	if !grade.Correct() {
		// Lapse: regress to the ladder, decay ease, reset repetitions.
		state.Lapses++
		state.Repetitions = 0
		state.IntervalDays = 0
		state.EaseFactor -= s.cfg.LapsePenalty
		state.Status = entities.StatusLearning
		state.LearningStepIndex = 0
		state.NextReviewAt = now.Add(s.cfg.LearningSteps[0])
		s.flagLeech(state)
		return
	}

	multiplier := 1.0
	switch grade {
	case entities.GradeHard:
		multiplier = s.cfg.HardMultiplier
		state.EaseFactor -= s.cfg.HardPenalty
	case entities.GradeEasy:
		multiplier = s.cfg.EasyMultiplier
		state.EaseFactor += s.cfg.EasyBonus
	}
	state.EaseFactor = clampFloat(state.EaseFactor, s.cfg.MinEase, s.cfg.MaxEase)

	interval := int(math.Round(float64(state.IntervalDays) * state.EaseFactor * multiplier))
	// Growth is monotonic for consecutive correct answers, even on "hard".
	if interval < state.IntervalDays {
		interval = state.IntervalDays
	}
	if interval < 1 {
		interval = 1
	}
	if interval > s.cfg.MaxIntervalDays {
		interval = s.cfg.MaxIntervalDays
	}

	state.IntervalDays = interval
	state.Repetitions++
	state.NextReviewAt = now.AddDate(0, 0, interval)
}

func (s *Scheduler) flagLeech(state *entities.ScheduleState) {
	if state.Lapses >= s.cfg.LeechThreshold {
		state.Status = entities.StatusLeech
	}
}

// clamp enforces the scheduling invariants on the outgoing state. A violation
// here means bounded inputs produced an unreachable value; it is corrected
// rather than propagated.
func (s *Scheduler) clamp(state *entities.ScheduleState) {
	state.EaseFactor = clampFloat(state.EaseFactor, s.cfg.MinEase, s.cfg.MaxEase)
	if math.IsNaN(state.EaseFactor) {
		state.EaseFactor = s.cfg.StartingEase
	}
	if state.IntervalDays < 0 {
		state.IntervalDays = 0
	}
	if state.Repetitions < 0 {
		state.Repetitions = 0
	}
	if state.NextReviewAt.Before(state.LastReviewedAt) {
		state.NextReviewAt = state.LastReviewedAt
	}
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
