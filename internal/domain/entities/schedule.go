package entities

import (
	"math"
	"time"
)

// ScheduleStatus is the SRS lifecycle phase of an item.
type ScheduleStatus string

const (
	StatusNew      ScheduleStatus = "new"      // never answered
	StatusLearning ScheduleStatus = "learning" // in the short-interval ladder
	StatusReview   ScheduleStatus = "review"   // graduated, day-scale intervals
	StatusLeech    ScheduleStatus = "leech"    // repeated lapses, flagged but still scheduled
)

// Grade is the graded outcome of one answer. Again means incorrect; the
// others are correct with increasing reported confidence.
type Grade string

const (
	GradeAgain Grade = "again"
	GradeHard  Grade = "hard"
	GradeGood  Grade = "good"
	GradeEasy  Grade = "easy"
)

// Correct reports whether the grade counts as a correct answer.
func (g Grade) Correct() bool { return g != GradeAgain }

// Confidence is the learner's self-reported confidence on a correct answer.
// Empty means unreported.
type Confidence string

const (
	ConfidenceHard Confidence = "hard"
	ConfidenceGood Confidence = "good"
	ConfidenceEasy Confidence = "easy"
)

// GradeFrom maps an answer outcome and optional confidence to a Grade.
// Incorrect answers always grade Again; accepted near-misses cap at Hard.
func GradeFrom(correct, nearMiss bool, confidence Confidence) Grade {
	if !correct {
		return GradeAgain
	}
	if nearMiss {
		return GradeHard
	}
	switch confidence {
	case ConfidenceHard:
		return GradeHard
	case ConfidenceEasy:
		return GradeEasy
	default:
		return GradeGood
	}
}

// ScheduleState is the persistent SRS record for one user × item pair.
// It is mutated exclusively by the scheduler; records are never deleted,
// only transitioned between statuses.
type ScheduleState struct {
	ItemID            string
	UserID            string
	ContentType       ContentType
	Status            ScheduleStatus
	EaseFactor        float64
	IntervalDays      int
	Repetitions       int
	Lapses            int
	LearningStepIndex int // -1 once graduated out of the ladder
	LastReviewedAt    time.Time
	NextReviewAt      time.Time
	UpdatedAt         time.Time
}

// NewScheduleState creates the record for an item's first exposure.
// The item is immediately due.
func NewScheduleState(userID, itemID string, ctype ContentType, startingEase float64, now time.Time) *ScheduleState {
	return &ScheduleState{
		ItemID:         itemID,
		UserID:         userID,
		ContentType:    ctype,
		Status:         StatusNew,
		EaseFactor:     startingEase,
		LastReviewedAt: now,
		NextReviewAt:   now,
		UpdatedAt:      now,
	}
}

// IsDue reports whether the item should be reviewed at the given time.
func (s *ScheduleState) IsDue(now time.Time) bool {
	return !s.NextReviewAt.After(now)
}

// DaysOverdue returns how many days past due the item is, 0 when not due.
func (s *ScheduleState) DaysOverdue(now time.Time) float64 {
	if !s.IsDue(now) {
		return 0
	}
	return math.Max(0, now.Sub(s.NextReviewAt).Hours()/24)
}

// Mastered reports whether the item is considered learned well enough to
// count toward completion stats: enough successful repetitions and a
// multi-week interval.
func (s *ScheduleState) Mastered() bool {
	return s.Status == StatusReview && s.Repetitions >= 5 && s.IntervalDays >= 21
}
