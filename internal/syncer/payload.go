// Package syncer keeps the local embedded store and the remote mirror
// consistent: writes land locally first and unconditionally, the mirror is
// updated opportunistically, and anything that misses the mirror goes
// through a durable retry outbox.
package syncer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

// Mirror is the remote document store. Apply MUST be idempotent on the
// entry's OpID: duplicate delivery of the same OpID is a no-op.
type Mirror interface {
	Apply(ctx context.Context, entry *entities.SyncOutboxEntry) error
}

// SchedulePayload is the wire form of a schedule-update op.
type SchedulePayload struct {
	ItemID            string  `json:"itemId"`
	UserID            string  `json:"userId"`
	ContentType       string  `json:"contentType"`
	Status            string  `json:"status"`
	EaseFactor        float64 `json:"easeFactor"`
	IntervalDays      int     `json:"intervalDays"`
	Repetitions       int     `json:"repetitions"`
	Lapses            int     `json:"lapses"`
	LearningStepIndex int     `json:"learningStepIndex"`
	LastReviewedAt    int64   `json:"lastReviewedAt"` // epoch-ms
	NextReviewAt      int64   `json:"nextReviewAt"`   // epoch-ms
	UpdatedAt         int64   `json:"updatedAt"`      // epoch-ms
}

// MarshalSchedule encodes a schedule state for the wire.
func MarshalSchedule(s *entities.ScheduleState) (json.RawMessage, error) {
	return json.Marshal(SchedulePayload{
		ItemID:            s.ItemID,
		UserID:            s.UserID,
		ContentType:       string(s.ContentType),
		Status:            string(s.Status),
		EaseFactor:        s.EaseFactor,
		IntervalDays:      s.IntervalDays,
		Repetitions:       s.Repetitions,
		Lapses:            s.Lapses,
		LearningStepIndex: s.LearningStepIndex,
		LastReviewedAt:    s.LastReviewedAt.UnixMilli(),
		NextReviewAt:      s.NextReviewAt.UnixMilli(),
		UpdatedAt:         s.UpdatedAt.UnixMilli(),
	})
}

// UnmarshalSchedule decodes a schedule-update payload.
func UnmarshalSchedule(raw json.RawMessage) (*entities.ScheduleState, error) {
	var p SchedulePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &entities.ScheduleState{
		ItemID:            p.ItemID,
		UserID:            p.UserID,
		ContentType:       entities.ContentType(p.ContentType),
		Status:            entities.ScheduleStatus(p.Status),
		EaseFactor:        p.EaseFactor,
		IntervalDays:      p.IntervalDays,
		Repetitions:       p.Repetitions,
		Lapses:            p.Lapses,
		LearningStepIndex: p.LearningStepIndex,
		LastReviewedAt:    time.UnixMilli(p.LastReviewedAt).UTC(),
		NextReviewAt:      time.UnixMilli(p.NextReviewAt).UTC(),
		UpdatedAt:         time.UnixMilli(p.UpdatedAt).UTC(),
	}, nil
}

// SessionPayload is the wire form of a session-update op. Session history
// is append-only on the mirror.
type SessionPayload struct {
	SessionID    string `json:"sessionId"`
	UserID       string `json:"userId"`
	Mode         string `json:"mode"`
	Status       string `json:"status"`
	CurrentIndex int    `json:"currentIndex"`
	Correct      int    `json:"correct"`
	Incorrect    int    `json:"incorrect"`
	Skipped      int    `json:"skipped"`
	StartedAt    int64  `json:"startedAt"`             // epoch-ms
	CompletedAt  int64  `json:"completedAt,omitempty"` // epoch-ms, zero while running
}

// MarshalSession encodes a session for the wire.
func MarshalSession(s *entities.ReviewSession) (json.RawMessage, error) {
	p := SessionPayload{
		SessionID:    s.ID,
		UserID:       s.UserID,
		Mode:         string(s.Mode),
		Status:       string(s.Status),
		CurrentIndex: s.CurrentIndex,
		Correct:      s.Statistics.Correct,
		Incorrect:    s.Statistics.Incorrect,
		Skipped:      s.Statistics.Skipped,
		StartedAt:    s.StartedAt.UnixMilli(),
	}
	if s.CompletedAt != nil {
		p.CompletedAt = s.CompletedAt.UnixMilli()
	}
	return json.Marshal(p)
}

// StreakPayload is the wire form of a streak-update op. It is merged
// last-write-wins by server timestamp on the mirror; a concurrent increment
// from a second device on the same day can lose under clock skew, which
// matches existing behavior and is deliberately not strengthened here.
type StreakPayload struct {
	UserID    string `json:"userId"`
	Date      string `json:"date"` // YYYY-MM-DD, user-local day
	Count     int    `json:"count"`
	UpdatedAt int64  `json:"updatedAt"` // epoch-ms
}
