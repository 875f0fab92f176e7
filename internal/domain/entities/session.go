package entities

import (
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// SessionStatus is the lifecycle state of a review session.
type SessionStatus string

const (
	SessionIdle      SessionStatus = "idle"
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// SessionStatistics are the running counters of an in-progress session.
type SessionStatistics struct {
	Correct       int
	Incorrect     int
	Skipped       int
	TotalTimeMS   int64 // summed response time
	CurrentStreak int   // consecutive correct answers within the session
	BestStreak    int
}

// RecordAnswer folds one answer into the counters.
func (st *SessionStatistics) RecordAnswer(correct bool, responseTime time.Duration) {
	st.TotalTimeMS += responseTime.Milliseconds()
	if correct {
		st.Correct++
		st.CurrentStreak++
		if st.CurrentStreak > st.BestStreak {
			st.BestStreak = st.CurrentStreak
		}
		return
	}
	st.Incorrect++
	st.CurrentStreak = 0
}

// Answered returns the number of graded answers so far.
func (st *SessionStatistics) Answered() int {
	return st.Correct + st.Incorrect
}

// ReviewSession is one in-progress or completed review pass over a queue.
type ReviewSession struct {
	ID           string
	UserID       string
	Mode         ReviewMode
	Queue        []QueueItem // immutable snapshot taken at start
	CurrentIndex int
	Status       SessionStatus
	Statistics   SessionStatistics
	StartedAt    time.Time
	CompletedAt  *time.Time
}

// NewReviewSession creates an active session over the given queue snapshot.
func NewReviewSession(userID string, mode ReviewMode, queue []QueueItem, now time.Time) *ReviewSession {
	return &ReviewSession{
		ID:        shortuuid.New(),
		UserID:    userID,
		Mode:      mode,
		Queue:     queue,
		Status:    SessionActive,
		StartedAt: now,
	}
}

// Current returns the queue item at the cursor, or nil when exhausted.
func (s *ReviewSession) Current() *QueueItem {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Queue) {
		return nil
	}
	return &s.Queue[s.CurrentIndex]
}

// Remaining returns how many items have not been answered yet.
func (s *ReviewSession) Remaining() int {
	if s.CurrentIndex >= len(s.Queue) {
		return 0
	}
	return len(s.Queue) - s.CurrentIndex
}

// Complete marks the session finished.
func (s *ReviewSession) Complete(now time.Time) {
	s.Status = SessionCompleted
	s.CompletedAt = &now
}

// SessionSummary is the aggregate produced when a session completes.
type SessionSummary struct {
	SessionID         string
	UserID            string
	Mode              ReviewMode
	TotalItems        int
	Correct           int
	Incorrect         int
	Skipped           int
	Accuracy          float64 // 0 when nothing was answered
	AvgResponseTimeMS int64
	BestStreak        int
	ByContentType     map[ContentType]TypeBreakdown
	Duration          time.Duration
}

// TypeBreakdown is the per-content-type slice of a session summary.
type TypeBreakdown struct {
	Total   int
	Correct int
}
