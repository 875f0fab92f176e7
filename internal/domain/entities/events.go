package entities

import "time"

// SessionEventType labels events emitted by the session manager.
type SessionEventType string

const (
	EventItemAnswered        SessionEventType = "item-answered"
	EventSessionCompleted    SessionEventType = "session-completed"
	EventAchievementUnlocked SessionEventType = "achievement-unlocked"
)

// SessionEvent is published on the session event stream. The engine emits
// these for external collaborators (UI, gamification); it owns no reward
// logic itself.
type SessionEvent struct {
	Type        SessionEventType
	SessionID   string
	UserID      string
	ItemID      string          // set for item-answered
	Correct     bool            // set for item-answered
	Achievement string          // set for achievement-unlocked
	Summary     *SessionSummary // set for session-completed
	At          time.Time
}
