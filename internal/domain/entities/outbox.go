package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxEntryType classifies what a deferred write carries.
type OutboxEntryType string

const (
	OutboxScheduleUpdate OutboxEntryType = "schedule-update"
	OutboxSessionUpdate  OutboxEntryType = "session-update"
	OutboxStreakUpdate   OutboxEntryType = "streak-update"
)

// OutboxStatus is the delivery state of an outbox entry.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxSyncing   OutboxStatus = "syncing"
	OutboxCompleted OutboxStatus = "completed"
	OutboxFailed    OutboxStatus = "failed" // retry budget exhausted, surfaced to the user
)

// SyncOutboxEntry is a write that could not reach the remote mirror
// synchronously. OpID is the client-generated idempotency key: delivering
// the same OpID twice must be a no-op on the mirror.
type SyncOutboxEntry struct {
	OpID        string
	Type        OutboxEntryType
	UserID      string
	Payload     json.RawMessage
	CreatedAt   time.Time
	Attempts    int
	NextAttempt time.Time
	Status      OutboxStatus
}

// NewOutboxEntry creates a pending entry with a fresh idempotency key.
func NewOutboxEntry(entryType OutboxEntryType, userID string, payload json.RawMessage, now time.Time) *SyncOutboxEntry {
	return &SyncOutboxEntry{
		OpID:        uuid.NewString(),
		Type:        entryType,
		UserID:      userID,
		Payload:     payload,
		CreatedAt:   now,
		NextAttempt: now,
		Status:      OutboxPending,
	}
}
