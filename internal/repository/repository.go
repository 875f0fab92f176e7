// Package repository defines the persistence contracts the engine depends
// on. The local embedded implementation lives in internal/infra/sqlite and
// the remote mirror in internal/infra/postgres.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

var (
	ErrScheduleNotFound = errors.New("repository: schedule state not found")
	ErrSessionNotFound  = errors.New("repository: session not found")
	ErrOutboxNotFound   = errors.New("repository: outbox entry not found")
)

// ScheduleRepository stores per-user × item SRS records.
type ScheduleRepository interface {
	Upsert(ctx context.Context, state *entities.ScheduleState) error
	Get(ctx context.Context, userID, itemID string) (*entities.ScheduleState, error)
	ListByUser(ctx context.Context, userID string) ([]*entities.ScheduleState, error)
	ListDue(ctx context.Context, userID string, before time.Time, limit int) ([]*entities.ScheduleState, error)
	ListLeeches(ctx context.Context, userID string) ([]*entities.ScheduleState, error)
}

// SessionRepository stores review session state and history.
type SessionRepository interface {
	Save(ctx context.Context, session *entities.ReviewSession) error
	Get(ctx context.Context, sessionID string) (*entities.ReviewSession, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*entities.ReviewSession, error)
}

// OutboxRepository is the durable queue of writes pending delivery to the
// remote mirror. Any component may enqueue; exactly one drain loop consumes.
type OutboxRepository interface {
	Enqueue(ctx context.Context, entry *entities.SyncOutboxEntry) error
	// ListPending returns pending entries whose next attempt is not after
	// the given time, oldest first.
	ListPending(ctx context.Context, before time.Time, limit int) ([]*entities.SyncOutboxEntry, error)
	Update(ctx context.Context, entry *entities.SyncOutboxEntry) error
	Delete(ctx context.Context, opID string) error
	CountByStatus(ctx context.Context) (map[entities.OutboxStatus]int, error)
}
