package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
	"github.com/HelyeFab/moshimoshi-sub004/internal/repository"
)

// Writer is the dual-write path. Every write is applied to the local store
// synchronously and unconditionally; that is the durability boundary and the
// read-your-own-writes path. Mirroring is best-effort: an immediate attempt
// with a timeout, falling back to the outbox. A nil mirror (free tier)
// disables mirroring entirely.
type Writer struct {
	schedules repository.ScheduleRepository
	sessions  repository.SessionRepository
	outbox    repository.OutboxRepository
	mirror    Mirror
	logger    *zap.Logger

	timeout time.Duration
	online  atomic.Bool
	now     func() time.Time
}

// NewWriter creates a Writer. mirror may be nil for local-only operation.
// timeout bounds each immediate mirror attempt; zero means 5s.
func NewWriter(
	schedules repository.ScheduleRepository,
	sessions repository.SessionRepository,
	outbox repository.OutboxRepository,
	mirror Mirror,
	logger *zap.Logger,
	timeout time.Duration,
) *Writer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	w := &Writer{
		schedules: schedules,
		sessions:  sessions,
		outbox:    outbox,
		mirror:    mirror,
		logger:    logger,
		timeout:   timeout,
		now:       time.Now,
	}
	w.online.Store(true)
	return w
}

// SetOnline records the current connectivity state. While offline, mirror
// attempts are skipped and writes go straight to the outbox.
func (w *Writer) SetOnline(online bool) {
	w.online.Store(online)
}

// WriteSchedule persists a schedule state locally and mirrors it.
func (w *Writer) WriteSchedule(ctx context.Context, state *entities.ScheduleState) error {
	if err := w.schedules.Upsert(ctx, state); err != nil {
		return fmt.Errorf("local schedule write: %w", err)
	}

	payload, err := MarshalSchedule(state)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	w.mirrorOrEnqueue(ctx, entities.OutboxScheduleUpdate, state.UserID, payload)
	return nil
}

// WriteSession persists session state locally and mirrors it.
func (w *Writer) WriteSession(ctx context.Context, session *entities.ReviewSession) error {
	if err := w.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("local session write: %w", err)
	}

	payload, err := MarshalSession(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	w.mirrorOrEnqueue(ctx, entities.OutboxSessionUpdate, session.UserID, payload)
	return nil
}

// WriteStreak mirrors a streak update. Streak data is owned by the
// gamification collaborator; the engine only forwards the op.
func (w *Writer) WriteStreak(ctx context.Context, p StreakPayload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal streak: %w", err)
	}
	w.mirrorOrEnqueue(ctx, entities.OutboxStreakUpdate, p.UserID, payload)
	return nil
}

// mirrorOrEnqueue attempts the remote write and falls back to the outbox.
// Failures here never propagate: the local write already succeeded, so the
// learner keeps going and the entry is retried in the background.
func (w *Writer) mirrorOrEnqueue(ctx context.Context, entryType entities.OutboxEntryType, userID string, payload json.RawMessage) {
	if w.mirror == nil {
		return
	}

	entry := entities.NewOutboxEntry(entryType, userID, payload, w.now())

	if w.online.Load() {
		mctx, cancel := context.WithTimeout(ctx, w.timeout)
		err := w.mirror.Apply(mctx, entry)
		cancel()
		if err == nil {
			return
		}
		w.logger.Debug("mirror write failed, enqueueing",
			zap.String("op_id", entry.OpID),
			zap.String("type", string(entryType)),
			zap.Error(err),
		)
	}

	if err := w.outbox.Enqueue(ctx, entry); err != nil {
		// Local durability is already secured; losing the mirror copy is
		// recoverable on the next full write for the same record.
		w.logger.Warn("outbox enqueue failed",
			zap.String("op_id", entry.OpID),
			zap.Error(err),
		)
	}
}
