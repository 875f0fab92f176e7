package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
	"github.com/HelyeFab/moshimoshi-sub004/internal/syncer"
)

// Mirror applies sync ops to the remote PostgreSQL store. Every op is
// recorded in sync_ops inside the same transaction as its payload write,
// which makes redelivery of an op_id a no-op.
type Mirror struct {
	pool *pgxpool.Pool
	tx   *Transactor
}

func NewMirror(pool *pgxpool.Pool) *Mirror {
	return &Mirror{pool: pool, tx: NewTransactor(pool)}
}

// Migrate creates the mirror tables if they do not exist.
func (m *Mirror) Migrate(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sync_ops (
			op_id      TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS schedule_state (
			user_id             TEXT NOT NULL,
			item_id             TEXT NOT NULL,
			content_type        TEXT NOT NULL,
			status              TEXT NOT NULL,
			ease_factor         DOUBLE PRECISION NOT NULL,
			interval_days       INTEGER NOT NULL,
			repetitions         INTEGER NOT NULL,
			lapses              INTEGER NOT NULL,
			learning_step_index INTEGER NOT NULL,
			last_reviewed_at    BIGINT NOT NULL,
			next_review_at      BIGINT NOT NULL,
			updated_at          BIGINT NOT NULL,
			PRIMARY KEY (user_id, item_id)
		);

		CREATE TABLE IF NOT EXISTS review_session (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			mode          TEXT NOT NULL,
			status        TEXT NOT NULL,
			current_index INTEGER NOT NULL,
			correct       INTEGER NOT NULL,
			incorrect     INTEGER NOT NULL,
			skipped       INTEGER NOT NULL,
			started_at    BIGINT NOT NULL,
			completed_at  BIGINT
		);
		CREATE INDEX IF NOT EXISTS idx_mirror_session_user ON review_session (user_id);

		CREATE TABLE IF NOT EXISTS user_streak (
			user_id    TEXT NOT NULL,
			day        TEXT NOT NULL,
			count      INTEGER NOT NULL,
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (user_id, day)
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate mirror: %w", err)
	}
	return nil
}

// Apply writes one sync op to the mirror. Duplicate op IDs are skipped.
func (m *Mirror) Apply(ctx context.Context, entry *entities.SyncOutboxEntry) error {
	return m.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `INSERT INTO sync_ops (op_id) VALUES ($1) ON CONFLICT (op_id) DO NOTHING`, entry.OpID)
		if err != nil {
			return fmt.Errorf("record op: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Already delivered.
			return nil
		}

		switch entry.Type {
		case entities.OutboxScheduleUpdate:
			return applySchedule(ctx, tx, entry.Payload)
		case entities.OutboxSessionUpdate:
			return applySession(ctx, tx, entry.Payload)
		case entities.OutboxStreakUpdate:
			return applyStreak(ctx, tx, entry.Payload)
		default:
			return fmt.Errorf("unknown outbox entry type %q", entry.Type)
		}
	})
}

// applySchedule upserts a schedule row, last write wins by updated_at.
func applySchedule(ctx context.Context, tx pgx.Tx, raw json.RawMessage) error {
	state, err := syncer.UnmarshalSchedule(raw)
	if err != nil {
		return fmt.Errorf("decode schedule payload: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO schedule_state (
			user_id, item_id, content_type, status, ease_factor, interval_days,
			repetitions, lapses, learning_step_index, last_reviewed_at, next_review_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, item_id) DO UPDATE SET
			content_type        = EXCLUDED.content_type,
			status              = EXCLUDED.status,
			ease_factor         = EXCLUDED.ease_factor,
			interval_days       = EXCLUDED.interval_days,
			repetitions         = EXCLUDED.repetitions,
			lapses              = EXCLUDED.lapses,
			learning_step_index = EXCLUDED.learning_step_index,
			last_reviewed_at    = EXCLUDED.last_reviewed_at,
			next_review_at      = EXCLUDED.next_review_at,
			updated_at          = EXCLUDED.updated_at
		WHERE EXCLUDED.updated_at >= schedule_state.updated_at`,
		state.UserID, state.ItemID, string(state.ContentType), string(state.Status),
		state.EaseFactor, state.IntervalDays, state.Repetitions, state.Lapses,
		state.LearningStepIndex, state.LastReviewedAt.UnixMilli(),
		state.NextReviewAt.UnixMilli(), state.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	return nil
}

// applySession upserts a session row. History is append-only, so an update
// only ever moves a session forward; the more-progressed row wins.
func applySession(ctx context.Context, tx pgx.Tx, raw json.RawMessage) error {
	var p syncer.SessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("decode session payload: %w", err)
	}
	var completedAt *int64
	if p.CompletedAt != 0 {
		completedAt = &p.CompletedAt
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO review_session (
			id, user_id, mode, status, current_index, correct, incorrect, skipped, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status        = EXCLUDED.status,
			current_index = EXCLUDED.current_index,
			correct       = EXCLUDED.correct,
			incorrect     = EXCLUDED.incorrect,
			skipped       = EXCLUDED.skipped,
			completed_at  = EXCLUDED.completed_at
		WHERE EXCLUDED.current_index >= review_session.current_index`,
		p.SessionID, p.UserID, p.Mode, p.Status, p.CurrentIndex,
		p.Correct, p.Incorrect, p.Skipped, p.StartedAt, completedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// applyStreak merges a streak day last-write-wins by client timestamp.
func applyStreak(ctx context.Context, tx pgx.Tx, raw json.RawMessage) error {
	var p syncer.StreakPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("decode streak payload: %w", err)
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO user_streak (user_id, day, count, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, day) DO UPDATE SET
			count      = EXCLUDED.count,
			updated_at = EXCLUDED.updated_at
		WHERE EXCLUDED.updated_at >= user_streak.updated_at`,
		p.UserID, p.Date, p.Count, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert streak: %w", err)
	}
	return nil
}

// FetchSchedule reads the mirror's copy of a schedule row, used when a
// device reconnects and needs to merge remote state with its local copy.
func (m *Mirror) FetchSchedule(ctx context.Context, userID, itemID string) (*entities.ScheduleState, error) {
	row := m.pool.QueryRow(ctx, `
		SELECT user_id, item_id, content_type, status, ease_factor, interval_days,
		       repetitions, lapses, learning_step_index, last_reviewed_at, next_review_at, updated_at
		FROM schedule_state WHERE user_id = $1 AND item_id = $2`,
		userID, itemID,
	)
	var (
		s                                 entities.ScheduleState
		contentType, status               string
		lastReviewed, nextReview, updated int64
	)
	err := row.Scan(&s.UserID, &s.ItemID, &contentType, &status, &s.EaseFactor,
		&s.IntervalDays, &s.Repetitions, &s.Lapses, &s.LearningStepIndex,
		&lastReviewed, &nextReview, &updated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch schedule: %w", err)
	}
	s.ContentType = entities.ContentType(contentType)
	s.Status = entities.ScheduleStatus(status)
	s.LastReviewedAt = time.UnixMilli(lastReviewed).UTC()
	s.NextReviewAt = time.UnixMilli(nextReview).UTC()
	s.UpdatedAt = time.UnixMilli(updated).UTC()
	return &s, nil
}
