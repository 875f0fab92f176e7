package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
	"github.com/HelyeFab/moshimoshi-sub004/internal/repository"
)

// ScheduleStore implements repository.ScheduleRepository on the local store.
type ScheduleStore struct {
	db *DB
}

func NewScheduleStore(db *DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

const scheduleColumns = `user_id, item_id, content_type, status, ease_factor, interval_days,
	repetitions, lapses, step_index, last_reviewed_at, next_review_at, updated_at`

func (s *ScheduleStore) Upsert(ctx context.Context, state *entities.ScheduleState) error {
	query := `
		INSERT INTO schedule_state (` + scheduleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, item_id) DO UPDATE SET
			content_type = excluded.content_type,
			status = excluded.status,
			ease_factor = excluded.ease_factor,
			interval_days = excluded.interval_days,
			repetitions = excluded.repetitions,
			lapses = excluded.lapses,
			step_index = excluded.step_index,
			last_reviewed_at = excluded.last_reviewed_at,
			next_review_at = excluded.next_review_at,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		state.UserID,
		state.ItemID,
		string(state.ContentType),
		string(state.Status),
		state.EaseFactor,
		state.IntervalDays,
		state.Repetitions,
		state.Lapses,
		state.LearningStepIndex,
		state.LastReviewedAt.UnixMilli(),
		state.NextReviewAt.UnixMilli(),
		state.UpdatedAt.UnixMilli(),
	)
	return errors.Wrap(err, "upsert schedule")
}

func (s *ScheduleStore) Get(ctx context.Context, userID, itemID string) (*entities.ScheduleState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedule_state WHERE user_id = ? AND item_id = ?`,
		userID, itemID,
	)
	state, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrScheduleNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get schedule")
	}
	return state, nil
}

func (s *ScheduleStore) ListByUser(ctx context.Context, userID string) ([]*entities.ScheduleState, error) {
	return s.list(ctx,
		`SELECT `+scheduleColumns+` FROM schedule_state WHERE user_id = ? ORDER BY item_id`,
		userID,
	)
}

func (s *ScheduleStore) ListDue(ctx context.Context, userID string, before time.Time, limit int) ([]*entities.ScheduleState, error) {
	return s.list(ctx,
		`SELECT `+scheduleColumns+` FROM schedule_state
		 WHERE user_id = ? AND next_review_at <= ?
		 ORDER BY next_review_at LIMIT ?`,
		userID, before.UnixMilli(), limit,
	)
}

func (s *ScheduleStore) ListLeeches(ctx context.Context, userID string) ([]*entities.ScheduleState, error) {
	return s.list(ctx,
		`SELECT `+scheduleColumns+` FROM schedule_state
		 WHERE user_id = ? AND status = ? ORDER BY lapses DESC`,
		userID, string(entities.StatusLeech),
	)
}

func (s *ScheduleStore) list(ctx context.Context, query string, args ...any) ([]*entities.ScheduleState, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list schedules")
	}
	defer rows.Close()

	var out []*entities.ScheduleState
	for rows.Next() {
		state, err := scanSchedule(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan schedule")
		}
		out = append(out, state)
	}
	return out, errors.Wrap(rows.Err(), "iterate schedules")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*entities.ScheduleState, error) {
	var (
		state                       entities.ScheduleState
		ctype, status               string
		lastReviewed, next, updated int64
	)
	err := row.Scan(
		&state.UserID,
		&state.ItemID,
		&ctype,
		&status,
		&state.EaseFactor,
		&state.IntervalDays,
		&state.Repetitions,
		&state.Lapses,
		&state.LearningStepIndex,
		&lastReviewed,
		&next,
		&updated,
	)
	if err != nil {
		return nil, err
	}
	state.ContentType = entities.ContentType(ctype)
	state.Status = entities.ScheduleStatus(status)
	state.LastReviewedAt = time.UnixMilli(lastReviewed).UTC()
	state.NextReviewAt = time.UnixMilli(next).UTC()
	state.UpdatedAt = time.UnixMilli(updated).UTC()
	return &state, nil
}
