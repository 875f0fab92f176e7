package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
	"github.com/HelyeFab/moshimoshi-sub004/internal/repository"
)

// SessionStore implements repository.SessionRepository on the local store.
// The queue snapshot is stored as a JSON column; it is written once at start
// and only read back whole.
type SessionStore struct {
	db *DB
}

func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

const sessionColumns = `id, user_id, mode, status, queue, current_index, correct, incorrect,
	skipped, total_time_ms, current_streak, best_streak, started_at, completed_at`

func (s *SessionStore) Save(ctx context.Context, session *entities.ReviewSession) error {
	queue, err := json.Marshal(session.Queue)
	if err != nil {
		return errors.Wrap(err, "marshal queue")
	}

	var completedAt sql.NullInt64
	if session.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: session.CompletedAt.UnixMilli(), Valid: true}
	}

	query := `
		INSERT INTO review_session (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			current_index = excluded.current_index,
			correct = excluded.correct,
			incorrect = excluded.incorrect,
			skipped = excluded.skipped,
			total_time_ms = excluded.total_time_ms,
			current_streak = excluded.current_streak,
			best_streak = excluded.best_streak,
			completed_at = excluded.completed_at
	`
	_, err = s.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		string(session.Mode),
		string(session.Status),
		string(queue),
		session.CurrentIndex,
		session.Statistics.Correct,
		session.Statistics.Incorrect,
		session.Statistics.Skipped,
		session.Statistics.TotalTimeMS,
		session.Statistics.CurrentStreak,
		session.Statistics.BestStreak,
		session.StartedAt.UnixMilli(),
		completedAt,
	)
	return errors.Wrap(err, "save session")
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*entities.ReviewSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM review_session WHERE id = ?`, sessionID)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get session")
	}
	return session, nil
}

func (s *SessionStore) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.ReviewSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM review_session
		 WHERE user_id = ? ORDER BY started_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	defer rows.Close()

	var out []*entities.ReviewSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan session")
		}
		out = append(out, session)
	}
	return out, errors.Wrap(rows.Err(), "iterate sessions")
}

func scanSession(row rowScanner) (*entities.ReviewSession, error) {
	var (
		session     entities.ReviewSession
		mode, state string
		queue       string
		startedAt   int64
		completedAt sql.NullInt64
	)
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&mode,
		&state,
		&queue,
		&session.CurrentIndex,
		&session.Statistics.Correct,
		&session.Statistics.Incorrect,
		&session.Statistics.Skipped,
		&session.Statistics.TotalTimeMS,
		&session.Statistics.CurrentStreak,
		&session.Statistics.BestStreak,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(queue), &session.Queue); err != nil {
		return nil, errors.Wrap(err, "unmarshal queue")
	}
	session.Mode = entities.ReviewMode(mode)
	session.Status = entities.SessionStatus(state)
	session.StartedAt = time.UnixMilli(startedAt).UTC()
	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64).UTC()
		session.CompletedAt = &t
	}
	return &session, nil
}
