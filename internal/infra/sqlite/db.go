// Package sqlite is the local embedded store: the authoritative,
// always-available write path the engine reads its own writes from.
// It uses the pure-Go sqlite driver so the binary stays CGO-free.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle and owns schema migration.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the database at path and migrates the
// schema. Use ":memory:" for tests.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// A single writer at a time; WAL keeps readers unblocked.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "set pragmas")
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{DB: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS schedule_state (
	user_id          TEXT NOT NULL,
	item_id          TEXT NOT NULL,
	content_type     TEXT NOT NULL,
	status           TEXT NOT NULL,
	ease_factor      REAL NOT NULL,
	interval_days    INTEGER NOT NULL DEFAULT 0,
	repetitions      INTEGER NOT NULL DEFAULT 0,
	lapses           INTEGER NOT NULL DEFAULT 0,
	step_index       INTEGER NOT NULL DEFAULT 0,
	last_reviewed_at INTEGER NOT NULL,
	next_review_at   INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL,
	PRIMARY KEY (user_id, item_id)
);
CREATE INDEX IF NOT EXISTS idx_schedule_due ON schedule_state (user_id, next_review_at);

CREATE TABLE IF NOT EXISTS review_session (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	mode           TEXT NOT NULL,
	status         TEXT NOT NULL,
	queue          TEXT NOT NULL,
	current_index  INTEGER NOT NULL DEFAULT 0,
	correct        INTEGER NOT NULL DEFAULT 0,
	incorrect      INTEGER NOT NULL DEFAULT 0,
	skipped        INTEGER NOT NULL DEFAULT 0,
	total_time_ms  INTEGER NOT NULL DEFAULT 0,
	current_streak INTEGER NOT NULL DEFAULT 0,
	best_streak    INTEGER NOT NULL DEFAULT 0,
	started_at     INTEGER NOT NULL,
	completed_at   INTEGER
);
CREATE INDEX IF NOT EXISTS idx_session_user ON review_session (user_id, started_at);

CREATE TABLE IF NOT EXISTS sync_outbox (
	op_id        TEXT PRIMARY KEY,
	type         TEXT NOT NULL,
	user_id      TEXT NOT NULL,
	payload      TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	attempts     INTEGER NOT NULL DEFAULT 0,
	next_attempt INTEGER NOT NULL,
	status       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON sync_outbox (status, next_attempt);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "migrate schema")
	}
	return nil
}
