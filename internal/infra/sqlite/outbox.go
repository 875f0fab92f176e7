package sqlite

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
	"github.com/HelyeFab/moshimoshi-sub004/internal/repository"
)

// OutboxStore implements repository.OutboxRepository on the local store.
type OutboxStore struct {
	db *DB
}

func NewOutboxStore(db *DB) *OutboxStore {
	return &OutboxStore{db: db}
}

func (s *OutboxStore) Enqueue(ctx context.Context, entry *entities.SyncOutboxEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_outbox (op_id, type, user_id, payload, created_at, attempts, next_attempt, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.OpID,
		string(entry.Type),
		entry.UserID,
		string(entry.Payload),
		entry.CreatedAt.UnixMilli(),
		entry.Attempts,
		entry.NextAttempt.UnixMilli(),
		string(entry.Status),
	)
	return errors.Wrap(err, "enqueue outbox entry")
}

func (s *OutboxStore) ListPending(ctx context.Context, before time.Time, limit int) ([]*entities.SyncOutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT op_id, type, user_id, payload, created_at, attempts, next_attempt, status
		FROM sync_outbox
		WHERE status = ? AND next_attempt <= ?
		ORDER BY created_at LIMIT ?`,
		string(entities.OutboxPending), before.UnixMilli(), limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list pending")
	}
	defer rows.Close()

	var out []*entities.SyncOutboxEntry
	for rows.Next() {
		var (
			entry             entities.SyncOutboxEntry
			entryType, status string
			payload           string
			createdAt, nextAt int64
		)
		if err := rows.Scan(&entry.OpID, &entryType, &entry.UserID, &payload, &createdAt, &entry.Attempts, &nextAt, &status); err != nil {
			return nil, errors.Wrap(err, "scan outbox entry")
		}
		entry.Type = entities.OutboxEntryType(entryType)
		entry.Status = entities.OutboxStatus(status)
		entry.Payload = []byte(payload)
		entry.CreatedAt = time.UnixMilli(createdAt).UTC()
		entry.NextAttempt = time.UnixMilli(nextAt).UTC()
		out = append(out, &entry)
	}
	return out, errors.Wrap(rows.Err(), "iterate outbox")
}

func (s *OutboxStore) Update(ctx context.Context, entry *entities.SyncOutboxEntry) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_outbox SET attempts = ?, next_attempt = ?, status = ? WHERE op_id = ?`,
		entry.Attempts, entry.NextAttempt.UnixMilli(), string(entry.Status), entry.OpID,
	)
	if err != nil {
		return errors.Wrap(err, "update outbox entry")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return repository.ErrOutboxNotFound
	}
	return nil
}

func (s *OutboxStore) Delete(ctx context.Context, opID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_outbox WHERE op_id = ?`, opID)
	return errors.Wrap(err, "delete outbox entry")
}

func (s *OutboxStore) CountByStatus(ctx context.Context) (map[entities.OutboxStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_outbox GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, "count by status")
	}
	defer rows.Close()

	out := make(map[entities.OutboxStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.Wrap(err, "scan count")
		}
		out[entities.OutboxStatus(status)] = count
	}
	return out, errors.Wrap(rows.Err(), "iterate counts")
}
