package syncer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
	"github.com/HelyeFab/moshimoshi-sub004/internal/repository"
)

const drainBatchSize = 50

// WorkerConfig tunes the outbox drain loop. Zero values take defaults.
type WorkerConfig struct {
	Interval    time.Duration // zero → 30s
	Timeout     time.Duration // per-entry mirror timeout; zero → 5s
	MaxAttempts int           // zero → 5
	BaseBackoff time.Duration // zero → 10s, doubled per attempt
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Interval == 0 {
		c.Interval = 30 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.BaseBackoff == 0 {
		c.BaseBackoff = 10 * time.Second
	}
	return c
}

// Worker drains the outbox to the remote mirror. Entries are retried with
// exponential backoff up to the attempt bound, then marked failed and
// surfaced through the OnPermanentFailure callback rather than dropped.
// Drain runs under a mutex, so there is never more than one consumer.
type Worker struct {
	outbox repository.OutboxRepository
	mirror Mirror
	logger *zap.Logger
	cfg    WorkerConfig

	drainMu sync.Mutex
	now     func() time.Time

	// OnPermanentFailure, when set, is called once per entry whose retry
	// budget is exhausted. It must not block.
	OnPermanentFailure func(entry *entities.SyncOutboxEntry)
}

// NewWorker creates a Worker over the given outbox and mirror.
func NewWorker(outbox repository.OutboxRepository, mirror Mirror, logger *zap.Logger, cfg WorkerConfig) *Worker {
	return &Worker{
		outbox: outbox,
		mirror: mirror,
		logger: logger,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
	}
}

// Run drains on an interval until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil {
				w.logger.Warn("outbox drain failed", zap.Error(err))
			}
		}
	}
}

// Drain processes due pending entries once and returns how many synced.
// If another drain is already running it returns immediately.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	if !w.drainMu.TryLock() {
		return 0, nil
	}
	defer w.drainMu.Unlock()

	now := w.now()
	entries, err := w.outbox.ListPending(ctx, now, drainBatchSize)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if w.drainOne(ctx, entry) {
			synced++
		}
	}
	return synced, nil
}

func (w *Worker) drainOne(ctx context.Context, entry *entities.SyncOutboxEntry) bool {
	entry.Status = entities.OutboxSyncing
	if err := w.outbox.Update(ctx, entry); err != nil {
		w.logger.Warn("outbox update failed", zap.String("op_id", entry.OpID), zap.Error(err))
		return false
	}

	mctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	err := w.mirror.Apply(mctx, entry)
	cancel()

	if err == nil {
		if derr := w.outbox.Delete(ctx, entry.OpID); derr != nil {
			w.logger.Warn("outbox delete failed", zap.String("op_id", entry.OpID), zap.Error(derr))
		}
		return true
	}

	entry.Attempts++
	if entry.Attempts >= w.cfg.MaxAttempts {
		entry.Status = entities.OutboxFailed
		w.logger.Warn("outbox entry permanently failed",
			zap.String("op_id", entry.OpID),
			zap.String("type", string(entry.Type)),
			zap.Int("attempts", entry.Attempts),
			zap.Error(err),
		)
		if uerr := w.outbox.Update(ctx, entry); uerr != nil {
			w.logger.Warn("outbox update failed", zap.String("op_id", entry.OpID), zap.Error(uerr))
		}
		if w.OnPermanentFailure != nil {
			w.OnPermanentFailure(entry)
		}
		return false
	}

	entry.Status = entities.OutboxPending
	entry.NextAttempt = w.now().Add(w.backoff(entry.Attempts))
	if uerr := w.outbox.Update(ctx, entry); uerr != nil {
		w.logger.Warn("outbox update failed", zap.String("op_id", entry.OpID), zap.Error(uerr))
	}
	return false
}

// backoff returns base × 2^(attempts-1).
func (w *Worker) backoff(attempts int) time.Duration {
	d := w.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
	}
	return d
}
