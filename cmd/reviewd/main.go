package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HelyeFab/moshimoshi-sub004/internal/config"
	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
	"github.com/HelyeFab/moshimoshi-sub004/internal/infra/postgres"
	"github.com/HelyeFab/moshimoshi-sub004/internal/infra/sqlite"
	"github.com/HelyeFab/moshimoshi-sub004/internal/logger"
	"github.com/HelyeFab/moshimoshi-sub004/internal/queue"
	"github.com/HelyeFab/moshimoshi-sub004/internal/session"
	"github.com/HelyeFab/moshimoshi-sub004/internal/srs"
	"github.com/HelyeFab/moshimoshi-sub004/internal/syncer"
	"github.com/HelyeFab/moshimoshi-sub004/internal/validator"
)

// app bundles everything the commands need after wiring.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *sqlite.DB
	schedules *sqlite.ScheduleStore
	sessions  *sqlite.SessionStore
	outbox    *sqlite.OutboxStore
	mirror    *postgres.Mirror // nil when no remote mirror is configured
	generator *queue.Generator
	writer    *syncer.Writer
	manager   *session.Manager
	closers   []func()
}

// schedulerConfig maps the scheduling section onto the scheduler's knobs.
// Unset fields keep the scheduler's own defaults.
func schedulerConfig(s config.Scheduling) srs.Config {
	return srs.Config{
		GraduatingInterval: s.GraduatingInterval,
		MaxIntervalDays:    s.MaxIntervalDays,
		LeechThreshold:     s.LeechThreshold,
	}
}

// generatorConfig maps the queue section onto the generator's knobs.
func generatorConfig(q config.Queue) queue.GeneratorConfig {
	return queue.GeneratorConfig{
		CacheTTL: q.CacheTTL,
		Defaults: queue.Options{
			SessionSize:   q.SessionSize,
			MaxNewItems:   q.MaxNewItems,
			ShuffleWindow: q.ShuffleWindow,
		},
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context) (*app, error) {
	// .env is a local development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	a := &app{
		cfg:       cfg,
		log:       zl,
		db:        db,
		schedules: sqlite.NewScheduleStore(db),
		sessions:  sqlite.NewSessionStore(db),
		outbox:    sqlite.NewOutboxStore(db),
	}
	a.closers = append(a.closers, func() { _ = db.Close() }, func() { _ = zl.Sync() })

	if cfg.MirrorEnabled() {
		dsn, err := cfg.DB.DSN()
		if err != nil {
			a.close()
			return nil, err
		}
		pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
			MaxConns:        cfg.DB.MaxConnections,
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect mirror: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		mirror := postgres.NewMirror(pool)
		if err := mirror.Migrate(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("migrate mirror: %w", err)
		}
		a.mirror = mirror
		zl.Info("remote mirror enabled")
	} else {
		zl.Info("no remote mirror configured, running local-only")
	}

	scheduler, err := srs.NewScheduler(schedulerConfig(cfg.Scheduling))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	a.generator = queue.NewGenerator(a.schedules, zl, generatorConfig(cfg.Queue))

	// An interface holding a nil *postgres.Mirror is not a nil Mirror; keep
	// the local-only case genuinely nil.
	var mirror syncer.Mirror
	if a.mirror != nil {
		mirror = a.mirror
	}
	a.writer = syncer.NewWriter(a.schedules, a.sessions, a.outbox, mirror, zl, cfg.Sync.Timeout)
	a.manager = session.NewManager(validator.NewSet(), scheduler, a.schedules, a.writer, a.generator, session.NewBus(), zl)

	return a, nil
}

func main() {
	root := &cobra.Command{
		Use:   "reviewd",
		Short: "Spaced repetition review engine",
	}
	root.AddCommand(newSyncCmd(), newQueueCmd(), newDueCmd(), newLeechesCmd(), newHistoryCmd(), newOutboxCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

// newSyncCmd runs the outbox drain worker until interrupted.
func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run the background sync worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if a.mirror == nil {
				a.log.Warn("no mirror configured, nothing to sync")
				return nil
			}

			worker := syncer.NewWorker(a.outbox, a.mirror, a.log, syncer.WorkerConfig{
				Interval:    a.cfg.Sync.Interval,
				Timeout:     a.cfg.Sync.Timeout,
				MaxAttempts: a.cfg.Sync.MaxAttempts,
				BaseBackoff: a.cfg.Sync.BaseBackoff,
			})
			worker.OnPermanentFailure = func(entry *entities.SyncOutboxEntry) {
				a.log.Error("sync op permanently failed",
					zap.String("op_id", entry.OpID),
					zap.String("type", string(entry.Type)),
					zap.String("user_id", entry.UserID),
				)
			}

			a.log.Info("sync worker started", zap.Duration("interval", a.cfg.Sync.Interval))
			worker.Run(ctx)
			a.log.Info("shutdown signal received")
			return nil
		},
	}
}

// newQueueCmd previews the next session queue for a user, built with the
// configured generation parameters.
func newQueueCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Preview the next review queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.generator.Generate(ctx, userID, queue.Options{})
			if err != nil {
				return err
			}
			for _, item := range res.Items {
				fmt.Fprintf(os.Stdout, "%s\t%s\t%s\tpriority %.1f\n",
					item.ItemID, item.ContentType, item.Status, item.Priority)
			}
			fmt.Fprintf(os.Stdout, "%d items queued\n", len(res.Items))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// newDueCmd prints the items currently due for a user.
func newDueCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List items due for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			states, err := a.schedules.ListDue(ctx, userID, time.Now().UTC(), 500)
			if err != nil {
				return err
			}
			for _, s := range states {
				fmt.Fprintf(os.Stdout, "%s\t%s\t%s\toverdue %.1fd\n",
					s.ItemID, s.ContentType, s.Status, s.DaysOverdue(time.Now().UTC()))
			}
			fmt.Fprintf(os.Stdout, "%d items due\n", len(states))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// newLeechesCmd prints the items flagged as leeches for a user.
func newLeechesCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "leeches",
		Short: "List items flagged as leeches",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			states, err := a.schedules.ListLeeches(ctx, userID)
			if err != nil {
				return err
			}
			for _, s := range states {
				fmt.Fprintf(os.Stdout, "%s\t%s\t%d lapses\n", s.ItemID, s.ContentType, s.Lapses)
			}
			fmt.Fprintf(os.Stdout, "%d leeches\n", len(states))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// newHistoryCmd prints a user's recent sessions, newest first.
func newHistoryCmd() *cobra.Command {
	var (
		userID string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent review sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			sessions, err := a.sessions.ListByUser(ctx, userID, limit)
			if err != nil {
				return err
			}
			for _, s := range sessions {
				fmt.Fprintf(os.Stdout, "%s\t%s\t%s\t%d/%d correct\t%s\n",
					s.ID, s.StartedAt.Format(time.RFC3339), s.Status,
					s.Statistics.Correct, s.Statistics.Answered(), s.Mode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	cmd.Flags().IntVar(&limit, "limit", 10, "max sessions to show")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// newOutboxCmd prints outbox delivery counts by status.
func newOutboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outbox",
		Short: "Show pending sync op counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			counts, err := a.outbox.CountByStatus(ctx)
			if err != nil {
				return err
			}
			for _, status := range []entities.OutboxStatus{
				entities.OutboxPending, entities.OutboxSyncing, entities.OutboxFailed,
			} {
				fmt.Fprintf(os.Stdout, "%s\t%d\n", status, counts[status])
			}
			return nil
		},
	}
}
