package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/ktrade/whaleflow/internal/blob/s3"
	"github.com/ktrade/whaleflow/internal/cache/redis"
	"github.com/ktrade/whaleflow/internal/config"
	"github.com/ktrade/whaleflow/internal/domain"
	"github.com/ktrade/whaleflow/internal/gate"
	"github.com/ktrade/whaleflow/internal/journal"
	"github.com/ktrade/whaleflow/internal/notify"
	"github.com/ktrade/whaleflow/internal/position"
	"github.com/ktrade/whaleflow/internal/risk"
	"github.com/ktrade/whaleflow/internal/signal"
	"github.com/ktrade/whaleflow/internal/store/postgres"
)

// signalHistorySize bounds the signal engine's snapshot ring buffer. At the
// default 5s tick it spans well past the 5-minute momentum lookback.
const signalHistorySize = 256

// Dependencies bundles everything the application modes need. Optional
// infrastructure (archive, cache, event bus, journal archiver, notifier) is
// nil when not configured; the trading path works without any of it.
type Dependencies struct {
	Positions domain.PositionStore
	Journal   *journal.Writer
	Engine    *signal.Engine
	Gate      *gate.Gate
	Risk      *risk.Controller
	Manager   *position.Manager

	// Optional infrastructure.
	Archive        domain.TradeArchive
	ArchiveBrowser domain.ArchiveBrowser
	Cache          domain.SnapshotCache
	Bus            domain.EventBus
	Notifier       *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// Postgres trade archive, enabled by a non-empty DSN.
	if cfg.Postgres.DSN != "" {
		pgClient, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigration {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Archive = postgres.NewTradeArchive(pgClient.Pool())
	}

	// Redis snapshot cache and event bus, enabled by a non-empty address.
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cache = redis.NewSnapshotCache(redisClient)
		deps.Bus = redis.NewEventBus(redisClient)
	}

	// S3 journal archiver, enabled by a non-empty bucket.
	var archiver domain.JournalArchiver
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, cfg.S3)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		s3Archiver := s3blob.NewJournalArchiver(s3Client, cfg.S3.Prefix)
		archiver = s3Archiver
		deps.ArchiveBrowser = s3Archiver
	}

	// Trade journal. The journal is mandatory: a session that cannot record
	// closed trades refuses to start.
	jw, err := journal.NewWriter(cfg.Journal.Dir, archiver, nil, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: journal: %w", err)
	}
	closers = append(closers, func() { _ = jw.Close() })
	deps.Journal = jw

	// Notifications. Nil when no channel is configured.
	deps.Notifier = notify.FromConfig(cfg.Notify, logger)

	// Decision components.
	deps.Positions = position.NewMemoryStore()
	deps.Engine = signal.NewEngine(cfg.SixDim, signalHistorySize, logger)
	deps.Gate = gate.New(cfg.Entry, deps.Positions, logger)
	deps.Risk = risk.New(cfg.Risk, logger)
	deps.Manager = position.NewManager(cfg.Trade, deps.Positions, deps.Risk, jw, deps.Archive, deps.Bus, logger)

	return deps, cleanup, nil
}
