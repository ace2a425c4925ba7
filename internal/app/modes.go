package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ktrade/whaleflow/internal/feed"
	"github.com/ktrade/whaleflow/internal/server"
	"github.com/ktrade/whaleflow/internal/server/handler"
	"github.com/ktrade/whaleflow/internal/trader"
)

// TradeMode runs the live paper-trading session: WebSocket feed, tick loop
// and optional status API.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	g, ctx := errgroup.WithContext(ctx)

	snapshotTTL := time.Duration(a.cfg.Trade.TickIntervalSec*a.cfg.Feed.StalenessFactor) * time.Second
	cell := feed.NewCell(deps.Cache, snapshotTTL)

	wsFeed := feed.NewBinance(a.cfg.Feed, a.cfg.Trade.Symbol, cell, nil, a.logger)
	g.Go(func() error {
		return wsFeed.Run(ctx)
	})

	tr := a.newTrader(cell, deps)
	g.Go(func() error {
		return tr.Run(ctx)
	})

	if a.cfg.Server.Port > 0 {
		a.startHTTPServer(ctx, g, cell, deps)
	}

	return g.Wait()
}

// ReplayMode drives the decision pipeline from a recorded snapshot file. The
// loop runs to end of file; the status API is not started, replay sessions
// are batch jobs.
func (a *App) ReplayMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting replay mode",
		slog.String("path", a.cfg.Feed.ReplayPath),
	)

	replay, err := feed.OpenReplay(a.cfg.Feed.ReplayPath, a.logger)
	if err != nil {
		return fmt.Errorf("replay mode: %w", err)
	}
	defer replay.Close()

	// The replay trader reads snapshots directly; the cell only feeds the
	// status endpoints, which replay does not start.
	cell := feed.NewCell(nil, 0)
	tr := a.newTrader(cell, deps)
	return tr.RunReplay(ctx, replay)
}

func (a *App) newTrader(cell *feed.Cell, deps *Dependencies) *trader.Trader {
	var notifier trader.Notifier
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}
	return trader.New(
		a.cfg.Trade, a.cfg.Feed,
		cell, deps.Engine, deps.Gate, deps.Manager,
		notifier, nil, a.logger,
	)
}

// startHTTPServer adds the status API server to the errgroup with graceful
// shutdown on context cancellation.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, cell *feed.Cell, deps *Dependencies) {
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Journal.Healthy),
		Status:   handler.NewStatusHandler(a.cfg.Trade.Symbol, a.cfg.Mode, cell, deps.Manager),
		Position: handler.NewPositionHandler(a.cfg.Trade.Symbol, deps.Positions),
		Trades:   handler.NewTradesHandler(deps.Journal, deps.Archive),
	}
	if deps.ArchiveBrowser != nil {
		handlers.Archive = handler.NewArchiveHandler(deps.ArchiveBrowser, a.cfg.Journal.Dir)
	}
	srv := server.NewServer(a.cfg.Server.Port, handlers, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
