// Package trader runs the decision loop: snapshot in, signal, gate, position
// management, journal out. It is the only place the clock, the feed and the
// decision components meet, which keeps every component below it
// deterministic and testable in isolation.
package trader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ktrade/whaleflow/internal/config"
	"github.com/ktrade/whaleflow/internal/domain"
	"github.com/ktrade/whaleflow/internal/feed"
	"github.com/ktrade/whaleflow/internal/gate"
	"github.com/ktrade/whaleflow/internal/position"
	"github.com/ktrade/whaleflow/internal/signal"
)

// Notifier receives trade lifecycle notifications. Satisfied by
// notify.Notifier; nil disables notifications.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Event types passed to the Notifier.
const (
	EventEntry    = "entry"
	EventExit     = "exit"
	EventShutdown = "shutdown"
)

// Trader drives the paper-trading session for one symbol.
type Trader struct {
	cfg      config.TradeConfig
	staleMax time.Duration
	source   domain.SnapshotSource
	engine   *signal.Engine
	gate     *gate.Gate
	manager  *position.Manager
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	lastMid float64
}

// New wires a trader. now supplies the live-mode clock; pass nil for
// wall-clock time. notifier may be nil.
func New(cfg config.TradeConfig, feedCfg config.FeedConfig, source domain.SnapshotSource,
	engine *signal.Engine, g *gate.Gate, manager *position.Manager,
	notifier Notifier, now func() time.Time, logger *slog.Logger) *Trader {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	tick := time.Duration(cfg.TickIntervalSec * float64(time.Second))
	return &Trader{
		cfg:      cfg,
		staleMax: time.Duration(float64(tick) * feedCfg.StalenessFactor),
		source:   source,
		engine:   engine,
		gate:     g,
		manager:  manager,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "trader"), slog.String("symbol", cfg.Symbol)),
		now:      now,
	}
}

// Run executes the live tick loop until ctx is cancelled, then force-closes
// any open position and logs the session report.
func (t *Trader) Run(ctx context.Context) error {
	interval := time.Duration(t.cfg.TickIntervalSec * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.logger.Info("trading loop started", slog.Duration("tick_interval", interval))

	for {
		select {
		case <-ctx.Done():
			t.shutdown(t.now())
			return ctx.Err()
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// RunReplay drives the loop from a recorded snapshot file instead of the
// wall clock. Each snapshot's own timestamp is the decision clock, including
// the forced close of a position still open at end of file, so a recording
// replays to the identical trade sequence every time.
func (t *Trader) RunReplay(ctx context.Context, replay *feed.Replay) error {
	t.logger.Info("replay started")
	var clock time.Time
	for {
		if err := ctx.Err(); err != nil {
			t.shutdown(t.replayClock(clock))
			return err
		}
		snap, ok, err := replay.Next()
		if err != nil {
			return fmt.Errorf("trader: replay: %w", err)
		}
		if !ok {
			break
		}
		clock = snap.Timestamp
		t.step(ctx, snap, snap.Timestamp)
	}
	t.shutdown(t.replayClock(clock))
	t.logger.Info("replay finished")
	return nil
}

// replayClock falls back to the live clock only when the recording held no
// snapshots at all, in which case there is nothing to close anyway.
func (t *Trader) replayClock(clock time.Time) time.Time {
	if clock.IsZero() {
		return t.now()
	}
	return clock
}

// tick is one live iteration: fetch the latest snapshot, check staleness,
// then run the decision step.
func (t *Trader) tick(ctx context.Context) {
	now := t.now()
	snap, ok := t.source.Latest()
	if !ok {
		t.logger.Warn("no market snapshot yet, skipping tick")
		return
	}
	if age := snap.Age(now); age > t.staleMax {
		t.logger.Warn("stale snapshot, skipping tick",
			slog.Duration("age", age),
			slog.Duration("max", t.staleMax),
		)
		return
	}
	t.step(ctx, snap, now)
}

// step is the shared decision pipeline for one snapshot: manage the open
// position first, and only consider a new entry when the slot is free. A
// close never re-enters on the same tick; the next snapshot gets a clean
// look at the market.
func (t *Trader) step(ctx context.Context, snap domain.MarketSnapshot, now time.Time) {
	if snap.MidPrice > 0 {
		t.lastMid = snap.MidPrice
	}

	sig := t.engine.ComputeSignal(snap)

	rec, err := t.manager.OnTick(ctx, t.cfg.Symbol, snap.MidPrice, now)
	if err != nil {
		t.logger.Error("position tick failed", slog.String("error", err.Error()))
	}
	if rec != nil {
		t.notifyExit(ctx, *rec)
		return
	}

	if d := t.gate.Check(sig, snap, now); !d.Accepted {
		return
	}

	order := domain.EntryOrder{
		Direction:  sig.Direction,
		SizeUSD:    t.cfg.SizeUSD,
		Leverage:   t.cfg.Leverage,
		EntryPrice: snap.MidPrice,
		Signal:     sig,
		Snapshot:   snap,
	}
	pos, err := t.manager.Open(ctx, order, now)
	if err != nil {
		t.logger.Error("entry failed", slog.String("error", err.Error()))
		return
	}
	t.notifyEntry(ctx, pos)
}

// shutdown force-closes any open position at the last known mid so no trade
// outlives the session, then logs the final report. now is the close
// timestamp: the wall clock in live mode, the last snapshot time in replay.
func (t *Trader) shutdown(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if t.lastMid > 0 {
		rec, err := t.manager.ForceClose(ctx, t.cfg.Symbol, t.lastMid, now)
		if err != nil {
			t.logger.Error("forced close failed", slog.String("error", err.Error()))
		}
		if rec != nil {
			t.notifyExit(ctx, *rec)
		}
	}
	t.report(ctx)
}

// report logs the session summary and pushes it to the notifier.
func (t *Trader) report(ctx context.Context) {
	stats := t.manager.Stats()
	t.logger.Info("session report",
		slog.Int("trades", stats.Trades),
		slog.Int("wins", stats.Wins),
		slog.Int("losses", stats.Losses),
		slog.Float64("win_rate", stats.WinRate()),
		slog.Float64("net_pnl_usd", stats.NetPnLUSD),
		slog.Float64("fees_usd", stats.FeesUSD),
	)
	if t.notifier != nil {
		msg := fmt.Sprintf("trades=%d wins=%d losses=%d win_rate=%.0f%% net_pnl=%.2f USD",
			stats.Trades, stats.Wins, stats.Losses, stats.WinRate()*100, stats.NetPnLUSD)
		_ = t.notifier.Notify(ctx, EventShutdown, "Session report", msg)
	}
}

func (t *Trader) notifyEntry(ctx context.Context, pos domain.Position) {
	if t.notifier == nil {
		return
	}
	msg := fmt.Sprintf("%s %s @ %.2f size=%.0f USD x%d (%s p=%.2f)",
		pos.Direction, pos.Symbol, pos.EntryPrice, pos.SizeUSD, pos.Leverage,
		pos.EntrySignal.PrimaryStrategy, pos.EntrySignal.Probability)
	_ = t.notifier.Notify(ctx, EventEntry, "Position opened", msg)
}

func (t *Trader) notifyExit(ctx context.Context, rec domain.TradeRecord) {
	if t.notifier == nil {
		return
	}
	msg := fmt.Sprintf("%s %s @ %.2f reason=%s net_pnl=%.2f USD hold=%.0fs",
		rec.Direction, rec.Symbol, rec.ExitPrice, rec.ExitReason, rec.NetPnLUSD, rec.HoldSeconds)
	_ = t.notifier.Notify(ctx, EventExit, "Position closed", msg)
}
