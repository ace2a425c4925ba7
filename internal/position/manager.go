package position

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ktrade/whaleflow/internal/config"
	"github.com/ktrade/whaleflow/internal/domain"
	"github.com/ktrade/whaleflow/internal/risk"
)

// Event channel names published on the event bus.
const (
	ChannelEntries = "whaleflow:entries"
	ChannelExits   = "whaleflow:exits"
)

// Stats accumulates session-level results across closed trades.
type Stats struct {
	Trades       int                       `json:"trades"`
	Wins         int                       `json:"wins"`
	Losses       int                       `json:"losses"`
	NetPnLUSD    float64                   `json:"net_pnl_usd"`
	FeesUSD      float64                   `json:"fees_usd"`
	ByExitReason map[domain.ExitReason]int `json:"by_exit_reason"`
}

// WinRate returns the fraction of closed trades with positive net PnL.
func (s Stats) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades)
}

// Manager owns the position lifecycle: entry, per-tick mark-to-market, exit,
// and the journal write that makes a close durable. All PnL is paper: fills
// are simulated at rule threshold prices and a round-trip taker fee is
// deducted on close.
type Manager struct {
	cfg        config.TradeConfig
	store      domain.PositionStore
	riskCtl    *risk.Controller
	journal    domain.TradeJournal
	archive    domain.TradeArchive // optional, best effort
	bus        domain.EventBus     // optional, best effort
	logger     *slog.Logger
	newTradeID func() string

	mu    sync.Mutex
	stats Stats
}

// NewManager wires a position manager. archive and bus may be nil; failures
// on either are logged and never block the trade path. journal must not be
// nil: a close that cannot be journaled is still applied to in-memory state
// but reported as an error.
func NewManager(cfg config.TradeConfig, store domain.PositionStore, riskCtl *risk.Controller,
	journal domain.TradeJournal, archive domain.TradeArchive, bus domain.EventBus, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:        cfg,
		store:      store,
		riskCtl:    riskCtl,
		journal:    journal,
		archive:    archive,
		bus:        bus,
		logger:     logger.With("component", "position_manager"),
		newTradeID: uuid.NewString,
		stats:      Stats{ByExitReason: make(map[domain.ExitReason]int)},
	}
}

// Open creates a position from an accepted entry order. Returns
// ErrPositionOpen when the slot is already occupied.
func (m *Manager) Open(ctx context.Context, order domain.EntryOrder, now time.Time) (domain.Position, error) {
	pos := domain.Position{
		TradeID:       m.newTradeID(),
		Symbol:        order.Snapshot.Symbol,
		Direction:     order.Direction,
		EntryPrice:    order.EntryPrice,
		EntryTime:     now,
		SizeUSD:       order.SizeUSD,
		Leverage:      order.Leverage,
		EntrySignal:   order.Signal,
		EntrySnapshot: order.Snapshot,
		Status:        domain.PositionStatusOpen,
	}
	if err := m.store.Create(pos); err != nil {
		return domain.Position{}, fmt.Errorf("position: open %s: %w", pos.Symbol, err)
	}
	m.logger.Info("position opened",
		"trade_id", pos.TradeID,
		"symbol", pos.Symbol,
		"direction", pos.Direction,
		"entry_price", pos.EntryPrice,
		"size_usd", pos.SizeUSD,
		"leverage", pos.Leverage,
		"strategy", pos.EntrySignal.PrimaryStrategy,
	)
	m.publish(ctx, ChannelEntries, pos)
	return pos, nil
}

// OnTick marks the open position for symbol to the given mid price, updates
// its running extrema, and runs the exit ladder. When an exit rule fires the
// position is closed and the journaled trade record is returned.
//
// Returns (nil, nil) when no position is open or no rule fired.
func (m *Manager) OnTick(ctx context.Context, symbol string, mid float64, now time.Time) (*domain.TradeRecord, error) {
	pos, ok := m.store.Get(symbol)
	if !ok {
		return nil, nil
	}

	pos.CurrentPnLPct = pos.PnLPct(mid)
	if pos.CurrentPnLPct > pos.MaxFavorablePct {
		pos.MaxFavorablePct = pos.CurrentPnLPct
	}
	if pos.CurrentPnLPct < pos.MaxAdversePct {
		pos.MaxAdversePct = pos.CurrentPnLPct
	}

	v := m.riskCtl.Evaluate(pos, mid, now)
	if !v.Exit {
		if err := m.store.Update(pos); err != nil {
			return nil, fmt.Errorf("position: mark %s: %w", symbol, err)
		}
		return nil, nil
	}
	return m.close(ctx, pos, v.Reason, v.ExitPrice, now)
}

// ForceClose closes any open position for symbol at the current mid with the
// FORCED_END reason. Used on shutdown so no position outlives the session.
func (m *Manager) ForceClose(ctx context.Context, symbol string, mid float64, now time.Time) (*domain.TradeRecord, error) {
	pos, ok := m.store.Get(symbol)
	if !ok {
		return nil, nil
	}
	pos.CurrentPnLPct = pos.PnLPct(mid)
	if pos.CurrentPnLPct > pos.MaxFavorablePct {
		pos.MaxFavorablePct = pos.CurrentPnLPct
	}
	if pos.CurrentPnLPct < pos.MaxAdversePct {
		pos.MaxAdversePct = pos.CurrentPnLPct
	}
	return m.close(ctx, pos, domain.ExitReasonForcedEnd, mid, now)
}

// close finalizes the position, computes net PnL with the round-trip fee,
// journals the trade, and frees the slot. The slot is freed even when the
// journal write fails so the engine is never wedged holding a dead position;
// the error is surfaced to the caller for logging.
func (m *Manager) close(ctx context.Context, pos domain.Position, reason domain.ExitReason, exitPrice float64, now time.Time) (*domain.TradeRecord, error) {
	pos.Status = domain.PositionStatusClosed
	pos.ExitPrice = exitPrice
	pos.ExitTime = now
	pos.ExitReason = reason

	exitPnLPct := pos.PnLPct(exitPrice)
	gross := pos.SizeUSD * exitPnLPct / 100
	fee := pos.SizeUSD * float64(pos.Leverage) * m.cfg.FeeRate * 2
	pos.NetPnLUSD = gross - fee

	rec := domain.NewTradeRecord(pos)

	if err := m.store.Remove(pos.Symbol); err != nil {
		return nil, fmt.Errorf("position: close %s: %w", pos.Symbol, err)
	}

	m.recordStats(rec, fee)

	m.logger.Info("position closed",
		"trade_id", pos.TradeID,
		"symbol", pos.Symbol,
		"direction", pos.Direction,
		"exit_reason", reason,
		"exit_price", exitPrice,
		"net_pnl_usd", pos.NetPnLUSD,
		"hold_seconds", rec.HoldSeconds,
	)
	m.publish(ctx, ChannelExits, rec)

	if m.archive != nil {
		if err := m.archive.Insert(ctx, rec); err != nil {
			m.logger.Warn("trade archive insert failed", "trade_id", rec.TradeID, "error", err)
		}
	}

	if err := m.journal.Append(ctx, rec); err != nil {
		return &rec, fmt.Errorf("position: journal %s: %w", rec.TradeID, err)
	}
	return &rec, nil
}

func (m *Manager) recordStats(rec domain.TradeRecord, fee float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Trades++
	if rec.NetPnLUSD > 0 {
		m.stats.Wins++
	} else {
		m.stats.Losses++
	}
	m.stats.NetPnLUSD += rec.NetPnLUSD
	m.stats.FeesUSD += fee
	m.stats.ByExitReason[rec.ExitReason]++
}

// Stats returns a copy of the session statistics.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.stats
	out.ByExitReason = make(map[domain.ExitReason]int, len(m.stats.ByExitReason))
	for k, v := range m.stats.ByExitReason {
		out.ByExitReason[k] = v
	}
	return out
}

func (m *Manager) publish(ctx context.Context, channel string, payload any) {
	if m.bus == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := m.bus.Publish(ctx, channel, b); err != nil {
		m.logger.Warn("event publish failed", "channel", channel, "error", err)
	}
}
