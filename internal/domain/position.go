package domain

import "time"

// PositionStatus tracks whether a position is open or closed.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
)

// ExitReason is the closed enum of reasons a position may be closed. Every
// journaled trade carries exactly one of these.
type ExitReason string

const (
	ExitReasonStopLoss       ExitReason = "SL"
	ExitReasonTakeProfit     ExitReason = "TP"
	ExitReasonTrailingLock   ExitReason = "TRAILING_LOCK"
	ExitReasonNoMomentumStop ExitReason = "NO_MOMENTUM_STOP"
	ExitReasonProfitProtect  ExitReason = "PROFIT_PROTECT"
	ExitReasonTimeStop       ExitReason = "TIME_STOP"
	ExitReasonForcedEnd      ExitReason = "FORCED_END"
)

// ValidExitReason reports whether r is a member of the closed exit reason set.
func ValidExitReason(r ExitReason) bool {
	switch r {
	case ExitReasonStopLoss, ExitReasonTakeProfit, ExitReasonTrailingLock,
		ExitReasonNoMomentumStop, ExitReasonProfitProtect,
		ExitReasonTimeStop, ExitReasonForcedEnd:
		return true
	}
	return false
}

// Position is the single mutable trading entity. At most one OPEN position
// exists per symbol at any time; the position manager owns it from entry
// until it is closed and flushed to the trade journal.
type Position struct {
	TradeID    string
	Symbol     string
	Direction  Direction
	EntryPrice float64
	EntryTime  time.Time
	SizeUSD    float64
	Leverage   int

	// Entry-time feature snapshot, copied verbatim for calibration.
	EntrySignal   StrategySignal
	EntrySnapshot MarketSnapshot

	Status     PositionStatus
	ExitPrice  float64
	ExitTime   time.Time
	ExitReason ExitReason

	// Running extrema of leveraged unrealized PnL%, updated every tick.
	MaxFavorablePct float64
	MaxAdversePct   float64
	CurrentPnLPct   float64

	NetPnLUSD float64
}

// PnLPct returns the leveraged unrealized PnL percentage at the given mid
// price. Positive is favorable for the position's direction.
func (p Position) PnLPct(mid float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	raw := (mid - p.EntryPrice) / p.EntryPrice
	if p.Direction == DirectionShort {
		raw = -raw
	}
	return raw * float64(p.Leverage) * 100
}

// PriceAtPnLPct inverts PnLPct: the mid price at which the position's
// leveraged PnL equals pnlPct. Used to fill exits exactly at a rule's
// threshold rather than at whatever price the tick happened to observe.
func (p Position) PriceAtPnLPct(pnlPct float64) float64 {
	raw := pnlPct / 100 / float64(p.Leverage)
	if p.Direction == DirectionShort {
		raw = -raw
	}
	return p.EntryPrice * (1 + raw)
}

// HoldDuration returns how long the position has been held as of now.
func (p Position) HoldDuration(now time.Time) time.Duration {
	return now.Sub(p.EntryTime)
}
