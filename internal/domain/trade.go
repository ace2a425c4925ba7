package domain

import "time"

// TradeRecord is the immutable journal entry written once per closed trade.
// The JSON field names form a stable schema parsed by offline calibration
// scripts; do not rename them.
type TradeRecord struct {
	TradeID        string               `json:"trade_id"`
	Symbol         string               `json:"symbol"`
	Direction      Direction            `json:"direction"`
	EntryTime      time.Time            `json:"entry_time"`
	EntryPrice     float64              `json:"entry_price"`
	ExitTime       time.Time            `json:"exit_time"`
	ExitPrice      float64              `json:"exit_price"`
	SizeUSD        float64              `json:"size_usd"`
	Leverage       int                  `json:"leverage"`
	Strategy       Strategy             `json:"strategy"`
	Probability    float64              `json:"probability"`
	StrategyProbs  map[Strategy]float64 `json:"strategy_probs"`
	OBI            float64              `json:"obi"`
	MaxProfitPct   float64              `json:"max_profit_pct"`
	MaxDrawdownPct float64              `json:"max_drawdown_pct"`
	NetPnLUSD      float64              `json:"net_pnl_usd"`
	ExitReason     ExitReason           `json:"exit_reason"`
	HoldSeconds    float64              `json:"hold_seconds"`
}

// NewTradeRecord builds the journal entry from a closed position. The
// entry-time feature snapshot is copied from the position verbatim, never
// recomputed.
func NewTradeRecord(p Position) TradeRecord {
	probs := make(map[Strategy]float64, len(p.EntrySignal.StrategyProbs))
	for k, v := range p.EntrySignal.StrategyProbs {
		probs[k] = v
	}
	return TradeRecord{
		TradeID:        p.TradeID,
		Symbol:         p.Symbol,
		Direction:      p.Direction,
		EntryTime:      p.EntryTime,
		EntryPrice:     p.EntryPrice,
		ExitTime:       p.ExitTime,
		ExitPrice:      p.ExitPrice,
		SizeUSD:        p.SizeUSD,
		Leverage:       p.Leverage,
		Strategy:       p.EntrySignal.PrimaryStrategy,
		Probability:    p.EntrySignal.Probability,
		StrategyProbs:  probs,
		OBI:            p.EntrySnapshot.OBI,
		MaxProfitPct:   p.MaxFavorablePct,
		MaxDrawdownPct: p.MaxAdversePct,
		NetPnLUSD:      p.NetPnLUSD,
		ExitReason:     p.ExitReason,
		HoldSeconds:    p.ExitTime.Sub(p.EntryTime).Seconds(),
	}
}
