package signal

import (
	"log/slog"

	"github.com/ktrade/whaleflow/internal/config"
	"github.com/ktrade/whaleflow/internal/domain"
)

// Engine turns market snapshots into directional strategy signals. It keeps a
// bounded history of recent snapshots for momentum and volume features and is
// otherwise stateless: the same snapshot sequence always yields the same
// signal sequence.
//
// Engine is not safe for concurrent use; the trader loop is its only caller.
type Engine struct {
	cfg    config.SixDimConfig
	hist   *History
	logger *slog.Logger
}

// NewEngine creates a signal engine with the given eligibility thresholds.
// historySize bounds the snapshot ring buffer; it should cover at least the
// longest momentum lookback at the configured tick interval.
func NewEngine(cfg config.SixDimConfig, historySize int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		hist:   NewHistory(historySize),
		logger: logger.With("component", "signal_engine"),
	}
}

// ComputeSignal evaluates one snapshot and returns the resulting signal.
//
// Invalid snapshots (zero timestamp, non-positive prices, NaN fields) never
// reach the scorer: the engine fails soft, returning a degraded NONE signal
// so the trader keeps ticking while the feed recovers.
func (e *Engine) ComputeSignal(snap domain.MarketSnapshot) domain.StrategySignal {
	if !snap.Valid() {
		e.logger.Warn("degraded snapshot, emitting no-direction signal",
			"symbol", snap.Symbol,
			"timestamp", snap.Timestamp,
		)
		return domain.StrategySignal{
			Symbol:          snap.Symbol,
			Timestamp:       snap.Timestamp,
			Direction:       domain.DirectionNone,
			PrimaryStrategy: domain.StrategyNormal,
			Degraded:        true,
		}
	}

	e.hist.Add(snap)

	dims := scoreSixDim(snap, e.hist)
	long, short := dims.totals()

	primary, prob, probs := classify(extractFeatures(snap, e.hist))

	dir := e.direction(long, short)

	sig := domain.StrategySignal{
		Symbol:          snap.Symbol,
		Timestamp:       snap.Timestamp,
		Direction:       dir,
		PrimaryStrategy: primary,
		Probability:     prob,
		StrategyProbs:   probs,
		SixDimLong:      long,
		SixDimShort:     short,
	}

	if dir != domain.DirectionNone {
		e.logger.Info("directional signal",
			"symbol", snap.Symbol,
			"direction", dir,
			"strategy", primary,
			"probability", prob,
			"six_dim_long", long,
			"six_dim_short", short,
		)
	}
	return sig
}

// direction applies the asymmetric eligibility minimums. When both sides
// qualify the higher total wins; an exact tie yields no direction.
func (e *Engine) direction(long, short int) domain.Direction {
	longOK := long >= e.cfg.MinScoreLong
	shortOK := short >= e.cfg.MinScoreShort
	switch {
	case longOK && shortOK:
		if long > short {
			return domain.DirectionLong
		}
		if short > long {
			return domain.DirectionShort
		}
		return domain.DirectionNone
	case longOK:
		return domain.DirectionLong
	case shortOK:
		return domain.DirectionShort
	default:
		return domain.DirectionNone
	}
}

// HistoryLen reports how many snapshots the engine has accumulated. Exposed
// for the status endpoint.
func (e *Engine) HistoryLen() int { return e.hist.Len() }
