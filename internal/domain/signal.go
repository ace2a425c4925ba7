package domain

import "time"

// Direction is the side a signal or position points at.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionNone  Direction = "NONE"
)

// Strategy labels the microstructure regime detected by the classifier.
type Strategy string

const (
	StrategyAccumulation   Strategy = "ACCUMULATION"
	StrategyReAccumulation Strategy = "RE_ACCUMULATION"
	StrategyDistribution   Strategy = "DISTRIBUTION"
	StrategyReDistribution Strategy = "RE_DISTRIBUTION"
	StrategyBearTrap       Strategy = "BEAR_TRAP"
	StrategyBullTrap       Strategy = "BULL_TRAP"
	StrategyFakeout        Strategy = "FAKEOUT"
	StrategyStopHunt       Strategy = "STOP_HUNT"
	StrategyWhipsaw        Strategy = "WHIPSAW"
	StrategyFlashCrash     Strategy = "FLASH_CRASH"
	StrategySlowBleed      Strategy = "SLOW_BLEED"
	StrategyLongSqueeze    Strategy = "LONG_SQUEEZE"
	StrategyShortSqueeze   Strategy = "SHORT_SQUEEZE"
	StrategyPumpDump       Strategy = "PUMP_DUMP"
	StrategyMomentumPush   Strategy = "MOMENTUM_PUSH"
	StrategyNormal         Strategy = "NORMAL"
)

// Strategies lists every classifier label in a fixed order. Iteration over
// this slice (never over a map) keeps signal computation deterministic.
var Strategies = []Strategy{
	StrategyAccumulation,
	StrategyReAccumulation,
	StrategyDistribution,
	StrategyReDistribution,
	StrategyBearTrap,
	StrategyBullTrap,
	StrategyFakeout,
	StrategyStopHunt,
	StrategyWhipsaw,
	StrategyFlashCrash,
	StrategySlowBleed,
	StrategyLongSqueeze,
	StrategyShortSqueeze,
	StrategyPumpDump,
	StrategyMomentumPush,
	StrategyNormal,
}

// StrategySignal is the signal engine's output for one tick. Probabilities
// are independent per-strategy estimates and deliberately do not sum to 1:
// conflicting regimes (e.g. ACCUMULATION 0.8 and BULL_TRAP 0.6) are both
// tracked and reconciled later by the entry gate.
type StrategySignal struct {
	Symbol          string               `json:"symbol"`
	Timestamp       time.Time            `json:"timestamp"`
	Direction       Direction            `json:"direction"`
	PrimaryStrategy Strategy             `json:"primary_strategy"`
	Probability     float64              `json:"probability"`
	StrategyProbs   map[Strategy]float64 `json:"strategy_probs"`
	SixDimLong      int                  `json:"six_dim_long_score"`  // [0, 12]
	SixDimShort     int                  `json:"six_dim_short_score"` // [0, 12]
	Degraded        bool                 `json:"degraded,omitempty"`  // set when input data was incomplete
}

// EntryOrder is an accepted entry decision produced by the gate. The signal
// and snapshot are captured verbatim so the position can journal the exact
// entry-time features for later calibration.
type EntryOrder struct {
	Direction  Direction
	SizeUSD    float64
	Leverage   int
	EntryPrice float64
	Signal     StrategySignal
	Snapshot   MarketSnapshot
}
