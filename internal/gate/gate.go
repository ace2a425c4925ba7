package gate

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ktrade/whaleflow/internal/config"
	"github.com/ktrade/whaleflow/internal/domain"
)

// opposing maps each tradable direction to the classifier labels that argue
// against entering on that side. A strong showing from any of these means the
// tape is contested and the entry is skipped.
var opposing = map[domain.Direction][]domain.Strategy{
	domain.DirectionLong: {
		domain.StrategyDistribution,
		domain.StrategyReDistribution,
		domain.StrategyBullTrap,
		domain.StrategyLongSqueeze,
		domain.StrategyPumpDump,
		domain.StrategySlowBleed,
	},
	domain.DirectionShort: {
		domain.StrategyAccumulation,
		domain.StrategyReAccumulation,
		domain.StrategyBearTrap,
		domain.StrategyShortSqueeze,
		domain.StrategyFlashCrash,
	},
}

// Decision is the gate's verdict for one signal. When Accepted is false,
// Reason holds a short machine-friendly explanation for logs and the status
// endpoint.
type Decision struct {
	Accepted bool
	Reason   string
}

func reject(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// Gate decides whether a directional signal becomes a position. It applies a
// fixed sequence of rejection rules; the first rule that fires wins, so the
// logged reason always names the earliest blocker.
type Gate struct {
	cfg       config.EntryConfig
	positions domain.PositionStore
	logger    *slog.Logger
}

// New creates a Gate.
func New(cfg config.EntryConfig, positions domain.PositionStore, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		cfg:       cfg,
		positions: positions,
		logger:    logger.With("component", "entry_gate"),
	}
}

// Check runs the signal through every entry rule in order and returns the
// first rejection, or an accepted decision when all rules pass. snap is the
// snapshot the signal was computed from; the OBI band rule reads it directly
// so the gate and the journaled trade record always agree on entry features.
// now is the decision clock for the excluded-hours rule, supplied by the
// caller so replayed sessions evaluate against the recorded time.
func (g *Gate) Check(sig domain.StrategySignal, snap domain.MarketSnapshot, now time.Time) Decision {
	d := g.evaluate(sig, snap, now)
	if !d.Accepted {
		g.logger.Debug("entry rejected",
			"symbol", sig.Symbol,
			"direction", sig.Direction,
			"strategy", sig.PrimaryStrategy,
			"reason", d.Reason,
		)
	} else {
		g.logger.Info("entry accepted",
			"symbol", sig.Symbol,
			"direction", sig.Direction,
			"strategy", sig.PrimaryStrategy,
			"probability", sig.Probability,
		)
	}
	return d
}

func (g *Gate) evaluate(sig domain.StrategySignal, snap domain.MarketSnapshot, now time.Time) Decision {
	if g.positions.OpenCount() > 0 {
		return reject("position_open")
	}
	if sig.Direction == domain.DirectionNone {
		return reject("no_direction")
	}
	if sig.Degraded {
		return reject("degraded_signal")
	}
	if sig.Probability < g.cfg.ProbMin {
		return reject("prob_below_min: %.2f < %.2f", sig.Probability, g.cfg.ProbMin)
	}
	if sig.Probability > g.cfg.ProbMax {
		return reject("prob_above_max: %.2f > %.2f", sig.Probability, g.cfg.ProbMax)
	}
	if d := g.checkConflict(sig); !d.Accepted {
		return d
	}
	if d := g.checkOBI(sig.Direction, snap.OBI); !d.Accepted {
		return d
	}
	if hour := now.UTC().Hour(); g.hourExcluded(hour) {
		return reject("excluded_hour: %02d UTC", hour)
	}
	return Decision{Accepted: true}
}

// checkConflict is the chaos filter. It sums the probabilities of every
// opposing strategy that clears the conflict floor; when that opposing mass
// exceeds ConflictRatio of the primary probability the book is contested and
// the entry is rejected.
func (g *Gate) checkConflict(sig domain.StrategySignal) Decision {
	var sum float64
	for _, s := range opposing[sig.Direction] {
		if p := sig.StrategyProbs[s]; p >= g.cfg.MinConflictProb {
			sum += p
		}
	}
	if sum > sig.Probability*g.cfg.ConflictRatio {
		return reject("conflict: opposing %.2f > %.2f", sum, sig.Probability*g.cfg.ConflictRatio)
	}
	return Decision{Accepted: true}
}

// checkOBI enforces the per-direction order-book imbalance band.
func (g *Gate) checkOBI(dir domain.Direction, obi float64) Decision {
	switch dir {
	case domain.DirectionLong:
		if obi < g.cfg.OBILongMin || obi > g.cfg.OBILongMax {
			return reject("obi_out_of_band: %.3f not in [%.2f, %.2f]", obi, g.cfg.OBILongMin, g.cfg.OBILongMax)
		}
	case domain.DirectionShort:
		if obi < g.cfg.OBIShortMin || obi > g.cfg.OBIShortMax {
			return reject("obi_out_of_band: %.3f not in [%.2f, %.2f]", obi, g.cfg.OBIShortMin, g.cfg.OBIShortMax)
		}
	}
	return Decision{Accepted: true}
}

func (g *Gate) hourExcluded(hour int) bool {
	for _, h := range g.cfg.ExcludedHours {
		if h == hour {
			return true
		}
	}
	return false
}
