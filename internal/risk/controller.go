package risk

import (
	"log/slog"
	"time"

	"github.com/ktrade/whaleflow/internal/config"
	"github.com/ktrade/whaleflow/internal/domain"
)

// Verdict is the controller's decision for one tick. When Exit is true the
// position must be closed at ExitPrice with Reason; otherwise the position
// stays open.
type Verdict struct {
	Exit      bool
	Reason    domain.ExitReason
	ExitPrice float64
}

// Controller applies the exit rule ladder to an open position. Rules are
// checked in a fixed priority order every tick; the first rule that fires
// determines both the exit reason and the fill price. Threshold rules fill at
// the exact threshold price rather than the observed mid, so slower tick
// intervals do not inflate losses or profits past their configured bounds.
type Controller struct {
	cfg    config.RiskConfig
	logger *slog.Logger
}

// New creates a risk controller with the given exit thresholds.
func New(cfg config.RiskConfig, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{cfg: cfg, logger: logger.With("component", "risk_controller")}
}

// Evaluate runs the exit ladder against pos at the current mid price. The
// position's running extrema (MaxFavorablePct, MaxAdversePct, CurrentPnLPct)
// must already reflect this tick; the position manager updates them before
// calling Evaluate.
//
// Priority order: stop loss, take profit, no-momentum stop, profit protect,
// trailing lock, time stop.
func (c *Controller) Evaluate(pos domain.Position, mid float64, now time.Time) Verdict {
	pnl := pos.CurrentPnLPct

	// 1. Stop loss.
	if pnl <= -c.cfg.StopLossPct {
		return c.verdict(pos, domain.ExitReasonStopLoss, pos.PriceAtPnLPct(-c.cfg.StopLossPct))
	}

	// 2. Take profit.
	if pnl >= c.cfg.TakeProfitPct {
		return c.verdict(pos, domain.ExitReasonTakeProfit, pos.PriceAtPnLPct(c.cfg.TakeProfitPct))
	}

	// 3. No-momentum stop: the position never got going and has bled past
	// the adverse trigger. Books the loss at the trigger level instead of
	// riding it to the wide stop.
	if pos.MaxFavorablePct < c.cfg.NoMomentumProfitFloorPct &&
		pos.MaxAdversePct <= -c.cfg.NoMomentumTriggerPct {
		return c.verdict(pos, domain.ExitReasonNoMomentumStop, pos.PriceAtPnLPct(-c.cfg.NoMomentumTriggerPct))
	}

	// 4. Profit protect: a trade that was well in profit has round-tripped
	// to flat. Exit at breakeven instead of letting it turn into a loser.
	if pos.MaxFavorablePct >= c.cfg.ProfitProtectTriggerPct && pnl <= 0 {
		return c.verdict(pos, domain.ExitReasonProfitProtect, pos.PriceAtPnLPct(0))
	}

	// 5. Trailing lock: once armed by the trigger, exit when price gives
	// back more than the trailing distance from the favorable extreme.
	if pos.MaxFavorablePct >= c.cfg.TrailingLockTriggerPct &&
		pnl <= pos.MaxFavorablePct-c.cfg.TrailingDistancePct {
		return c.verdict(pos, domain.ExitReasonTrailingLock, mid)
	}

	// 6. Time stop.
	if pos.HoldDuration(now) >= time.Duration(c.cfg.MaxHoldSeconds)*time.Second {
		return c.verdict(pos, domain.ExitReasonTimeStop, mid)
	}

	return Verdict{}
}

func (c *Controller) verdict(pos domain.Position, reason domain.ExitReason, price float64) Verdict {
	c.logger.Info("exit rule fired",
		"trade_id", pos.TradeID,
		"symbol", pos.Symbol,
		"reason", reason,
		"exit_price", price,
		"pnl_pct", pos.CurrentPnLPct,
		"max_favorable_pct", pos.MaxFavorablePct,
		"max_adverse_pct", pos.MaxAdversePct,
	)
	return Verdict{Exit: true, Reason: reason, ExitPrice: price}
}
