package risk

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/ktrade/whaleflow/internal/config"
	"github.com/ktrade/whaleflow/internal/domain"
)

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		StopLossPct:              12.0,
		TakeProfitPct:            10.0,
		NoMomentumProfitFloorPct: 1.0,
		NoMomentumTriggerPct:     5.0,
		ProfitProtectTriggerPct:  4.0,
		TrailingLockTriggerPct:   0.5,
		TrailingDistancePct:      0.3,
		MaxHoldSeconds:           1800,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var entryTime = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

// longPosition marks a 10x long from 100 to the given mid, the way the
// position manager does before calling Evaluate.
func longPosition(mid, maxFavorable, maxAdverse float64) (domain.Position, float64) {
	pos := domain.Position{
		TradeID:    "t-1",
		Symbol:     "BTCUSDT",
		Direction:  domain.DirectionLong,
		EntryPrice: 100,
		EntryTime:  entryTime,
		SizeUSD:    100,
		Leverage:   10,
		Status:     domain.PositionStatusOpen,
	}
	pos.CurrentPnLPct = pos.PnLPct(mid)
	pos.MaxFavorablePct = maxFavorable
	pos.MaxAdversePct = maxAdverse
	return pos, mid
}

func TestEvaluateStopLossFillsAtThreshold(t *testing.T) {
	c := New(testRiskConfig(), testLogger())
	// Reached the profit floor early, so the no-momentum stop stays out of
	// the way and the move to -13% hits the wide stop.
	pos, mid := longPosition(98.7, 1.5, -13)

	v := c.Evaluate(pos, mid, entryTime.Add(time.Minute))
	if !v.Exit || v.Reason != domain.ExitReasonStopLoss {
		t.Fatalf("verdict = %+v, want SL exit", v)
	}
	// Fill at the -12% threshold price, not the observed mid.
	if math.Abs(v.ExitPrice-98.8) > 1e-9 {
		t.Errorf("ExitPrice = %v, want 98.8", v.ExitPrice)
	}
}

func TestEvaluateTakeProfitFillsAtThreshold(t *testing.T) {
	c := New(testRiskConfig(), testLogger())
	pos, mid := longPosition(101.05, 10.5, 0)

	v := c.Evaluate(pos, mid, entryTime.Add(time.Minute))
	if !v.Exit || v.Reason != domain.ExitReasonTakeProfit {
		t.Fatalf("verdict = %+v, want TP exit", v)
	}
	if math.Abs(v.ExitPrice-101.0) > 1e-9 {
		t.Errorf("ExitPrice = %v, want 101.0", v.ExitPrice)
	}
}

func TestEvaluateShortStopLoss(t *testing.T) {
	c := New(testRiskConfig(), testLogger())
	pos := domain.Position{
		TradeID:    "t-2",
		Symbol:     "BTCUSDT",
		Direction:  domain.DirectionShort,
		EntryPrice: 100,
		EntryTime:  entryTime,
		SizeUSD:    100,
		Leverage:   10,
	}
	mid := 101.25
	pos.CurrentPnLPct = pos.PnLPct(mid)
	pos.MaxFavorablePct = 1.5
	pos.MaxAdversePct = pos.CurrentPnLPct

	v := c.Evaluate(pos, mid, entryTime.Add(time.Minute))
	if !v.Exit || v.Reason != domain.ExitReasonStopLoss {
		t.Fatalf("verdict = %+v, want SL exit", v)
	}
	// For a short the -12% threshold sits above the entry.
	if math.Abs(v.ExitPrice-101.2) > 1e-9 {
		t.Errorf("ExitPrice = %v, want 101.2", v.ExitPrice)
	}
}

func TestEvaluateNoMomentumStopFillsAtTrigger(t *testing.T) {
	c := New(testRiskConfig(), testLogger())

	pos, mid := longPosition(99.45, 0.5, -5.5)
	v := c.Evaluate(pos, mid, entryTime.Add(time.Minute))
	if !v.Exit || v.Reason != domain.ExitReasonNoMomentumStop {
		t.Fatalf("verdict = %+v, want NO_MOMENTUM_STOP", v)
	}
	// The loss is booked at the -5% trigger, not the observed mid.
	if math.Abs(v.ExitPrice-99.5) > 1e-9 {
		t.Errorf("ExitPrice = %v, want the trigger fill 99.5", v.ExitPrice)
	}

	// A trade that did reach the profit floor is not a no-momentum case.
	pos, mid = longPosition(99.45, 1.5, -5.5)
	if v := c.Evaluate(pos, mid, entryTime.Add(time.Minute)); v.Reason == domain.ExitReasonNoMomentumStop {
		t.Error("position that saw profit must not trip the no-momentum stop")
	}
}

func TestEvaluateNoMomentumStopGapPastTrigger(t *testing.T) {
	c := New(testRiskConfig(), testLogger())

	// The mid gapped well past the trigger between ticks. The fill stays at
	// the -5% level so the booked loss never exceeds what the rule promises.
	pos, mid := longPosition(99.3, 0.5, -7)
	v := c.Evaluate(pos, mid, entryTime.Add(time.Minute))
	if !v.Exit || v.Reason != domain.ExitReasonNoMomentumStop {
		t.Fatalf("verdict = %+v, want NO_MOMENTUM_STOP", v)
	}
	if math.Abs(v.ExitPrice-99.5) > 1e-9 {
		t.Errorf("ExitPrice = %v, want the trigger fill 99.5", v.ExitPrice)
	}
}

func TestEvaluateProfitProtectExitsAtBreakeven(t *testing.T) {
	c := New(testRiskConfig(), testLogger())

	// Was up 4.5%, round-tripped to slightly negative.
	pos, mid := longPosition(99.98, 4.5, -0.2)
	v := c.Evaluate(pos, mid, entryTime.Add(time.Minute))
	if !v.Exit || v.Reason != domain.ExitReasonProfitProtect {
		t.Fatalf("verdict = %+v, want PROFIT_PROTECT", v)
	}
	if math.Abs(v.ExitPrice-100) > 1e-9 {
		t.Errorf("ExitPrice = %v, want breakeven 100", v.ExitPrice)
	}
}

func TestEvaluateTrailingLock(t *testing.T) {
	c := New(testRiskConfig(), testLogger())

	// Peaked at 1.0%, gave back to 0.6% which is past the 0.3% distance.
	pos, mid := longPosition(100.06, 1.0, 0)
	v := c.Evaluate(pos, mid, entryTime.Add(time.Minute))
	if !v.Exit || v.Reason != domain.ExitReasonTrailingLock {
		t.Fatalf("verdict = %+v, want TRAILING_LOCK", v)
	}
	if v.ExitPrice != mid {
		t.Errorf("ExitPrice = %v, want observed mid %v", v.ExitPrice, mid)
	}

	// Still within the trailing distance: hold.
	pos, mid = longPosition(100.08, 1.0, 0)
	if v := c.Evaluate(pos, mid, entryTime.Add(time.Minute)); v.Exit {
		t.Errorf("verdict = %+v, want hold inside the trailing distance", v)
	}
}

func TestEvaluateTimeStop(t *testing.T) {
	c := New(testRiskConfig(), testLogger())
	pos, mid := longPosition(100.01, 0.1, 0)

	if v := c.Evaluate(pos, mid, entryTime.Add(1799*time.Second)); v.Exit {
		t.Errorf("verdict = %+v, want hold before max hold time", v)
	}
	v := c.Evaluate(pos, mid, entryTime.Add(1800*time.Second))
	if !v.Exit || v.Reason != domain.ExitReasonTimeStop {
		t.Fatalf("verdict = %+v, want TIME_STOP at max hold time", v)
	}
	if v.ExitPrice != mid {
		t.Errorf("ExitPrice = %v, want observed mid %v", v.ExitPrice, mid)
	}
}

func TestEvaluateHold(t *testing.T) {
	c := New(testRiskConfig(), testLogger())
	pos, mid := longPosition(100.01, 0.1, -0.1)
	if v := c.Evaluate(pos, mid, entryTime.Add(time.Minute)); v.Exit {
		t.Errorf("verdict = %+v, want hold", v)
	}
}

func TestEvaluatePriorityStopLossFirst(t *testing.T) {
	c := New(testRiskConfig(), testLogger())

	// Both the stop loss and the no-momentum stop qualify; the stop loss
	// outranks it and sets the fill.
	pos, mid := longPosition(98.7, 0, -13)
	v := c.Evaluate(pos, mid, entryTime.Add(time.Minute))
	if v.Reason != domain.ExitReasonStopLoss {
		t.Errorf("Reason = %s, want SL to win the ladder", v.Reason)
	}
	if math.Abs(v.ExitPrice-98.8) > 1e-9 {
		t.Errorf("ExitPrice = %v, want the stop fill 98.8", v.ExitPrice)
	}
}
