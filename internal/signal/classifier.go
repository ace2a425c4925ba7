package signal

import (
	"math"
	"time"

	"github.com/ktrade/whaleflow/internal/domain"
)

// features are the derived inputs the classifier scores against. They are
// computed once per tick from the snapshot and history.
type features struct {
	obi      float64
	vpin     float64
	whaleNet float64
	funding  float64
	chg1m    float64 // mid-price change % over ~1 minute
	chg5m    float64 // mid-price change % over ~5 minutes
	volRatio float64 // newest volume vs rolling mean (0 when unknown)
	trendAvg float64 // mean of multi-timeframe trend scores (0 when absent)
}

func extractFeatures(snap domain.MarketSnapshot, hist *History) features {
	f := features{
		obi:      snap.OBI,
		vpin:     snap.VPIN,
		whaleNet: snap.WhaleNetQty,
		funding:  snap.FundingRate,
	}
	if chg, ok := hist.ChangePct(time.Minute); ok {
		f.chg1m = chg
	}
	if chg, ok := hist.ChangePct(5 * time.Minute); ok {
		f.chg5m = chg
	}
	if vr, ok := hist.VolumeRatio(); ok {
		f.volRatio = vr
	}
	if snap.Trend != nil {
		f.trendAvg = (snap.Trend.M1 + snap.Trend.M5 + snap.Trend.M15 + snap.Trend.H1) / 4
	}
	return f
}

// classify scores every candidate strategy against the current features and
// converts the scores to independent probabilities. The probabilities are
// per-strategy match estimates and intentionally do not sum to one:
// contradictory regimes are allowed to score high at the same time and are
// reconciled by the entry gate, not here.
func classify(f features) (domain.Strategy, float64, map[domain.Strategy]float64) {
	scores := make(map[domain.Strategy]float64, len(domain.Strategies))

	// Quiet book, low toxicity, whales accumulating into flat price.
	acc := 0.0
	if math.Abs(f.obi) <= 0.3 {
		acc += 15
	}
	if f.vpin < 0.4 {
		acc += 15
	}
	if f.whaleNet > 0 {
		acc += 20
	}
	if f.whaleNet >= whaleStrongQty {
		acc += 10
	}
	if math.Abs(f.chg5m) <= 0.5 && f.volRatio > 1.2 {
		acc += 20 // volume up, price flat
	}
	if f.funding < 0 {
		acc += 10
	}
	scores[domain.StrategyAccumulation] = acc

	// Uptrend pullback being bought.
	reacc := 0.0
	if f.trendAvg > 0 {
		reacc += 20
	}
	if f.chg5m < -0.3 {
		reacc += 20
	}
	if f.whaleNet > 0 {
		reacc += 20
	}
	if f.obi > 0 {
		reacc += 15
	}
	if f.vpin < 0.5 {
		reacc += 10
	}
	scores[domain.StrategyReAccumulation] = reacc

	// Mirror of accumulation: quiet tape, whales unloading.
	dist := 0.0
	if math.Abs(f.obi) <= 0.3 {
		dist += 15
	}
	if f.vpin > 0.5 {
		dist += 15
	}
	if f.whaleNet < 0 {
		dist += 20
	}
	if f.whaleNet <= -whaleStrongQty {
		dist += 10
	}
	if math.Abs(f.chg5m) <= 0.5 && f.volRatio > 1.2 {
		dist += 20
	}
	if f.funding > 0 {
		dist += 10
	}
	scores[domain.StrategyDistribution] = dist

	// Downtrend bounce being sold.
	redist := 0.0
	if f.trendAvg < 0 {
		redist += 20
	}
	if f.chg5m > 0.3 {
		redist += 20
	}
	if f.whaleNet < 0 {
		redist += 20
	}
	if f.obi < 0 {
		redist += 15
	}
	if f.vpin < 0.5 {
		redist += 10
	}
	scores[domain.StrategyReDistribution] = redist

	// Price breaking down while whales buy into it.
	bearTrap := 0.0
	if f.obi < 0 {
		bearTrap += 10
	}
	if f.whaleNet > 0 {
		bearTrap += 25
	}
	if f.chg1m < -0.3 {
		bearTrap += 20
	}
	if f.vpin > 0.4 {
		bearTrap += 10
	}
	if f.funding < 0 {
		bearTrap += 10
	}
	scores[domain.StrategyBearTrap] = bearTrap

	// Price breaking up while whales sell into it.
	bullTrap := 0.0
	if f.obi > 0 {
		bullTrap += 10
	}
	if f.whaleNet < 0 {
		bullTrap += 25
	}
	if f.chg1m > 0.3 {
		bullTrap += 20
	}
	if f.vpin > 0.4 {
		bullTrap += 10
	}
	if f.funding > 0 {
		bullTrap += 10
	}
	scores[domain.StrategyBullTrap] = bullTrap

	// Fast move against the slower trend on thin volume.
	fakeout := 0.0
	if math.Abs(f.chg1m) > 0.3 && f.chg1m*f.chg5m < 0 {
		fakeout += 35
	}
	if f.volRatio > 0 && f.volRatio < 1 {
		fakeout += 20
	}
	if math.Abs(f.whaleNet) < whaleWeakQty {
		fakeout += 15
	}
	scores[domain.StrategyFakeout] = fakeout

	// Violent wick through a level on a toxic tape.
	stopHunt := 0.0
	if math.Abs(f.chg1m) > 0.5 {
		stopHunt += 25
	}
	if f.vpin > 0.6 {
		stopHunt += 25
	}
	if f.volRatio > 2 {
		stopHunt += 15
	}
	scores[domain.StrategyStopHunt] = stopHunt

	// Both timeframes whipping in opposite directions.
	whipsaw := 0.0
	if f.chg1m*f.chg5m < 0 && math.Abs(f.chg1m) > 0.3 && math.Abs(f.chg5m) > 0.3 {
		whipsaw += 30
	}
	if f.vpin >= 0.3 && f.vpin <= 0.6 {
		whipsaw += 15
	}
	if math.Abs(f.obi) < 0.4 {
		whipsaw += 10
	}
	scores[domain.StrategyWhipsaw] = whipsaw

	// Instant collapse on a volume spike.
	flash := 0.0
	if f.chg1m < -1.0 {
		flash += 40
	}
	if f.volRatio > 3 {
		flash += 20
	}
	if f.vpin > 0.5 {
		flash += 15
	}
	scores[domain.StrategyFlashCrash] = flash

	// Grinding lower on fading volume with no whale support.
	bleed := 0.0
	if f.chg5m <= -0.05 && f.chg5m >= -0.5 {
		bleed += 25
	}
	if f.volRatio > 0 && f.volRatio < 0.8 {
		bleed += 20
	}
	if f.whaleNet <= 0 {
		bleed += 15
	}
	if f.obi < 0 {
		bleed += 10
	}
	scores[domain.StrategySlowBleed] = bleed

	// Sharp down-move while crowded longs pay funding.
	longSqueeze := 0.0
	if f.chg1m < -0.5 {
		longSqueeze += 25
	}
	if f.funding >= fundingBias {
		longSqueeze += 25
	}
	if f.vpin > 0.5 {
		longSqueeze += 15
	}
	if f.obi < -0.3 {
		longSqueeze += 10
	}
	scores[domain.StrategyLongSqueeze] = longSqueeze

	// Sharp up-move while crowded shorts pay funding.
	shortSqueeze := 0.0
	if f.chg1m > 0.5 {
		shortSqueeze += 25
	}
	if f.funding <= -fundingBias {
		shortSqueeze += 25
	}
	if f.vpin > 0.5 {
		shortSqueeze += 15
	}
	if f.obi > 0.3 {
		shortSqueeze += 10
	}
	scores[domain.StrategyShortSqueeze] = shortSqueeze

	// Vertical rally on huge volume with whales exiting into it.
	pumpDump := 0.0
	if f.obi > 0.3 {
		pumpDump += 15
	}
	if f.vpin > 0.5 {
		pumpDump += 20
	}
	if f.volRatio > 3 {
		pumpDump += 20
	}
	if f.chg5m > 1 {
		pumpDump += 15
	}
	if f.whaleNet < 0 && f.obi > 0 {
		pumpDump += 15 // flow and book disagree
	}
	scores[domain.StrategyPumpDump] = pumpDump

	// Everything aligned with the prevailing trend.
	push := 0.0
	if math.Abs(f.chg5m) > 0.3 && f.trendAvg*f.chg5m > 0 {
		push += 25
	}
	if f.whaleNet*f.chg5m > 0 {
		push += 20
	}
	if f.volRatio > 1.5 {
		push += 15
	}
	if f.vpin < 0.5 {
		push += 10
	}
	scores[domain.StrategyMomentumPush] = push

	// NORMAL soaks up what is left when nothing matched convincingly.
	maxScore := 0.0
	for _, s := range domain.Strategies {
		if s == domain.StrategyNormal {
			continue
		}
		if scores[s] > maxScore {
			maxScore = scores[s]
		}
	}
	if maxScore < 40 {
		scores[domain.StrategyNormal] = 60
	} else {
		scores[domain.StrategyNormal] = math.Max(0, 40-maxScore/2)
	}

	probs := make(map[domain.Strategy]float64, len(scores))
	primary := domain.StrategyNormal
	best := -1.0
	for _, s := range domain.Strategies {
		p := math.Min(1, scores[s]/100)
		probs[s] = p
		if p > best {
			best = p
			primary = s
		}
	}
	return primary, best, probs
}
