package signal

import (
	"time"

	"github.com/ktrade/whaleflow/internal/domain"
)

// Fixed scoring thresholds for the six dimensions. These are structural
// constants of the scoring model, not calibration parameters; only the
// direction-eligibility minimums are configurable.
const (
	obiWeak   = 0.1
	obiStrong = 0.3

	whaleWeakQty   = 2.0  // base units of net whale flow for one point
	whaleStrongQty = 10.0 // for two points

	fundingBias = 0.0001 // funding magnitude treated as a real regime signal

	trendWeak   = 0.1
	trendStrong = 0.5

	vpinCalm  = 0.4 // below: low-toxicity regime
	vpinToxic = 0.7 // above: too toxic, no points either way

	momentum1mPct = 0.02
	momentum5mPct = 0.05
)

// sixDimScores is the per-dimension breakdown. Each dimension contributes
// 0-2 points to each side independently; the totals land in [0, 12].
type sixDimScores struct {
	OrderFlow  [2]int // [long, short]
	Whale      [2]int
	Funding    [2]int
	Trend      [2]int
	Volatility [2]int
	Momentum   [2]int
}

func (s sixDimScores) totals() (long, short int) {
	for _, d := range [][2]int{s.OrderFlow, s.Whale, s.Funding, s.Trend, s.Volatility, s.Momentum} {
		long += d[0]
		short += d[1]
	}
	return long, short
}

// scoreSixDim computes the six-dimension directional scores for the newest
// snapshot, using hist for the momentum dimension.
func scoreSixDim(snap domain.MarketSnapshot, hist *History) sixDimScores {
	var s sixDimScores

	// 1. Order-flow imbalance.
	switch {
	case snap.OBI >= obiStrong:
		s.OrderFlow[0] = 2
	case snap.OBI >= obiWeak:
		s.OrderFlow[0] = 1
	}
	switch {
	case snap.OBI <= -obiStrong:
		s.OrderFlow[1] = 2
	case snap.OBI <= -obiWeak:
		s.OrderFlow[1] = 1
	}

	// 2. Whale positioning.
	switch {
	case snap.WhaleNetQty >= whaleStrongQty:
		s.Whale[0] = 2
	case snap.WhaleNetQty >= whaleWeakQty:
		s.Whale[0] = 1
	}
	switch {
	case snap.WhaleNetQty <= -whaleStrongQty:
		s.Whale[1] = 2
	case snap.WhaleNetQty <= -whaleWeakQty:
		s.Whale[1] = 1
	}

	// 3. Funding bias. Positive funding means crowded longs paying shorts,
	// which leans bearish; negative leans bullish.
	switch {
	case snap.FundingRate <= -fundingBias:
		s.Funding[0] = 2
	case snap.FundingRate < 0:
		s.Funding[0] = 1
	}
	switch {
	case snap.FundingRate >= fundingBias:
		s.Funding[1] = 2
	case snap.FundingRate > 0:
		s.Funding[1] = 1
	}

	// 4. Short-term trend, when the feed supplies it.
	if snap.Trend != nil {
		avg := (snap.Trend.M1 + snap.Trend.M5 + snap.Trend.M15 + snap.Trend.H1) / 4
		switch {
		case avg >= trendStrong:
			s.Trend[0] = 2
		case avg >= trendWeak:
			s.Trend[0] = 1
		}
		switch {
		case avg <= -trendStrong:
			s.Trend[1] = 2
		case avg <= -trendWeak:
			s.Trend[1] = 1
		}
	}

	// 5. Volatility regime. Low toxicity lets the book pressure count; a
	// toxic tape (VPIN above vpinToxic) scores nothing either way.
	if snap.VPIN < vpinToxic {
		calm := snap.VPIN <= vpinCalm
		if snap.OBI > 0 {
			if calm && snap.OBI >= obiStrong {
				s.Volatility[0] = 2
			} else if calm {
				s.Volatility[0] = 1
			}
		}
		if snap.OBI < 0 {
			if calm && snap.OBI <= -obiStrong {
				s.Volatility[1] = 2
			} else if calm {
				s.Volatility[1] = 1
			}
		}
	}

	// 6. Momentum confirmation from the rolling history.
	if chg, ok := hist.ChangePct(time.Minute); ok {
		if chg >= momentum1mPct {
			s.Momentum[0]++
		}
		if chg <= -momentum1mPct {
			s.Momentum[1]++
		}
	}
	if chg, ok := hist.ChangePct(5 * time.Minute); ok {
		if chg >= momentum5mPct {
			s.Momentum[0]++
		}
		if chg <= -momentum5mPct {
			s.Momentum[1]++
		}
	}

	return s
}
