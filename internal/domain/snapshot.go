package domain

import (
	"math"
	"time"
)

// TrendScores carries the multi-timeframe trend readings supplied by the
// market data feed. Values are signed: positive means the timeframe is
// trending up, negative down, zero flat or unknown.
type TrendScores struct {
	M1  float64 `json:"m1"`
	M5  float64 `json:"m5"`
	M15 float64 `json:"m15"`
	H1  float64 `json:"h1"`
}

// MarketSnapshot is one immutable observation of the market produced per
// polling tick. It is created by the feed layer, consumed by the signal
// engine, and never mutated after construction.
type MarketSnapshot struct {
	Symbol      string       `json:"symbol"`
	Timestamp   time.Time    `json:"timestamp"`
	MidPrice    float64      `json:"mid_price"`
	BestBid     float64      `json:"best_bid"`
	BestAsk     float64      `json:"best_ask"`
	OBI         float64      `json:"obi"`           // signed order book imbalance, roughly [-1, 1]
	VPIN        float64      `json:"vpin"`          // flow toxicity estimate, [0, 1]
	WhaleNetQty float64      `json:"whale_net_qty"` // net large-trade flow in base units
	FundingRate float64      `json:"funding_rate"`
	Volume      float64      `json:"volume,omitempty"` // rolling traded volume, optional
	Trend       *TrendScores `json:"trend,omitempty"`  // optional multi-timeframe trend
}

// Valid reports whether the snapshot carries every required field with a
// usable value. Snapshots failing this check must cause the tick to be
// skipped or the signal to degrade to NONE, never a tradeable signal.
func (s MarketSnapshot) Valid() bool {
	if s.Timestamp.IsZero() || s.MidPrice <= 0 {
		return false
	}
	for _, v := range []float64{s.MidPrice, s.BestBid, s.BestAsk, s.OBI, s.VPIN, s.WhaleNetQty, s.FundingRate} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Age returns how old the snapshot is relative to now.
func (s MarketSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}
