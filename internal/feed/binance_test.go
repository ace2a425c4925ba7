package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/ktrade/whaleflow/internal/config"
)

func newTestFeed(now time.Time) (*Binance, *Cell) {
	cell := NewCell(nil, 0)
	cfg := config.FeedConfig{
		WsHost:      "wss://fstream.binance.com",
		DepthLevels: 20,
		WhaleMinQty: 5,
	}
	f := NewBinance(cfg, "btcusdt", cell, func() time.Time { return now },
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f, cell
}

func aggTradeFrame(price string, qty string, ts time.Time, buyerIsMaker bool) []byte {
	return []byte(fmt.Sprintf(
		`{"stream":"btcusdt@aggTrade","data":{"p":%q,"q":%q,"T":%d,"m":%t}}`,
		price, qty, ts.UnixMilli(), buyerIsMaker))
}

func TestHandleMessageBuildsSnapshot(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	f, cell := newTestFeed(now)
	ctx := context.Background()

	// Aggressive buy of whale size, aggressive sell, small buy.
	f.handleMessage(ctx, aggTradeFrame("100.0", "6", now, false))
	f.handleMessage(ctx, aggTradeFrame("100.0", "2", now, true))
	f.handleMessage(ctx, aggTradeFrame("100.0", "1", now, false))

	f.handleMessage(ctx, []byte(`{"stream":"btcusdt@markPrice@1s","data":{"r":"0.00015"}}`))

	// No depth yet, so nothing published.
	if _, ok := cell.Latest(); ok {
		t.Fatal("no snapshot should be published before the first depth frame")
	}

	depth := `{"stream":"btcusdt@depth20@100ms","data":{"b":[["100.0","3"],["99.9","2"]],"a":[["100.2","1"],["100.3","1"]]}}`
	f.handleMessage(ctx, []byte(depth))

	snap, ok := cell.Latest()
	if !ok {
		t.Fatal("depth frame should publish a snapshot")
	}
	if snap.Symbol != "BTCUSDT" {
		t.Errorf("Symbol = %q, want BTCUSDT", snap.Symbol)
	}
	if snap.BestBid != 100.0 || snap.BestAsk != 100.2 {
		t.Errorf("book = (%v, %v), want (100.0, 100.2)", snap.BestBid, snap.BestAsk)
	}
	if math.Abs(snap.MidPrice-100.1) > 1e-9 {
		t.Errorf("MidPrice = %v, want 100.1", snap.MidPrice)
	}
	// (5 - 2) / (5 + 2) across both book sides.
	if math.Abs(snap.OBI-3.0/7.0) > 1e-9 {
		t.Errorf("OBI = %v, want %v", snap.OBI, 3.0/7.0)
	}
	// Only the 6-lot clears the whale threshold, on the buy side.
	if snap.WhaleNetQty != 6 {
		t.Errorf("WhaleNetQty = %v, want 6", snap.WhaleNetQty)
	}
	// |7 - 2| / 9 of tape one-sidedness.
	if math.Abs(snap.VPIN-5.0/9.0) > 1e-9 {
		t.Errorf("VPIN = %v, want %v", snap.VPIN, 5.0/9.0)
	}
	if snap.Volume != 9 {
		t.Errorf("Volume = %v, want 9", snap.Volume)
	}
	if snap.FundingRate != 0.00015 {
		t.Errorf("FundingRate = %v, want 0.00015", snap.FundingRate)
	}
	if !snap.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want the injected clock %v", snap.Timestamp, now)
	}
	if !snap.Valid() {
		t.Error("published snapshot must be valid")
	}
}

func TestTapePruning(t *testing.T) {
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	f, cell := newTestFeed(base)
	ctx := context.Background()

	f.handleMessage(ctx, aggTradeFrame("100.0", "8", base, true))
	// The next trade lands past the rolling window and evicts the first.
	f.handleMessage(ctx, aggTradeFrame("100.0", "6", base.Add(61*time.Second), false))

	depth := `{"stream":"btcusdt@depth20@100ms","data":{"b":[["100.0","1"]],"a":[["100.1","1"]]}}`
	f.handleMessage(ctx, []byte(depth))

	snap, ok := cell.Latest()
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if snap.WhaleNetQty != 6 {
		t.Errorf("WhaleNetQty = %v, want only the in-window buy", snap.WhaleNetQty)
	}
	if snap.Volume != 6 {
		t.Errorf("Volume = %v, want 6", snap.Volume)
	}
}

func TestHandleMessageDropsGarbage(t *testing.T) {
	f, cell := newTestFeed(time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	f.handleMessage(ctx, []byte(`not json`))
	f.handleMessage(ctx, []byte(`{"stream":"btcusdt@aggTrade","data":{"q":"-1"}}`))
	f.handleMessage(ctx, []byte(`{"stream":"btcusdt@depth20@100ms","data":{"b":[],"a":[]}}`))

	if _, ok := cell.Latest(); ok {
		t.Error("garbage frames must not publish a snapshot")
	}
}

func TestStreamURL(t *testing.T) {
	f, _ := newTestFeed(time.Now())
	want := "wss://fstream.binance.com/stream?streams=btcusdt@depth20@100ms/btcusdt@aggTrade/btcusdt@markPrice@1s"
	if got := f.streamURL(); got != want {
		t.Errorf("streamURL = %q, want %q", got, want)
	}
}
