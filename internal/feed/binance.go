package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ktrade/whaleflow/internal/config"
	"github.com/ktrade/whaleflow/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 60 * time.Second

	// flowWindow is the rolling window over which whale flow and order-flow
	// toxicity are accumulated from the trade tape.
	flowWindow = time.Minute
)

// streamEnvelope is the combined-stream wrapper Binance puts around every
// payload: {"stream":"btcusdt@aggTrade","data":{...}}.
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// depthMessage is a partial book depth snapshot. Price levels arrive as
// [price, qty] string pairs.
type depthMessage struct {
	Bids [][2]string `json:"b"`
	Asks [][2]string `json:"a"`
}

type aggTradeMessage struct {
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTimeMs  int64  `json:"T"`
	BuyerIsMaker bool   `json:"m"`
}

type markPriceMessage struct {
	FundingRate string `json:"r"`
}

// tapeEntry is one aggregated trade kept in the rolling flow window.
type tapeEntry struct {
	ts  time.Time
	qty float64
	buy bool // aggressor side
}

// Binance consumes the Binance USD-M futures combined stream for one symbol
// and folds depth, trade tape and funding into MarketSnapshot values pushed
// to a Cell. It reconnects with exponential backoff and keeps running until
// the context is cancelled.
type Binance struct {
	cfg    config.FeedConfig
	symbol string
	cell   *Cell
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	tape    []tapeEntry
	funding float64
	bestBid float64
	bestAsk float64
	obi     float64
}

// NewBinance creates a feed for the given symbol (e.g. "BTCUSDT"). now
// supplies the clock for snapshot timestamps; pass nil for wall-clock time.
func NewBinance(cfg config.FeedConfig, symbol string, cell *Cell, now func() time.Time, logger *slog.Logger) *Binance {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Binance{
		cfg:    cfg,
		symbol: strings.ToUpper(symbol),
		cell:   cell,
		now:    now,
		logger: logger.With(slog.String("component", "binance_feed"), slog.String("symbol", symbol)),
	}
}

// Run connects and consumes the stream until ctx is cancelled, reconnecting
// with exponential backoff on any disconnect.
func (f *Binance) Run(ctx context.Context) error {
	delay := reconnectDelay
	for {
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// streamURL builds the combined-stream URL: partial depth for the book,
// aggTrade for the tape, markPrice for funding.
func (f *Binance) streamURL() string {
	sym := strings.ToLower(f.symbol)
	streams := []string{
		fmt.Sprintf("%s@depth%d@100ms", sym, f.cfg.DepthLevels),
		sym + "@aggTrade",
		sym + "@markPrice@1s",
	}
	return fmt.Sprintf("%s/stream?streams=%s", strings.TrimRight(f.cfg.WsHost, "/"), strings.Join(streams, "/"))
}

func (f *Binance) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	f.logger.Info("feed connected")

	// Close the connection when ctx ends so ReadMessage unblocks, and keep
	// the server-side idle timeout at bay with periodic pings.
	pingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				conn.Close()
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: read: %w", err)
		}
		f.handleMessage(ctx, raw)
	}
}

func (f *Binance) handleMessage(ctx context.Context, raw []byte) {
	var env streamEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return // drop unparseable frames
	}
	switch {
	case strings.Contains(env.Stream, "@depth"):
		var msg depthMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return
		}
		f.onDepth(ctx, msg)
	case strings.HasSuffix(env.Stream, "@aggTrade"):
		var msg aggTradeMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return
		}
		f.onAggTrade(msg)
	case strings.Contains(env.Stream, "@markPrice"):
		var msg markPriceMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return
		}
		f.onMarkPrice(msg)
	}
}

// onDepth recomputes book-derived features and emits a snapshot. The depth
// stream is the highest-frequency input, so it drives snapshot publication.
func (f *Binance) onDepth(ctx context.Context, msg depthMessage) {
	var bidQty, askQty float64
	bestBid, bestAsk := 0.0, 0.0
	for i, lvl := range msg.Bids {
		p, q := parseLevel(lvl)
		if i == 0 {
			bestBid = p
		}
		bidQty += q
	}
	for i, lvl := range msg.Asks {
		p, q := parseLevel(lvl)
		if i == 0 {
			bestAsk = p
		}
		askQty += q
	}
	if bestBid <= 0 || bestAsk <= 0 || bidQty+askQty == 0 {
		return
	}

	f.mu.Lock()
	f.bestBid = bestBid
	f.bestAsk = bestAsk
	f.obi = (bidQty - askQty) / (bidQty + askQty)
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.cell.Set(ctx, snap)
}

func (f *Binance) onAggTrade(msg aggTradeMessage) {
	qty, err := strconv.ParseFloat(msg.Quantity, 64)
	if err != nil || qty <= 0 {
		return
	}
	ts := time.UnixMilli(msg.TradeTimeMs)

	f.mu.Lock()
	defer f.mu.Unlock()
	// m=true means the buyer was the maker, so the aggressor sold.
	f.tape = append(f.tape, tapeEntry{ts: ts, qty: qty, buy: !msg.BuyerIsMaker})
	f.pruneTapeLocked(ts)
}

func (f *Binance) onMarkPrice(msg markPriceMessage) {
	r, err := strconv.ParseFloat(msg.FundingRate, 64)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.funding = r
	f.mu.Unlock()
}

func (f *Binance) pruneTapeLocked(now time.Time) {
	cutoff := now.Add(-flowWindow)
	i := 0
	for ; i < len(f.tape); i++ {
		if !f.tape[i].ts.Before(cutoff) {
			break
		}
	}
	if i > 0 {
		f.tape = append(f.tape[:0], f.tape[i:]...)
	}
}

// snapshotLocked assembles a MarketSnapshot from the current book state and
// the rolling tape window. Caller must hold f.mu.
func (f *Binance) snapshotLocked() domain.MarketSnapshot {
	var buyVol, sellVol, whaleNet float64
	for _, t := range f.tape {
		if t.buy {
			buyVol += t.qty
		} else {
			sellVol += t.qty
		}
		if t.qty >= f.cfg.WhaleMinQty {
			if t.buy {
				whaleNet += t.qty
			} else {
				whaleNet -= t.qty
			}
		}
	}
	// Order-flow toxicity proxy: one-sidedness of the tape over the window.
	vpin := 0.0
	if total := buyVol + sellVol; total > 0 {
		vpin = math.Abs(buyVol-sellVol) / total
	}
	return domain.MarketSnapshot{
		Symbol:      f.symbol,
		Timestamp:   f.now(),
		BestBid:     f.bestBid,
		BestAsk:     f.bestAsk,
		MidPrice:    (f.bestBid + f.bestAsk) / 2,
		OBI:         f.obi,
		VPIN:        vpin,
		WhaleNetQty: whaleNet,
		FundingRate: f.funding,
		Volume:      buyVol + sellVol,
	}
}

func parseLevel(lvl [2]string) (price, qty float64) {
	price, _ = strconv.ParseFloat(lvl[0], 64)
	qty, _ = strconv.ParseFloat(lvl[1], 64)
	return price, qty
}
