package journal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ktrade/whaleflow/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord(id string) domain.TradeRecord {
	entry := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	return domain.TradeRecord{
		TradeID:     id,
		Symbol:      "BTCUSDT",
		Direction:   domain.DirectionLong,
		EntryTime:   entry,
		EntryPrice:  100,
		ExitTime:    entry.Add(30 * time.Second),
		ExitPrice:   100.2,
		SizeUSD:     100,
		Leverage:    10,
		Strategy:    domain.StrategyAccumulation,
		Probability: 0.8,
		NetPnLUSD:   1.2,
		ExitReason:  domain.ExitReasonTakeProfit,
		HoldSeconds: 30,
	}
}

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time { return c.t }

func TestAppendAndLoadAll(t *testing.T) {
	dir := t.TempDir()
	clock := &fixedClock{t: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)}
	w, err := NewWriter(dir, nil, clock.now, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx := context.Background()
	for _, id := range []string{"t-1", "t-2", "t-3"} {
		if err := w.Append(ctx, testRecord(id)); err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "trades_20250801.jsonl")); err != nil {
		t.Errorf("expected day file for 2025-08-01: %v", err)
	}

	recs, err := w.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("LoadAll returned %d records, want 3", len(recs))
	}
	if recs[0].TradeID != "t-1" || recs[2].TradeID != "t-3" {
		t.Errorf("records out of order: %s .. %s", recs[0].TradeID, recs[2].TradeID)
	}
	if recs[0].NetPnLUSD != 1.2 || recs[0].ExitReason != domain.ExitReasonTakeProfit {
		t.Errorf("round-tripped record lost fields: %+v", recs[0])
	}
	if !w.Healthy() {
		t.Error("journal should be healthy after successful appends")
	}
}

type captureArchiver struct {
	paths chan string
}

func (a *captureArchiver) ArchiveFile(ctx context.Context, localPath string) error {
	a.paths <- localPath
	return nil
}

func TestRotationOnDayChange(t *testing.T) {
	dir := t.TempDir()
	clock := &fixedClock{t: time.Date(2025, 8, 1, 23, 59, 0, 0, time.UTC)}
	arch := &captureArchiver{paths: make(chan string, 1)}
	w, err := NewWriter(dir, arch, clock.now, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx := context.Background()
	if err := w.Append(ctx, testRecord("t-1")); err != nil {
		t.Fatal(err)
	}

	clock.t = time.Date(2025, 8, 2, 0, 1, 0, 0, time.UTC)
	if err := w.Append(ctx, testRecord("t-2")); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"trades_20250801.jsonl", "trades_20250802.jsonl"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	select {
	case path := <-arch.paths:
		if filepath.Base(path) != "trades_20250801.jsonl" {
			t.Errorf("archived %s, want the rotated-out day file", path)
		}
	case <-time.After(2 * time.Second):
		t.Error("rotated file was never handed to the archiver")
	}

	// LoadAll spans both day files, oldest first.
	recs, err := w.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].TradeID != "t-1" || recs[1].TradeID != "t-2" {
		t.Errorf("LoadAll across rotation = %+v, want t-1 then t-2", recs)
	}
}

func TestAppendAfterClose(t *testing.T) {
	w, err := NewWriter(t.TempDir(), nil, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	err = w.Append(context.Background(), testRecord("t-1"))
	if !errors.Is(err, domain.ErrJournalClosed) {
		t.Errorf("Append after Close = %v, want ErrJournalClosed", err)
	}
	// Close is idempotent.
	if err := w.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestLoadAllSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	clock := &fixedClock{t: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)}
	w, err := NewWriter(dir, nil, clock.now, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx := context.Background()
	if err := w.Append(ctx, testRecord("t-1")); err != nil {
		t.Fatal(err)
	}

	// Simulate a torn write in the middle of the file.
	path := filepath.Join(dir, "trades_20250801.jsonl")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("{\"trade_id\": \"t-torn\n\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := w.Append(ctx, testRecord("t-2")); err != nil {
		t.Fatal(err)
	}

	recs, err := w.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("LoadAll returned %d records, want 2 with the torn line skipped", len(recs))
	}
	if recs[0].TradeID != "t-1" || recs[1].TradeID != "t-2" {
		t.Errorf("records = %s, %s, want t-1 and t-2", recs[0].TradeID, recs[1].TradeID)
	}
}

func TestLoadAllEmptyDir(t *testing.T) {
	w, err := NewWriter(t.TempDir(), nil, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	recs, err := w.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("LoadAll on empty dir returned %d records", len(recs))
	}
}

func TestAppendRetryStopsOnCancelledContext(t *testing.T) {
	dir := t.TempDir()
	clock := &fixedClock{t: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)}
	w, err := NewWriter(dir, nil, clock.now, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	// Removing the directory makes every write attempt fail, so the retry
	// loop reaches the backoff and must bail out on the dead context
	// instead of sleeping through the remaining attempts.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err = w.Append(ctx, testRecord("t-cancel"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Append = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Append took %v, should not sit out the retry backoff", elapsed)
	}
	if w.Healthy() {
		t.Error("journal must report unhealthy after a failed append")
	}
}
