package feed

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeReplayFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshots.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReplayNext(t *testing.T) {
	content := `{"symbol":"BTCUSDT","timestamp":"2025-08-01T12:00:00Z","mid_price":100,"obi":0.35}

not json at all
{"symbol":"BTCUSDT","timestamp":"2025-08-01T12:00:05Z","mid_price":100.25,"obi":0.3}
`
	r, err := OpenReplay(writeReplayFile(t, content), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	snap, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("first Next = (%v, %v)", ok, err)
	}
	if snap.MidPrice != 100 || snap.OBI != 0.35 {
		t.Errorf("first snapshot = %+v", snap)
	}

	// Blank and malformed lines are skipped, not surfaced.
	snap, ok, err = r.Next()
	if err != nil || !ok {
		t.Fatalf("second Next = (%v, %v)", ok, err)
	}
	if snap.MidPrice != 100.25 {
		t.Errorf("second snapshot mid = %v, want 100.25", snap.MidPrice)
	}
	if snap.Timestamp.Second() != 5 {
		t.Errorf("second snapshot timestamp = %v, want :05", snap.Timestamp)
	}

	if _, ok, err := r.Next(); ok || err != nil {
		t.Errorf("Next at EOF = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestOpenReplayMissingFile(t *testing.T) {
	if _, err := OpenReplay(filepath.Join(t.TempDir(), "nope.jsonl"), nil); err == nil {
		t.Fatal("expected error for missing replay file")
	}
}
