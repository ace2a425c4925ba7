package feed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ktrade/whaleflow/internal/domain"
)

// Replay reads recorded market snapshots from a JSON-lines file, one
// snapshot per line, in file order. It drives the trading loop in replay
// mode: each snapshot's own timestamp becomes the decision clock, so a
// recorded session always replays to the identical sequence of trades.
type Replay struct {
	path   string
	file   *os.File
	sc     *bufio.Scanner
	lineNo int
	logger *slog.Logger
}

// OpenReplay opens the snapshot file at path.
func OpenReplay(path string, logger *slog.Logger) (*Replay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: open replay %s: %w", path, err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Replay{
		path:   path,
		file:   f,
		sc:     sc,
		logger: logger.With(slog.String("component", "replay_feed")),
	}, nil
}

// Next returns the next snapshot in the file. The second return is false at
// end of file. Malformed lines are skipped with a warning.
func (r *Replay) Next() (domain.MarketSnapshot, bool, error) {
	for r.sc.Scan() {
		r.lineNo++
		line := strings.TrimSpace(r.sc.Text())
		if line == "" {
			continue
		}
		var snap domain.MarketSnapshot
		if err := json.Unmarshal([]byte(line), &snap); err != nil {
			r.logger.Warn("skipping malformed replay line",
				slog.String("path", r.path),
				slog.Int("line", r.lineNo),
				slog.String("error", err.Error()),
			)
			continue
		}
		return snap, true, nil
	}
	if err := r.sc.Err(); err != nil {
		return domain.MarketSnapshot{}, false, fmt.Errorf("feed: scan replay %s: %w", r.path, err)
	}
	return domain.MarketSnapshot{}, false, nil
}

// Close releases the underlying file.
func (r *Replay) Close() error {
	return r.file.Close()
}
