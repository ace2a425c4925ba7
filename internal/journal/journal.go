package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ktrade/whaleflow/internal/domain"
)

const (
	filePrefix = "trades_"
	fileExt    = ".jsonl"

	appendAttempts  = 3
	appendBaseDelay = 100 * time.Millisecond
)

// Writer is the JSON-lines trade journal. One file per UTC day; every closed
// trade is one line, flushed and synced before Append returns so a crash
// never loses a completed trade.
//
// Append retries transient write failures with a short bounded backoff. After
// the retries are exhausted the journal marks itself unhealthy and surfaces
// the error; trading state is never rolled back over a journal failure.
type Writer struct {
	dir      string
	now      func() time.Time
	archiver domain.JournalArchiver // optional, receives rotated files
	logger   *slog.Logger

	mu      sync.Mutex
	file    *os.File
	day     string // UTC date of the open file, YYYYMMDD
	closed  bool
	healthy bool
	lastErr error
}

// NewWriter creates a journal writer rooted at dir, creating the directory if
// needed. now supplies the clock for file rotation; pass nil for wall-clock
// time. archiver may be nil.
func NewWriter(dir string, archiver domain.JournalArchiver, now func() time.Time, logger *slog.Logger) (*Writer, error) {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: create dir %s: %w", dir, err)
	}
	return &Writer{
		dir:      dir,
		now:      now,
		archiver: archiver,
		logger:   logger.With("component", "trade_journal"),
		healthy:  true,
	}, nil
}

// Append writes one trade record as a single JSON line to the current day's
// file, rotating first if the UTC day has changed.
func (w *Writer) Append(ctx context.Context, rec domain.TradeRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("journal: marshal %s: %w", rec.TradeID, err)
	}
	line := append(b, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return domain.ErrJournalClosed
	}

	delay := appendBaseDelay
	for attempt := 1; attempt <= appendAttempts; attempt++ {
		err = w.writeLocked(line)
		if err == nil {
			w.healthy = true
			w.lastErr = nil
			return nil
		}
		if attempt == appendAttempts {
			break
		}
		w.logger.Warn("journal write failed, retrying",
			"trade_id", rec.TradeID, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			w.healthy = false
			w.lastErr = ctx.Err()
			return fmt.Errorf("journal: append %s: %w", rec.TradeID, ctx.Err())
		case <-time.After(delay):
			delay *= 2
		}
	}

	w.healthy = false
	w.lastErr = err
	return fmt.Errorf("journal: append %s: %w", rec.TradeID, err)
}

func (w *Writer) writeLocked(line []byte) error {
	if err := w.rotateLocked(); err != nil {
		return err
	}
	if _, err := w.file.Write(line); err != nil {
		return err
	}
	return w.file.Sync()
}

// rotateLocked opens the file for the current UTC day, closing and handing
// the previous day's file to the archiver when the day rolls over.
func (w *Writer) rotateLocked() error {
	day := w.now().UTC().Format("20060102")
	if w.file != nil && day == w.day {
		return nil
	}
	if w.file != nil {
		prev := w.file.Name()
		if err := w.file.Close(); err != nil {
			w.logger.Warn("closing rotated journal file failed", "path", prev, "error", err)
		}
		w.file = nil
		if w.archiver != nil {
			go w.archiveFile(prev)
		}
	}
	path := filepath.Join(w.dir, filePrefix+day+fileExt)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.day = day
	w.logger.Info("journal file opened", "path", path)
	return nil
}

func (w *Writer) archiveFile(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.archiver.ArchiveFile(ctx, path); err != nil {
		w.logger.Warn("journal archive failed", "path", path, "error", err)
		return
	}
	w.logger.Info("journal file archived", "path", path)
}

// LoadAll reads every journal file in the directory, oldest first, and
// returns all trade records. Malformed lines are skipped with a warning so a
// single corrupt entry never blocks a session report.
func (w *Writer) LoadAll(ctx context.Context) ([]domain.TradeRecord, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("journal: read dir %s: %w", w.dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExt) {
			files = append(files, filepath.Join(w.dir, name))
		}
	}
	sort.Strings(files)

	var out []domain.TradeRecord
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := w.loadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (w *Writer) loadFile(path string) ([]domain.TradeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	defer f.Close()

	var out []domain.TradeRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec domain.TradeRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			w.logger.Warn("skipping malformed journal line",
				"path", path, "line", lineNo, "error", err)
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("journal: scan %s: %w", path, err)
	}
	return out, nil
}

// Healthy reports whether the last append succeeded.
func (w *Writer) Healthy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.healthy
}

// Close flushes and closes the current journal file. Further Appends return
// ErrJournalClosed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
