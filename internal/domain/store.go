package domain

import (
	"context"
	"time"
)

// SnapshotSource supplies the most recent market snapshot at tick time. The
// feed behind it may be asynchronous; consumers only ever want the latest
// value, never a queue.
type SnapshotSource interface {
	// Latest returns the most recent snapshot and whether one exists at all.
	// Callers are responsible for the staleness check.
	Latest() (MarketSnapshot, bool)
}

// PositionStore holds the single live position slot per symbol. Implementations
// must reject a second open (ErrPositionOpen) and updates to an empty slot
// (ErrPositionNotOpen) rather than silently overwriting state.
type PositionStore interface {
	Get(symbol string) (Position, bool)
	Create(pos Position) error
	Update(pos Position) error
	Remove(symbol string) error
	OpenCount() int
}

// TradeJournal is the append-only record of closed trades.
type TradeJournal interface {
	Append(ctx context.Context, rec TradeRecord) error
	LoadAll(ctx context.Context) ([]TradeRecord, error)
}

// TradeArchive mirrors journaled trades into a queryable store for offline
// calibration. Best effort: archive failures must never affect trading state.
type TradeArchive interface {
	Insert(ctx context.Context, rec TradeRecord) error
	ListRecent(ctx context.Context, limit int) ([]TradeRecord, error)
}

// SnapshotCache caches the latest snapshot per symbol for external consumers.
type SnapshotCache interface {
	SetLatest(ctx context.Context, snap MarketSnapshot, ttl time.Duration) error
	GetLatest(ctx context.Context, symbol string) (MarketSnapshot, error)
}

// EventBus publishes trading lifecycle events (entries, exits) to interested
// subscribers outside the tick loop.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// JournalArchiver receives rotated journal files for long-term storage.
type JournalArchiver interface {
	ArchiveFile(ctx context.Context, localPath string) error
}

// ArchivedFile describes one journal file held in long-term storage.
type ArchivedFile struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ArchiveBrowser lists archived journal files and restores them to local
// disk, e.g. to rebuild journal history before a replay run.
type ArchiveBrowser interface {
	ListArchived(ctx context.Context) ([]ArchivedFile, error)
	// Restore downloads the named archived file into destDir and returns the
	// local path. ErrNotFound when no such file is archived.
	Restore(ctx context.Context, name, destDir string) (string, error)
}
