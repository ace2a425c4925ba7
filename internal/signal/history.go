package signal

import (
	"time"

	"github.com/ktrade/whaleflow/internal/domain"
)

// History is a bounded ring buffer of recent market snapshots. It backs the
// momentum and volume-ratio calculations; growth is capped so the engine's
// memory never depends on session length.
type History struct {
	buf  []domain.MarketSnapshot
	head int // index of the next write
	size int
}

// NewHistory creates a History holding at most capacity snapshots.
func NewHistory(capacity int) *History {
	if capacity < 2 {
		capacity = 2
	}
	return &History{buf: make([]domain.MarketSnapshot, capacity)}
}

// Add appends a snapshot, evicting the oldest when full.
func (h *History) Add(snap domain.MarketSnapshot) {
	h.buf[h.head] = snap
	h.head = (h.head + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

// Len returns the number of stored snapshots.
func (h *History) Len() int { return h.size }

// Newest returns the most recently added snapshot.
func (h *History) Newest() (domain.MarketSnapshot, bool) {
	if h.size == 0 {
		return domain.MarketSnapshot{}, false
	}
	idx := (h.head - 1 + len(h.buf)) % len(h.buf)
	return h.buf[idx], true
}

// at returns the i-th snapshot counting back from the newest (0 = newest).
func (h *History) at(i int) domain.MarketSnapshot {
	idx := (h.head - 1 - i + 2*len(h.buf)) % len(h.buf)
	return h.buf[idx]
}

// ChangePct returns the mid-price change, in percent, between the newest
// snapshot and the oldest snapshot no older than lookback before it. The
// second return is false when the buffer does not span the lookback.
func (h *History) ChangePct(lookback time.Duration) (float64, bool) {
	if h.size < 2 {
		return 0, false
	}
	newest := h.at(0)
	cutoff := newest.Timestamp.Add(-lookback)
	var ref domain.MarketSnapshot
	found := false
	for i := 1; i < h.size; i++ {
		s := h.at(i)
		if s.Timestamp.Before(cutoff) {
			break
		}
		ref = s
		found = true
	}
	if !found || ref.MidPrice <= 0 {
		return 0, false
	}
	return (newest.MidPrice - ref.MidPrice) / ref.MidPrice * 100, true
}

// VolumeRatio returns the newest snapshot's volume relative to the mean
// volume of the rest of the buffer. Returns false when volumes are absent.
func (h *History) VolumeRatio() (float64, bool) {
	if h.size < 3 {
		return 0, false
	}
	newest := h.at(0)
	if newest.Volume <= 0 {
		return 0, false
	}
	var sum float64
	var n int
	for i := 1; i < h.size; i++ {
		if v := h.at(i).Volume; v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 || sum == 0 {
		return 0, false
	}
	return newest.Volume / (sum / float64(n)), true
}
