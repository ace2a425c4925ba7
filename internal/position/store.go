package position

import (
	"sync"

	"github.com/ktrade/whaleflow/internal/domain"
)

// MemoryStore is the in-memory implementation of domain.PositionStore. It
// enforces the single-slot invariant: at most one OPEN position per symbol,
// and a second Create fails rather than overwriting.
type MemoryStore struct {
	mu        sync.RWMutex
	positions map[string]domain.Position
}

// NewMemoryStore creates an empty position store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{positions: make(map[string]domain.Position)}
}

// Get returns the open position for symbol, if any.
func (s *MemoryStore) Get(symbol string) (domain.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[symbol]
	return pos, ok
}

// Create stores a new open position. Returns ErrPositionOpen when the slot
// for the symbol is already occupied.
func (s *MemoryStore) Create(pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[pos.Symbol]; ok {
		return domain.ErrPositionOpen
	}
	s.positions[pos.Symbol] = pos
	return nil
}

// Update replaces the stored position. Returns ErrPositionNotOpen when no
// position exists for the symbol.
func (s *MemoryStore) Update(pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[pos.Symbol]; !ok {
		return domain.ErrPositionNotOpen
	}
	s.positions[pos.Symbol] = pos
	return nil
}

// Remove clears the slot for symbol. Returns ErrPositionNotOpen when empty.
func (s *MemoryStore) Remove(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[symbol]; !ok {
		return domain.ErrPositionNotOpen
	}
	delete(s.positions, symbol)
	return nil
}

// OpenCount returns the number of open positions across all symbols.
func (s *MemoryStore) OpenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}
