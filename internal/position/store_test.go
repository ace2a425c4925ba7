package position

import (
	"errors"
	"testing"

	"github.com/ktrade/whaleflow/internal/domain"
)

func TestMemoryStoreSingleSlot(t *testing.T) {
	s := NewMemoryStore()

	if _, ok := s.Get("BTCUSDT"); ok {
		t.Fatal("empty store should not return a position")
	}
	if s.OpenCount() != 0 {
		t.Fatalf("OpenCount = %d, want 0", s.OpenCount())
	}

	pos := domain.Position{TradeID: "t-1", Symbol: "BTCUSDT", EntryPrice: 100}
	if err := s.Create(pos); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.OpenCount() != 1 {
		t.Errorf("OpenCount = %d, want 1", s.OpenCount())
	}

	// The slot is taken; a second open must fail rather than overwrite.
	err := s.Create(domain.Position{TradeID: "t-2", Symbol: "BTCUSDT"})
	if !errors.Is(err, domain.ErrPositionOpen) {
		t.Errorf("second Create = %v, want ErrPositionOpen", err)
	}

	got, ok := s.Get("BTCUSDT")
	if !ok || got.TradeID != "t-1" {
		t.Errorf("Get = %+v %v, want the original position", got, ok)
	}
}

func TestMemoryStoreUpdate(t *testing.T) {
	s := NewMemoryStore()

	err := s.Update(domain.Position{Symbol: "BTCUSDT"})
	if !errors.Is(err, domain.ErrPositionNotOpen) {
		t.Errorf("Update on empty slot = %v, want ErrPositionNotOpen", err)
	}

	if err := s.Create(domain.Position{TradeID: "t-1", Symbol: "BTCUSDT"}); err != nil {
		t.Fatal(err)
	}
	updated := domain.Position{TradeID: "t-1", Symbol: "BTCUSDT", CurrentPnLPct: 1.5}
	if err := s.Update(updated); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := s.Get("BTCUSDT")
	if got.CurrentPnLPct != 1.5 {
		t.Errorf("CurrentPnLPct = %v, want 1.5", got.CurrentPnLPct)
	}
}

func TestMemoryStoreRemove(t *testing.T) {
	s := NewMemoryStore()

	if err := s.Remove("BTCUSDT"); !errors.Is(err, domain.ErrPositionNotOpen) {
		t.Errorf("Remove on empty slot = %v, want ErrPositionNotOpen", err)
	}

	if err := s.Create(domain.Position{TradeID: "t-1", Symbol: "BTCUSDT"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("BTCUSDT"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.OpenCount() != 0 {
		t.Errorf("OpenCount = %d after Remove, want 0", s.OpenCount())
	}
	// The slot is reusable after a close.
	if err := s.Create(domain.Position{TradeID: "t-2", Symbol: "BTCUSDT"}); err != nil {
		t.Errorf("Create after Remove: %v", err)
	}
}
