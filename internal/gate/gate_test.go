package gate

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ktrade/whaleflow/internal/config"
	"github.com/ktrade/whaleflow/internal/domain"
	"github.com/ktrade/whaleflow/internal/position"
)

func testEntryConfig() config.EntryConfig {
	return config.EntryConfig{
		ProbMin:         0.75,
		ProbMax:         0.92,
		OBILongMin:      0.2,
		OBILongMax:      0.85,
		OBIShortMin:     -0.85,
		OBIShortMax:     -0.2,
		MinConflictProb: 0.5,
		ConflictRatio:   0.6,
		ExcludedHours:   []int{1, 2, 3, 4, 5, 6},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseSignal() domain.StrategySignal {
	return domain.StrategySignal{
		Symbol:          "BTCUSDT",
		Direction:       domain.DirectionLong,
		PrimaryStrategy: domain.StrategyAccumulation,
		Probability:     0.8,
		StrategyProbs:   map[domain.Strategy]float64{},
	}
}

func baseSnapshot() domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Symbol:   "BTCUSDT",
		MidPrice: 100,
		OBI:      0.5,
	}
}

func TestGateCheck(t *testing.T) {
	noon := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		mutateSig  func(s *domain.StrategySignal)
		mutateSnap func(s *domain.MarketSnapshot)
		now        time.Time
		openFirst  bool
		accepted   bool
		reason     string
	}{
		{
			name:     "clean long accepted",
			now:      noon,
			accepted: true,
		},
		{
			name:      "position already open",
			now:       noon,
			openFirst: true,
			reason:    "position_open",
		},
		{
			name:      "no direction",
			now:       noon,
			mutateSig: func(s *domain.StrategySignal) { s.Direction = domain.DirectionNone },
			reason:    "no_direction",
		},
		{
			name:      "degraded signal",
			now:       noon,
			mutateSig: func(s *domain.StrategySignal) { s.Degraded = true },
			reason:    "degraded_signal",
		},
		{
			name:      "probability below floor",
			now:       noon,
			mutateSig: func(s *domain.StrategySignal) { s.Probability = 0.7 },
			reason:    "prob_below_min",
		},
		{
			name:      "probability above ceiling",
			now:       noon,
			mutateSig: func(s *domain.StrategySignal) { s.Probability = 0.95 },
			reason:    "prob_above_max",
		},
		{
			name:      "probability exactly at floor",
			now:       noon,
			mutateSig: func(s *domain.StrategySignal) { s.Probability = 0.75 },
			accepted:  true,
		},
		{
			name:      "probability exactly at ceiling",
			now:       noon,
			mutateSig: func(s *domain.StrategySignal) { s.Probability = 0.92 },
			accepted:  true,
		},
		{
			name: "opposing strategies conflict",
			now:  noon,
			mutateSig: func(s *domain.StrategySignal) {
				s.StrategyProbs = map[domain.Strategy]float64{
					domain.StrategyDistribution: 0.5,
					domain.StrategyBullTrap:     0.55,
				}
			},
			reason: "conflict",
		},
		{
			name: "opposing strategies below conflict floor ignored",
			now:  noon,
			mutateSig: func(s *domain.StrategySignal) {
				s.StrategyProbs = map[domain.Strategy]float64{
					domain.StrategyDistribution: 0.45,
					domain.StrategyBullTrap:     0.4,
				}
			},
			accepted: true,
		},
		{
			name: "aligned strategies never conflict",
			now:  noon,
			mutateSig: func(s *domain.StrategySignal) {
				s.StrategyProbs = map[domain.Strategy]float64{
					domain.StrategyBearTrap:     0.9,
					domain.StrategyShortSqueeze: 0.9,
				}
			},
			accepted: true,
		},
		{
			name:       "long obi too weak",
			now:        noon,
			mutateSnap: func(s *domain.MarketSnapshot) { s.OBI = 0.1 },
			reason:     "obi_out_of_band",
		},
		{
			name:       "long obi degenerate",
			now:        noon,
			mutateSnap: func(s *domain.MarketSnapshot) { s.OBI = 0.9 },
			reason:     "obi_out_of_band",
		},
		{
			name: "short obi in band",
			now:  noon,
			mutateSig: func(s *domain.StrategySignal) {
				s.Direction = domain.DirectionShort
				s.PrimaryStrategy = domain.StrategyDistribution
			},
			mutateSnap: func(s *domain.MarketSnapshot) { s.OBI = -0.5 },
			accepted:   true,
		},
		{
			name: "short obi too weak",
			now:  noon,
			mutateSig: func(s *domain.StrategySignal) {
				s.Direction = domain.DirectionShort
				s.PrimaryStrategy = domain.StrategyDistribution
			},
			mutateSnap: func(s *domain.MarketSnapshot) { s.OBI = -0.1 },
			reason:     "obi_out_of_band",
		},
		{
			name:   "excluded hour",
			now:    time.Date(2025, 8, 1, 3, 30, 0, 0, time.UTC),
			reason: "excluded_hour",
		},
		{
			name:      "position open outranks degraded signal",
			now:       noon,
			openFirst: true,
			mutateSig: func(s *domain.StrategySignal) { s.Degraded = true },
			reason:    "position_open",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := position.NewMemoryStore()
			if tt.openFirst {
				if err := store.Create(domain.Position{Symbol: "BTCUSDT", TradeID: "t-0"}); err != nil {
					t.Fatal(err)
				}
			}
			g := New(testEntryConfig(), store, testLogger())

			sig := baseSignal()
			if tt.mutateSig != nil {
				tt.mutateSig(&sig)
			}
			snap := baseSnapshot()
			if tt.mutateSnap != nil {
				tt.mutateSnap(&snap)
			}

			d := g.Check(sig, snap, tt.now)
			if d.Accepted != tt.accepted {
				t.Fatalf("Accepted = %v (reason %q), want %v", d.Accepted, d.Reason, tt.accepted)
			}
			if !tt.accepted && !strings.HasPrefix(d.Reason, tt.reason) {
				t.Errorf("Reason = %q, want prefix %q", d.Reason, tt.reason)
			}
		})
	}
}

func TestGateConflictUsesPrimaryProbability(t *testing.T) {
	store := position.NewMemoryStore()
	g := New(testEntryConfig(), store, testLogger())

	// One opposing strategy at 0.5 against a primary at 0.9: the opposing
	// mass is below 0.9 * 0.6 = 0.54, so the entry stands.
	sig := baseSignal()
	sig.Probability = 0.9
	sig.StrategyProbs = map[domain.Strategy]float64{domain.StrategySlowBleed: 0.5}

	if d := g.Check(sig, baseSnapshot(), time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)); !d.Accepted {
		t.Errorf("rejected with %q, opposing mass below the ratio should pass", d.Reason)
	}

	// The same opposing mass against a weaker primary at 0.8 crosses the
	// 0.48 line and blocks the entry.
	sig.Probability = 0.8
	if d := g.Check(sig, baseSnapshot(), time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)); d.Accepted {
		t.Error("opposing mass above the ratio must block the entry")
	}
}
