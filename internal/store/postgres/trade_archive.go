package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ktrade/whaleflow/internal/domain"
)

// TradeArchive implements domain.TradeArchive using PostgreSQL.
type TradeArchive struct {
	pool *pgxpool.Pool
}

// NewTradeArchive creates a TradeArchive backed by the given connection pool.
func NewTradeArchive(pool *pgxpool.Pool) *TradeArchive {
	return &TradeArchive{pool: pool}
}

const tradeSelectCols = `trade_id, symbol, direction, entry_time, entry_price,
	exit_time, exit_price, size_usd, leverage, strategy, probability,
	strategy_probs, obi, max_profit_pct, max_drawdown_pct, net_pnl_usd,
	exit_reason, hold_seconds`

// Insert archives one closed trade. Duplicate trade IDs are silently skipped
// so journal replays never fail on already-archived trades.
func (s *TradeArchive) Insert(ctx context.Context, rec domain.TradeRecord) error {
	probs, err := json.Marshal(rec.StrategyProbs)
	if err != nil {
		return fmt.Errorf("postgres: marshal strategy probs: %w", err)
	}

	const query = `
		INSERT INTO trades (
			trade_id, symbol, direction, entry_time, entry_price,
			exit_time, exit_price, size_usd, leverage, strategy,
			probability, strategy_probs, obi, max_profit_pct,
			max_drawdown_pct, net_pnl_usd, exit_reason, hold_seconds
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18
		) ON CONFLICT (trade_id) DO NOTHING`

	_, err = s.pool.Exec(ctx, query,
		rec.TradeID, rec.Symbol, string(rec.Direction), rec.EntryTime, rec.EntryPrice,
		rec.ExitTime, rec.ExitPrice, rec.SizeUSD, rec.Leverage, string(rec.Strategy),
		rec.Probability, probs, rec.OBI, rec.MaxProfitPct,
		rec.MaxDrawdownPct, rec.NetPnLUSD, string(rec.ExitReason), rec.HoldSeconds,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", rec.TradeID, err)
	}
	return nil
}

// ListRecent returns the most recently closed trades, newest first.
func (s *TradeArchive) ListRecent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + tradeSelectCols + ` FROM trades ORDER BY exit_time DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()

	recs, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent trades: %w", err)
	}
	return recs, nil
}

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var recs []domain.TradeRecord
	for rows.Next() {
		var (
			rec       domain.TradeRecord
			direction string
			strategy  string
			reason    string
			probsRaw  []byte
		)
		if err := rows.Scan(
			&rec.TradeID, &rec.Symbol, &direction, &rec.EntryTime, &rec.EntryPrice,
			&rec.ExitTime, &rec.ExitPrice, &rec.SizeUSD, &rec.Leverage, &strategy,
			&rec.Probability, &probsRaw, &rec.OBI, &rec.MaxProfitPct,
			&rec.MaxDrawdownPct, &rec.NetPnLUSD, &reason, &rec.HoldSeconds,
		); err != nil {
			return nil, err
		}
		rec.Direction = domain.Direction(direction)
		rec.Strategy = domain.Strategy(strategy)
		rec.ExitReason = domain.ExitReason(reason)
		if len(probsRaw) > 0 {
			if err := json.Unmarshal(probsRaw, &rec.StrategyProbs); err != nil {
				return nil, fmt.Errorf("unmarshal strategy probs for %s: %w", rec.TradeID, err)
			}
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
