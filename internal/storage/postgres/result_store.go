package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

// BacktestResultStore implements storage.BacktestResultStore using
// PostgreSQL.
type BacktestResultStore struct {
	pool *Pool
}

// NewBacktestResultStore creates a new BacktestResultStore.
func NewBacktestResultStore(pool *Pool) *BacktestResultStore {
	return &BacktestResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestResultStore = (*BacktestResultStore)(nil)

// Upsert inserts rows atomically, replacing rows that share the
// composite key. Re-running a strategy over the same window therefore
// updates its rows in place instead of accumulating duplicates.
func (s *BacktestResultStore) Upsert(ctx context.Context, results []*domain.BacktestResult) error {
	if len(results) == 0 {
		return nil
	}

	query := `
		INSERT INTO backtest_results (
			identity, symbol, interval, predicate, indicators,
			risk_reward_ratio, start_time_ms, end_time_ms,
			entry_time_ms, entry_price, stop_loss, take_profit,
			exit_time_ms, outcome, profit_rate, cum_profit_rate
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16
		)
		ON CONFLICT (identity, symbol, interval, start_time_ms, entry_time_ms)
		DO UPDATE SET
			predicate = EXCLUDED.predicate,
			indicators = EXCLUDED.indicators,
			risk_reward_ratio = EXCLUDED.risk_reward_ratio,
			end_time_ms = EXCLUDED.end_time_ms,
			entry_price = EXCLUDED.entry_price,
			stop_loss = EXCLUDED.stop_loss,
			take_profit = EXCLUDED.take_profit,
			exit_time_ms = EXCLUDED.exit_time_ms,
			outcome = EXCLUDED.outcome,
			profit_rate = EXCLUDED.profit_rate,
			cum_profit_rate = EXCLUDED.cum_profit_rate,
			updated_at = now()
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range results {
		if r == nil || r.Identity == "" || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			r.Identity, r.Symbol, string(r.Interval), r.Predicate, r.Indicators,
			r.RiskRewardRatio, r.StartTimeMs, r.EndTimeMs,
			r.EntryTimeMs, r.EntryPrice, r.StopLoss, r.TakeProfit,
			r.ExitTimeMs, string(r.Outcome), r.ProfitRate, r.CumProfitRate,
		)
		if err != nil {
			return fmt.Errorf("upsert backtest result: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByIdentity retrieves all rows for an identity, entry_time ASC.
func (s *BacktestResultStore) GetByIdentity(ctx context.Context, identity string) ([]*domain.BacktestResult, error) {
	query := `
		SELECT
			identity, symbol, interval, predicate, indicators,
			risk_reward_ratio, start_time_ms, end_time_ms,
			entry_time_ms, entry_price, stop_loss, take_profit,
			exit_time_ms, outcome, profit_rate, cum_profit_rate
		FROM backtest_results
		WHERE identity = $1
		ORDER BY entry_time_ms ASC, symbol ASC, interval ASC
	`

	rows, err := s.pool.Query(ctx, query, identity)
	if err != nil {
		return nil, fmt.Errorf("get backtest results by identity: %w", err)
	}
	defer rows.Close()

	return scanBacktestResults(rows)
}

// scanBacktestResults scans multiple rows into a slice of BacktestResult.
func scanBacktestResults(rows pgx.Rows) ([]*domain.BacktestResult, error) {
	var results []*domain.BacktestResult

	for rows.Next() {
		var r domain.BacktestResult
		var interval, outcome string

		err := rows.Scan(
			&r.Identity, &r.Symbol, &interval, &r.Predicate, &r.Indicators,
			&r.RiskRewardRatio, &r.StartTimeMs, &r.EndTimeMs,
			&r.EntryTimeMs, &r.EntryPrice, &r.StopLoss, &r.TakeProfit,
			&r.ExitTimeMs, &outcome, &r.ProfitRate, &r.CumProfitRate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan backtest result row: %w", err)
		}

		r.Interval = domain.Interval(interval)
		r.Outcome = domain.Outcome(outcome)
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest result rows: %w", err)
	}

	return results, nil
}
