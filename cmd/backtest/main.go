// Package main runs a single backtest from the command line and prints
// the trade set as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"strategy-lab/internal/backtest"
	"strategy-lab/internal/config"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/predicate"
	"strategy-lab/internal/storage"
	chstore "strategy-lab/internal/storage/clickhouse"
	"strategy-lab/internal/storage/memory"
	"strategy-lab/internal/storage/migrations"
	pgstore "strategy-lab/internal/storage/postgres"
)

// tradeJSON mirrors the API's trade shape for CLI output.
type tradeJSON struct {
	EntryTimeMs   int64   `json:"entry_time_ms"`
	EntryPrice    float64 `json:"entry_price"`
	StopLoss      float64 `json:"stop_loss"`
	TakeProfit    float64 `json:"take_profit"`
	ExitTimeMs    *int64  `json:"exit_time_ms,omitempty"`
	Outcome       string  `json:"outcome"`
	ProfitRate    float64 `json:"profit_rate"`
	CumProfitRate float64 `json:"cum_profit_rate"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	symbol := flag.String("symbol", "", "Trading pair, e.g. BTCUSDT")
	intervalStr := flag.String("interval", "1h", "Candle interval (1m through 1M, Binance granularities)")
	predicateStr := flag.String("predicate", "", "Entry predicate, e.g. \"rsi_14 < 30 and close < bb_lower\"")
	riskReward := flag.Float64("risk-reward", 0, "Risk/reward ratio, take-profit distance per unit of risk")
	stopLossMode := flag.String("stop-loss-mode", "LOW", "Stop-loss mode (LOW, CUSTOM)")
	stopLossValue := flag.Float64("stop-loss-value", 0, "Fixed stop-loss price for CUSTOM mode")
	startMs := flag.Int64("start-ms", 0, "Window start, Unix milliseconds inclusive (0 = unbounded)")
	endMs := flag.Int64("end-ms", 0, "Window end, Unix milliseconds exclusive (0 = unbounded)")
	side := flag.String("side", "LONG", "Position side (LONG, SHORT)")
	leverage := flag.Float64("leverage", 1, "Leverage multiplier")
	slippage := flag.Float64("slippage", 0, "Per-side slippage rate")
	identity := flag.String("identity", "", "Persist results under this identity (empty = do not persist)")
	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *symbol == "" {
		logger.Fatal("--symbol is required")
	}
	if *predicateStr == "" {
		logger.Fatal("--predicate is required")
	}
	interval, err := domain.ParseInterval(*intervalStr)
	if err != nil {
		logger.Fatalf("parse interval: %v", err)
	}
	expr, err := predicate.Parse(*predicateStr)
	if err != nil {
		logger.Fatalf("parse predicate: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	bars, results, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("init storage: %v", err)
	}
	defer cleanup()

	params := &domain.StrategyParams{
		Symbol:          *symbol,
		Interval:        interval,
		Predicate:       expr,
		RiskRewardRatio: *riskReward,
		StopLossMode:    domain.StopLossMode(*stopLossMode),
		Side:            domain.PositionSide(*side),
		Leverage:        *leverage,
		SlippageRate:    *slippage,
	}
	if *stopLossValue != 0 {
		params.StopLossValue = stopLossValue
	}
	if *startMs != 0 || *endMs != 0 {
		params.Window = &domain.TimeWindow{StartMs: *startMs, EndMs: *endMs}
	}

	engine := backtest.NewEngine(backtest.EngineOptions{
		Bars:    bars,
		Results: results,
		Logger:  logger,
	})
	set, err := engine.Run(ctx, *identity, params)
	if err != nil {
		logger.Fatalf("run backtest: %v", err)
	}

	trades := make([]tradeJSON, len(set.Trades))
	for i, t := range set.Trades {
		trades[i] = tradeJSON{
			EntryTimeMs:   t.EntryTimeMs,
			EntryPrice:    t.EntryPrice,
			StopLoss:      t.StopLoss,
			TakeProfit:    t.TakeProfit,
			ExitTimeMs:    t.ExitTimeMs,
			Outcome:       string(t.Outcome),
			ProfitRate:    t.ProfitRate,
			CumProfitRate: t.CumProfitRate,
		}
	}
	out := struct {
		Symbol     string             `json:"symbol"`
		Interval   string             `json:"interval"`
		Trades     []tradeJSON        `json:"trades"`
		Statistics *domain.Statistics `json:"statistics"`
	}{
		Symbol:     set.Symbol,
		Interval:   string(set.Interval),
		Trades:     trades,
		Statistics: backtest.Summarize(set),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatalf("encode output: %v", err)
	}
}

func buildStores(ctx context.Context, cfg *config.Config) (storage.BarStore, storage.BacktestResultStore, func(), error) {
	if cfg.UseMemoryStores() {
		return memory.NewBarStore(), memory.NewBacktestResultStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = conn.Close()
	}
	return chstore.NewBarStore(conn), pgstore.NewBacktestResultStore(pool), cleanup, nil
}
