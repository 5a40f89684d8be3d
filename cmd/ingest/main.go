// Package main backfills Binance USD-M candles into ClickHouse and can
// keep following the live kline stream.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"strategy-lab/internal/config"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/ingestion"
	chstore "strategy-lab/internal/storage/clickhouse"
	"strategy-lab/internal/storage/migrations"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	symbol := flag.String("symbol", "", "Trading pair, e.g. BTCUSDT")
	intervalStr := flag.String("interval", "1h", "Candle interval (1m through 1M, Binance granularities)")
	startMs := flag.Int64("start-ms", 0, "Backfill start, Unix milliseconds inclusive")
	endMs := flag.Int64("end-ms", 0, "Backfill end, Unix milliseconds exclusive (0 = up to now)")
	stream := flag.Bool("stream", false, "Keep following the live kline stream after backfill")
	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	if *symbol == "" {
		logger.Fatal("--symbol is required")
	}
	interval, err := domain.ParseInterval(*intervalStr)
	if err != nil {
		logger.Fatalf("parse interval: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if cfg.UseMemoryStores() {
		logger.Fatal("ingestion requires ClickHouse; unset storage.use_memory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		logger.Fatalf("init clickhouse: %v", err)
	}
	defer conn.Close()
	store := chstore.NewBarStore(conn)

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Client:    ingestion.NewRESTClient(cfg.Binance.RESTEndpoint),
		BarWriter: store,
		IndWriter: store,
		Logger:    logger,
	})

	if *startMs != 0 {
		count, err := runner.Backfill(ctx, *symbol, interval, *startMs, *endMs)
		if err != nil {
			logger.Fatalf("backfill: %v", err)
		}
		logger.Printf("backfilled %d bars for %s/%s", count, *symbol, interval)
	}

	if !*stream {
		return
	}

	klines, err := ingestion.NewKlineStream(ctx, cfg.Binance.WSEndpoint, *symbol, interval, nil)
	if err != nil {
		logger.Fatalf("open kline stream: %v", err)
	}
	defer klines.Close()

	logger.Printf("streaming %s/%s, ctrl-c to stop", *symbol, interval)
	if err := runner.Stream(ctx, store, klines, *symbol, interval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("stream: %v", err)
	}
	logger.Println("stream stopped")
}
