// Package main renders one caller's stored backtest results as
// markdown, CSV and parquet files.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"strategy-lab/internal/config"
	"strategy-lab/internal/reporting"
	"strategy-lab/internal/storage/migrations"
	pgstore "strategy-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	identity := flag.String("identity", "", "Caller identity whose results to report")
	outputDir := flag.String("output-dir", "output", "Directory for generated files")
	flag.Parse()

	logger := log.New(os.Stdout, "[report] ", log.LstdFlags)

	if *identity == "" {
		logger.Fatal("--identity is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if cfg.UseMemoryStores() {
		logger.Fatal("reporting requires PostgreSQL; unset storage.use_memory")
	}

	ctx := context.Background()
	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		logger.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("run migrations: %v", err)
	}

	gen := reporting.NewGenerator(pgstore.NewBacktestResultStore(pool))
	report, err := gen.Generate(ctx, *identity)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatalf("create output dir: %v", err)
	}

	mdPath := filepath.Join(*outputDir, "REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		logger.Fatalf("write markdown: %v", err)
	}

	csvPath := filepath.Join(*outputDir, "trades.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		logger.Fatalf("create csv: %v", err)
	}
	if err := reporting.WriteCSV(csvFile, report.Results); err != nil {
		csvFile.Close()
		logger.Fatalf("write csv: %v", err)
	}
	if err := csvFile.Close(); err != nil {
		logger.Fatalf("close csv: %v", err)
	}

	parquetPath := filepath.Join(*outputDir, "trades.parquet")
	if err := reporting.WriteParquet(parquetPath, report.Results); err != nil {
		logger.Fatalf("write parquet: %v", err)
	}

	logger.Printf("report for %s: %d trades, wrote %s, %s, %s",
		*identity, len(report.Results), mdPath, csvPath, parquetPath)
}
