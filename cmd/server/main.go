// Package main runs the backtest HTTP API server.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"strategy-lab/internal/auth"
	"strategy-lab/internal/backtest"
	"strategy-lab/internal/config"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/server"
	"strategy-lab/internal/storage"
	chstore "strategy-lab/internal/storage/clickhouse"
	"strategy-lab/internal/storage/memory"
	"strategy-lab/internal/storage/migrations"
	pgstore "strategy-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	addr := flag.String("addr", "", "Listen address, overrides config")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty = disabled)")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx := context.Background()
	bars, results, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("init storage: %v", err)
	}
	defer cleanup()

	var metrics *observability.Metrics
	if *metricsAddr != "" {
		metrics = observability.NewMetrics()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("metrics on %s/metrics", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Printf("metrics server stopped: %v", err)
			}
		}()
	}

	engine := backtest.NewEngine(backtest.EngineOptions{
		Bars:    bars,
		Results: results,
		Logger:  log.New(os.Stdout, "[engine] ", log.LstdFlags),
	})
	srv := server.New(server.Options{
		Engine:  engine,
		Bars:    bars,
		Results: results,
		Logger:  logger,
		Metrics: metrics,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(auth.NewVerifier(cfg.Auth.JWTSecret), cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatalf("server stopped: %v", err)
	case sig := <-sigCh:
		logger.Printf("received signal %v, initiating graceful shutdown", sig)
	}

	// A second signal forces immediate exit.
	go func() {
		sig := <-sigCh
		logger.Printf("received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
	logger.Println("shutdown complete")
}

// buildStores wires either the in-memory stores or ClickHouse bars plus
// Postgres results, running migrations on both databases.
func buildStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.BarStore, storage.BacktestResultStore, func(), error) {
	if cfg.UseMemoryStores() {
		logger.Println("using in-memory storage")
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
		if err := conn.Close(); err != nil {
			logger.Printf("close clickhouse: %v", err)
		}
	}
	return chstore.NewBarStore(conn), pgstore.NewBacktestResultStore(pool), cleanup, nil
}
