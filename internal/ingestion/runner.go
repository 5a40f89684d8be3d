package ingestion

import (
	"context"
	"fmt"
	"log"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/indicators"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/storage"
)

// Runner backfills candles page by page and derives indicator rows for
// the ingested series.
type Runner struct {
	client  *RESTClient
	bars    storage.BarWriter
	inds    storage.IndicatorWriter
	logger  *log.Logger
	metrics *observability.Metrics
}

// RunnerOptions contains configuration for creating a Runner.
// Metrics may be nil; ingestion is then not instrumented.
type RunnerOptions struct {
	Client    *RESTClient
	BarWriter storage.BarWriter
	IndWriter storage.IndicatorWriter
	Logger    *log.Logger
	Metrics   *observability.Metrics
}

// NewRunner creates a backfill runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		client:  opts.Client,
		bars:    opts.BarWriter,
		inds:    opts.IndWriter,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Backfill ingests all candles with open time in [startMs, endMs),
// paging through the API, then computes and stores indicator rows over
// the full ingested series. Steps:
//  1. Page klines forward from startMs, inserting each page
//  2. Stop on an empty page or once endMs is reached
//  3. Compute indicators over everything fetched and insert them
//
// Returns the number of bars ingested.
func (r *Runner) Backfill(ctx context.Context, symbol string, interval domain.Interval, startMs, endMs int64) (int, error) {
	var all []*domain.Bar
	cursor := startMs

	for {
		page, err := r.client.FetchKlines(ctx, symbol, interval, cursor, endMs, 0)
		if err != nil {
			return len(all), fmt.Errorf("backfill %s/%s: %w", symbol, interval, err)
		}
		if len(page) == 0 {
			break
		}

		if err := r.bars.InsertBars(ctx, interval, page); err != nil {
			return len(all), fmt.Errorf("store bars %s/%s: %w", symbol, interval, err)
		}
		all = append(all, page...)
		r.logger.Printf("backfill %s/%s: page of %d bars up to %d",
			symbol, interval, len(page), page[len(page)-1].TimestampMs)

		last := page[len(page)-1].TimestampMs
		if len(page) < MaxKlinesPerRequest {
			break
		}
		if endMs > 0 && last >= endMs-1 {
			break
		}
		cursor = last + 1
	}

	if len(all) == 0 {
		return 0, nil
	}

	rows := indicators.Compute(symbol, all)
	if err := r.inds.InsertIndicators(ctx, interval, rows); err != nil {
		return len(all), fmt.Errorf("store indicators %s/%s: %w", symbol, interval, err)
	}
	r.logger.Printf("backfill %s/%s: %d bars, %d indicator rows", symbol, interval, len(all), len(rows))
	r.metrics.ObserveIngestion(len(all), len(rows))

	return len(all), nil
}

// Stream consumes closed candles until the context ends, storing each
// bar and refreshing the indicator tail from recent history.
func (r *Runner) Stream(ctx context.Context, reader storage.BarStore, stream *KlineStream, symbol string, interval domain.Interval) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case bar, ok := <-stream.Candles():
			if !ok {
				return nil
			}
			if err := r.bars.InsertBars(ctx, interval, []*domain.Bar{bar}); err != nil {
				return fmt.Errorf("store streamed bar: %w", err)
			}
			r.metrics.ObserveIngestion(1, 0)
			if err := r.refreshIndicators(ctx, reader, symbol, interval); err != nil {
				return err
			}
		}
	}
}

// indicatorLookback bounds how much history a streaming refresh
// recomputes. It must cover the slowest warmup (EMA99).
const indicatorLookback = 300

func (r *Runner) refreshIndicators(ctx context.Context, reader storage.BarStore, symbol string, interval domain.Interval) error {
	bars, err := reader.FetchOHLCV(ctx, symbol, interval, nil)
	if err != nil {
		return fmt.Errorf("fetch history for indicators: %w", err)
	}
	if len(bars) > indicatorLookback {
		bars = bars[len(bars)-indicatorLookback:]
	}

	rows := indicators.Compute(symbol, bars)
	if len(rows) == 0 {
		return nil
	}
	if err := r.inds.InsertIndicators(ctx, interval, rows); err != nil {
		return fmt.Errorf("store indicator refresh: %w", err)
	}
	return nil
}
