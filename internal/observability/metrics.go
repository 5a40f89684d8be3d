// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application. A nil
// *Metrics is valid and records nothing, so wiring stays optional.
type Metrics struct {
	// Backtest metrics
	BacktestsRun     *prometheus.CounterVec
	TradesSimulated  prometheus.Counter
	BacktestDuration prometheus.Histogram

	// HTTP metrics
	HTTPRequestDuration *prometheus.HistogramVec

	// Ingestion metrics
	BarsIngested          prometheus.Counter
	IndicatorRowsComputed prometheus.Counter
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		BacktestsRun: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "backtests_run_total",
			Help: "Backtest runs by result status",
		}, []string{"status"}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trades_simulated_total",
			Help: "Trades produced by backtest runs",
		}),
		BacktestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_duration_seconds",
			Help:    "Wall time of one backtest run",
			Buckets: prometheus.DefBuckets,
		}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		BarsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bars_ingested_total",
			Help: "Candles written by backfill and streaming",
		}),
		IndicatorRowsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "indicator_rows_computed_total",
			Help: "Indicator rows derived from ingested candles",
		}),
	}
}

// ObserveBacktest records one backtest run.
func (m *Metrics) ObserveBacktest(status string, trades int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BacktestsRun.WithLabelValues(status).Inc()
	m.TradesSimulated.Add(float64(trades))
	m.BacktestDuration.Observe(elapsed.Seconds())
}

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ObserveIngestion records stored candles and derived indicator rows.
func (m *Metrics) ObserveIngestion(bars, indicatorRows int) {
	if m == nil {
		return
	}
	m.BarsIngested.Add(float64(bars))
	m.IndicatorRowsComputed.Add(float64(indicatorRows))
}

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
