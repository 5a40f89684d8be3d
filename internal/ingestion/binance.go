// Package ingestion pulls OHLCV candles from the Binance USD-M futures
// API, both as historical backfill over REST and as a live kline
// stream over WebSocket.
package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"strategy-lab/internal/domain"
)

const (
	// DefaultRESTEndpoint is the Binance USD-M futures REST base URL.
	DefaultRESTEndpoint = "https://fapi.binance.com"

	// MaxKlinesPerRequest is the API page limit for /fapi/v1/klines.
	MaxKlinesPerRequest = 1500
)

// RESTClient fetches candles from the Binance klines endpoint.
type RESTClient struct {
	http *resty.Client
}

// NewRESTClient creates a klines client. An empty endpoint uses the
// production API.
func NewRESTClient(endpoint string) *RESTClient {
	if endpoint == "" {
		endpoint = DefaultRESTEndpoint
	}
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second)
	return &RESTClient{http: client}
}

// FetchKlines retrieves up to limit candles with open time in
// [startMs, endMs). A zero endMs leaves the range open-ended; a zero
// limit uses the API maximum.
func (c *RESTClient) FetchKlines(ctx context.Context, symbol string, interval domain.Interval, startMs, endMs int64, limit int) ([]*domain.Bar, error) {
	if limit <= 0 || limit > MaxKlinesPerRequest {
		limit = MaxKlinesPerRequest
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetQueryParam("interval", string(interval)).
		SetQueryParam("limit", strconv.Itoa(limit))
	if startMs > 0 {
		req.SetQueryParam("startTime", strconv.FormatInt(startMs, 10))
	}
	if endMs > 0 {
		// The API treats endTime as inclusive.
		req.SetQueryParam("endTime", strconv.FormatInt(endMs-1, 10))
	}

	resp, err := req.Get("/fapi/v1/klines")
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch klines: status %d: %s", resp.StatusCode(), resp.String())
	}

	return parseKlines(symbol, resp.Body())
}

// parseKlines decodes the raw kline rows. Each row is a heterogeneous
// array: open time as a number, then OHLCV as decimal strings.
func parseKlines(symbol string, body []byte) ([]*domain.Bar, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var rows [][]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	bars := make([]*domain.Bar, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row %d: expected at least 6 fields, got %d", i, len(row))
		}

		openTime, err := klineInt(row[0])
		if err != nil {
			return nil, fmt.Errorf("kline row %d: open time: %w", i, err)
		}

		prices := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			v, err := klineFloat(row[j])
			if err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j, err)
			}
			prices[j-1] = v
		}

		bars = append(bars, &domain.Bar{
			Symbol:      symbol,
			TimestampMs: openTime,
			Open:        prices[0],
			High:        prices[1],
			Low:         prices[2],
			Close:       prices[3],
			Volume:      prices[4],
		})
	}
	return bars, nil
}

func klineInt(v interface{}) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	return n.Int64()
}

// klineFloat accepts both decimal strings and bare numbers; the API
// quotes prices but test fixtures are easier to write unquoted.
func klineFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseFloat(x, 64)
	case json.Number:
		return x.Float64()
	default:
		return 0, fmt.Errorf("expected price string, got %T", v)
	}
}
