package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"strategy-lab/internal/domain"
)

// DefaultWSEndpoint is the Binance USD-M futures stream base URL.
const DefaultWSEndpoint = "wss://fstream.binance.com/ws"

// StreamConfig configures kline stream behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       3 * time.Minute,
	}
}

// KlineStream subscribes to one symbol/interval kline stream and emits
// only closed candles. It reconnects with exponential backoff on read
// errors; the candle channel stays open across reconnects and closes
// only on Close.
type KlineStream struct {
	url    string
	config StreamConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	candles chan *domain.Bar
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewKlineStream connects to the kline stream for symbol/interval. An
// empty endpoint uses the production stream URL.
func NewKlineStream(ctx context.Context, endpoint string, symbol string, interval domain.Interval, config *StreamConfig) (*KlineStream, error) {
	if endpoint == "" {
		endpoint = DefaultWSEndpoint
	}
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &KlineStream{
		url:     fmt.Sprintf("%s/%s@kline_%s", endpoint, strings.ToLower(symbol), interval),
		config:  cfg,
		candles: make(chan *domain.Bar, 64),
		done:    make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop(symbol)

	return s, nil
}

// Candles returns the closed-candle channel.
func (s *KlineStream) Candles() <-chan *domain.Bar {
	return s.candles
}

// Close closes the stream and the candle channel.
func (s *KlineStream) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.candles)
	return nil
}

// connect establishes the WebSocket connection.
func (s *KlineStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	// The server pings; answering keeps the read deadline fresh.
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})

	s.conn = conn
	return nil
}

// readLoop reads messages and emits closed candles, reconnecting with
// exponential backoff on errors.
func (s *KlineStream) readLoop(symbol string) {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.reconnect(reconnectDelay) {
				return
			}
			reconnectDelay = backoff(reconnectDelay, s.config.MaxReconnectDelay)
			continue
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.Close()
				s.conn = nil
			}
			s.connMu.Unlock()
			continue
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		bar, ok := parseKlineEvent(symbol, message)
		if !ok {
			continue
		}

		select {
		case s.candles <- bar:
		case <-s.done:
			return
		}
	}
}

// reconnect waits delay and redials. Returns false when closed.
func (s *KlineStream) reconnect(delay time.Duration) bool {
	select {
	case <-s.done:
		return false
	case <-time.After(delay):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		// Redial failed, retried on the next loop iteration.
		return !s.closed.Load()
	}
	return true
}

func backoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

// klineEvent is the stream payload; prices arrive as decimal strings.
type klineEvent struct {
	EventType string `json:"e"`
	Kline     struct {
		OpenTimeMs int64  `json:"t"`
		Open       string `json:"o"`
		High       string `json:"h"`
		Low        string `json:"l"`
		Close      string `json:"c"`
		Volume     string `json:"v"`
		Closed     bool   `json:"x"`
	} `json:"k"`
}

// parseKlineEvent extracts a bar from a closed-candle event. Open
// candles and unrelated messages return ok=false.
func parseKlineEvent(symbol string, message []byte) (*domain.Bar, bool) {
	var ev klineEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return nil, false
	}
	if ev.EventType != "kline" || !ev.Kline.Closed {
		return nil, false
	}

	bar := &domain.Bar{Symbol: symbol, TimestampMs: ev.Kline.OpenTimeMs}
	for _, f := range []struct {
		src string
		dst *float64
	}{
		{ev.Kline.Open, &bar.Open},
		{ev.Kline.High, &bar.High},
		{ev.Kline.Low, &bar.Low},
		{ev.Kline.Close, &bar.Close},
		{ev.Kline.Volume, &bar.Volume},
	} {
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return nil, false
		}
		*f.dst = v
	}
	return bar, true
}
