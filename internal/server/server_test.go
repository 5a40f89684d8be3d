package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"strategy-lab/internal/auth"
	"strategy-lab/internal/backtest"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	handler  http.Handler
	verifier *auth.Verifier
	bars     *memory.BarStore
	results  *memory.BacktestResultStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	bars := memory.NewBarStore()
	results := memory.NewBacktestResultStore()
	engine := backtest.NewEngine(backtest.EngineOptions{Bars: bars, Results: results})
	verifier := auth.NewVerifier("test-secret")

	srv := New(Options{Engine: engine, Bars: bars, Results: results})
	return &testEnv{
		handler:  srv.Router(verifier),
		verifier: verifier,
		bars:     bars,
		results:  results,
	}
}

func (e *testEnv) token(t *testing.T, subject string) string {
	t.Helper()
	token, err := e.verifier.Sign(&auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedBars(t *testing.T, records ...*domain.BarRecord) {
	t.Helper()
	ctx := context.Background()
	for _, r := range records {
		bar := r.Bar
		if err := e.bars.InsertBars(ctx, domain.Interval1h, []*domain.Bar{&bar}); err != nil {
			t.Fatalf("insert bar: %v", err)
		}
		row := &domain.IndicatorRow{Symbol: r.Symbol, TimestampMs: r.TimestampMs, IndicatorValues: r.IndicatorValues}
		if err := e.bars.InsertIndicators(ctx, domain.Interval1h, []*domain.IndicatorRow{row}); err != nil {
			t.Fatalf("insert indicators: %v", err)
		}
	}
}

func barRecord(ts int64, high, low, close float64) *domain.BarRecord {
	return &domain.BarRecord{
		Bar: domain.Bar{
			Symbol: "BTCUSDT", TimestampMs: ts,
			Open: close, High: high, Low: low, Close: close, Volume: 10,
		},
		IndicatorValues: domain.IndicatorValues{RSI14: 50},
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (body %s)", err, w.Body.String())
	}
	return resp.Error.Code
}

func TestHealthzIsOpen(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/results", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if errorCode(t, w) != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED code, got %s", errorCode(t, w))
	}

	w = env.request(t, http.MethodGet, "/api/v1/results", "garbage", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", w.Code)
	}
}

func TestRunBacktest(t *testing.T) {
	env := newTestEnv(t)
	env.seedBars(t,
		barRecord(1000, 101, 95, 100),
		barRecord(2000, 105, 96, 100),
		barRecord(3000, 106, 94, 100),
	)

	w := env.request(t, http.MethodPost, "/api/v1/backtest", env.token(t, "user-1"), BacktestRequest{
		Symbol:          "BTCUSDT",
		Interval:        "1h",
		Predicate:       "rsi_14 = 50 and close > 0",
		RiskRewardRatio: 2,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp BacktestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Symbol != "BTCUSDT" || resp.Interval != "1h" {
		t.Errorf("unexpected identity: %s/%s", resp.Symbol, resp.Interval)
	}
	if len(resp.Trades) == 0 {
		t.Fatal("expected trades in response")
	}
	if resp.Statistics == nil {
		t.Fatal("expected statistics in response")
	}

	// The run persisted under the token subject.
	results, err := env.results.GetByIdentity(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByIdentity failed: %v", err)
	}
	if len(results) == 0 {
		t.Error("expected persisted results for the caller")
	}
}

func TestRunBacktest_InvalidPredicate(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/backtest", env.token(t, "user-1"), BacktestRequest{
		Symbol:          "BTCUSDT",
		Interval:        "1h",
		Predicate:       "nonsense_field > 1",
		RiskRewardRatio: 2,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if errorCode(t, w) != "INVALID_PREDICATE" {
		t.Errorf("expected INVALID_PREDICATE, got %s", errorCode(t, w))
	}
}

func TestRunBacktest_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	// CUSTOM stop-loss without a value must be rejected, not defaulted.
	w := env.request(t, http.MethodPost, "/api/v1/backtest", env.token(t, "user-1"), BacktestRequest{
		Symbol:          "BTCUSDT",
		Interval:        "1h",
		Predicate:       "close > 0",
		RiskRewardRatio: 2,
		StopLossMode:    "CUSTOM",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if errorCode(t, w) != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %s", errorCode(t, w))
	}
}

func TestRunBacktest_MissingBody(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/backtest", env.token(t, "user-1"), map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if errorCode(t, w) != "INVALID_REQUEST" {
		t.Errorf("expected INVALID_REQUEST, got %s", errorCode(t, w))
	}
}

func TestListResultsAndStatistics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	exit := int64(2000)
	err := env.results.Upsert(ctx, []*domain.BacktestResult{{
		Identity: "user-1", Symbol: "BTCUSDT", Interval: domain.Interval1h,
		Predicate: "close > 0", Indicators: "None", RiskRewardRatio: 2,
		EntryTimeMs: 1000, EntryPrice: 100, StopLoss: 95, TakeProfit: 110,
		ExitTimeMs: &exit, Outcome: domain.OutcomeTP,
		ProfitRate: 10, CumProfitRate: 10,
	}})
	if err != nil {
		t.Fatalf("seed results: %v", err)
	}

	w := env.request(t, http.MethodGet, "/api/v1/results", env.token(t, "user-1"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var listResp struct {
		Results []ResultView `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.Results) != 1 || listResp.Results[0].Outcome != "TP" {
		t.Errorf("unexpected results: %+v", listResp.Results)
	}

	// Another identity sees nothing.
	w = env.request(t, http.MethodGet, "/api/v1/results", env.token(t, "user-2"), nil)
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.Results) != 0 {
		t.Errorf("expected isolation between identities, got %d rows", len(listResp.Results))
	}

	w = env.request(t, http.MethodGet, "/api/v1/results/statistics", env.token(t, "user-1"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats domain.Statistics
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode statistics: %v", err)
	}
	if stats.TotalCount != 1 || stats.TPCount != 1 {
		t.Errorf("unexpected statistics: %+v", stats)
	}
}

func TestGetOHLCV(t *testing.T) {
	env := newTestEnv(t)
	env.seedBars(t, barRecord(1000, 101, 95, 100), barRecord(2000, 105, 96, 101))

	w := env.request(t, http.MethodGet, "/api/v1/ohlcv/BTCUSDT/1h?start_time_ms=1000&end_time_ms=2000", env.token(t, "user-1"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Bars []BarView `json:"bars"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode bars: %v", err)
	}
	if len(resp.Bars) != 1 || resp.Bars[0].TimestampMs != 1000 {
		t.Errorf("expected the bar at 1000 only, got %+v", resp.Bars)
	}
}

func TestGetOHLCV_BadInterval(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/ohlcv/BTCUSDT/2h", env.token(t, "user-1"), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if errorCode(t, w) != "INVALID_REQUEST" {
		t.Errorf("expected INVALID_REQUEST, got %s", errorCode(t, w))
	}
}
