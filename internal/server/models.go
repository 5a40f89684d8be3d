package server

import (
	"strategy-lab/internal/domain"
)

// BacktestRequest is the request body for running a backtest.
type BacktestRequest struct {
	Symbol          string   `json:"symbol" binding:"required"`
	Interval        string   `json:"interval" binding:"required"`
	Predicate       string   `json:"predicate" binding:"required"`
	RiskRewardRatio float64  `json:"risk_reward_ratio" binding:"required"`
	StopLossMode    string   `json:"stop_loss_mode,omitempty"` // default: LOW
	StopLossValue   *float64 `json:"stop_loss_value,omitempty"`
	StartTimeMs     int64    `json:"start_time_ms,omitempty"`
	EndTimeMs       int64    `json:"end_time_ms,omitempty"`
	PositionSide    string   `json:"position_side,omitempty"` // default: LONG
	Leverage        float64  `json:"leverage,omitempty"`      // default: 1
	SlippageRate    float64  `json:"slippage_rate,omitempty"`
}

// TradeView is one trade in a backtest response.
type TradeView struct {
	EntryTimeMs   int64   `json:"entry_time_ms"`
	EntryPrice    float64 `json:"entry_price"`
	StopLoss      float64 `json:"stop_loss"`
	TakeProfit    float64 `json:"take_profit"`
	ExitTimeMs    *int64  `json:"exit_time_ms,omitempty"`
	Outcome       string  `json:"outcome"`
	ProfitRate    float64 `json:"profit_rate"`
	CumProfitRate float64 `json:"cum_profit_rate"`
}

// BacktestResponse is the result of one backtest run.
type BacktestResponse struct {
	Symbol     string             `json:"symbol"`
	Interval   string             `json:"interval"`
	Trades     []TradeView        `json:"trades"`
	Statistics *domain.Statistics `json:"statistics"`
}

// ResultView is one persisted result row.
type ResultView struct {
	Symbol          string  `json:"symbol"`
	Interval        string  `json:"interval"`
	Predicate       string  `json:"predicate"`
	Indicators      string  `json:"indicators"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
	StartTimeMs     int64   `json:"start_time_ms"`
	EndTimeMs       int64   `json:"end_time_ms"`
	EntryTimeMs     int64   `json:"entry_time_ms"`
	EntryPrice      float64 `json:"entry_price"`
	StopLoss        float64 `json:"stop_loss"`
	TakeProfit      float64 `json:"take_profit"`
	ExitTimeMs      *int64  `json:"exit_time_ms,omitempty"`
	Outcome         string  `json:"outcome"`
	ProfitRate      float64 `json:"profit_rate"`
	CumProfitRate   float64 `json:"cum_profit_rate"`
}

// BarView is one OHLCV candle.
type BarView struct {
	TimestampMs int64   `json:"timestamp_ms"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func tradeView(t *domain.Trade) TradeView {
	v := TradeView{
		EntryTimeMs:   t.EntryTimeMs,
		EntryPrice:    t.EntryPrice,
		StopLoss:      t.StopLoss,
		TakeProfit:    t.TakeProfit,
		Outcome:       string(t.Outcome),
		ProfitRate:    t.ProfitRate,
		CumProfitRate: t.CumProfitRate,
	}
	if t.ExitTimeMs != nil {
		exit := *t.ExitTimeMs
		v.ExitTimeMs = &exit
	}
	return v
}

func resultView(r *domain.BacktestResult) ResultView {
	v := ResultView{
		Symbol:          r.Symbol,
		Interval:        string(r.Interval),
		Predicate:       r.Predicate,
		Indicators:      r.Indicators,
		RiskRewardRatio: r.RiskRewardRatio,
		StartTimeMs:     r.StartTimeMs,
		EndTimeMs:       r.EndTimeMs,
		EntryTimeMs:     r.EntryTimeMs,
		EntryPrice:      r.EntryPrice,
		StopLoss:        r.StopLoss,
		TakeProfit:      r.TakeProfit,
		Outcome:         string(r.Outcome),
		ProfitRate:      r.ProfitRate,
		CumProfitRate:   r.CumProfitRate,
	}
	if r.ExitTimeMs != nil {
		exit := *r.ExitTimeMs
		v.ExitTimeMs = &exit
	}
	return v
}

func barView(b *domain.Bar) BarView {
	return BarView{
		TimestampMs: b.TimestampMs,
		Open:        b.Open,
		High:        b.High,
		Low:         b.Low,
		Close:       b.Close,
		Volume:      b.Volume,
	}
}
