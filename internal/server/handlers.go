package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"strategy-lab/internal/backtest"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/predicate"
)

// runBacktest handles POST /api/v1/backtest.
func (s *Server) runBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	expr, err := predicate.Parse(req.Predicate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "INVALID_PREDICATE", Message: err.Error()},
		})
		return
	}

	params := paramsFromRequest(&req, expr)
	start := time.Now()
	set, err := s.engine.Run(c.Request.Context(), callerIdentity(c), params)
	if err != nil {
		s.metrics.ObserveBacktest("error", 0, time.Since(start))
		s.backtestError(c, err)
		return
	}
	s.metrics.ObserveBacktest("ok", len(set.Trades), time.Since(start))

	trades := make([]TradeView, len(set.Trades))
	for i, t := range set.Trades {
		trades[i] = tradeView(t)
	}
	c.JSON(http.StatusOK, BacktestResponse{
		Symbol:     set.Symbol,
		Interval:   string(set.Interval),
		Trades:     trades,
		Statistics: backtest.Summarize(set),
	})
}

// paramsFromRequest applies the request defaults: LOW stop-loss, LONG
// side, leverage 1.
func paramsFromRequest(req *BacktestRequest, expr predicate.Expr) *domain.StrategyParams {
	params := &domain.StrategyParams{
		Symbol:          req.Symbol,
		Interval:        domain.Interval(req.Interval),
		Predicate:       expr,
		RiskRewardRatio: req.RiskRewardRatio,
		StopLossMode:    domain.StopLossMode(req.StopLossMode),
		StopLossValue:   req.StopLossValue,
		Side:            domain.PositionSide(req.PositionSide),
		Leverage:        req.Leverage,
		SlippageRate:    req.SlippageRate,
	}
	if params.StopLossMode == "" {
		params.StopLossMode = domain.StopLossLow
	}
	if params.Side == "" {
		params.Side = domain.SideLong
	}
	if params.Leverage == 0 {
		params.Leverage = 1
	}
	if req.StartTimeMs != 0 || req.EndTimeMs != 0 {
		params.Window = &domain.TimeWindow{StartMs: req.StartTimeMs, EndMs: req.EndTimeMs}
	}
	return params
}

func (s *Server) backtestError(c *gin.Context, err error) {
	switch {
	case backtest.IsValidationError(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "VALIDATION_ERROR", Message: err.Error()},
		})
	case errors.Is(err, backtest.ErrDataUnavailable):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: ErrorDetail{Code: "DATA_SOURCE_ERROR", Message: err.Error()},
		})
	default:
		s.logger.Printf("backtest failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: "INTERNAL", Message: "backtest failed"},
		})
	}
}

// listResults handles GET /api/v1/results.
func (s *Server) listResults(c *gin.Context) {
	results, err := s.results.GetByIdentity(c.Request.Context(), callerIdentity(c))
	if err != nil {
		s.logger.Printf("list results failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: "INTERNAL", Message: "failed to load results"},
		})
		return
	}

	views := make([]ResultView, len(results))
	for i, r := range results {
		views[i] = resultView(r)
	}
	c.JSON(http.StatusOK, gin.H{"results": views})
}

// resultStatistics handles GET /api/v1/results/statistics.
func (s *Server) resultStatistics(c *gin.Context) {
	results, err := s.results.GetByIdentity(c.Request.Context(), callerIdentity(c))
	if err != nil {
		s.logger.Printf("result statistics failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: "INTERNAL", Message: "failed to load results"},
		})
		return
	}

	c.JSON(http.StatusOK, backtest.SummarizeResults(results))
}

// getOHLCV handles GET /api/v1/ohlcv/:symbol/:interval.
func (s *Server) getOHLCV(c *gin.Context) {
	interval, err := domain.ParseInterval(c.Param("interval"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	window, err := windowFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	bars, err := s.bars.FetchOHLCV(c.Request.Context(), c.Param("symbol"), interval, window)
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: ErrorDetail{Code: "DATA_SOURCE_ERROR", Message: err.Error()},
		})
		return
	}

	views := make([]BarView, len(bars))
	for i, b := range bars {
		views[i] = barView(b)
	}
	c.JSON(http.StatusOK, gin.H{"bars": views})
}

func windowFromQuery(c *gin.Context) (*domain.TimeWindow, error) {
	startStr := c.Query("start_time_ms")
	endStr := c.Query("end_time_ms")
	if startStr == "" && endStr == "" {
		return nil, nil
	}

	window := &domain.TimeWindow{}
	if startStr != "" {
		v, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return nil, errors.New("start_time_ms must be an integer")
		}
		window.StartMs = v
	}
	if endStr != "" {
		v, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, errors.New("end_time_ms must be an integer")
		}
		window.EndMs = v
	}
	return window, nil
}

// healthz handles GET /healthz, unauthenticated.
func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
