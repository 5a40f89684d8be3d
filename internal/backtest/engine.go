package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/predicate"
	"strategy-lab/internal/storage"
)

// Validation errors, rejected before any data is fetched.
var (
	ErrInvalidPredicate    = errors.New("invalid predicate")
	ErrMissingPredicate    = errors.New("predicate is required")
	ErrMissingStopLoss     = errors.New("stop_loss_value is required for CUSTOM stop-loss mode")
	ErrInvalidStopLossMode = errors.New("invalid stop_loss_mode")
	ErrInvalidRiskReward   = errors.New("risk_reward_ratio must be > 0")
	ErrInvalidSide         = errors.New("invalid position_side")
	ErrInvalidLeverage     = errors.New("leverage must be >= 1")
	ErrInvalidSlippage     = errors.New("slippage_rate must be >= 0")
	ErrInvalidSymbol       = errors.New("symbol is required")
	ErrInvalidInterval     = errors.New("unsupported interval")
)

// ErrDataUnavailable wraps market-data provider failures. The engine
// performs no retries; retry policy belongs to the provider.
var ErrDataUnavailable = errors.New("market data unavailable")

// Engine runs backtest simulations against injected collaborators.
// A run is single-threaded and stateless across invocations: it
// operates on its own fetched snapshot and produces values, so
// concurrent runs need no locking here.
type Engine struct {
	bars    storage.BarStore
	results storage.BacktestResultStore
	logger  *log.Logger
}

// EngineOptions contains configuration for creating an Engine.
// Results may be nil; runs are then not persisted.
type EngineOptions struct {
	Bars    storage.BarStore
	Results storage.BacktestResultStore
	Logger  *log.Logger
}

// NewEngine creates a backtest engine.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		bars:    opts.Bars,
		results: opts.Results,
		logger:  logger,
	}
}

// Run executes one simulation. Steps:
//  1. Validate params (no data is fetched on invalid input)
//  2. Fetch the joined bar snapshot from the window start onward
//  3. Select entries inside the window, derive stop-loss/take-profit
//  4. Scan for first-touch exits with a forward cursor
//  5. Classify and price each trade
//  6. Deduplicate, sort, compound, percent-scale
//  7. Upsert results under identity, when a store is configured
//
// An empty bar or entry set yields an empty TradeSet, not an error.
func (e *Engine) Run(ctx context.Context, identity string, params *domain.StrategyParams) (*domain.TradeSet, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}

	bars, err := e.bars.FetchBars(ctx, params.Symbol, params.Interval, fetchWindow(params.Window))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	entries, err := SelectEntries(bars, params)
	if err != nil {
		return nil, err
	}
	sortEntries(entries)

	exits := ScanExits(entries, bars, params.Side)

	raw := make([]*domain.Trade, len(entries))
	for i, entry := range entries {
		raw[i] = Classify(entry, exits[i], params)
	}

	set := BuildTradeSet(params.Symbol, params.Interval, raw)
	e.logger.Printf("backtest %s/%s: %d bars, %d entries, %d trades",
		params.Symbol, params.Interval, len(bars), len(entries), len(set.Trades))

	if e.results != nil && identity != "" && len(set.Trades) > 0 {
		if err := e.results.Upsert(ctx, BuildResults(identity, params, set)); err != nil {
			return nil, fmt.Errorf("persist results: %w", err)
		}
	}
	return set, nil
}

// fetchWindow drops the right bound of the entry window for the
// snapshot fetch. The window restricts entry candidates only; exits may
// touch on any later bar, so the scanner needs history past the window
// end. Bars before the window start can never matter.
func fetchWindow(w *domain.TimeWindow) *domain.TimeWindow {
	if w == nil || w.StartMs == 0 {
		return nil
	}
	return &domain.TimeWindow{StartMs: w.StartMs}
}

// ValidateParams rejects malformed strategy parameters with enough
// detail for the caller to correct the request.
func ValidateParams(params *domain.StrategyParams) error {
	if params.Symbol == "" {
		return ErrInvalidSymbol
	}
	if _, err := domain.ParseInterval(string(params.Interval)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidInterval, params.Interval)
	}
	if params.Predicate == nil {
		return ErrMissingPredicate
	}
	if params.RiskRewardRatio <= 0 {
		return ErrInvalidRiskReward
	}
	switch params.StopLossMode {
	case domain.StopLossLow:
	case domain.StopLossCustom:
		// Defaulting a missing custom value to zero would invert the
		// take-profit/stop-loss ordering, so it is rejected outright.
		if params.StopLossValue == nil {
			return ErrMissingStopLoss
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStopLossMode, params.StopLossMode)
	}
	switch params.Side {
	case domain.SideLong, domain.SideShort:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSide, params.Side)
	}
	if params.Leverage < 1 {
		return ErrInvalidLeverage
	}
	if params.SlippageRate < 0 {
		return ErrInvalidSlippage
	}
	return nil
}

// IsValidationError reports whether err is a pre-fetch input rejection.
func IsValidationError(err error) bool {
	for _, v := range []error{
		ErrInvalidPredicate, ErrMissingPredicate, ErrMissingStopLoss,
		ErrInvalidStopLossMode, ErrInvalidRiskReward, ErrInvalidSide,
		ErrInvalidLeverage, ErrInvalidSlippage, ErrInvalidSymbol,
		ErrInvalidInterval,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// BuildResults converts a trade set into persistable rows keyed for the
// result store's upsert semantics.
func BuildResults(identity string, params *domain.StrategyParams, set *domain.TradeSet) []*domain.BacktestResult {
	var startMs, endMs int64
	if params.Window != nil {
		startMs = params.Window.StartMs
		endMs = params.Window.EndMs
	}

	indicators := "None"
	if expr, ok := params.Predicate.(predicate.Expr); ok {
		indicators = predicate.IndicatorSummary(expr)
	}

	results := make([]*domain.BacktestResult, len(set.Trades))
	for i, t := range set.Trades {
		r := &domain.BacktestResult{
			Identity:        identity,
			Symbol:          set.Symbol,
			Interval:        set.Interval,
			Predicate:       params.PredicateText(),
			Indicators:      indicators,
			RiskRewardRatio: params.RiskRewardRatio,
			StartTimeMs:     startMs,
			EndTimeMs:       endMs,
			EntryTimeMs:     t.EntryTimeMs,
			EntryPrice:      t.EntryPrice,
			StopLoss:        t.StopLoss,
			TakeProfit:      t.TakeProfit,
			Outcome:         t.Outcome,
			ProfitRate:      t.ProfitRate,
			CumProfitRate:   t.CumProfitRate,
		}
		if t.ExitTimeMs != nil {
			exit := *t.ExitTimeMs
			r.ExitTimeMs = &exit
		}
		results[i] = r
	}
	return results
}
