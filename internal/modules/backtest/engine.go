// Package backtest composes a strategy's target-position schedule with the
// portfolio compounding model and the risk analytics.
package backtest

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/aetherquant/internal/domain"
	"github.com/aristath/aetherquant/internal/modules/portfolio"
	"github.com/aristath/aetherquant/internal/modules/risk"
	"github.com/aristath/aetherquant/internal/modules/strategies"
)

// Metrics summarizes an equity path.
type Metrics struct {
	AnnualReturn float64
	MaxDrawdown  float64
	Sharpe       float64
}

// Result carries the strategy equity path next to a buy-and-hold benchmark
// over the same prices and portfolio config.
type Result struct {
	Equity           domain.Series
	Positions        domain.Series
	Metrics          Metrics
	BenchmarkEquity  domain.Series
	BenchmarkMetrics Metrics
}

// Engine runs a strategy backtest over a close-price series. This is the
// continuous weight-rebalancing research path; the order-driven simulation
// in the execution module is a separate model and the two are not expected
// to produce identical equity for the same strategy.
type Engine struct {
	strategy strategies.Strategy
	cfg      portfolio.Config
	log      zerolog.Logger
}

// NewEngine creates a backtest engine.
func NewEngine(strategy strategies.Strategy, cfg portfolio.Config, log zerolog.Logger) *Engine {
	return &Engine{
		strategy: strategy,
		cfg:      cfg,
		log:      log.With().Str("component", "backtest").Str("strategy", strategy.Name()).Logger(),
	}
}

// Run generates the strategy positions, compounds them into an equity path,
// and computes the summary metrics for both the strategy and a constant
// full-exposure benchmark.
func (e *Engine) Run(prices domain.Series) (Result, error) {
	if prices.Len() == 0 {
		return Result{}, fmt.Errorf("prices must contain at least one point")
	}

	positions, err := e.strategy.TargetPositions(prices)
	if err != nil {
		return Result{}, fmt.Errorf("strategy failed to generate positions: %w", err)
	}

	equity, err := portfolio.EquityCurve(positions, prices, e.cfg)
	if err != nil {
		return Result{}, fmt.Errorf("failed to compound strategy equity: %w", err)
	}

	benchmarkPositions := domain.ConstantSeries(prices, 1.0)
	benchmarkEquity, err := portfolio.EquityCurve(benchmarkPositions, prices, e.cfg)
	if err != nil {
		return Result{}, fmt.Errorf("failed to compound benchmark equity: %w", err)
	}

	result := Result{
		Equity:           equity,
		Positions:        positions,
		Metrics:          summarize(equity),
		BenchmarkEquity:  benchmarkEquity,
		BenchmarkMetrics: summarize(benchmarkEquity),
	}

	e.log.Info().
		Int("points", prices.Len()).
		Float64("final_equity", equity.Last()).
		Float64("benchmark_final_equity", benchmarkEquity.Last()).
		Msg("Backtest complete")

	return result, nil
}

func summarize(equity domain.Series) Metrics {
	return Metrics{
		AnnualReturn: risk.AnnualizedReturn(equity, risk.DefaultPeriodsPerYear),
		MaxDrawdown:  risk.MaxDrawdown(equity),
		Sharpe:       risk.SharpeRatio(equity, 0, risk.DefaultPeriodsPerYear),
	}
}
