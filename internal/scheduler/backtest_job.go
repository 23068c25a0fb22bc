package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/aetherquant/internal/marketdata"
	"github.com/aristath/aetherquant/internal/modules/backtest"
	"github.com/aristath/aetherquant/internal/modules/portfolio"
	"github.com/aristath/aetherquant/internal/modules/runs"
	"github.com/aristath/aetherquant/internal/modules/strategies"
)

// BacktestJob runs a recurring backtest of one symbol and records the result
// in the run history.
type BacktestJob struct {
	provider marketdata.Provider
	repo     *runs.Repository
	symbol   string
	period   string
	momentum strategies.MomentumConfig
	cfg      portfolio.Config
	log      zerolog.Logger
}

// NewBacktestJob creates a scheduled backtest job.
func NewBacktestJob(
	provider marketdata.Provider,
	repo *runs.Repository,
	symbol, period string,
	momentum strategies.MomentumConfig,
	cfg portfolio.Config,
	log zerolog.Logger,
) *BacktestJob {
	return &BacktestJob{
		provider: provider,
		repo:     repo,
		symbol:   symbol,
		period:   period,
		momentum: momentum,
		cfg:      cfg,
		log:      log.With().Str("job", "scheduled_backtest").Logger(),
	}
}

// Name implements Job.
func (j *BacktestJob) Name() string { return "scheduled_backtest" }

// Run implements Job.
func (j *BacktestJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	prices, err := j.provider.ClosePrices(ctx, j.symbol, j.period)
	if err != nil {
		return err
	}

	strategy, err := strategies.NewMovingAverageCross(j.momentum)
	if err != nil {
		return err
	}

	result, err := backtest.NewEngine(strategy, j.cfg, j.log).Run(prices)
	if err != nil {
		return err
	}

	runID, err := j.repo.RecordRun(runs.RunRecord{
		RunType:  "scheduled_backtest",
		Symbol:   j.symbol,
		Period:   j.period,
		Interval: "1d",
		Payload:  map[string]any{"strategy": strategy.Name()},
		Metrics: map[string]float64{
			"annual_return": result.Metrics.AnnualReturn,
			"max_drawdown":  result.Metrics.MaxDrawdown,
			"sharpe":        result.Metrics.Sharpe,
		},
		Equity: result.Equity,
	})
	if err != nil {
		return err
	}

	j.log.Info().
		Int64("run_id", runID).
		Float64("final_equity", result.Equity.Last()).
		Msg("Scheduled backtest recorded")
	return nil
}
