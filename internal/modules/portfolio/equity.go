// Package portfolio turns a position weight schedule and a price path into a
// cash-and-commission-adjusted equity path. This is the continuous
// weight-rebalancing research model, deliberately kept separate from the
// discrete order-driven engine in the execution module.
package portfolio

import (
	"fmt"
	"math"

	"github.com/aristath/aetherquant/internal/domain"
)

// Config holds the compounding parameters.
type Config struct {
	InitialCash   float64
	CommissionBps float64
}

// NewConfig creates a validated portfolio config.
func NewConfig(initialCash, commissionBps float64) (Config, error) {
	if initialCash <= 0 {
		return Config{}, fmt.Errorf("initial_cash must be greater than zero, got %f", initialCash)
	}
	if commissionBps < 0 {
		return Config{}, fmt.Errorf("commission_bps must be non-negative, got %f", commissionBps)
	}
	return Config{InitialCash: initialCash, CommissionBps: commissionBps}, nil
}

// EquityCurve compounds a fractional position weight schedule over a price
// path.
//
// Positions are shifted by one period before being applied: a position taken
// at time t only earns the return realized over (t, t+1], which removes
// lookahead bias. Turnover per period is the absolute change in position
// weight, charged at CommissionBps. The first point always equals the initial
// cash, since the shifted position and turnover for the first period
// reference a padded zero.
func EquityCurve(positions, prices domain.Series, cfg Config) (domain.Series, error) {
	if !positions.SameIndex(prices) {
		return domain.Series{}, fmt.Errorf("positions and prices must have the same index")
	}
	if prices.Len() == 0 {
		return domain.Series{}, fmt.Errorf("prices must contain at least one point")
	}

	n := prices.Len()
	equity := make([]float64, n)
	equity[0] = cfg.InitialCash

	commissionRate := cfg.CommissionBps / 10_000
	value := cfg.InitialCash
	for i := 1; i < n; i++ {
		var periodReturn float64
		if prev := prices.Value(i - 1); prev != 0 {
			periodReturn = (prices.Value(i) - prev) / prev
		}
		gross := positions.Value(i-1) * periodReturn
		turnover := math.Abs(positions.Value(i) - positions.Value(i-1))
		net := gross - turnover*commissionRate

		value *= 1 + net
		equity[i] = value
	}

	return prices.WithValues(equity)
}
