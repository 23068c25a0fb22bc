// Package risk provides pure analytics over an equity value path.
package risk

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/aetherquant/internal/domain"
)

// DefaultPeriodsPerYear is the trading-day convention used for
// annualization.
const DefaultPeriodsPerYear = 252

// AnnualizedReturn computes the geometric annualized return of an equity
// path. Paths with fewer than two points annualize to zero.
func AnnualizedReturn(equity domain.Series, periodsPerYear int) float64 {
	if equity.Len() < 2 {
		return 0
	}
	totalReturn := equity.Last()/equity.First() - 1
	years := float64(equity.Len()) / float64(periodsPerYear)
	if years <= 0 {
		return 0
	}
	return math.Pow(1+totalReturn, 1/years) - 1
}

// MaxDrawdown computes the most negative peak-to-trough drawdown of an
// equity path. The result is always ≤ 0; it is 0 only for a monotonically
// non-decreasing path.
func MaxDrawdown(equity domain.Series) float64 {
	if equity.Len() == 0 {
		return 0
	}
	runningMax := equity.Value(0)
	worst := 0.0
	for i := 0; i < equity.Len(); i++ {
		value := equity.Value(i)
		if value > runningMax {
			runningMax = value
		}
		drawdown := value/runningMax - 1
		if drawdown < worst {
			worst = drawdown
		}
	}
	return worst
}

// SharpeRatio computes the annualized risk-adjusted return ratio of an
// equity path against a constant annual risk-free rate. Returns zero when
// the period returns are empty or their sample standard deviation is zero
// or undefined.
func SharpeRatio(equity domain.Series, riskFreeRate float64, periodsPerYear int) float64 {
	returns := equity.PctChange()
	if len(returns) == 0 {
		return 0
	}

	perPeriodRate := riskFreeRate / float64(periodsPerYear)
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - perPeriodRate
	}

	std := stat.StdDev(excess, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return stat.Mean(excess, nil) / std * math.Sqrt(float64(periodsPerYear))
}
