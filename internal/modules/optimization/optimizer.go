package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

const (
	// penaltyWeight scales the quadratic penalty that enforces the
	// sum-to-1 budget constraint inside the unconstrained solver.
	penaltyWeight = 1000.0

	// degenerateVariancePenalty steers the solver away from trial points
	// with non-positive portfolio variance.
	degenerateVariancePenalty = 1e9
)

// Optimizer solves constrained allocation problems over a returns matrix.
// Each call is self-contained; the struct only carries the logger.
type Optimizer struct {
	log zerolog.Logger
}

// NewOptimizer creates an allocation optimizer.
func NewOptimizer(log zerolog.Logger) *Optimizer {
	return &Optimizer{log: log.With().Str("component", "optimizer").Logger()}
}

// RiskParityWeights computes weights that equalize each asset's risk
// contribution, subject to box bounds and a sum-to-1 budget. Risk
// contribution of asset i is w_i (Σw)_i / sqrt(wᵀΣw): its marginal
// contribution to portfolio variance weighted by its holding.
func (o *Optimizer) RiskParityWeights(returns ReturnsMatrix, constraints Constraints) (map[string]float64, error) {
	n := returns.NumAssets()
	if err := constraints.ValidateFeasibility(n); err != nil {
		return nil, err
	}

	cov := returns.Covariance()
	lower, upper := constraints.bounds()

	objective := func(x []float64) float64 {
		w := projectToBounds(x, lower, upper)

		portfolioVariance := quadraticForm(w, cov)
		if portfolioVariance <= 0 {
			return degenerateVariancePenalty
		}
		vol := math.Sqrt(portfolioVariance)

		contrib := make([]float64, n)
		var meanContrib float64
		for i := 0; i < n; i++ {
			var marginal float64
			for j := 0; j < n; j++ {
				marginal += cov.At(i, j) * w[j]
			}
			contrib[i] = w[i] * marginal / vol
			meanContrib += contrib[i]
		}
		meanContrib /= float64(n)

		var obj float64
		for i := 0; i < n; i++ {
			dev := contrib[i] - meanContrib
			obj += dev * dev
		}
		return obj + sumPenalty(w)
	}

	// Nelder-Mead first: the risk parity objective has no cheap analytic
	// gradient. BFGS falls back on a finite-difference gradient.
	x, err := solveWithFallback(optimize.Problem{Func: objective}, n, &optimize.NelderMead{}, &optimize.BFGS{})
	if err != nil {
		return nil, fmt.Errorf("risk parity optimization failed: %w", err)
	}

	weights := o.finalize(x, lower, upper, returns.Assets)
	o.log.Debug().Int("assets", n).Msg("Risk parity solve converged")
	return weights, nil
}

// MeanVarianceWeights computes weights maximizing expected return net of a
// variance penalty scaled by riskAversion, subject to box bounds and a
// sum-to-1 budget.
func (o *Optimizer) MeanVarianceWeights(returns ReturnsMatrix, riskAversion float64, constraints Constraints) (map[string]float64, error) {
	if riskAversion <= 0 {
		return nil, fmt.Errorf("risk_aversion must be greater than zero, got %f", riskAversion)
	}
	n := returns.NumAssets()
	if err := constraints.ValidateFeasibility(n); err != nil {
		return nil, err
	}

	mu := returns.MeanReturns()
	cov := returns.Covariance()
	lower, upper := constraints.bounds()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToBounds(x, lower, upper)

			var expected float64
			for i := 0; i < n; i++ {
				expected += mu[i] * w[i]
			}
			variance := quadraticForm(w, cov)

			return -expected + riskAversion*variance + sumPenalty(w)
		},
		Grad: func(grad, x []float64) {
			w := projectToBounds(x, lower, upper)

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += w[i]
			}
			for i := 0; i < n; i++ {
				grad[i] = -mu[i]
				for j := 0; j < n; j++ {
					grad[i] += 2 * riskAversion * cov.At(i, j) * w[j]
				}
				grad[i] += 2 * penaltyWeight * (sum - 1.0)
			}
		},
	}

	x, err := solveWithFallback(problem, n, &optimize.BFGS{}, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("mean-variance optimization failed: %w", err)
	}

	weights := o.finalize(x, lower, upper, returns.Assets)
	o.log.Debug().Int("assets", n).Float64("risk_aversion", riskAversion).Msg("Mean-variance solve converged")
	return weights, nil
}

// finalize projects the raw solution to its bounds and normalizes it to sum
// exactly to 1, labeled by asset.
func (o *Optimizer) finalize(x []float64, lower, upper float64, assets []string) map[string]float64 {
	projected := projectToBounds(x, lower, upper)
	sum := 0.0
	for _, w := range projected {
		sum += w
	}

	weights := make(map[string]float64, len(assets))
	for i, asset := range assets {
		w := projected[i]
		if math.Abs(sum) > 1e-10 {
			w /= sum
		}
		weights[asset] = w
	}
	return weights
}

// solveWithFallback minimizes the problem from the equal-weight starting
// point, retrying with the fallback method when the primary one errors or
// terminates on a non-convergent status. A terminal non-convergence is an
// error, never a silently returned weight vector.
func solveWithFallback(problem optimize.Problem, n int, primary, fallback optimize.Method) ([]float64, error) {
	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, primary)
	if err == nil && converged(result.Status) {
		return result.X, nil
	}

	result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, fallback)
	if err != nil {
		return nil, fmt.Errorf("solver error: %w", err)
	}
	if !converged(result.Status) {
		return nil, fmt.Errorf("solver did not converge: status=%v", result.Status)
	}
	return result.X, nil
}

// converged reports whether the solver terminated on a status that counts as
// successful convergence.
func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	default:
		return false
	}
}

func projectToBounds(x []float64, lower, upper float64) []float64 {
	projected := make([]float64, len(x))
	for i := range x {
		projected[i] = math.Max(lower, math.Min(upper, x[i]))
	}
	return projected
}

func quadraticForm(w []float64, cov *mat.SymDense) float64 {
	var total float64
	for i := range w {
		for j := range w {
			total += w[i] * w[j] * cov.At(i, j)
		}
	}
	return total
}

func sumPenalty(w []float64) float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return penaltyWeight * (sum - 1.0) * (sum - 1.0)
}
