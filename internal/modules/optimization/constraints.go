package optimization

import "fmt"

// Constraints holds the box and budget constraints for an allocation solve.
type Constraints struct {
	AllowShort bool
	MaxWeight  float64
}

// DefaultConstraints is the long-only, uncapped constraint set.
func DefaultConstraints() Constraints {
	return Constraints{AllowShort: false, MaxWeight: 1.0}
}

// NewConstraints creates a validated constraint set. MaxWeight must be
// strictly positive.
func NewConstraints(allowShort bool, maxWeight float64) (Constraints, error) {
	if maxWeight <= 0 {
		return Constraints{}, fmt.Errorf("max_weight must be greater than zero, got %f", maxWeight)
	}
	return Constraints{AllowShort: allowShort, MaxWeight: maxWeight}, nil
}

// ValidateFeasibility checks analytically that a feasible weight vector
// exists for the given asset count, before any solver runs. Long-only
// allocations need MaxWeight × n ≥ 1 for the weights to reach a sum of 1
// under the per-asset cap.
func (c Constraints) ValidateFeasibility(nAssets int) error {
	if nAssets <= 0 {
		return fmt.Errorf("n_assets must be greater than zero, got %d", nAssets)
	}
	if !c.AllowShort && c.MaxWeight*float64(nAssets) < 1.0 {
		return fmt.Errorf("infeasible constraints: max_weight %.4f is too small for a long-only allocation across %d assets", c.MaxWeight, nAssets)
	}
	return nil
}

// bounds returns the per-asset lower and upper weight bounds.
func (c Constraints) bounds() (lower, upper float64) {
	if c.AllowShort {
		return -c.MaxWeight, c.MaxWeight
	}
	return 0, c.MaxWeight
}
