package strategies

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"github.com/aristath/aetherquant/internal/domain"
)

// MomentumConfig holds the moving-average lookback windows.
type MomentumConfig struct {
	LookbackFast int
	LookbackSlow int
}

// DefaultMomentumConfig is the 20/50 day crossover.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{LookbackFast: 20, LookbackSlow: 50}
}

// MovingAverageCross goes long when the fast SMA is above the slow SMA and
// short when below. Before the slow window has filled, and while the
// averages are exactly equal, the previous position is carried forward
// (starting flat).
type MovingAverageCross struct {
	cfg MomentumConfig
}

// NewMovingAverageCross creates a validated crossover strategy.
func NewMovingAverageCross(cfg MomentumConfig) (*MovingAverageCross, error) {
	if cfg.LookbackFast <= 0 || cfg.LookbackSlow <= 0 {
		return nil, fmt.Errorf("lookback windows must be greater than zero")
	}
	if cfg.LookbackFast >= cfg.LookbackSlow {
		return nil, fmt.Errorf("lookback_fast (%d) must be < lookback_slow (%d)", cfg.LookbackFast, cfg.LookbackSlow)
	}
	return &MovingAverageCross{cfg: cfg}, nil
}

// Name implements Strategy.
func (s *MovingAverageCross) Name() string {
	return fmt.Sprintf("ma_cross_%d_%d", s.cfg.LookbackFast, s.cfg.LookbackSlow)
}

// TargetPositions implements Strategy.
func (s *MovingAverageCross) TargetPositions(prices domain.Series) (domain.Series, error) {
	n := prices.Len()
	signals := make([]float64, n)
	if n < s.cfg.LookbackSlow {
		// Not enough history for a single slow average; stay flat.
		return prices.WithValues(signals)
	}

	closes := prices.Values()
	fast := talib.Sma(closes, s.cfg.LookbackFast)
	slow := talib.Sma(closes, s.cfg.LookbackSlow)

	current := 0.0
	for i := 0; i < n; i++ {
		if i >= s.cfg.LookbackSlow-1 {
			if fast[i] > slow[i] {
				current = 1
			} else if fast[i] < slow[i] {
				current = -1
			}
		}
		signals[i] = current
	}
	return prices.WithValues(signals)
}
