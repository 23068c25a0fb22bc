// Package strategies produces target-position schedules from price series.
package strategies

import "github.com/aristath/aetherquant/internal/domain"

// Strategy converts a close-price series into a target-position schedule on
// the same index. Implementations must not look ahead: the position at time
// t may only depend on prices up to and including t.
type Strategy interface {
	// Name identifies the strategy in run records and logs.
	Name() string

	// TargetPositions returns the desired exposure per timestamp.
	TargetPositions(prices domain.Series) (domain.Series, error)
}

// Action classifies a single-period return against a symmetric threshold.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal maps the latest period return to a trading action. Returns inside
// (-threshold, threshold) are a hold.
func Signal(latestReturn, threshold float64) Action {
	switch {
	case latestReturn > threshold:
		return ActionBuy
	case latestReturn < -threshold:
		return ActionSell
	default:
		return ActionHold
	}
}
