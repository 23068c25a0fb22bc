// Package marketdata supplies close-price history to the simulation and
// allocation layers.
package marketdata

import (
	"context"

	"github.com/aristath/aetherquant/internal/domain"
)

// Provider returns daily close prices for a symbol. Period uses compact
// notation ("1y", "6mo", "30d"); providers that cannot slice by period
// return the full history they hold.
type Provider interface {
	ClosePrices(ctx context.Context, symbol, period string) (domain.Series, error)
}
