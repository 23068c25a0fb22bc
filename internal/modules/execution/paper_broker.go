package execution

import (
	"fmt"

	"github.com/rs/zerolog"
)

// PaperBroker simulates order execution with single-symbol cash/position
// bookkeeping. Slippage is a basis-point markup on buys and markdown on
// sells; commission is a basis-point fee on notional.
//
// A PaperBroker instance holds at most one open symbol position at a time.
// This is a documented invariant, not an accident: a buy targeting a second
// symbol while another position is open is rejected, and downstream callers
// rely on that failure. Callers needing concurrent simulations must construct
// independent instances; there is no internal locking.
type PaperBroker struct {
	cash          float64
	commissionBps float64
	slippageBps   float64
	position      Position
	log           zerolog.Logger
}

// NewPaperBroker creates a simulated broker with the given starting cash.
func NewPaperBroker(startingCash, commissionBps, slippageBps float64, log zerolog.Logger) (*PaperBroker, error) {
	if startingCash < 0 {
		return nil, fmt.Errorf("starting_cash must be non-negative, got %f", startingCash)
	}
	if commissionBps < 0 {
		return nil, fmt.Errorf("commission_bps must be non-negative, got %f", commissionBps)
	}
	if slippageBps < 0 {
		return nil, fmt.Errorf("slippage_bps must be non-negative, got %f", slippageBps)
	}
	return &PaperBroker{
		cash:          startingCash,
		commissionBps: commissionBps,
		slippageBps:   slippageBps,
		log:           log.With().Str("broker", "paper").Logger(),
	}, nil
}

// Cash returns the current cash balance.
func (b *PaperBroker) Cash() float64 {
	return b.cash
}

// Position returns a copy of the current position.
func (b *PaperBroker) Position() Position {
	return b.position
}

// SubmitOrder executes an order against the simulated account.
// All validation runs before any mutation, so a rejected order leaves cash
// and position exactly as they were (all-or-nothing per order).
func (b *PaperBroker) SubmitOrder(order Order, marketPrice float64) (Fill, error) {
	slippageFactor := 1 + (b.slippageBps / 10_000)

	var executionPrice float64
	if order.Side == SideBuy {
		executionPrice = marketPrice * slippageFactor
	} else {
		executionPrice = marketPrice / slippageFactor
	}

	notional := order.Quantity * executionPrice
	commission := notional * (b.commissionBps / 10_000)

	if order.Side == SideBuy {
		if err := b.applyBuy(order, executionPrice, notional, commission); err != nil {
			return Fill{}, err
		}
	} else {
		if err := b.applySell(order, notional, commission); err != nil {
			return Fill{}, err
		}
	}

	b.log.Debug().
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Float64("quantity", order.Quantity).
		Float64("fill_price", executionPrice).
		Float64("commission", commission).
		Float64("cash", b.cash).
		Msg("Order filled")

	return Fill{Order: order, FillPrice: executionPrice, Commission: commission}, nil
}

func (b *PaperBroker) applyBuy(order Order, price, notional, commission float64) error {
	totalCost := notional + commission
	if totalCost > b.cash {
		return fmt.Errorf("insufficient cash for order: need %.2f, have %.2f", totalCost, b.cash)
	}
	if b.position.Symbol != "" && b.position.Symbol != order.Symbol {
		return fmt.Errorf("paper broker supports one active symbol per instance (open: %s, requested: %s)",
			b.position.Symbol, order.Symbol)
	}

	newQty := b.position.Quantity + order.Quantity
	if newQty <= 0 {
		return fmt.Errorf("position quantity must remain positive after buy, got %f", newQty)
	}

	b.cash -= totalCost
	weightedCost := (b.position.Quantity * b.position.AvgPrice) + (order.Quantity * price)
	b.position.Symbol = order.Symbol
	b.position.AvgPrice = weightedCost / newQty
	b.position.Quantity = newQty
	return nil
}

func (b *PaperBroker) applySell(order Order, notional, commission float64) error {
	if order.Quantity > b.position.Quantity {
		return fmt.Errorf("insufficient position to sell: want %f, hold %f", order.Quantity, b.position.Quantity)
	}

	b.cash += notional - commission
	b.position.Quantity -= order.Quantity
	if b.position.Quantity == 0 {
		b.position.AvgPrice = 0
	}
	return nil
}

// AccountSnapshot projects account value at the given mark price.
// Market value is zero unless the open position matches the requested symbol.
func (b *PaperBroker) AccountSnapshot(marketPrice float64, symbol string) AccountSnapshot {
	var marketValue float64
	if b.position.Symbol == symbol && b.position.Quantity != 0 {
		marketValue = b.position.Quantity * marketPrice
	}
	return AccountSnapshot{
		Cash:        b.cash,
		MarketValue: marketValue,
		Equity:      b.cash + marketValue,
	}
}
