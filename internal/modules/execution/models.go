// Package execution provides the order/position accounting model, the broker
// contract, and the engine that realizes a target-position schedule against a
// broker.
package execution

import (
	"fmt"
	"time"
)

// Side identifies the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// SideFromString parses a side string.
func SideFromString(s string) (Side, error) {
	switch s {
	case "buy", "BUY":
		return SideBuy, nil
	case "sell", "SELL":
		return SideSell, nil
	default:
		return "", fmt.Errorf("invalid order side: %q", s)
	}
}

// Order is an immutable market order request.
type Order struct {
	Symbol    string
	Quantity  float64
	Side      Side
	Timestamp time.Time
}

// NewOrder creates a validated order. Quantity must be strictly positive.
func NewOrder(symbol string, quantity float64, side Side, timestamp time.Time) (Order, error) {
	if symbol == "" {
		return Order{}, fmt.Errorf("order symbol must be non-empty")
	}
	if quantity <= 0 {
		return Order{}, fmt.Errorf("order quantity must be greater than zero, got %f", quantity)
	}
	if side != SideBuy && side != SideSell {
		return Order{}, fmt.Errorf("invalid order side: %q", side)
	}
	return Order{Symbol: symbol, Quantity: quantity, Side: side, Timestamp: timestamp}, nil
}

// Fill records the executed economics of an order. Slippage is already baked
// into FillPrice.
type Fill struct {
	Order      Order
	FillPrice  float64
	Commission float64
}

// Position is the broker's open holding for a single symbol.
// Quantity is zero or positive; AvgPrice is the quantity-weighted average
// cost, reset to zero when the position is fully closed.
type Position struct {
	Symbol   string
	Quantity float64
	AvgPrice float64
}

// AccountSnapshot is an ephemeral projection of account value at a mark
// price. Equity = Cash + MarketValue. It is recomputed on demand and never
// persisted as broker state.
type AccountSnapshot struct {
	Cash        float64
	MarketValue float64
	Equity      float64
}
