package execution

import (
	"fmt"
	"math"

	"github.com/aristath/aetherquant/internal/domain"
	"github.com/rs/zerolog"
)

// TradingRunResult is the output of a trading engine run: the realized
// equity path (one point per input timestamp), the number of orders placed,
// and the placed orders in submission order.
type TradingRunResult struct {
	EquityCurve  domain.Series
	OrdersPlaced int
	Orders       []Order
}

// TradingEngine converts a target-position schedule into a minimal sequence
// of rebalancing orders against a broker.
type TradingEngine struct {
	broker Broker
	symbol string
	log    zerolog.Logger
}

// NewTradingEngine creates an engine bound to one broker and symbol.
func NewTradingEngine(broker Broker, symbol string, log zerolog.Logger) *TradingEngine {
	return &TradingEngine{
		broker: broker,
		symbol: symbol,
		log:    log.With().Str("component", "trading_engine").Str("symbol", symbol).Logger(),
	}
}

// Run walks prices and targets in lock-step, emitting an order whenever the
// target differs from the realized position and snapshotting equity after
// every step. This is a strict single pass with no lookahead: each equity
// point reflects the state after that step's order only.
func (e *TradingEngine) Run(prices, targets domain.Series) (TradingRunResult, error) {
	if !prices.SameIndex(targets) {
		return TradingRunResult{}, fmt.Errorf("prices and target positions must have the same index")
	}

	realizedPosition := 0.0
	equityPoints := make([]float64, 0, prices.Len())
	var placedOrders []Order

	for i := 0; i < prices.Len(); i++ {
		price := prices.Value(i)
		target := targets.Value(i)
		delta := target - realizedPosition

		if delta != 0 {
			side := SideBuy
			if delta < 0 {
				side = SideSell
			}
			order, err := NewOrder(e.symbol, math.Abs(delta), side, prices.Time(i))
			if err != nil {
				return TradingRunResult{}, fmt.Errorf("failed to build order at step %d: %w", i, err)
			}
			if _, err := e.broker.SubmitOrder(order, price); err != nil {
				return TradingRunResult{}, fmt.Errorf("order rejected at step %d: %w", i, err)
			}
			placedOrders = append(placedOrders, order)
			realizedPosition = target
		}

		snapshot := e.broker.AccountSnapshot(price, e.symbol)
		equityPoints = append(equityPoints, snapshot.Equity)
	}

	curve, err := prices.WithValues(equityPoints)
	if err != nil {
		return TradingRunResult{}, fmt.Errorf("failed to build equity curve: %w", err)
	}

	e.log.Debug().
		Int("orders_placed", len(placedOrders)).
		Int("points", curve.Len()).
		Msg("Trading run complete")

	return TradingRunResult{
		EquityCurve:  curve,
		OrdersPlaced: len(placedOrders),
		Orders:       placedOrders,
	}, nil
}
