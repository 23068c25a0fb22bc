package execution

// Broker is the execution contract consumed by the trading engine.
// Two variants exist: PaperBroker (deterministic in-process accounting) and
// LiveBroker (delegates to an external REST transport).
type Broker interface {
	// SubmitOrder executes an order at the given market price and returns
	// fill details. Failures leave broker state untouched.
	SubmitOrder(order Order, marketPrice float64) (Fill, error)

	// AccountSnapshot returns account values at the provided mark price.
	// It never mutates state.
	AccountSnapshot(marketPrice float64, symbol string) AccountSnapshot
}

// Compile-time checks that both variants implement the contract.
var (
	_ Broker = (*PaperBroker)(nil)
	_ Broker = (*LiveBroker)(nil)
)
