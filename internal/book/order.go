package book

// OrderPtr is the contract the book core requires from a host order
// handle. It is intentionally small: everything plugin-specific (user
// id, self-trade policy, post-only, reduce-only, stop price, trailing
// amount) is still read through this single interface so the core and
// every plugin address fields by name, never by downcast.
type OrderPtr interface {
	UserID() uint64
	IsBid() bool
	Price() float64
	Qty() float64
	Funds() float64

	StopPrice() float64
	TrailingAmount() float64
	PostOnly() bool
	ReduceOnly() bool
	STP() STPMode

	// TrailingStopKey is a mutable slot used only by the trailing-stop
	// plugin to relocate its own entry when cancelling.
	TrailingStopKey() float64
	SetTrailingStopKey(key float64)
}

// IsMarket reports whether order o is a market order (price == 0).
func IsMarket(o OrderPtr) bool {
	return o.Price() == 0
}
