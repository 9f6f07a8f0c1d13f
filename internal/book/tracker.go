package book

import "errors"

// ErrQtyTooSmall is returned by ReduceQty when the requested reduction
// would leave a non-zero residual below MinOrderQty.
var ErrQtyTooSmall = errors.New("qty_too_small")

// Tracker is the stateful wrapper that lives on (or off) the book for a
// single order. It owns the immutable order handle plus the mutable
// residual quantity/funds that change as the order fills.
type Tracker struct {
	order OrderPtr

	isBid       bool
	byFunds     bool // market buy sized by remaining funds rather than qty
	openQty     float64
	remaining   float64 // remaining funds, only meaningful when byFunds
	filledQty   float64
	filledFunds float64

	// seq is a monotonically assigned identifier used as the tracker's
	// position hint within whichever PriceLevel it rests on, so cancel
	// and replace can find it without a full-book scan.
	seq uint64
}

// NewTracker constructs a tracker for a freshly submitted order.
func NewTracker(order OrderPtr, seq uint64) *Tracker {
	t := &Tracker{
		order: order,
		isBid: order.IsBid(),
		seq:   seq,
	}
	if order.IsBid() && order.Price() == 0 && order.Funds() > 0 {
		t.byFunds = true
		t.remaining = order.Funds()
	} else {
		t.openQty = order.Qty()
	}
	return t
}

func (t *Tracker) Ptr() OrderPtr  { return t.order }
func (t *Tracker) IsBid() bool    { return t.isBid }
func (t *Tracker) Seq() uint64    { return t.seq }
func (t *Tracker) ByFunds() bool  { return t.byFunds }
func (t *Tracker) UserID() uint64 { return t.order.UserID() }
func (t *Tracker) STP() STPMode   { return t.order.STP() }

func (t *Tracker) OpenQty() float64 {
	if t.byFunds {
		return t.remaining
	}
	return t.openQty
}

func (t *Tracker) FilledQty() float64   { return t.filledQty }
func (t *Tracker) FilledFunds() float64 { return t.filledFunds }

// QtyOnBook is the residual quantity this tracker still contributes to
// the book's displayed size.
func (t *Tracker) QtyOnBook() float64 {
	return t.OpenQty()
}

// IsFilled reports whether this tracker should be considered exhausted,
// either because its residual qty is at or below MinOrderQty, or (for a
// funds-sized market buy) its remaining notional is at or below
// MinOrderFunds.
func (t *Tracker) IsFilled() bool {
	if t.byFunds {
		return t.remaining <= MinOrderFunds
	}
	return t.openQty <= MinOrderQty
}

// Tradable returns the quantity this tracker could still trade against a
// counterparty at the given trade price, rounded down to
// TradeQtyIncrement. For qty-sized trackers this is simply the open
// quantity; for funds-sized market buys it is funds/price.
func (t *Tracker) Tradable(price float64) float64 {
	if t.byFunds {
		if price <= 0 {
			return 0
		}
		return roundDownToIncrement(t.remaining / price)
	}
	return t.openQty
}

// ReduceQty subtracts qty from the open quantity. It fails if the result
// would be negative, or would land strictly between 0 and MinOrderQty
// (a non-zero dust residual is not a valid resting size).
func (t *Tracker) ReduceQty(qty float64) error {
	newQty := t.openQty - qty
	if newQty < -Epsilon {
		return ErrQtyTooSmall
	}
	if newQty < 0 {
		newQty = 0
	}
	if newQty > Epsilon && newQty < MinOrderQty {
		return ErrQtyTooSmall
	}
	t.openQty = newQty
	return nil
}

// Fill applies an executed trade of qty at the given price to this
// tracker, updating filled quantity/funds and (for funds-sized trackers)
// remaining notional.
func (t *Tracker) Fill(qty, price float64) {
	funds := qty * price
	t.filledQty += qty
	t.filledFunds += funds
	if t.byFunds {
		t.remaining -= funds
		if t.remaining < 0 {
			t.remaining = 0
		}
	} else {
		t.openQty -= qty
		if t.openQty < 0 {
			t.openQty = 0
		}
	}
}
