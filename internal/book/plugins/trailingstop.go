package plugins

import "fenrir/internal/book"

// trailSide holds one side's trailing-stop entries. Each entry's
// trigger price (its order's TrailingStopKey) is the high-water mark
// in price space directly: for asks it only ever moves up, for bids
// only ever down, so it always equals max/min(admission price, every
// favorable price since) minus/plus the order's own trail.
type trailSide struct {
	isBid   bool
	entries []*book.Tracker
}

// TrailingStop diverts orders carrying TrailingAmount > 0 into one of
// two trigger containers keyed by the price at which the order was
// admitted plus/minus its trail, and promotes them once the market
// price crosses each order's own ratcheted trigger price.
type TrailingStop struct {
	book.NopPlugin

	core book.Core
	bids trailSide
	asks trailSide
}

func NewTrailingStop(core book.Core) *TrailingStop {
	return &TrailingStop{
		core: core,
		bids: trailSide{isBid: true},
		asks: trailSide{isBid: false},
	}
}

func (p *TrailingStop) ShouldAddTracker(taker *book.Tracker) bool {
	o := taker.Ptr()
	trail := o.TrailingAmount()
	if trail <= 0 {
		return true
	}
	// An order that already carries a trigger key was diverted here
	// before and is being resubmitted after its trigger fired: it enters
	// the book as a plain order instead of being diverted again.
	if o.TrailingStopKey() != 0 {
		return true
	}

	mp := p.core.MarketPrice()
	side := &p.bids
	if !o.IsBid() {
		side = &p.asks
	}

	var key float64
	if o.IsBid() {
		key = mp + trail
	} else {
		key = mp - trail
	}
	o.SetTrailingStopKey(key)
	side.entries = append(side.entries, taker)
	return false
}

func (p *TrailingStop) OnMarketPriceChange(prev, new float64) {
	if new == prev {
		return
	}

	// Buys are favorable on a price drop, adverse on a rise.
	promoted := ratchet(&p.bids, new < prev, new)
	// Sells are favorable on a price rise, adverse on a drop.
	promoted = append(promoted, ratchet(&p.asks, new > prev, new)...)

	for _, o := range promoted {
		p.core.Enqueue(o)
	}
}

// ratchet applies one price move to side and returns the trackers it
// triggered, already removed from side.entries. price is the new
// market price; each entry's trigger key is updated or tested directly
// in price space, never mixed with a shared delta-based cursor.
func ratchet(side *trailSide, favorable bool, price float64) []book.OrderPtr {
	if len(side.entries) == 0 {
		return nil
	}

	if favorable {
		for _, t := range side.entries {
			o := t.Ptr()
			trail := o.TrailingAmount()
			if side.isBid {
				// Buy-stop trigger ratchets down toward price+trail as the
				// market falls; it never moves up.
				if candidate := price + trail; candidate < o.TrailingStopKey() {
					o.SetTrailingStopKey(candidate)
				}
			} else {
				// Sell-stop trigger ratchets up toward price-trail as the
				// market rises; it never moves down.
				if candidate := price - trail; candidate > o.TrailingStopKey() {
					o.SetTrailingStopKey(candidate)
				}
			}
		}
		return nil
	}

	var promoted []book.OrderPtr
	remaining := side.entries[:0]
	for _, t := range side.entries {
		o := t.Ptr()
		var triggered bool
		if side.isBid {
			triggered = price >= o.TrailingStopKey()
		} else {
			triggered = price <= o.TrailingStopKey()
		}
		if triggered {
			promoted = append(promoted, o)
		} else {
			remaining = append(remaining, t)
		}
	}
	side.entries = remaining
	return promoted
}

func (p *TrailingStop) Cancel(order book.OrderPtr, reason book.CancelReason) {
	side := &p.bids
	if !order.IsBid() {
		side = &p.asks
	}
	for i, t := range side.entries {
		if t.Ptr() == order {
			side.entries = append(side.entries[:i], side.entries[i+1:]...)
			return
		}
	}
}
