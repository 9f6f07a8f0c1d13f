package book

// handle is the book's lookup entry for a resting tracker, letting
// Cancel/Replace/DoCancel/DoReplace find it by its order handle without
// scanning both sides.
type handle struct {
	tracker *Tracker
	isBid   bool
	price   float64 // resting price at insertion time; see side.remove
}

// Book is the price-ordered order book for a single symbol: the two
// price maps, the admission/cross/cancel/replace algorithms, and the
// market price they maintain together. A Book is single-threaded
// cooperative — every public entry point runs to completion and drains
// its own callback queue before returning; callers must serialize their
// own access (see internal/engine, which gives each symbol its own
// mutex).
type Book struct {
	symbolID uint32
	plugins  []Plugin

	bids *side
	asks *side

	marketPrice float64
	seq         uint64

	index map[OrderPtr]*handle

	queue   CallbackQueue
	pending []OrderPtr
}

// NewBook constructs an empty book for symbolID, composing plugins in
// the given order (ShouldAdd/ShouldAddTracker arbitration runs in this
// same order).
func NewBook(symbolID uint32, plugins []Plugin, initialMarketPrice float64) *Book {
	return &Book{
		symbolID:    symbolID,
		plugins:     plugins,
		bids:        newSide(true),
		asks:        newSide(false),
		marketPrice: initialMarketPrice,
		index:       make(map[OrderPtr]*handle),
	}
}

// SetPlugins installs the plugin pipeline after construction, for hosts
// that must build their plugins against this Book as their book.Core
// before the pipeline itself can be composed.
func (b *Book) SetPlugins(plugins []Plugin) {
	b.plugins = plugins
}

func (b *Book) SymbolID() uint32     { return b.symbolID }
func (b *Book) MarketPrice() float64 { return b.marketPrice }

// Bids/Asks return every resting price level, best first.
func (b *Book) Bids() []*PriceLevel { return b.bids.levels(0) }
func (b *Book) Asks() []*PriceLevel { return b.asks.levels(0) }

func (b *Book) nextSeq() uint64 {
	b.seq++
	return b.seq
}

func (b *Book) sideFor(isBid bool) *side {
	if isBid {
		return b.bids
	}
	return b.asks
}

func (b *Book) oppositeSide(isBid bool) *side {
	if isBid {
		return b.asks
	}
	return b.bids
}

// Add submits a new order through the admission pipeline and, if it
// posts or crosses, the cross loop, draining and returning every
// callback produced by this call (including any cascading stop-trigger
// resubmissions).
func (b *Book) Add(order OrderPtr) []Callback {
	t := NewTracker(order, b.nextSeq())
	b.admit(t)
	return b.flush()
}

// Cancel removes a resting order from the book, or rejects if it is not
// found (e.g. already filled or never posted).
func (b *Book) Cancel(order OrderPtr, reason CancelReason) []Callback {
	b.doCancel(order, reason)
	return b.flush()
}

// Replace atomically resizes (and, via cancel-then-add, reprices) a
// resting order. See SPEC_FULL.md §4.3/§9 for the exact semantics.
func (b *Book) Replace(order OrderPtr, deltaQty float64, newPrice *float64) []Callback {
	h, ok := b.index[order]
	if !ok {
		b.queue.push(cbReplaceReject(order, ReplaceRejectNotFound))
		return b.flush()
	}

	if newPrice != nil && *newPrice != h.price {
		// A price change is always cancel-then-add: the host is expected
		// to have already updated order.Price() to *newPrice before
		// calling Replace, so the new tracker posts at the new price;
		// h.price (not order.Price(), now already mutated) locates the
		// level the tracker is actually still resting at.
		oldOpen := h.tracker.OpenQty()
		b.removeTracker(h)
		b.queue.push(cbCancel(order, ReplacedAllQty))

		newQty := oldOpen + deltaQty
		if newQty <= MinOrderQty {
			return b.flush()
		}
		nt := NewTracker(order, b.nextSeq())
		nt.openQty = newQty
		b.admit(nt)
		return b.flush()
	}

	if deltaQty > 0 {
		// Re-run admission for the added portion only.
		synthetic := NewTracker(order, 0)
		synthetic.openQty = deltaQty
		var reason InsertRejectReason
		for _, p := range b.plugins {
			p.ShouldAdd(synthetic, &reason)
			if reason != DontReject {
				break
			}
		}
		if reason != DontReject {
			b.queue.push(cbReplaceReject(order, ReplaceRejectNoQty))
			return b.flush()
		}
	}

	newOpen := h.tracker.OpenQty() + deltaQty
	if newOpen <= MinOrderQty {
		b.removeTracker(h)
		b.queue.push(cbCancel(order, ReplacedAllQty))
		return b.flush()
	}

	if h.tracker.byFunds {
		h.tracker.remaining = newOpen
	} else {
		h.tracker.openQty = newOpen
	}
	b.queue.push(cbReplace(order))
	return b.flush()
}

// SetMarketPrice updates the market price administratively (used at
// construction/tests; trades update it via the cross loop instead) and
// runs the OnMarketPriceChange hook if it actually moved.
func (b *Book) SetMarketPrice(p float64) []Callback {
	prev := b.marketPrice
	b.marketPrice = p
	if prev != p {
		for _, pl := range b.plugins {
			pl.OnMarketPriceChange(prev, p)
		}
	}
	return b.flush()
}

// Flush drains pending cascades and queued callbacks. Exposed for hosts
// that invoke a plugin hook directly from outside Add/Cancel/Replace
// (e.g. the reduce-only plugin's OnPositionClose), which is itself a
// top-level call boundary.
func (b *Book) Flush() []Callback {
	return b.flush()
}

func (b *Book) flush() []Callback {
	b.drainPending()
	return b.queue.Drain()
}

// drainPending resubmits every promoted stop/trailing-stop order through
// full admission, emitting one stop_trigger callback per promotion. Each
// resubmission may itself move the market and enqueue further
// promotions (a cascading trigger); the outer loop keeps draining until
// nothing new was queued, so the engine never reenters Add reentrantly
// from within OnMarketPriceChange.
func (b *Book) drainPending() {
	for len(b.pending) > 0 {
		batch := b.pending
		b.pending = nil
		for _, order := range batch {
			nt := NewTracker(order, b.nextSeq())
			b.admit(nt)
			b.queue.push(cbStopTrigger(order))
		}
	}
}

// admit runs the admission pipeline for a freshly constructed tracker,
// then the cross loop and posting, per SPEC_FULL.md §4.3.
func (b *Book) admit(t *Tracker) {
	var reason InsertRejectReason
	for _, p := range b.plugins {
		p.ShouldAdd(t, &reason)
		if reason != DontReject {
			break
		}
	}
	if reason != DontReject {
		b.queue.push(cbReject(t.Ptr(), reason))
		return
	}

	admitted := true
	for _, p := range b.plugins {
		if !p.ShouldAddTracker(t) {
			admitted = false
			break
		}
	}
	if !admitted {
		for _, p := range b.plugins {
			p.AfterAddTracker(t)
		}
		return
	}

	b.queue.push(cbAccept(t.Ptr()))

	if aborted := b.cross(t); !aborted {
		b.postResidual(t)
	}

	for _, p := range b.plugins {
		p.AfterAddTracker(t)
	}
}

// cross sweeps the opposite side while the taker has open qty and the
// best opposite price matches, per SPEC_FULL.md §4.3's numbered steps.
// It returns true if the taker was cancelled mid-loop (post-only,
// self-trade), in which case it must not be posted afterwards.
func (b *Book) cross(taker *Tracker) (abortedByTaker bool) {
	for !taker.IsFilled() {
		opp := b.oppositeSide(taker.IsBid())
		lvl := opp.best()
		if lvl == nil {
			return false
		}
		if len(lvl.orders) == 0 {
			opp.tree.Delete(lvl)
			continue
		}
		if !lvl.key.Matches(taker.Ptr().Price()) {
			return false
		}

		maker := lvl.orders[0]

		var takerReason, makerReason CancelReason
		for _, p := range b.plugins {
			p.ShouldTrade(taker, maker, &takerReason, &makerReason)
		}
		if takerReason != DontCancel {
			// Both sides can be marked at once (STPCancelBoth sets both
			// reason pointers); the maker must still be pulled off the
			// level here or it's left resting even though cancel_both
			// says neither side survives the attempt.
			if makerReason != DontCancel {
				b.popLevelFront(opp, lvl)
				b.queue.push(cbCancel(maker.Ptr(), makerReason))
			}
			b.queue.push(cbCancel(taker.Ptr(), takerReason))
			return true
		}
		if makerReason != DontCancel {
			b.popLevelFront(opp, lvl)
			b.queue.push(cbCancel(maker.Ptr(), makerReason))
			continue
		}

		price := b.tradePrice(maker, taker)
		qty := roundDownToIncrement(minFloat(taker.Tradable(price), maker.OpenQty()))
		if qty <= MinOrderQty {
			return false
		}

		taker.Fill(qty, price)
		maker.Fill(qty, price)
		b.queue.push(cbTrade(taker.Ptr(), maker.Ptr(), qty, price))
		b.queue.push(cbFill(taker.Ptr(), qty, qty*price))
		b.queue.push(cbFill(maker.Ptr(), qty, qty*price))

		if maker.IsFilled() {
			b.popLevelFront(opp, lvl)
		}

		for _, p := range b.plugins {
			p.AfterTrade(taker, maker, qty, price)
		}

		prev := b.marketPrice
		b.marketPrice = price
		if prev != price {
			for _, p := range b.plugins {
				p.OnMarketPriceChange(prev, price)
			}
		}
	}
	return false
}

// popLevelFront removes the earliest order at lvl (already known to be
// at index 0) from both the level's FIFO slice and the book's index.
func (b *Book) popLevelFront(s *side, lvl *PriceLevel) {
	t := lvl.orders[0]
	lvl.orders = lvl.orders[1:]
	if len(lvl.orders) == 0 {
		s.tree.Delete(lvl)
	}
	delete(b.index, t.Ptr())
}

// tradePrice resolves the execution price: the maker's limit price, or
// if the maker is a market order the taker's limit price, or if both
// are market orders the book's current market price.
func (b *Book) tradePrice(maker, taker *Tracker) float64 {
	if p := maker.Ptr().Price(); p != 0 {
		return p
	}
	if p := taker.Ptr().Price(); p != 0 {
		return p
	}
	return b.marketPrice
}

// postResidual posts a non-exhausted taker to its side, or cancels a
// market order that could not be fully filled (no resting book for a
// market order to rest on).
func (b *Book) postResidual(t *Tracker) {
	if t.IsFilled() {
		return
	}
	if IsMarket(t.Ptr()) {
		b.queue.push(cbCancel(t.Ptr(), NoLiquidity))
		return
	}
	s := b.sideFor(t.IsBid())
	s.insert(t)
	b.index[t.Ptr()] = &handle{tracker: t, isBid: t.IsBid(), price: t.Ptr().Price()}
}

func (b *Book) removeTracker(h *handle) {
	s := b.sideFor(h.isBid)
	s.remove(h.tracker, h.price)
	delete(b.index, h.tracker.Ptr())
}

// doCancel is shared by the public Cancel and the plugin-facing DoCancel.
func (b *Book) doCancel(order OrderPtr, reason CancelReason) {
	h, ok := b.index[order]
	if !ok {
		b.queue.push(cbCancelReject(order, CancelRejectNotFound))
		return
	}
	b.removeTracker(h)
	b.queue.push(cbCancel(order, reason))
	for _, p := range b.plugins {
		p.Cancel(order, reason)
	}
}

// DoCancel implements Core for plugins acting outside the normal
// user-initiated Cancel path (e.g. reduce-only's OnPositionClose).
func (b *Book) DoCancel(order OrderPtr, reason CancelReason) {
	b.doCancel(order, reason)
}

// DoReplace implements Core: shrinks (or grows) a resting tracker's
// open quantity by delta without re-running admission. Used by the
// reduce-only plugin to shave down a maker mid-trade.
func (b *Book) DoReplace(order OrderPtr, delta float64) {
	h, ok := b.index[order]
	if !ok {
		return
	}
	newOpen := h.tracker.OpenQty() + delta
	if newOpen <= MinOrderQty {
		b.removeTracker(h)
		b.queue.push(cbCancel(order, ReplacedAllQty))
		return
	}
	if h.tracker.byFunds {
		h.tracker.remaining = newOpen
	} else {
		h.tracker.openQty = newOpen
	}
}

// Enqueue implements Core: schedules order for full admission once the
// current top-level call completes, without reentering Add.
func (b *Book) Enqueue(order OrderPtr) {
	b.pending = append(b.pending, order)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
