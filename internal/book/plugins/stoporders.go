package plugins

import "fenrir/internal/book"

// StopOrders diverts orders carrying a non-zero StopPrice into a
// per-side container until the market price triggers them, then
// promotes them through the book's pending-admission queue.
//
// Buy stops trigger when the market price rises to or through their
// stop price; sell stops trigger when it falls to or through it. An
// order whose stop condition is already satisfied at submission time
// is never diverted: it is admitted immediately as a plain order, and
// no stop_trigger callback is emitted for it.
type StopOrders struct {
	book.NopPlugin

	core book.Core

	buys  []*book.Tracker // stop-buy orders, awaiting marketPrice >= stopPrice
	sells []*book.Tracker // stop-sell orders, awaiting marketPrice <= stopPrice
}

func NewStopOrders(core book.Core) *StopOrders {
	return &StopOrders{core: core}
}

func (p *StopOrders) ShouldAddTracker(taker *book.Tracker) bool {
	o := taker.Ptr()
	stop := o.StopPrice()
	if stop == 0 {
		return true
	}
	mp := p.core.MarketPrice()
	if triggered(o.IsBid(), mp, stop) {
		return true
	}
	if o.IsBid() {
		p.buys = append(p.buys, taker)
	} else {
		p.sells = append(p.sells, taker)
	}
	return false
}

func (p *StopOrders) OnMarketPriceChange(prev, new float64) {
	var promoted []book.OrderPtr

	remaining := p.buys[:0]
	for _, t := range p.buys {
		if triggered(true, new, t.Ptr().StopPrice()) {
			promoted = append(promoted, t.Ptr())
		} else {
			remaining = append(remaining, t)
		}
	}
	p.buys = remaining

	remaining = p.sells[:0]
	for _, t := range p.sells {
		if triggered(false, new, t.Ptr().StopPrice()) {
			promoted = append(promoted, t.Ptr())
		} else {
			remaining = append(remaining, t)
		}
	}
	p.sells = remaining

	for _, o := range promoted {
		p.core.Enqueue(o)
	}
}

func (p *StopOrders) Cancel(order book.OrderPtr, reason book.CancelReason) {
	p.buys = removeOrder(p.buys, order)
	p.sells = removeOrder(p.sells, order)
}

func triggered(isBid bool, marketPrice, stopPrice float64) bool {
	if isBid {
		return marketPrice >= stopPrice
	}
	return marketPrice <= stopPrice
}

func removeOrder(list []*book.Tracker, order book.OrderPtr) []*book.Tracker {
	for i, t := range list {
		if t.Ptr() == order {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
