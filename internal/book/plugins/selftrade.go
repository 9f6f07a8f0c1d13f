// Package plugins implements the book.Plugin hooks composed by the
// engine: self-trade prevention, post-only, reduce-only, stop orders
// and trailing-stop orders.
package plugins

import "fenrir/internal/book"

// SelfTrade cancels taker and/or maker when they share a user id,
// honoring the combined STP mask of both sides.
type SelfTrade struct {
	book.NopPlugin
}

func NewSelfTrade() *SelfTrade {
	return &SelfTrade{}
}

func (p *SelfTrade) ShouldTrade(taker, maker *book.Tracker, takerReason, makerReason *book.CancelReason) {
	if taker.UserID() != maker.UserID() {
		return
	}
	combined := taker.STP() | maker.STP()
	if combined&book.STPCancelTaker != 0 {
		*takerReason = book.SelfTrade
	}
	if combined&book.STPCancelMaker != 0 {
		*makerReason = book.SelfTrade
	}
}
