package plugins

import "fenrir/internal/book"

// PostOnly cancels a taker the instant it would cross, regardless of
// how much of it already filled in this same call.
type PostOnly struct {
	book.NopPlugin
}

func NewPostOnly() *PostOnly {
	return &PostOnly{}
}

func (p *PostOnly) ShouldTrade(taker, maker *book.Tracker, takerReason, makerReason *book.CancelReason) {
	if taker.Ptr().PostOnly() {
		*takerReason = book.PostOnly
	}
}
