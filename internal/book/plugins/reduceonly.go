package plugins

import "fenrir/internal/book"

// ReduceOnly enforces that reduce-only orders can only shrink an
// existing position, never open or flip one, and cancels every
// registered reduce-only order for a user whose position closes.
type ReduceOnly struct {
	book.NopPlugin

	core      book.Core
	positions PositionsProvider

	byUser map[uint64][]book.OrderPtr
}

func NewReduceOnly(core book.Core, positions PositionsProvider) *ReduceOnly {
	return &ReduceOnly{
		core:      core,
		positions: positions,
		byUser:    make(map[uint64][]book.OrderPtr),
	}
}

func (p *ReduceOnly) ShouldAdd(taker *book.Tracker, reason *book.InsertRejectReason) {
	o := taker.Ptr()
	if !o.ReduceOnly() {
		return
	}
	position, found := p.positions.GetPosition(o.UserID())
	if !found || position == 0 {
		*reason = book.ReduceOnlyIncrease
		return
	}
	isLong := position > 0
	agrees := (o.IsBid() && isLong) || (!o.IsBid() && !isLong)
	if agrees {
		*reason = book.ReduceOnlyIncrease
		return
	}
	if taker.OpenQty() > absFloat(position) {
		*reason = book.ReduceOnlyReverse
	}
}

func (p *ReduceOnly) ShouldAddTracker(taker *book.Tracker) bool {
	o := taker.Ptr()
	if o.ReduceOnly() {
		uid := o.UserID()
		p.byUser[uid] = append(p.byUser[uid], o)
	}
	return true
}

func (p *ReduceOnly) ShouldTrade(taker, maker *book.Tracker, takerReason, makerReason *book.CancelReason) {
	mo := maker.Ptr()
	if !mo.ReduceOnly() {
		return
	}
	position, found := p.positions.GetPosition(mo.UserID())
	limit := 0.0
	if found {
		limit = absFloat(position)
	}
	residual := maker.OpenQty()
	if residual > limit {
		p.core.DoReplace(mo, -(residual - limit))
	}
}

// OnPositionClose cancels every registered reduce-only order belonging
// to userID, as its closing position leaves them with nothing to
// reduce.
func (p *ReduceOnly) OnPositionClose(userID uint64) {
	orders := p.byUser[userID]
	delete(p.byUser, userID)
	for _, o := range orders {
		p.core.DoCancel(o, book.ReduceOnlyClose)
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
