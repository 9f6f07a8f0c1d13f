package plugins

import (
	"testing"

	"fenrir/internal/book"

	"github.com/stretchr/testify/assert"
)

// fakeOrder is a minimal book.OrderPtr for exercising plugins in
// isolation from a real book.Book.
type fakeOrder struct {
	userID         uint64
	isBid          bool
	price          float64
	qty            float64
	funds          float64
	stopPrice      float64
	trailingAmount float64
	postOnly       bool
	reduceOnly     bool
	stp            book.STPMode

	trailingStopKey float64
}

func (o *fakeOrder) UserID() uint64          { return o.userID }
func (o *fakeOrder) IsBid() bool             { return o.isBid }
func (o *fakeOrder) Price() float64          { return o.price }
func (o *fakeOrder) Qty() float64            { return o.qty }
func (o *fakeOrder) Funds() float64          { return o.funds }
func (o *fakeOrder) StopPrice() float64      { return o.stopPrice }
func (o *fakeOrder) TrailingAmount() float64 { return o.trailingAmount }
func (o *fakeOrder) PostOnly() bool          { return o.postOnly }
func (o *fakeOrder) ReduceOnly() bool        { return o.reduceOnly }
func (o *fakeOrder) STP() book.STPMode       { return o.stp }

func (o *fakeOrder) TrailingStopKey() float64       { return o.trailingStopKey }
func (o *fakeOrder) SetTrailingStopKey(key float64) { o.trailingStopKey = key }

// fakeCore is an in-memory book.Core stand-in that just records calls.
type fakeCore struct {
	marketPrice float64

	cancelled []book.OrderPtr
	replaced  map[book.OrderPtr]float64
	enqueued  []book.OrderPtr
}

func newFakeCore(marketPrice float64) *fakeCore {
	return &fakeCore{marketPrice: marketPrice, replaced: make(map[book.OrderPtr]float64)}
}

func (c *fakeCore) MarketPrice() float64    { return c.marketPrice }
func (c *fakeCore) SymbolID() uint32        { return 1 }
func (c *fakeCore) Bids() []*book.PriceLevel { return nil }
func (c *fakeCore) Asks() []*book.PriceLevel { return nil }

func (c *fakeCore) DoCancel(order book.OrderPtr, reason book.CancelReason) {
	c.cancelled = append(c.cancelled, order)
}

func (c *fakeCore) DoReplace(order book.OrderPtr, delta float64) {
	c.replaced[order] += delta
}

func (c *fakeCore) Enqueue(order book.OrderPtr) {
	c.enqueued = append(c.enqueued, order)
}

func tracker(o book.OrderPtr) *book.Tracker {
	return book.NewTracker(o, 1)
}

func TestSelfTrade_CancelsBothOnSharedUser(t *testing.T) {
	p := NewSelfTrade()
	taker := &fakeOrder{userID: 1, stp: book.STPCancelBoth}
	maker := &fakeOrder{userID: 1, stp: book.STPCancelBoth}

	var takerReason, makerReason book.CancelReason
	p.ShouldTrade(tracker(taker), tracker(maker), &takerReason, &makerReason)

	assert.Equal(t, book.SelfTrade, takerReason)
	assert.Equal(t, book.SelfTrade, makerReason)
}

func TestSelfTrade_IgnoresDifferentUsers(t *testing.T) {
	p := NewSelfTrade()
	taker := &fakeOrder{userID: 1, stp: book.STPCancelBoth}
	maker := &fakeOrder{userID: 2, stp: book.STPCancelBoth}

	var takerReason, makerReason book.CancelReason
	p.ShouldTrade(tracker(taker), tracker(maker), &takerReason, &makerReason)

	assert.Equal(t, book.DontCancel, takerReason)
	assert.Equal(t, book.DontCancel, makerReason)
}

func TestSelfTrade_CancelTakerOnlyMask(t *testing.T) {
	p := NewSelfTrade()
	taker := &fakeOrder{userID: 1, stp: book.STPCancelTaker}
	maker := &fakeOrder{userID: 1, stp: book.STPNone}

	var takerReason, makerReason book.CancelReason
	p.ShouldTrade(tracker(taker), tracker(maker), &takerReason, &makerReason)

	assert.Equal(t, book.SelfTrade, takerReason)
	assert.Equal(t, book.DontCancel, makerReason)
}

func TestPostOnly_CancelsTakerThatWouldCross(t *testing.T) {
	p := NewPostOnly()
	taker := &fakeOrder{postOnly: true}
	maker := &fakeOrder{}

	var takerReason, makerReason book.CancelReason
	p.ShouldTrade(tracker(taker), tracker(maker), &takerReason, &makerReason)

	assert.Equal(t, book.PostOnly, takerReason)
	assert.Equal(t, book.DontCancel, makerReason)
}

func TestReduceOnly_RejectsOpeningIncrease(t *testing.T) {
	core := newFakeCore(100)
	positions := NewMemoryPositions()
	p := NewReduceOnly(core, positions)

	taker := tracker(&fakeOrder{userID: 1, isBid: true, reduceOnly: true, qty: 5})
	var reason book.InsertRejectReason
	p.ShouldAdd(taker, &reason)
	assert.Equal(t, book.ReduceOnlyIncrease, reason)
}

func TestReduceOnly_AllowsShrinkingExistingPosition(t *testing.T) {
	core := newFakeCore(100)
	positions := NewMemoryPositions()
	positions.Set(1, 10) // long 10
	p := NewReduceOnly(core, positions)

	taker := tracker(&fakeOrder{userID: 1, isBid: false, reduceOnly: true, qty: 5})
	var reason book.InsertRejectReason
	p.ShouldAdd(taker, &reason)
	assert.Equal(t, book.DontReject, reason)
}

func TestReduceOnly_RejectsFlippingPosition(t *testing.T) {
	core := newFakeCore(100)
	positions := NewMemoryPositions()
	positions.Set(1, 10) // long 10
	p := NewReduceOnly(core, positions)

	taker := tracker(&fakeOrder{userID: 1, isBid: false, reduceOnly: true, qty: 15})
	var reason book.InsertRejectReason
	p.ShouldAdd(taker, &reason)
	assert.Equal(t, book.ReduceOnlyReverse, reason)
}

func TestReduceOnly_ShrinksMakerAtTradeTimeInsteadOfCancelling(t *testing.T) {
	core := newFakeCore(100)
	positions := NewMemoryPositions()
	positions.Set(1, 5) // only 5 left to reduce
	p := NewReduceOnly(core, positions)

	maker := &fakeOrder{userID: 1, isBid: false, reduceOnly: true, qty: 8}
	makerTracker := tracker(maker)

	var takerReason, makerReason book.CancelReason
	p.ShouldTrade(tracker(&fakeOrder{userID: 2}), makerTracker, &takerReason, &makerReason)

	assert.Equal(t, book.DontCancel, makerReason)
	assert.Equal(t, -3.0, core.replaced[maker])
}

func TestReduceOnly_OnPositionCloseCancelsRegisteredOrders(t *testing.T) {
	core := newFakeCore(100)
	positions := NewMemoryPositions()
	positions.Set(1, 5)
	p := NewReduceOnly(core, positions)

	o := &fakeOrder{userID: 1, isBid: false, reduceOnly: true, qty: 5}
	p.ShouldAddTracker(tracker(o))

	p.OnPositionClose(1)
	assert.Len(t, core.cancelled, 1)
	assert.Equal(t, book.OrderPtr(o), core.cancelled[0])
}

func TestStopOrders_DivertsUntriggeredBuyStop(t *testing.T) {
	core := newFakeCore(100)
	p := NewStopOrders(core)

	o := &fakeOrder{isBid: true, stopPrice: 110}
	admitted := p.ShouldAddTracker(tracker(o))
	assert.False(t, admitted)
}

func TestStopOrders_AdmitsAlreadyTriggeredBuyStop(t *testing.T) {
	core := newFakeCore(110)
	p := NewStopOrders(core)

	o := &fakeOrder{isBid: true, stopPrice: 110}
	admitted := p.ShouldAddTracker(tracker(o))
	assert.True(t, admitted)
}

func TestStopOrders_PromotesOnMarketPriceChange(t *testing.T) {
	core := newFakeCore(100)
	p := NewStopOrders(core)

	o := &fakeOrder{isBid: true, stopPrice: 110}
	p.ShouldAddTracker(tracker(o))

	p.OnMarketPriceChange(100, 111)
	assert.Len(t, core.enqueued, 1)
	assert.Equal(t, book.OrderPtr(o), core.enqueued[0])
}

func TestStopOrders_SellStopTriggersOnDrop(t *testing.T) {
	core := newFakeCore(100)
	p := NewStopOrders(core)

	o := &fakeOrder{isBid: false, stopPrice: 90}
	p.ShouldAddTracker(tracker(o))

	p.OnMarketPriceChange(100, 89)
	assert.Len(t, core.enqueued, 1)
}

func TestTrailingStop_SellRatchetsDownOnFavorableRiseThenTriggersOnDrop(t *testing.T) {
	core := newFakeCore(100)
	p := NewTrailingStop(core)

	o := &fakeOrder{isBid: false, trailingAmount: 5}
	p.ShouldAddTracker(tracker(o))
	assert.Equal(t, 95.0, o.TrailingStopKey()) // mp(100) - trail(5)

	// Favorable move up: trigger ratchets up to 105-5=100.
	p.OnMarketPriceChange(100, 105)
	assert.Empty(t, core.enqueued)
	assert.Equal(t, 100.0, o.TrailingStopKey())

	// Adverse move down to 94 crosses the ratcheted 100 trigger.
	p.OnMarketPriceChange(105, 94)
	assert.Len(t, core.enqueued, 1)
}

// TestTrailingStop_MultiStepRatchetDoesNotTriggerEarly mirrors the
// trailing-sell scenario from original_source/tests/book/trailing_stops.cpp:
// trail=10 admitted at mp=100 (key=90), the market ratchets up across two
// separate favorable moves to 110 (key should reach 100, the high-water
// mark of 110 minus the trail, not the buggy 2*trail-shifted value a
// single shared cursor formula would produce), then a drop to 102 must
// NOT trigger since 102 > 100, only a further drop to 100 or below does.
func TestTrailingStop_MultiStepRatchetDoesNotTriggerEarly(t *testing.T) {
	core := newFakeCore(100)
	p := NewTrailingStop(core)

	o := &fakeOrder{isBid: false, trailingAmount: 10}
	p.ShouldAddTracker(tracker(o))
	assert.Equal(t, 90.0, o.TrailingStopKey())

	p.OnMarketPriceChange(100, 105)
	assert.Equal(t, 95.0, o.TrailingStopKey())

	p.OnMarketPriceChange(105, 110)
	assert.Equal(t, 100.0, o.TrailingStopKey())

	// Adverse move to 102 is still above the 100 trigger: must not fire.
	p.OnMarketPriceChange(110, 102)
	assert.Empty(t, core.enqueued)

	// Further drop to 100 reaches the trigger exactly: fires.
	p.OnMarketPriceChange(102, 100)
	assert.Len(t, core.enqueued, 1)
}

func TestTrailingStop_CancelRemovesEntry(t *testing.T) {
	core := newFakeCore(100)
	p := NewTrailingStop(core)

	o := &fakeOrder{isBid: false, trailingAmount: 5}
	p.ShouldAddTracker(tracker(o))

	p.Cancel(o, book.UserCancel)
	p.OnMarketPriceChange(100, 50) // would have triggered if still registered
	assert.Empty(t, core.enqueued)
}

func TestMemoryPositions_SetGetClose(t *testing.T) {
	m := NewMemoryPositions()
	_, found := m.GetPosition(1)
	assert.False(t, found)

	m.Set(1, 10)
	qty, found := m.GetPosition(1)
	assert.True(t, found)
	assert.Equal(t, 10.0, qty)

	assert.True(t, m.Close(1))
	_, found = m.GetPosition(1)
	assert.False(t, found)
}
