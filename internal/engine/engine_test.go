package engine

import (
	"testing"

	"fenrir/internal/common"

	"github.com/stretchr/testify/assert"
)

type recordedOrderError struct {
	owner string
	err   error
}

// fakeReporter records every trade/error report the engine forwards, so
// tests can assert on the wire-level effects of a sequence of orders
// without standing up the TCP service.
type fakeReporter struct {
	trades []common.Trade
	errors []recordedOrderError
}

func (r *fakeReporter) ReportTrade(trade common.Trade, err error) error {
	r.trades = append(r.trades, trade)
	return nil
}

func (r *fakeReporter) ReportOrderError(owner string, err error) error {
	r.errors = append(r.errors, recordedOrderError{owner: owner, err: err})
	return nil
}

func limitOrder(uuid, owner string, side common.Side, price, qty float64) *common.Order {
	return &common.Order{
		UUID:          uuid,
		AssetType:     common.Equities,
		OrderType:     common.LimitOrder,
		Ticker:        "AAPL",
		Side:          side,
		LimitPrice:    price,
		Quantity:      qty,
		TotalQuantity: qty,
		Owner:         owner,
		OwnerID:       common.DeriveUserID(owner),
	}
}

func newTestEngine() *Engine {
	return New(map[common.AssetType]float64{common.Equities: 100})
}

func TestPlaceOrder_CrossesAndReportsTrade(t *testing.T) {
	eng := newTestEngine()
	reporter := &fakeReporter{}
	eng.SetReporter(reporter)

	assert.NoError(t, eng.PlaceOrder(common.Equities, limitOrder("ask-1", "alice", common.Sell, 100, 10)))
	assert.NoError(t, eng.PlaceOrder(common.Equities, limitOrder("bid-1", "bob", common.Buy, 101, 5)))

	assert.Len(t, reporter.trades, 1)
	assert.Equal(t, 5.0, reporter.trades[0].MatchQty)
	assert.Equal(t, 100.0, reporter.trades[0].Price)
}

func TestPlaceOrder_UnknownAssetErrors(t *testing.T) {
	eng := newTestEngine()
	err := eng.PlaceOrder(common.Crypto, limitOrder("x", "alice", common.Buy, 1, 1))
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func TestCancelOrder_RemovesRestingOrder(t *testing.T) {
	eng := newTestEngine()
	reporter := &fakeReporter{}
	eng.SetReporter(reporter)

	order := limitOrder("bid-1", "alice", common.Buy, 99, 10)
	assert.NoError(t, eng.PlaceOrder(common.Equities, order))

	assert.NoError(t, eng.CancelOrder(common.Equities, "bid-1"))

	sb, err := eng.symbolBookFor(common.Equities)
	assert.NoError(t, err)
	assert.Empty(t, sb.bids())
}

func TestCancelOrder_NotFoundErrors(t *testing.T) {
	eng := newTestEngine()
	err := eng.CancelOrder(common.Equities, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSelfTrade_CancelsBothSidesForSameOwner(t *testing.T) {
	eng := newTestEngine()
	reporter := &fakeReporter{}
	eng.SetReporter(reporter)

	maker := limitOrder("ask-1", "alice", common.Sell, 100, 10)
	maker.SelfTradePolicy = 3 // STPCancelBoth
	taker := limitOrder("bid-1", "alice", common.Buy, 100, 10)
	taker.SelfTradePolicy = 3

	assert.NoError(t, eng.PlaceOrder(common.Equities, maker))
	assert.NoError(t, eng.PlaceOrder(common.Equities, taker))

	assert.Empty(t, reporter.trades)
	assert.NotEmpty(t, reporter.errors)

	sb, err := eng.symbolBookFor(common.Equities)
	assert.NoError(t, err)
	assert.Empty(t, sb.asks()) // cancel_both pulls the maker too, not just the taker
}

func TestReduceOnly_RejectedWithoutAnOpenPosition(t *testing.T) {
	eng := newTestEngine()
	reporter := &fakeReporter{}
	eng.SetReporter(reporter)

	order := limitOrder("bid-1", "alice", common.Buy, 100, 10)
	order.ReduceOnlyFlag = true
	assert.NoError(t, eng.PlaceOrder(common.Equities, order))

	assert.NotEmpty(t, reporter.errors)
}

func TestPositions_ClosePositionCancelsReduceOnlyOrders(t *testing.T) {
	eng := newTestEngine()
	reporter := &fakeReporter{}
	eng.SetReporter(reporter)

	userID := common.DeriveUserID("alice")
	eng.Positions().Set(userID, 10) // long 10

	order := limitOrder("ask-1", "alice", common.Sell, 120, 5)
	order.ReduceOnlyFlag = true
	assert.NoError(t, eng.PlaceOrder(common.Equities, order))

	eng.ClosePosition(userID)

	sb, err := eng.symbolBookFor(common.Equities)
	assert.NoError(t, err)
	assert.Empty(t, sb.asks())
}

func TestStopOrder_DivertsThenPromotesOnMarketMove(t *testing.T) {
	eng := newTestEngine()
	reporter := &fakeReporter{}
	eng.SetReporter(reporter)

	stopBuy := limitOrder("stop-1", "alice", common.Buy, 105, 5)
	stopBuy.StopPx = 105
	assert.NoError(t, eng.PlaceOrder(common.Equities, stopBuy))

	sb, err := eng.symbolBookFor(common.Equities)
	assert.NoError(t, err)
	assert.Empty(t, sb.bids()) // diverted, not resting yet

	// A resting ask with enough size to absorb both the immediate taker
	// below and the stop order once it promotes.
	seller := limitOrder("ask-1", "bob", common.Sell, 105, 10)
	assert.NoError(t, eng.PlaceOrder(common.Equities, seller))

	// This taker crosses the ask at 105, moving the market price to 105
	// and promoting the diverted stop buy through OnMarketPriceChange.
	taker := limitOrder("bid-1", "carol", common.Buy, 105, 3)
	assert.NoError(t, eng.PlaceOrder(common.Equities, taker))

	assert.Len(t, reporter.trades, 2) // the taker's trade, then the promoted stop's trade
}
