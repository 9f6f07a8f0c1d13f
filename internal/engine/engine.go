// Package engine is the matching engine: it owns one book.Book per
// supported symbol, composes the plugin pipeline over each, and routes
// inbound order placement/cancellation to the right symbol while
// forwarding the resulting callbacks to a Reporter.
package engine

import (
	"errors"
	"sync"
	"time"

	"fenrir/internal/book"
	"fenrir/internal/book/plugins"
	"fenrir/internal/common"

	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownAsset  = errors.New("unknown asset type")
	ErrOrderNotFound = errors.New("order not found")
)

// Reporter is the outbound sink the engine forwards trade and order
// event reports to. net.Server implements this, the way it implements
// the teacher's original PlaceOrder/SetReporter wiring.
type Reporter interface {
	ReportTrade(trade common.Trade, err error) error
	ReportOrderError(owner string, err error) error
}

// Engine is the main matching engine.
type Engine struct {
	mu        sync.RWMutex
	books     map[common.AssetType]*symbolBook
	reporter  Reporter
	positions *plugins.MemoryPositions
}

// New constructs an Engine with one book per supported asset, each
// seeded with the given initial market price (0 if unspecified, in
// which case the first trade sets it).
func New(initialPrices map[common.AssetType]float64) *Engine {
	e := &Engine{
		books:     make(map[common.AssetType]*symbolBook),
		positions: plugins.NewMemoryPositions(),
	}
	for assetType, price := range initialPrices {
		e.books[assetType] = newSymbolBook(assetType, e.positions, price)
	}
	return e
}

func (e *Engine) SetReporter(r Reporter) {
	e.reporter = r
}

// Positions exposes the engine's shared position book so a host can
// seed or update positions (e.g. from a margin service) ahead of
// reduce-only orders being evaluated against them.
func (e *Engine) Positions() *plugins.MemoryPositions {
	return e.positions
}

func (e *Engine) symbolBookFor(assetType common.AssetType) (*symbolBook, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sb, ok := e.books[assetType]
	if !ok {
		return nil, ErrUnknownAsset
	}
	return sb, nil
}

// PlaceOrder submits order into assetType's book and reports every
// resulting callback (accept, reject, trades, fills, cascading stop
// triggers) to the configured Reporter.
func (e *Engine) PlaceOrder(assetType common.AssetType, order *common.Order) error {
	sb, err := e.symbolBookFor(assetType)
	if err != nil {
		return err
	}

	order.ExchTimestamp = time.Now()
	if order.OwnerID == 0 {
		order.OwnerID = common.DeriveUserID(order.Owner)
	}

	cbs := sb.add(order)
	e.dispatch(cbs)
	return nil
}

// CancelOrder cancels a resting order by its UUID.
func (e *Engine) CancelOrder(assetType common.AssetType, uuid string) error {
	sb, err := e.symbolBookFor(assetType)
	if err != nil {
		return err
	}

	cbs := sb.cancel(uuid)
	if cbs == nil {
		return ErrOrderNotFound
	}
	e.dispatch(cbs)
	return nil
}

// ClosePosition notifies the reduce-only plugin on every book that
// userID's position has closed, cancelling its resting reduce-only
// orders. Hosts wire this to their margin/position service.
func (e *Engine) ClosePosition(userID uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, sb := range e.books {
		sb.mu.Lock()
		for _, p := range sb.plugins {
			if ro, ok := p.(*plugins.ReduceOnly); ok {
				ro.OnPositionClose(userID)
			}
		}
		cbs := sb.core.Flush()
		sb.mu.Unlock()
		e.dispatch(cbs)
	}
}

// LogBook dumps book depth (top book.DefaultDepthSize levels per side)
// at info level for every supported symbol.
func (e *Engine) LogBook() {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for assetType, sb := range e.books {
		bids := depthPrices(sb.bids())
		asks := depthPrices(sb.asks())
		log.Info().
			Int("assetType", int(assetType)).
			Float64("marketPrice", sb.core.MarketPrice()).
			Floats64("bids", bids).
			Floats64("asks", asks).
			Msg("book depth")
	}
}

func depthPrices(levels []*book.PriceLevel) []float64 {
	n := len(levels)
	if n > book.DefaultDepthSize {
		n = book.DefaultDepthSize
	}
	prices := make([]float64, n)
	for i := 0; i < n; i++ {
		prices[i] = levels[i].Price()
	}
	return prices
}

// dispatch translates a drained callback queue into Reporter calls.
func (e *Engine) dispatch(cbs []book.Callback) {
	if e.reporter == nil {
		return
	}
	for _, cb := range cbs {
		switch cb.Type {
		case book.CBTrade:
			taker, _ := cb.TakerOrder.(*common.Order)
			maker, _ := cb.MakerOrder.(*common.Order)
			if taker == nil || maker == nil {
				continue
			}
			trade := common.Trade{
				Party:        taker,
				CounterParty: maker,
				Timestamp:    time.Now(),
				MatchQty:     cb.Qty,
				Price:        cb.Price,
			}
			if err := e.reporter.ReportTrade(trade, nil); err != nil {
				log.Error().Err(err).Msg("error reporting trade")
			}

		case book.CBOrderReject:
			e.reportOrderEvent(cb.Order, errors.New(cb.InsertRejectReason.String()))
		case book.CBOrderCancel:
			if cb.CancelReason != book.UserCancel {
				e.reportOrderEvent(cb.Order, errors.New(cb.CancelReason.String()))
			}
		case book.CBOrderCancelReject:
			e.reportOrderEvent(cb.Order, errors.New(cb.CancelRejectReason.String()))
		case book.CBOrderReplaceReject:
			e.reportOrderEvent(cb.Order, errors.New(cb.ReplaceRejectReason.String()))
		}
	}
}

func (e *Engine) reportOrderEvent(order book.OrderPtr, err error) {
	o, ok := order.(*common.Order)
	if !ok {
		return
	}
	if rerr := e.reporter.ReportOrderError(o.Owner, err); rerr != nil {
		log.Error().Err(rerr).Str("owner", o.Owner).Msg("error reporting order event")
	}
}
