package engine

import (
	"sync"

	"fenrir/internal/book"
	"fenrir/internal/book/plugins"
	"fenrir/internal/common"
)

// symbolBook pairs one asset's price-ordered book.Book with the plugin
// pipeline composed over it and a UUID index so cancel/replace
// requests arriving over the wire can find the live *common.Order they
// refer to. Every public method here runs under symbolBook's own
// mutex, giving each symbol independent concurrency the way the
// teacher's per-connection worker pool gives each connection its own.
type symbolBook struct {
	mu sync.Mutex

	assetType common.AssetType
	core      *book.Book
	plugins   []book.Plugin

	orders map[string]*common.Order // uuid -> order
}

func newSymbolBook(assetType common.AssetType, positions plugins.PositionsProvider, initialPrice float64) *symbolBook {
	sb := &symbolBook{
		assetType: assetType,
		orders:    make(map[string]*common.Order),
	}
	sb.core = book.NewBook(uint32(assetType), nil, initialPrice)

	selfTrade := plugins.NewSelfTrade()
	postOnly := plugins.NewPostOnly()
	reduceOnly := plugins.NewReduceOnly(sb.core, positions)
	stopOrders := plugins.NewStopOrders(sb.core)
	trailingStop := plugins.NewTrailingStop(sb.core)

	sb.plugins = []book.Plugin{selfTrade, postOnly, reduceOnly, stopOrders, trailingStop}
	sb.core.SetPlugins(sb.plugins)

	return sb
}

func (sb *symbolBook) add(order *common.Order) []book.Callback {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.orders[order.UUID] = order
	return sb.core.Add(order)
}

func (sb *symbolBook) cancel(uuid string) []book.Callback {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	order, ok := sb.orders[uuid]
	if !ok {
		return nil
	}
	cbs := sb.core.Cancel(order, book.UserCancel)
	delete(sb.orders, uuid)
	return cbs
}

func (sb *symbolBook) bids() []*book.PriceLevel {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.core.Bids()
}

func (sb *symbolBook) asks() []*book.PriceLevel {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.core.Asks()
}
