package book

// Plugin contributes hooks that the book core consults at well-defined
// admission/trade/cancel points. Every hook is optional: embed NopPlugin
// and override only what a concrete plugin needs, so two unrelated
// policies (self-trade prevention, post-only, ...) stay ignorant of one
// another while the core centralises the arbitration rules between
// their answers.
type Plugin interface {
	// ShouldAdd runs once per admission. The first plugin (in configured
	// order) to set reason to anything other than DontReject wins; the
	// core stops consulting further plugins and rejects the order.
	ShouldAdd(taker *Tracker, reason *InsertRejectReason)

	// ShouldAddTracker runs once per admission after ShouldAdd passes.
	// All plugins must return true for the tracker to be posted/crossed
	// by the core; the first false means the plugin has diverted the
	// tracker into its own off-book container.
	ShouldAddTracker(taker *Tracker) bool

	// AfterAddTracker runs after a tracker is either posted/crossed by
	// the core or diverted by a plugin. Fan-out, no return value.
	AfterAddTracker(taker *Tracker)

	// ShouldTrade runs before each potential match. Any plugin setting
	// takerReason aborts the whole taker; any plugin setting only
	// makerReason drops that maker without executing this match.
	ShouldTrade(taker, maker *Tracker, takerReason, makerReason *CancelReason)

	// AfterTrade runs after each executed match. Fan-out.
	AfterTrade(taker, maker *Tracker, qty, price float64)

	// OnMarketPriceChange runs after the market price updates as a
	// result of a trade (or an explicit SetMarketPrice). Fan-out;
	// plugins may queue further submissions but must never call Add
	// synchronously from within this hook.
	OnMarketPriceChange(prevPrice, newPrice float64)

	// Cancel runs on an explicit cancel, for plugin-owned cleanup.
	Cancel(order OrderPtr, reason CancelReason)
}

// NopPlugin implements every Plugin hook as a no-op so concrete plugins
// can embed it and override only the hooks they need.
type NopPlugin struct{}

func (NopPlugin) ShouldAdd(*Tracker, *InsertRejectReason)                {}
func (NopPlugin) ShouldAddTracker(*Tracker) bool                         { return true }
func (NopPlugin) AfterAddTracker(*Tracker)                               {}
func (NopPlugin) ShouldTrade(*Tracker, *Tracker, *CancelReason, *CancelReason) {}
func (NopPlugin) AfterTrade(*Tracker, *Tracker, float64, float64)        {}
func (NopPlugin) OnMarketPriceChange(float64, float64)                   {}
func (NopPlugin) Cancel(OrderPtr, CancelReason)                          {}

// Core is the subset of Book operations a Plugin is allowed to call back
// into — re-entry into Add itself is deliberately not exposed here; see
// Book.drainPending for how promoted stop/trailing orders are resubmitted.
type Core interface {
	MarketPrice() float64
	SymbolID() uint32
	Bids() []*PriceLevel
	Asks() []*PriceLevel

	// DoCancel cancels a resting tracker on behalf of a plugin (e.g. a
	// reduce-only position close, or a stop plugin cleaning up state).
	DoCancel(order OrderPtr, reason CancelReason)

	// DoReplace shrinks (or grows) a resting tracker's open quantity by
	// delta on behalf of a plugin, without running full admission again.
	DoReplace(order OrderPtr, delta float64)

	// Enqueue schedules order for admission after the current top-level
	// call completes, emitting a stop_trigger callback for it. Used by
	// the stop and trailing-stop plugins to promote triggered orders
	// without reentering Add synchronously.
	Enqueue(order OrderPtr)
}
