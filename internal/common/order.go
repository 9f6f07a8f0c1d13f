package common

import (
	"fmt"
	"time"

	"fenrir/internal/book"
)

// Order is the host's order handle: the wire/session-facing fields the
// teacher's Order always carried, plus the fields the matching core's
// plugin pipeline (self-trade prevention, post-only, reduce-only, stop
// and trailing-stop orders) needs. An *Order satisfies book.OrderPtr
// directly, so no separate wrapper type sits between the two.
type Order struct {
	UUID          string    // Order tracked uuid
	AssetType     AssetType //
	OrderType     OrderType //
	Ticker        string    // Specific asset identifier
	Side          Side      // Order side
	LimitPrice    float64   // Limiting price; ignored (treated as 0) for market orders
	Quantity      float64   // Order quantity; not decremented on fills (the book's tracker holds the residual)
	TotalQuantity float64   // Total volume requested
	OrderFunds    float64   // Funds to spend, for a market buy sized by notional rather than qty
	Timestamp     time.Time // Time of arrival of order
	ExchTimestamp time.Time // Time of arrival of order into the book
	Owner         string    // Who owns this order (session identity)

	OwnerID         uint64       // Numeric identity used by self-trade prevention and position lookups
	StopPx          float64      // Stop trigger price; 0 means not a stop order
	TrailAmount     float64      // Trailing amount; 0 means not a trailing-stop order
	PostOnlyFlag    bool         // Cancel instead of crossing
	ReduceOnlyFlag  bool         // Only allowed to shrink an existing position
	SelfTradePolicy book.STPMode // Self-trade prevention mask

	trailingStopKey float64
}

func (order *Order) IsBid() bool { return order.Side == Buy }

func (order *Order) Price() float64 {
	if order.OrderType == MarketOrder {
		return 0
	}
	return order.LimitPrice
}

func (order *Order) Qty() float64            { return order.Quantity }
func (order *Order) Funds() float64          { return order.OrderFunds }
func (order *Order) UserID() uint64          { return order.OwnerID }
func (order *Order) StopPrice() float64      { return order.StopPx }
func (order *Order) TrailingAmount() float64 { return order.TrailAmount }
func (order *Order) PostOnly() bool          { return order.PostOnlyFlag }
func (order *Order) ReduceOnly() bool        { return order.ReduceOnlyFlag }
func (order *Order) STP() book.STPMode       { return order.SelfTradePolicy }

func (order *Order) TrailingStopKey() float64       { return order.trailingStopKey }
func (order *Order) SetTrailingStopKey(key float64) { order.trailingStopKey = key }

func (order *Order) String() string {
	return fmt.Sprintf(
		`UUID:          %v
AssetType:     %v
OrderType:     %v
Ticker:        %s
Side:          %v
LimitPrice:    %f
Quantity:      %f (Total: %f)
Timestamp:     %v
ExchTimestamp: %v
Owner:         %s`,
		order.UUID,
		order.AssetType,
		order.OrderType,
		order.Ticker,
		order.Side,
		order.LimitPrice,
		order.Quantity,
		order.TotalQuantity,
		order.Timestamp.Format(time.RFC3339), // Formatted for readability
		order.ExchTimestamp.Format(time.RFC3339),
		order.Owner,
	)
}
