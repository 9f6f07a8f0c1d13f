package book

// CallbackType tags the payload carried by a Callback.
type CallbackType uint8

const (
	CBOrderAccept CallbackType = iota
	CBOrderReject
	CBOrderCancel
	CBOrderCancelReject
	CBOrderReplace
	CBOrderReplaceReject
	CBTrade
	CBFill
	CBOrderStopTrigger
)

func (t CallbackType) String() string {
	switch t {
	case CBOrderAccept:
		return "order_accept"
	case CBOrderReject:
		return "order_reject"
	case CBOrderCancel:
		return "order_cancel"
	case CBOrderCancelReject:
		return "order_cancel_reject"
	case CBOrderReplace:
		return "order_replace"
	case CBOrderReplaceReject:
		return "order_replace_reject"
	case CBTrade:
		return "trade"
	case CBFill:
		return "fill"
	case CBOrderStopTrigger:
		return "order_stop_trigger"
	default:
		return "unknown"
	}
}

// Callback is a single tagged effect record. Only the fields relevant to
// Type are populated; the rest are zero.
type Callback struct {
	Type CallbackType
	Order OrderPtr

	InsertRejectReason  InsertRejectReason
	CancelReason        CancelReason
	CancelRejectReason  CancelRejectReason
	ReplaceRejectReason ReplaceRejectReason

	// Trade fields.
	MakerOrder OrderPtr
	TakerOrder OrderPtr
	Price      float64
	Qty        float64

	// Fill fields.
	FillQty   float64
	FillFunds float64
}

func cbAccept(o OrderPtr) Callback {
	return Callback{Type: CBOrderAccept, Order: o}
}

func cbReject(o OrderPtr, reason InsertRejectReason) Callback {
	return Callback{Type: CBOrderReject, Order: o, InsertRejectReason: reason}
}

func cbCancel(o OrderPtr, reason CancelReason) Callback {
	return Callback{Type: CBOrderCancel, Order: o, CancelReason: reason}
}

func cbCancelReject(o OrderPtr, reason CancelRejectReason) Callback {
	return Callback{Type: CBOrderCancelReject, Order: o, CancelRejectReason: reason}
}

func cbReplace(o OrderPtr) Callback {
	return Callback{Type: CBOrderReplace, Order: o}
}

func cbReplaceReject(o OrderPtr, reason ReplaceRejectReason) Callback {
	return Callback{Type: CBOrderReplaceReject, Order: o, ReplaceRejectReason: reason}
}

func cbTrade(taker, maker OrderPtr, qty, price float64) Callback {
	return Callback{Type: CBTrade, TakerOrder: taker, MakerOrder: maker, Qty: qty, Price: price}
}

func cbFill(o OrderPtr, qty, funds float64) Callback {
	return Callback{Type: CBFill, Order: o, FillQty: qty, FillFunds: funds}
}

func cbStopTrigger(o OrderPtr) Callback {
	return Callback{Type: CBOrderStopTrigger, Order: o}
}

// CallbackQueue accumulates the effect records produced by a single
// top-level call, in the order the effects occurred, and is drained at
// the call boundary.
type CallbackQueue struct {
	callbacks []Callback
}

func (q *CallbackQueue) push(cb Callback) {
	q.callbacks = append(q.callbacks, cb)
}

// Drain returns and clears the accumulated callbacks.
func (q *CallbackQueue) Drain() []Callback {
	out := q.callbacks
	q.callbacks = nil
	return out
}

// CallbackSink is the outbound interface a host implements to consume a
// drained callback queue.
type CallbackSink interface {
	HandleCallbacks(symbolID uint32, callbacks []Callback)
}
