package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlaceOrderRequest is the order-entry input, transport agnostic: the FIX
// gateway and tests both build it.
type PlaceOrderRequest struct {
	OwnerID     string
	Pair        string
	Side        OrderSide
	Kind        OrderKind
	TimeInForce OrderTimeInForce
	Price       decimal.Decimal // required for LIMIT and STOP_LIMIT
	StopPrice   decimal.Decimal // required for STOP_LIMIT
	Quantity    decimal.Decimal
	SubmittedAt time.Time // zero means now
}

// PlaceOrderResult reports the synchronous outcome of a placement: the order
// id, its status after the matching pass, any trades produced and the
// unmatched remainder.
type PlaceOrderResult struct {
	OrderID   string
	Status    OrderStatus
	Trades    []*Trade
	Remaining decimal.Decimal
}
