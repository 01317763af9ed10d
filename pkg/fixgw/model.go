package fixgw

import (
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

// NewOrderSingle carries the fields extracted from an inbound 35=D message.
type NewOrderSingle struct {
	SessionID quickfix.SessionID

	Account      string
	ClOrdID      string
	Symbol       string
	OrdType      enum.OrdType
	Price        decimal.Decimal
	StopPx       decimal.Decimal
	TimeInForce  enum.TimeInForce
	Side         enum.Side
	TransactTime time.Time
	OrderQty     decimal.Decimal
}

// OrderCancelRequest carries the fields extracted from an inbound 35=F message.
type OrderCancelRequest struct {
	SessionID quickfix.SessionID

	OrigClOrdID  string
	ClOrdID      string
	Account      string
	Symbol       string
	Side         enum.Side
	TransactTime time.Time
}
