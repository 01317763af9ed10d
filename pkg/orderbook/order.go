package orderbook

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

type OrderKind string

const (
	LIMIT     OrderKind = "LIMIT"
	MARKET    OrderKind = "MARKET"
	STOPLIMIT OrderKind = "STOP_LIMIT"
)

type TimeInForce string

const (
	DAY TimeInForce = "DAY"
	IOC TimeInForce = "IOC"
	FOK TimeInForce = "FOK"
	GTC TimeInForce = "GTC"
)

type OrderStatus string

const (
	StatusPending         OrderStatus = "PENDING"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusExpired         OrderStatus = "EXPIRED"
	StatusRejected        OrderStatus = "REJECTED"
)

// Order is a book entry. Quantity never changes after creation; Remaining and
// Status are mutated only by the matching walk, Cancel and RemoveExpired.
type Order struct {
	ID          string
	Pair        string
	OwnerID     string
	Side        Side
	Kind        OrderKind
	TimeInForce TimeInForce
	Price       decimal.Decimal // zero for MARKET
	StopPrice   decimal.Decimal // STOP_LIMIT only
	Quantity    decimal.Decimal
	Remaining   decimal.Decimal
	Status      OrderStatus
	SubmittedAt time.Time
	ExpireAt    time.Time

	// set once the stop trigger fires; a triggered stop-limit behaves as a
	// plain limit order from then on
	triggered bool
}

func (o *Order) IsTerminal() bool {
	switch o.Status {
	case StatusFilled, StatusCancelled, StatusExpired, StatusRejected:
		return true
	}
	return false
}

// CanRest reports whether an unmatched remainder may stay in the book.
func (o *Order) CanRest() bool {
	if o.Kind == MARKET {
		return false
	}
	return o.TimeInForce == GTC || o.TimeInForce == DAY
}

func (o *Order) Triggered() bool {
	return o.triggered
}

// Snapshot returns a copy safe to hand out after the pair lock is released.
func (o *Order) Snapshot() Order {
	return *o
}
