package model

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/joripage/tokenex/pkg/orderbook"
)

type OrderSide = orderbook.Side

const (
	OrderSideBuy  = orderbook.BUY
	OrderSideSell = orderbook.SELL
)

type OrderKind = orderbook.OrderKind

const (
	OrderKindLimit     = orderbook.LIMIT
	OrderKindMarket    = orderbook.MARKET
	OrderKindStopLimit = orderbook.STOPLIMIT
)

type OrderTimeInForce = orderbook.TimeInForce

const (
	OrderTimeInForceGTC = orderbook.GTC
	OrderTimeInForceIOC = orderbook.IOC
	OrderTimeInForceFOK = orderbook.FOK
	OrderTimeInForceDAY = orderbook.DAY
)

type OrderStatus = orderbook.OrderStatus

const (
	OrderStatusPending         = orderbook.StatusPending
	OrderStatusPartiallyFilled = orderbook.StatusPartiallyFilled
	OrderStatusFilled          = orderbook.StatusFilled
	OrderStatusCancelled       = orderbook.StatusCancelled
	OrderStatusExpired         = orderbook.StatusExpired
	OrderStatusRejected        = orderbook.StatusRejected
)

// Order is the engine's view of an order: the book entry plus accrued fees.
// Snapshots of it flow through events, the history store and persistence.
type Order struct {
	ID          string           `gorm:"primaryKey;column:id" json:"id"`
	Pair        string           `gorm:"column:pair" json:"pair"`
	OwnerID     string           `gorm:"column:owner_id" json:"owner_id"`
	Side        OrderSide        `gorm:"column:side" json:"side"`
	Kind        OrderKind        `gorm:"column:kind" json:"kind"`
	TimeInForce OrderTimeInForce `gorm:"column:time_in_force" json:"time_in_force"`
	Price       decimal.Decimal  `gorm:"column:price;type:numeric" json:"price"`
	StopPrice   decimal.Decimal  `gorm:"column:stop_price;type:numeric" json:"stop_price"`
	Quantity    decimal.Decimal  `gorm:"column:quantity;type:numeric" json:"quantity"`
	Remaining   decimal.Decimal  `gorm:"column:remaining;type:numeric" json:"remaining"`
	Status      OrderStatus      `gorm:"column:status" json:"status"`
	MakerFee    decimal.Decimal  `gorm:"column:maker_fee;type:numeric" json:"maker_fee"` // accrued across fills as maker
	TakerFee    decimal.Decimal  `gorm:"column:taker_fee;type:numeric" json:"taker_fee"` // accrued across fills as taker
	SubmittedAt time.Time        `gorm:"column:submitted_at" json:"submitted_at"`
	ExpireAt    time.Time        `gorm:"column:expire_at" json:"expire_at"`
	UpdatedAt   time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusExpired, OrderStatusRejected:
		return true
	}
	return false
}
