package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one executed match, immutable once created. Price is the maker's
// price; Notional is quantity times price rounded half-even to the pair's
// quote precision.
type Trade struct {
	ID           string          `gorm:"primaryKey;column:id" json:"id"`
	Pair         string          `gorm:"column:pair" json:"pair"`
	BuyOrderID   string          `gorm:"column:buy_order_id" json:"buy_order_id"`
	SellOrderID  string          `gorm:"column:sell_order_id" json:"sell_order_id"`
	MakerOrderID string          `gorm:"column:maker_order_id" json:"maker_order_id"`
	TakerOrderID string          `gorm:"column:taker_order_id" json:"taker_order_id"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric" json:"price"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric" json:"quantity"`
	Notional     decimal.Decimal `gorm:"column:notional;type:numeric" json:"notional"`
	MakerFee     decimal.Decimal `gorm:"column:maker_fee;type:numeric" json:"maker_fee"`
	TakerFee     decimal.Decimal `gorm:"column:taker_fee;type:numeric" json:"taker_fee"`
	ExecutedAt   time.Time       `gorm:"column:executed_at" json:"executed_at"`
}

func (Trade) TableName() string {
	return "trades"
}
