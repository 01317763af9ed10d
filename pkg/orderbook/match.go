package orderbook

import "github.com/shopspring/decimal"

// Fill is one match between the incoming order and a resting maker order.
// Price is always the maker's price.
type Fill struct {
	Pair         string
	BuyOrderID   string
	SellOrderID  string
	MakerOrderID string
	TakerOrderID string
	Price        decimal.Decimal
	Quantity     decimal.Decimal
}
