package model

import "github.com/shopspring/decimal"

// Pair describes one tradable pair. Precision fields bound rounding of
// notional and fee amounts; the risk-rule fields are zero when unused.
type Pair struct {
	ID                string          `yaml:"id"`
	PricePrecision    int32           `yaml:"price_precision"`
	QuantityPrecision int32           `yaml:"quantity_precision"`
	TickSize          decimal.Decimal `yaml:"tick_size"`
	MaxOrderSize      decimal.Decimal `yaml:"max_order_size"`
	PriceFloor        decimal.Decimal `yaml:"price_floor"`
	PriceCeiling      decimal.Decimal `yaml:"price_ceiling"`
}
