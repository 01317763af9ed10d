package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookLevel is one aggregated price level of a book snapshot.
type BookLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Notional decimal.Decimal `json:"notional"`
	Orders   int             `json:"orders"`
}

// BookSnapshot is a point-in-time view of a pair's book, best levels first.
type BookSnapshot struct {
	Pair string      `json:"pair"`
	Bids []BookLevel `json:"bids"`
	Asks []BookLevel `json:"asks"`
	At   time.Time   `json:"at"`
}

// Ticker carries the derived per-pair market statistics recomputed on every
// trade.
type Ticker struct {
	Pair      string          `json:"pair"`
	Last      decimal.Decimal `json:"last"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	High24h   decimal.Decimal `json:"high_24h"`
	Low24h    decimal.Decimal `json:"low_24h"`
	Change24h decimal.Decimal `json:"change_24h"` // percentage
	At        time.Time       `json:"at"`
}
