package model

import "time"

type EventType string

const (
	EventOrderPlaced      EventType = "OrderPlaced"
	EventOrderCancelled   EventType = "OrderCancelled"
	EventOrderExpired     EventType = "OrderExpired"
	EventTradeExecuted    EventType = "TradeExecuted"
	EventOrderBookChanged EventType = "OrderBookChanged"
)

// Event is the engine's outbound notification. Exactly one of Order, Trade
// and Book is set depending on Type; Ticker rides along on trade and book
// events for market-data consumers.
type Event struct {
	ID     string        `json:"id"`
	Type   EventType     `json:"type"`
	Pair   string        `json:"pair"`
	Order  *Order        `json:"order,omitempty"`
	Trade  *Trade        `json:"trade,omitempty"`
	Book   *BookSnapshot `json:"book,omitempty"`
	Ticker *Ticker       `json:"ticker,omitempty"`
	At     time.Time     `json:"at"`
}
