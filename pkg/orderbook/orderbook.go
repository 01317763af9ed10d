package orderbook

import (
	"container/heap"
	"fmt"
	"sort"
	"time"

	"github.com/gammazero/deque"
	"github.com/shopspring/decimal"
)

// Book holds the resting orders of one trading pair: bids ordered by price
// descending, asks ascending, FIFO within a price level (price-time priority).
// A Book is not safe for concurrent use; the caller serializes access per pair.
type Book struct {
	pair string

	bids *bookSide
	asks *bookSide

	orders map[string]*Order // resting orders by id
	stops  map[string]*Order // parked stop-limit orders by id

	lastPrice decimal.Decimal
}

type bookSide struct {
	levels map[string]*priceLevel
	heap   *PriceHeap
}

type priceLevel struct {
	price decimal.Decimal
	queue deque.Deque[*Order]
}

func NewBook(pair string) *Book {
	bidHeap := NewPriceHeap(func(i, j decimal.Decimal) bool { return i.GreaterThan(j) }) // max-heap
	askHeap := NewPriceHeap(func(i, j decimal.Decimal) bool { return i.LessThan(j) })    // min-heap

	return &Book{
		pair:   pair,
		bids:   &bookSide{levels: make(map[string]*priceLevel), heap: bidHeap},
		asks:   &bookSide{levels: make(map[string]*priceLevel), heap: askHeap},
		orders: make(map[string]*Order),
		stops:  make(map[string]*Order),
	}
}

func (b *Book) Pair() string {
	return b.pair
}

func (b *Book) LastPrice() decimal.Decimal {
	return b.lastPrice
}

// Submit matches the incoming order against the opposite side and rests any
// remainder the time-in-force allows. An untriggered stop-limit order is
// parked instead; it enters the book once the last traded price crosses its
// stop price.
func (b *Book) Submit(order *Order) ([]Fill, error) {
	if order.Status == "" {
		order.Status = StatusPending
	}
	if order.Remaining.IsZero() {
		order.Remaining = order.Quantity
	}

	if order.Kind == STOPLIMIT && !order.triggered {
		if !b.stopCrossed(order) {
			b.stops[order.ID] = order
			return nil, nil
		}
		order.triggered = true
	}

	if order.TimeInForce == FOK {
		// dry run: commit only if the walk can fully satisfy the order
		if b.availableTo(order).LessThan(order.Remaining) {
			order.Status = StatusCancelled
			return nil, ErrFillOrKillUnsatisfiable
		}
	}

	fills := b.match(order)

	switch {
	case order.Remaining.IsZero():
		order.Status = StatusFilled
	case order.CanRest():
		b.rest(order)
	default:
		// MARKET and IOC remainders never rest
		order.Status = StatusCancelled
	}

	return fills, nil
}

func (b *Book) match(taker *Order) []Fill {
	var fills []Fill

	opposite := b.asks
	if taker.Side == SELL {
		opposite = b.bids
	}

	for taker.Remaining.IsPositive() {
		level, ok := opposite.best()
		if !ok || !crosses(taker, level.price) {
			break
		}

		for level.queue.Len() > 0 && taker.Remaining.IsPositive() {
			maker := level.queue.Front()

			qty := decimal.Min(taker.Remaining, maker.Remaining)
			if !qty.IsPositive() {
				panic(fmt.Sprintf("orderbook %s: non-positive match qty between %s and %s", b.pair, taker.ID, maker.ID))
			}

			taker.Remaining = taker.Remaining.Sub(qty)
			maker.Remaining = maker.Remaining.Sub(qty)
			if taker.Remaining.IsNegative() || maker.Remaining.IsNegative() {
				panic(fmt.Sprintf("orderbook %s: negative remaining after match of %s", b.pair, qty))
			}

			fill := Fill{
				Pair:         b.pair,
				MakerOrderID: maker.ID,
				TakerOrderID: taker.ID,
				Price:        level.price,
				Quantity:     qty,
			}
			if taker.Side == BUY {
				fill.BuyOrderID, fill.SellOrderID = taker.ID, maker.ID
			} else {
				fill.BuyOrderID, fill.SellOrderID = maker.ID, taker.ID
			}
			fills = append(fills, fill)

			b.lastPrice = level.price

			if maker.Remaining.IsZero() {
				maker.Status = StatusFilled
				level.queue.PopFront()
				delete(b.orders, maker.ID)
			} else {
				// partial fill keeps its queue position and timestamp
				maker.Status = StatusPartiallyFilled
			}
		}

		if level.queue.Len() == 0 {
			opposite.drop(level.price)
		}
	}

	return fills
}

// crosses reports matching eligibility against a price level. Market orders
// take any price; limit orders only cross while the level price is at least
// as good as their own.
func crosses(taker *Order, levelPrice decimal.Decimal) bool {
	if taker.Kind == MARKET {
		return true
	}
	if taker.Side == BUY {
		return taker.Price.GreaterThanOrEqual(levelPrice)
	}
	return taker.Price.LessThanOrEqual(levelPrice)
}

// availableTo sums the opposite-side quantity the order could reach in one
// matching pass.
func (b *Book) availableTo(order *Order) decimal.Decimal {
	opposite := b.asks
	if order.Side == SELL {
		opposite = b.bids
	}

	total := decimal.Zero
	for _, level := range opposite.levels {
		if !crosses(order, level.price) {
			continue
		}
		for i := 0; i < level.queue.Len(); i++ {
			total = total.Add(level.queue.At(i).Remaining)
		}
	}
	return total
}

func (b *Book) rest(order *Order) {
	if order.Remaining.LessThan(order.Quantity) {
		order.Status = StatusPartiallyFilled
	} else {
		order.Status = StatusPending
	}

	side := b.sideOf(order.Side)
	key := order.Price.String()
	level, ok := side.levels[key]
	if !ok {
		level = &priceLevel{price: order.Price}
		side.levels[key] = level
		heap.Push(side.heap, order.Price)
	}
	level.queue.PushBack(order)
	b.orders[order.ID] = order
}

// Cancel removes a resting or parked order. The caller checks ownership.
func (b *Book) Cancel(orderID string) (*Order, error) {
	if o, ok := b.orders[orderID]; ok {
		b.removeResting(o)
		o.Status = StatusCancelled
		return o, nil
	}
	if o, ok := b.stops[orderID]; ok {
		delete(b.stops, orderID)
		o.Status = StatusCancelled
		return o, nil
	}
	return nil, ErrOrderNotFound
}

// Get returns a resting or parked order by id.
func (b *Book) Get(orderID string) (*Order, bool) {
	if o, ok := b.orders[orderID]; ok {
		return o, true
	}
	o, ok := b.stops[orderID]
	return o, ok
}

// Resting returns all resting and parked orders, unordered.
func (b *Book) Resting() []*Order {
	out := make([]*Order, 0, len(b.orders)+len(b.stops))
	for _, o := range b.orders {
		out = append(out, o)
	}
	for _, o := range b.stops {
		out = append(out, o)
	}
	return out
}

// RemoveExpired removes every order whose expiration has elapsed and marks it
// expired.
func (b *Book) RemoveExpired(now time.Time) []*Order {
	var expired []*Order
	for _, o := range b.orders {
		if !o.ExpireAt.IsZero() && !o.ExpireAt.After(now) {
			expired = append(expired, o)
		}
	}
	for _, o := range expired {
		b.removeResting(o)
		o.Status = StatusExpired
	}
	for id, o := range b.stops {
		if !o.ExpireAt.IsZero() && !o.ExpireAt.After(now) {
			delete(b.stops, id)
			o.Status = StatusExpired
			expired = append(expired, o)
		}
	}
	return expired
}

// TriggeredStops removes and returns parked stop-limit orders whose stop
// price the last trade crossed, oldest first. The caller resubmits them.
func (b *Book) TriggeredStops() []*Order {
	if len(b.stops) == 0 {
		return nil
	}

	var out []*Order
	for id, o := range b.stops {
		if b.stopCrossed(o) {
			o.triggered = true
			delete(b.stops, id)
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

func (b *Book) stopCrossed(o *Order) bool {
	if b.lastPrice.IsZero() {
		return false
	}
	if o.Side == BUY {
		return b.lastPrice.GreaterThanOrEqual(o.StopPrice)
	}
	return b.lastPrice.LessThanOrEqual(o.StopPrice)
}

func (b *Book) removeResting(o *Order) {
	delete(b.orders, o.ID)

	side := b.sideOf(o.Side)
	key := o.Price.String()
	level, ok := side.levels[key]
	if !ok {
		return
	}
	for i := level.queue.Len(); i > 0; i-- {
		cur := level.queue.PopFront()
		if cur.ID == o.ID {
			continue
		}
		level.queue.PushBack(cur)
	}
	if level.queue.Len() == 0 {
		// the heap entry goes stale; best() skims it off lazily
		delete(side.levels, key)
	}
}

func (b *Book) sideOf(s Side) *bookSide {
	if s == BUY {
		return b.bids
	}
	return b.asks
}

// best returns the current best price level, skimming off heap entries whose
// level was emptied by a cancel.
func (s *bookSide) best() (*priceLevel, bool) {
	for {
		price, ok := s.heap.Peek()
		if !ok {
			return nil, false
		}
		level, ok := s.levels[price.String()]
		if !ok || level.queue.Len() == 0 {
			heap.Pop(s.heap)
			delete(s.levels, price.String())
			continue
		}
		return level, true
	}
}

func (s *bookSide) drop(price decimal.Decimal) {
	key := price.String()
	delete(s.levels, key)
	// drop the matching heap entry; it is on top whenever drop is called
	// from the matching walk
	if top, ok := s.heap.Peek(); ok && top.Equal(price) {
		heap.Pop(s.heap)
	}
}
