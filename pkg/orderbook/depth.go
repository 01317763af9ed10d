package orderbook

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DepthLevel aggregates one price level of a book snapshot.
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Notional decimal.Decimal
	Orders   int
}

type Depth struct {
	Pair string
	Bids []DepthLevel
	Asks []DepthLevel
}

// Depth returns the top max price levels per side, best first. max <= 0
// returns every level. Parked stop orders are invisible until triggered.
func (b *Book) Depth(max int) *Depth {
	d := &Depth{
		Pair: b.pair,
		Bids: b.bids.depth(max, func(i, j decimal.Decimal) bool { return i.GreaterThan(j) }),
		Asks: b.asks.depth(max, func(i, j decimal.Decimal) bool { return i.LessThan(j) }),
	}
	return d
}

func (s *bookSide) depth(max int, better func(i, j decimal.Decimal) bool) []DepthLevel {
	out := make([]DepthLevel, 0, len(s.levels))
	for _, level := range s.levels {
		if level.queue.Len() == 0 {
			continue
		}
		qty := decimal.Zero
		for i := 0; i < level.queue.Len(); i++ {
			qty = qty.Add(level.queue.At(i).Remaining)
		}
		out = append(out, DepthLevel{
			Price:    level.price,
			Quantity: qty,
			Notional: qty.Mul(level.price),
			Orders:   level.queue.Len(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return better(out[i].Price, out[j].Price) })
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
