package engine

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joripage/tokenex/pkg/engine/model"
)

const statsWindow = 24 * time.Hour

type statPoint struct {
	at    time.Time
	price decimal.Decimal
	qty   decimal.Decimal
}

// marketStats keeps the rolling 24h trade window for one pair. Points are
// appended in execution order and pruned from the front.
type marketStats struct {
	mu     sync.Mutex
	pair   string
	points []statPoint
	last   decimal.Decimal
}

func newMarketStats(pair string) *marketStats {
	return &marketStats{pair: pair}
}

func (s *marketStats) record(price, qty decimal.Decimal, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = price
	s.points = append(s.points, statPoint{at: at, price: price, qty: qty})
	s.prune(at)
}

func (s *marketStats) prune(now time.Time) {
	cutoff := now.Add(-statsWindow)
	i := 0
	for i < len(s.points) && s.points[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.points = append(s.points[:0:0], s.points[i:]...)
	}
}

func (s *marketStats) ticker(now time.Time) *model.Ticker {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(now)

	t := &model.Ticker{
		Pair: s.pair,
		Last: s.last,
		At:   now,
	}
	if len(s.points) == 0 {
		return t
	}

	volume := decimal.Zero
	high := s.points[0].price
	low := s.points[0].price
	for _, p := range s.points {
		volume = volume.Add(p.qty)
		if p.price.GreaterThan(high) {
			high = p.price
		}
		if p.price.LessThan(low) {
			low = p.price
		}
	}

	t.Volume24h = volume
	t.High24h = high
	t.Low24h = low

	open := s.points[0].price
	if open.IsPositive() {
		t.Change24h = s.last.Sub(open).Div(open).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return t
}
