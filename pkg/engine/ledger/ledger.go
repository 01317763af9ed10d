package ledger

import (
	"sync"

	"github.com/joripage/tokenex/pkg/engine/model"
)

// Ledger is the append-only in-memory trade record plus the order-history
// store. The engine is the source of truth for live matching; durable storage
// happens downstream off the event stream.
type Ledger struct {
	mu     sync.RWMutex
	trades map[string][]*model.Trade // pair -> trades in execution order
	orders map[string]*model.Order   // latest snapshot by order id
}

func NewLedger() *Ledger {
	return &Ledger{
		trades: make(map[string][]*model.Trade),
		orders: make(map[string]*model.Order),
	}
}

func (l *Ledger) AppendTrade(t *model.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.trades[t.Pair] = append(l.trades[t.Pair], t)
}

// RecentTrades returns up to limit trades for the pair, newest first.
// limit <= 0 returns all.
func (l *Ledger) RecentTrades(pair string, limit int) []*model.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.trades[pair]
	n := len(all)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*model.Trade, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, all[i])
	}
	return out
}

// TradeCount reports how many trades the pair has executed.
func (l *Ledger) TradeCount(pair string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.trades[pair])
}

// PutOrder stores the latest snapshot of an order, terminal or not.
func (l *Ledger) PutOrder(o *model.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.orders[o.ID] = o
}

func (l *Ledger) Order(orderID string) (*model.Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	o, ok := l.orders[orderID]
	return o, ok
}
