package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joripage/tokenex/pkg/engine/ledger"
	"github.com/joripage/tokenex/pkg/engine/model"
	"github.com/joripage/tokenex/pkg/engine/riskrule"
	"github.com/joripage/tokenex/pkg/orderbook"
)

const (
	defaultSweepInterval = time.Minute
	defaultGTCExpiry     = 365 * 24 * time.Hour
	defaultEventBuffer   = 4096

	// price levels carried on OrderBookChanged events
	eventBookDepth = 20
)

type Config struct {
	Pairs         []*model.Pair
	SweepInterval time.Duration
	GTCExpiry     time.Duration
	EventBuffer   int
}

// Engine owns every pair's order book and drives matching, fees, the trade
// ledger, expiration sweeping and event dispatch. All mutating operations on
// one pair serialize on that pair's lock; pairs proceed independently.
type Engine struct {
	cfg *Config

	pairs  map[string]*pairState
	ledger *ledger.Ledger

	balance   BalanceChecker
	fees      FeeSchedule
	rules     []riskrule.RiskRule
	notifiers []Notifier

	orders sync.Map // order id -> *orderRecord, live orders only

	ownerMu sync.RWMutex
	owners  map[string]map[string]struct{} // owner id -> live order ids

	events    chan *model.Event
	stopCh    chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

type pairState struct {
	mu    sync.RWMutex
	cfg   *model.Pair
	book  *orderbook.Book
	stats *marketStats
}

// orderRecord tracks a live order together with its accrued fees. Mutated
// only under the owning pair's lock.
type orderRecord struct {
	pair      string
	bookOrder *orderbook.Order
	makerFee  decimal.Decimal
	takerFee  decimal.Decimal
}

func (r *orderRecord) snapshot(now time.Time) *model.Order {
	o := r.bookOrder
	return &model.Order{
		ID:          o.ID,
		Pair:        o.Pair,
		OwnerID:     o.OwnerID,
		Side:        o.Side,
		Kind:        o.Kind,
		TimeInForce: o.TimeInForce,
		Price:       o.Price,
		StopPrice:   o.StopPrice,
		Quantity:    o.Quantity,
		Remaining:   o.Remaining,
		Status:      o.Status,
		MakerFee:    r.makerFee,
		TakerFee:    r.takerFee,
		SubmittedAt: o.SubmittedAt,
		ExpireAt:    o.ExpireAt,
		UpdatedAt:   now,
	}
}

type Option func(*Engine)

func WithBalanceChecker(b BalanceChecker) Option {
	return func(e *Engine) { e.balance = b }
}

func WithFeeSchedule(f FeeSchedule) Option {
	return func(e *Engine) { e.fees = f }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifiers = append(e.notifiers, n) }
}

func WithRiskRules(rules ...riskrule.RiskRule) Option {
	return func(e *Engine) { e.rules = append(e.rules, rules...) }
}

func New(cfg *Config, opts ...Option) (*Engine, error) {
	if cfg == nil || len(cfg.Pairs) == 0 {
		return nil, fmt.Errorf("engine config requires at least one trading pair")
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.GTCExpiry <= 0 {
		cfg.GTCExpiry = defaultGTCExpiry
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}

	defaultFees, err := NewFixedFeeSchedule(
		decimal.RequireFromString("0.001"),
		decimal.RequireFromString("0.002"),
	)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		pairs:   make(map[string]*pairState, len(cfg.Pairs)),
		ledger:  ledger.NewLedger(),
		balance: allowAllBalance{},
		fees:    defaultFees,
		owners:  make(map[string]map[string]struct{}),
		events:  make(chan *model.Event, cfg.EventBuffer),
		stopCh:  make(chan struct{}),
	}
	for _, p := range cfg.Pairs {
		e.pairs[p.ID] = &pairState{
			cfg:   p,
			book:  orderbook.NewBook(p.ID),
			stats: newMarketStats(p.ID),
		}
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		e.wg.Add(2)
		go e.runDispatcher()
		go e.runSweeper(ctx)
	})
}

func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		e.wg.Wait()
	})
}

func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// PlaceOrder validates and matches one incoming order. On a fill-or-kill
// rejection the returned result carries the cancelled order alongside
// ErrFillOrKillUnsatisfiable; no partial state leaks.
func (e *Engine) PlaceOrder(ctx context.Context, req *model.PlaceOrderRequest) (*model.PlaceOrderResult, error) {
	ps, err := e.pairState(req.Pair)
	if err != nil {
		return nil, err
	}
	if err := e.validate(req, ps.cfg); err != nil {
		return nil, err
	}
	// the external gate completes before matching; the critical section below
	// is pure in-memory computation
	if err := e.balance.Check(ctx, req.OwnerID, req.Pair, req.Side, req.Quantity, req.Price); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}

	// the client timestamp rides on the order for display and ordering only;
	// expiry, stats and event times run on the engine clock
	now := time.Now()
	submittedAt := req.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = now
	}

	order := &orderbook.Order{
		ID:          uuid.NewString(),
		Pair:        req.Pair,
		OwnerID:     req.OwnerID,
		Side:        req.Side,
		Kind:        req.Kind,
		TimeInForce: req.TimeInForce,
		Price:       req.Price,
		StopPrice:   req.StopPrice,
		Quantity:    req.Quantity,
		Remaining:   req.Quantity,
		Status:      orderbook.StatusPending,
		SubmittedAt: submittedAt,
		ExpireAt:    e.expireAt(req.TimeInForce, now),
	}
	rec := &orderRecord{pair: req.Pair, bookOrder: order}
	e.orders.Store(order.ID, rec)
	e.trackOwner(req.OwnerID, order.ID)

	pending := make([]*model.Event, 0, 4)

	ps.mu.Lock()
	fills, submitErr := ps.book.Submit(order)
	if submitErr != nil {
		snap := rec.snapshot(now)
		e.ledger.PutOrder(snap)
		e.finalize(rec)
		ps.mu.Unlock()
		return &model.PlaceOrderResult{
			OrderID:   order.ID,
			Status:    snap.Status,
			Remaining: snap.Remaining,
		}, submitErr
	}

	placedEv := e.newEvent(model.EventOrderPlaced, req.Pair, now)
	placedEv.Order = rec.snapshot(now)
	pending = append(pending, placedEv)

	trades := e.applyFills(ps, fills, now, &pending)
	if len(fills) > 0 {
		e.activateStops(ps, now, &pending)
	} else if !order.IsTerminal() && (order.Kind != orderbook.STOPLIMIT || order.Triggered()) {
		// rested without trading; depth changed
		bookEv := e.newEvent(model.EventOrderBookChanged, req.Pair, now)
		bookEv.Book = toBookSnapshot(ps.book.Depth(eventBookDepth), now)
		pending = append(pending, bookEv)
	}

	// history is written before the pair lock is released; a concurrent match
	// that fills this order afterwards always stores the newer snapshot
	snap := rec.snapshot(now)
	e.ledger.PutOrder(snap)
	if snap.IsTerminal() {
		e.finalize(rec)
	}
	ps.mu.Unlock()

	e.emit(pending...)

	return &model.PlaceOrderResult{
		OrderID:   order.ID,
		Status:    snap.Status,
		Trades:    trades,
		Remaining: snap.Remaining,
	}, nil
}

// applyFills converts book fills into trades: fee computation, ledger
// append, market stats and maker bookkeeping. Caller holds the pair lock.
func (e *Engine) applyFills(ps *pairState, fills []orderbook.Fill, now time.Time, pending *[]*model.Event) []*model.Trade {
	if len(fills) == 0 {
		return nil
	}

	trades := make([]*model.Trade, 0, len(fills))
	for _, f := range fills {
		notional := f.Quantity.Mul(f.Price).RoundBank(ps.cfg.PricePrecision)
		makerFee := e.fees.Fee(ps.cfg.ID, notional, FeeRoleMaker).RoundBank(ps.cfg.PricePrecision)
		takerFee := e.fees.Fee(ps.cfg.ID, notional, FeeRoleTaker).RoundBank(ps.cfg.PricePrecision)

		trade := &model.Trade{
			ID:           uuid.NewString(),
			Pair:         f.Pair,
			BuyOrderID:   f.BuyOrderID,
			SellOrderID:  f.SellOrderID,
			MakerOrderID: f.MakerOrderID,
			TakerOrderID: f.TakerOrderID,
			Price:        f.Price,
			Quantity:     f.Quantity,
			Notional:     notional,
			MakerFee:     makerFee,
			TakerFee:     takerFee,
			ExecutedAt:   now,
		}
		trades = append(trades, trade)
		e.ledger.AppendTrade(trade)
		ps.stats.record(f.Price, f.Quantity, now)

		if rec, ok := e.loadRecord(f.MakerOrderID); ok {
			rec.makerFee = rec.makerFee.Add(makerFee)
			makerSnap := rec.snapshot(now)
			e.ledger.PutOrder(makerSnap)
			if makerSnap.IsTerminal() {
				e.finalize(rec)
			}
		}
		if rec, ok := e.loadRecord(f.TakerOrderID); ok {
			rec.takerFee = rec.takerFee.Add(takerFee)
		}

		tradeEv := e.newEvent(model.EventTradeExecuted, f.Pair, now)
		tradeEv.Trade = trade
		tradeEv.Ticker = ps.stats.ticker(now)
		bookEv := e.newEvent(model.EventOrderBookChanged, f.Pair, now)
		bookEv.Book = toBookSnapshot(ps.book.Depth(eventBookDepth), now)
		*pending = append(*pending, tradeEv, bookEv)
	}
	return trades
}

// activateStops resubmits parked stop-limit orders whose trigger the last
// trade crossed, repeating while activations keep moving the price. Caller
// holds the pair lock.
func (e *Engine) activateStops(ps *pairState, now time.Time, pending *[]*model.Event) {
	for {
		stops := ps.book.TriggeredStops()
		if len(stops) == 0 {
			return
		}
		for _, s := range stops {
			fills, err := ps.book.Submit(s)
			if err == nil {
				e.applyFills(ps, fills, now, pending)
				if len(fills) == 0 && !s.IsTerminal() {
					// the activated stop rested without trading; depth changed
					bookEv := e.newEvent(model.EventOrderBookChanged, s.Pair, now)
					bookEv.Book = toBookSnapshot(ps.book.Depth(eventBookDepth), now)
					*pending = append(*pending, bookEv)
				}
			}
			if rec, ok := e.loadRecord(s.ID); ok {
				snap := rec.snapshot(now)
				e.ledger.PutOrder(snap)
				if snap.IsTerminal() {
					e.finalize(rec)
					if snap.Status == orderbook.StatusCancelled {
						// killed on activation (fill-or-kill shortfall or an
						// empty opposite side); owners hear about it like any
						// other cancel
						cancelEv := e.newEvent(model.EventOrderCancelled, s.Pair, now)
						cancelEv.Order = snap
						*pending = append(*pending, cancelEv)
					}
				}
			}
		}
	}
}

// CancelOrder removes a live order. Cancelling an already-terminal order
// fails cleanly with ErrAlreadyTerminal.
func (e *Engine) CancelOrder(ctx context.Context, orderID, requesterID string) (*model.Order, error) {
	rec, ok := e.loadRecord(orderID)
	if !ok {
		if o, found := e.ledger.Order(orderID); found {
			if o.OwnerID != requesterID {
				return nil, ErrNotOwner
			}
			return nil, ErrAlreadyTerminal
		}
		return nil, ErrOrderNotFound
	}
	if rec.bookOrder.OwnerID != requesterID {
		return nil, ErrNotOwner
	}

	ps := e.pairs[rec.pair]
	now := time.Now()

	ps.mu.Lock()
	if _, err := ps.book.Cancel(orderID); err != nil {
		ps.mu.Unlock()
		return nil, ErrAlreadyTerminal
	}
	snap := rec.snapshot(now)
	e.ledger.PutOrder(snap)
	e.finalize(rec)
	bookEv := e.newEvent(model.EventOrderBookChanged, rec.pair, now)
	bookEv.Book = toBookSnapshot(ps.book.Depth(eventBookDepth), now)
	ps.mu.Unlock()

	cancelEv := e.newEvent(model.EventOrderCancelled, rec.pair, now)
	cancelEv.Order = snap
	e.emit(cancelEv, bookEv)

	return snap, nil
}

// OrderBook returns a point-in-time snapshot of the top depth levels.
func (e *Engine) OrderBook(pairID string, depth int) (*model.BookSnapshot, error) {
	ps, err := e.pairState(pairID)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	d := ps.book.Depth(depth)
	ps.mu.RUnlock()
	return toBookSnapshot(d, time.Now()), nil
}

// RecentTrades returns up to limit trades for the pair, newest first.
func (e *Engine) RecentTrades(pairID string, limit int) ([]*model.Trade, error) {
	if _, err := e.pairState(pairID); err != nil {
		return nil, err
	}
	return e.ledger.RecentTrades(pairID, limit), nil
}

// OrdersByOwner returns the owner's live orders across pairs, oldest first.
func (e *Engine) OrdersByOwner(ownerID string) []*model.Order {
	e.ownerMu.RLock()
	ids := make([]string, 0, len(e.owners[ownerID]))
	for id := range e.owners[ownerID] {
		ids = append(ids, id)
	}
	e.ownerMu.RUnlock()

	now := time.Now()
	out := make([]*model.Order, 0, len(ids))
	for _, id := range ids {
		rec, ok := e.loadRecord(id)
		if !ok {
			continue
		}
		ps := e.pairs[rec.pair]
		ps.mu.RLock()
		if !rec.bookOrder.IsTerminal() {
			out = append(out, rec.snapshot(now))
		}
		ps.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

// Order returns the latest known snapshot of an order, live or terminal.
func (e *Engine) Order(orderID string) (*model.Order, error) {
	if o, ok := e.ledger.Order(orderID); ok {
		return o, nil
	}
	return nil, ErrOrderNotFound
}

// Ticker returns the pair's rolling 24h statistics.
func (e *Engine) Ticker(pairID string) (*model.Ticker, error) {
	ps, err := e.pairState(pairID)
	if err != nil {
		return nil, err
	}
	return ps.stats.ticker(time.Now()), nil
}

func (e *Engine) validate(req *model.PlaceOrderRequest, pair *model.Pair) error {
	if req.OwnerID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidOrder)
	}
	switch req.Side {
	case orderbook.BUY, orderbook.SELL:
	default:
		return fmt.Errorf("%w: unrecognized side %q", ErrInvalidOrder, req.Side)
	}
	switch req.Kind {
	case orderbook.LIMIT, orderbook.MARKET, orderbook.STOPLIMIT:
	default:
		return fmt.Errorf("%w: unrecognized order kind %q", ErrInvalidOrder, req.Kind)
	}
	switch req.TimeInForce {
	case orderbook.GTC, orderbook.IOC, orderbook.FOK, orderbook.DAY:
	default:
		return fmt.Errorf("%w: unrecognized time in force %q", ErrInvalidOrder, req.TimeInForce)
	}
	if !req.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	if req.Kind != orderbook.MARKET && !req.Price.IsPositive() {
		return fmt.Errorf("%w: %s orders require a positive price", ErrInvalidOrder, req.Kind)
	}
	if req.Kind == orderbook.STOPLIMIT && !req.StopPrice.IsPositive() {
		return fmt.Errorf("%w: stop-limit orders require a positive stop price", ErrInvalidOrder)
	}
	for _, rule := range e.rules {
		if err := rule.Check(req, pair); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOrder, err)
		}
	}
	return nil
}

func (e *Engine) expireAt(tif model.OrderTimeInForce, now time.Time) time.Time {
	switch tif {
	case orderbook.GTC:
		return now.Add(e.cfg.GTCExpiry)
	case orderbook.DAY:
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	default:
		// IOC and FOK never outlive their matching pass
		return now
	}
}

func (e *Engine) pairState(pairID string) (*pairState, error) {
	ps, ok := e.pairs[pairID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTradingPair, pairID)
	}
	return ps, nil
}

func (e *Engine) loadRecord(orderID string) (*orderRecord, bool) {
	v, ok := e.orders.Load(orderID)
	if !ok {
		return nil, false
	}
	return v.(*orderRecord), true
}

func (e *Engine) finalize(rec *orderRecord) {
	e.orders.Delete(rec.bookOrder.ID)
	e.untrackOwner(rec.bookOrder.OwnerID, rec.bookOrder.ID)
}

func (e *Engine) trackOwner(ownerID, orderID string) {
	e.ownerMu.Lock()
	defer e.ownerMu.Unlock()
	ids, ok := e.owners[ownerID]
	if !ok {
		ids = make(map[string]struct{})
		e.owners[ownerID] = ids
	}
	ids[orderID] = struct{}{}
}

func (e *Engine) untrackOwner(ownerID, orderID string) {
	e.ownerMu.Lock()
	defer e.ownerMu.Unlock()
	if ids, ok := e.owners[ownerID]; ok {
		delete(ids, orderID)
		if len(ids) == 0 {
			delete(e.owners, ownerID)
		}
	}
}

func toBookSnapshot(d *orderbook.Depth, now time.Time) *model.BookSnapshot {
	snap := &model.BookSnapshot{
		Pair: d.Pair,
		Bids: make([]model.BookLevel, len(d.Bids)),
		Asks: make([]model.BookLevel, len(d.Asks)),
		At:   now,
	}
	for i, l := range d.Bids {
		snap.Bids[i] = model.BookLevel{Price: l.Price, Quantity: l.Quantity, Notional: l.Notional, Orders: l.Orders}
	}
	for i, l := range d.Asks {
		snap.Asks[i] = model.BookLevel{Price: l.Price, Quantity: l.Quantity, Notional: l.Notional, Orders: l.Orders}
	}
	return snap
}
