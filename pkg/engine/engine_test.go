package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joripage/tokenex/pkg/engine/model"
	"github.com/joripage/tokenex/pkg/engine/riskrule"
)

const testPairID = "TOKA-USD"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	eng, err := New(&Config{
		Pairs: []*model.Pair{{
			ID:                testPairID,
			PricePrecision:    2,
			QuantityPrecision: 4,
			TickSize:          dec("0.01"),
			MaxOrderSize:      dec("1000000"),
		}},
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng
}

func limitReq(owner string, side model.OrderSide, price, qty string) *model.PlaceOrderRequest {
	return &model.PlaceOrderRequest{
		OwnerID:     owner,
		Pair:        testPairID,
		Side:        side,
		Kind:        model.OrderKindLimit,
		TimeInForce: model.OrderTimeInForceGTC,
		Price:       dec(price),
		Quantity:    dec(qty),
	}
}

func place(t *testing.T, eng *Engine, req *model.PlaceOrderRequest) *model.PlaceOrderResult {
	t.Helper()
	res, err := eng.PlaceOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	return res
}

func TestPlaceOrderValidation(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	if _, err := eng.PlaceOrder(ctx, limitReq("u1", model.OrderSideBuy, "100", "1")); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	unknown := limitReq("u1", model.OrderSideBuy, "100", "1")
	unknown.Pair = "NOPE-USD"
	if _, err := eng.PlaceOrder(ctx, unknown); !errors.Is(err, ErrUnknownTradingPair) {
		t.Fatalf("expected ErrUnknownTradingPair, got %v", err)
	}

	cases := map[string]*model.PlaceOrderRequest{
		"zero quantity":     {OwnerID: "u1", Pair: testPairID, Side: model.OrderSideBuy, Kind: model.OrderKindLimit, TimeInForce: model.OrderTimeInForceGTC, Price: dec("100"), Quantity: dec("0")},
		"negative quantity": {OwnerID: "u1", Pair: testPairID, Side: model.OrderSideBuy, Kind: model.OrderKindLimit, TimeInForce: model.OrderTimeInForceGTC, Price: dec("100"), Quantity: dec("-1")},
		"limit no price":    {OwnerID: "u1", Pair: testPairID, Side: model.OrderSideBuy, Kind: model.OrderKindLimit, TimeInForce: model.OrderTimeInForceGTC, Quantity: dec("1")},
		"stop no stop px":   {OwnerID: "u1", Pair: testPairID, Side: model.OrderSideBuy, Kind: model.OrderKindStopLimit, TimeInForce: model.OrderTimeInForceGTC, Price: dec("100"), Quantity: dec("1")},
		"bad side":          {OwnerID: "u1", Pair: testPairID, Side: "SHORT", Kind: model.OrderKindLimit, TimeInForce: model.OrderTimeInForceGTC, Price: dec("100"), Quantity: dec("1")},
		"bad kind":          {OwnerID: "u1", Pair: testPairID, Side: model.OrderSideBuy, Kind: "ICEBERG", TimeInForce: model.OrderTimeInForceGTC, Price: dec("100"), Quantity: dec("1")},
		"bad tif":           {OwnerID: "u1", Pair: testPairID, Side: model.OrderSideBuy, Kind: model.OrderKindLimit, TimeInForce: "GTD", Price: dec("100"), Quantity: dec("1")},
		"missing owner":     {Pair: testPairID, Side: model.OrderSideBuy, Kind: model.OrderKindLimit, TimeInForce: model.OrderTimeInForceGTC, Price: dec("100"), Quantity: dec("1")},
	}
	for name, req := range cases {
		if _, err := eng.PlaceOrder(ctx, req); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("%s: expected ErrInvalidOrder, got %v", name, err)
		}
	}
}

func TestRiskRulesReject(t *testing.T) {
	eng := testEngine(t, WithRiskRules(riskrule.NewTickSizeRule()))

	offTick := limitReq("u1", model.OrderSideBuy, "100.005", "1")
	if _, err := eng.PlaceOrder(context.Background(), offTick); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder for off-tick price, got %v", err)
	}
}

func TestPlaceAndMatch(t *testing.T) {
	eng := testEngine(t)

	maker := place(t, eng, limitReq("maker", model.OrderSideSell, "100", "5"))
	taker := place(t, eng, limitReq("taker", model.OrderSideBuy, "100", "3"))

	if taker.Status != model.OrderStatusFilled {
		t.Fatalf("taker status = %s, want Filled", taker.Status)
	}
	if len(taker.Trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(taker.Trades))
	}
	tr := taker.Trades[0]
	if !tr.Price.Equal(dec("100")) || !tr.Quantity.Equal(dec("3")) {
		t.Fatalf("trade %s @ %s, want 3 @ 100", tr.Quantity, tr.Price)
	}
	if !tr.Notional.Equal(dec("300")) {
		t.Fatalf("notional = %s, want 300", tr.Notional)
	}
	// default schedule: maker 0.1%, taker 0.2%
	if !tr.MakerFee.Equal(dec("0.3")) || !tr.TakerFee.Equal(dec("0.6")) {
		t.Fatalf("fees maker=%s taker=%s, want 0.3 / 0.6", tr.MakerFee, tr.TakerFee)
	}
	if tr.MakerOrderID != maker.OrderID || tr.TakerOrderID != taker.OrderID {
		t.Fatalf("maker/taker attribution wrong")
	}
	if tr.BuyOrderID != taker.OrderID || tr.SellOrderID != maker.OrderID {
		t.Fatalf("buy/sell attribution wrong")
	}

	makerSnap, err := eng.Order(maker.OrderID)
	if err != nil {
		t.Fatalf("Order(maker): %v", err)
	}
	if makerSnap.Status != model.OrderStatusPartiallyFilled {
		t.Fatalf("maker status = %s, want PartiallyFilled", makerSnap.Status)
	}
	if !makerSnap.Remaining.Equal(dec("2")) {
		t.Fatalf("maker remaining = %s, want 2", makerSnap.Remaining)
	}
	if !makerSnap.MakerFee.Equal(dec("0.3")) {
		t.Fatalf("maker accrued fee = %s, want 0.3", makerSnap.MakerFee)
	}

	takerSnap, err := eng.Order(taker.OrderID)
	if err != nil {
		t.Fatalf("Order(taker): %v", err)
	}
	if !takerSnap.TakerFee.Equal(dec("0.6")) {
		t.Fatalf("taker accrued fee = %s, want 0.6", takerSnap.TakerFee)
	}

	if n := eng.Ledger().TradeCount(testPairID); n != 1 {
		t.Fatalf("ledger trade count = %d, want 1", n)
	}
}

func TestNotionalAndFeeRounding(t *testing.T) {
	eng := testEngine(t)

	place(t, eng, limitReq("maker", model.OrderSideSell, "0.07", "0.5"))
	res := place(t, eng, limitReq("taker", model.OrderSideBuy, "0.07", "0.5"))

	tr := res.Trades[0]
	// 0.07 * 0.5 = 0.035, banker's rounding at 2 places
	if !tr.Notional.Equal(dec("0.04")) {
		t.Fatalf("notional = %s, want 0.04", tr.Notional)
	}
	if !tr.MakerFee.IsZero() || !tr.TakerFee.IsZero() {
		t.Fatalf("fees on tiny notional should round to zero, got maker=%s taker=%s", tr.MakerFee, tr.TakerFee)
	}
}

func TestFOKRejectionLeavesNoTrace(t *testing.T) {
	eng := testEngine(t)

	place(t, eng, limitReq("maker", model.OrderSideSell, "100", "2"))

	fok := limitReq("taker", model.OrderSideBuy, "100", "5")
	fok.TimeInForce = model.OrderTimeInForceFOK
	res, err := eng.PlaceOrder(context.Background(), fok)
	if !errors.Is(err, ErrFillOrKillUnsatisfiable) {
		t.Fatalf("expected ErrFillOrKillUnsatisfiable, got %v", err)
	}
	if res == nil || res.Status != model.OrderStatusCancelled {
		t.Fatalf("result = %+v, want cancelled order", res)
	}
	if len(res.Trades) != 0 {
		t.Fatalf("FOK rejection produced %d trades", len(res.Trades))
	}

	book, err := eng.OrderBook(testPairID, 0)
	if err != nil {
		t.Fatalf("OrderBook: %v", err)
	}
	if len(book.Asks) != 1 || !book.Asks[0].Quantity.Equal(dec("2")) {
		t.Fatalf("ask side disturbed by FOK rejection: %+v", book.Asks)
	}
	if n := eng.Ledger().TradeCount(testPairID); n != 0 {
		t.Fatalf("ledger recorded %d trades after FOK rejection", n)
	}

	snap, err := eng.Order(res.OrderID)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if snap.Status != model.OrderStatusCancelled {
		t.Fatalf("stored status = %s, want Cancelled", snap.Status)
	}
	if got := eng.OrdersByOwner("taker"); len(got) != 0 {
		t.Fatalf("cancelled FOK order still listed as live: %+v", got)
	}
}

func TestFOKFullySatisfiableExecutes(t *testing.T) {
	eng := testEngine(t)

	place(t, eng, limitReq("m1", model.OrderSideSell, "100", "3"))
	place(t, eng, limitReq("m2", model.OrderSideSell, "101", "3"))

	fok := limitReq("taker", model.OrderSideBuy, "101", "5")
	fok.TimeInForce = model.OrderTimeInForceFOK
	res := place(t, eng, fok)

	if res.Status != model.OrderStatusFilled {
		t.Fatalf("status = %s, want Filled", res.Status)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(res.Trades))
	}
}

func TestIOCRemainderDiscarded(t *testing.T) {
	eng := testEngine(t)

	place(t, eng, limitReq("maker", model.OrderSideSell, "100", "2"))

	ioc := limitReq("taker", model.OrderSideBuy, "100", "5")
	ioc.TimeInForce = model.OrderTimeInForceIOC
	res := place(t, eng, ioc)

	if res.Status != model.OrderStatusCancelled {
		t.Fatalf("status = %s, want Cancelled", res.Status)
	}
	if len(res.Trades) != 1 || !res.Trades[0].Quantity.Equal(dec("2")) {
		t.Fatalf("IOC should fill the available 2, got %+v", res.Trades)
	}
	if !res.Remaining.Equal(dec("3")) {
		t.Fatalf("remaining = %s, want 3", res.Remaining)
	}
	book, _ := eng.OrderBook(testPairID, 0)
	if len(book.Bids) != 0 {
		t.Fatalf("IOC remainder rested: %+v", book.Bids)
	}
}

func TestMarketOrderOnEmptyBookCancelled(t *testing.T) {
	eng := testEngine(t)

	req := &model.PlaceOrderRequest{
		OwnerID:     "taker",
		Pair:        testPairID,
		Side:        model.OrderSideBuy,
		Kind:        model.OrderKindMarket,
		TimeInForce: model.OrderTimeInForceIOC,
		Quantity:    dec("5"),
	}
	res := place(t, eng, req)
	if res.Status != model.OrderStatusCancelled || len(res.Trades) != 0 {
		t.Fatalf("market order on empty book: status=%s trades=%d", res.Status, len(res.Trades))
	}
}

func TestCancelOrder(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	res := place(t, eng, limitReq("u1", model.OrderSideBuy, "99", "4"))

	if _, err := eng.CancelOrder(ctx, res.OrderID, "intruder"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	snap, err := eng.CancelOrder(ctx, res.OrderID, "u1")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if snap.Status != model.OrderStatusCancelled {
		t.Fatalf("status = %s, want Cancelled", snap.Status)
	}

	if _, err := eng.CancelOrder(ctx, res.OrderID, "u1"); !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("second cancel: expected ErrAlreadyTerminal, got %v", err)
	}
	if _, err := eng.CancelOrder(ctx, "no-such-order", "u1"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	book, _ := eng.OrderBook(testPairID, 0)
	if len(book.Bids) != 0 {
		t.Fatalf("cancelled order still in book: %+v", book.Bids)
	}
}

func TestOrdersByOwner(t *testing.T) {
	eng := testEngine(t)

	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	for i, price := range []string{"98", "97"} {
		req := limitReq("alice", model.OrderSideBuy, price, "1")
		req.SubmittedAt = base.Add(time.Duration(i) * time.Second)
		place(t, eng, req)
	}
	bob := limitReq("bob", model.OrderSideSell, "105", "1")
	bob.SubmittedAt = base.Add(5 * time.Second)
	place(t, eng, bob)

	alice := eng.OrdersByOwner("alice")
	if len(alice) != 2 {
		t.Fatalf("alice has %d live orders, want 2", len(alice))
	}
	if !alice[0].SubmittedAt.Before(alice[1].SubmittedAt) {
		t.Fatalf("orders not sorted oldest first")
	}
	if got := eng.OrdersByOwner("bob"); len(got) != 1 {
		t.Fatalf("bob has %d live orders, want 1", len(got))
	}
	if got := eng.OrdersByOwner("nobody"); len(got) != 0 {
		t.Fatalf("unknown owner has %d orders", len(got))
	}
}

func TestStopLimitActivation(t *testing.T) {
	eng := testEngine(t)

	// asks at 105 and 106
	place(t, eng, limitReq("m1", model.OrderSideSell, "105", "1"))
	place(t, eng, limitReq("m2", model.OrderSideSell, "106", "2"))

	stop := &model.PlaceOrderRequest{
		OwnerID:     "s1",
		Pair:        testPairID,
		Side:        model.OrderSideBuy,
		Kind:        model.OrderKindStopLimit,
		TimeInForce: model.OrderTimeInForceGTC,
		Price:       dec("106"),
		StopPrice:   dec("105"),
		Quantity:    dec("2"),
	}
	stopRes := place(t, eng, stop)
	if stopRes.Status != model.OrderStatusPending || len(stopRes.Trades) != 0 {
		t.Fatalf("stop should park untriggered: %+v", stopRes)
	}

	// parked stops stay out of the visible book
	book, _ := eng.OrderBook(testPairID, 0)
	if len(book.Bids) != 0 {
		t.Fatalf("parked stop visible in depth: %+v", book.Bids)
	}

	// trade at 105 crosses the stop price and activates the order
	place(t, eng, limitReq("t1", model.OrderSideBuy, "105", "1"))

	snap, err := eng.Order(stopRes.OrderID)
	if err != nil {
		t.Fatalf("Order(stop): %v", err)
	}
	if snap.Status != model.OrderStatusFilled {
		t.Fatalf("stop status = %s, want Filled after activation", snap.Status)
	}
	if n := eng.Ledger().TradeCount(testPairID); n != 2 {
		t.Fatalf("trade count = %d, want 2", n)
	}

	tk, _ := eng.Ticker(testPairID)
	if !tk.Last.Equal(dec("106")) {
		t.Fatalf("last = %s, want 106 after stop execution", tk.Last)
	}
}

func TestCancelParkedStop(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	stop := &model.PlaceOrderRequest{
		OwnerID:     "s1",
		Pair:        testPairID,
		Side:        model.OrderSideSell,
		Kind:        model.OrderKindStopLimit,
		TimeInForce: model.OrderTimeInForceGTC,
		Price:       dec("94"),
		StopPrice:   dec("95"),
		Quantity:    dec("1"),
	}
	res := place(t, eng, stop)

	snap, err := eng.CancelOrder(ctx, res.OrderID, "s1")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if snap.Status != model.OrderStatusCancelled {
		t.Fatalf("status = %s, want Cancelled", snap.Status)
	}
}

func TestTickerStats(t *testing.T) {
	eng := testEngine(t)

	for _, c := range []struct{ price, qty string }{
		{"100", "1"},
		{"104", "2"},
		{"98", "0.5"},
	} {
		place(t, eng, limitReq("m", model.OrderSideSell, c.price, c.qty))
		place(t, eng, limitReq("t", model.OrderSideBuy, c.price, c.qty))
	}

	tk, err := eng.Ticker(testPairID)
	if err != nil {
		t.Fatalf("Ticker: %v", err)
	}
	if !tk.Last.Equal(dec("98")) {
		t.Errorf("last = %s, want 98", tk.Last)
	}
	if !tk.High24h.Equal(dec("104")) || !tk.Low24h.Equal(dec("98")) {
		t.Errorf("high/low = %s/%s, want 104/98", tk.High24h, tk.Low24h)
	}
	if !tk.Volume24h.Equal(dec("3.5")) {
		t.Errorf("volume = %s, want 3.5", tk.Volume24h)
	}
	// open 100, last 98 -> -2%
	if !tk.Change24h.Equal(dec("-2")) {
		t.Errorf("change = %s, want -2", tk.Change24h)
	}
}

func TestRecentTrades(t *testing.T) {
	eng := testEngine(t)

	for _, price := range []string{"100", "101", "102"} {
		place(t, eng, limitReq("m", model.OrderSideSell, price, "1"))
		place(t, eng, limitReq("t", model.OrderSideBuy, price, "1"))
	}

	trades, err := eng.RecentTrades(testPairID, 2)
	if err != nil {
		t.Fatalf("RecentTrades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if !trades[0].Price.Equal(dec("102")) || !trades[1].Price.Equal(dec("101")) {
		t.Fatalf("not newest first: %s, %s", trades[0].Price, trades[1].Price)
	}

	if _, err := eng.RecentTrades("NOPE-USD", 10); !errors.Is(err, ErrUnknownTradingPair) {
		t.Fatalf("expected ErrUnknownTradingPair, got %v", err)
	}
}

func TestSweepExpiresDayOrders(t *testing.T) {
	eng := testEngine(t)

	day := limitReq("u1", model.OrderSideBuy, "99", "1")
	day.TimeInForce = model.OrderTimeInForceDAY
	res := place(t, eng, day)

	// before the session rolls over nothing expires
	if n := eng.Sweep(time.Now()); n != 0 {
		t.Fatalf("premature sweep expired %d orders", n)
	}

	// past the next midnight UTC the DAY order goes
	if n := eng.Sweep(time.Now().Add(25 * time.Hour)); n != 1 {
		t.Fatalf("sweep expired %d orders, want 1", n)
	}

	snap, err := eng.Order(res.OrderID)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if snap.Status != model.OrderStatusExpired {
		t.Fatalf("status = %s, want Expired", snap.Status)
	}
	if got := eng.OrdersByOwner("u1"); len(got) != 0 {
		t.Fatalf("expired order still listed as live")
	}
	book, _ := eng.OrderBook(testPairID, 0)
	if len(book.Bids) != 0 {
		t.Fatalf("expired order still in book: %+v", book.Bids)
	}

	if _, err := eng.CancelOrder(context.Background(), res.OrderID, "u1"); !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("cancel after expiry: expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestClientTimestampDoesNotDriveClock(t *testing.T) {
	eng := testEngine(t)

	// a DAY order carrying a stale client timestamp must not expire on arrival
	day := limitReq("u1", model.OrderSideBuy, "99", "1")
	day.TimeInForce = model.OrderTimeInForceDAY
	day.SubmittedAt = time.Now().Add(-72 * time.Hour)
	res := place(t, eng, day)

	if n := eng.Sweep(time.Now()); n != 0 {
		t.Fatalf("backdated DAY order expired immediately")
	}
	snap, err := eng.Order(res.OrderID)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if !snap.SubmittedAt.Equal(day.SubmittedAt) {
		t.Fatalf("client timestamp not preserved: %s", snap.SubmittedAt)
	}

	// the trade against it still lands inside the 24h window
	sell := limitReq("m", model.OrderSideSell, "99", "1")
	sell.SubmittedAt = time.Now().Add(-72 * time.Hour)
	place(t, eng, sell)

	tk, err := eng.Ticker(testPairID)
	if err != nil {
		t.Fatalf("Ticker: %v", err)
	}
	if !tk.Volume24h.Equal(dec("1")) {
		t.Fatalf("volume = %s, want 1", tk.Volume24h)
	}
	if !tk.Last.Equal(dec("99")) {
		t.Fatalf("last = %s, want 99", tk.Last)
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []*model.Event
}

func (n *recordingNotifier) Publish(ctx context.Context, ev *model.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) byType() map[model.EventType]int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[model.EventType]int)
	for _, ev := range n.events {
		out[ev.Type]++
	}
	return out
}

func TestEventDispatch(t *testing.T) {
	rec := &recordingNotifier{}
	eng := testEngine(t, WithNotifier(rec))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)

	place(t, eng, limitReq("m", model.OrderSideSell, "100", "1"))
	place(t, eng, limitReq("t", model.OrderSideBuy, "100", "1"))

	eng.Stop() // drains the queue before returning

	got := rec.byType()
	if got[model.EventOrderPlaced] != 2 {
		t.Errorf("OrderPlaced events = %d, want 2", got[model.EventOrderPlaced])
	}
	if got[model.EventTradeExecuted] != 1 {
		t.Errorf("TradeExecuted events = %d, want 1", got[model.EventTradeExecuted])
	}
	if got[model.EventOrderBookChanged] == 0 {
		t.Errorf("expected at least one OrderBookChanged event")
	}
	for _, ev := range rec.events {
		if ev.Type == model.EventTradeExecuted && ev.Ticker == nil {
			t.Errorf("trade event missing ticker")
		}
	}
}

func TestStopActivationEmitsEvents(t *testing.T) {
	rec := &recordingNotifier{}
	eng := testEngine(t, WithNotifier(rec))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)

	place(t, eng, limitReq("m1", model.OrderSideSell, "105", "1"))

	// activates and rests: once the ask side is empty its limit finds no match
	resting := &model.PlaceOrderRequest{
		OwnerID:     "s1",
		Pair:        testPairID,
		Side:        model.OrderSideBuy,
		Kind:        model.OrderKindStopLimit,
		TimeInForce: model.OrderTimeInForceGTC,
		Price:       dec("104"),
		StopPrice:   dec("105"),
		Quantity:    dec("1"),
	}
	restRes := place(t, eng, resting)

	// activates and dies: fill-or-kill wanting more than the book holds
	killed := &model.PlaceOrderRequest{
		OwnerID:     "s2",
		Pair:        testPairID,
		Side:        model.OrderSideBuy,
		Kind:        model.OrderKindStopLimit,
		TimeInForce: model.OrderTimeInForceFOK,
		Price:       dec("106"),
		StopPrice:   dec("105"),
		Quantity:    dec("5"),
	}
	killRes := place(t, eng, killed)

	// trade at 105 triggers both stops
	place(t, eng, limitReq("t1", model.OrderSideBuy, "105", "1"))

	eng.Stop()

	restSnap, err := eng.Order(restRes.OrderID)
	if err != nil {
		t.Fatalf("Order(resting stop): %v", err)
	}
	if restSnap.Status != model.OrderStatusPending {
		t.Fatalf("activated stop status = %s, want Pending", restSnap.Status)
	}
	killSnap, err := eng.Order(killRes.OrderID)
	if err != nil {
		t.Fatalf("Order(killed stop): %v", err)
	}
	if killSnap.Status != model.OrderStatusCancelled {
		t.Fatalf("fill-or-kill stop status = %s, want Cancelled", killSnap.Status)
	}

	sawRestedDepth, sawCancel := false, false
	rec.mu.Lock()
	for _, ev := range rec.events {
		if ev.Type == model.EventOrderBookChanged && ev.Book != nil {
			for _, b := range ev.Book.Bids {
				if b.Price.Equal(dec("104")) {
					sawRestedDepth = true
				}
			}
		}
		if ev.Type == model.EventOrderCancelled && ev.Order != nil && ev.Order.ID == killRes.OrderID {
			sawCancel = true
		}
	}
	rec.mu.Unlock()
	if !sawRestedDepth {
		t.Errorf("no depth event shows the activated stop resting at 104")
	}
	if !sawCancel {
		t.Errorf("no cancel event for the fill-or-kill stop killed on activation")
	}
}

type rejectingBalance struct{}

func (rejectingBalance) Check(ctx context.Context, ownerID, pair string, side model.OrderSide, quantity, price decimal.Decimal) error {
	return errors.New("account frozen")
}

func TestBalanceCheckerGatesPlacement(t *testing.T) {
	eng := testEngine(t, WithBalanceChecker(rejectingBalance{}))

	_, err := eng.PlaceOrder(context.Background(), limitReq("u1", model.OrderSideBuy, "100", "1"))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	book, _ := eng.OrderBook(testPairID, 0)
	if len(book.Bids) != 0 {
		t.Fatalf("rejected order reached the book")
	}
}

func TestConcurrentPlacementsSameLevel(t *testing.T) {
	eng := testEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := eng.PlaceOrder(context.Background(), limitReq("m", model.OrderSideSell, "100", "1")); err != nil {
				t.Errorf("sell: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := eng.PlaceOrder(context.Background(), limitReq("t", model.OrderSideBuy, "100", "1")); err != nil {
				t.Errorf("buy: %v", err)
			}
		}()
	}
	wg.Wait()

	// every buy eventually crosses a sell at the single price level
	if n := eng.Ledger().TradeCount(testPairID); n != 50 {
		t.Fatalf("trade count = %d, want 50", n)
	}
	book, _ := eng.OrderBook(testPairID, 0)
	if len(book.Bids) != 0 || len(book.Asks) != 0 {
		t.Fatalf("book not flat after symmetric flow: bids=%+v asks=%+v", book.Bids, book.Asks)
	}
}

func TestHistoryKeepsFinalStateUnderConcurrentMatch(t *testing.T) {
	// a resting order filled right after placement must never surface a stale
	// pending snapshot in history
	for i := 0; i < 200; i++ {
		eng := testEngine(t)

		var wg sync.WaitGroup
		results := make([]*model.PlaceOrderResult, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			results[0], _ = eng.PlaceOrder(context.Background(), limitReq("m", model.OrderSideSell, "100", "1"))
		}()
		go func() {
			defer wg.Done()
			results[1], _ = eng.PlaceOrder(context.Background(), limitReq("t", model.OrderSideBuy, "100", "1"))
		}()
		wg.Wait()

		// whichever side arrives first, the two always cross exactly once
		if n := eng.Ledger().TradeCount(testPairID); n != 1 {
			t.Fatalf("iteration %d: trade count = %d, want 1", i, n)
		}
		for _, res := range results {
			snap, err := eng.Order(res.OrderID)
			if err != nil {
				t.Fatalf("iteration %d: Order: %v", i, err)
			}
			if snap.Status != model.OrderStatusFilled {
				t.Fatalf("iteration %d: stored status = %s, want Filled", i, snap.Status)
			}
		}
	}
}
