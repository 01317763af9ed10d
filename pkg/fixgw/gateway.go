package fixgw

import (
	"context"
	"sync"

	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/tokenex/pkg/engine"
	"github.com/joripage/tokenex/pkg/engine/model"
)

// Gateway bridges FIX 4.4 order entry onto the matching engine. Inbound
// NewOrderSingle and OrderCancelRequest messages become engine calls; the
// synchronous result produces the client's execution reports, and the engine
// event stream covers the passive side of each trade plus expirations.
type Gateway struct {
	cfg    *GatewayConfig
	app    *Application
	engine *engine.Engine

	sessionByClOrdID sync.Map // clOrdID -> quickfix.SessionID
	clOrdIDByOrderID sync.Map // engine order id -> clOrdID
	orderIDByClOrdID sync.Map // clOrdID -> engine order id

	outbound chan *outboundReport
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	send func(snap *model.Order, clOrdID, origClOrdID string, sessionID quickfix.SessionID, lastQty, lastPx decimal.Decimal, fromTrade bool) error
}

type GatewayConfig struct {
	ConfigFilepath string
}

// outboundReport carries one execution report through the sender queue.
type outboundReport struct {
	snap        model.Order
	clOrdID     string
	origClOrdID string
	sessionID   quickfix.SessionID
	lastQty     decimal.Decimal
	lastPx      decimal.Decimal
	fromTrade   bool
}

const outboundQueueSize = 100_000

func NewGateway(cfg *GatewayConfig, eng *engine.Engine) *Gateway {
	g := &Gateway{
		cfg:      cfg,
		engine:   eng,
		outbound: make(chan *outboundReport, outboundQueueSize),
		stopCh:   make(chan struct{}),
		send:     sendExecutionReport,
	}
	g.wg.Add(1)
	go g.runReportSender()
	return g
}

func (g *Gateway) Start(ctx context.Context) error {
	app, err := startApp(g.cfg.ConfigFilepath, g)
	if err != nil {
		zap.S().Errorw("start fix acceptor failed", "err", err)
		return err
	}
	g.app = app
	return nil
}

func (g *Gateway) Stop() {
	g.stopOnce.Do(func() {
		close(g.stopCh)
		g.wg.Wait()
	})
	if g.app != nil {
		stopApp(g.app)
	}
}

// AddOrder maps an inbound 35=D onto a placement. The taker's execution
// reports are sent from the synchronous result.
func (g *Gateway) AddOrder(ctx context.Context, nos *NewOrderSingle) {
	side, sErr := sideFromFIX(nos.Side)
	kind, kErr := kindFromFIX(nos.OrdType)
	tif, tErr := timeInForceFromFIX(nos.TimeInForce)
	if sErr != nil || kErr != nil || tErr != nil {
		zap.S().Warnw("unsupported order fields", "clOrdID", nos.ClOrdID, "side", sErr, "kind", kErr, "tif", tErr)
		g.sendRejectReport(nos)
		return
	}

	g.sessionByClOrdID.Store(nos.ClOrdID, nos.SessionID)

	res, err := g.engine.PlaceOrder(ctx, &model.PlaceOrderRequest{
		OwnerID:     nos.Account,
		Pair:        nos.Symbol,
		Side:        side,
		Kind:        kind,
		TimeInForce: tif,
		Price:       nos.Price,
		StopPrice:   nos.StopPx,
		Quantity:    nos.OrderQty,
		SubmittedAt: nos.TransactTime,
	})
	if err != nil && res == nil {
		zap.S().Warnw("place order rejected", "clOrdID", nos.ClOrdID, "err", err)
		g.sendRejectReport(nos)
		return
	}

	g.clOrdIDByOrderID.Store(res.OrderID, nos.ClOrdID)
	g.orderIDByClOrdID.Store(nos.ClOrdID, res.OrderID)

	snap, lookupErr := g.engine.Order(res.OrderID)
	if lookupErr != nil {
		zap.S().Warnw("order snapshot missing after placement", "orderID", res.OrderID)
		return
	}

	// ack first, then one report per fill
	g.sendOrderReport(snap, nos.ClOrdID, "", nos.SessionID, decimal.Zero, decimal.Zero, false)
	for _, tr := range res.Trades {
		g.sendOrderReport(snap, nos.ClOrdID, "", nos.SessionID, tr.Quantity, tr.Price, true)
	}
}

// CancelOrder maps an inbound 35=F onto an engine cancel.
func (g *Gateway) CancelOrder(ctx context.Context, req *OrderCancelRequest) {
	v, ok := g.orderIDByClOrdID.Load(req.OrigClOrdID)
	if !ok {
		zap.S().Warnw("cancel for unknown ClOrdID", "origClOrdID", req.OrigClOrdID)
		return
	}
	orderID := v.(string)

	snap, err := g.engine.CancelOrder(ctx, orderID, req.Account)
	if err != nil {
		zap.S().Warnw("cancel rejected", "origClOrdID", req.OrigClOrdID, "err", err)
		return
	}

	g.sessionByClOrdID.Store(req.ClOrdID, req.SessionID)
	g.sendOrderReport(snap, req.ClOrdID, req.OrigClOrdID, req.SessionID, decimal.Zero, decimal.Zero, false)
}

// Publish implements the engine notifier: trade events report the passive
// (maker) side, expiry events tell the owner their order is gone. Taker-side
// reports already went out synchronously.
func (g *Gateway) Publish(ctx context.Context, ev *model.Event) error {
	switch ev.Type {
	case model.EventTradeExecuted:
		if ev.Trade == nil {
			return nil
		}
		g.reportForOrderID(ev.Trade.MakerOrderID, ev.Trade.Quantity, ev.Trade.Price, true)

	case model.EventOrderExpired:
		if ev.Order == nil {
			return nil
		}
		clOrdID, sessionID, ok := g.lookupSession(ev.Order.ID)
		if !ok {
			return nil
		}
		g.sendOrderReport(ev.Order, clOrdID, "", sessionID, decimal.Zero, decimal.Zero, false)
	}
	return nil
}

func (g *Gateway) reportForOrderID(orderID string, lastQty, lastPx decimal.Decimal, fromTrade bool) {
	clOrdID, sessionID, ok := g.lookupSession(orderID)
	if !ok {
		return
	}
	snap, err := g.engine.Order(orderID)
	if err != nil {
		return
	}
	g.sendOrderReport(snap, clOrdID, "", sessionID, lastQty, lastPx, fromTrade)
}

func (g *Gateway) lookupSession(orderID string) (string, quickfix.SessionID, bool) {
	v, ok := g.clOrdIDByOrderID.Load(orderID)
	if !ok {
		return "", quickfix.SessionID{}, false
	}
	clOrdID := v.(string)
	s, ok := g.sessionByClOrdID.Load(clOrdID)
	if !ok {
		return "", quickfix.SessionID{}, false
	}
	return clOrdID, s.(quickfix.SessionID), true
}

// sendOrderReport queues one execution report for the sender goroutine, so
// session sends stay off the matching path. Reports for the same session keep
// their enqueue order. A full queue drops the report with a warning.
func (g *Gateway) sendOrderReport(snap *model.Order, clOrdID, origClOrdID string, sessionID quickfix.SessionID, lastQty, lastPx decimal.Decimal, fromTrade bool) {
	r := &outboundReport{
		snap:        *snap,
		clOrdID:     clOrdID,
		origClOrdID: origClOrdID,
		sessionID:   sessionID,
		lastQty:     lastQty,
		lastPx:      lastPx,
		fromTrade:   fromTrade,
	}
	select {
	case g.outbound <- r:
	default:
		zap.S().Warnw("outbound report queue full, dropping execution report", "clOrdID", clOrdID)
	}
}

func (g *Gateway) runReportSender() {
	defer g.wg.Done()
	for {
		select {
		case r := <-g.outbound:
			g.deliver(r)
		case <-g.stopCh:
			// drain whatever is already queued before shutting down
			for {
				select {
				case r := <-g.outbound:
					g.deliver(r)
				default:
					return
				}
			}
		}
	}
}

func (g *Gateway) deliver(r *outboundReport) {
	if err := g.send(&r.snap, r.clOrdID, r.origClOrdID, r.sessionID, r.lastQty, r.lastPx, r.fromTrade); err != nil {
		zap.S().Warnw("send execution report failed", "clOrdID", r.clOrdID, "err", err)
	}
}

func (g *Gateway) sendRejectReport(nos *NewOrderSingle) {
	snap := &model.Order{
		Pair:        nos.Symbol,
		OwnerID:     nos.Account,
		Price:       nos.Price,
		Quantity:    nos.OrderQty,
		Remaining:   nos.OrderQty,
		Status:      model.OrderStatusRejected,
		SubmittedAt: nos.TransactTime,
	}
	g.sendOrderReport(snap, nos.ClOrdID, "", nos.SessionID, decimal.Zero, decimal.Zero, false)
}
