package fixgw

import (
	"sync"

	"github.com/google/uuid"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"

	"github.com/joripage/tokenex/pkg/engine/model"
)

const (
	pxScale  int32 = 2
	qtyScale int32 = 4
)

// MessagePool recycles quickfix messages across execution reports.
type MessagePool struct {
	pool sync.Pool
}

func NewMessagePool() *MessagePool {
	return &MessagePool{
		pool: sync.Pool{
			New: func() interface{} {
				m := quickfix.NewMessage()
				resetMessage(m)
				return m
			},
		},
	}
}

// Get returns a reset message from the pool.
func (mp *MessagePool) Get() *quickfix.Message {
	m := mp.pool.Get().(*quickfix.Message)
	resetMessage(m)
	return m
}

// Put resets the message before returning it to the pool.
func (mp *MessagePool) Put(m *quickfix.Message) {
	resetMessage(m)
	mp.pool.Put(m)
}

func resetMessage(m *quickfix.Message) {
	m.Header.Init()
	m.Body.Init()
	m.Trailer.Init()
	m.Header.Clear()
	m.Body.Clear()
	m.Trailer.Clear()
}

var execReportPool = NewMessagePool()

func sendExecutionReport(snap *model.Order, clOrdID, origClOrdID string, sessionID quickfix.SessionID, lastQty, lastPx decimal.Decimal, fromTrade bool) error {
	msg := execReportPool.Get()
	execReportMsg := executionreport.FromMessage(msg)

	cumQty := snap.Quantity.Sub(snap.Remaining)
	leavesQty := snap.Remaining
	if snap.IsTerminal() {
		leavesQty = decimal.Zero
	}

	execReportMsg.SetMsgType(enum.MsgType_EXECUTION_REPORT)
	execReportMsg.SetOrderID(snap.ID)
	execReportMsg.SetExecID(uuid.NewString())
	execReportMsg.SetExecType(execTypeForStatus(snap.Status, fromTrade))
	execReportMsg.SetOrdStatus(ordStatusMapping[snap.Status])
	execReportMsg.SetSymbol(snap.Pair)
	execReportMsg.SetSide(sideMapping[snap.Side])
	execReportMsg.SetLeavesQty(leavesQty, qtyScale)
	execReportMsg.SetCumQty(cumQty, qtyScale)
	execReportMsg.SetAvgPx(lastPx, pxScale)

	execReportMsg.SetClOrdID(clOrdID)
	if origClOrdID != "" {
		execReportMsg.SetOrigClOrdID(origClOrdID)
	}
	execReportMsg.SetAccount(snap.OwnerID)
	execReportMsg.SetOrderQty(snap.Quantity, qtyScale)
	if !snap.Price.IsZero() {
		execReportMsg.SetPrice(snap.Price, pxScale)
	}
	if !snap.StopPrice.IsZero() {
		execReportMsg.SetStopPx(snap.StopPrice, pxScale)
	}
	execReportMsg.SetTransactTime(snap.UpdatedAt)
	if fromTrade {
		execReportMsg.SetLastQty(lastQty, qtyScale)
		execReportMsg.SetLastPx(lastPx, pxScale)
	}

	err := quickfix.SendToTarget(execReportMsg, sessionID)

	execReportPool.Put(msg)
	return err
}
