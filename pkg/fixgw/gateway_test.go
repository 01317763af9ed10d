package fixgw

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"

	"github.com/joripage/tokenex/pkg/engine/model"
)

func TestOutboundReportsFlowThroughSender(t *testing.T) {
	g := NewGateway(&GatewayConfig{}, nil)
	defer g.Stop()

	var mu sync.Mutex
	var got []string
	g.send = func(snap *model.Order, clOrdID, origClOrdID string, sessionID quickfix.SessionID, lastQty, lastPx decimal.Decimal, fromTrade bool) error {
		mu.Lock()
		got = append(got, clOrdID)
		mu.Unlock()
		return nil
	}

	const n = 100
	for i := 0; i < n; i++ {
		snap := &model.Order{ID: fmt.Sprintf("order-%d", i), Status: model.OrderStatusPending}
		g.sendOrderReport(snap, fmt.Sprintf("cl-%d", i), "", quickfix.SessionID{}, decimal.Zero, decimal.Zero, false)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		sent := len(got)
		mu.Unlock()
		if sent == n {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d reports delivered", sent, n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// a single sender preserves enqueue order
	for i, clOrdID := range got {
		if want := fmt.Sprintf("cl-%d", i); clOrdID != want {
			t.Fatalf("report %d delivered out of order: got %s, want %s", i, clOrdID, want)
		}
	}
}

func TestOutboundQueueDropsWhenFull(t *testing.T) {
	g := &Gateway{
		outbound: make(chan *outboundReport, 1),
		stopCh:   make(chan struct{}),
		send:     sendExecutionReport,
	}

	snap := &model.Order{ID: "order-1", Status: model.OrderStatusPending}
	done := make(chan struct{})
	go func() {
		// no sender goroutine is draining, so the second report must be
		// dropped rather than block the caller
		g.sendOrderReport(snap, "cl-1", "", quickfix.SessionID{}, decimal.Zero, decimal.Zero, false)
		g.sendOrderReport(snap, "cl-2", "", quickfix.SessionID{}, decimal.Zero, decimal.Zero, false)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sendOrderReport blocked on a full queue")
	}
	if len(g.outbound) != 1 {
		t.Fatalf("queue holds %d reports, want 1", len(g.outbound))
	}
}
