package fixgw

import (
	"testing"

	"github.com/quickfixgo/enum"

	"github.com/joripage/tokenex/pkg/engine/model"
)

func TestSideFromFIX(t *testing.T) {
	if s, err := sideFromFIX(enum.Side_BUY); err != nil || s != model.OrderSideBuy {
		t.Fatalf("buy: %v %v", s, err)
	}
	if s, err := sideFromFIX(enum.Side_SELL); err != nil || s != model.OrderSideSell {
		t.Fatalf("sell: %v %v", s, err)
	}
	if _, err := sideFromFIX(enum.Side_SELL_SHORT); err == nil {
		t.Fatal("sell short should be rejected")
	}
}

func TestKindFromFIX(t *testing.T) {
	cases := map[enum.OrdType]model.OrderKind{
		enum.OrdType_LIMIT:      model.OrderKindLimit,
		enum.OrdType_MARKET:     model.OrderKindMarket,
		enum.OrdType_STOP_LIMIT: model.OrderKindStopLimit,
	}
	for in, want := range cases {
		got, err := kindFromFIX(in)
		if err != nil || got != want {
			t.Errorf("kindFromFIX(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := kindFromFIX(enum.OrdType_STOP); err == nil {
		t.Error("plain stop should be rejected")
	}
}

func TestTimeInForceFromFIX(t *testing.T) {
	cases := map[enum.TimeInForce]model.OrderTimeInForce{
		enum.TimeInForce_DAY:                 model.OrderTimeInForceDAY,
		enum.TimeInForce_GOOD_TILL_CANCEL:    model.OrderTimeInForceGTC,
		enum.TimeInForce_IMMEDIATE_OR_CANCEL: model.OrderTimeInForceIOC,
		enum.TimeInForce_FILL_OR_KILL:        model.OrderTimeInForceFOK,
		"":                                   model.OrderTimeInForceDAY, // FIX default
	}
	for in, want := range cases {
		got, err := timeInForceFromFIX(in)
		if err != nil || got != want {
			t.Errorf("timeInForceFromFIX(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := timeInForceFromFIX(enum.TimeInForce_GOOD_TILL_DATE); err == nil {
		t.Error("GTD should be rejected")
	}
}

func TestExecTypeForStatus(t *testing.T) {
	if got := execTypeForStatus(model.OrderStatusPending, false); got != enum.ExecType_NEW {
		t.Errorf("pending = %v, want NEW", got)
	}
	if got := execTypeForStatus(model.OrderStatusPartiallyFilled, true); got != enum.ExecType_TRADE {
		t.Errorf("partial fill = %v, want TRADE", got)
	}
	if got := execTypeForStatus(model.OrderStatusCancelled, false); got != enum.ExecType_CANCELED {
		t.Errorf("cancelled = %v, want CANCELED", got)
	}
	if got := execTypeForStatus(model.OrderStatusExpired, false); got != enum.ExecType_EXPIRED {
		t.Errorf("expired = %v, want EXPIRED", got)
	}
	if got := execTypeForStatus(model.OrderStatusRejected, false); got != enum.ExecType_REJECTED {
		t.Errorf("rejected = %v, want REJECTED", got)
	}
}
