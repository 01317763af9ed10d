package fixgw

import (
	"fmt"

	"github.com/quickfixgo/enum"

	"github.com/joripage/tokenex/pkg/engine/model"
)

var ordStatusMapping = map[model.OrderStatus]enum.OrdStatus{
	model.OrderStatusPending:         enum.OrdStatus_NEW,
	model.OrderStatusPartiallyFilled: enum.OrdStatus_PARTIALLY_FILLED,
	model.OrderStatusFilled:          enum.OrdStatus_FILLED,
	model.OrderStatusCancelled:       enum.OrdStatus_CANCELED,
	model.OrderStatusExpired:         enum.OrdStatus_EXPIRED,
	model.OrderStatusRejected:        enum.OrdStatus_REJECTED,
}

var sideMapping = map[model.OrderSide]enum.Side{
	model.OrderSideBuy:  enum.Side_BUY,
	model.OrderSideSell: enum.Side_SELL,
}

func sideFromFIX(s enum.Side) (model.OrderSide, error) {
	switch s {
	case enum.Side_BUY:
		return model.OrderSideBuy, nil
	case enum.Side_SELL:
		return model.OrderSideSell, nil
	}
	return "", fmt.Errorf("unsupported side %q", s)
}

func kindFromFIX(t enum.OrdType) (model.OrderKind, error) {
	switch t {
	case enum.OrdType_LIMIT:
		return model.OrderKindLimit, nil
	case enum.OrdType_MARKET:
		return model.OrderKindMarket, nil
	case enum.OrdType_STOP_LIMIT:
		return model.OrderKindStopLimit, nil
	}
	return "", fmt.Errorf("unsupported order type %q", t)
}

func timeInForceFromFIX(t enum.TimeInForce) (model.OrderTimeInForce, error) {
	switch t {
	case enum.TimeInForce_DAY, "":
		// FIX treats an absent TimeInForce as DAY
		return model.OrderTimeInForceDAY, nil
	case enum.TimeInForce_GOOD_TILL_CANCEL:
		return model.OrderTimeInForceGTC, nil
	case enum.TimeInForce_IMMEDIATE_OR_CANCEL:
		return model.OrderTimeInForceIOC, nil
	case enum.TimeInForce_FILL_OR_KILL:
		return model.OrderTimeInForceFOK, nil
	}
	return "", fmt.Errorf("unsupported time in force %q", t)
}

func execTypeForStatus(s model.OrderStatus, fromTrade bool) enum.ExecType {
	if fromTrade {
		return enum.ExecType_TRADE
	}
	switch s {
	case model.OrderStatusCancelled:
		return enum.ExecType_CANCELED
	case model.OrderStatusExpired:
		return enum.ExecType_EXPIRED
	case model.OrderStatusRejected:
		return enum.ExecType_REJECTED
	case model.OrderStatusFilled, model.OrderStatusPartiallyFilled:
		return enum.ExecType_TRADE
	}
	return enum.ExecType_NEW
}
