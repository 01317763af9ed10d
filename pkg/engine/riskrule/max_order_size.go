package riskrule

import (
	"fmt"

	"github.com/joripage/tokenex/pkg/engine/model"
)

// MaxOrderSizeRule caps the requested quantity per order.
type MaxOrderSizeRule struct{}

func NewMaxOrderSizeRule() *MaxOrderSizeRule {
	return &MaxOrderSizeRule{}
}

func (r *MaxOrderSizeRule) Check(req *model.PlaceOrderRequest, pair *model.Pair) error {
	if pair.MaxOrderSize.IsZero() {
		return nil
	}
	if req.Quantity.GreaterThan(pair.MaxOrderSize) {
		return fmt.Errorf("quantity %s above max order size %s", req.Quantity, pair.MaxOrderSize)
	}
	return nil
}
