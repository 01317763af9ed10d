package riskrule

import (
	"fmt"

	"github.com/joripage/tokenex/pkg/engine/model"
)

// TickSizeRule rejects limit prices that are not a whole multiple of the
// pair's tick size.
type TickSizeRule struct{}

func NewTickSizeRule() *TickSizeRule {
	return &TickSizeRule{}
}

func (r *TickSizeRule) Check(req *model.PlaceOrderRequest, pair *model.Pair) error {
	if req.Kind == model.OrderKindMarket {
		return nil
	}
	if pair.TickSize.IsZero() {
		return nil
	}
	if !req.Price.Mod(pair.TickSize).IsZero() {
		return fmt.Errorf("price %s is not a multiple of tick size %s", req.Price, pair.TickSize)
	}
	return nil
}
