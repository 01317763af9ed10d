package riskrule

import (
	"fmt"

	"github.com/joripage/tokenex/pkg/engine/model"
)

// PriceBandRule rejects limit prices outside the pair's configured floor and
// ceiling. Pairs without a band configured accept any price.
type PriceBandRule struct{}

func NewPriceBandRule() *PriceBandRule {
	return &PriceBandRule{}
}

func (r *PriceBandRule) Check(req *model.PlaceOrderRequest, pair *model.Pair) error {
	if req.Kind == model.OrderKindMarket {
		return nil
	}
	if !pair.PriceFloor.IsZero() && req.Price.LessThan(pair.PriceFloor) {
		return fmt.Errorf("price %s below floor %s", req.Price, pair.PriceFloor)
	}
	if !pair.PriceCeiling.IsZero() && req.Price.GreaterThan(pair.PriceCeiling) {
		return fmt.Errorf("price %s above ceiling %s", req.Price, pair.PriceCeiling)
	}
	return nil
}
