package riskrule

import (
	"github.com/joripage/tokenex/pkg/engine/model"
)

// RiskRule is one pre-trade check evaluated before an order reaches the book.
// A returned error rejects the order as invalid.
type RiskRule interface {
	Check(req *model.PlaceOrderRequest, pair *model.Pair) error
}
