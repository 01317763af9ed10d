package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/joripage/tokenex/pkg/engine/model"
)

// BalanceChecker is the external authorization gate consulted before matching
// begins. A returned error rejects the placement; the engine itself holds no
// balances.
type BalanceChecker interface {
	Check(ctx context.Context, ownerID, pair string, side model.OrderSide, quantity, price decimal.Decimal) error
}

type allowAllBalance struct{}

func (allowAllBalance) Check(ctx context.Context, ownerID, pair string, side model.OrderSide, quantity, price decimal.Decimal) error {
	return nil
}
