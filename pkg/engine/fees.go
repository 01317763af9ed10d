package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type FeeRole string

const (
	FeeRoleMaker FeeRole = "MAKER"
	FeeRoleTaker FeeRole = "TAKER"
)

// FeeSchedule supplies the fee for one trade as a pure function of notional
// and role. Schedules live outside the matching core; the engine only rounds
// the returned amount to the pair's quote precision.
type FeeSchedule interface {
	Fee(pair string, notional decimal.Decimal, role FeeRole) decimal.Decimal
}

// FixedFeeSchedule charges flat proportional rates. The taker rate must be at
// least the maker rate.
type FixedFeeSchedule struct {
	makerRate decimal.Decimal
	takerRate decimal.Decimal
}

func NewFixedFeeSchedule(makerRate, takerRate decimal.Decimal) (*FixedFeeSchedule, error) {
	if makerRate.IsNegative() || takerRate.IsNegative() {
		return nil, fmt.Errorf("fee rates must be non-negative, got maker=%s taker=%s", makerRate, takerRate)
	}
	if takerRate.LessThan(makerRate) {
		return nil, fmt.Errorf("taker rate %s must not be below maker rate %s", takerRate, makerRate)
	}
	return &FixedFeeSchedule{makerRate: makerRate, takerRate: takerRate}, nil
}

func (s *FixedFeeSchedule) Fee(pair string, notional decimal.Decimal, role FeeRole) decimal.Decimal {
	if role == FeeRoleMaker {
		return notional.Mul(s.makerRate)
	}
	return notional.Mul(s.takerRate)
}
