package riskrule

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/joripage/tokenex/pkg/engine/model"
)

func testPair() *model.Pair {
	return &model.Pair{
		ID:           "TKNA/USD",
		TickSize:     decimal.RequireFromString("0.05"),
		MaxOrderSize: decimal.NewFromInt(1000),
		PriceFloor:   decimal.NewFromInt(1),
		PriceCeiling: decimal.NewFromInt(10000),
	}
}

func limitReq(price, qty string) *model.PlaceOrderRequest {
	return &model.PlaceOrderRequest{
		Pair:     "TKNA/USD",
		Side:     model.OrderSideBuy,
		Kind:     model.OrderKindLimit,
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
}

func TestTickSizeRule(t *testing.T) {
	r := NewTickSizeRule()

	if err := r.Check(limitReq("100.05", "1"), testPair()); err != nil {
		t.Errorf("aligned price rejected: %v", err)
	}
	if err := r.Check(limitReq("100.07", "1"), testPair()); err == nil {
		t.Errorf("misaligned price accepted")
	}

	market := limitReq("100.07", "1")
	market.Kind = model.OrderKindMarket
	if err := r.Check(market, testPair()); err != nil {
		t.Errorf("market order should skip tick check: %v", err)
	}
}

func TestPriceBandRule(t *testing.T) {
	r := NewPriceBandRule()

	if err := r.Check(limitReq("0.5", "1"), testPair()); err == nil {
		t.Errorf("price below floor accepted")
	}
	if err := r.Check(limitReq("20000", "1"), testPair()); err == nil {
		t.Errorf("price above ceiling accepted")
	}
	if err := r.Check(limitReq("100", "1"), testPair()); err != nil {
		t.Errorf("in-band price rejected: %v", err)
	}
}

func TestMaxOrderSizeRule(t *testing.T) {
	r := NewMaxOrderSizeRule()

	if err := r.Check(limitReq("100", "1001"), testPair()); err == nil {
		t.Errorf("oversize order accepted")
	}
	if err := r.Check(limitReq("100", "1000"), testPair()); err != nil {
		t.Errorf("at-limit order rejected: %v", err)
	}
}
