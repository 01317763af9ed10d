package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joripage/tokenex/pkg/orderbook"
)

const (
	numOrders = 1_000_000
	minPrice  = 100
	maxPrice  = 200
	minQty    = 1
	maxQty    = 100
)

func randomOrder(id int, now time.Time) *orderbook.Order {
	side := orderbook.BUY
	if rand.Intn(2) == 0 {
		side = orderbook.SELL
	}
	price := decimal.NewFromFloat(minPrice + rand.Float64()*(maxPrice-minPrice)).Round(2)
	qty := decimal.NewFromInt(int64(rand.Intn(maxQty-minQty+1) + minQty))

	return &orderbook.Order{
		ID:          fmt.Sprintf("ORD-%06d", id),
		Pair:        "TOKA-USD",
		Side:        side,
		Kind:        orderbook.LIMIT,
		TimeInForce: orderbook.GTC,
		Price:       price,
		Quantity:    qty,
		Remaining:   qty,
		SubmittedAt: now,
	}
}

func main() {
	book := orderbook.NewBook("TOKA-USD")

	totalMatches := 0
	totalQty := decimal.Zero

	start := time.Now()
	for i := 0; i < numOrders; i++ {
		order := randomOrder(i+1, start)
		fills, err := book.Submit(order)
		if err != nil {
			continue
		}
		for _, f := range fills {
			totalMatches++
			totalQty = totalQty.Add(f.Quantity)
		}
	}
	elapsed := time.Since(start)

	fmt.Println("--------")
	fmt.Printf("Total Orders     : %d\n", numOrders)
	fmt.Printf("Total Matches    : %d\n", totalMatches)
	fmt.Printf("Total Matched Qty: %s\n", totalQty)
	fmt.Printf("Time Taken       : %s\n", elapsed)
	fmt.Printf("Orders/sec       : %.0f\n", float64(numOrders)/elapsed.Seconds())
}
