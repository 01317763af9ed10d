package engine

import (
	"errors"

	"github.com/joripage/tokenex/pkg/orderbook"
)

var (
	ErrInvalidOrder        = errors.New("invalid order")
	ErrUnknownTradingPair  = errors.New("unknown trading pair")
	ErrOrderNotFound       = errors.New("order not found")
	ErrNotOwner            = errors.New("requester does not own order")
	ErrAlreadyTerminal     = errors.New("order already in a terminal state")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrFillOrKillUnsatisfiable surfaces the book's FOK rejection unchanged.
	ErrFillOrKillUnsatisfiable = orderbook.ErrFillOrKillUnsatisfiable
)
