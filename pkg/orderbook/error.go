package orderbook

import "errors"

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrFillOrKillUnsatisfiable = errors.New("fill-or-kill order cannot be fully matched")
)
