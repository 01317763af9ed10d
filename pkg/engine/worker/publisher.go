package worker

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/joripage/tokenex/pkg/engine/model"
)

const (
	StreamName    = "ENGINE"
	SubjectOrders = "ENGINE.orders"
	SubjectTrades = "ENGINE.trades"
)

// NATSPublisher forwards order and trade events into a JetStream stream for
// the persistence worker. Book snapshots are not persisted and are skipped.
type NATSPublisher struct {
	js nats.JetStreamContext
}

func NewNATSPublisher(js nats.JetStreamContext) (*NATSPublisher, error) {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{StreamName + ".*"},
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return nil, err
	}
	return &NATSPublisher{js: js}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, ev *model.Event) error {
	var subject string
	switch ev.Type {
	case model.EventOrderPlaced, model.EventOrderCancelled, model.EventOrderExpired:
		subject = SubjectOrders
	case model.EventTradeExecuted:
		subject = SubjectTrades
	default:
		return nil
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, b, nats.Context(ctx))
	return err
}
