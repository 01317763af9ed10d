package worker

import (
	"context"
	"encoding/json"
	"errors"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/joripage/tokenex/pkg/engine/model"
	"github.com/joripage/tokenex/pkg/engine/repo"
)

const fetchBatch = 10

// Worker drains the engine's event stream from JetStream into Postgres. The
// engine stays in memory; this is the durable trail of orders and trades.
type Worker struct {
	order repo.IOrder
	trade repo.ITrade
}

func NewWorker(repo repo.IRepo) *Worker {
	return &Worker{
		order: repo.Order(),
		trade: repo.Trade(),
	}
}

func (w *Worker) StartConsumer(ctx context.Context, js nats.JetStreamContext, subject, durable string) error {
	cons, err := js.PullSubscribe(subject, durable)
	if err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msgs, err := cons.Fetch(fetchBatch, nats.Context(ctx))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			if !errors.Is(err, nats.ErrTimeout) {
				zap.S().Warnw("fetch error", "subject", subject, "err", err)
			}
			continue
		}

		for _, msg := range msgs {
			var ev model.Event
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				zap.S().Warnw("unmarshal error, dropping message", "err", err)
				_ = msg.Ack()
				continue
			}
			if err := w.handleEvent(ctx, &ev); err != nil {
				// leave unacked so JetStream redelivers
				zap.S().Warnw("handle event error", "type", ev.Type, "err", err)
				continue
			}
			_ = msg.Ack()
		}
	}
}

func (w *Worker) handleEvent(ctx context.Context, ev *model.Event) error {
	if ev.Trade != nil {
		if _, err := w.trade.Create(ctx, ev.Trade); err != nil {
			return err
		}
	}
	if ev.Order != nil {
		if _, err := w.order.Upsert(ctx, ev.Order); err != nil {
			return err
		}
	}
	return nil
}
