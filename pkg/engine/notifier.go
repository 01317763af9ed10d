package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joripage/tokenex/pkg/engine/model"
)

// Notifier receives the engine's event stream. Delivery is best effort and
// happens after the in-memory mutation commits; a failing notifier never
// rolls back a match.
type Notifier interface {
	Publish(ctx context.Context, ev *model.Event) error
}

// AddNotifier registers an additional notifier. Call before Start.
func (e *Engine) AddNotifier(n Notifier) {
	e.notifiers = append(e.notifiers, n)
}

func (e *Engine) newEvent(typ model.EventType, pair string, at time.Time) *model.Event {
	return &model.Event{
		ID:   uuid.NewString(),
		Type: typ,
		Pair: pair,
		At:   at,
	}
}

// emit queues events for dispatch, dropping on overflow rather than blocking
// the matching path.
func (e *Engine) emit(events ...*model.Event) {
	for _, ev := range events {
		select {
		case e.events <- ev:
		default:
			zap.S().Warnw("event buffer full, dropping event", "type", ev.Type, "pair", ev.Pair)
		}
	}
}

func (e *Engine) runDispatcher() {
	defer e.wg.Done()
	for {
		select {
		case ev := <-e.events:
			e.dispatch(ev)
		case <-e.stopCh:
			// drain what is already queued
			for {
				select {
				case ev := <-e.events:
					e.dispatch(ev)
				default:
					return
				}
			}
		}
	}
}

func (e *Engine) dispatch(ev *model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, n := range e.notifiers {
		if err := n.Publish(ctx, ev); err != nil {
			zap.S().Warnw("notifier publish failed", "type", ev.Type, "pair", ev.Pair, "err", err)
		}
	}
}
