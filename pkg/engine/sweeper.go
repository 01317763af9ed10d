package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/joripage/tokenex/pkg/engine/model"
)

func (e *Engine) runSweeper(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if n := e.Sweep(now); n > 0 {
				zap.S().Infow("expired orders swept", "count", n)
			}
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		}
	}
}

// Sweep expires every resting or parked order whose ExpireAt has elapsed and
// returns how many were removed. It runs on the sweeper's interval but can be
// driven directly with an explicit clock.
func (e *Engine) Sweep(now time.Time) int {
	total := 0
	for _, ps := range e.pairs {
		ps.mu.Lock()
		expired := ps.book.RemoveExpired(now)

		snaps := make([]*model.Order, 0, len(expired))
		for _, o := range expired {
			if rec, ok := e.loadRecord(o.ID); ok {
				snap := rec.snapshot(now)
				e.ledger.PutOrder(snap)
				snaps = append(snaps, snap)
				e.finalize(rec)
			}
		}

		var bookEv *model.Event
		if len(expired) > 0 {
			bookEv = e.newEvent(model.EventOrderBookChanged, ps.cfg.ID, now)
			bookEv.Book = toBookSnapshot(ps.book.Depth(eventBookDepth), now)
		}
		ps.mu.Unlock()

		for _, snap := range snaps {
			ev := e.newEvent(model.EventOrderExpired, snap.Pair, now)
			ev.Order = snap
			e.emit(ev)
		}
		if bookEv != nil {
			e.emit(bookEv)
		}
		total += len(expired)
	}
	return total
}
