package world

import (
	"context"
	"time"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingPos *Vec2

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case p := <-w.position:
			pendingPos = &p
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case <-ticker.C:
			// Only the latest position received during the tick is used.
			if pendingPos != nil {
				w.observerPos = pendingPos
				pendingPos = nil
			}
			_, _, _ = w.stepInternal()
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// StepOnce advances the world by a single tick using the same ordering
// semantics as Run. A nil pos keeps the last known observer position.
// It is primarily intended for deterministic replays, tests and embedders
// that drive the world from their own frame loop.
func (w *World) StepOnce(pos *Vec2) (tick uint64, digest string, err error) {
	if pos != nil {
		p := *pos
		w.observerPos = &p
	}
	return w.stepInternal()
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func trySend(ch chan []byte, b []byte) bool {
	select {
	case ch <- b:
		return true
	default:
		return false
	}
}
