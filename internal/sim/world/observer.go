package world

import (
	materializepkg "tilestream.ai/internal/sim/world/feature/observer/materialize"
	streampkg "tilestream.ai/internal/sim/world/feature/observer/stream"
)

type observerClient struct {
	id      string
	tickOut chan []byte
	dataOut chan []byte

	// needsResync forces a resend of every materialized chunk (e.g. after a
	// dropped PLACEMENTS message).
	needsResync bool
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if w == nil || req.SessionID == "" || req.TickOut == nil || req.DataOut == nil {
		return
	}
	// Replace existing session id if any.
	if old := w.observers[req.SessionID]; old != nil {
		close(old.tickOut)
		close(old.dataOut)
	}
	c := &observerClient{
		id:          req.SessionID,
		tickOut:     req.TickOut,
		dataOut:     req.DataOut,
		needsResync: req.Resync,
	}
	w.observers[req.SessionID] = c
	if c.needsResync {
		w.resyncObserver(c)
	}
}

func (w *World) handleObserverLeave(sessionID string) {
	if sessionID == "" {
		return
	}
	c := w.observers[sessionID]
	if c == nil {
		return
	}
	delete(w.observers, sessionID)
	close(c.tickOut)
	close(c.dataOut)
}

// resyncObserver sends placements for every already materialized chunk. It is
// a read-only render and never touches the materialized flags.
func (w *World) resyncObserver(c *observerClient) {
	tick := w.tick.Load()
	for _, ch := range w.chunks.Chunks() {
		if !ch.Materialized() {
			continue
		}
		b, err := streampkg.BuildPlacementsMsg(tick, materializepkg.Render(w.grid, ch), true)
		if err != nil {
			continue
		}
		if !trySend(c.dataOut, b) {
			c.needsResync = true
			return
		}
	}
	c.needsResync = false
}

func (w *World) emitBatch(tick uint64, b PlacementBatch) {
	if w.placementSink != nil {
		w.placementSink(b)
	}
	if len(w.observers) == 0 {
		return
	}
	msg, err := streampkg.BuildPlacementsMsg(tick, b, false)
	if err != nil {
		w.log.Printf("tick %d: encode placements (%d,%d): %v", tick, b.Chunk.CX, b.Chunk.CY, err)
		return
	}
	for _, c := range w.observers {
		if c.needsResync {
			continue
		}
		if !trySend(c.dataOut, msg) {
			c.needsResync = true
		}
	}
}

func (w *World) broadcastTick(entry TickLogEntry, center *ChunkKey, generated []streampkg.ChunkKey) {
	if len(w.observers) == 0 {
		return
	}
	for _, c := range w.observers {
		if c.needsResync {
			w.resyncObserver(c)
		}
	}
	s := streampkg.TickSummary{
		Tick:         entry.Tick,
		Generated:    generated,
		Chunks:       entry.Chunks,
		Materialized: w.chunks.MaterializedCount(),
		Error:        entry.Error,
		Digest:       entry.Digest,
	}
	if entry.Observer != nil {
		s.Observer = &[2]float64{entry.Observer.X, entry.Observer.Y}
	}
	if center != nil {
		k := toChunksKey(*center)
		s.Center = &k
	}
	b, err := streampkg.BuildTickMsg(s)
	if err != nil {
		return
	}
	for _, c := range w.observers {
		sendLatest(c.tickOut, b)
	}
}
