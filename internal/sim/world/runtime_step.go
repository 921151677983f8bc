package world

import (
	"errors"
	"time"

	materializepkg "tilestream.ai/internal/sim/world/feature/observer/materialize"
	streampkg "tilestream.ai/internal/sim/world/feature/observer/stream"
)

func (w *World) stepInternal() (uint64, string, error) {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	entry := TickLogEntry{
		Tick:      nowTick,
		Seed:      w.cfg.Seed,
		Prefetch:  w.pendingPrefetch,
		Generated: w.pendingGenerated,
	}
	w.pendingPrefetch = nil
	w.pendingGenerated = nil

	// Stream controller: make sure the window around the observer exists.
	var tickErr error
	var center *ChunkKey
	var generated []streampkg.ChunkKey
	if w.observerPos == nil {
		tickErr = ErrNoObserver
		w.totals.noObserver++
	} else {
		pos := *w.observerPos
		entry.Observer = &pos
		c := w.ChunkOf(pos)
		center = &c
		res, err := w.ensureWindow(nowTick, c, w.cfg.RenderDistance)
		generated = res.Generated
		entry.Generated = append(entry.Generated, w.generatedRecords(res.Generated)...)
		w.totals.pruned += uint64(res.Pruned)
		if err != nil {
			tickErr = err
			w.totals.tickErrors++
			w.log.Printf("tick %d: stream: %v", nowTick, err)
		}
	}

	// Materializer: runs even without an observer so prefetched chunks render.
	st, err := materializepkg.Run(w.chunks, w.grid, w.log, func(b PlacementBatch) {
		w.emitBatch(nowTick, b)
	})
	if err != nil {
		w.totals.tickErrors++
		w.log.Printf("tick %d: materialize: %v", nowTick, err)
		if tickErr == nil || errors.Is(tickErr, ErrNoObserver) {
			tickErr = err
		}
	}
	w.totals.placements += uint64(st.Placements)
	w.totals.unknown += uint64(st.Unknown)
	entry.Placements = st.Placements
	entry.Unknown = st.Unknown

	digest := w.chunks.Digest()
	entry.Chunks = w.chunks.Len()
	entry.Digest = digest
	if tickErr != nil {
		entry.Error = tickErr.Error()
	}

	w.broadcastTick(entry, center, generated)

	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(entry); err != nil {
			w.log.Printf("tick %d: tick log: %v", nowTick, err)
		}
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	nextTick := w.tick.Add(1)
	w.publishMetrics(nextTick, digest, stepMS)

	return nowTick, digest, tickErr
}
