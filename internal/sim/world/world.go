package world

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	chunkspkg "tilestream.ai/internal/sim/world/feature/observer/chunks"
	streampkg "tilestream.ai/internal/sim/world/feature/observer/stream"
	"tilestream.ai/internal/sim/world/terrain/gen"
	"tilestream.ai/internal/sim/world/terrain/noise"
	"tilestream.ai/internal/sim/world/terrain/store"
	"tilestream.ai/internal/sim/world/terrain/tiles"
)

// World is a single-threaded authoritative terrain stream for one seed.
// All state must be accessed only from the world loop goroutine; before Run
// is started (or when driven through StepOnce) the caller's goroutine is the
// owner.
type World struct {
	cfg  WorldConfig
	log  *log.Logger
	grid Grid
	gen  *gen.Generator

	tick atomic.Uint64

	chunks *store.ChunkStore

	// Latest observer position; nil until the first position arrives.
	observerPos *Vec2
	observers   map[string]*observerClient

	position      chan Vec2
	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	stop          chan struct{}
	stopOnce      sync.Once

	// Prefetch calls and the chunks they generated, not yet attached to a
	// tick log entry.
	pendingPrefetch  []PrefetchRecord
	pendingGenerated []GeneratedChunk

	// Optional sinks (may be nil).
	tickLogger    TickLogger
	placementSink func(PlacementBatch)

	totals  counters
	metrics atomic.Value
}

func New(cfg WorldConfig, logger *log.Logger) (*World, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	field, err := noise.New(cfg.Seed, cfg.Noise)
	if err != nil {
		return nil, fmt.Errorf("noise field: %w", err)
	}
	w := &World{
		cfg: cfg,
		log: logger,
		grid: Grid{
			TileW:  cfg.TileW,
			TileH:  cfg.TileH,
			ChunkW: cfg.ChunkW,
			ChunkH: cfg.ChunkH,
		},
		gen: gen.New(field, gen.Config{
			ChunkW: cfg.ChunkW,
			ChunkH: cfg.ChunkH,
			Cutoff: cfg.Cutoff,
		}),
		chunks:        store.NewChunkStore(cfg.Seed),
		observers:     map[string]*observerClient{},
		position:      make(chan Vec2, 64),
		observerJoin:  make(chan ObserverJoinRequest, 64),
		observerLeave: make(chan string, 64),
		stop:          make(chan struct{}),
	}
	w.publishMetrics(0, w.chunks.Digest(), 0)
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger) { w.tickLogger = l }

// SetPlacementSink registers a callback invoked on the world loop goroutine
// with every batch the materializer emits.
func (w *World) SetPlacementSink(fn func(PlacementBatch)) { w.placementSink = fn }

func (w *World) Position() chan<- Vec2                    { return w.position }
func (w *World) ObserverJoin() chan<- ObserverJoinRequest { return w.observerJoin }
func (w *World) ObserverLeave() chan<- string             { return w.observerLeave }
func (w *World) CurrentTick() uint64                      { return w.tick.Load() }
func (w *World) Seed() uint32                             { return w.cfg.Seed }
func (w *World) Grid() Grid                               { return w.grid }
func (w *World) ChunkOf(p Vec2) ChunkKey                  { return toStoreKey(w.grid.ChunkOf(p.X, p.Y)) }
func (w *World) Config() WorldConfig                      { return w.cfg }
func (w *World) ChunkCount() int                          { return w.chunks.Len() }
func (w *World) MaterializedCount() int                   { return w.chunks.MaterializedCount() }
func (w *World) TickRateHz() int                          { return w.cfg.TickRateHz }
func (w *World) Chunk(k ChunkKey) *store.Chunk            { return w.chunks.Get(k) }
func (w *World) Digest() string                           { return w.chunks.Digest() }

// ChunkKeys lists chunk ids in generation order.
func (w *World) ChunkKeys() []ChunkKey {
	chs := w.chunks.Chunks()
	out := make([]ChunkKey, len(chs))
	for i, ch := range chs {
		out[i] = ch.Key
	}
	return out
}

// Prefetch generates the starting square around center using the starting
// chunk radius. It follows the same window and idempotency rules as
// observer streaming; it does not materialize. The generated chunks are
// reported in the next tick log entry. Returns the number of chunks
// generated.
func (w *World) Prefetch(center ChunkKey) (int, error) {
	radius := w.cfg.StartingChunkRadius
	res, err := w.ensureWindow(w.tick.Load(), center, radius)
	w.pendingPrefetch = append(w.pendingPrefetch, PrefetchRecord{CX: center.CX, CY: center.CY, Radius: radius})
	w.pendingGenerated = append(w.pendingGenerated, w.generatedRecords(res.Generated)...)
	w.totals.pruned += uint64(res.Pruned)
	return len(res.Generated), err
}

// IsLand reports whether the tile under world position (wx, wy) is occupied.
// Tiles in chunks that were never generated are not land.
func (w *World) IsLand(wx, wy float64) bool {
	k, lx, ly := w.grid.TileOf(wx, wy)
	ch := w.chunks.Get(toStoreKey(k))
	if ch == nil {
		return false
	}
	return ch.Has(tiles.Coord{X: lx, Y: ly})
}

func (w *World) ensureWindow(nowTick uint64, center ChunkKey, radius int) (streampkg.StepResult, error) {
	return streampkg.Step(streampkg.StepInput{
		NowTick: nowTick,
		Center:  toChunksKey(center),
		Radius:  radius,
	}, streampkg.StepDeps{
		Has:      func(k streampkg.ChunkKey) bool { return w.chunks.Has(toStoreKey(k)) },
		Generate: w.generateChunk,
		Append: func(k streampkg.ChunkKey, occupied tiles.Set, tick uint64) error {
			_, err := w.chunks.Add(toStoreKey(k), occupied, tick)
			return err
		},
	})
}

func (w *World) generateChunk(k streampkg.ChunkKey) (tiles.Set, int) {
	res := w.gen.Generate(k.CX, k.CY)
	return res.Tiles, res.Pruned
}

func (w *World) generatedRecords(keys []streampkg.ChunkKey) []GeneratedChunk {
	if len(keys) == 0 {
		return nil
	}
	out := make([]GeneratedChunk, 0, len(keys))
	for _, k := range keys {
		ch := w.chunks.Get(toStoreKey(k))
		if ch == nil {
			continue
		}
		d := ch.Digest()
		out = append(out, GeneratedChunk{
			CX:     k.CX,
			CY:     k.CY,
			Tiles:  ch.Len(),
			Digest: hex.EncodeToString(d[:]),
		})
	}
	return out
}

func toStoreKey(k chunkspkg.Key) ChunkKey  { return ChunkKey{CX: k.CX, CY: k.CY} }
func toChunksKey(k ChunkKey) chunkspkg.Key { return chunkspkg.Key{CX: k.CX, CY: k.CY} }
