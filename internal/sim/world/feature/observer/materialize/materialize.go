package materialize

import (
	"log"

	chunkspkg "tilestream.ai/internal/sim/world/feature/observer/chunks"
	"tilestream.ai/internal/sim/world/terrain/store"
	"tilestream.ai/internal/sim/world/terrain/tiles"
)

// Placement is one tile handed to the renderer: a world position and a kind.
type Placement struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Kind string  `json:"kind"`
}

// Batch is everything emitted for one chunk.
type Batch struct {
	Chunk      store.ChunkKey
	Placements []Placement
	Unknown    int
}

type Stats struct {
	Chunks     int
	Placements int
	Unknown    int
}

// Render derives the placements for a chunk without touching its
// materialized flag. Tiles are visited in Y then X order.
func Render(grid chunkspkg.Grid, ch *store.Chunk) Batch {
	b := Batch{Chunk: ch.Key}
	key := chunkspkg.Key{CX: ch.Key.CX, CY: ch.Key.CY}
	coords := ch.Coords()
	b.Placements = make([]Placement, 0, len(coords))
	for _, c := range coords {
		v := ch.Classify(c)
		if v == tiles.VariantUnknown {
			b.Unknown++
		}
		x, y := grid.TileOrigin(key, c.X, c.Y)
		b.Placements = append(b.Placements, Placement{X: x, Y: y, Kind: tiles.Kind(v)})
	}
	return b
}

// Run emits one batch per unmaterialized chunk, in insertion order, and flags
// each chunk materialized right after its batch is emitted. A chunk is never
// emitted twice. logger may be nil.
func Run(s *store.ChunkStore, grid chunkspkg.Grid, logger *log.Logger, emit func(Batch)) (Stats, error) {
	var st Stats
	for _, ch := range s.Unmaterialized() {
		b := Render(grid, ch)
		if b.Unknown > 0 && logger != nil {
			logger.Printf("chunk (%d,%d): %d tiles with unknown shape rendered as %s", ch.Key.CX, ch.Key.CY, b.Unknown, tiles.KindGrass)
		}
		if emit != nil {
			emit(b)
		}
		if err := s.MarkMaterialized(ch.Key); err != nil {
			return st, err
		}
		st.Chunks++
		st.Placements += len(b.Placements)
		st.Unknown += b.Unknown
	}
	return st, nil
}
