package materialize

import (
	"bytes"
	"log"
	"strings"
	"testing"

	chunkspkg "tilestream.ai/internal/sim/world/feature/observer/chunks"
	"tilestream.ai/internal/sim/world/terrain/store"
	"tilestream.ai/internal/sim/world/terrain/tiles"
)

var grid = chunkspkg.Grid{TileW: 50, TileH: 50, ChunkW: 64, ChunkH: 64}

func block2x2() tiles.Set {
	return tiles.NewSet(
		tiles.Coord{X: 0, Y: 0}, tiles.Coord{X: 1, Y: 0},
		tiles.Coord{X: 0, Y: 1}, tiles.Coord{X: 1, Y: 1},
	)
}

func TestRenderCornersAndPositions(t *testing.T) {
	s := store.NewChunkStore(1)
	ch, _ := s.Add(store.ChunkKey{CX: 0, CY: 0}, block2x2(), 0)
	b := Render(grid, ch)
	want := []Placement{
		{X: 0, Y: 0, Kind: tiles.KindCorner4},
		{X: 50, Y: 0, Kind: tiles.KindCorner3},
		{X: 0, Y: 50, Kind: tiles.KindCorner1},
		{X: 50, Y: 50, Kind: tiles.KindCorner2},
	}
	if len(b.Placements) != len(want) {
		t.Fatalf("placements=%d want %d", len(b.Placements), len(want))
	}
	for i := range want {
		if b.Placements[i] != want[i] {
			t.Fatalf("placement %d: got %+v want %+v", i, b.Placements[i], want[i])
		}
	}
	if ch.Materialized() {
		t.Fatalf("Render must not mark chunks")
	}
}

func TestRunUnknownFallsBackToGrassAndLogsOnce(t *testing.T) {
	s := store.NewChunkStore(1)
	_, _ = s.Add(store.ChunkKey{CX: 1, CY: -1}, tiles.NewSet(tiles.Coord{X: 1, Y: 1}, tiles.Coord{X: 2, Y: 1}), 0)
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	var batches []Batch
	st, err := Run(s, grid, logger, func(b Batch) { batches = append(batches, b) })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.Unknown != 2 || st.Placements != 2 || st.Chunks != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	first := batches[0].Placements[0]
	if first.Kind != tiles.KindGrass || first.X != 3250 || first.Y != -3150 {
		t.Fatalf("unexpected placement: %+v", first)
	}
	if n := strings.Count(buf.String(), "\n"); n != 1 {
		t.Fatalf("expected one log line for the chunk, got %d: %q", n, buf.String())
	}
}

func TestRunMaterializesOnceInInsertionOrder(t *testing.T) {
	s := store.NewChunkStore(1)
	keys := []store.ChunkKey{{CX: 3, CY: 3}, {CX: -1, CY: 0}, {CX: 0, CY: 0}}
	for _, k := range keys {
		_, _ = s.Add(k, block2x2(), 0)
	}
	var seen []store.ChunkKey
	emit := func(b Batch) { seen = append(seen, b.Chunk) }
	if _, err := Run(s, grid, nil, emit); err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, k := range keys {
		if seen[i] != k {
			t.Fatalf("batch %d: got %+v want %+v", i, seen[i], k)
		}
	}
	st, err := Run(s, grid, nil, emit)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if st.Chunks != 0 || len(seen) != 3 {
		t.Fatalf("second run emitted %d chunks", st.Chunks)
	}

	_, _ = s.Add(store.ChunkKey{CX: 9, CY: 9}, tiles.Set{}, 1)
	st, _ = Run(s, grid, nil, emit)
	if st.Chunks != 1 || st.Placements != 0 || seen[3] != (store.ChunkKey{CX: 9, CY: 9}) {
		t.Fatalf("new empty chunk should be materialized once: %+v", st)
	}
	if s.MaterializedCount() != 4 {
		t.Fatalf("materialized=%d want 4", s.MaterializedCount())
	}
}
