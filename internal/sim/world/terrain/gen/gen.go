package gen

import (
	"tilestream.ai/internal/sim/world/terrain/noise"
	"tilestream.ai/internal/sim/world/terrain/tiles"
)

type Config struct {
	ChunkW int
	ChunkH int
	// Cutoff is the lowest field value that still counts as land.
	Cutoff float64
}

func (c *Config) applyDefaults() {
	if c.ChunkW <= 0 {
		c.ChunkW = 64
	}
	if c.ChunkH <= 0 {
		c.ChunkH = 64
	}
}

type Generator struct {
	field noise.Field
	cfg   Config
}

func New(field noise.Field, cfg Config) *Generator {
	cfg.applyDefaults()
	return &Generator{field: field, cfg: cfg}
}

func (g *Generator) Config() Config { return g.cfg }

// Result is one generated chunk before it is handed to the store.
type Result struct {
	Tiles       tiles.Set
	Provisional int
	Pruned      int
}

// Generate produces the occupied set for chunk (cx, cy). Pure: the same field
// and chunk id always give the same set.
func (g *Generator) Generate(cx, cy int) Result {
	provisional := g.Provisional(cx, cy)
	kept, removed := Prune(provisional)
	return Result{
		Tiles:       kept,
		Provisional: provisional.Len(),
		Pruned:      removed,
	}
}

// Provisional samples the field over the chunk and keeps every tile at or
// above the cutoff.
func (g *Generator) Provisional(cx, cy int) tiles.Set {
	out := tiles.Set{}
	ox := cx * g.cfg.ChunkW
	oy := cy * g.cfg.ChunkH
	for y := 0; y < g.cfg.ChunkH; y++ {
		for x := 0; x < g.cfg.ChunkW; x++ {
			if g.field.Sample(ox+x, oy+y) < g.cfg.Cutoff {
				continue
			}
			out.Add(tiles.Coord{X: x, Y: y})
		}
	}
	return out
}

// Prune drops single-edge tiles in one pass. Every tile is classified against
// the unmodified input, so a tile isolated only by this pass's removals stays.
// The input set is not modified.
func Prune(provisional tiles.Set) (tiles.Set, int) {
	var drop []tiles.Coord
	for c := range provisional {
		if tiles.Classify(c, provisional) == tiles.VariantInvalid {
			drop = append(drop, c)
		}
	}
	out := provisional.Clone()
	for _, c := range drop {
		delete(out, c)
	}
	return out, len(drop)
}
