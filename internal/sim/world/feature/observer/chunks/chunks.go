package chunks

import "tilestream.ai/internal/sim/world/logic/mathx"

type Key struct {
	CX int
	CY int
}

// Grid describes how world units map onto tiles and tiles onto chunks.
type Grid struct {
	TileW  int
	TileH  int
	ChunkW int
	ChunkH int
}

// ChunkOf returns the chunk containing world position (x, y). The position is
// floored onto the tile grid first, then the tile index is floor-divided by
// the chunk size, so negative coordinates round toward negative infinity.
func (g Grid) ChunkOf(x, y float64) Key {
	tx := mathx.CellOf(x, g.TileW)
	ty := mathx.CellOf(y, g.TileH)
	return Key{
		CX: mathx.FloorDiv(tx, g.ChunkW),
		CY: mathx.FloorDiv(ty, g.ChunkH),
	}
}

// TileOf returns the chunk and chunk-local tile under world position (x, y).
func (g Grid) TileOf(x, y float64) (Key, int, int) {
	tx := mathx.CellOf(x, g.TileW)
	ty := mathx.CellOf(y, g.TileH)
	k := Key{CX: mathx.FloorDiv(tx, g.ChunkW), CY: mathx.FloorDiv(ty, g.ChunkH)}
	return k, mathx.Mod(tx, g.ChunkW), mathx.Mod(ty, g.ChunkH)
}

// TileOrigin returns the world position of a chunk-local tile.
func (g Grid) TileOrigin(k Key, lx, ly int) (float64, float64) {
	wx := (k.CX*g.ChunkW + lx) * g.TileW
	wy := (k.CY*g.ChunkH + ly) * g.TileH
	return float64(wx), float64(wy)
}

// Window lists the chunk ids in [-radius, radius) on both axes around center,
// x-major. The range is half-open: the window is one chunk wider on the
// negative side. A non-positive radius yields no ids.
func Window(center Key, radius int) []Key {
	if radius <= 0 {
		return nil
	}
	out := make([]Key, 0, 4*radius*radius)
	for dx := -radius; dx < radius; dx++ {
		for dy := -radius; dy < radius; dy++ {
			out = append(out, Key{CX: center.CX + dx, CY: center.CY + dy})
		}
	}
	return out
}
