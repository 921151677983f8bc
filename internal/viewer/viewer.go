// Package viewer holds the window-independent parts of the desktop viewer:
// observer movement, the camera transform and the placements collected
// from the world's sink.
package viewer

import (
	"sort"

	"tilestream.ai/internal/sim/world"
)

const (
	WalkSpeed   = 100.0 // world units per second
	SprintScale = 5.0
)

// Input is the movement state sampled once per frame.
type Input struct {
	Up, Down, Left, Right bool
	Sprint                bool
}

// Move returns the observer position after dt seconds of input. Diagonal
// movement is not normalised. Y grows downward, matching tile rows.
func Move(p world.Vec2, in Input, dt float64) world.Vec2 {
	speed := WalkSpeed
	if in.Sprint {
		speed *= SprintScale
	}
	step := speed * dt
	if in.Left {
		p.X -= step
	}
	if in.Right {
		p.X += step
	}
	if in.Up {
		p.Y -= step
	}
	if in.Down {
		p.Y += step
	}
	return p
}

// Camera maps world units to screen pixels with the observer at the centre.
type Camera struct {
	Center  world.Vec2
	Zoom    float64 // pixels per world unit
	ScreenW int
	ScreenH int
}

func (c Camera) ToScreen(x, y float64) (float32, float32) {
	sx := (x-c.Center.X)*c.Zoom + float64(c.ScreenW)/2
	sy := (y-c.Center.Y)*c.Zoom + float64(c.ScreenH)/2
	return float32(sx), float32(sy)
}

// Visible reports whether the world rectangle [x, x+w) x [y, y+h) touches
// the screen.
func (c Camera) Visible(x, y, w, h float64) bool {
	x0, y0 := c.ToScreen(x, y)
	x1, y1 := c.ToScreen(x+w, y+h)
	return x1 >= 0 && y1 >= 0 && x0 <= float32(c.ScreenW) && y0 <= float32(c.ScreenH)
}

func (c Camera) ZoomBy(f, min, max float64) Camera {
	z := c.Zoom * f
	if z < min {
		z = min
	}
	if z > max {
		z = max
	}
	c.Zoom = z
	return c
}

// Scene keeps every placement batch the world emitted, keyed by chunk. A
// repeated batch for the same chunk replaces the earlier one.
type Scene struct {
	batches map[world.ChunkKey]world.PlacementBatch
	order   []world.ChunkKey
	unknown int
}

func NewScene() *Scene {
	return &Scene{batches: make(map[world.ChunkKey]world.PlacementBatch)}
}

// Add is meant to be installed with World.SetPlacementSink.
func (s *Scene) Add(b world.PlacementBatch) {
	if _, ok := s.batches[b.Chunk]; !ok {
		s.order = append(s.order, b.Chunk)
		s.unknown += b.Unknown
	}
	s.batches[b.Chunk] = b
}

func (s *Scene) Chunks() int  { return len(s.order) }
func (s *Scene) Unknown() int { return s.unknown }

func (s *Scene) Placements() int {
	n := 0
	for _, b := range s.batches {
		n += len(b.Placements)
	}
	return n
}

// Each visits batches in arrival order.
func (s *Scene) Each(fn func(world.PlacementBatch)) {
	for _, k := range s.order {
		fn(s.batches[k])
	}
}

// KindCounts is used by the HUD.
func (s *Scene) KindCounts() []KindCount {
	m := map[string]int{}
	for _, b := range s.batches {
		for _, p := range b.Placements {
			m[p.Kind]++
		}
	}
	out := make([]KindCount, 0, len(m))
	for k, n := range m {
		out = append(out, KindCount{Kind: k, N: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

type KindCount struct {
	Kind string
	N    int
}
