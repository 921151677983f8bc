package world

import (
	"math/rand"

	"tilestream.ai/internal/sim/tuning"
	"tilestream.ai/internal/sim/world/terrain/noise"
)

// Seeds drawn for new worlds fall in [SeedMin, SeedMax).
const (
	SeedMin = 10000
	SeedMax = 99999
)

// RandomSeed draws a world seed uniformly from [SeedMin, SeedMax).
func RandomSeed() uint32 {
	return uint32(SeedMin + rand.Intn(SeedMax-SeedMin))
}

type WorldConfig struct {
	TickRateHz int
	Seed       uint32

	// Tiles per chunk side and world units per tile side.
	ChunkW int
	ChunkH int
	TileW  int
	TileH  int

	RenderDistance      int
	StartingChunkRadius int

	Noise noise.Params
	// Cutoff is the lowest noise value that counts as land. Zero selects the
	// default.
	Cutoff float64
}

func (c *WorldConfig) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 5
	}
	if c.ChunkW <= 0 {
		c.ChunkW = 64
	}
	if c.ChunkH <= 0 {
		c.ChunkH = 64
	}
	if c.TileW <= 0 {
		c.TileW = 50
	}
	if c.TileH <= 0 {
		c.TileH = 50
	}
	if c.RenderDistance <= 0 {
		c.RenderDistance = 2
	}
	if c.StartingChunkRadius <= 0 {
		c.StartingChunkRadius = 2
	}
	if c.Cutoff == 0 {
		c.Cutoff = 0.10
	}
}

// ConfigFromTuning builds the world config for a loaded tuning file.
func ConfigFromTuning(t tuning.Tuning, seed uint32) WorldConfig {
	c := WorldConfig{
		TickRateHz:          t.TickRateHz,
		Seed:                seed,
		RenderDistance:      t.RenderDistance,
		StartingChunkRadius: t.StartingChunkRadius,
		Cutoff:              t.Noise.Cutoff,
		Noise: noise.Params{
			Backend: t.Noise.Backend,
			Scale:   t.Noise.Scale,
			Offset:  t.Noise.Offset,
			Alpha:   t.Noise.Alpha,
			Beta:    t.Noise.Beta,
			Octaves: t.Noise.Octaves,
		},
	}
	if len(t.ChunkSize) == 2 {
		c.ChunkW, c.ChunkH = t.ChunkSize[0], t.ChunkSize[1]
	}
	if len(t.TileSize) == 2 {
		c.TileW, c.TileH = t.TileSize[0], t.TileSize[1]
	}
	return c
}
