package stream

import (
	"fmt"

	chunkspkg "tilestream.ai/internal/sim/world/feature/observer/chunks"
	"tilestream.ai/internal/sim/world/terrain/tiles"
)

type ChunkKey = chunkspkg.Key

type StepInput struct {
	NowTick uint64
	Center  ChunkKey
	Radius  int
}

// StepDeps wires the controller to the world state and the generator. The
// controller owns neither.
type StepDeps struct {
	Has      func(k ChunkKey) bool
	Generate func(k ChunkKey) (tiles.Set, int)
	Append   func(k ChunkKey, occupied tiles.Set, tick uint64) error
}

type StepResult struct {
	Wanted    []ChunkKey
	Generated []ChunkKey
	Pruned    int
}

// Step makes sure every chunk in the window around in.Center exists. Ids that
// already exist are left untouched; nothing is ever removed. Calling Step
// twice with the same input generates nothing the second time.
func Step(in StepInput, deps StepDeps) (StepResult, error) {
	res := StepResult{Wanted: chunkspkg.Window(in.Center, in.Radius)}
	for _, k := range res.Wanted {
		if deps.Has(k) {
			continue
		}
		occupied, pruned := deps.Generate(k)
		if err := deps.Append(k, occupied, in.NowTick); err != nil {
			return res, fmt.Errorf("append chunk (%d,%d): %w", k.CX, k.CY, err)
		}
		res.Generated = append(res.Generated, k)
		res.Pruned += pruned
	}
	return res, nil
}
