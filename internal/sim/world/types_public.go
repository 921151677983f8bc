package world

import (
	"errors"

	chunkspkg "tilestream.ai/internal/sim/world/feature/observer/chunks"
	materializepkg "tilestream.ai/internal/sim/world/feature/observer/materialize"
	"tilestream.ai/internal/sim/world/terrain/store"
)

// ErrNoObserver is returned by a tick that has no observer position to
// stream around. The tick still materializes pending chunks.
var ErrNoObserver = errors.New("no observer position")

type ChunkKey = store.ChunkKey
type Grid = chunkspkg.Grid
type Placement = materializepkg.Placement
type PlacementBatch = materializepkg.Batch

// Vec2 is a position in world units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type TickLogEntry struct {
	Tick     uint64 `json:"tick"`
	Seed     uint32 `json:"seed"`
	Observer *Vec2  `json:"observer,omitempty"`

	// Prefetch records Prefetch calls made since the previous tick, in order.
	Prefetch []PrefetchRecord `json:"prefetch,omitempty"`

	Generated  []GeneratedChunk `json:"generated,omitempty"`
	Placements int              `json:"placements"`
	Unknown    int              `json:"unknown,omitempty"`
	Chunks     int              `json:"chunks"`
	Error      string           `json:"error,omitempty"`
	Digest     string           `json:"digest"`
}

type PrefetchRecord struct {
	CX     int `json:"cx"`
	CY     int `json:"cy"`
	Radius int `json:"radius"`
}

type GeneratedChunk struct {
	CX     int    `json:"cx"`
	CY     int    `json:"cy"`
	Tiles  int    `json:"tiles"`
	Digest string `json:"digest"`
}

// ObserverJoinRequest registers a read-only session that receives:
// - PLACEMENTS for every chunk materialized from now on (DataOut)
// - a TICK summary per tick (TickOut)
type ObserverJoinRequest struct {
	SessionID string
	TickOut   chan []byte
	DataOut   chan []byte

	// Resync sends placements for chunks materialized before the join.
	Resync bool
}
