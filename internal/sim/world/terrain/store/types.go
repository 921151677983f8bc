package store

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"tilestream.ai/internal/sim/world/terrain/tiles"
)

var (
	ErrDuplicateChunk      = errors.New("chunk already generated")
	ErrUnknownChunk        = errors.New("chunk not generated")
	ErrAlreadyMaterialized = errors.New("chunk already materialized")
)

// ChunkKey is a chunk position in chunk space.
type ChunkKey struct {
	CX int
	CY int
}

// Chunk is one generated region. Its occupied set is fixed at construction;
// only the materialized flag changes, once.
type Chunk struct {
	Key           ChunkKey
	GeneratedTick uint64

	tiles        tiles.Set
	materialized bool
	hash         [32]byte
}

func newChunk(k ChunkKey, occupied tiles.Set, tick uint64) *Chunk {
	c := &Chunk{
		Key:           k,
		GeneratedTick: tick,
		tiles:         occupied.Clone(),
	}
	c.hash = digestTiles(c.tiles)
	return c
}

func (c *Chunk) Has(t tiles.Coord) bool { return c.tiles.Has(t) }
func (c *Chunk) Len() int               { return c.tiles.Len() }
func (c *Chunk) Materialized() bool     { return c.materialized }

// Coords returns the occupied tiles ordered by Y then X.
func (c *Chunk) Coords() []tiles.Coord { return c.tiles.Sorted() }

// Each visits every occupied tile in unspecified order.
func (c *Chunk) Each(fn func(tiles.Coord)) {
	for t := range c.tiles {
		fn(t)
	}
}

// Classify resolves t against this chunk's own tiles only; neighbours in
// adjacent chunks are never consulted.
func (c *Chunk) Classify(t tiles.Coord) tiles.Variant {
	return tiles.Classify(t, c.tiles)
}

func (c *Chunk) Digest() [32]byte { return c.hash }

func digestTiles(s tiles.Set) [32]byte {
	h := sha256.New()
	var tmp [4]byte
	for _, t := range s.Sorted() {
		binary.LittleEndian.PutUint16(tmp[0:2], uint16(t.X))
		binary.LittleEndian.PutUint16(tmp[2:4], uint16(t.Y))
		h.Write(tmp[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ChunkStore is the world state for one seed: every chunk ever generated, in
// generation order. Accessed only from the world loop goroutine.
type ChunkStore struct {
	seed   uint32
	order  []*Chunk
	chunks map[ChunkKey]*Chunk

	materialized int
}

func NewChunkStore(seed uint32) *ChunkStore {
	return &ChunkStore{
		seed:   seed,
		chunks: map[ChunkKey]*Chunk{},
	}
}

func (s *ChunkStore) Seed() uint32 { return s.seed }
