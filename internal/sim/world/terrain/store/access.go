package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"

	"tilestream.ai/internal/sim/world/terrain/tiles"
)

func (s *ChunkStore) Len() int { return len(s.order) }

func (s *ChunkStore) MaterializedCount() int { return s.materialized }

func (s *ChunkStore) Has(k ChunkKey) bool {
	_, ok := s.chunks[k]
	return ok
}

func (s *ChunkStore) Get(k ChunkKey) *Chunk { return s.chunks[k] }

// Add appends a freshly generated chunk. A chunk id is only ever added once.
func (s *ChunkStore) Add(k ChunkKey, occupied tiles.Set, tick uint64) (*Chunk, error) {
	if _, ok := s.chunks[k]; ok {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrDuplicateChunk, k.CX, k.CY)
	}
	ch := newChunk(k, occupied, tick)
	s.chunks[k] = ch
	s.order = append(s.order, ch)
	return ch, nil
}

// Chunks returns all chunks in insertion order.
func (s *ChunkStore) Chunks() []*Chunk {
	out := make([]*Chunk, len(s.order))
	copy(out, s.order)
	return out
}

// Unmaterialized returns, in insertion order, the chunks still waiting to be
// materialized.
func (s *ChunkStore) Unmaterialized() []*Chunk {
	var out []*Chunk
	for _, ch := range s.order {
		if !ch.materialized {
			out = append(out, ch)
		}
	}
	return out
}

func (s *ChunkStore) MarkMaterialized(k ChunkKey) error {
	ch := s.chunks[k]
	if ch == nil {
		return fmt.Errorf("%w: (%d,%d)", ErrUnknownChunk, k.CX, k.CY)
	}
	if ch.materialized {
		return fmt.Errorf("%w: (%d,%d)", ErrAlreadyMaterialized, k.CX, k.CY)
	}
	ch.materialized = true
	s.materialized++
	return nil
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CY < keys[j].CY
	})
	return keys
}

// Digest hashes the seed and every chunk (id + tile digest) in insertion
// order. Two stores fed the same observer path yield the same digest.
func (s *ChunkStore) Digest() string {
	h := sha256.New()
	var tmp [8]byte
	binary.LittleEndian.PutUint32(tmp[:4], s.seed)
	h.Write(tmp[:4])
	for _, ch := range s.order {
		binary.LittleEndian.PutUint32(tmp[0:4], uint32(int32(ch.Key.CX)))
		binary.LittleEndian.PutUint32(tmp[4:8], uint32(int32(ch.Key.CY)))
		h.Write(tmp[:])
		d := ch.Digest()
		h.Write(d[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
