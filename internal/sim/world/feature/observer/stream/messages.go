package stream

import (
	"encoding/json"

	"tilestream.ai/internal/protocol"
	materializepkg "tilestream.ai/internal/sim/world/feature/observer/materialize"
)

// BuildPlacementsMsg encodes one chunk's placements. Clients key placements
// by chunk, so a resent chunk replaces rather than duplicates.
func BuildPlacementsMsg(tick uint64, b materializepkg.Batch, resync bool) ([]byte, error) {
	ps := make([]protocol.Placement, len(b.Placements))
	for i, p := range b.Placements {
		ps[i] = protocol.Placement{X: p.X, Y: p.Y, Kind: p.Kind}
	}
	msg := protocol.PlacementsMsg{
		Type:            protocol.TypePlacements,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Chunk:           [2]int{b.Chunk.CX, b.Chunk.CY},
		Resync:          resync,
		Unknown:         b.Unknown,
		Placements:      ps,
	}
	return json.Marshal(msg)
}

type TickSummary struct {
	Tick         uint64
	Observer     *[2]float64
	Center       *ChunkKey
	Generated    []ChunkKey
	Chunks       int
	Materialized int
	Error        string
	Digest       string
}

func BuildTickMsg(s TickSummary) ([]byte, error) {
	msg := protocol.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: protocol.Version,
		Tick:            s.Tick,
		Observer:        s.Observer,
		Chunks:          s.Chunks,
		Materialized:    s.Materialized,
		Error:           s.Error,
		Digest:          s.Digest,
	}
	if s.Center != nil {
		msg.Center = &[2]int{s.Center.CX, s.Center.CY}
	}
	for _, k := range s.Generated {
		msg.Generated = append(msg.Generated, [2]int{k.CX, k.CY})
	}
	return json.Marshal(msg)
}
