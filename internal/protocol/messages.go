package protocol

// Client -> Server. First message on the observer WS connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Resync asks for placements of chunks materialized before the session
	// joined. Defaults to true when absent.
	Resync *bool `json:"resync,omitempty"`
}

// Client -> Server. Moves the observer; only the latest position per tick
// is used.
type PositionMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
}

type Placement struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Kind string  `json:"kind"`
}

// Server -> Client. One per materialized chunk.
type PlacementsMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	Chunk           [2]int      `json:"chunk"`
	Resync          bool        `json:"resync,omitempty"`
	Unknown         int         `json:"unknown,omitempty"`
	Placements      []Placement `json:"placements"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	Observer        *[2]float64 `json:"observer,omitempty"`
	Center          *[2]int     `json:"center,omitempty"`
	Generated       [][2]int    `json:"generated,omitempty"`
	Chunks          int         `json:"chunks"`
	Materialized    int         `json:"materialized"`
	Error           string      `json:"error,omitempty"`
	Digest          string      `json:"digest"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	Kinds           []string    `json:"kinds"`
}

type WorldParams struct {
	Seed                uint32 `json:"seed"`
	TickRateHz          int    `json:"tick_rate_hz"`
	ChunkSize           [2]int `json:"chunk_size"`
	TileSize            [2]int `json:"tile_size"`
	RenderDistance      int    `json:"render_distance"`
	StartingChunkRadius int    `json:"starting_chunk_radius"`
	NoiseBackend        string `json:"noise_backend"`
}
