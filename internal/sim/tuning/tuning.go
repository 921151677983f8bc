package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid tuning")

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz          int   `yaml:"tick_rate_hz"`
	ChunkSize           []int `yaml:"chunk_size"`
	TileSize            []int `yaml:"tile_size"`
	RenderDistance      int   `yaml:"render_distance"`
	StartingChunkRadius int   `yaml:"starting_chunk_radius"`

	Noise Noise `yaml:"noise"`
	Log   Log   `yaml:"log"`
}

type Noise struct {
	Backend string  `yaml:"backend"`
	Scale   float64 `yaml:"scale"`
	Cutoff  float64 `yaml:"cutoff"`
	Offset  float64 `yaml:"offset"`
	Alpha   float64 `yaml:"alpha"`
	Beta    float64 `yaml:"beta"`
	Octaves int     `yaml:"octaves"`
}

type Log struct {
	Events  bool `yaml:"events"`
	IndexDB bool `yaml:"index_db"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:     "1.0",
		TickRateHz:          5,
		ChunkSize:           []int{64, 64},
		TileSize:            []int{50, 50},
		RenderDistance:      2,
		StartingChunkRadius: 2,
		Noise: Noise{
			Backend: "perlin",
			Scale:   12.5,
			Cutoff:  0.10,
			Offset:  0.3,
			Alpha:   2,
			Beta:    2,
			Octaves: 1,
		},
		Log: Log{Events: true, IndexDB: true},
	}
}

// Load reads a tuning file on top of Defaults, so a partial file only
// overrides the keys it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("%w: tick_rate_hz must be > 0", ErrInvalid)
	}
	if len(t.ChunkSize) != 2 || t.ChunkSize[0] <= 0 || t.ChunkSize[1] <= 0 {
		return fmt.Errorf("%w: chunk_size must be [w, h] > 0", ErrInvalid)
	}
	// Local tile coordinates are digested as uint16.
	if t.ChunkSize[0] > 1<<16 || t.ChunkSize[1] > 1<<16 {
		return fmt.Errorf("%w: chunk_size too large", ErrInvalid)
	}
	if len(t.TileSize) != 2 || t.TileSize[0] <= 0 || t.TileSize[1] <= 0 {
		return fmt.Errorf("%w: tile_size must be [w, h] > 0", ErrInvalid)
	}
	if t.RenderDistance < 0 || t.StartingChunkRadius < 0 {
		return fmt.Errorf("%w: radii must be >= 0", ErrInvalid)
	}
	if t.Noise.Scale <= 0 {
		return fmt.Errorf("%w: noise.scale must be > 0", ErrInvalid)
	}
	// The world reads 0 as unset for both.
	if t.Noise.Cutoff == 0 {
		return fmt.Errorf("%w: noise.cutoff must be non-zero (0 selects the default 0.10)", ErrInvalid)
	}
	if t.Noise.Offset == 0 {
		return fmt.Errorf("%w: noise.offset must be non-zero (0 selects the default 0.3)", ErrInvalid)
	}
	switch t.Noise.Backend {
	case "", "perlin", "opensimplex":
	default:
		return fmt.Errorf("%w: noise.backend %q", ErrInvalid, t.Noise.Backend)
	}
	return nil
}
