package noise

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

const (
	BackendPerlin      = "perlin"
	BackendOpenSimplex = "opensimplex"
)

var ErrUnknownBackend = errors.New("unknown noise backend")

// Field is a deterministic scalar field over the integer tile grid.
type Field interface {
	Sample(x, y int) float64
}

type Params struct {
	Backend string
	// Scale divides the (offset) grid coordinate before sampling.
	Scale float64
	// Offset keeps samples off the lattice points, where gradient noise is always 0.
	Offset float64

	// Perlin octave shaping (go-perlin alpha/beta/n).
	Alpha   float64
	Beta    float64
	Octaves int
}

func (p *Params) applyDefaults() {
	if strings.TrimSpace(p.Backend) == "" {
		p.Backend = BackendPerlin
	}
	if p.Scale <= 0 {
		p.Scale = 12.5
	}
	if p.Offset == 0 {
		p.Offset = 0.3
	}
	if p.Alpha <= 0 {
		p.Alpha = 2
	}
	if p.Beta <= 0 {
		p.Beta = 2
	}
	if p.Octaves <= 0 {
		p.Octaves = 1
	}
}

// New builds the field for one world seed. The seed is fixed for the life of the field.
func New(seed uint32, p Params) (Field, error) {
	p.applyDefaults()
	switch strings.ToLower(strings.TrimSpace(p.Backend)) {
	case BackendPerlin:
		return &perlinField{
			src:    perlin.NewPerlin(p.Alpha, p.Beta, int32(p.Octaves), int64(seed)),
			scale:  p.Scale,
			offset: p.Offset,
		}, nil
	case BackendOpenSimplex:
		return &simplexField{
			src:    opensimplex.New(int64(seed)),
			scale:  p.Scale,
			offset: p.Offset,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, p.Backend)
	}
}

type perlinField struct {
	src    *perlin.Perlin
	scale  float64
	offset float64
}

func (f *perlinField) Sample(x, y int) float64 {
	return f.src.Noise2D(input(x, f.offset, f.scale), input(y, f.offset, f.scale))
}

type simplexField struct {
	src    opensimplex.Noise
	scale  float64
	offset float64
}

func (f *simplexField) Sample(x, y int) float64 {
	return f.src.Eval2(input(x, f.offset, f.scale), input(y, f.offset, f.scale))
}

func input(v int, offset, scale float64) float64 {
	return (float64(v) + offset) / scale
}
