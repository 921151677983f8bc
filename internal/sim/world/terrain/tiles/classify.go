package tiles

// Variant is the neighbour-shape class of an occupied tile.
type Variant int

const (
	VariantUnknown  Variant = -2
	VariantInvalid  Variant = -1
	VariantInterior Variant = 0
	VariantCorner1  Variant = 1
	VariantCorner2  Variant = 2
	VariantCorner3  Variant = 3
	VariantCorner4  Variant = 4
	VariantIsolated Variant = 5
)

// Edge bits, read in W,N,E,S order as a 4-bit number (W is the high bit).
// A bit is set when the neighbour in that direction is missing.
const (
	EdgeW uint8 = 8
	EdgeN uint8 = 4
	EdgeE uint8 = 2
	EdgeS uint8 = 1
)

// neighbours is the fixed probe order: west, north, east, south.
var neighbours = [4]struct {
	d   Coord
	bit uint8
}{
	{d: Coord{X: -1, Y: 0}, bit: EdgeW},
	{d: Coord{X: 0, Y: 1}, bit: EdgeN},
	{d: Coord{X: 1, Y: 0}, bit: EdgeE},
	{d: Coord{X: 0, Y: -1}, bit: EdgeS},
}

// variantLUT maps every 4-bit edge pattern to a variant.
var variantLUT = [16]Variant{
	0b0000: VariantInterior,
	0b0001: VariantInvalid,
	0b0010: VariantInvalid,
	0b0011: VariantCorner3,
	0b0100: VariantInvalid,
	0b0101: VariantUnknown,
	0b0110: VariantCorner2,
	0b0111: VariantUnknown,
	0b1000: VariantInvalid,
	0b1001: VariantCorner4,
	0b1010: VariantUnknown,
	0b1011: VariantUnknown,
	0b1100: VariantCorner1,
	0b1101: VariantUnknown,
	0b1110: VariantUnknown,
	0b1111: VariantIsolated,
}

// EdgePattern returns the W,N,E,S missing-neighbour bits for c.
// Only the given set is consulted; neighbours across a chunk border are
// always seen as missing.
func EdgePattern(c Coord, occupied Set) uint8 {
	var bits uint8
	for _, n := range neighbours {
		if !occupied.Has(Coord{X: c.X + n.d.X, Y: c.Y + n.d.Y}) {
			bits |= n.bit
		}
	}
	return bits
}

// VariantOf maps an edge pattern to its variant. Total over all 16 patterns.
func VariantOf(pattern uint8) Variant {
	return variantLUT[pattern&0x0f]
}

func Classify(c Coord, occupied Set) Variant {
	return VariantOf(EdgePattern(c, occupied))
}

// Tile kinds are the symbolic asset ids handed to the renderer.
const (
	KindCorner1 = "corner1"
	KindCorner2 = "corner2"
	KindCorner3 = "corner3"
	KindCorner4 = "corner4"
	KindGrass   = "grass"
)

// Kind maps a variant to its tile kind. Everything that is not a corner,
// sentinels included, renders as plain grass.
func Kind(v Variant) string {
	switch v {
	case VariantCorner1:
		return KindCorner1
	case VariantCorner2:
		return KindCorner2
	case VariantCorner3:
		return KindCorner3
	case VariantCorner4:
		return KindCorner4
	default:
		return KindGrass
	}
}

func (v Variant) String() string {
	switch v {
	case VariantUnknown:
		return "UNKNOWN"
	case VariantInvalid:
		return "INVALID"
	case VariantInterior:
		return "INTERIOR"
	case VariantIsolated:
		return "ISOLATED"
	case VariantCorner1, VariantCorner2, VariantCorner3, VariantCorner4:
		return Kind(v)
	default:
		return "?"
	}
}
