package mathx

import "math"

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// FloorToInt floors a world-space coordinate onto the integer grid.
func FloorToInt(v float64) int {
	return int(math.Floor(v))
}

// CellOf maps a world-space coordinate to the index of the cell of the given
// size that contains it, using floor semantics for negative values.
func CellOf(v float64, size int) int {
	return FloorToInt(v / float64(size))
}
