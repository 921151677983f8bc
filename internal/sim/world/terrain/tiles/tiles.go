package tiles

import "sort"

// Coord is a tile position local to its chunk.
type Coord struct {
	X int
	Y int
}

// Set is an occupied-tile set ("land") for a single chunk.
type Set map[Coord]struct{}

func NewSet(coords ...Coord) Set {
	s := make(Set, len(coords))
	for _, c := range coords {
		s[c] = struct{}{}
	}
	return s
}

func (s Set) Has(c Coord) bool {
	_, ok := s[c]
	return ok
}

func (s Set) Add(c Coord) { s[c] = struct{}{} }

func (s Set) Len() int { return len(s) }

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

// Sorted returns the coordinates ordered by Y then X.
func (s Set) Sorted() []Coord {
	out := make([]Coord, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// SubsetOf reports whether every coordinate of s is also in other.
func (s Set) SubsetOf(other Set) bool {
	for c := range s {
		if !other.Has(c) {
			return false
		}
	}
	return true
}
