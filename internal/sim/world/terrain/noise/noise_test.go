package noise

import (
	"errors"
	"testing"
)

func TestSampleDeterministic(t *testing.T) {
	for _, backend := range []string{BackendPerlin, BackendOpenSimplex} {
		a, err := New(42, Params{Backend: backend})
		if err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		b, err := New(42, Params{Backend: backend})
		if err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		for y := -20; y < 20; y += 3 {
			for x := -20; x < 20; x += 7 {
				va, vb := a.Sample(x, y), b.Sample(x, y)
				if va != vb {
					t.Fatalf("%s: sample(%d,%d) differs: %v vs %v", backend, x, y, va, vb)
				}
				if va < -1.5 || va > 1.5 {
					t.Fatalf("%s: sample(%d,%d)=%v out of range", backend, x, y, va)
				}
			}
		}
	}
}

func TestSampleVariesOffLattice(t *testing.T) {
	f, err := New(12345, Params{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	nonZero := 0
	for x := 0; x < 64; x++ {
		if f.Sample(x, 0) != 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		t.Fatalf("expected offset sampling to avoid degenerate lattice zeros")
	}
}

func TestSeedsDiffer(t *testing.T) {
	a, _ := New(10001, Params{})
	b, _ := New(10002, Params{})
	same := true
	for x := 0; x < 64 && same; x++ {
		if a.Sample(x, x) != b.Sample(x, x) {
			same = false
		}
	}
	if same {
		t.Fatalf("expected different seeds to produce different fields")
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := New(1, Params{Backend: "value"})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}
