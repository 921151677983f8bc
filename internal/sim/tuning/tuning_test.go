package tuning

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := writeFile(t, "render_distance: 3\nnoise:\n  backend: opensimplex\n  cutoff: 0.2\n")
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.RenderDistance != 3 || got.Noise.Backend != "opensimplex" || got.Noise.Cutoff != 0.2 {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.ChunkSize[0] != 64 || got.TileSize[1] != 50 || got.Noise.Scale != 12.5 {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []string{
		"tick_rate_hz: -1\n",
		"chunk_size: [64]\n",
		"tile_size: [0, 50]\n",
		"noise:\n  backend: value\n",
		"noise:\n  scale: 0\n",
		"noise:\n  cutoff: 0\n",
		"noise:\n  offset: 0\n",
	}
	for _, body := range cases {
		if _, err := Load(writeFile(t, body)); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%q: expected ErrInvalid, got %v", body, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
