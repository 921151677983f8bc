package main

import (
	"io"
	"log"
	"strings"
	"testing"

	persistlog "tilestream.ai/internal/persistence/log"
	"tilestream.ai/internal/sim/tuning"
	"tilestream.ai/internal/sim/world"
)

func recordRun(t *testing.T, seed uint32) []string {
	t.Helper()
	runDir := t.TempDir()
	w, err := world.New(world.ConfigFromTuning(tuning.Defaults(), seed), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	tl := persistlog.NewTickLogger(runDir)
	w.SetTickLogger(tl)

	if _, err := w.Prefetch(world.ChunkKey{}); err != nil {
		t.Fatalf("prefetch: %v", err)
	}
	_, _, _ = w.StepOnce(nil)
	path := []world.Vec2{{X: 10, Y: 10}, {X: 3300, Y: 10}, {X: 3300, Y: -6500}, {X: -7000, Y: -6500}}
	for i := range path {
		if _, _, err := w.StepOnce(&path[i]); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	_, _, _ = w.StepOnce(nil)
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := persistlog.ListEventFiles(persistlog.EventsDir(runDir))
	if err != nil || len(files) == 0 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	return files
}

func TestReplayReproducesDigests(t *testing.T) {
	files := recordRun(t, 31337)

	seed, err := firstSeed(files[0])
	if err != nil || seed != 31337 {
		t.Fatalf("firstSeed=%d err=%v", seed, err)
	}

	w, err := world.New(world.ConfigFromTuning(tuning.Defaults(), seed), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	checked, err := replay(w, files, 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 6 {
		t.Fatalf("checked=%d want 6", checked)
	}
}

func TestReplayStopsAtToTick(t *testing.T) {
	files := recordRun(t, 777)
	w, _ := world.New(world.ConfigFromTuning(tuning.Defaults(), 777), log.New(io.Discard, "", 0))
	checked, err := replay(w, files, 2)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 3 || w.CurrentTick() != 3 {
		t.Fatalf("checked=%d tick=%d want 3/3", checked, w.CurrentTick())
	}
}

func TestReplayDetectsWrongSeed(t *testing.T) {
	files := recordRun(t, 1234)
	w, _ := world.New(world.ConfigFromTuning(tuning.Defaults(), 4321), log.New(io.Discard, "", 0))
	_, err := replay(w, files, 0)
	if err == nil || !strings.Contains(err.Error(), "seed mismatch") {
		t.Fatalf("expected seed mismatch, got %v", err)
	}
}
