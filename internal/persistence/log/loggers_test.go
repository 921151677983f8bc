package log

import (
	"testing"
	"time"

	"tilestream.ai/internal/sim/world"
)

func TestTickLoggerRotatesHourlyAndReadsBack(t *testing.T) {
	runDir := t.TempDir()
	l := NewTickLogger(runDir)
	clock := time.Date(2026, 1, 2, 3, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	pos := &world.Vec2{X: 1, Y: -2}
	entries := []world.TickLogEntry{
		{Tick: 0, Seed: 42, Error: "no observer position", Digest: "a"},
		{Tick: 1, Seed: 42, Observer: pos, Generated: []world.GeneratedChunk{{CX: -2, CY: -2, Tiles: 10, Digest: "d"}}, Placements: 10, Chunks: 16, Digest: "b"},
		{Tick: 2, Seed: 42, Observer: pos, Prefetch: []world.PrefetchRecord{{CX: 1, CY: 1, Radius: 2}}, Chunks: 16, Digest: "c"},
	}
	for i, e := range entries {
		if i == 2 {
			clock = clock.Add(2 * time.Minute)
		}
		if err := l.WriteTick(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := ListEventFiles(EventsDir(runDir))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files=%d want 2 (%v)", len(files), files)
	}

	var got []world.TickLogEntry
	for _, f := range files {
		if err := ReadTickLog(f, func(e world.TickLogEntry) error {
			got = append(got, e)
			return nil
		}); err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
	}
	if len(got) != 3 {
		t.Fatalf("entries=%d want 3", len(got))
	}
	for i := range got {
		if got[i].Tick != uint64(i) || got[i].Digest != entries[i].Digest {
			t.Fatalf("entry %d: %+v", i, got[i])
		}
	}
	if got[0].Observer != nil || got[1].Observer == nil || *got[1].Observer != *pos {
		t.Fatalf("observer round trip failed: %+v %+v", got[0].Observer, got[1].Observer)
	}
	if len(got[2].Prefetch) != 1 || got[1].Generated[0].Tiles != 10 {
		t.Fatalf("nested fields lost: %+v", got)
	}
}

func TestWriterAppendsAcrossReopen(t *testing.T) {
	runDir := t.TempDir()
	for i := 0; i < 2; i++ {
		l := NewTickLogger(runDir)
		l.w.now = func() time.Time { return time.Date(2026, 5, 5, 5, 0, 0, 0, time.UTC) }
		if err := l.WriteTick(world.TickLogEntry{Tick: uint64(i)}); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = l.Close()
	}
	files, _ := ListEventFiles(EventsDir(runDir))
	if len(files) != 1 {
		t.Fatalf("files=%d want 1", len(files))
	}
	n := 0
	if err := ReadTickLog(files[0], func(world.TickLogEntry) error { n++; return nil }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 2 {
		t.Fatalf("entries=%d want 2", n)
	}
}
