package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"tilestream.ai/internal/sim/tuning"
	"tilestream.ai/internal/sim/world"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: world.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(world.TickLogEntry{Tick: 2})

	st := s.Stats()
	if st.DropTickTotal != 1 {
		t.Fatalf("DropTickTotal=%d want=1", st.DropTickTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_TicksAndChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "world.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.UpsertTuning(tuning.Defaults(), 42); err != nil {
		t.Fatalf("UpsertTuning: %v", err)
	}
	_ = idx.WriteTick(world.TickLogEntry{Tick: 0, Seed: 42, Error: "no observer position", Digest: "d0"})
	_ = idx.WriteTick(world.TickLogEntry{
		Tick:     1,
		Seed:     42,
		Observer: &world.Vec2{X: 10, Y: -5},
		Generated: []world.GeneratedChunk{
			{CX: -2, CY: -2, Tiles: 100, Digest: "c1"},
			{CX: -2, CY: -1, Tiles: 0, Digest: "c2"},
		},
		Placements: 100,
		Chunks:     2,
		Digest:     "d1",
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Writes after close are ignored.
	if err := idx.WriteTick(world.TickLogEntry{Tick: 9}); err != nil {
		t.Fatalf("WriteTick after close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ticks`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("ticks count=%d err=%v", n, err)
	}
	var (
		obsX    sql.NullFloat64
		errText sql.NullString
		gen, pl int
		digest  string
	)
	row := db.QueryRow(`SELECT observer_x,error,generated,placements,digest FROM ticks WHERE tick=0`)
	if err := row.Scan(&obsX, &errText, &gen, &pl, &digest); err != nil {
		t.Fatalf("Scan tick 0: %v", err)
	}
	if obsX.Valid || !errText.Valid || gen != 0 || digest != "d0" {
		t.Fatalf("tick 0 mismatch: obs=%v err=%v gen=%d digest=%s", obsX, errText, gen, digest)
	}
	row = db.QueryRow(`SELECT observer_x,error,generated,placements FROM ticks WHERE tick=1`)
	if err := row.Scan(&obsX, &errText, &gen, &pl); err != nil {
		t.Fatalf("Scan tick 1: %v", err)
	}
	if !obsX.Valid || obsX.Float64 != 10 || errText.Valid || gen != 2 || pl != 100 {
		t.Fatalf("tick 1 mismatch: obs=%v err=%v gen=%d pl=%d", obsX, errText, gen, pl)
	}

	var tiles int
	var genTick int64
	if err := db.QueryRow(`SELECT tiles,generated_tick FROM chunks WHERE seed=42 AND cx=-2 AND cy=-2`).Scan(&tiles, &genTick); err != nil {
		t.Fatalf("Scan chunk: %v", err)
	}
	if tiles != 100 || genTick != 1 {
		t.Fatalf("chunk mismatch: tiles=%d tick=%d", tiles, genTick)
	}

	var seed string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key='seed'`).Scan(&seed); err != nil || seed != "42" {
		t.Fatalf("meta seed=%q err=%v", seed, err)
	}
}
