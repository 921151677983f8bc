package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	persistlog "tilestream.ai/internal/persistence/log"
	"tilestream.ai/internal/sim/tuning"
	"tilestream.ai/internal/sim/world"
)

var errStop = errors.New("stop")

func main() {
	var (
		eventsDir  = flag.String("events", "", "events dir containing events-*.jsonl.zst (usually <data>/runs/<id>/events)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "tuning.yaml the run was started with")
		seed       = flag.Uint("seed", 0, "world seed (default: taken from the first logged tick)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
		verbose    = flag.Bool("v", false, "log world output (unknown tile reports)")
	)
	flag.Parse()

	if *eventsDir == "" {
		fmt.Fprintln(os.Stderr, "missing -events")
		os.Exit(2)
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}

	files, err := persistlog.ListEventFiles(*eventsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *eventsDir)
		os.Exit(1)
	}

	worldSeed := uint32(*seed)
	if worldSeed == 0 {
		worldSeed, err = firstSeed(files[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read seed:", err)
			os.Exit(1)
		}
	}

	out := io.Discard
	if *verbose {
		out = os.Stderr
	}
	w, err := world.New(world.ConfigFromTuning(tune, worldSeed), log.New(out, "[world] ", 0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}

	checked, err := replay(w, files, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: seed=%d checked=%d ticks chunks=%d digest=%s\n", worldSeed, checked, w.ChunkCount(), w.Digest())
}

func firstSeed(path string) (uint32, error) {
	var seed uint32
	found := false
	err := persistlog.ReadTickLog(path, func(e world.TickLogEntry) error {
		seed, found = e.Seed, true
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%s: empty", filepath.Base(path))
	}
	return seed, nil
}

// replay steps w once per logged tick and compares digests. Prefetches are
// re-issued before the tick that recorded them.
func replay(w *world.World, files []string, toTick uint64) (uint64, error) {
	var checked uint64
	for _, path := range files {
		err := persistlog.ReadTickLog(path, func(entry world.TickLogEntry) error {
			if toTick != 0 && entry.Tick > toTick {
				return errStop
			}
			if entry.Seed != w.Seed() {
				return fmt.Errorf("seed mismatch at tick %d: log=%d world=%d", entry.Tick, entry.Seed, w.Seed())
			}
			if entry.Tick != w.CurrentTick() {
				return fmt.Errorf("tick mismatch: want=%d got=%d (file=%s)", w.CurrentTick(), entry.Tick, filepath.Base(path))
			}
			for _, p := range entry.Prefetch {
				if _, err := w.Prefetch(world.ChunkKey{CX: p.CX, CY: p.CY}); err != nil {
					return fmt.Errorf("tick %d: prefetch: %w", entry.Tick, err)
				}
			}

			tick, gotDigest, _ := w.StepOnce(entry.Observer)
			if tick != entry.Tick {
				return fmt.Errorf("internal tick mismatch: stepped=%d entry=%d (file=%s)", tick, entry.Tick, filepath.Base(path))
			}
			checked++
			if gotDigest != entry.Digest {
				return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, gotDigest, entry.Digest)
			}
			return nil
		})
		if errors.Is(err, errStop) {
			break
		}
		if err != nil {
			return checked, err
		}
	}
	return checked, nil
}
