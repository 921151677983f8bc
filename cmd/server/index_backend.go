package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tilestream.ai/internal/persistence/indexdb"
	"tilestream.ai/internal/sim/tuning"
	"tilestream.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.TickLogger
	Close() error
	UpsertTuning(tune tuning.Tuning, seed uint32) error
	Stats() indexdb.Stats
}

func openRuntimeIndex(runDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("TILESTREAM_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(runDir, "index", "world.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported TILESTREAM_INDEX_BACKEND: %s", backend)
	}
}
