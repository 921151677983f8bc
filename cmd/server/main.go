package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	persistlog "tilestream.ai/internal/persistence/log"
	"tilestream.ai/internal/sim/tuning"
	"tilestream.ai/internal/sim/world"
	"tilestream.ai/internal/transport/observer"
)

func main() {
	var (
		addr          = flag.String("addr", ":8080", "http listen address")
		seed          = flag.Uint("seed", 0, "world seed (0 = random in [10000,99999))")
		configDir     = flag.String("configs", "./configs", "config directory")
		tuningPath    = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir       = flag.String("data", "./data", "runtime data directory")
		disableDB     = flag.Bool("disable_db", false, "disable the sqlite tick/chunk index")
		disableEvents = flag.Bool("disable_events", false, "disable the zstd tick event log")
		allowRemote   = flag.Bool("allow_remote_position", false, "accept POSITION messages from non-loopback peers")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	worldLogger := log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	worldSeed := uint32(*seed)
	if worldSeed == 0 {
		worldSeed = world.RandomSeed()
	}

	w, err := world.New(world.ConfigFromTuning(tune, worldSeed), worldLogger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	runID := uuid.NewString()
	runDir := filepath.Join(*dataDir, "runs", runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		logger.Fatalf("run dir: %v", err)
	}
	logger.Printf("run=%s seed=%d dir=%s", runID, worldSeed, runDir)

	// Optional read-model index (does not affect generation determinism).
	var idx runtimeIndex
	if tune.Log.IndexDB {
		idx, err = openRuntimeIndex(runDir, *disableDB)
		if err != nil {
			logger.Fatalf("open index backend: %v", err)
		}
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune, worldSeed); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
	}

	fanout := multiTickLogger{}
	if tune.Log.Events && !*disableEvents {
		tickLog := persistlog.NewTickLogger(runDir)
		defer tickLog.Close()
		fanout.a = tickLog
	}
	if idx != nil {
		fanout.b = idx
	}
	w.SetTickLogger(fanout)

	if n, err := w.Prefetch(world.ChunkKey{}); err != nil {
		logger.Fatalf("prefetch: %v", err)
	} else {
		logger.Printf("prefetched %d chunks around origin", n)
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, w, idx)
	})
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		m := w.Metrics()
		resp := struct {
			RunID   string             `json:"run_id"`
			Seed    uint32             `json:"seed"`
			Tick    uint64             `json:"tick"`
			Digest  string             `json:"digest"`
			Metrics world.WorldMetrics `json:"metrics"`
		}{
			RunID:   runID,
			Seed:    worldSeed,
			Tick:    m.Tick,
			Digest:  m.Digest,
			Metrics: m,
		}
		_ = json.NewEncoder(rw).Encode(resp)
	})
	if envBool("TILESTREAM_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (TILESTREAM_ENABLE_PPROF_HTTP=false)")
	}

	obsSrv := observer.NewServer(w, logger, observer.Options{AllowRemotePosition: *allowRemote})
	mux.HandleFunc("/v1/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/ws", obsSrv.WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func writeMetrics(rw http.ResponseWriter, w *world.World, idx runtimeIndex) {
	m := w.Metrics()
	tick := w.CurrentTick()
	if m.Tick != 0 {
		tick = m.Tick
	}

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP tilestream_world_tick Current world tick.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_world_tick gauge\n")
	fmt.Fprintf(rw, "tilestream_world_tick{seed=\"%d\"} %d\n", w.Seed(), tick)

	fmt.Fprintf(rw, "# HELP tilestream_world_chunks Generated chunk count.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_world_chunks gauge\n")
	fmt.Fprintf(rw, "tilestream_world_chunks %d\n", m.Chunks)

	fmt.Fprintf(rw, "# HELP tilestream_world_materialized_chunks Materialized chunk count.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_world_materialized_chunks gauge\n")
	fmt.Fprintf(rw, "tilestream_world_materialized_chunks %d\n", m.Materialized)

	fmt.Fprintf(rw, "# HELP tilestream_world_observers Connected observer sessions.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_world_observers gauge\n")
	fmt.Fprintf(rw, "tilestream_world_observers %d\n", m.Observers)

	fmt.Fprintf(rw, "# HELP tilestream_placements_total Placements emitted.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_placements_total counter\n")
	fmt.Fprintf(rw, "tilestream_placements_total %d\n", m.PlacementsTotal)

	fmt.Fprintf(rw, "# HELP tilestream_unknown_tiles_total Tiles with an unknown edge pattern, drawn as grass.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_unknown_tiles_total counter\n")
	fmt.Fprintf(rw, "tilestream_unknown_tiles_total %d\n", m.UnknownTotal)

	fmt.Fprintf(rw, "# HELP tilestream_pruned_tiles_total Tiles removed by the pruning pass.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_pruned_tiles_total counter\n")
	fmt.Fprintf(rw, "tilestream_pruned_tiles_total %d\n", m.PrunedTotal)

	fmt.Fprintf(rw, "# HELP tilestream_no_observer_ticks_total Ticks stepped without an observer position.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_no_observer_ticks_total counter\n")
	fmt.Fprintf(rw, "tilestream_no_observer_ticks_total %d\n", m.NoObserverTotal)

	fmt.Fprintf(rw, "# HELP tilestream_tick_errors_total Ticks that ended with an error.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_tick_errors_total counter\n")
	fmt.Fprintf(rw, "tilestream_tick_errors_total %d\n", m.TickErrorsTotal)

	fmt.Fprintf(rw, "# HELP tilestream_world_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_world_queue_depth gauge\n")
	fmt.Fprintf(rw, "tilestream_world_queue_depth{queue=%q} %d\n", "position", m.QueueDepths.Position)
	fmt.Fprintf(rw, "tilestream_world_queue_depth{queue=%q} %d\n", "observer_join", m.QueueDepths.ObserverJoin)
	fmt.Fprintf(rw, "tilestream_world_queue_depth{queue=%q} %d\n", "observer_leave", m.QueueDepths.ObserverLeave)

	fmt.Fprintf(rw, "# HELP tilestream_world_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_world_step_ms gauge\n")
	fmt.Fprintf(rw, "tilestream_world_step_ms %.3f\n", m.StepMS)

	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(rw, "# HELP tilestream_index_queue_depth sqlite index queue depth.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "tilestream_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP tilestream_index_dropped_ticks_total Ticks dropped because the index queue was full.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_index_dropped_ticks_total counter\n")
	fmt.Fprintf(rw, "tilestream_index_dropped_ticks_total %d\n", s.DropTickTotal)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// multiTickLogger fans a tick entry out to the event log and the index.
// Either side may be nil.
type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	var errA, errB error
	if m.a != nil {
		if err := m.a.WriteTick(entry); err != nil {
			errA = fmt.Errorf("event log: %w", err)
		}
	}
	if m.b != nil {
		if err := m.b.WriteTick(entry); err != nil {
			errB = fmt.Errorf("index: %w", err)
		}
	}
	return errors.Join(errA, errB)
}
