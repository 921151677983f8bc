package world

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Chunks       int `json:"chunks"`
	Materialized int `json:"materialized"`
	Observers    int `json:"observers"`

	// Digest is the world digest after the last completed tick.
	Digest string `json:"digest"`

	PlacementsTotal uint64 `json:"placements_total"`
	UnknownTotal    uint64 `json:"unknown_total"`
	PrunedTotal     uint64 `json:"pruned_total"`
	NoObserverTotal uint64 `json:"no_observer_total"`
	TickErrorsTotal uint64 `json:"tick_errors_total"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Position      int `json:"position"`
	ObserverJoin  int `json:"observer_join"`
	ObserverLeave int `json:"observer_leave"`
}

type counters struct {
	placements uint64
	unknown    uint64
	pruned     uint64
	noObserver uint64
	tickErrors uint64
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	if v, ok := w.metrics.Load().(WorldMetrics); ok {
		return v
	}
	return WorldMetrics{}
}

func (w *World) publishMetrics(nextTick uint64, digest string, stepMS float64) {
	w.metrics.Store(WorldMetrics{
		Tick:            nextTick,
		Chunks:          w.chunks.Len(),
		Materialized:    w.chunks.MaterializedCount(),
		Observers:       len(w.observers),
		Digest:          digest,
		PlacementsTotal: w.totals.placements,
		UnknownTotal:    w.totals.unknown,
		PrunedTotal:     w.totals.pruned,
		NoObserverTotal: w.totals.noObserver,
		TickErrorsTotal: w.totals.tickErrors,
		QueueDepths: QueueDepths{
			Position:      len(w.position),
			ObserverJoin:  len(w.observerJoin),
			ObserverLeave: len(w.observerLeave),
		},
		StepMS: stepMS,
	})
}
