package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful fetches.
	OutcomeSuccess = "success"
	// OutcomeError labels failed fetches (transport or non-success status).
	OutcomeError = "error"

	// LookupApplied labels lookup results shown to the user.
	LookupApplied = "applied"
	// LookupStale labels lookup results discarded because a newer request was issued.
	LookupStale = "stale"
	// LookupFailed labels lookups that returned an error.
	LookupFailed = "error"
)

var (
	windowFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repairdesk",
			Subsystem: "search",
			Name:      "window_fetches_total",
			Help:      "Record window fetches, partitioned by record kind, operation and outcome.",
		},
		[]string{"kind", "op", "outcome"},
	)

	windowFetchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "repairdesk",
			Subsystem: "search",
			Name:      "window_fetch_seconds",
			Help:      "Record window fetch latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15},
		},
		[]string{"kind", "op"},
	)

	windowRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "repairdesk",
			Subsystem: "search",
			Name:      "window_records",
			Help:      "Records held by the most recently replaced window.",
		},
		[]string{"kind"},
	)

	responseShapesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repairdesk",
			Subsystem: "service",
			Name:      "response_shapes_total",
			Help:      "List responses by detected payload shape.",
		},
		[]string{"shape"},
	)

	recomputeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "repairdesk",
			Subsystem: "search",
			Name:      "recompute_seconds",
			Help:      "Filter and facet recomputation latency in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
	)

	lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repairdesk",
			Subsystem: "lookup",
			Name:      "requests_total",
			Help:      "Debounced directory lookups by directory and outcome.",
		},
		[]string{"directory", "outcome"},
	)
)

// Register attaches repairdesk collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		windowFetchesTotal,
		windowFetchSeconds,
		windowRecords,
		responseShapesTotal,
		recomputeSeconds,
		lookupsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveWindowFetch records a window fetch duration and outcome label.
func ObserveWindowFetch(kind, op string, duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	windowFetchesTotal.WithLabelValues(kind, op, label).Inc()
	if duration < 0 {
		duration = 0
	}
	windowFetchSeconds.WithLabelValues(kind, op).Observe(duration.Seconds())
}

// SetWindowSize records how many records the current window holds.
func SetWindowSize(kind string, n int) {
	windowRecords.WithLabelValues(kind).Set(float64(n))
}

// ObserveResponseShape counts which payload shape the record service returned.
func ObserveResponseShape(shape string) {
	responseShapesTotal.WithLabelValues(shape).Inc()
}

// ObserveRecompute records one filter-and-aggregate pass.
func ObserveRecompute(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	recomputeSeconds.Observe(duration.Seconds())
}

// ObserveLookup counts a completed directory lookup.
func ObserveLookup(directory, outcome string) {
	lookupsTotal.WithLabelValues(directory, outcome).Inc()
}
