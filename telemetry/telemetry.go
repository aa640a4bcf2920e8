// Package telemetry is the engine's ambient observability surface: a small
// Logger interface every other package depends on (never a concrete
// logging library directly), plus the Prometheus metrics the orchestrator
// and its collaborators record. Grounded on the teacher's own
// streams/jsonrpc/client.Logger interface (repeated verbatim, package by
// package, across the teacher's tree) and its chains/ethereum.Client's use
// of prometheus.Registerer passed in from main rather than the default
// global registry being reached for directly.
package telemetry

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger is the leveled structured-logging surface the whole engine codes
// against. *slog.Logger satisfies it directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NewLogger builds the engine's root logger: JSON lines on stdout, matching
// the teacher's cmd/client/main.go exactly (slog.NewJSONHandler(os.Stdout,
// nil)), so the CLI entrypoint is the only place os.Stdout is named.
func NewLogger(handler slog.Handler) Logger {
	return slog.New(handler)
}

// DropReason labels why a found or candidate opportunity was never
// dispatched, for the dropped_opportunities_total counter.
type DropReason string

const (
	DropUnroutable       DropReason = "unroutable"
	DropBelowThreshold   DropReason = "below_threshold"
	DropDeadlineExceeded DropReason = "deadline_exceeded"
	DropQueueFull        DropReason = "outbox_queue_full"
	DropOverflow         DropReason = "overflow"
)

// Metrics bundles the counters and histograms the orchestrator records
// against. It is built once at
// startup over a caller-supplied prometheus.Registerer, exactly as the
// teacher's chains/ethereum.Dial takes a prometheusRegistry argument rather
// than registering against prometheus.DefaultRegisterer internally.
type Metrics struct {
	DroppedOpportunities *prometheus.CounterVec
	SearchLatency        prometheus.Histogram
	RefreshFailures      prometheus.Counter
	RefreshLatency       prometheus.Histogram
	BlockEventsTotal     prometheus.Counter
	PendingTxEventsTotal prometheus.Counter
	DispatchedTotal      prometheus.Counter
}

// NewMetrics registers every metric against reg and returns the bundle. A
// second call against the same registry for the same metric names panics,
// just as it would with the teacher's own prometheus.MustRegister calls —
// callers construct exactly one Metrics per process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DroppedOpportunities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fulcrum",
			Name:      "dropped_opportunities_total",
			Help:      "Opportunities found or candidate cycles dropped before dispatch, by reason.",
		}, []string{"reason"}),
		SearchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fulcrum",
			Name:      "search_latency_seconds",
			Help:      "Wall-clock time spent inside a single arbitrage search call.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 2, 20), // 1us .. ~0.5s
		}),
		RefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fulcrum",
			Name:      "refresh_failures_total",
			Help:      "Block-boundary refresh calls that returned an error; RPC and response-decode failures are logged by the refresher and not counted.",
		}),
		RefreshLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fulcrum",
			Name:      "refresh_latency_seconds",
			Help:      "Wall-clock time spent in a single block-boundary refresh.",
			Buckets:   prometheus.DefBuckets,
		}),
		BlockEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fulcrum",
			Name:      "block_events_total",
			Help:      "New block headers observed by the orchestrator.",
		}),
		PendingTxEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fulcrum",
			Name:      "pending_tx_events_total",
			Help:      "Pending-transaction events observed by the orchestrator.",
		}),
		DispatchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fulcrum",
			Name:      "dispatched_total",
			Help:      "Opportunities successfully handed to the outbox for execution.",
		}),
	}

	reg.MustRegister(
		m.DroppedOpportunities,
		m.SearchLatency,
		m.RefreshFailures,
		m.RefreshLatency,
		m.BlockEventsTotal,
		m.PendingTxEventsTotal,
		m.DispatchedTotal,
	)

	return m
}

// Drop is a small convenience wrapper so call sites read as a sentence
// ("metrics.Drop(telemetry.DropUnroutable)") instead of reaching into the
// vector directly.
func (m *Metrics) Drop(reason DropReason) {
	m.DroppedOpportunities.WithLabelValues(string(reason)).Inc()
}
