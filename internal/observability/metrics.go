package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace defines the global prefix for all metrics (e.g., skuld_...).
const namespace = "skuld"

// lowLatencyBuckets defines custom buckets for flag evaluation requests.
// Standard buckets are too coarse (starting at 5ms), so we add 1ms and 2ms
// resolution. Range: 1ms to 500ms.
var lowLatencyBuckets = []float64{.001, .002, .005, .010, .015, .020, .025, .030, .050, .100, .500}

var (
	// -------------------------------------------------------------------------
	// DATA PLANE (gRPC + evaluation)
	// -------------------------------------------------------------------------

	// DataPlaneGrpcDuration measures the latency of gRPC evaluate requests.
	// Metric: skuld_data_plane_grpc_handling_seconds
	DataPlaneGrpcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "grpc_handling_seconds",
		Help:      "Time taken to handle gRPC evaluate requests",
		Buckets:   lowLatencyBuckets,
	}, []string{"method", "code"})

	// DataPlaneGrpcTotal counts the total number of gRPC requests.
	// Metric: skuld_data_plane_grpc_requests_total
	DataPlaneGrpcTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "grpc_requests_total",
		Help:      "Total gRPC evaluate requests",
	}, []string{"method", "code"})

	// EvaluationsTotal counts per-flag evaluation outcomes by match reason
	// (condition_match, out_of_rollout_bound, no_condition_match, ...).
	// Metric: skuld_data_plane_evaluations_total
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "evaluations_total",
		Help:      "Total flag evaluations by match reason",
	}, []string{"reason"})

	// EvaluationErrorsTotal counts batches that set errors_while_computing.
	EvaluationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "evaluation_errors_total",
		Help:      "Total evaluation batches completed with partial errors",
	})

	// --- Snapshot cache metrics ---

	SnapshotL1Hits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "snapshot_l1_hits_total",
		Help:      "Total team snapshot lookups served from the in-memory cache",
	})

	SnapshotL1Misses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "snapshot_l1_misses_total",
		Help:      "Total team snapshot lookups that missed the in-memory cache",
	})

	SnapshotL2Hits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "snapshot_l2_hits_total",
		Help:      "Total team snapshot lookups served from Redis",
	})

	SnapshotL2Misses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "snapshot_l2_misses_total",
		Help:      "Total team snapshot lookups that fell through to PostgreSQL",
	})

	SnapshotInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "snapshot_invalidations_total",
		Help:      "Total snapshot invalidation events received via PubSub",
	})

	// --- Experience continuity ---

	OverrideUpsertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "override_upserts_total",
		Help:      "Total hash key override writes by outcome",
	}, []string{"outcome"}) // inserted, existing, retried, failed

	// -------------------------------------------------------------------------
	// SYNCER (background propagation)
	// -------------------------------------------------------------------------

	// SyncerCycleDuration measures a full poll-and-publish cycle.
	// Metric: skuld_syncer_cycle_duration_seconds
	SyncerCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "cycle_duration_seconds",
		Help:      "Time taken for one change detection and propagation cycle",
		Buckets:   prometheus.DefBuckets,
	})

	SyncerCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "cycles_total",
		Help:      "Total propagation cycles by status",
	}, []string{"status"}) // success, fail

	SyncerTeamsSynced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "teams_synced_total",
		Help:      "Total team snapshots rebuilt and published",
	})
)
