package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Shard actions pre-registered so /metrics lists them before the first transition.
var shardActions = []string{"started", "updated", "paused", "errored", "stopped", "high_water_mark"}

var (
	initOnce sync.Once

	shardTransitionsCounter *prometheus.CounterVec
	shardProgressGauge      *prometheus.GaugeVec
	highWaterMarkGauge      *prometheus.GaugeVec
	highestSequenceGauge    *prometheus.GaugeVec
	batchApplyDuration      *prometheus.HistogramVec
	batchEventsCounter      *prometheus.CounterVec
	batchRetriesCounter     *prometheus.CounterVec
	leadershipGauge         *prometheus.GaugeVec
)

// Init registers metrics on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		shardTransitionsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projection_shard_transitions_total",
				Help: "Total number of published shard state changes by action.",
			},
			[]string{"action"},
		)

		shardProgressGauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "projection_shard_sequence",
				Help: "Last sequence committed by each shard.",
			},
			[]string{"shard", "database"},
		)

		highWaterMarkGauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "projection_high_water_mark",
				Help: "Highest sequence below which the event log has no gaps.",
			},
			[]string{"database"},
		)

		highestSequenceGauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "projection_highest_assigned_sequence",
				Help: "Highest sequence handed out by the event store.",
			},
			[]string{"database"},
		)

		batchApplyDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "projection_batch_apply_duration_seconds",
				Help:    "Duration of applying and committing one batch in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"shard"},
		)

		batchEventsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projection_events_applied_total",
				Help: "Total number of events applied by each shard.",
			},
			[]string{"shard"},
		)

		batchRetriesCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projection_batch_retries_total",
				Help: "Total number of retried batch attempts by error kind.",
			},
			[]string{"kind"},
		)

		leadershipGauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "projection_daemon_leader",
				Help: "1 when this node holds the daemon lease for the database.",
			},
			[]string{"database"},
		)

		prometheus.MustRegister(
			shardTransitionsCounter,
			shardProgressGauge,
			highWaterMarkGauge,
			highestSequenceGauge,
			batchApplyDuration,
			batchEventsCounter,
			batchRetriesCounter,
			leadershipGauge,
		)

		for _, action := range shardActions {
			shardTransitionsCounter.WithLabelValues(action)
		}
	})
}

func IncShardTransition(action string) {
	Init()
	shardTransitionsCounter.WithLabelValues(action).Inc()
}

func SetShardSequence(shard, database string, sequence int64) {
	Init()
	shardProgressGauge.WithLabelValues(shard, database).Set(float64(sequence))
}

func SetHighWater(database string, mark, highest int64) {
	Init()
	highWaterMarkGauge.WithLabelValues(database).Set(float64(mark))
	highestSequenceGauge.WithLabelValues(database).Set(float64(highest))
}

func ObserveBatchApply(shard string, events int, d time.Duration) {
	Init()
	batchApplyDuration.WithLabelValues(shard).Observe(d.Seconds())
	batchEventsCounter.WithLabelValues(shard).Add(float64(events))
}

func IncBatchRetry(kind string) {
	Init()
	batchRetriesCounter.WithLabelValues(kind).Inc()
}

func SetLeader(database string, leader bool) {
	Init()
	v := 0.0
	if leader {
		v = 1
	}
	leadershipGauge.WithLabelValues(database).Set(v)
}
