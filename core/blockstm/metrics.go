package blockstm

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ExecutionStat records the wall-clock window, in nanoseconds since the
// batch started, that one incarnation's Execute call occupied. It is kept
// per transaction index (the latest incarnation overwrites the previous
// one) purely for the DAG critical-path report; it plays no role in
// correctness.
type ExecutionStat struct {
	Start, End uint64
}

// Metrics is the process-wide observability surface for every batch run in
// this process: counts of executions, aborts, validation failures, and a
// histogram of batch wall-clock duration, registered once and reused across
// batches the way a long-lived server registers its collectors once at
// startup.
type Metrics struct {
	Executions        prometheus.Counter
	Aborts            prometheus.Counter
	ValidationFailures prometheus.Counter
	Commits            prometheus.Counter
	BatchDuration      prometheus.Histogram

	mu    sync.Mutex
	stats map[int]ExecutionStat
}

// NewMetrics constructs and registers a fresh collector set against reg.
// Passing prometheus.NewRegistry() isolates a test or a single batch run;
// passing the default registry makes the batch show up alongside the rest
// of a host process's metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Executions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockstm", Name: "executions_total",
			Help: "Number of transaction execution attempts (across all incarnations).",
		}),
		Aborts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockstm", Name: "aborts_total",
			Help: "Number of executed incarnations invalidated by a failed validation.",
		}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockstm", Name: "validation_failures_total",
			Help: "Number of validation attempts that found a stale read.",
		}),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockstm", Name: "commits_total",
			Help: "Number of transactions whose final incarnation committed.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blockstm", Name: "batch_duration_seconds",
			Help:    "Wall-clock duration of a full batch run.",
			Buckets: prometheus.DefBuckets,
		}),
		stats: make(map[int]ExecutionStat),
	}

	reg.MustRegister(m.Executions, m.Aborts, m.ValidationFailures, m.Commits, m.BatchDuration)

	return m
}

func (m *Metrics) recordStat(txnIdx int, s ExecutionStat) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats[txnIdx] = s
}

// Stats returns a snapshot of the latest recorded execution window per
// transaction, suitable for DAG.Report.
func (m *Metrics) Stats() map[int]ExecutionStat {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int]ExecutionStat, len(m.stats))
	for k, v := range m.stats {
		out[k] = v
	}

	return out
}
