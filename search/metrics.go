package search

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks coverage and performance counters for a search run,
// grounded on graph/metrics.go's PrometheusMetrics: gauges for
// in-flight counts, a histogram for step latency, and counters for
// cumulative events, all namespaced "pexplore_".
type Metrics struct {
	verbosity int

	stepsTotal       prometheus.Counter
	distinctStates   prometheus.Counter
	backtracksTotal  prometheus.Counter
	iterationsTotal  prometheus.Counter
	pendingTasks     prometheus.Gauge
	stepLatency      prometheus.Histogram

	mu   sync.Mutex
	rows []progressRow
}

type progressRow struct {
	iter           int
	depth          int
	distinctStates int
	pendingTasks   int
	result         string
}

// NewMetrics registers pexplore_* metrics against registry, mirroring
// graph.NewPrometheusMetrics's registry parameter: passing a fresh
// prometheus.NewRegistry() per Scheduler avoids the "duplicate metrics
// collector registration" panic that a shared DefaultRegisterer would
// hit once more than one Scheduler exists in a process (e.g. in
// tests). A nil registry falls back to prometheus.DefaultRegisterer.
func NewMetrics(verbosity int, registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		verbosity: verbosity,
		stepsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pexplore_steps_total",
			Help: "Total scheduling steps taken across all iterations.",
		}),
		distinctStates: factory.NewCounter(prometheus.CounterOpts{
			Name: "pexplore_distinct_states_total",
			Help: "Total distinct states discovered by StateCache.",
		}),
		backtracksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pexplore_backtracks_total",
			Help: "Total backtrack restorations performed.",
		}),
		iterationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pexplore_iterations_total",
			Help: "Total do_search iterations completed.",
		}),
		pendingTasks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pexplore_pending_backtrack_tasks",
			Help: "Current number of pending BacktrackTasks.",
		}),
		stepLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pexplore_step_latency_ms",
			Help:    "Per-step wall-clock latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
	}
}

// RecordStep updates step-level counters.
func (m *Metrics) RecordStep(latency time.Duration, distinct bool) {
	m.stepsTotal.Inc()
	m.stepLatency.Observe(float64(latency.Milliseconds()))
	if distinct {
		m.distinctStates.Inc()
	}
}

// RecordBacktrack increments the backtrack counter.
func (m *Metrics) RecordBacktrack() {
	m.backtracksTotal.Inc()
}

// RecordIteration increments the iteration counter and appends a
// progress row for RenderProgress.
func (m *Metrics) RecordIteration(iter, depth, distinctStates, pendingTasks int, result string) {
	m.iterationsTotal.Inc()
	m.pendingTasks.Set(float64(pendingTasks))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, progressRow{
		iter: iter, depth: depth, distinctStates: distinctStates,
		pendingTasks: pendingTasks, result: result,
	})
}

// RenderProgress writes a human-readable progress table to w, gated by
// verbosity the way the teacher's LogEmitter text mode is gated by
// caller-chosen granularity. Only active at Verbosity >= 3.
func (m *Metrics) RenderProgress(w io.Writer) {
	if m.verbosity < 3 {
		return
	}
	m.mu.Lock()
	rows := append([]progressRow(nil), m.rows...)
	m.mu.Unlock()

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Iter", "Depth", "Distinct", "Pending", "Result"})
	for _, r := range rows {
		table.Append([]string{
			fmt.Sprintf("%d", r.iter),
			fmt.Sprintf("%d", r.depth),
			fmt.Sprintf("%d", r.distinctStates),
			fmt.Sprintf("%d", r.pendingTasks),
			r.result,
		})
	}
	table.Render()
}
