// ABOUTME: Prometheus collector exposing the delegation counters on /metrics.
// ABOUTME: Reads the same atomics as Snapshot; collection never mutates state.

package stats

import "github.com/prometheus/client_golang/prometheus"

// Collector adapts Counters to the prometheus.Collector interface so the
// gateway can expose them without a second set of bookkeeping.
type Collector struct {
	counters *Counters

	commandsDesc       *prometheus.Desc
	delegatedDesc      *prometheus.Desc
	clarificationsDesc *prometheus.Desc
}

// NewCollector creates a collector reading from the given counters.
func NewCollector(c *Counters) *Collector {
	return &Collector{
		counters: c,
		commandsDesc: prometheus.NewDesc(
			"parley_commands_handled_total",
			"Messages handled locally by the proxy as commands.",
			nil, nil,
		),
		delegatedDesc: prometheus.NewDesc(
			"parley_delegated_total",
			"Messages delegated to a specialized agent.",
			nil, nil,
		),
		clarificationsDesc: prometheus.NewDesc(
			"parley_clarifications_requested_total",
			"Messages answered with a clarification prompt instead of delegation.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (col *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- col.commandsDesc
	ch <- col.delegatedDesc
	ch <- col.clarificationsDesc
}

// Collect implements prometheus.Collector.
func (col *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := col.counters.Snapshot()
	ch <- prometheus.MustNewConstMetric(col.commandsDesc, prometheus.CounterValue, float64(snap.CommandsHandled))
	ch <- prometheus.MustNewConstMetric(col.delegatedDesc, prometheus.CounterValue, float64(snap.Delegated))
	ch <- prometheus.MustNewConstMetric(col.clarificationsDesc, prometheus.CounterValue, float64(snap.ClarificationsRequested))
}
