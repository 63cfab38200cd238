package btr

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "btree_reserve"

// Metrics exports node reserve counters to Prometheus. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	inserts    prometheus.Counter
	deletes    prometheus.Counter
	merges     prometheus.Counter
	entries    prometheus.Gauge
	extensions prometheus.Counter
	outOfSpace prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ledger_inserts_total",
			Help:      "Reservations installed as new ledger records.",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ledger_deletes_total",
			Help:      "Ledger records removed by release.",
		}),
		merges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ledger_merges_total",
			Help:      "Reservations folded into an existing record.",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "ledger_entries",
			Help:      "Outstanding ledger records.",
		}),
		extensions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tree_extensions_total",
			Help:      "Tree files grown to cover a reservation.",
		}),
		outOfSpace: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "out_of_space_total",
			Help:      "Reservations refused for lack of volume space.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.inserts, m.deletes, m.merges, m.entries, m.extensions, m.outOfSpace} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "btr: register reserve metrics")
		}
	}
	return m, nil
}

func (m *Metrics) inserted() {
	if m == nil {
		return
	}
	m.inserts.Inc()
	m.entries.Inc()
}

func (m *Metrics) deleted() {
	if m == nil {
		return
	}
	m.deletes.Inc()
	m.entries.Dec()
}

func (m *Metrics) merged() {
	if m == nil {
		return
	}
	m.merges.Inc()
}

func (m *Metrics) extended() {
	if m == nil {
		return
	}
	m.extensions.Inc()
}

func (m *Metrics) refused() {
	if m == nil {
		return
	}
	m.outOfSpace.Inc()
}
