// Package metrics constructs the metrics the node exposes through the
// prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledger"

// Chain represents the chain values the metrics report on every scrape.
type Chain interface {
	BlockHeight() uint64
	QueryUTXOCount() int
	QueryMempoolLength() int
}

// Metrics represents the set of metrics we gather. Each value is safe for
// concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	Requests  prometheus.Counter
	Errors    prometheus.Counter
	Panics    prometheus.Counter
	Blocks    *prometheus.CounterVec
	Txs       *prometheus.CounterVec
	Retargets prometheus.Counter
}

// New constructs the metrics against a private registry. The chain gauges
// are added by RegisterChain once the chain exists.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	m := Metrics{
		registry: reg,
		Requests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of http requests served",
		}),
		Errors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Number of http requests that failed",
		}),
		Panics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_panics_total",
			Help:      "Number of http requests that panicked",
		}),
		Blocks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_total",
			Help:      "Number of blocks submitted by result",
		}, []string{"result"}),
		Txs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Number of transactions submitted by result",
		}, []string{"result"}),
		Retargets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retargets_total",
			Help:      "Number of difficulty adjustments applied",
		}),
	}

	return &m
}

// RegisterChain adds the gauges that read the chain on each scrape. It must
// be called at most once.
func (m *Metrics) RegisterChain(chain Chain) {
	factory := promauto.With(m.registry)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "block_height",
		Help:      "Number of blocks in the chain",
	}, func() float64 { return float64(chain.BlockHeight()) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "utxos",
		Help:      "Number of unspent transaction outputs",
	}, func() float64 { return float64(chain.QueryUTXOCount()) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mempool_transactions",
		Help:      "Number of transactions waiting in the mempool",
	}, func() float64 { return float64(chain.QueryMempoolLength()) })
}

// Retargeted records a difficulty adjustment.
func (m *Metrics) Retargeted() {
	m.Retargets.Inc()
}

// BlockAccepted records the outcome of a submitted block.
func (m *Metrics) BlockAccepted(err error) {
	m.Blocks.WithLabelValues(result(err)).Inc()
}

// TxSubmitted records the outcome of a submitted transaction.
func (m *Metrics) TxSubmitted(err error) {
	m.Txs.WithLabelValues(result(err)).Inc()
}

// Handler returns the scrape endpoint for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func result(err error) string {
	if err != nil {
		return "rejected"
	}
	return "accepted"
}
