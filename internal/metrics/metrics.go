// Package metrics exposes Prometheus counters for a parlink transfer:
// blocks sent/received, retransmissions, NAKs, CRC failures, and
// checkpoint saves.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the counters for one sender or receiver process.
type Collector struct {
	BlocksSent        prometheus.Counter
	BlocksReceived    prometheus.Counter
	Retransmissions   prometheus.Counter
	NAKsReceived      prometheus.Counter
	CRCFailures       prometheus.Counter
	CheckpointsSaved  prometheus.Counter
	registry          *prometheus.Registry
}

// NewCollector builds a Collector with its own registry (not the global
// default one, so a sender and a receiver in the same process, or
// repeated test construction, never collide on metric names).
func NewCollector(role string) *Collector {
	labels := prometheus.Labels{"role": role}

	c := &Collector{
		BlocksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "parlink_blocks_sent_total",
			Help:        "Data blocks written to the transport.",
			ConstLabels: labels,
		}),
		BlocksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "parlink_blocks_received_total",
			Help:        "Data blocks accepted and written to the output file.",
			ConstLabels: labels,
		}),
		Retransmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "parlink_retransmissions_total",
			Help:        "Data blocks retransmitted after a timeout or NAK.",
			ConstLabels: labels,
		}),
		NAKsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "parlink_naks_received_total",
			Help:        "NAK responses received by the sender.",
			ConstLabels: labels,
		}),
		CRCFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "parlink_crc_failures_total",
			Help:        "Data blocks rejected for a CRC-32 mismatch.",
			ConstLabels: labels,
		}),
		CheckpointsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "parlink_checkpoints_saved_total",
			Help:        "Checkpoint file writes performed by the receiver.",
			ConstLabels: labels,
		}),
		registry: prometheus.NewRegistry(),
	}

	c.registry.MustRegister(
		c.BlocksSent,
		c.BlocksReceived,
		c.Retransmissions,
		c.NAKsReceived,
		c.CRCFailures,
		c.CheckpointsSaved,
	)
	return c
}

// Handler returns an http.Handler serving this Collector's metrics in
// the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing Handler at /metrics on addr. It
// blocks until the server stops or fails; callers typically run it in
// its own goroutine.
func (c *Collector) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return http.ListenAndServe(addr, mux)
}
