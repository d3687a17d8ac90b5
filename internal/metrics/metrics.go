// Package metrics exposes prometheus counters for the voucher engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics records engine-level events.
type Metrics struct {
	Submissions  *prometheus.CounterVec
	Postings     *prometheus.CounterVec
	RemoteErrors prometheus.Counter
}

// New registers the engine counters on a fresh registry and returns both.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voucherd_submissions_total",
			Help: "Voucher drafts successfully submitted, by voucher type.",
		}, []string{"voucher_type"}),
		Postings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voucherd_postings_total",
			Help: "Post and unpost operations completed, by action.",
		}, []string{"action"}),
		RemoteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voucherd_remote_errors_total",
			Help: "Failed calls to the accounting API.",
		}),
	}
	reg.MustRegister(m.Submissions, m.Postings, m.RemoteErrors)
	return m, reg
}

// Module provides the metrics recorder and its registry.
var Module = fx.Module("metrics",
	fx.Provide(New),
)
