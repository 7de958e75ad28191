package api

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/evanxg852000/p2p-handshake/pkg/handshake"
)

// Metrics holds the Prometheus collectors for the probe service.
//
// Exposed series:
//
//	handshake_probes_total{result="success|transporterror|timeout|protocolerror|dialfailure"}
//	handshake_probe_duration_seconds
type Metrics struct {
	probesTotal   *prometheus.CounterVec
	probeDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "handshake",
			Name:      "probes_total",
			Help:      "Handshake probes by result.",
		}, []string{"result"}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "handshake",
			Name:      "probe_duration_seconds",
			Help:      "Time spent performing handshake probes.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.probesTotal, m.probeDuration)
	return m
}

// Observe records one finished probe.
func (m *Metrics) Observe(o *handshake.Outcome) {
	result := "success"
	if !o.OK {
		result = strings.ToLower(o.Kind.String())
	}
	m.probesTotal.WithLabelValues(result).Inc()
	m.probeDuration.Observe(o.Elapsed.Seconds())
}

// ObserveDialFailure records a probe that never reached the exchange.
func (m *Metrics) ObserveDialFailure() {
	m.probesTotal.WithLabelValues("dialfailure").Inc()
}
