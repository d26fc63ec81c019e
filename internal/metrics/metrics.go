package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	capabilityLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snappdf",
			Name:      "capability_loads_total",
			Help:      "Capability load attempts by capability and result",
		},
		[]string{"capability", "result"},
	)

	sessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snappdf",
			Name:      "export_sessions_total",
			Help:      "Export sessions by outcome (done, failed, busy) and error kind",
		},
		[]string{"outcome", "kind"},
	)

	sessionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "snappdf",
			Name:      "export_session_duration_seconds",
			Help:      "Duration of export sessions from click to completion",
			Buckets:   prometheus.DefBuckets,
		},
	)

	pagesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "snappdf",
			Name:      "pages_written_total",
			Help:      "Total output pages delivered",
		},
	)

	bindings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "snappdf",
			Name:      "trigger_bindings_total",
			Help:      "Times the trigger control was (re)bound",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(capabilityLoads, sessions, sessionLatency, pagesWritten, bindings)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncCapabilityLoad(capability, result string) {
	capabilityLoads.WithLabelValues(capability, result).Inc()
}

func ObserveSession(outcome, kind string, dur time.Duration) {
	sessions.WithLabelValues(outcome, kind).Inc()
	sessionLatency.Observe(dur.Seconds())
}

func AddPages(n int) { pagesWritten.Add(float64(n)) }

func IncBinding() { bindings.Inc() }
