// Package metrics exposes Prometheus instruments for the reconciliation loops.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	loopLabel   = "loop"
	resultLabel = "result"
	sinkLabel   = "sink"
	reasonLabel = "reason"
)

var (
	cycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchyard_cycles_total",
			Help: "Completed reconciliation cycles",
		},
		[]string{loopLabel},
	)

	cycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "switchyard_cycle_duration_seconds",
			Help:    "Duration of reconciliation cycles",
			Buckets: prometheus.DefBuckets,
		},
		[]string{loopLabel},
	)

	triggersDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchyard_triggers_dropped_total",
			Help: "On-demand refreshes dropped because one was already pending",
		},
		[]string{loopLabel},
	)

	fetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchyard_manifest_fetches_total",
			Help: "Manifest fetches by outcome",
		},
		[]string{resultLabel},
	)

	sinkWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchyard_sink_writes_total",
			Help: "Routing configuration writes by sink and outcome",
		},
		[]string{sinkLabel, resultLabel},
	)

	routes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "switchyard_routes",
		Help: "Routes in the last compiled routing configuration",
	})

	services = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "switchyard_node_services",
		Help: "Services in the last node manifest",
	})

	endpoints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "switchyard_endpoints",
		Help: "Discovery endpoints in the endpoint store",
	})

	rejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchyard_http_rejected_total",
			Help: "Requests refused by access control or rate limiting",
		},
		[]string{reasonLabel},
	)

	subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "switchyard_ws_subscribers",
		Help: "Connected change-notification subscribers",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveCycle(loop string, seconds float64) {
	cycles.WithLabelValues(loop).Inc()
	cycleDuration.WithLabelValues(loop).Observe(seconds)
}

func TriggerDropped(loop string) {
	triggersDropped.WithLabelValues(loop).Inc()
}

func FetchResult(result string) {
	fetches.WithLabelValues(result).Inc()
}

func SinkWrite(sink string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	sinkWrites.WithLabelValues(sink, result).Inc()
}

// Rejected counts a request refused before reaching its handler.
func Rejected(reason string) {
	rejected.WithLabelValues(reason).Inc()
}

func SetRoutes(n int)      { routes.Set(float64(n)) }
func SetServices(n int)    { services.Set(float64(n)) }
func SetEndpoints(n int)   { endpoints.Set(float64(n)) }
func SetSubscribers(n int) { subscribers.Set(float64(n)) }
