package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	requestDuration *prom.HistogramVec
	errorKinds      *prom.CounterVec
	syncDuration    *prom.HistogramVec
	cratesTotal     prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.requestDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docserve",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests by route and status",
			Buckets:   prom.DefBuckets,
		}, []string{"route", "status"})
		pr.errorKinds = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docserve",
			Name:      "error_kinds_total",
			Help:      "Classified request failures by taxonomy kind",
		}, []string{"kind"})
		pr.syncDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docserve",
			Name:      "registry_sync_duration_seconds",
			Help:      "Duration of registry sync runs",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		pr.cratesTotal = prom.NewGauge(prom.GaugeOpts{
			Namespace: "docserve",
			Name:      "crates_total",
			Help:      "Number of crates known to the metadata database",
		})
		reg.MustRegister(pr.requestDuration, pr.errorKinds, pr.syncDuration, pr.cratesTotal)
	})
	return pr
}

func (pr *PrometheusRecorder) ObserveRequestDuration(route string, status int, d time.Duration) {
	pr.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (pr *PrometheusRecorder) IncErrorKind(kind string) {
	pr.errorKinds.WithLabelValues(kind).Inc()
}

func (pr *PrometheusRecorder) ObserveSyncDuration(d time.Duration, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	pr.syncDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (pr *PrometheusRecorder) SetCratesTotal(n int) {
	pr.cratesTotal.Set(float64(n))
}

// HTTPHandler returns an http.Handler serving Prometheus metrics for the
// provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
