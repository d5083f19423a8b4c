package xui

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer получает результат каждого запроса к панели. code пустой при успехе.
type Observer interface {
	ObserveRequest(op, code string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, time.Duration) {}

// PrometheusObserver считает запросы к панели и их длительность
type PrometheusObserver struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusObserver регистрирует метрики в reg
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	o := &PrometheusObserver{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vpnbot",
			Subsystem: "xui",
			Name:      "requests_total",
			Help:      "Requests to the 3x-ui panel by operation and result code.",
		}, []string{"op", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vpnbot",
			Subsystem: "xui",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests to the 3x-ui panel.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(o.requests, o.duration)
	return o
}

func (o *PrometheusObserver) ObserveRequest(op, code string, d time.Duration) {
	if code == "" {
		code = "ok"
	}
	o.requests.WithLabelValues(op, code).Inc()
	o.duration.WithLabelValues(op).Observe(d.Seconds())
}
