// metrics — Prometheus-метрики сервиса (регистрируются в DefaultRegisterer,
// отдаются через promhttp на служебном HTTP).
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Authentication lifecycle events by outcome.",
	}, []string{"event", "result"})
)

// ObserveHTTP учитывает завершённый HTTP-запрос.
// route — шаблон маршрута chi (не сырой путь), чтобы не раздувать кардинальность.
func ObserveHTTP(method, route string, status int, dur time.Duration) {
	if route == "" {
		route = "unmatched"
	}

	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(dur.Seconds())
}

// AuthEvent учитывает событие жизненного цикла сессии (login/refresh/...).
func AuthEvent(event, result string) {
	authEvents.WithLabelValues(event, result).Inc()
}
