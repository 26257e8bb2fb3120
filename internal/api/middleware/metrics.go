// metrics.go — Prometheus HTTP метрики: fs_http_requests_total,
// fs_http_request_duration_seconds. Ключи файлов в путях заменяются
// шаблоном, чтобы не раздувать кардинальность.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fs_http_requests_total",
			Help: "HTTP-запросы по маршруту и статусу",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fs_http_request_duration_seconds",
			Help:    "Длительность обработки HTTP-запроса, секунды",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"method", "path"},
	)

	httpResponseBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fs_http_response_bytes_total",
			Help: "Объём тел HTTP-ответов в байтах",
		},
		[]string{"path"},
	)
)

// MetricsMiddleware считает запросы, длительность и отданные байты по маршруту.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := normalizePath(r.URL.Path)
			rec := recordResponse(w)

			next.ServeHTTP(rec, r)

			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			httpResponseBytes.WithLabelValues(route).Add(float64(rec.written))
		})
	}
}

// normalizePath приводит путь к шаблону маршрута.
// /f/abc/docs/a.txt → /f/{key}; неизвестные пути → /other.
func normalizePath(path string) string {
	switch path {
	case "/upload", "/list", "/health/live", "/health/ready", "/metrics":
		return path
	}
	if strings.HasPrefix(path, "/f/") {
		return "/f/{key}"
	}
	return "/other"
}
