package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIMetrics собирает метрики REST API симуляции.
// route: шаблон маршрута gin (/api/pilots/:id), для неизвестных путей "unmatched".
type APIMetrics struct {
	latency    *prometheus.HistogramVec // {route}
	inflight   prometheus.Gauge
	rejections *prometheus.CounterVec // {route,reason}
	commands   *prometheus.CounterVec // {route,outcome}: изменяющие мир запросы
}

// NewAPIMetrics регистрирует метрики в reg, nil: регистр по умолчанию
func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &APIMetrics{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pilotsim",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Время ответа API, включая ожидание кадра симуляции.",
			Buckets:   []float64{0.001, 0.005, 0.02, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pilotsim",
			Subsystem: "api",
			Name:      "inflight_requests",
			Help:      "Запросы в обработке.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pilotsim",
			Subsystem: "api",
			Name:      "rejections_total",
			Help:      "Отклонённые запросы по причине.",
		}, []string{"route", "reason"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pilotsim",
			Subsystem: "api",
			Name:      "world_commands_total",
			Help:      "Команды миру через API: applied или rejected.",
		}, []string{"route", "outcome"}),
	}
	reg.MustRegister(m.latency, m.inflight, m.rejections, m.commands)
	return m
}

// Handler возвращает gin.HandlerFunc для router.Use()
func (m *APIMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())

		reason := rejectionReason(status)
		if reason != "" {
			m.rejections.WithLabelValues(route, reason).Inc()
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			outcome := "applied"
			if reason != "" {
				outcome = "rejected"
			}
			m.commands.WithLabelValues(route, outcome).Inc()
		}
	}
}

// rejectionReason переводит код ответа в причину отказа, "" для успеха
func rejectionReason(status int) string {
	switch {
	case status < 400:
		return ""
	case status == http.StatusBadRequest:
		return "invalid"
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return "denied"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusConflict:
		return "conflict"
	case status == http.StatusServiceUnavailable:
		return "busy"
	case status == http.StatusGatewayTimeout:
		return "timeout"
	default:
		return "error"
	}
}

// RegisterMetricsEndpoint добавляет GET /metrics, отдающий метрики из g
func RegisterMetricsEndpoint(r gin.IRouter, g prometheus.Gatherer) {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
