// Package metrics exposes the HTTP server and the simulation to prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the request and command instruments.
type Collector struct {
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	commandsTotal   *prometheus.CounterVec
	rateLimited     prometheus.Counter
	streamClients   prometheus.Gauge
}

// NewCollector creates the instruments and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	m := &Collector{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gravity_request_duration_seconds",
				Help:    "Time spent processing HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "code"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gravity_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "code"},
		),
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gravity_commands_total",
				Help: "Total number of commands executed over HTTP",
			},
			[]string{"command", "result"},
		),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gravity_commands_rate_limited_total",
			Help: "Commands rejected by the rate limiter",
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gravity_stream_clients",
			Help: "Connected live stream clients",
		}),
	}

	reg.MustRegister(
		m.requestDuration,
		m.requestsTotal,
		m.commandsTotal,
		m.rateLimited,
		m.streamClients,
	)

	return m
}

// RecordRequest observes one finished HTTP request.
func (m *Collector) RecordRequest(path string, code int, duration time.Duration) {
	c := strconv.Itoa(code)
	m.requestDuration.WithLabelValues(path, c).Observe(duration.Seconds())
	m.requestsTotal.WithLabelValues(path, c).Inc()
}

// RecordCommand counts a command by outcome.
func (m *Collector) RecordCommand(command string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commandsTotal.WithLabelValues(command, result).Inc()
}

// RecordRateLimited counts a rejected command.
func (m *Collector) RecordRateLimited() {
	m.rateLimited.Inc()
}

// StreamConnected and StreamDisconnected track live stream clients.
func (m *Collector) StreamConnected()    { m.streamClients.Inc() }
func (m *Collector) StreamDisconnected() { m.streamClients.Dec() }

// Handler serves g in the prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
