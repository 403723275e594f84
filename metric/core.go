package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics (not component-specific)
type Metrics struct {
	// Service metrics
	ServiceStatus      *prometheus.GaugeVec
	DispatchesTotal    *prometheus.CounterVec
	DispatchDuration   *prometheus.HistogramVec
	AgentInvocations   *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	HealthCheckStatus  *prometheus.GaugeVec

	// Event bus metrics
	BusConnected           prometheus.Gauge
	BusReconnects          prometheus.Counter
	InvalidationsPublished prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Service metrics
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "datalink",
				Subsystem: "service",
				Name:      "status",
				Help:      "Service status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"service"},
		),

		DispatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "datalink",
				Subsystem: "dispatch",
				Name:      "total",
				Help:      "Total number of dispatched intents",
			},
			[]string{"agent", "outcome"},
		),

		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "datalink",
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Intent dispatch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"agent"},
		),

		AgentInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "datalink",
				Subsystem: "agents",
				Name:      "invocations_total",
				Help:      "Total number of agent executions (cache misses reach here)",
			},
			[]string{"agent", "status"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "datalink",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"service", "class"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "datalink",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"service"},
		),

		// Event bus metrics
		BusConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "datalink",
				Subsystem: "bus",
				Name:      "connected",
				Help:      "Invalidation bus connection status (0=disconnected, 1=connected)",
			},
		),

		BusReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "datalink",
				Subsystem: "bus",
				Name:      "reconnects_total",
				Help:      "Total number of invalidation bus reconnections",
			},
		),

		InvalidationsPublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "datalink",
				Subsystem: "bus",
				Name:      "invalidations_published_total",
				Help:      "Total number of cache invalidation events published",
			},
		),
	}
}

// RecordServiceStatus updates service status metric
func (c *Metrics) RecordServiceStatus(service string, status int) {
	c.ServiceStatus.WithLabelValues(service).Set(float64(status))
}

// RecordDispatch increments the dispatch counter for an agent and outcome
func (c *Metrics) RecordDispatch(agent, outcome string) {
	c.DispatchesTotal.WithLabelValues(agent, outcome).Inc()
}

// RecordDispatchDuration records end-to-end dispatch time
func (c *Metrics) RecordDispatchDuration(agent string, duration time.Duration) {
	c.DispatchDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordAgentInvocation increments the agent execution counter
func (c *Metrics) RecordAgentInvocation(agent, status string) {
	c.AgentInvocations.WithLabelValues(agent, status).Inc()
}

// RecordError increments error counter
func (c *Metrics) RecordError(service, class string) {
	c.ErrorsTotal.WithLabelValues(service, class).Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(service string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(service).Set(value)
}

// RecordBusStatus updates invalidation bus connection status
func (c *Metrics) RecordBusStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.BusConnected.Set(value)
}

// RecordBusReconnect increments reconnection counter
func (c *Metrics) RecordBusReconnect() {
	c.BusReconnects.Inc()
}

// RecordInvalidationPublished increments the published invalidation counter
func (c *Metrics) RecordInvalidationPublished() {
	c.InvalidationsPublished.Inc()
}
