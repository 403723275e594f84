// Package metric provides Prometheus-based metrics collection and HTTP server
// for datalink monitoring and observability.
//
// The package offers a centralized metrics registry managing both core metrics
// (service status, dispatch outcomes, agent invocations, event bus health) and
// custom service-specific metrics. It includes an HTTP server exposing metrics
// in Prometheus format for monitoring system integration.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: Platform-level metrics automatically registered (Metrics type)
//  2. Service Registry: Extensible registration for service-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: Metrics endpoint with health checks (Server type)
//
// This architecture separates infrastructure concerns (core metrics) from
// application concerns (service-specific metrics) while providing a unified
// metrics endpoint for monitoring systems.
//
// # Basic Usage
//
// Setting up metrics collection and HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil && err != http.ErrServerClosed {
//	        log.Printf("Metrics server error: %v", err)
//	    }
//	}()
//
//	// Record core metrics
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordServiceStatus("dispatcher", 2)
//	coreMetrics.RecordDispatch("fetch-weather", "hit")
//	coreMetrics.RecordBusStatus(true)
//
// The metrics server will expose Prometheus-formatted metrics at http://localhost:9090/metrics
// and a health check at http://localhost:9090/health.
//
// # Core Metrics
//
// The package automatically registers core metrics tracking:
//
//   - Service lifecycle: service_status (0=stopped, 1=starting, 2=running, 3=stopping)
//   - Dispatch flow: dispatch_total{agent,outcome}, dispatch_duration_seconds{agent}
//   - Agent execution: agents_invocations_total{agent,status}
//   - Error tracking: errors_total{service,class}
//   - Event bus connectivity: bus_connected, bus_reconnects_total
//   - Cache invalidation fan-out: bus_invalidations_published_total
//
// Access core metrics through the registry:
//
//	coreMetrics := registry.CoreMetrics()
//
//	// Service lifecycle tracking
//	coreMetrics.RecordServiceStatus("dispatcher", 2) // 2 = running
//
//	// Dispatch flow metrics
//	coreMetrics.RecordDispatch("fetch-weather", "miss")
//	coreMetrics.RecordDispatchDuration("fetch-weather", 150*time.Millisecond)
//	coreMetrics.RecordAgentInvocation("fetch-weather", "success")
//
//	// Event bus connectivity
//	coreMetrics.RecordBusStatus(true)
//	coreMetrics.RecordBusReconnect()
//
//	// Error tracking
//	coreMetrics.RecordError("dispatcher", "invalid")
//
// # Service-Specific Metrics
//
// Services can register custom metrics through the registry:
//
//	// Register a counter
//	coercionCounter := prometheus.NewCounter(prometheus.CounterOpts{
//	    Name: "coercion_failures_total",
//	    Help: "Total number of record coercion failures",
//	})
//	err := registry.RegisterCounter("synthesizer", "coercion_failures_total", coercionCounter)
//
//	// Register a gauge
//	cacheSize := prometheus.NewGauge(prometheus.GaugeOpts{
//	    Name: "cache_entries",
//	    Help: "Number of live cache entries",
//	})
//	err = registry.RegisterGauge("cache", "cache_entries", cacheSize)
//
//	// Register a histogram
//	learnDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
//	    Name:    "learn_duration_seconds",
//	    Help:    "Time spent profiling record batches",
//	    Buckets: prometheus.DefBuckets,
//	})
//	err = registry.RegisterHistogram("learner", "learn_duration_seconds", learnDuration)
//
// # Vector Metrics with Labels
//
// Register metrics with labels for multi-dimensional data:
//
//	// Counter with labels
//	connectorFetches := prometheus.NewCounterVec(
//	    prometheus.CounterOpts{
//	        Name: "connector_fetches_total",
//	        Help: "Total connector fetches by connector and result",
//	    },
//	    []string{"connector", "result"},
//	)
//	err := registry.RegisterCounterVec("connectors", "connector_fetches_total", connectorFetches)
//
//	// Use the metric with specific label values
//	connectorFetches.WithLabelValues("rest-api", "ok").Inc()
//	connectorFetches.WithLabelValues("sql-query", "error").Inc()
//
// # HTTP Server
//
// The metrics server provides three endpoints:
//
//   - GET / - HTML page with links to metrics and health endpoints
//   - GET /metrics - Prometheus-formatted metrics (default path, configurable)
//   - GET /health - plain health check response
//
// Server configuration:
//
//	// Default configuration (port 9090, path /metrics)
//	server := metric.NewServer(0, "", registry)
//
//	// Custom configuration
//	server := metric.NewServer(8080, "/prometheus", registry)
//
//	// Start server (blocking)
//	if err := server.Start(); err != nil {
//	    log.Fatalf("Failed to start metrics server: %v", err)
//	}
//
//	// Stop server (in another goroutine)
//	if err := server.Stop(); err != nil {
//	    log.Printf("Error stopping server: %v", err)
//	}
//
// # Prometheus Integration
//
// The package uses the official Prometheus Go client library and exposes
// metrics in OpenMetrics format. Configure Prometheus to scrape the endpoint:
//
//	# prometheus.yml
//	scrape_configs:
//	  - job_name: 'datalink'
//	    static_configs:
//	      - targets: ['localhost:9090']
//	    metrics_path: '/metrics'
//	    scrape_interval: 15s
//
// All core metrics use the namespace "datalink" and appropriate subsystems:
//   - datalink_service_status{service="..."}
//   - datalink_dispatch_total{agent="...",outcome="..."}
//   - datalink_bus_connected
//
// Service-specific metrics use the metric name as provided during registration.
//
// # MetricsRegistrar Interface
//
// Services implement against the MetricsRegistrar interface for dependency
// injection:
//
//	type Usage struct {
//	    metrics metric.MetricsRegistrar
//	}
//
//	func NewUsage(metrics metric.MetricsRegistrar) *Usage {
//	    counter := prometheus.NewCounter(prometheus.CounterOpts{
//	        Name: "connector_uses_total",
//	        Help: "Total connector uses",
//	    })
//	    metrics.RegisterCounter("connectors", "connector_uses_total", counter)
//
//	    return &Usage{metrics: metrics}
//	}
//
// This enables testing with mock registrars and provides loose coupling.
//
// # Thread Safety
//
// All registry operations are thread-safe:
//   - Registration methods use mutex protection
//   - Metric recording is lock-free (Prometheus guarantee)
//   - CoreMetrics() returns a thread-safe shared instance
//   - PrometheusRegistry() is safe for concurrent access
//
// # Error Handling
//
// Registration methods return errors for:
//
//   - Duplicate registration: attempting to register same metric name twice
//   - Prometheus conflicts: internal Prometheus registration failures
//   - Validation errors: nil metrics or invalid parameters
//
// The Server.Start() method returns errors for:
//
//   - Server already running
//   - Nil registry
//   - HTTP server failures (port in use, permission denied)
//
// # Design Decisions
//
// Centralized Registry: Chose centralized registry over distributed collectors
// to ensure consistent metric namespace, prevent duplication, and enable
// runtime metric discovery.
//
// Core vs Service Metrics: Separated platform-level metrics (core) from
// service-specific metrics to distinguish infrastructure health from
// application health.
//
// Prometheus Direct Integration: Used official Prometheus client rather than
// abstraction to leverage native features, avoid wrapper overhead, and ensure
// compatibility with Prometheus ecosystem.
package metric
