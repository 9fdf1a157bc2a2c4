// Package promadapters provides a Prometheus implementation of the domainevents
// MetricsCollector and ContextualMetricsCollector interfaces.
//
// Metric vectors are created lazily on first use and registered with the given
// prometheus.Registerer. The label names of a metric are fixed by its first observation.
// When the context carries a sampled OpenTelemetry span, context aware observations
// attach the trace id as an exemplar.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	dispatcher, err := domainevents.NewDispatcher(
//		domainevents.WithMetrics(promadapters.NewMetricsCollector(registry)),
//	)
package promadapters
