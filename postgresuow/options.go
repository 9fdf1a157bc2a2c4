package postgresuow

import "github.com/AntonStoeckl/uow-domain-events-go/domainevents"

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithLogger sets the logger for the Store.
//
// Debug level: SQL statements with execution timing (development use)
// Info level: statement counts and commit durations (production-safe)
// Warn level: failed rollbacks
// Error level: failures that abort a commit.
func WithLogger(logger domainevents.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
func WithContextualLogger(logger domainevents.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
func WithMetrics(collector domainevents.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store.
func WithTracing(collector domainevents.TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}
