package domainevents

// UnresolvedTypeTokenPolicy decides what capture does with a type token when no Mapper is configured.
type UnresolvedTypeTokenPolicy int

const (
	// SkipUnresolvedTypeTokens drops the token, logs a warning and counts it.
	SkipUnresolvedTypeTokens UnresolvedTypeTokenPolicy = iota

	// FailOnUnresolvedTypeTokens aborts the save before commit with ErrMapperNotConfigured.
	FailOnUnresolvedTypeTokens
)

// String provides a string representation of the policy for logging.
func (p UnresolvedTypeTokenPolicy) String() string {
	switch p {
	case SkipUnresolvedTypeTokens:
		return "skip"
	case FailOnUnresolvedTypeTokens:
		return "fail"
	default:
		return "unknown"
	}
}

// Option defines a functional option for configuring a Dispatcher.
type Option func(*Dispatcher) error

// WithPublisher registers a Publisher. Every registered Publisher receives every batch,
// in registration order.
func WithPublisher(publisher Publisher) Option {
	return func(d *Dispatcher) error {
		if publisher == nil {
			return ErrNilPublisher
		}

		d.publishers = append(d.publishers, publisher)

		return nil
	}
}

// WithMapper sets the Mapper used to resolve type tokens.
// Without a Mapper, type tokens are handled according to the UnresolvedTypeTokenPolicy.
func WithMapper(mapper Mapper) Option {
	return func(d *Dispatcher) error {
		if mapper == nil {
			return ErrNilMapper
		}

		d.mapper = mapper

		return nil
	}
}

// WithUnresolvedTypeTokenPolicy sets the policy for type tokens that cannot be resolved
// because no Mapper is configured. The default is SkipUnresolvedTypeTokens.
func WithUnresolvedTypeTokenPolicy(policy UnresolvedTypeTokenPolicy) Option {
	return func(d *Dispatcher) error {
		d.unresolvedPolicy = policy
		return nil
	}
}

// WithStagingBuffer makes all sessions of the Dispatcher share the given buffer.
//
// By default every Session owns its buffer. With a shared buffer, events staged by one
// session can be dispatched by another, and events of a failed commit stay staged until
// the next successful save of any session.
func WithStagingBuffer(buffer *StagingBuffer) Option {
	return func(d *Dispatcher) error {
		if buffer == nil {
			return ErrNilStagingBuffer
		}

		d.sharedBuffer = buffer

		return nil
	}
}

// WithLogger sets the logger for the Dispatcher.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: empty dispatches, per publisher calls
// Info level: captured and dispatched event counts with durations
// Warn level: skipped type tokens, failed commits with staged events, undispatched events on close
// Error level: mapping and publishing failures.
func WithLogger(logger Logger) Option {
	return func(d *Dispatcher) error {
		d.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Dispatcher.
// It receives the same messages as the Logger, together with the context of the save cycle.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(d *Dispatcher) error {
		d.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Dispatcher.
// It receives capture/dispatch durations, event counts, batch sizes, skipped type tokens and errors.
func WithMetrics(collector MetricsCollector) Option {
	return func(d *Dispatcher) error {
		d.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Dispatcher.
// Spans are created for save, capture and dispatch.
func WithTracing(collector TracingCollector) Option {
	return func(d *Dispatcher) error {
		d.tracingCollector = collector
		return nil
	}
}
