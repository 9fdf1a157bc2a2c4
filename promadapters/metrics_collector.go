package promadapters

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

const exemplarTraceID = "trace_id"

// DefaultDurationBuckets are the histogram buckets for operation durations, in seconds.
var DefaultDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

// DefaultValueBuckets are the histogram buckets for counted values like batch sizes.
var DefaultValueBuckets = prometheus.ExponentialBuckets(1, 2, 12)

// MetricsCollector implements domainevents.MetricsCollector and
// domainevents.ContextualMetricsCollector on top of Prometheus vectors.
type MetricsCollector struct {
	registerer      prometheus.Registerer
	durationBuckets []float64
	valueBuckets    []float64

	mu         sync.Mutex
	durations  map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	valueHists map[string]*prometheus.HistogramVec
}

// Option configures a MetricsCollector.
type Option func(*MetricsCollector)

// WithDurationBuckets overrides DefaultDurationBuckets.
func WithDurationBuckets(buckets []float64) Option {
	return func(m *MetricsCollector) {
		m.durationBuckets = buckets
	}
}

// WithValueBuckets overrides DefaultValueBuckets.
func WithValueBuckets(buckets []float64) Option {
	return func(m *MetricsCollector) {
		m.valueBuckets = buckets
	}
}

// NewMetricsCollector creates a MetricsCollector that registers its vectors with registerer.
// A nil registerer falls back to prometheus.DefaultRegisterer.
func NewMetricsCollector(registerer prometheus.Registerer, options ...Option) *MetricsCollector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &MetricsCollector{
		registerer:      registerer,
		durationBuckets: DefaultDurationBuckets,
		valueBuckets:    DefaultValueBuckets,
		durations:       make(map[string]*prometheus.HistogramVec),
		counters:        make(map[string]*prometheus.CounterVec),
		valueHists:      make(map[string]*prometheus.HistogramVec),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// RecordDuration observes the duration in seconds.
func (m *MetricsCollector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	m.RecordDurationContext(context.Background(), metricName, duration, labels)
}

// RecordDurationContext observes the duration in seconds, with the trace id as exemplar if present.
func (m *MetricsCollector) RecordDurationContext(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	labels map[string]string,
) {
	vec := m.histogram(m.durations, metricName, labels, m.durationBuckets)
	if vec == nil {
		return
	}

	observe(ctx, vec, labels, duration.Seconds())
}

// IncrementCounter adds one to the counter.
func (m *MetricsCollector) IncrementCounter(metricName string, labels map[string]string) {
	m.IncrementCounterContext(context.Background(), metricName, labels)
}

// IncrementCounterContext adds one to the counter, with the trace id as exemplar if present.
func (m *MetricsCollector) IncrementCounterContext(ctx context.Context, metricName string, labels map[string]string) {
	vec := m.counter(metricName, labels)
	if vec == nil {
		return
	}

	counter, err := vec.GetMetricWith(labels)
	if err != nil {
		return
	}

	if exemplar, ok := exemplarFrom(ctx); ok {
		if adder, isAdder := counter.(prometheus.ExemplarAdder); isAdder {
			adder.AddWithExemplar(1, exemplar)
			return
		}
	}

	counter.Inc()
}

// RecordValue observes the value.
func (m *MetricsCollector) RecordValue(metricName string, value float64, labels map[string]string) {
	m.RecordValueContext(context.Background(), metricName, value, labels)
}

// RecordValueContext observes the value, with the trace id as exemplar if present.
func (m *MetricsCollector) RecordValueContext(
	ctx context.Context,
	metricName string,
	value float64,
	labels map[string]string,
) {
	vec := m.histogram(m.valueHists, metricName, labels, m.valueBuckets)
	if vec == nil {
		return
	}

	observe(ctx, vec, labels, value)
}

func (m *MetricsCollector) histogram(
	cache map[string]*prometheus.HistogramVec,
	name string,
	labels map[string]string,
	buckets []float64,
) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, exists := cache[name]; exists {
		return vec
	}

	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    helpText(name),
		Buckets: buckets,
	}, labelNames(labels))

	registered, ok := register(m.registerer, vec)
	if !ok {
		return nil
	}

	cache[name] = registered

	return registered
}

func (m *MetricsCollector) counter(name string, labels map[string]string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, exists := m.counters[name]; exists {
		return vec
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: helpText(name),
	}, labelNames(labels))

	registered, ok := register(m.registerer, vec)
	if !ok {
		return nil
	}

	m.counters[name] = registered

	return registered
}

// register registers the vector or reuses one registered earlier under the same descriptor.
func register[V prometheus.Collector](registerer prometheus.Registerer, vec V) (V, bool) {
	err := registerer.Register(vec)
	if err == nil {
		return vec, true
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		if existing, ok := alreadyRegistered.ExistingCollector.(V); ok {
			return existing, true
		}
	}

	var zero V

	return zero, false
}

func observe(ctx context.Context, vec *prometheus.HistogramVec, labels map[string]string, value float64) {
	observer, err := vec.GetMetricWith(labels)
	if err != nil {
		return
	}

	if exemplar, ok := exemplarFrom(ctx); ok {
		if exemplarObserver, isExemplarObserver := observer.(prometheus.ExemplarObserver); isExemplarObserver {
			exemplarObserver.ObserveWithExemplar(value, exemplar)
			return
		}
	}

	observer.Observe(value)
}

func exemplarFrom(ctx context.Context) (prometheus.Labels, bool) {
	spanContext := trace.SpanContextFromContext(ctx)
	if !spanContext.IsValid() || !spanContext.IsSampled() {
		return nil, false
	}

	return prometheus.Labels{exemplarTraceID: spanContext.TraceID().String()}, true
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func helpText(name string) string {
	return "domain event pipeline metric " + strings.ReplaceAll(name, "_", " ")
}

var (
	_ domainevents.MetricsCollector           = (*MetricsCollector)(nil)
	_ domainevents.ContextualMetricsCollector = (*MetricsCollector)(nil)
)
