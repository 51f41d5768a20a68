// Copyright 2026 The Cascade Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Default histogram buckets for the built-in HTTP instruments.
// These follow OpenTelemetry semantic conventions and are suitable for most HTTP services.
var (
	// DefaultDurationBuckets are histogram boundaries for request duration in seconds.
	// Covers sub-millisecond to 10 second responses.
	DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// DefaultSizeBuckets are histogram boundaries for request/response size in bytes.
	// Covers 100B to 10MB.
	DefaultSizeBuckets = []float64{100, 1000, 10000, 100000, 1000000, 10000000}
)

// EventType represents the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g., failed to export telemetry).
	EventError EventType = iota
	// EventWarning indicates a warning event (e.g., questionable configuration).
	EventWarning
	// EventInfo indicates an informational event (e.g., metrics server started).
	EventInfo
	// EventDebug indicates a debug event (e.g., detailed operation logs).
	EventDebug
)

// Event represents an internal operational event from the telemetry package.
// Events report errors, warnings, and informational messages about the
// telemetry system's own operation, separate from the access log.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal operational events from the telemetry
// package. Implementations can log events, forward them to monitoring
// systems, or take custom actions based on event type.
//
// Example custom handler:
//
//	telemetry.WithEventHandler(func(e telemetry.Event) {
//	    if e.Type == telemetry.EventError {
//	        sentry.CaptureMessage(e.Message)
//	    }
//	    slog.Default().Info(e.Message, e.Args...)
//	})
type EventHandler func(Event)

// DefaultEventHandler returns an EventHandler that logs events to the
// provided slog.Logger. This is the handler WithLogger installs.
//
// If logger is nil, returns a no-op handler that discards all events.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {}
	}

	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

// Provider represents the available exporter backends.
type Provider string

const (
	// PrometheusProvider exposes metrics on a scrape endpoint (default).
	// Traces are collected against a local provider without export unless a
	// custom tracer provider is supplied.
	PrometheusProvider Provider = "prometheus"
	// OTLPProvider pushes metrics and traces to an OTLP HTTP collector.
	OTLPProvider Provider = "otlp"
	// StdoutProvider prints metrics and traces to stdout (development/testing).
	StdoutProvider Provider = "stdout"
)

// Recorder is the unified observability recorder: one object that collects
// request metrics, starts server spans, builds request-scoped loggers, and
// writes the access log. It implements both router.ObservabilityRecorder
// and router.ContextMetricsRecorder, so a single instance wires the whole
// observability surface:
//
//	rec, err := telemetry.New(
//	    telemetry.WithServiceName("checkout"),
//	    telemetry.WithPrometheus(":9090", "/metrics"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r := router.MustNew(router.WithObservability(rec))
//
// All methods are safe for concurrent use.
//
// By default the recorder does NOT touch OpenTelemetry process globals.
// Use WithGlobalProviders if you want otel.SetMeterProvider and
// otel.SetTracerProvider called, which lets multiple Recorder instances
// coexist in one binary otherwise.
type Recorder struct {
	serviceName    string
	serviceVersion string
	environment    string

	provider         Provider
	providerSetCount int // Detects conflicting provider options
	otlpEndpoint     string
	exportInterval   time.Duration

	metricsAddr     string
	metricsPath     string
	autoStartServer bool
	strictPort      bool

	tracingEnabled bool
	sampleRatio    float64
	propagator     propagation.TextMapPropagator

	logger        *slog.Logger
	logAccess     bool
	logErrorsOnly bool
	slowThreshold time.Duration

	pathFilter *pathFilter

	eventHandler EventHandler

	durationBuckets  []float64
	sizeBuckets      []float64
	maxCustomMetrics int

	registerGlobal       bool
	customMeterProvider  bool
	customTracerProvider bool

	validationErrors []error // Collected during option application

	// Runtime state below; populated by New and Start.

	meterProvider      metric.MeterProvider
	meter              metric.Meter
	prometheusRegistry *promclient.Registry
	prometheusHandler  http.Handler

	tracerProvider trace.TracerProvider
	tracer         trace.Tracer

	// Built-in HTTP instruments
	requestDuration      metric.Float64Histogram
	requestCount         metric.Int64Counter
	activeRequests       metric.Int64UpDownCounter
	requestSize          metric.Int64Histogram
	responseSize         metric.Int64Histogram
	errorCount           metric.Int64Counter
	customMetricFailures metric.Int64Counter

	// Custom metrics storage
	customMu          sync.RWMutex
	customCounters    map[string]metric.Int64Counter
	customHistograms  map[string]metric.Float64Histogram
	customGauges      map[string]metric.Float64Gauge
	customMetricCount int

	failureCount atomic.Int64 // Custom metric failures, for tests and monitoring

	serviceNameAttr    attribute.KeyValue
	serviceVersionAttr attribute.KeyValue

	metricsServer *http.Server
	serverMu      sync.Mutex

	providerDeferred atomic.Bool // OTLP exporters wait for Start(ctx)
	started          atomic.Bool
	shuttingDown     atomic.Bool
	warnNotStarted   sync.Once
}

// New creates a [Recorder] with the given options. Returns an error if the
// configuration is invalid or an exporter fails to initialize. For a
// version that panics on error, use [MustNew].
//
// Prometheus and stdout backends are fully usable after New. The OTLP
// backend defers exporter construction to [Recorder.Start], which supplies
// the context the exporters are built with.
func New(opts ...Option) (*Recorder, error) {
	rec := newDefaultRecorder()

	for _, opt := range opts {
		opt(rec)
	}

	if err := rec.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := rec.initializeProviders(); err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	return rec, nil
}

// MustNew creates a [Recorder] and panics on error. Use this when a broken
// telemetry configuration should stop the process at startup. For error
// handling, use [New] instead.
func MustNew(opts ...Option) *Recorder {
	rec, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("telemetry: %v", err))
	}
	return rec
}

// newDefaultRecorder creates a Recorder with default values.
func newDefaultRecorder() *Recorder {
	rec := &Recorder{
		serviceName:      "cascade-service",
		serviceVersion:   "1.0.0",
		provider:         PrometheusProvider,
		exportInterval:   30 * time.Second,
		metricsAddr:      ":9090",
		metricsPath:      "/metrics",
		autoStartServer:  true,
		tracingEnabled:   true,
		sampleRatio:      1.0,
		logAccess:        true,
		maxCustomMetrics: 1000, // Limit to prevent unbounded metric creation
		durationBuckets:  DefaultDurationBuckets,
		sizeBuckets:      DefaultSizeBuckets,
		pathFilter:       defaultPathFilter(),
		customCounters:   make(map[string]metric.Int64Counter),
		customHistograms: make(map[string]metric.Float64Histogram),
		customGauges:     make(map[string]metric.Float64Gauge),
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{},
		),
	}

	rec.initCommonAttributes()

	return rec
}

// initCommonAttributes pre-computes the attributes attached to every
// request metric.
func (r *Recorder) initCommonAttributes() {
	r.serviceNameAttr = attribute.String("service.name", r.serviceName)
	r.serviceVersionAttr = attribute.String("service.version", r.serviceVersion)
}

// validate checks that the configuration is consistent.
func (r *Recorder) validate() error {
	if len(r.validationErrors) > 0 {
		return fmt.Errorf("configuration errors: %v", r.validationErrors)
	}

	if r.providerSetCount > 1 {
		return fmt.Errorf("conflicting provider options: only one of WithPrometheus, WithOTLP, or WithStdout can be used")
	}

	if r.serviceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if r.serviceVersion == "" {
		return fmt.Errorf("service version cannot be empty")
	}

	if r.maxCustomMetrics < 1 {
		return fmt.Errorf("maxCustomMetrics must be at least 1, got %d", r.maxCustomMetrics)
	}

	if r.sampleRatio < 0 || r.sampleRatio > 1 {
		return fmt.Errorf("sample ratio must be in [0, 1], got %v", r.sampleRatio)
	}

	if r.exportInterval < time.Second {
		r.emitWarning("Export interval is very low, may cause high CPU usage", "interval", r.exportInterval)
	}

	switch r.provider {
	case PrometheusProvider:
		if r.metricsAddr == "" {
			return fmt.Errorf("metrics address cannot be empty for Prometheus provider")
		}
		if r.metricsPath == "" {
			return fmt.Errorf("metrics path cannot be empty for Prometheus provider")
		}
	case OTLPProvider:
		if r.otlpEndpoint == "" {
			r.emitWarning("OTLP endpoint not specified, will use default", "default", "http://localhost:4318")
			r.otlpEndpoint = "http://localhost:4318"
		}
	case StdoutProvider:
		// Nothing to check.
	default:
		return fmt.Errorf("unsupported telemetry provider: %s", r.provider)
	}

	return nil
}

// Start finishes initialization that needs a lifecycle context: it builds
// the OTLP exporters when the OTLP backend is selected, and launches the
// Prometheus scrape server when auto-start is enabled. Idempotent.
//
// Example:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	rec, _ := telemetry.New(telemetry.WithPrometheus(":9090", "/metrics"))
//	if err := rec.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
func (r *Recorder) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return nil // Already started
	}

	if r.providerDeferred.Load() {
		if err := r.initOTLPProviders(ctx); err != nil {
			r.started.Store(false) // Reset on failure to allow retry
			return fmt.Errorf("failed to initialize OTLP exporters: %w", err)
		}
		r.providerDeferred.Store(false)
	}

	if r.autoStartServer && r.provider == PrometheusProvider {
		r.startMetricsServer()
	}

	return nil
}

// Shutdown flushes pending telemetry and shuts down the exporters and the
// scrape server. Call it before the process exits so buffered metrics and
// spans reach their backends. Idempotent; only the first call does work.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if !r.shuttingDown.CompareAndSwap(false, true) {
		return nil // Already shutting down or shut down
	}

	var errs []error

	if err := r.stopMetricsServer(ctx); err != nil {
		errs = append(errs, err)
	}

	// User-provided providers are managed by the user; only shut down what
	// this recorder built.
	if r.customMeterProvider {
		r.emitDebug("Skipping shutdown of custom meter provider (managed by user)")
	} else if err := r.shutdownMeterProvider(ctx); err != nil {
		errs = append(errs, err)
	}

	if r.customTracerProvider {
		r.emitDebug("Skipping shutdown of custom tracer provider (managed by user)")
	} else if err := r.shutdownTracerProvider(ctx); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	return nil
}

// shutdownMeterProvider flushes and shuts down the SDK meter provider.
// Flush failures are reported as warnings; only shutdown failures are
// returned.
func (r *Recorder) shutdownMeterProvider(ctx context.Context) error {
	mp, ok := r.meterProvider.(*sdkmetric.MeterProvider)
	if !ok {
		return nil
	}

	r.emitDebug("Flushing pending metrics")
	if err := mp.ForceFlush(ctx); err != nil {
		r.emitWarning("metrics flush warning", "error", err)
	}

	if err := mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}

	return nil
}

// shutdownTracerProvider flushes and shuts down the SDK tracer provider.
func (r *Recorder) shutdownTracerProvider(ctx context.Context) error {
	tp, ok := r.tracerProvider.(*sdktrace.TracerProvider)
	if !ok {
		return nil
	}

	r.emitDebug("Flushing pending spans")
	if err := tp.ForceFlush(ctx); err != nil {
		r.emitWarning("trace flush warning", "error", err)
	}

	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}

	return nil
}

// ForceFlush immediately exports pending metrics and spans. Useful for
// push-based backends (OTLP, stdout) at checkpoints or before deployments.
// For Prometheus metrics this is a no-op, since collection happens on
// scrape.
func (r *Recorder) ForceFlush(ctx context.Context) error {
	if r.shuttingDown.Load() {
		return nil
	}

	var errs []error

	if mp, ok := r.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := mp.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics force flush: %w", err))
		}
	}

	if tp, ok := r.tracerProvider.(*sdktrace.TracerProvider); ok {
		if err := tp.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace force flush: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("force flush errors: %v", errs)
	}

	return nil
}

// Handler returns the Prometheus scrape handler, for mounting on an
// existing server instead of running the dedicated one:
//
//	rec, _ := telemetry.New(telemetry.WithoutMetricsServer())
//	h, _ := rec.Handler()
//	mux.Handle("/metrics", h)
//
// Returns an error for non-Prometheus backends.
func (r *Recorder) Handler() (http.Handler, error) {
	if r.provider != PrometheusProvider || r.prometheusHandler == nil {
		return nil, fmt.Errorf("handler only available with Prometheus provider, current provider: %s", r.provider)
	}
	return r.prometheusHandler, nil
}

// Provider returns the configured exporter backend.
func (r *Recorder) Provider() Provider {
	return r.provider
}

// ServerAddress returns the scrape server address, or an empty string when
// the Prometheus server is not in use.
func (r *Recorder) ServerAddress() string {
	if r.provider != PrometheusProvider || !r.autoStartServer {
		return ""
	}
	return r.metricsAddr
}

// ServiceName returns the configured service name.
func (r *Recorder) ServiceName() string {
	return r.serviceName
}

// ServiceVersion returns the configured service version.
func (r *Recorder) ServiceVersion() string {
	return r.serviceVersion
}

// CustomMetricFailures returns the number of custom metric operations that
// failed validation or instrument creation.
func (r *Recorder) CustomMetricFailures() int64 {
	return r.failureCount.Load()
}

func (r *Recorder) emit(t EventType, msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: t, Message: msg, Args: args})
	}
}

func (r *Recorder) emitError(msg string, args ...any)   { r.emit(EventError, msg, args...) }
func (r *Recorder) emitWarning(msg string, args ...any) { r.emit(EventWarning, msg, args...) }
func (r *Recorder) emitInfo(msg string, args ...any)    { r.emit(EventInfo, msg, args...) }
func (r *Recorder) emitDebug(msg string, args ...any)   { r.emit(EventDebug, msg, args...) }
