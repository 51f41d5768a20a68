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
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metricNameRegex validates metric names according to OpenTelemetry
// conventions: a leading letter, then alphanumerics, underscores, dots,
// and hyphens.
var metricNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]*$`)

// maxMetricNameLength is the maximum allowed length for metric names.
const maxMetricNameLength = 255

// Reserved metric name prefixes that custom metrics may not use. These are
// claimed by Prometheus internals or by this package's built-in
// instruments.
var reservedPrefixes = []string{
	"__",
	"http_",
	"router_",
}

// limitError is returned when the custom metrics limit is reached.
type limitError struct {
	metricName string
	limit      int
	current    int
}

func (e *limitError) Error() string {
	return fmt.Sprintf("metrics limit reached: cannot create '%s' (current: %d, limit: %d)",
		e.metricName, e.current, e.limit)
}

// validateMetricName checks a custom metric name against OpenTelemetry
// naming conventions and this package's reserved prefixes.
func validateMetricName(name string) error {
	if name == "" {
		return fmt.Errorf("metric name cannot be empty")
	}
	if len(name) > maxMetricNameLength {
		return fmt.Errorf("metric name too long: %d characters (max %d)", len(name), maxMetricNameLength)
	}
	if !metricNameRegex.MatchString(name) {
		return fmt.Errorf("invalid metric name '%s': must start with letter and contain only alphanumeric, underscore, dot, or hyphen", name)
	}

	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return fmt.Errorf("metric name '%s' uses reserved prefix '%s': reserved prefixes are %v",
				name, prefix, reservedPrefixes)
		}
	}

	return nil
}

// initializeInstruments creates the built-in HTTP instruments.
func (r *Recorder) initializeInstruments() error {
	var err error

	r.requestDuration, err = r.meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(r.durationBuckets...),
	)
	if err != nil {
		return fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	r.requestCount, err = r.meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create request count counter: %w", err)
	}

	r.activeRequests, err = r.meter.Int64UpDownCounter(
		"http_requests_active",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create active requests gauge: %w", err)
	}

	r.requestSize, err = r.meter.Int64Histogram(
		"http_request_size_bytes",
		metric.WithDescription("Size of HTTP request bodies in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(r.sizeBuckets...),
	)
	if err != nil {
		return fmt.Errorf("failed to create request size histogram: %w", err)
	}

	r.responseSize, err = r.meter.Int64Histogram(
		"http_response_size_bytes",
		metric.WithDescription("Size of HTTP response bodies in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(r.sizeBuckets...),
	)
	if err != nil {
		return fmt.Errorf("failed to create response size histogram: %w", err)
	}

	r.errorCount, err = r.meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP error responses"),
	)
	if err != nil {
		return fmt.Errorf("failed to create error count counter: %w", err)
	}

	r.customMetricFailures, err = r.meter.Int64Counter(
		"custom_metric_failures_total",
		metric.WithDescription("Total number of custom metric creation failures"),
	)
	if err != nil {
		return fmt.Errorf("failed to create custom metric failures counter: %w", err)
	}

	return nil
}

// instrumentsReady reports whether the built-in instruments exist yet. With
// the OTLP backend they are created in Start, so requests served before
// Start are counted nowhere; warn the first time that happens.
func (r *Recorder) instrumentsReady() bool {
	if r.requestDuration != nil {
		return true
	}
	r.warnNotStarted.Do(func() {
		r.emitWarning("Request served before Start(); metrics are dropped until Start runs")
	})
	return false
}

// recordRequestStart counts a request in and returns the shared attribute
// prefix used by the end-of-request instruments.
func (r *Recorder) recordRequestStart(ctx context.Context) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 2, 8)
	attrs[0] = r.serviceNameAttr
	attrs[1] = r.serviceVersionAttr

	r.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))

	return attrs
}

// recordRequestEnd records the duration, count, size and error instruments
// for a settled request, labeled by route pattern rather than raw path so
// cardinality stays bounded.
func (r *Recorder) recordRequestEnd(ctx context.Context, attrs []attribute.KeyValue, statusCode int, respSize int64, routePattern string, elapsed float64) {
	final := append(attrs,
		attribute.Int("http.status_code", statusCode),
		attribute.String("http.status_class", statusClass(statusCode)),
		attribute.String("http.route", routePattern),
	)

	r.requestDuration.Record(ctx, elapsed, metric.WithAttributes(final...))
	r.requestCount.Add(ctx, 1, metric.WithAttributes(final...))
	r.activeRequests.Add(ctx, -1, metric.WithAttributes(final...))

	if statusCode >= 400 {
		r.errorCount.Add(ctx, 1, metric.WithAttributes(final...))
	}

	if respSize > 0 {
		r.responseSize.Record(ctx, respSize, metric.WithAttributes(final...))
	}
}

// statusClass returns the HTTP status class (2xx, 3xx, 4xx, 5xx).
func statusClass(statusCode int) string {
	switch statusCode / 100 {
	case 2:
		return "2xx"
	case 3:
		return "3xx"
	case 4:
		return "4xx"
	case 5:
		return "5xx"
	default:
		return "unknown"
	}
}

// RecordMetric records a value on a custom histogram. Failures (invalid
// name, instrument limit) increment the failure counter and emit an error
// event instead of propagating, since callers reach this through
// Context.RecordMetric where there is nothing useful to do with an error.
//
// Example:
//
//	c.RecordMetric("order_total_value", 129.90,
//	    attribute.String("currency", "EUR"))
func (r *Recorder) RecordMetric(ctx context.Context, name string, value float64, attributes ...attribute.KeyValue) {
	if !r.instrumentsReady() {
		return
	}

	histogram, err := r.getOrCreateHistogram(name)
	if err != nil {
		r.recordCustomFailure(ctx, "histogram", name, err)
		return
	}

	histogram.Record(ctx, value, metric.WithAttributes(attributes...))
}

// IncrementCounter increments a custom counter by 1.
//
// Example:
//
//	c.IncrementCounter("orders_created",
//	    attribute.String("payment", "card"))
func (r *Recorder) IncrementCounter(ctx context.Context, name string, attributes ...attribute.KeyValue) {
	r.AddCounter(ctx, name, 1, attributes...)
}

// AddCounter adds a value to a custom counter.
func (r *Recorder) AddCounter(ctx context.Context, name string, value int64, attributes ...attribute.KeyValue) {
	if !r.instrumentsReady() {
		return
	}

	counter, err := r.getOrCreateCounter(name)
	if err != nil {
		r.recordCustomFailure(ctx, "counter", name, err)
		return
	}

	counter.Add(ctx, value, metric.WithAttributes(attributes...))
}

// SetGauge sets a custom gauge to the given value.
//
// Example:
//
//	c.SetGauge("queue_depth", float64(len(queue)))
func (r *Recorder) SetGauge(ctx context.Context, name string, value float64, attributes ...attribute.KeyValue) {
	if !r.instrumentsReady() {
		return
	}

	gauge, err := r.getOrCreateGauge(name)
	if err != nil {
		r.recordCustomFailure(ctx, "gauge", name, err)
		return
	}

	gauge.Record(ctx, value, metric.WithAttributes(attributes...))
}

// recordCustomFailure accounts for a custom metric operation that could
// not run.
func (r *Recorder) recordCustomFailure(ctx context.Context, kind, name string, err error) {
	r.failureCount.Add(1)
	if r.customMetricFailures != nil {
		r.customMetricFailures.Add(ctx, 1)
	}
	r.emitError("Custom metric operation failed", "kind", kind, "name", name, "error", err)
}

// getOrCreateCounter returns the named custom counter, creating it on
// first use. Safe for concurrent use.
func (r *Recorder) getOrCreateCounter(name string) (metric.Int64Counter, error) {
	r.customMu.RLock()
	if counter, exists := r.customCounters[name]; exists {
		r.customMu.RUnlock()
		return counter, nil
	}
	r.customMu.RUnlock()

	// Validate only when creating a new instrument
	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()

	// Double-check after acquiring the write lock
	if counter, exists := r.customCounters[name]; exists {
		return counter, nil
	}

	if r.customMetricCount >= r.maxCustomMetrics {
		return nil, &limitError{metricName: name, limit: r.maxCustomMetrics, current: r.customMetricCount}
	}

	counter, err := r.meter.Int64Counter(
		name,
		metric.WithDescription("Custom counter metric"),
	)
	if err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}

	r.customCounters[name] = counter
	r.customMetricCount++

	return counter, nil
}

// getOrCreateHistogram returns the named custom histogram, creating it on
// first use. Safe for concurrent use.
func (r *Recorder) getOrCreateHistogram(name string) (metric.Float64Histogram, error) {
	r.customMu.RLock()
	if histogram, exists := r.customHistograms[name]; exists {
		r.customMu.RUnlock()
		return histogram, nil
	}
	r.customMu.RUnlock()

	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()

	if histogram, exists := r.customHistograms[name]; exists {
		return histogram, nil
	}

	if r.customMetricCount >= r.maxCustomMetrics {
		return nil, &limitError{metricName: name, limit: r.maxCustomMetrics, current: r.customMetricCount}
	}

	histogram, err := r.meter.Float64Histogram(
		name,
		metric.WithDescription("Custom histogram metric"),
	)
	if err != nil {
		return nil, fmt.Errorf("create histogram: %w", err)
	}

	r.customHistograms[name] = histogram
	r.customMetricCount++

	return histogram, nil
}

// getOrCreateGauge returns the named custom gauge, creating it on first
// use. Safe for concurrent use.
func (r *Recorder) getOrCreateGauge(name string) (metric.Float64Gauge, error) {
	r.customMu.RLock()
	if gauge, exists := r.customGauges[name]; exists {
		r.customMu.RUnlock()
		return gauge, nil
	}
	r.customMu.RUnlock()

	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()

	if gauge, exists := r.customGauges[name]; exists {
		return gauge, nil
	}

	if r.customMetricCount >= r.maxCustomMetrics {
		return nil, &limitError{metricName: name, limit: r.maxCustomMetrics, current: r.customMetricCount}
	}

	gauge, err := r.meter.Float64Gauge(
		name,
		metric.WithDescription("Custom gauge metric"),
	)
	if err != nil {
		return nil, fmt.Errorf("create gauge: %w", err)
	}

	r.customGauges[name] = gauge
	r.customMetricCount++

	return gauge, nil
}
