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
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Recorder.
type Option func(*Recorder)

// WithServiceName sets the service name attached to every metric, span
// and log line. Defaults to "cascade-service".
func WithServiceName(name string) Option {
	return func(r *Recorder) {
		r.serviceName = name
		r.initCommonAttributes()
	}
}

// WithServiceVersion sets the service version attached to every metric,
// span and log line. Defaults to "1.0.0".
func WithServiceVersion(version string) Option {
	return func(r *Recorder) {
		r.serviceVersion = version
		r.initCommonAttributes()
	}
}

// WithEnvironment sets the deployment environment resource attribute
// ("production", "staging", ...). Unset by default.
func WithEnvironment(env string) Option {
	return func(r *Recorder) {
		r.environment = env
	}
}

// WithPrometheus selects the Prometheus backend (the default) and sets
// the scrape server address and path.
//
// Example:
//
//	rec, err := telemetry.New(telemetry.WithPrometheus(":9090", "/metrics"))
func WithPrometheus(addr, path string) Option {
	return func(r *Recorder) {
		r.provider = PrometheusProvider
		r.providerSetCount++
		if addr != "" {
			r.metricsAddr = addr
		}
		if path != "" {
			r.metricsPath = path
		}
	}
}

// WithOTLP selects the OTLP HTTP backend for metrics and traces. The
// endpoint accepts "host:port", "http://host:port" (insecure) or
// "https://host:port" forms. Exporters are built by [Recorder.Start].
//
// Example:
//
//	rec, err := telemetry.New(telemetry.WithOTLP("http://otel-collector:4318"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := rec.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
func WithOTLP(endpoint string) Option {
	return func(r *Recorder) {
		r.provider = OTLPProvider
		r.providerSetCount++
		r.otlpEndpoint = endpoint
	}
}

// WithStdout selects the stdout backend, printing metrics and spans to
// standard output. Intended for development and tests.
func WithStdout() Option {
	return func(r *Recorder) {
		r.provider = StdoutProvider
		r.providerSetCount++
	}
}

// WithMeterProvider supplies a user-managed meter provider instead of the
// backend the provider options would build. The recorder creates its
// instruments from it and never shuts it down.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(r *Recorder) {
		if provider == nil {
			r.validationErrors = append(r.validationErrors, fmt.Errorf("meter provider cannot be nil"))
			return
		}
		r.meterProvider = provider
		r.customMeterProvider = true
	}
}

// WithTracerProvider supplies a user-managed tracer provider. The recorder
// starts its spans from it and never shuts it down.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(r *Recorder) {
		if provider == nil {
			r.validationErrors = append(r.validationErrors, fmt.Errorf("tracer provider cannot be nil"))
			return
		}
		r.tracerProvider = provider
		r.customTracerProvider = true
	}
}

// WithGlobalProviders registers the recorder's meter and tracer providers
// as the OpenTelemetry process globals via otel.SetMeterProvider and
// otel.SetTracerProvider. Off by default so multiple recorders can
// coexist in one binary.
func WithGlobalProviders() Option {
	return func(r *Recorder) {
		r.registerGlobal = true
	}
}

// WithExportInterval sets how often push-based backends (OTLP, stdout)
// export buffered metrics. Defaults to 30s.
func WithExportInterval(interval time.Duration) Option {
	return func(r *Recorder) {
		if interval <= 0 {
			r.validationErrors = append(r.validationErrors,
				fmt.Errorf("export interval must be positive, got %v", interval))
			return
		}
		r.exportInterval = interval
	}
}

// WithDurationBuckets replaces the histogram boundaries for the request
// duration instrument. Values are in seconds.
//
// Example for latency-sensitive services:
//
//	telemetry.WithDurationBuckets(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1)
func WithDurationBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.durationBuckets = buckets
		}
	}
}

// WithSizeBuckets replaces the histogram boundaries for the request and
// response size instruments. Values are in bytes.
func WithSizeBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.sizeBuckets = buckets
		}
	}
}

// WithoutMetricsServer disables the dedicated Prometheus scrape server.
// Use [Recorder.Handler] to mount the scrape endpoint on your own server
// instead.
func WithoutMetricsServer() Option {
	return func(r *Recorder) {
		r.autoStartServer = false
	}
}

// WithStrictPort makes the scrape server fail when its configured port is
// taken, instead of walking to the next free one.
func WithStrictPort() Option {
	return func(r *Recorder) {
		r.strictPort = true
	}
}

// WithMaxCustomMetrics caps how many distinct custom instruments handlers
// may create. Operations beyond the cap count as failures. Defaults to
// 1000.
func WithMaxCustomMetrics(maxLimit int) Option {
	return func(r *Recorder) {
		r.maxCustomMetrics = maxLimit
	}
}

// WithSampleRatio sets the fraction of new traces to sample, in [0, 1].
// The sampler is parent-based, so requests arriving with a sampled parent
// span stay sampled regardless of the ratio. Defaults to 1 (sample
// everything).
func WithSampleRatio(ratio float64) Option {
	return func(r *Recorder) {
		r.sampleRatio = ratio
	}
}

// WithoutTracing disables span creation. Metrics, access logging and
// request loggers keep working; trace correlation attributes simply never
// appear.
func WithoutTracing() Option {
	return func(r *Recorder) {
		r.tracingEnabled = false
	}
}

// WithPropagator replaces the context propagator used to extract incoming
// trace headers. The default handles W3C Trace Context and Baggage.
func WithPropagator(propagator propagation.TextMapPropagator) Option {
	return func(r *Recorder) {
		if propagator != nil {
			r.propagator = propagator
		}
	}
}

// WithLogger sets the logger used for the access log and as the base for
// request-scoped loggers, and routes the recorder's own operational
// events to it. Without a logger the recorder stays silent and
// BuildRequestLogger returns a no-op logger.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	rec, err := telemetry.New(telemetry.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
		if r.eventHandler == nil {
			r.eventHandler = DefaultEventHandler(logger)
		}
	}
}

// WithEventHandler sets a custom handler for the recorder's operational
// events, replacing the logger-based default.
func WithEventHandler(handler EventHandler) Option {
	return func(r *Recorder) {
		r.eventHandler = handler
	}
}

// WithoutAccessLog disables the per-request access log line. Request
// scoped loggers are still built.
func WithoutAccessLog() Option {
	return func(r *Recorder) {
		r.logAccess = false
	}
}

// WithErrorsOnlyLogging restricts the access log to responses with status
// 400 or above, plus slow requests when a threshold is set.
func WithErrorsOnlyLogging() Option {
	return func(r *Recorder) {
		r.logErrorsOnly = true
	}
}

// WithSlowRequestThreshold marks requests at or above the threshold as
// slow: they are logged at warning level and tagged slow=true even when
// they succeed. Zero disables slow marking.
func WithSlowRequestThreshold(threshold time.Duration) Option {
	return func(r *Recorder) {
		r.slowThreshold = threshold
	}
}

// WithExcludePaths excludes exact request paths from all observability.
// The defaults already cover common probe endpoints (/health, /healthz,
// /ready, /readyz, /live, /livez, /metrics) and the /debug/ prefix.
//
// Example:
//
//	telemetry.WithExcludePaths("/internal/ping", "/favicon.ico")
func WithExcludePaths(paths ...string) Option {
	return func(r *Recorder) {
		r.pathFilter.addPaths(paths...)
	}
}

// WithExcludePrefixes excludes whole path hierarchies from observability.
//
// Example:
//
//	telemetry.WithExcludePrefixes("/internal/", "/admin/debug/")
func WithExcludePrefixes(prefixes ...string) Option {
	return func(r *Recorder) {
		r.pathFilter.addPrefixes(prefixes...)
	}
}

// WithExcludePatterns excludes paths matching the given regular
// expressions from observability. Patterns compile once here; invalid
// ones surface as an error from New.
//
// Example:
//
//	telemetry.WithExcludePatterns(`^/v[0-9]+/internal/.*`)
func WithExcludePatterns(patterns ...string) Option {
	return func(r *Recorder) {
		for _, p := range patterns {
			compiled, err := regexp.Compile(p)
			if err != nil {
				r.validationErrors = append(r.validationErrors,
					fmt.Errorf("invalid exclude pattern %q: %w", p, err))
				continue
			}
			r.pathFilter.addPatterns(compiled)
		}
	}
}

// WithoutDefaultExclusions drops the built-in path exclusions, so probe
// endpoints and /debug/ paths are observed like any other request.
func WithoutDefaultExclusions() Option {
	return func(r *Recorder) {
		r.pathFilter = newPathFilter()
	}
}
