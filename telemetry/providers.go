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
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconvotel "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// instrumentationName scopes the meter and tracer this package creates.
const instrumentationName = "cascade.dev/router/telemetry"

// initializeProviders builds the meter and tracer providers for the
// configured backend. OTLP construction is deferred to Start(ctx), which
// supplies the context the exporters are built with.
func (r *Recorder) initializeProviders() error {
	switch {
	case r.customMeterProvider:
		r.meter = r.meterProvider.Meter(instrumentationName)
		if err := r.initializeInstruments(); err != nil {
			return err
		}
	case r.provider == PrometheusProvider:
		if err := r.initPrometheusMeter(); err != nil {
			return err
		}
	case r.provider == StdoutProvider:
		if err := r.initStdoutMeter(); err != nil {
			return err
		}
	case r.provider == OTLPProvider:
		r.providerDeferred.Store(true)
	}

	return r.initTracer()
}

// initPrometheusMeter builds a meter provider backed by a pull exporter
// with a private registry, so multiple recorders never fight over the
// global Prometheus registry.
func (r *Recorder) initPrometheusMeter() error {
	r.prometheusRegistry = promclient.NewRegistry()

	exporter, err := prometheus.New(
		prometheus.WithRegisterer(r.prometheusRegistry),
	)
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	r.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(r.createResource()),
	)

	r.prometheusHandler = promhttp.HandlerFor(
		r.prometheusRegistry,
		promhttp.HandlerOpts{},
	)

	r.registerGlobalMeterProvider("prometheus")
	r.meter = r.meterProvider.Meter(instrumentationName)

	return r.initializeInstruments()
}

// initStdoutMeter builds a meter provider that prints to stdout on the
// export interval.
func (r *Recorder) initStdoutMeter() error {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return fmt.Errorf("failed to create stdout metric exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(r.exportInterval),
	)

	r.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(r.createResource()),
	)

	r.registerGlobalMeterProvider("stdout")
	r.meter = r.meterProvider.Meter(instrumentationName)

	return r.initializeInstruments()
}

// initOTLPProviders builds the OTLP HTTP exporters for metrics and traces.
// Called from Start with the lifecycle context.
func (r *Recorder) initOTLPProviders(ctx context.Context) error {
	endpoint, insecure := parseOTLPEndpoint(r.otlpEndpoint)

	if !r.customMeterProvider {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
		if insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}

		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}

		reader := sdkmetric.NewPeriodicReader(
			exporter,
			sdkmetric.WithInterval(r.exportInterval),
		)

		r.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
			sdkmetric.WithResource(r.createResource()),
		)

		r.registerGlobalMeterProvider("otlp")
		r.meter = r.meterProvider.Meter(instrumentationName)

		if err := r.initializeInstruments(); err != nil {
			return err
		}
	}

	if r.tracingEnabled && !r.customTracerProvider {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}

		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(r.createResource()),
			sdktrace.WithSampler(r.sampler()),
		)

		r.tracerProvider = tp
		r.tracer = tp.Tracer(instrumentationName)
		r.registerGlobalTracerProvider("otlp")
	}

	r.emitInfo("Telemetry initialized", "provider", "otlp", "endpoint", r.otlpEndpoint, "service", r.serviceName)

	return nil
}

// initTracer builds the tracer provider for the non-OTLP backends. OTLP
// tracing is handled in initOTLPProviders.
func (r *Recorder) initTracer() error {
	if !r.tracingEnabled {
		return nil
	}

	if r.customTracerProvider {
		r.tracer = r.tracerProvider.Tracer(instrumentationName)
		r.registerGlobalTracerProvider("custom")
		return nil
	}

	switch r.provider {
	case StdoutProvider:
		exporter, err := stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(r.createResource()),
			sdktrace.WithSampler(r.sampler()),
		)
		r.tracerProvider = tp
		r.tracer = tp.Tracer(instrumentationName)
		r.registerGlobalTracerProvider("stdout")

	case PrometheusProvider:
		// No span export backend: spans still record and propagate, so
		// trace IDs appear in logs and outgoing requests carry context.
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithResource(r.createResource()),
			sdktrace.WithSampler(r.sampler()),
		)
		r.tracerProvider = tp
		r.tracer = tp.Tracer(instrumentationName)
		r.registerGlobalTracerProvider("local")

	case OTLPProvider:
		// Deferred to Start.
	}

	return nil
}

// sampler returns the configured trace sampler, parent-based so sampling
// decisions made upstream are honored.
func (r *Recorder) sampler() sdktrace.Sampler {
	if r.sampleRatio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(r.sampleRatio))
}

// createResource describes the service emitting the telemetry.
func (r *Recorder) createResource() *resource.Resource {
	if r.environment != "" {
		return resource.NewWithAttributes(
			semconvotel.SchemaURL,
			semconvotel.ServiceName(r.serviceName),
			semconvotel.ServiceVersion(r.serviceVersion),
			semconvotel.DeploymentEnvironment(r.environment),
		)
	}
	return resource.NewWithAttributes(
		semconvotel.SchemaURL,
		semconvotel.ServiceName(r.serviceName),
		semconvotel.ServiceVersion(r.serviceVersion),
	)
}

func (r *Recorder) registerGlobalMeterProvider(provider string) {
	if r.registerGlobal {
		r.emitDebug("Setting global OpenTelemetry meter provider", "provider", provider)
		otel.SetMeterProvider(r.meterProvider)
	}
}

func (r *Recorder) registerGlobalTracerProvider(provider string) {
	if r.registerGlobal {
		r.emitDebug("Setting global OpenTelemetry tracer provider", "provider", provider)
		otel.SetTracerProvider(r.tracerProvider)
	}
}

// startMetricsServer starts the dedicated Prometheus scrape server.
func (r *Recorder) startMetricsServer() {
	if r.prometheusHandler == nil {
		return
	}
	if r.shuttingDown.Load() {
		r.emitDebug("Not starting metrics server: shutdown in progress")
		return
	}

	var actualAddr string
	var err error
	requestedAddr := r.metricsAddr

	if r.strictPort {
		listener, err := net.Listen("tcp", r.metricsAddr)
		if err != nil {
			r.emitError("Failed to start metrics server on required port (strict mode)",
				"error", err, "addr", r.metricsAddr)
			return
		}
		listener.Close() // Reopened by ListenAndServe
		actualAddr = r.metricsAddr
	} else {
		actualAddr, err = findAvailablePort(r.metricsAddr)
		if err != nil {
			r.emitError("Failed to find available port for metrics server",
				"error", err, "preferred_addr", r.metricsAddr)
			return
		}
	}

	r.metricsAddr = actualAddr

	mux := http.NewServeMux()
	mux.Handle(r.metricsPath, r.prometheusHandler)

	server := &http.Server{
		Addr:         actualAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	r.serverMu.Lock()
	r.metricsServer = server
	r.serverMu.Unlock()

	metricsPath := r.metricsPath

	go func() {
		if actualAddr != requestedAddr {
			r.emitWarning("Metrics server using different port than requested",
				"actual_address", actualAddr+metricsPath,
				"requested_addr", requestedAddr,
				"recommendation", "use WithStrictPort() to fail instead of auto-discovering")
		} else {
			r.emitInfo("Metrics server starting", "address", actualAddr+metricsPath)
		}

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.serverMu.Lock()
			r.metricsServer = nil
			r.serverMu.Unlock()
			r.emitError("Metrics server error", "error", err)
		}
	}()
}

// stopMetricsServer shuts down the dedicated scrape server.
func (r *Recorder) stopMetricsServer(ctx context.Context) error {
	r.serverMu.Lock()
	server := r.metricsServer
	r.metricsServer = nil
	r.serverMu.Unlock()

	if server == nil {
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		r.emitError("Error shutting down metrics server", "error", err)
		return fmt.Errorf("metrics server shutdown: %w", err)
	}

	return nil
}

// findAvailablePort tries the preferred address first, then walks up to
// 100 consecutive ports looking for a free one.
func findAvailablePort(preferred string) (string, error) {
	addr := preferred
	if !strings.HasPrefix(addr, ":") {
		addr = ":" + addr
	}

	portNum, err := strconv.Atoi(strings.TrimPrefix(addr, ":"))
	if err != nil {
		return "", fmt.Errorf("invalid port format: %s", preferred)
	}

	for i := range 100 {
		testAddr := fmt.Sprintf(":%d", portNum+i)
		listener, err := net.Listen("tcp", testAddr)
		if err == nil {
			listener.Close()
			return testAddr, nil
		}
	}

	return "", fmt.Errorf("no available port found starting from %s", preferred)
}

// parseOTLPEndpoint splits a configured endpoint into the host:port form
// the exporter options expect, detecting plain-HTTP endpoints.
func parseOTLPEndpoint(endpoint string) (host string, insecure bool) {
	if trimmed, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint = trimmed
		insecure = true
	} else if trimmed, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = trimmed
	}

	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}

	return endpoint, insecure
}
