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

// Package telemetry provides an OpenTelemetry-backed observability
// recorder for the router: request metrics, server spans, request-scoped
// loggers and an access log behind one object.
//
// # Basic Usage
//
//	rec, err := telemetry.New(
//	    telemetry.WithServiceName("checkout"),
//	    telemetry.WithPrometheus(":9090", "/metrics"),
//	    telemetry.WithLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil))),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := rec.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer rec.Shutdown(context.Background())
//
//	r := router.MustNew(router.WithObservability(rec))
//
// Every request then produces duration, count and size metrics labeled by
// route pattern, a server span renamed to the pattern once dispatch
// decides it, a structured access log line, and a request logger
// reachable as Context.Logger with trace correlation attached.
//
// # Backends
//
// Three exporter backends are supported:
//   - [PrometheusProvider] (default): metrics on a scrape endpoint; spans
//     record and propagate locally without export
//   - [OTLPProvider]: metrics and spans pushed to an OTLP HTTP collector
//   - [StdoutProvider]: everything printed to stdout, for development
//
// Prometheus and stdout backends work right after [New]. The OTLP backend
// builds its exporters in [Recorder.Start], which supplies the lifecycle
// context.
//
// # Custom Metrics
//
// Handlers record custom metrics through the router context, which
// forwards here:
//
//	r.POST("/orders", func(c *router.Context) {
//	    c.IncrementCounter("orders_created",
//	        attribute.String("payment", "card"))
//	    ...
//	})
//
// Custom instruments are created on first use, validated against
// OpenTelemetry naming rules, and capped (default 1000) to prevent
// unbounded creation. Failed operations are counted and reported through
// the event handler rather than returned, since handler code has nothing
// useful to do with a metrics error.
//
// # Exclusions
//
// Probe endpoints (/health, /healthz, /ready, /readyz, /live, /livez),
// /metrics and /debug/ paths are excluded from observability by default.
// Tune the set with [WithExcludePaths], [WithExcludePrefixes],
// [WithExcludePatterns] and [WithoutDefaultExclusions].
//
// # Global State
//
// By default the package does NOT touch the OpenTelemetry process
// globals, so multiple [Recorder] instances can coexist in one binary.
// Use [WithGlobalProviders] to opt into otel.SetMeterProvider and
// otel.SetTracerProvider.
//
// # Thread Safety
//
// All [Recorder] methods are safe for concurrent use.
package telemetry
