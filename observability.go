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

package router

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
)

// Route pattern sentinels passed to observability hooks in place of a
// matched pattern. Recorders should label by pattern, never by raw path,
// to keep metric cardinality bounded; these two values cover the requests
// that never produce a pattern.
const (
	// RoutePatternNotFound labels requests that matched no route.
	RoutePatternNotFound = "_not_found"

	// RoutePatternUnmatched labels requests whose routing metadata was
	// never populated. Handlers observing it mid-flight are running before
	// or outside a dispatch.
	RoutePatternUnmatched = "_unmatched"
)

// ObservabilityRecorder receives lifecycle hooks around every request the
// router serves. Implementations typically combine metrics, distributed
// tracing, and access logging behind the single interface; the telemetry
// package provides an OpenTelemetry-backed one.
//
// Lifecycle, per request:
//
//  1. OnRequestStart(ctx, req) runs before dispatch and returns an
//     enriched context plus an opaque state token. The enriched context is
//     always installed on the request, token or no token, so trace
//     propagation keeps working on excluded paths.
//  2. When the token is non-nil the router wraps the response writer via
//     WrapResponseWriter so the recorder can capture status and size.
//  3. BuildRequestLogger runs once the matched route pattern is known and
//     its result is exposed to handlers as Context.Logger.
//  4. After the handler chain settles, OnRequestEnd runs with the token,
//     the final writer, and the route pattern. It is skipped when the
//     token is nil.
//
// Returning a nil token from OnRequestStart excludes the request: no
// writer wrapping, no OnRequestEnd, no recording. Exclusion is the
// recorder's tool for paths like /health or its own /metrics endpoint.
//
// All methods must be safe for concurrent use.
type ObservabilityRecorder interface {
	// OnRequestStart is called before dispatch. It returns the context to
	// install on the request and an opaque state token, or nil to exclude
	// the request from recording. The router never inspects the token.
	OnRequestStart(ctx context.Context, req *http.Request) (context.Context, any)

	// WrapResponseWriter wraps w to capture response metadata for
	// OnRequestEnd. It is only called with a non-nil state token, and the
	// returned writer should implement ResponseInfo.
	WrapResponseWriter(w http.ResponseWriter, state any) http.ResponseWriter

	// OnRequestEnd is called after the handler chain settles, with the
	// state token from OnRequestStart and the final response writer. The
	// writer implements ResponseInfo. routePattern is the matched pattern
	// ("/users/:id"), or RoutePatternNotFound / RoutePatternUnmatched when
	// no route produced one.
	OnRequestEnd(ctx context.Context, state any, writer http.ResponseWriter, routePattern string)

	// BuildRequestLogger returns the request-scoped logger handlers see as
	// Context.Logger. Implementations usually attach trace and request
	// identity attributes. It runs for every request, excluded or not.
	BuildRequestLogger(ctx context.Context, req *http.Request, routePattern string) *slog.Logger
}

// ResponseInfo exposes response metadata captured by a wrapping response
// writer. The router's own writer implements it, and recorder wrappers
// should too, so OnRequestEnd can read status and size with one type
// assertion.
type ResponseInfo interface {
	StatusCode() int
	Size() int64
}

// ContextMetricsRecorder is the optional custom-metrics side of an
// observability recorder. When the configured ObservabilityRecorder also
// implements it, Context.RecordMetric, Context.IncrementCounter and
// Context.SetGauge forward here; otherwise those methods are no-ops.
type ContextMetricsRecorder interface {
	// RecordMetric records a custom histogram metric with the given name and value.
	RecordMetric(ctx context.Context, name string, value float64, attributes ...attribute.KeyValue)

	// IncrementCounter increments a custom counter metric with the given name.
	IncrementCounter(ctx context.Context, name string, attributes ...attribute.KeyValue)

	// SetGauge sets a custom gauge metric with the given name and value.
	SetGauge(ctx context.Context, name string, value float64, attributes ...attribute.KeyValue)
}
