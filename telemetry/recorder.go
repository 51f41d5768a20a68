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
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconvotel "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"cascade.dev/router"
	"cascade.dev/router/telemetry/semconv"
)

// Interface checks. The router discovers the custom-metrics side with a
// type assertion, so both must hold on the same value.
var (
	_ router.ObservabilityRecorder  = (*Recorder)(nil)
	_ router.ContextMetricsRecorder = (*Recorder)(nil)
)

// requestState is the opaque token threaded through the request lifecycle
// hooks.
type requestState struct {
	metricAttrs []attribute.KeyValue // nil when metrics were unavailable at start
	span        trace.Span
	startTime   time.Time
	req         *http.Request
}

// OnRequestStart begins observability for one request: it extracts
// incoming trace context, starts the server span, and counts the request
// in. Excluded paths return a nil token, which skips recording entirely.
//
// The span starts named after the raw path and is renamed to the route
// pattern in OnRequestEnd, once dispatch has decided it.
func (r *Recorder) OnRequestStart(ctx context.Context, req *http.Request) (context.Context, any) {
	if r.pathFilter.shouldExclude(req.URL.Path) {
		return ctx, nil
	}

	state := &requestState{
		startTime: time.Now(),
		req:       req,
	}

	if r.tracingEnabled && r.tracer != nil {
		ctx = r.propagator.Extract(ctx, propagation.HeaderCarrier(req.Header))

		scheme := "http"
		if req.TLS != nil {
			scheme = "https"
		}

		ctx, state.span = r.tracer.Start(ctx, req.Method+" "+req.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconvotel.HTTPMethod(req.Method),
				semconvotel.HTTPTarget(req.URL.Path),
				semconvotel.HTTPScheme(scheme),
			),
		)
	}

	if r.instrumentsReady() {
		state.metricAttrs = r.recordRequestStart(ctx)
	}

	return ctx, state
}

// WrapResponseWriter wraps w so status and size survive to OnRequestEnd.
func (r *Recorder) WrapResponseWriter(w http.ResponseWriter, state any) http.ResponseWriter {
	if state == nil {
		return w
	}
	return &responseWriter{ResponseWriter: w}
}

// OnRequestEnd settles observability for one request: the span is renamed
// to the route pattern and ended, the metrics are recorded, and the access
// log line is written.
func (r *Recorder) OnRequestEnd(ctx context.Context, state any, writer http.ResponseWriter, routePattern string) {
	s, ok := state.(*requestState)
	if !ok || s == nil {
		return
	}

	duration := time.Since(s.startTime)

	statusCode := http.StatusOK
	var responseSize int64
	if ri, ok := writer.(router.ResponseInfo); ok {
		statusCode = ri.StatusCode()
		responseSize = ri.Size()
	}

	if s.span != nil {
		// Rename to the route pattern for bounded span-name cardinality.
		if s.span.IsRecording() && routePattern != "" {
			s.span.SetName(s.req.Method + " " + routePattern)
		}

		s.span.SetAttributes(semconvotel.HTTPStatusCode(statusCode))
		if statusCode >= 500 {
			s.span.SetStatus(codes.Error, http.StatusText(statusCode))
		}
		s.span.End()
	}

	if s.metricAttrs != nil {
		metricsRoute := routePattern
		if metricsRoute == "" {
			metricsRoute = router.RoutePatternUnmatched
		}
		r.recordRequestEnd(ctx, s.metricAttrs, statusCode, responseSize, metricsRoute, duration.Seconds())
	}

	if r.logAccess && r.logger != nil {
		r.logAccessRequest(ctx, s.req, statusCode, responseSize, duration, routePattern)
	}
}

// logAccessRequest writes one structured access log line for a settled
// request.
func (r *Recorder) logAccessRequest(
	ctx context.Context,
	req *http.Request,
	statusCode int,
	responseSize int64,
	duration time.Duration,
	routePattern string,
) {
	isError := statusCode >= 400
	isSlow := r.slowThreshold > 0 && duration >= r.slowThreshold

	// Skip non-errors in error-only mode, unless the request was slow
	if r.logErrorsOnly && !isError && !isSlow {
		return
	}

	fields := []any{
		"method", req.Method,
		"path", req.URL.Path,
		"status", statusCode,
		"duration_ms", duration.Milliseconds(),
		"bytes_sent", responseSize,
		"user_agent", req.UserAgent(),
		"remote_addr", req.RemoteAddr,
		"host", req.Host,
		"proto", req.Proto,
	}

	// Route template, the key aggregation dimension
	if routePattern != "" {
		fields = append(fields, "route", routePattern)
	}

	if reqID := req.Header.Get("X-Request-ID"); reqID != "" {
		fields = append(fields, "request_id", reqID)
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		fields = append(fields, "trace_id", span.SpanContext().TraceID().String())
	}

	if isSlow {
		fields = append(fields, "slow", true)
	}

	// Slow successes log as warnings on purpose
	switch {
	case statusCode >= 500:
		r.logger.ErrorContext(ctx, "access", fields...)
	case statusCode >= 400:
		r.logger.WarnContext(ctx, "access", fields...)
	case isSlow:
		r.logger.WarnContext(ctx, "access", fields...)
	default:
		r.logger.InfoContext(ctx, "access", fields...)
	}
}

// BuildRequestLogger returns the request-scoped logger exposed to handlers
// as Context.Logger, carrying HTTP metadata and trace correlation
// attributes under OpenTelemetry semantic convention names.
func (r *Recorder) BuildRequestLogger(ctx context.Context, req *http.Request, routePattern string) *slog.Logger {
	if r.logger == nil {
		return router.NoopLogger()
	}

	attrs := []any{
		semconv.HTTPMethod, req.Method,
		semconv.HTTPTarget, req.URL.Path,
	}

	if routePattern != "" {
		attrs = append(attrs, semconv.HTTPRoute, routePattern)
	}

	if reqID := req.Header.Get("X-Request-ID"); reqID != "" {
		attrs = append(attrs, semconv.RequestID, reqID)
	}

	attrs = append(attrs, semconv.NetworkPeerIP, req.RemoteAddr)

	logger := r.logger.With(attrs...)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		logger = logger.With(
			semconv.TraceID, sc.TraceID().String(),
			semconv.SpanID, sc.SpanID().String(),
		)
	}

	return logger
}

// responseWriter wraps http.ResponseWriter to capture response metadata,
// preserving the optional interfaces streaming and proxy handlers rely on.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
	written    bool
}

var _ router.ResponseInfo = (*responseWriter)(nil)

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.written = true
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

// StatusCode returns the response status, defaulting to 200 when the
// handler never set one explicitly.
func (rw *responseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

// Size returns the number of body bytes written.
func (rw *responseWriter) Size() int64 {
	return rw.size
}

// Hijack preserves http.Hijacker for WebSocket upgrades.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not support hijacking")
}

// Flush preserves http.Flusher for streaming responses.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Push preserves http.Pusher for HTTP/2 server push.
func (rw *responseWriter) Push(target string, opts *http.PushOptions) error {
	if pusher, ok := rw.ResponseWriter.(http.Pusher); ok {
		return pusher.Push(target, opts)
	}
	return fmt.Errorf("response writer does not support push")
}

// ReadFrom preserves io.ReaderFrom so io.Copy stays efficient, while
// keeping StatusCode and Size accurate.
func (rw *responseWriter) ReadFrom(src io.Reader) (int64, error) {
	var n int64
	var err error

	if rf, ok := rw.ResponseWriter.(io.ReaderFrom); ok {
		n, err = rf.ReadFrom(src)
	} else {
		n, err = io.Copy(rw.ResponseWriter, src)
	}

	rw.size += n
	if !rw.written {
		rw.written = true
		if rw.statusCode == 0 {
			rw.statusCode = http.StatusOK
		}
	}
	return n, err
}
