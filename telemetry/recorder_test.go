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

//go:build !integration

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"

	"cascade.dev/router"
)

// newSpanRecorder wires an in-memory span processor into a recorder, so
// tests can inspect finished spans without an exporter.
func newSpanRecorder(t *testing.T, extra ...Option) (*Recorder, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	opts := append([]Option{WithTracerProvider(tp)}, extra...)
	return newTestRecorder(t, opts...), sr
}

func TestOnRequestStartExcludesFilteredPaths(t *testing.T) {
	t.Parallel()

	rec := newTestRecorder(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	ctx, token := rec.OnRequestStart(req.Context(), req)

	assert.Nil(t, token, "excluded paths must not produce a token")
	assert.Equal(t, req.Context(), ctx, "context should pass through untouched")
}

func TestWrapResponseWriterPassthroughOnNilToken(t *testing.T) {
	t.Parallel()

	rec := newTestRecorder(t)
	w := httptest.NewRecorder()

	assert.Same(t, http.ResponseWriter(w), rec.WrapResponseWriter(w, nil))
}

func TestRequestLifecycleThroughRouter(t *testing.T) {
	t.Parallel()

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	rec, spans := newSpanRecorder(t, WithLogger(logger))

	r := router.MustNew(router.WithObservability(rec))
	r.GET("/users/:id", func(c *router.Context) {
		_ = c.String(http.StatusOK, "user 42")
	})

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "user 42", rr.Body.String())

	// Span renamed to the route pattern, not the concrete path.
	ended := spans.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, "GET /users/:id", span.Name())
	assert.Equal(t, oteltrace.SpanKindServer, span.SpanKind())
	assert.True(t, hasAttr(span.Attributes(), "http.status_code", int64(http.StatusOK)),
		"span should carry the response status, got %v", span.Attributes())

	// Request metrics reached the registry.
	body := scrapeBody(t, rec)
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, "http_request_duration_seconds")

	// One access log line with the route template and request id.
	logLine := logBuf.String()
	assert.Contains(t, logLine, `"msg":"access"`)
	assert.Contains(t, logLine, `"route":"/users/:id"`)
	assert.Contains(t, logLine, `"status":200`)
	assert.Contains(t, logLine, `"request_id":"req-123"`)
}

func TestExcludedPathProducesNoTelemetry(t *testing.T) {
	t.Parallel()

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	rec, spans := newSpanRecorder(t, WithLogger(logger))

	r := router.MustNew(router.WithObservability(rec))
	r.GET("/health", func(c *router.Context) {
		_ = c.String(http.StatusOK, "ok")
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, spans.Ended(), "excluded paths must not produce spans")
	assert.NotContains(t, logBuf.String(), `"msg":"access"`)
	assert.NotContains(t, scrapeBody(t, rec), "http_requests_total",
		"excluded paths must not be counted")
}

func TestUnmatchedRequestUsesFallbackRoute(t *testing.T) {
	t.Parallel()

	rec, spans := newSpanRecorder(t)

	r := router.MustNew(router.WithObservability(rec))
	r.GET("/known", func(c *router.Context) {
		_ = c.String(http.StatusOK, "ok")
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "GET "+router.RoutePatternNotFound, ended[0].Name())
	assert.True(t, hasAttr(ended[0].Attributes(), "http.status_code", int64(http.StatusNotFound)))
}

func TestSpanStatusOnServerError(t *testing.T) {
	t.Parallel()

	rec, spans := newSpanRecorder(t)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	ctx, token := rec.OnRequestStart(req.Context(), req)
	require.NotNil(t, token)

	w := rec.WrapResponseWriter(httptest.NewRecorder(), token)
	w.WriteHeader(http.StatusInternalServerError)
	rec.OnRequestEnd(ctx, token, w, "/boom")

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestAccessLogErrorsOnly(t *testing.T) {
	t.Parallel()

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	rec := newTestRecorder(t, WithLogger(logger), WithErrorsOnlyLogging(), WithoutTracing())

	serve := func(target string, status int) {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		ctx, token := rec.OnRequestStart(req.Context(), req)
		require.NotNil(t, token)

		w := rec.WrapResponseWriter(httptest.NewRecorder(), token)
		w.WriteHeader(status)
		rec.OnRequestEnd(ctx, token, w, target)
	}

	serve("/fine", http.StatusOK)
	assert.Empty(t, logBuf.String(), "successful requests should not log in errors-only mode")

	serve("/broken", http.StatusBadGateway)
	logLine := logBuf.String()
	assert.Contains(t, logLine, `"level":"ERROR"`)
	assert.Contains(t, logLine, `"status":502`)
}

func TestBuildRequestLogger(t *testing.T) {
	t.Parallel()

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	rec := newTestRecorder(t, WithLogger(logger))

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	req.Header.Set("X-Request-ID", "req-456")

	rec.BuildRequestLogger(context.Background(), req, "/users/:id").Info("handling")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &entry))

	assert.Equal(t, "GET", entry["http.method"])
	assert.Equal(t, "/users/42", entry["http.target"])
	assert.Equal(t, "/users/:id", entry["http.route"])
	assert.Equal(t, "req-456", entry["req.id"])
	assert.NotEmpty(t, entry["network.peer.ip"])
	assert.NotContains(t, entry, "trace_id", "no span in context, so no trace correlation")
}

func TestBuildRequestLoggerTraceCorrelation(t *testing.T) {
	t.Parallel()

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	rec, _ := newSpanRecorder(t, WithLogger(logger))

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	ctx, token := rec.OnRequestStart(req.Context(), req)
	require.NotNil(t, token)

	rec.BuildRequestLogger(ctx, req, "/users/:id").Info("handling")
	rec.OnRequestEnd(ctx, token, httptest.NewRecorder(), "/users/:id")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &entry))

	assert.NotEmpty(t, entry["trace_id"])
	assert.NotEmpty(t, entry["span_id"])
}

func TestBuildRequestLoggerWithoutLogger(t *testing.T) {
	t.Parallel()

	rec := newTestRecorder(t)

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	logger := rec.BuildRequestLogger(context.Background(), req, "/users/:id")

	require.NotNil(t, logger)
	assert.NotPanics(t, func() {
		logger.Info("discarded")
	})
}

func TestResponseWriterCapture(t *testing.T) {
	t.Parallel()

	t.Run("implicit status on write", func(t *testing.T) {
		t.Parallel()

		rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}

		n, err := rw.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, http.StatusOK, rw.StatusCode())
		assert.Equal(t, int64(5), rw.Size())
	})

	t.Run("explicit status wins once", func(t *testing.T) {
		t.Parallel()

		rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}

		rw.WriteHeader(http.StatusCreated)
		rw.WriteHeader(http.StatusInternalServerError) // Ignored
		assert.Equal(t, http.StatusCreated, rw.StatusCode())
	})

	t.Run("zero value defaults to 200", func(t *testing.T) {
		t.Parallel()

		rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
		assert.Equal(t, http.StatusOK, rw.StatusCode())
		assert.Zero(t, rw.Size())
	})

	t.Run("read from accounts size", func(t *testing.T) {
		t.Parallel()

		rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}

		n, err := rw.ReadFrom(strings.NewReader("streamed body"))
		require.NoError(t, err)
		assert.Equal(t, int64(13), n)
		assert.Equal(t, int64(13), rw.Size())
		assert.Equal(t, http.StatusOK, rw.StatusCode())
	})

	t.Run("hijack unsupported", func(t *testing.T) {
		t.Parallel()

		rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
		_, _, err := rw.Hijack()
		assert.Error(t, err)
	})
}

// hasAttr reports whether attrs contains an int64 attribute with the given
// key and value.
func hasAttr(attrs []attribute.KeyValue, key string, value int64) bool {
	for _, kv := range attrs {
		if string(kv.Key) == key && kv.Value.AsInt64() == value {
			return true
		}
	}
	return false
}
