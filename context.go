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
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

// HandlerFunc is the unit of request handling. Handlers run as a chain: a
// handler that wants the rest of the chain to run calls c.Next, and a
// handler that returns without calling it short-circuits everything
// registered after it.
type HandlerFunc func(c *Context)

// maxInlineParams is the number of route parameters stored inline before
// spilling to the overflow map.
const maxInlineParams = 8

// Context carries a single request through the handler chain. Contexts are
// pooled and reset between requests; handlers must not retain one past the
// end of the request.
type Context struct {
	Request  *http.Request
	Response http.ResponseWriter

	handlers []HandlerFunc
	index    int
	aborted  bool

	router *Router

	// Parameters accumulate across every layer entered during dispatch.
	// The inline arrays cover routes with up to maxInlineParams parameters
	// without allocating; deeper routes spill into the map.
	paramCount  int
	paramKeys   [maxInlineParams]string
	paramValues [maxInlineParams]string
	params      map[string]string

	captures []string

	matched      []*Layer
	routerPath   string
	routerName   string
	matchedPath  string
	matchedName  string
	pathOverride string

	logger     *slog.Logger
	queryCache url.Values
	errors     []error

	metrics ContextMetricsRecorder
}

// NewContext creates a standalone context for the given response writer
// and request. It is intended for tests and for invoking handlers outside
// a router; requests served through a Router use pooled contexts instead.
func NewContext(w http.ResponseWriter, r *http.Request) *Context {
	return &Context{
		Request:  r,
		Response: w,
		index:    -1,
		logger:   noopLogger,
	}
}

// initForRequest prepares a pooled context for one request.
func (c *Context) initForRequest(r *Router, w http.ResponseWriter, req *http.Request, handlers []HandlerFunc) {
	c.Request = req
	c.Response = w
	c.handlers = handlers
	c.index = -1
	c.router = r
	c.logger = noopLogger
	if r != nil && r.observability != nil {
		c.metrics, _ = r.observability.(ContextMetricsRecorder)
	}
}

// reset clears all per-request state so the context can return to the
// pool without leaking values into the next request.
func (c *Context) reset() {
	c.Request = nil
	c.Response = nil
	c.handlers = nil
	c.index = -1
	c.aborted = false
	c.router = nil

	if c.paramCount > maxInlineParams {
		c.paramCount = maxInlineParams
	}
	for i := 0; i < c.paramCount; i++ {
		c.paramKeys[i] = ""
		c.paramValues[i] = ""
	}
	c.paramCount = 0
	clear(c.params)

	c.captures = nil
	c.matched = nil
	c.routerPath = ""
	c.routerName = ""
	c.matchedPath = ""
	c.matchedName = ""
	c.pathOverride = ""

	c.logger = nil
	c.queryCache = nil
	c.errors = nil
	c.metrics = nil
}

// Next runs the next handler in the chain. Middleware calls it to hand
// control downstream and regains control when everything downstream has
// returned. Not calling Next short-circuits the remainder of the chain;
// after Abort, Next does nothing.
func (c *Context) Next() {
	if c.aborted {
		return
	}
	c.index++
	if c.index < len(c.handlers) {
		c.handlers[c.index](c)
	}
}

// Abort prevents any further handlers from running. Unlike simply
// returning without Next, Abort also stops the chain when control unwinds
// through middleware that calls Next again.
func (c *Context) Abort() {
	c.aborted = true
}

// IsAborted reports whether Abort was called.
func (c *Context) IsAborted() bool {
	return c.aborted
}

// spliceHandlers inserts chain into the handler list immediately after
// the currently-running handler, so the next call to Next enters it and
// falling off its end continues the original chain.
func (c *Context) spliceHandlers(chain []HandlerFunc) {
	at := c.index + 1
	merged := make([]HandlerFunc, 0, len(c.handlers)+len(chain))
	merged = append(merged, c.handlers[:at]...)
	merged = append(merged, chain...)
	merged = append(merged, c.handlers[at:]...)
	c.handlers = merged
}

// Param returns the value of the named route parameter, or an empty
// string if the route declares no such parameter.
//
// Example:
//
//	r.GET("/users/:id", func(c *router.Context) {
//	    userID := c.Param("id")
//	    _ = c.JSON(http.StatusOK, map[string]string{"user_id": userID})
//	})
func (c *Context) Param(key string) string {
	for i := 0; i < c.paramCount; i++ {
		if c.paramKeys[i] == key {
			return c.paramValues[i]
		}
	}
	return c.params[key]
}

// SetParam stores a route parameter, overwriting an existing value of the
// same name. Dispatch uses it while binding matched layers; handlers may
// use it to pass derived values down the chain.
func (c *Context) SetParam(key, value string) {
	for i := 0; i < c.paramCount; i++ {
		if c.paramKeys[i] == key {
			c.paramValues[i] = value
			return
		}
	}
	if c.params != nil {
		if _, ok := c.params[key]; ok {
			c.params[key] = value
			return
		}
	}
	if c.paramCount < maxInlineParams {
		c.paramKeys[c.paramCount] = key
		c.paramValues[c.paramCount] = value
		c.paramCount++
		return
	}
	if c.params == nil {
		c.params = make(map[string]string, maxInlineParams)
	}
	c.params[key] = value
}

// AllParams returns a copy of every route parameter accumulated so far,
// including parameters contributed by outer layers earlier in the chain.
func (c *Context) AllParams() map[string]string {
	out := make(map[string]string, c.paramCount+len(c.params))
	for i := 0; i < c.paramCount; i++ {
		out[c.paramKeys[i]] = c.paramValues[i]
	}
	for k, v := range c.params {
		out[k] = v
	}
	return out
}

// Captures returns the raw captured substrings for the most recently
// entered layer, positionally aligned with its parameter names. The slice
// is owned by the context; treat it as read-only.
func (c *Context) Captures() []string {
	return c.captures
}

// Router returns the router that dispatched this request, or nil outside
// a dispatch.
func (c *Context) Router() *Router {
	return c.router
}

// RouterPath returns the pattern of the most recently entered layer.
func (c *Context) RouterPath() string {
	return c.routerPath
}

// RouterName returns the name of the most recently entered layer, or an
// empty string for unnamed layers.
func (c *Context) RouterName() string {
	return c.routerName
}

// MatchedPath returns the pattern of the most specific layer matched by
// path and method in the current dispatch.
func (c *Context) MatchedPath() string {
	return c.matchedPath
}

// MatchedName returns the name of the most specific matched layer that
// carries one.
func (c *Context) MatchedName() string {
	return c.matchedName
}

// Matched returns every layer that matched the request path, across all
// dispatches that ran for this request, in registration order. The
// allowed-methods middleware unions over it to build Allow headers. The
// slice is owned by the context; treat it as read-only.
func (c *Context) Matched() []*Layer {
	return c.matched
}

// SetRouterPath overrides the path used for route matching on this
// request. It must be called before dispatch runs, typically from
// middleware registered ahead of Routes, and takes precedence over both
// the router's configured path override and the request URL.
func (c *Context) SetRouterPath(path string) {
	c.pathOverride = path
}

// RoutePattern returns the matched route pattern for observability
// labeling, or RoutePatternUnmatched when no dispatch has recorded one.
// Recorders should prefer it over the raw request path to keep metric
// cardinality bounded.
func (c *Context) RoutePattern() string {
	if c.matchedPath != "" {
		return c.matchedPath
	}
	return RoutePatternUnmatched
}

// Logger returns the request-scoped logger. Without an observability
// recorder this is a no-op logger, so call sites never need a nil check.
func (c *Context) Logger() *slog.Logger {
	if c.logger == nil {
		return noopLogger
	}
	return c.logger
}

// SetLogger replaces the request-scoped logger for the remainder of the
// chain. Middleware uses it to attach attributes such as a request ID.
func (c *Context) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// RequestContext returns the request's context for propagation into
// downstream calls.
func (c *Context) RequestContext() context.Context {
	if c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// queryValues parses the query string once per request.
func (c *Context) queryValues() url.Values {
	if c.queryCache == nil {
		if c.Request == nil {
			return url.Values{}
		}
		c.queryCache = c.Request.URL.Query()
	}
	return c.queryCache
}

// Query returns the value of the URL query parameter by key, or an empty
// string if the parameter doesn't exist.
//
// For a URL like "/search?q=golang&limit=10":
//
//	query := c.Query("q")     // "golang"
//	limit := c.Query("limit") // "10"
//	missing := c.Query("xyz") // ""
func (c *Context) Query(key string) string {
	return c.queryValues().Get(key)
}

// QueryDefault returns the query parameter value or a default if not
// present.
func (c *Context) QueryDefault(key, defaultValue string) string {
	value := c.Query(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// AllQueries returns all query parameters as a map. For parameters with
// multiple values, the last value wins.
func (c *Context) AllQueries() map[string]string {
	values := c.queryValues()
	out := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			out[k] = vs[len(vs)-1]
		}
	}
	return out
}

// FormValue returns the value of the form field by key. It handles both
// application/x-www-form-urlencoded and multipart/form-data.
func (c *Context) FormValue(key string) string {
	return c.Request.FormValue(key)
}

// FormValueDefault returns the form field value or a default if not
// present.
func (c *Context) FormValueDefault(key, defaultValue string) string {
	value := c.FormValue(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetCookie returns the value of the named cookie, or an error when the
// request carries no such cookie.
func (c *Context) GetCookie(name string) (string, error) {
	cookie, err := c.Request.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// SetCookie adds a Set-Cookie header to the response.
func (c *Context) SetCookie(name, value string, maxAge int, path, domain string, secure, httpOnly bool) {
	http.SetCookie(c.Response, &http.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   maxAge,
		Path:     path,
		Domain:   domain,
		Secure:   secure,
		HttpOnly: httpOnly,
	})
}

// JSON sends a JSON response with the specified status code.
// Returns an error if encoding or writing fails.
//
// Example:
//
//	if err := c.JSON(http.StatusOK, user); err != nil {
//	    c.Logger().Error("failed to write json", "err", err)
//	    return
//	}
func (c *Context) JSON(code int, obj any) error {
	// Encode to a buffer first so an encoding failure never leaves a
	// half-written response behind.
	var buf strings.Builder
	buf.Grow(256)

	if err := json.NewEncoder(&buf).Encode(obj); err != nil {
		return fmt.Errorf("JSON encoding failed for type %T: %w", obj, err)
	}

	c.Response.Header().Set("Content-Type", "application/json; charset=utf-8")

	if rw, ok := c.Response.(*responseWriter); ok {
		if !rw.Written() {
			c.Response.WriteHeader(code)
		}
	} else {
		c.Response.WriteHeader(code)
	}

	_, writeErr := c.Response.Write([]byte(buf.String()))

	return writeErr
}

// YAML sends a YAML response with the specified status code.
// Returns an error if encoding or writing fails.
func (c *Context) YAML(code int, obj any) error {
	data, err := yaml.Marshal(obj)
	if err != nil {
		return fmt.Errorf("YAML encoding failed for type %T: %w", obj, err)
	}

	c.Response.Header().Set("Content-Type", "application/x-yaml; charset=utf-8")

	if rw, ok := c.Response.(*responseWriter); ok {
		if !rw.Written() {
			c.Response.WriteHeader(code)
		}
	} else {
		c.Response.WriteHeader(code)
	}

	_, writeErr := c.Response.Write(data)

	return writeErr
}

// String sends a plain text response with the specified status code.
func (c *Context) String(code int, value string) error {
	c.Response.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if rw, ok := c.Response.(*responseWriter); ok {
		if !rw.Written() {
			c.Response.WriteHeader(code)
		}
	} else {
		c.Response.WriteHeader(code)
	}

	_, err := c.Response.Write([]byte(value))

	return err
}

// Stringf sends a formatted plain text response with the specified status
// code.
func (c *Context) Stringf(code int, format string, values ...any) error {
	return c.String(code, fmt.Sprintf(format, values...))
}

// HTML sends an HTML response with the specified status code.
func (c *Context) HTML(code int, html string) error {
	c.Response.Header().Set("Content-Type", "text/html; charset=utf-8")

	if rw, ok := c.Response.(*responseWriter); ok {
		if !rw.Written() {
			c.Response.WriteHeader(code)
		}
	} else {
		c.Response.WriteHeader(code)
	}

	_, err := c.Response.Write([]byte(html))

	return err
}

// Data sends raw bytes with the given content type and status code.
func (c *Context) Data(code int, contentType string, data []byte) error {
	c.Response.Header().Set("Content-Type", contentType)

	if rw, ok := c.Response.(*responseWriter); ok {
		if !rw.Written() {
			c.Response.WriteHeader(code)
		}
	} else {
		c.Response.WriteHeader(code)
	}

	_, err := c.Response.Write(data)

	return err
}

// Status writes the response status code. It should be called before any
// body is written; once headers have gone out it does nothing.
func (c *Context) Status(code int) {
	if rw, ok := c.Response.(*responseWriter); ok {
		if !rw.Written() {
			c.Response.WriteHeader(code)
		}
	} else {
		c.Response.WriteHeader(code)
	}
}

// Header sets a response header. Values containing newline characters are
// sanitized to prevent header injection, and the sanitization is logged.
//
// Example:
//
//	c.Header("Cache-Control", "no-cache")
func (c *Context) Header(key, value string) {
	if strings.ContainsAny(value, "\r\n") {
		c.Logger().Warn("header value sanitized",
			"key", key,
			"path", c.Request.URL.Path,
		)
		value = strings.ReplaceAll(value, "\r", "")
		value = strings.ReplaceAll(value, "\n", "")
	}

	c.Response.Header().Set(key, value)
}

// Redirect sends an HTTP redirect to location with the given status code.
// Common codes: 301 (Moved Permanently), 302 (Found), 307 (Temporary
// Redirect), 308 (Permanent Redirect).
func (c *Context) Redirect(code int, location string) {
	c.Header("Location", location)
	c.Status(code)
}

// NoContent sends a 204 No Content response.
func (c *Context) NoContent() {
	c.Status(http.StatusNoContent)
}

// Error records an error against the request without writing a response.
// After the chain settles, the serving layer maps the first recorded
// httperror.Error to a response status (other errors produce a 500) when
// nothing has been written yet. Nil errors are ignored.
func (c *Context) Error(err error) {
	if err == nil {
		return
	}
	if c.errors == nil {
		c.errors = make([]error, 0, 4)
	}
	c.errors = append(c.errors, err)
}

// Errors returns every error recorded on this request, in order.
func (c *Context) Errors() []error {
	return c.errors
}

// HasErrors reports whether any error has been recorded.
func (c *Context) HasErrors() bool {
	return len(c.errors) > 0
}

// RecordMetric records a custom histogram metric when the configured
// observability recorder supports custom metrics; otherwise it is a
// no-op.
func (c *Context) RecordMetric(name string, value float64, attrs ...attribute.KeyValue) {
	if c.metrics != nil {
		c.metrics.RecordMetric(c.RequestContext(), name, value, attrs...)
	}
}

// IncrementCounter increments a custom counter metric when the configured
// observability recorder supports custom metrics; otherwise it is a
// no-op.
func (c *Context) IncrementCounter(name string, attrs ...attribute.KeyValue) {
	if c.metrics != nil {
		c.metrics.IncrementCounter(c.RequestContext(), name, attrs...)
	}
}

// SetGauge sets a custom gauge metric when the configured observability
// recorder supports custom metrics; otherwise it is a no-op.
func (c *Context) SetGauge(name string, value float64, attrs ...attribute.KeyValue) {
	if c.metrics != nil {
		c.metrics.SetGauge(c.RequestContext(), name, value, attrs...)
	}
}

// TraceID returns the trace ID of the span riding the request context, or
// an empty string when no sampled trace is active.
func (c *Context) TraceID() string {
	if sc := trace.SpanFromContext(c.RequestContext()).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// SpanID returns the span ID of the span riding the request context, or
// an empty string when no sampled trace is active.
func (c *Context) SpanID() string {
	if sc := trace.SpanFromContext(c.RequestContext()).SpanContext(); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}

// SetSpanAttribute adds an attribute to the active span. It is a no-op
// when tracing is not active.
func (c *Context) SetSpanAttribute(key string, value any) {
	span := trace.SpanFromContext(c.RequestContext())
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	default:
		span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// AddSpanEvent adds an event to the active span with optional attributes.
// It is a no-op when tracing is not active.
func (c *Context) AddSpanEvent(name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(c.RequestContext()).AddEvent(name, trace.WithAttributes(attrs...))
}

// TraceContext returns the context carrying the active span, for manual
// span creation or propagation into downstream calls.
func (c *Context) TraceContext() context.Context {
	return c.RequestContext()
}
