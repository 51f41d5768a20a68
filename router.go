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
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cascade.dev/router/httperror"
)

// noopLogger is a singleton no-op logger used when no observability is configured.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// NoopLogger returns the singleton no-op logger.
// This is used by implementations of ObservabilityRecorder when logging is disabled.
func NoopLogger() *slog.Logger {
	return noopLogger
}

// Option defines functional options for router configuration.
type Option func(*Router)

// responseWriter wraps http.ResponseWriter to capture status code and size.
// It also prevents "superfluous response.WriteHeader call" errors
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
	written    bool
}

// WriteHeader captures the status code and prevents duplicate calls.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

// Write captures the response size and marks as written.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.written = true
	}
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

// StatusCode returns the HTTP status code.
func (rw *responseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

// Size returns the response size in bytes.
func (rw *responseWriter) Size() int64 {
	return rw.size
}

// Written returns true if headers have been written.
func (rw *responseWriter) Written() bool {
	return rw.written
}

// Compile-time check that responseWriter implements ResponseInfo.
var _ ResponseInfo = (*responseWriter)(nil)

// Hijack implements http.Hijacker interface.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, ErrResponseWriterNotHijacker
}

// Flush implements http.Flusher interface.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// defaultMethods is the implemented-method list a router starts with.
// AllowedMethods consults it to distinguish 405 (method not on this
// route) from 501 (method not implemented by the router at all).
var defaultMethods = []string{
	http.MethodHead,
	http.MethodOptions,
	http.MethodGet,
	http.MethodPut,
	http.MethodPatch,
	http.MethodPost,
	http.MethodDelete,
}

// standardMethods is every standard HTTP method. All registers against
// this full list rather than the router's configured subset.
var standardMethods = []string{
	http.MethodHead,
	http.MethodOptions,
	http.MethodGet,
	http.MethodPut,
	http.MethodPatch,
	http.MethodPost,
	http.MethodDelete,
	http.MethodConnect,
	http.MethodTrace,
}

// Router matches HTTP requests against an ordered list of compiled
// layers and executes their handler chains.
//
// Key properties:
//   - Layers run in registration order: the first layer whose pattern
//     accepts the path runs first, and every matching layer runs unless
//     an earlier handler declines to call Next. There is no
//     most-specific-wins reordering; register specific routes before
//     broad ones.
//   - Contexts are pooled and reset across requests.
//   - Named routes support reverse URL generation.
//   - Optional observability (metrics, tracing, request logging) through
//     a pluggable recorder.
//
// Registration is a single-threaded configuration phase: all routes,
// middleware, parameter validators and mounts must be in place before the
// first request is served. The router freezes itself on first dispatch
// (or explicitly via Freeze), after which registration calls panic.
// A frozen router is safe for unlimited concurrent dispatch.
//
// Example:
//
//	r := router.MustNew()
//	r.GET("/users/:id", func(c *router.Context) {
//	    _ = c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
//	})
//	log.Fatal(r.Serve(":8080"))
type Router struct {
	layers []*Layer

	// Parameter validators in declaration order. Register replays them
	// onto every layer added later, and Param applies a new validator to
	// every layer already present, so declaration order rather than
	// registration interleaving decides execution order.
	params     map[string]ParamHandlerFunc
	paramOrder []string

	prefix    string
	sensitive bool
	strict    bool

	// methods is the implemented-method list consulted by AllowedMethods.
	methods []string

	// routerPath, when set, replaces the request URL path for matching on
	// every request (per-request overrides via Context.SetRouterPath still
	// win).
	routerPath string

	notFound HandlerFunc

	// allowedEnabled appends an AllowedMethods handler to the base chain,
	// so OPTIONS, 405 and 501 handling runs without manual wiring.
	allowedEnabled bool
	allowedOptions []AllowedMethodsOption

	observability ObservabilityRecorder
	logger        *slog.Logger

	// HTTP/2 Cleartext (H2C) support
	enableH2C      bool
	serverTimeouts *serverTimeouts

	// baseChain is the handler chain ServeHTTP seeds each request with:
	// the dispatcher, plus the allowed-methods handler when enabled.
	baseChain []HandlerFunc

	frozen     atomic.Bool
	freezeOnce sync.Once

	serverMu sync.Mutex
	server   *http.Server
}

// serverTimeouts holds HTTP server timeout configuration.
type serverTimeouts struct {
	readHeader time.Duration
	read       time.Duration
	write      time.Duration
	idle       time.Duration
}

// New creates a router configured by the given options.
//
// Example:
//
//	r, err := router.New(
//	    router.WithPrefix("/api"),
//	    router.WithAllowedMethods(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(opts ...Option) (*Router, error) {
	r := &Router{
		methods:        slices.Clone(defaultMethods),
		serverTimeouts: defaultServerTimeouts(),
		notFound:       defaultNotFound,
		logger:         noopLogger,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("router configuration validation failed: %w", err)
	}

	r.baseChain = []HandlerFunc{r.Routes()}
	if r.allowedEnabled {
		r.baseChain = append(r.baseChain, r.AllowedMethods(r.allowedOptions...))
	}

	return r, nil
}

// MustNew creates a router and panics if any option is invalid. Intended
// for top-of-main construction where an error return is just noise.
//
// Example:
//
//	r := router.MustNew(router.WithH2C(true))
func MustNew(opts ...Option) *Router {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("router.MustNew: %v", err))
	}
	return r
}

// validate checks configuration consistency after options are applied.
func (r *Router) validate() error {
	if len(r.methods) == 0 {
		return ErrNoMethods
	}
	if t := r.serverTimeouts; t != nil {
		if t.readHeader < 0 || t.read < 0 || t.write < 0 || t.idle < 0 {
			return fmt.Errorf("%w: readHeader=%v read=%v write=%v idle=%v",
				ErrInvalidTimeout, t.readHeader, t.read, t.write, t.idle)
		}
	}
	return nil
}

// defaultNotFound answers unmatched requests with a problem+json 404.
func defaultNotFound(c *Context) {
	_ = httperror.NotFound().WriteJSON(c.Response)
}

// SetObservabilityRecorder sets the observability recorder for metrics,
// tracing, and request logging. Like all configuration it must happen
// before the router starts serving.
//
// Example:
//
//	r.SetObservabilityRecorder(recorder)
func (r *Router) SetObservabilityRecorder(recorder ObservabilityRecorder) {
	r.checkFrozen("SetObservabilityRecorder")
	r.observability = recorder
}

// NoRoute sets a custom handler for requests that don't match any
// registered route by both path and method. Setting nil restores the
// default problem+json 404 response.
//
// Example:
//
//	r.NoRoute(func(c *router.Context) {
//	    _ = c.JSON(http.StatusNotFound, map[string]string{"error": "nothing here"})
//	})
func (r *Router) NoRoute(handler HandlerFunc) {
	r.checkFrozen("NoRoute")
	if handler == nil {
		handler = defaultNotFound
	}
	r.notFound = handler
}

// Freeze marks the registration phase as complete. It is called
// automatically on first dispatch; calling it explicitly at the end of
// startup makes later stray registrations fail immediately instead of on
// first traffic. Freeze is idempotent.
func (r *Router) Freeze() {
	r.freezeOnce.Do(func() {
		r.frozen.Store(true)
	})
}

// Frozen returns true once the router has started serving (or Freeze was
// called) and registration is no longer allowed.
func (r *Router) Frozen() bool {
	return r.frozen.Load()
}

// checkFrozen panics when a registration-time operation runs after the
// router has frozen. Registration is a single-threaded configuration
// phase; mutating layers while requests are in flight would race.
func (r *Router) checkFrozen(op string) {
	if r.frozen.Load() {
		panic(fmt.Sprintf("router: cannot call %s after the router has started serving requests.\n"+
			"Registration must complete before ServeHTTP, Serve, or Freeze.\n"+
			"This is a design constraint to prevent data races.", op))
	}
}

// RouteSpec describes one registration for Register. It replaces
// positional registration overloads with explicit fields: the name is
// never mistaken for a path, and matching options are visibly per-route.
type RouteSpec struct {
	// Name names the layers for reverse routing. Optional.
	Name string

	// Methods the layers answer, upper-cased on registration. An empty
	// list registers middleware layers that match by path alone.
	Methods []string

	// Path is the path template. Exactly one of Path and Paths must be
	// set.
	Path string

	// Paths fans out the registration, one layer per template.
	Paths []string

	// Handlers run in order when a layer is dispatched. At least one is
	// required, and none may be nil.
	Handlers []HandlerFunc

	// Sensitive, Strict and End override the router's matching defaults
	// when non-nil.
	Sensitive *bool
	Strict    *bool
	End       *bool

	// IgnoreCaptures suppresses positional captures, keeping the unnamed
	// catch-all group of a path-less middleware mount out of the request
	// parameters.
	IgnoreCaptures bool
}

// Register adds layers for spec and returns them in path order. It is
// the primitive behind every verb shorthand; use it directly when a
// registration needs a name, several paths, or per-route matching
// options.
//
// Example:
//
//	layers, err := r.Register(router.RouteSpec{
//	    Name:     "user",
//	    Methods:  []string{http.MethodGet},
//	    Path:     "/users/:id",
//	    Handlers: []router.HandlerFunc{showUser},
//	})
func (r *Router) Register(spec RouteSpec) ([]*Layer, error) {
	r.checkFrozen("Register")

	hasPath, hasPaths := spec.Path != "", len(spec.Paths) > 0
	if hasPath == hasPaths {
		return nil, ErrMissingPath
	}
	if len(spec.Handlers) == 0 {
		return nil, ErrNoHandlers
	}

	paths := spec.Paths
	if hasPath {
		paths = []string{spec.Path}
	}

	opts := layerOptions{
		sensitive:      r.sensitive,
		strict:         r.strict,
		end:            true,
		ignoreCaptures: spec.IgnoreCaptures,
	}
	if spec.Sensitive != nil {
		opts.sensitive = *spec.Sensitive
	}
	if spec.Strict != nil {
		opts.strict = *spec.Strict
	}
	if spec.End != nil {
		opts.end = *spec.End
	}

	layers := make([]*Layer, 0, len(paths))
	for _, path := range paths {
		l, err := newLayer(spec.Name, path, spec.Methods, spec.Handlers, opts)
		if err != nil {
			return nil, err
		}
		r.absorb(l)
		layers = append(layers, l)
	}

	return layers, nil
}

// absorb wires a constructed layer into the router: back-reference,
// router prefix, replay of every declared parameter validator, then
// append to the layer list.
func (r *Router) absorb(l *Layer) {
	l.router = r
	if r.prefix != "" {
		l.SetPrefix(r.prefix)
	}
	for _, name := range r.paramOrder {
		l.Param(name, r.params[name])
	}
	r.layers = append(r.layers, l)
}

// mustRegister backs the verb shorthands. Registration errors there are
// programming mistakes (bad pattern, nil handler), so they panic the way
// MustNew does rather than threading error returns through every route
// table.
func (r *Router) mustRegister(methods []string, path string, handlers []HandlerFunc) *Layer {
	layers, err := r.Register(RouteSpec{
		Methods:  methods,
		Path:     path,
		Handlers: handlers,
	})
	if err != nil {
		panic(fmt.Sprintf("router: register %s %s: %v", strings.Join(methods, ","), path, err))
	}
	return layers[0]
}

// Layers returns the registration-ordered layer list. The slice is a
// copy; the layers are the live ones.
func (r *Router) Layers() []*Layer {
	return slices.Clone(r.layers)
}

// Methods returns a copy of the router's implemented-method list.
func (r *Router) Methods() []string {
	return slices.Clone(r.methods)
}

// String renders the route table, one layer per line, for debugging and
// startup logs.
func (r *Router) String() string {
	var b strings.Builder
	for i, l := range r.layers {
		if i > 0 {
			b.WriteByte('\n')
		}
		methods := "*"
		if len(l.methods) > 0 {
			methods = strings.Join(l.methods, ",")
		}
		fmt.Fprintf(&b, "%s %s", methods, l.pattern)
		if l.name != "" {
			fmt.Fprintf(&b, " (%s)", l.name)
		}
	}
	return b.String()
}
