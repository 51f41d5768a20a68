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
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"cascade.dev/router/httperror"
)

// ServeHTTP implements the http.Handler interface for Router.
//
// For each request:
//  1. Freezes the router on first use, making configuration and serving
//     mutually exclusive phases.
//  2. Runs the observability lifecycle start, wrapping the request
//     context and response writer when a recorder is configured.
//  3. Seeds a pooled context with the base chain (the dispatcher, plus
//     the allowed-methods handler when enabled) and runs it.
//  4. Settles the response: recorded errors become problem+json
//     responses, and an error-free chain that wrote nothing falls
//     through to the not-found handler.
//  5. Releases the context and finishes the observability lifecycle with
//     the matched route pattern.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// Auto-freeze on first request: ensures layers are immutable during
	// serving. After this point, any attempt to register routes panics.
	r.Freeze()

	ctx := req.Context()
	var obsState any

	// Observability lifecycle - start
	if r.observability != nil {
		var enrichedCtx context.Context
		enrichedCtx, obsState = r.observability.OnRequestStart(ctx, req)

		// Only attach enriched context if it actually changed
		// This avoids unnecessary creation when observability doesn't enrich the context
		if enrichedCtx != ctx {
			ctx = enrichedCtx
			req = req.WithContext(ctx)
		}
	}

	// Only wrap ResponseWriter if not excluded
	if r.observability != nil && obsState != nil {
		w = r.observability.WrapResponseWriter(w, obsState)
	}

	// The router's own wrapper goes outermost: Written checks and error
	// settlement consult it, and it carries status and size to
	// OnRequestEnd.
	rw := &responseWriter{ResponseWriter: w}

	c := acquireContext()
	c.initForRequest(r, rw, req, r.baseChain)

	c.Next()
	r.finishRequest(c, rw, req)

	routePattern := c.matchedPath
	if routePattern == "" {
		routePattern = RoutePatternNotFound
	}

	releaseContext(c)

	// Finish observability
	if obsState != nil {
		r.observability.OnRequestEnd(ctx, obsState, rw, routePattern)
	}
}

// finishRequest settles a request whose chain wrote no response. Errors
// recorded on the context map to a problem+json response: the first
// httperror in the list decides the status, anything else is a 500. An
// error-free unwritten chain means nothing matched by path and method,
// so the not-found handler answers.
func (r *Router) finishRequest(c *Context, rw *responseWriter, req *http.Request) {
	if rw.Written() {
		return
	}

	if c.HasErrors() {
		for _, err := range c.Errors() {
			if httpErr, ok := httperror.FromError(err); ok {
				_ = httpErr.WriteJSON(rw)
				return
			}
		}
		c.Logger().Error("request failed", "err", c.Errors()[0])
		_ = httperror.New(http.StatusInternalServerError, "").WriteJSON(rw)
		return
	}

	if r.observability != nil {
		c.SetLogger(r.observability.BuildRequestLogger(c.RequestContext(), req, RoutePatternNotFound))
	}
	r.notFound(c)
}

// Serve starts the HTTP server on the specified address.
// Automatically enables h2c if configured via WithH2C().
//
// This method follows the stdlib pattern: it blocks until the server exits.
// For graceful shutdown, use the Shutdown method from another goroutine.
//
// The server is configured with production-safe timeouts to prevent
// slowloris attacks and resource exhaustion.
//
// Example:
//
//	r := router.MustNew()
//	r.GET("/", func(c *router.Context) {
//	    _ = c.String(http.StatusOK, "Hello, World!")
//	})
//
//	// Start server in goroutine
//	go func() {
//	    if err := r.Serve(":8080"); err != nil && err != http.ErrServerClosed {
//	        log.Fatal(err)
//	    }
//	}()
//
//	// Wait for signal
//	quit := make(chan os.Signal, 1)
//	signal.Notify(quit, os.Interrupt)
//	<-quit
//
//	// Graceful shutdown
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	r.Shutdown(ctx)
func (r *Router) Serve(addr string) error {
	h := http.Handler(r)

	if r.enableH2C {
		h = h2c.NewHandler(h, &http2.Server{})
		r.logger.Warn("h2c enabled; use only in dev or behind a trusted LB")
	}

	timeouts := r.serverTimeouts
	if timeouts == nil {
		timeouts = defaultServerTimeouts()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: timeouts.readHeader,
		ReadTimeout:       timeouts.read,
		WriteTimeout:      timeouts.write,
		IdleTimeout:       timeouts.idle,
	}

	// Store server reference for Shutdown
	r.serverMu.Lock()
	r.server = srv
	r.serverMu.Unlock()

	return srv.ListenAndServe()
}

// ServeTLS starts the HTTPS server with TLS configuration.
// For TLS servers, HTTP/2 is automatically enabled via ALPN.
//
// This method follows the stdlib pattern: it blocks until the server exits.
// For graceful shutdown, use the Shutdown method from another goroutine.
//
// Example:
//
//	if err := r.ServeTLS(":8443", "cert.pem", "key.pem"); err != nil {
//	    log.Fatal(err)
//	}
func (r *Router) ServeTLS(addr, certFile, keyFile string) error {
	timeouts := r.serverTimeouts
	if timeouts == nil {
		timeouts = defaultServerTimeouts()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: timeouts.readHeader,
		ReadTimeout:       timeouts.read,
		WriteTimeout:      timeouts.write,
		IdleTimeout:       timeouts.idle,
	}

	// Store server reference for Shutdown
	r.serverMu.Lock()
	r.server = srv
	r.serverMu.Unlock()

	// HTTP/2 is automatically enabled over TLS via ALPN
	return srv.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown gracefully shuts down the server without interrupting active
// connections. This follows the stdlib http.Server.Shutdown pattern.
//
// The provided context controls the timeout for the graceful shutdown.
// When the context is canceled, active connections are forcefully closed.
//
// Shutdown returns nil if no server is running, or the error from
// http.Server.Shutdown.
func (r *Router) Shutdown(ctx context.Context) error {
	r.serverMu.Lock()
	srv := r.server
	r.server = nil
	r.serverMu.Unlock()

	if srv == nil {
		return nil // No server running
	}

	return srv.Shutdown(ctx)
}
