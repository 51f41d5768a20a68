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
	"log/slog"
	"strings"
	"time"
)

// WithPrefix sets a path prefix prepended to every route registered on
// the router, including routes absorbed from mounted routers. A trailing
// slash on the prefix is dropped so "/api" and "/api/" behave the same.
//
// Example:
//
//	r := router.MustNew(router.WithPrefix("/api/v1"))
//	r.GET("/users", listUsers) // served at /api/v1/users
func WithPrefix(prefix string) Option {
	return func(r *Router) {
		r.prefix = strings.TrimSuffix(prefix, "/")
	}
}

// WithCaseSensitive controls case-sensitive path matching.
// By default paths match case-insensitively, so /Users and /users hit
// the same route.
//
// The setting applies to routes registered after construction; it does
// not rewrite per-route overrides passed through Register.
//
// Example:
//
//	r := router.MustNew(router.WithCaseSensitive(true))
//	r.GET("/Users", handler) // /users no longer matches
func WithCaseSensitive(sensitive bool) Option {
	return func(r *Router) {
		r.sensitive = sensitive
	}
}

// WithStrictSlash controls trailing-slash strictness. By default a
// trailing slash is optional, so /users and /users/ hit the same route.
// With strict matching enabled, /users/ only matches a pattern that
// ends in a slash.
//
// Example:
//
//	r := router.MustNew(router.WithStrictSlash(true))
//	r.GET("/users", handler) // /users/ responds 404
func WithStrictSlash(strict bool) Option {
	return func(r *Router) {
		r.strict = strict
	}
}

// WithMethods replaces the set of HTTP methods the router reports as
// implemented. AllowedMethods consults this set to decide between 405
// (method known but not routed) and 501 (method not implemented at all).
// Methods are normalized to upper case.
//
// The default set is HEAD, OPTIONS, GET, PUT, PATCH, POST and DELETE.
//
// Example:
//
//	r := router.MustNew(router.WithMethods([]string{"GET", "POST"}))
func WithMethods(methods []string) Option {
	return func(r *Router) {
		normalized := make([]string, 0, len(methods))
		for _, m := range methods {
			normalized = append(normalized, strings.ToUpper(m))
		}
		r.methods = normalized
	}
}

// WithRouterPath sets a fixed path used for matching instead of the
// request URL path. Useful behind proxies that rewrite paths, or for
// testing a single route in isolation. Per-request overrides via
// Context.SetRouterPath take precedence.
//
// Example:
//
//	r := router.MustNew(router.WithRouterPath("/internal/health"))
func WithRouterPath(path string) Option {
	return func(r *Router) {
		r.routerPath = path
	}
}

// WithNotFoundHandler sets the handler that answers requests no route
// matched. The default writes a problem+json 404. Equivalent to calling
// NoRoute after construction.
//
// Example:
//
//	r := router.MustNew(router.WithNotFoundHandler(func(c *router.Context) {
//	    _ = c.JSON(http.StatusNotFound, map[string]string{"error": "no such page"})
//	}))
func WithNotFoundHandler(handler HandlerFunc) Option {
	return func(r *Router) {
		if handler != nil {
			r.notFound = handler
		}
	}
}

// WithAllowedMethods appends an AllowedMethods responder to every
// request chain, so OPTIONS requests, 405 and 501 responses are handled
// without wiring the handler manually. The opts configure the responder
// the same way a manual r.Use(r.AllowedMethods(...)) would.
//
// Example:
//
//	r := router.MustNew(router.WithAllowedMethods())
//	r.GET("/users", listUsers)
//	// OPTIONS /users now answers 200 with Allow: HEAD, GET
func WithAllowedMethods(opts ...AllowedMethodsOption) Option {
	return func(r *Router) {
		r.allowedEnabled = true
		r.allowedOptions = opts
	}
}

// WithObservability sets the unified observability recorder for the
// router. This integrates metrics, tracing, and request logging into a
// single lifecycle. Equivalent to calling SetObservabilityRecorder
// after construction.
//
// Example:
//
//	rec, _ := telemetry.New(telemetry.WithServiceName("api"))
//	r := router.MustNew(router.WithObservability(rec))
func WithObservability(recorder ObservabilityRecorder) Option {
	return func(r *Router) {
		r.observability = recorder
	}
}

// WithLogger sets the slog.Logger used for router lifecycle messages
// and as the fallback request logger when no observability recorder is
// configured. The default logger discards everything.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	r := router.MustNew(router.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithH2C enables HTTP/2 Cleartext support.
//
// ⚠️ SECURITY WARNING: Only use in development or behind a trusted load balancer.
// DO NOT enable on public-facing servers without TLS.
//
// Common deployment patterns:
//   - Dev/local testing: Enable h2c for direct HTTP/2 testing
//   - Behind Envoy/Caddy: LB speaks h2c to app (configure LB accordingly)
//   - Behind Nginx: Typically uses HTTP/1.1 upstream (h2c not needed)
//
// Requires: golang.org/x/net/http2/h2c
//
// Example:
//
//	r := router.MustNew(router.WithH2C(true))
//	r.Serve(":8080")
func WithH2C(enable bool) Option {
	return func(r *Router) {
		r.enableH2C = enable
	}
}

// WithServerTimeouts configures HTTP server timeouts.
// These are critical for preventing slowloris attacks and resource exhaustion.
//
// Defaults (if not set):
//
//	ReadHeaderTimeout: 5s  - Time to read request headers
//	ReadTimeout:       15s - Time to read entire request
//	WriteTimeout:      30s - Time to write response
//	IdleTimeout:       60s - Keep-alive idle time
//
// Example:
//
//	r := router.MustNew(router.WithServerTimeouts(
//	    10*time.Second,  // ReadHeaderTimeout
//	    30*time.Second,  // ReadTimeout
//	    60*time.Second,  // WriteTimeout
//	    120*time.Second, // IdleTimeout
//	))
func WithServerTimeouts(readHeader, read, write, idle time.Duration) Option {
	return func(r *Router) {
		r.serverTimeouts = &serverTimeouts{
			readHeader: readHeader,
			read:       read,
			write:      write,
			idle:       idle,
		}
	}
}

// defaultServerTimeouts returns default timeout configuration.
func defaultServerTimeouts() *serverTimeouts {
	return &serverTimeouts{
		readHeader: 5 * time.Second,
		read:       15 * time.Second,
		write:      30 * time.Second,
		idle:       60 * time.Second,
	}
}
