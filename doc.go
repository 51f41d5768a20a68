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

// Package router provides an ordered, pattern-based HTTP router for Go.
//
// Routes are expressed as path templates (/users/:id), compiled to
// regular expressions, and matched strictly in registration order. The
// first layer that matches both path and method handles the request,
// which makes dispatch behavior predictable: what you register first
// wins, always.
//
// # Key Features
//
//   - Template patterns with named parameters, custom parameter
//     expressions (:id(\d+)), optional segments and wildcards
//   - Ordered matching with first-match-wins dispatch
//   - Middleware as routes: Use registers a wildcard layer, so global
//     and path-scoped middleware share one mental model
//   - Per-parameter validators that run before route handlers
//   - Router composition with Mount, including name prefixing
//   - Reverse routing: build URLs from route names and parameters
//   - OPTIONS, 405 and 501 handling via AllowedMethods
//   - Context pooling for allocation-free request handling
//   - Unified observability (metrics, tracing, request logging) through
//     a single recorder interface
//
// # Pattern Syntax
//
//   - /users          static path
//   - /users/:id      named parameter (one segment)
//   - /users/:id(\d+) named parameter with a custom expression
//   - /:lang?/about   optional parameter
//   - /user/(.*)      unnamed capture group
//
// Parameter values are percent-decoded before they reach handlers;
// values that do not decode cleanly are passed through raw rather than
// rejected.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "net/http"
//
//	    "cascade.dev/router"
//	)
//
//	func main() {
//	    r := router.MustNew()
//
//	    r.GET("/", func(c *router.Context) {
//	        _ = c.JSON(http.StatusOK, map[string]string{"message": "Hello World"})
//	    })
//
//	    r.GET("/users/:id", func(c *router.Context) {
//	        _ = c.JSON(http.StatusOK, map[string]string{"user_id": c.Param("id")})
//	    })
//
//	    http.ListenAndServe(":8080", r)
//	}
//
// # Matching Order
//
// Layers are checked in the order they were registered. Middleware
// registered with Use matches every path, so its position relative to
// routes decides whether it runs for them. Registering a catch-all
// before a specific route shadows the specific route for dispatch
// purposes (the catch-all handler runs first and may or may not call
// Next).
//
// # Parameters and Validators
//
// Named parameters are available on the context:
//
//	r.GET("/users/:id/books/:bookID", func(c *router.Context) {
//	    id := c.Param("id")
//	    book := c.Param("bookID")
//	    ...
//	})
//
// Param registers a validator that runs before any handler on routes
// using that parameter, in parameter declaration order:
//
//	r.Param("id", func(c *router.Context, value string) {
//	    if _, err := strconv.Atoi(value); err != nil {
//	        c.Status(http.StatusBadRequest)
//	        return
//	    }
//	    c.Next()
//	})
//
// A validator that does not call Next stops the chain, so invalid
// parameters never reach route handlers.
//
// # Middleware
//
// Use registers middleware that runs for every request; UseAt scopes it
// to a path prefix:
//
//	r.Use(requestid.New(), recovery.New())
//	r.UseAt("/admin", requireAdmin)
//
// Middleware and routes share the layer model: both participate in the
// same ordered match list, both receive the same *Context, and both
// use Next to pass control on.
//
// # Composition
//
// Mount absorbs another router's routes under a prefix. The mounted
// router is copied, not referenced, so later changes to it do not leak
// into the parent:
//
//	users := router.MustNew()
//	users.GET("/", listUsers)
//	users.GET("/:id", getUser)
//
//	app := router.MustNew()
//	app.Mount("/users", users)
//
// # Reverse Routing
//
// Named routes can be turned back into URLs:
//
//	r.GET("/users/:id", getUser).SetName("user")
//
//	u, err := r.URL("user", map[string]string{"id": "42"},
//	    router.WithQuery(url.Values{"tab": {"posts"}}))
//	// u == "/users/42?tab=posts"
//
// # Method Introspection
//
// AllowedMethods responds to OPTIONS requests and produces 405 and 501
// responses with an Allow header computed from the routes that share
// the request path. Enable it globally with WithAllowedMethods, or wire
// it manually for finer control.
//
// # Registration Model
//
// All registration (routes, middleware, validators, mounts, options)
// must finish before the router serves its first request. The first
// call to ServeHTTP, Serve or Freeze freezes the router; registration
// after that point panics. This keeps request dispatch free of locks:
// frozen layers are immutable, so concurrent requests share them
// without synchronization.
//
// # Constructor Pattern
//
//   - New() returns (*Router, error): options are validated eagerly, so
//     an impossible configuration (no implemented methods, negative
//     timeouts) surfaces at construction rather than at serve time.
//   - MustNew() panics on an invalid configuration. Intended for
//     top-of-main construction where the error return is just noise.
//   - All configuration options use the "With" prefix (WithPrefix,
//     WithH2C, WithServerTimeouts).
//
// # Observability
//
// A single recorder integrates metrics, traces and request logging:
//
//	rec, err := telemetry.New(
//	    telemetry.WithServiceName("api"),
//	    telemetry.WithPrometheus(":9090", "/metrics"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r := router.MustNew(router.WithObservability(rec))
//
// Handlers then record metrics and read trace identity through the
// context: c.IncrementCounter, c.RecordMetric, c.TraceID.
package router
