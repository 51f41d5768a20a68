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
	"net/http"
	"slices"
	"strings"

	"cascade.dev/router/httperror"
)

// allowedMethodsConfig collects the options applied to one AllowedMethods
// handler.
type allowedMethodsConfig struct {
	throwErrors      bool
	notImplemented   func() error
	methodNotAllowed func() error
}

// AllowedMethodsOption configures an AllowedMethods handler.
type AllowedMethodsOption func(*allowedMethodsConfig)

// WithThrow makes AllowedMethods record errors on the context instead of
// writing 405/501 responses directly, leaving the response to the error
// handling at the end of the request. No Allow header is set in this
// mode.
func WithThrow() AllowedMethodsOption {
	return func(cfg *allowedMethodsConfig) {
		cfg.throwErrors = true
	}
}

// WithNotImplemented supplies the error recorded for methods the router
// does not implement at all. Only used together with WithThrow.
func WithNotImplemented(factory func() error) AllowedMethodsOption {
	return func(cfg *allowedMethodsConfig) {
		if factory != nil {
			cfg.notImplemented = factory
		}
	}
}

// WithMethodNotAllowed supplies the error recorded for methods the router
// implements but the matched path does not answer. Only used together
// with WithThrow.
func WithMethodNotAllowed(factory func() error) AllowedMethodsOption {
	return func(cfg *allowedMethodsConfig) {
		if factory != nil {
			cfg.methodNotAllowed = factory
		}
	}
}

// AllowedMethods returns a handler that completes OPTIONS, 405 and 501
// handling from the layers the dispatcher matched by path. It must run
// after the dispatcher in the request chain (WithAllowedMethods wires
// that up automatically).
//
// After the rest of the chain settles without writing a response or
// recording an error, the handler unions the method lists of every
// path-matched layer, in first-seen order, and answers:
//
//   - a method outside the router's implemented list with 501,
//   - OPTIONS with 200 and an Allow header listing the union,
//   - a method missing from a non-empty union with 405 and the Allow
//     header.
//
// With WithThrow, the 405/501 cases record httperror values on the
// context instead.
//
// Example:
//
//	r := router.MustNew(router.WithAllowedMethods())
//	r.GET("/users", listUsers)
//	r.PUT("/users", replaceUsers)
//	// OPTIONS /users -> 200, Allow: HEAD, GET, PUT
//	// POST /users    -> 405, Allow: HEAD, GET, PUT
func (r *Router) AllowedMethods(opts ...AllowedMethodsOption) HandlerFunc {
	cfg := allowedMethodsConfig{
		notImplemented:   func() error { return httperror.NotImplemented() },
		methodNotAllowed: func() error { return httperror.MethodNotAllowed() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	implemented := slices.Clone(r.methods)

	return func(c *Context) {
		c.Next()

		// Act only when the chain settled without a response. A recorded
		// error belongs to the error handling at the end of the request.
		if rw, ok := c.Response.(*responseWriter); ok && rw.Written() {
			return
		}
		if c.HasErrors() {
			return
		}

		var allowed []string
		for _, l := range c.matched {
			for _, m := range l.methods {
				if !slices.Contains(allowed, m) {
					allowed = append(allowed, m)
				}
			}
		}

		method := c.Request.Method
		if !slices.Contains(implemented, method) {
			if cfg.throwErrors {
				c.Error(cfg.notImplemented())
				return
			}
			c.Header("Allow", strings.Join(allowed, ", "))
			c.Status(http.StatusNotImplemented)
			return
		}

		if len(allowed) == 0 {
			return
		}

		switch {
		case method == http.MethodOptions:
			c.Header("Allow", strings.Join(allowed, ", "))
			c.Status(http.StatusOK)
		case !slices.Contains(allowed, method):
			if cfg.throwErrors {
				c.Error(cfg.methodNotAllowed())
				return
			}
			c.Header("Allow", strings.Join(allowed, ", "))
			c.Status(http.StatusMethodNotAllowed)
		}
	}
}
