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

// Package recovery provides middleware for recovering from panics in
// request handlers, preventing server crashes and returning proper error
// responses.
//
// A recovered panic is logged through the request logger with a stack
// trace, recorded on the context error list, marked on the active
// OpenTelemetry span, and answered with an RFC 9457 problem+json 500
// response when the handler had not written anything yet.
// http.ErrAbortHandler is re-raised untouched.
//
// # Basic Usage
//
//	import "cascade.dev/router/middleware/recovery"
//
//	r := router.MustNew()
//	r.Use(recovery.New())
//
// Register it first (or early) in the middleware chain so it catches
// panics from all subsequent handlers.
//
// # Configuration Options
//
//   - [WithStackTrace]: enable/disable stack trace capture (default: true)
//   - [WithStackSize]: maximum stack trace size in bytes (default: 4KB)
//   - [WithLogger]: fixed logger instead of the request logger
//   - [WithoutLogging]: silence panic logging, for tests
//   - [WithHandler]: custom recovery handler for error responses
//   - [WithPrettyStack]: force the human-readable stderr dump on or off
//
// # Custom Recovery Handler
//
//	r.Use(recovery.New(
//	    recovery.WithHandler(func(c *router.Context, err any) {
//	        c.JSON(http.StatusInternalServerError, map[string]any{
//	            "error":      "Internal server error",
//	            "request_id": requestid.Get(c),
//	        })
//	    }),
//	))
//
// # OpenTelemetry Integration
//
// The middleware marks the active span with exception information:
//
//   - exception.escaped: set to true for panics (only place this is set)
//   - exception.type: type of the panic value
//   - exception.message: string representation of the panic value
//
// The span status is set to Error.
package recovery
