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

// Package requestid provides middleware for generating and tracking request
// IDs for distributed tracing and correlation.
//
// This middleware assigns a unique ID to each HTTP request, stores it in
// the request context and on the request logger, and echoes it in the
// response headers so clients can correlate requests across services.
//
// # Basic Usage
//
//	import "cascade.dev/router/middleware/requestid"
//
//	r := router.MustNew()
//	r.Use(requestid.New())
//
// # Request ID Generation
//
// By default, UUID v7 is used for request ID generation. UUID v7 is
// time-ordered and lexicographically sortable (RFC 9562), making it ideal
// for debugging and log correlation. Generated IDs are 36-character UUID
// strings.
//
// The middleware resolves the ID for a request from:
//
//   - X-Request-ID header: reused when present (client-supplied tracing)
//   - UUID v7 generation: time-ordered UUID if no header present (default)
//   - ULID generation: compact 26-character alternative via [WithULID]
//
// # ID Format Comparison
//
//   - UUID v7 (default): 018f3e9a-1b2c-7def-8000-abcdef123456 (36 chars)
//   - ULID: 01ARZ3NDEKTSV4RRFFQ69G5FAV (26 chars)
//
// # Configuration Options
//
//   - [WithHeader]: custom header name for the request ID (default: X-Request-ID)
//   - [WithULID]: use ULID instead of UUID v7 for shorter IDs
//   - [WithGenerator]: custom function for generating request IDs
//   - [WithAllowClientID]: control whether client-provided IDs are trusted
//
// # Accessing the Request ID
//
// Handlers read the ID through [Get]; code below the handler layer that
// only sees a context.Context uses [FromContext]:
//
//	func handler(c *router.Context) {
//	    id := requestid.Get(c)
//	    // Use id for logging, tracing, etc.
//	}
//
// # Integration with Logging
//
// The middleware attaches the ID to the request logger, so handler log
// lines carry it without further plumbing:
//
//	r.GET("/orders/:id", func(c *router.Context) {
//	    c.Logger().Info("loading order") // Includes req.id
//	})
package requestid
