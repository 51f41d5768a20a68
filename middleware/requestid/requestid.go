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

package requestid

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"cascade.dev/router"
	"cascade.dev/router/telemetry/semconv"
)

type contextKey struct{}

// Option defines functional options for requestid middleware configuration.
type Option func(*config)

// config holds the configuration for the requestid middleware.
type config struct {
	// headerName is the header carrying the request ID
	headerName string

	// generator produces new request IDs
	generator func() string

	// allowClientID accepts request IDs provided by clients
	allowClientID bool
}

// defaultConfig returns the default configuration for requestid middleware.
func defaultConfig() *config {
	return &config{
		headerName:    "X-Request-ID",
		generator:     generateUUIDv7,
		allowClientID: true,
	}
}

// generateUUIDv7 generates a UUID v7 string for request IDs.
// UUID v7 is time-ordered and lexicographically sortable (RFC 9562).
func generateUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ulidEntropy is a thread-safe entropy source for ULID generation.
// It provides monotonic ordering within the same millisecond.
var (
	ulidEntropy     = ulid.Monotonic(rand.Reader, 0)
	ulidEntropyLock sync.Mutex
)

// generateULID generates a ULID string for request IDs.
// ULID is time-ordered and has a compact 26-character representation.
func generateULID() string {
	ulidEntropyLock.Lock()
	defer ulidEntropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// New returns a middleware that attaches a unique request ID to each
// request. The ID is useful for log correlation and distributed tracing.
//
// By default, UUID v7 is used for request ID generation. UUID v7 is
// time-ordered and lexicographically sortable (RFC 9562), which keeps IDs
// useful as a sort key in log aggregators.
//
// The middleware will:
//  1. Reuse a request ID already present in the configured header, when
//     client IDs are allowed
//  2. Generate a new one otherwise
//  3. Echo the request ID on the response header
//  4. Store the ID in the request context and on the request logger
//
// Basic usage (UUID v7 by default):
//
//	r := router.MustNew()
//	r.Use(requestid.New())
//
// Using ULID (shorter, 26 characters):
//
//	r.Use(requestid.New(requestid.WithULID()))
//
// Custom header name:
//
//	r.Use(requestid.New(
//	    requestid.WithHeader("X-Correlation-ID"),
//	))
//
// Custom generator:
//
//	r.Use(requestid.New(
//	    requestid.WithGenerator(func() string {
//	        return fmt.Sprintf("req-%d", time.Now().UnixNano())
//	    }),
//	))
//
// Disable client IDs:
//
//	r.Use(requestid.New(
//	    requestid.WithAllowClientID(false),
//	))
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) {
		var requestID string

		if cfg.allowClientID {
			requestID = c.Request.Header.Get(cfg.headerName)
		}

		if requestID == "" {
			requestID = cfg.generator()
		}

		c.Response.Header().Set(cfg.headerName, requestID)

		// Store the ID in the request context for non-router code, and on
		// the request logger so every handler log line carries it.
		ctx := context.WithValue(c.Request.Context(), contextKey{}, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.SetLogger(c.Logger().With(semconv.RequestID, requestID))

		c.Next()
	}
}

// WithHeader sets the header name used to carry the request ID.
// Default: "X-Request-ID".
//
// Example:
//
//	requestid.New(requestid.WithHeader("X-Correlation-ID"))
func WithHeader(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.headerName = name
		}
	}
}

// WithGenerator sets a custom request ID generator.
//
// Example:
//
//	requestid.New(requestid.WithGenerator(func() string {
//	    return fmt.Sprintf("req-%d", time.Now().UnixNano())
//	}))
func WithGenerator(generator func() string) Option {
	return func(cfg *config) {
		if generator != nil {
			cfg.generator = generator
		}
	}
}

// WithULID switches request ID generation to ULID, a compact 26-character
// time-ordered format.
//
// Example:
//
//	requestid.New(requestid.WithULID())
func WithULID() Option {
	return func(cfg *config) {
		cfg.generator = generateULID
	}
}

// WithAllowClientID controls whether request IDs supplied by clients in
// the configured header are trusted. Default: true. Disable when IDs must
// be server-issued, for example when they feed security audit logs.
//
// Example:
//
//	requestid.New(requestid.WithAllowClientID(false))
func WithAllowClientID(allow bool) Option {
	return func(cfg *config) {
		cfg.allowClientID = allow
	}
}

// Get retrieves the request ID from the context.
// Returns an empty string if no request ID has been set.
//
// Example:
//
//	func handler(c *router.Context) {
//	    requestID := requestid.Get(c)
//	    log.Printf("Processing request %s", requestID)
//	}
func Get(c *router.Context) string {
	return FromContext(c.Request.Context())
}

// FromContext retrieves the request ID from a plain context.Context, for
// code below the handler layer that only receives the request context.
// Returns an empty string if no request ID has been set.
func FromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(contextKey{}).(string); ok {
		return requestID
	}

	return ""
}
