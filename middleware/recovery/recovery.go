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

package recovery

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"

	"go.opentelemetry.io/otel/codes"
	semconvotel "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/term"

	"cascade.dev/router"
	"cascade.dev/router/httperror"
)

// defaultStackSize caps captured stack traces at 4KB.
const defaultStackSize = 4 << 10

// config holds the configuration for the recovery middleware.
type config struct {
	// logger overrides the request logger for panic messages; nil means
	// the context logger is used
	logger *slog.Logger

	// logging disables panic logging entirely when false
	logging bool

	// handler sends the error response after a panic
	handler func(c *router.Context, err any)

	// stackTrace controls stack capture
	stackTrace bool

	// stackSize is the maximum captured stack in bytes
	stackSize int

	// prettyStack forces or suppresses the human-readable stderr dump;
	// nil auto-detects a terminal
	prettyStack *bool
}

func defaultConfig() *config {
	return &config{
		logging:    true,
		handler:    defaultHandler,
		stackTrace: true,
		stackSize:  defaultStackSize,
	}
}

// defaultHandler responds with a problem+json 500, unless the handler
// already produced a response.
func defaultHandler(c *router.Context, _ any) {
	if responseWritten(c) {
		return
	}
	_ = httperror.New(http.StatusInternalServerError, "").WriteJSON(c.Response)
}

// responseWritten reports whether response headers have been sent.
func responseWritten(c *router.Context) bool {
	if w, ok := c.Response.(interface{ Written() bool }); ok {
		return w.Written()
	}
	return false
}

// New returns a middleware that recovers from panics in downstream
// handlers. A recovered panic is logged with a stack trace, recorded on
// the context error list, marked on the active trace span, and answered
// with a 500 response when nothing has been written yet.
//
// http.ErrAbortHandler is re-raised so net/http's abort idiom keeps
// working through the middleware chain.
//
// Register it first, so it wraps everything that follows:
//
//	r := router.MustNew()
//	r.Use(recovery.New())
//	r.Use(requestid.New())
//
// Custom response:
//
//	r.Use(recovery.New(
//	    recovery.WithHandler(func(c *router.Context, err any) {
//	        c.JSON(http.StatusInternalServerError, map[string]any{
//	            "error": "Something went wrong",
//	        })
//	    }),
//	))
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			var stack []byte
			if cfg.stackTrace {
				stack = make([]byte, cfg.stackSize)
				stack = stack[:runtime.Stack(stack, false)]
			}

			cfg.log(c, rec, stack)
			markSpan(c, rec)
			c.Error(fmt.Errorf("panic: %v", rec))
			cfg.handler(c, rec)
			c.Abort()
		}()

		c.Next()
	}
}

// log writes the panic to the configured or request logger, and dumps a
// readable stack to stderr when running in a terminal.
func (cfg *config) log(c *router.Context, rec any, stack []byte) {
	if !cfg.logging {
		return
	}

	logger := cfg.logger
	if logger == nil {
		logger = c.Logger()
	}

	args := []any{
		"error", fmt.Sprint(rec),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	if len(stack) > 0 {
		args = append(args, "stack", string(stack))
	}
	logger.ErrorContext(c.RequestContext(), "panic recovered", args...)

	if len(stack) > 0 && cfg.wantPrettyStack() {
		fmt.Fprintf(os.Stderr, "\npanic recovered: %v\n\n%s\n", rec, stack)
	}
}

// wantPrettyStack resolves the tri-state pretty-stack setting, defaulting
// to on when stderr is a terminal.
func (cfg *config) wantPrettyStack() bool {
	if cfg.prettyStack != nil {
		return *cfg.prettyStack
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// markSpan attaches exception semantics to the active span. Escaped is
// only ever set here: a panic is the one case where an exception crosses
// the handler boundary.
func markSpan(c *router.Context, rec any) {
	span := trace.SpanFromContext(c.RequestContext())
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(
		semconvotel.ExceptionTypeKey.String(fmt.Sprintf("%T", rec)),
		semconvotel.ExceptionMessageKey.String(fmt.Sprint(rec)),
		semconvotel.ExceptionEscapedKey.Bool(true),
	)
	span.SetStatus(codes.Error, "panic recovered")
}
