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
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRouteNotFound is returned by URL and URLArgs when no layer carries
	// the requested route name.
	ErrRouteNotFound = errors.New("route not found")

	// ErrNotReversible is returned when URL generation is attempted against
	// a pattern built from raw regexp groups, which have no reverse
	// template.
	ErrNotReversible = errors.New("pattern is not reversible")

	// ErrMissingPath is returned by Register when a RouteSpec sets neither
	// Path nor Paths, or sets both.
	ErrMissingPath = errors.New("route spec requires exactly one of Path or Paths")

	// ErrNoHandlers is returned by Register when a RouteSpec carries no
	// handlers.
	ErrNoHandlers = errors.New("route spec requires at least one handler")

	// ErrNoMethods is reported by validate when the implemented method list
	// is configured empty.
	ErrNoMethods = errors.New("implemented method list must not be empty")

	// ErrInvalidTimeout is reported by validate when a server timeout is
	// negative.
	ErrInvalidTimeout = errors.New("server timeouts must not be negative")

	// ErrResponseWriterNotHijacker is returned when connection hijacking is
	// requested on a response writer that does not support it.
	ErrResponseWriterNotHijacker = errors.New("response writer does not support hijacking")
)

// InvalidHandlerError reports a nil handler passed to route registration.
// It names the offending registration so the broken call site is findable
// without a stack trace.
type InvalidHandlerError struct {
	// Method is the first method of the registration, or empty for
	// middleware mounts.
	Method string

	// Path is the path template being registered.
	Path string

	// Name is the route name, when one was given.
	Name string

	// Index is the position of the nil handler in the handler list.
	Index int
}

func (e *InvalidHandlerError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "nil handler at index %d registering", e.Index)
	if e.Method != "" {
		b.WriteString(" " + e.Method)
	}
	b.WriteString(" " + e.Path)
	if e.Name != "" {
		fmt.Fprintf(&b, " (route %q)", e.Name)
	}
	return b.String()
}

// PatternError reports a path template the compiler rejected.
type PatternError struct {
	// Template is the offending path template.
	Template string

	// Err is the underlying compiler error.
	Err error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid path pattern %q: %v", e.Template, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
