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
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"cascade.dev/router/compiler"
)

// ParamHandlerFunc validates or loads one route parameter. It runs before
// the layer's own handlers with the decoded parameter value. Like any
// handler, it must call c.Next to continue the chain; returning without
// Next rejects the request as far as later handlers are concerned.
//
// Example:
//
//	r.Param("user", func(c *router.Context, id string) {
//	    user, err := store.Load(c.RequestContext(), id)
//	    if err != nil {
//	        c.Error(httperror.NotFound("no such user"))
//	        return
//	    }
//	    c.SetParam("user", user.Name)
//	    c.Next()
//	})
type ParamHandlerFunc func(c *Context, value string)

// layerOptions are the resolved matching options a layer was registered
// with. Resolution from router defaults and per-route overrides happens
// in Register; the layer itself only ever sees concrete values.
type layerOptions struct {
	sensitive      bool
	strict         bool
	end            bool
	ignoreCaptures bool
}

// Layer is one compiled route registration: a pattern, the methods it
// answers, and its handler chain. Layers are created through Router
// registration and are immutable during dispatch; SetName, SetPrefix and
// Param are registration-time operations and panic once the router has
// started serving.
type Layer struct {
	name    string
	pattern string
	methods []string

	stack []HandlerFunc
	// paramFor is aligned with stack: paramFor[i] names the parameter
	// validated by stack[i], or is empty for plain handlers. Param uses
	// it to keep validators sorted in parameter-declaration order.
	paramFor []string

	paramNames []string
	compiled   *compiler.Pattern

	router *Router
	opts   layerOptions
}

// newLayer compiles a layer for the given pattern. Handlers are validated
// up front so a nil entry fails registration instead of panicking at
// request time; if methods include GET, HEAD is added to the front of the
// list so GET routes answer HEAD requests too.
func newLayer(name, pattern string, methods []string, handlers []HandlerFunc, opts layerOptions) (*Layer, error) {
	for i, h := range handlers {
		if h == nil {
			method := ""
			if len(methods) > 0 {
				method = strings.ToUpper(methods[0])
			}
			return nil, &InvalidHandlerError{
				Method: method,
				Path:   pattern,
				Name:   name,
				Index:  i,
			}
		}
	}

	normalized := make([]string, 0, len(methods)+1)
	for _, m := range methods {
		normalized = append(normalized, strings.ToUpper(m))
	}
	if slices.Contains(normalized, http.MethodGet) && !slices.Contains(normalized, http.MethodHead) {
		normalized = slices.Insert(normalized, 0, http.MethodHead)
	}

	l := &Layer{
		name:     name,
		pattern:  pattern,
		methods:  normalized,
		stack:    slices.Clone(handlers),
		paramFor: make([]string, len(handlers)),
		opts:     opts,
	}
	if err := l.recompile(); err != nil {
		return nil, err
	}

	return l, nil
}

// recompile rebuilds the matcher from the current pattern and resets the
// parameter name list to the newly compiled set.
func (l *Layer) recompile() error {
	end := l.opts.end
	compiled, err := compiler.Compile(l.pattern, compiler.Options{
		Sensitive: l.opts.sensitive,
		Strict:    l.opts.strict,
		End:       &end,
	})
	if err != nil {
		return &PatternError{Template: l.pattern, Err: err}
	}
	l.compiled = compiled
	l.paramNames = compiled.Names()

	return nil
}

// Name returns the route name, or an empty string for unnamed layers.
func (l *Layer) Name() string {
	return l.name
}

// Pattern returns the layer's current path template, including any
// prefixes applied since registration.
func (l *Layer) Pattern() string {
	return l.pattern
}

// Methods returns a copy of the methods this layer answers. An empty list
// marks a middleware layer that matches by path regardless of method.
func (l *Layer) Methods() []string {
	return slices.Clone(l.methods)
}

// ParamNames returns a copy of the parameter names declared by the
// pattern, in left-to-right order.
func (l *Layer) ParamNames() []string {
	return slices.Clone(l.paramNames)
}

// SetName names the layer for reverse routing and returns the layer for
// chaining.
func (l *Layer) SetName(name string) *Layer {
	if l.router != nil {
		l.router.checkFrozen("SetName")
	}
	l.name = name

	return l
}

// Match reports whether the layer's pattern accepts path. It is
// side-effect-free; dispatch calls it once per layer per request.
func (l *Layer) Match(path string) bool {
	return l.compiled.Match(path)
}

// Captures extracts the raw captured substrings for path, aligned with
// ParamNames. Layers registered with capture suppression (path-less
// middleware mounts) return nil so their catch-all group does not leak a
// positional parameter into the request.
func (l *Layer) Captures(path string) []string {
	if l.opts.ignoreCaptures {
		return nil
	}
	caps, _ := l.compiled.Captures(path)

	return caps
}

// mergeParams decodes captures and merges them into the context's
// parameters under this layer's parameter names. Parameters set by an
// earlier layer survive unless this layer rebinds the same name. Empty
// captures (absent optional parameters) are skipped, and a capture that
// fails percent-decoding is kept raw: a malformed escape is not a match
// failure.
func (l *Layer) mergeParams(c *Context, captures []string) {
	for i, name := range l.paramNames {
		if i >= len(captures) {
			break
		}
		if captures[i] == "" {
			continue
		}
		c.SetParam(name, decodeCapture(captures[i]))
	}
}

// decodeCapture percent-decodes a captured path segment, returning the
// raw string when the escape sequence is malformed.
func decodeCapture(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}

	return decoded
}

// Param inserts a parameter validator into the layer's handler chain.
// Validators always execute in the left-to-right order their parameters
// appear in the pattern, regardless of the order Param was called in, and
// always ahead of the layer's own handlers. A name not declared by the
// pattern is ignored; the owning router may hold validators for
// parameters that only appear on sibling layers.
func (l *Layer) Param(name string, fn ParamHandlerFunc) *Layer {
	if l.router != nil {
		l.router.checkFrozen("Param")
	}
	if fn == nil {
		return l
	}
	x := slices.Index(l.paramNames, name)
	if x < 0 {
		return l
	}

	validator := func(c *Context) {
		fn(c, c.Param(name))
	}

	at := len(l.stack)
	for i, p := range l.paramFor {
		if p == "" || slices.Index(l.paramNames, p) > x {
			at = i
			break
		}
	}
	l.stack = slices.Insert(l.stack, at, HandlerFunc(validator))
	l.paramFor = slices.Insert(l.paramFor, at, name)

	return l
}

// SetPrefix prepends prefix to the layer's pattern and recompiles the
// matcher. A bare "/" pattern on a non-strict layer is replaced by the
// prefix outright, so a mounted root route does not demand a trailing
// slash. Calling SetPrefix again compounds the prefixes; nested mounts
// apply them incrementally as a layer is absorbed through multiple router
// levels. It panics if the combined pattern no longer compiles, since the
// prefix is build-time configuration.
func (l *Layer) SetPrefix(prefix string) *Layer {
	if l.router != nil {
		l.router.checkFrozen("SetPrefix")
	}
	if l.pattern == "" || prefix == "" {
		return l
	}

	if l.pattern == "/" && !l.opts.strict {
		l.pattern = prefix
	} else {
		l.pattern = prefix + l.pattern
	}
	if err := l.recompile(); err != nil {
		panic(fmt.Sprintf("router: SetPrefix(%q): %v", prefix, err))
	}

	return l
}

// URL generates a path from the layer's pattern and the given parameter
// values. Catch-all "(.*)" markers are stripped before rendering. A named
// parameter with no value stays in the output as a literal ":name" token;
// partial templates are a supported use. A bare regexp group with no
// value for its positional key has no renderable form and yields
// ErrNotReversible.
//
// Example:
//
//	layer, _ := r.GET("/users/:id/posts/:pid", handler)
//	u, _ := layer.URL(map[string]string{"id": "7", "pid": "42"})
//	// u == "/users/7/posts/42"
func (l *Layer) URL(params map[string]string, opts ...URLOption) (string, error) {
	rp, err := l.renderPattern()
	if err != nil {
		return "", err
	}

	return renderURL(rp, params, opts)
}

// URLArgs generates a path like URL, consuming values positionally in the
// order the pattern declares its parameters. Use URL for rendering that
// also needs a query string.
//
// Example:
//
//	u, _ := layer.URLArgs("7", "42") // "/users/7/posts/42"
func (l *Layer) URLArgs(values ...string) (string, error) {
	rp, err := l.renderPattern()
	if err != nil {
		return "", err
	}

	names := rp.Names()
	params := make(map[string]string, len(values))
	for i, v := range values {
		if i >= len(names) {
			break
		}
		params[names[i]] = v
	}

	return renderURL(rp, params, nil)
}

// renderPattern compiles the reverse template: the layer's pattern with
// catch-all markers removed, under the layer's own matching options.
func (l *Layer) renderPattern() (*compiler.Pattern, error) {
	template := strings.ReplaceAll(l.pattern, "(.*)", "")
	end := l.opts.end
	rp, err := compiler.Compile(template, compiler.Options{
		Sensitive: l.opts.sensitive,
		Strict:    l.opts.strict,
		End:       &end,
	})
	if err != nil {
		return nil, &PatternError{Template: template, Err: err}
	}

	return rp, nil
}

// clone returns an independent copy of the layer for absorption into
// another router. Mutable slices are copied; the compiled matcher is
// shared until the next recompile replaces it, since matchers are
// immutable.
func (l *Layer) clone() *Layer {
	copied := *l
	copied.methods = slices.Clone(l.methods)
	copied.stack = slices.Clone(l.stack)
	copied.paramFor = slices.Clone(l.paramFor)
	copied.paramNames = slices.Clone(l.paramNames)

	return &copied
}
