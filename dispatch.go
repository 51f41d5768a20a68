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

import "slices"

// matchResult is the outcome of matching one request against the layer
// list.
type matchResult struct {
	// path lists every layer whose pattern accepted the request path, in
	// registration order.
	path []*Layer

	// pathAndMethod is the subset of path that also answers the request
	// method. Method-less middleware layers always qualify.
	pathAndMethod []*Layer

	// route is true when pathAndMethod contains at least one layer with a
	// non-empty method list: the path has a real handler for this method,
	// not just middleware. The 404-versus-dispatch decision hangs on it.
	route bool
}

// match tests every layer in registration order and never short-circuits:
// several middleware layers plus a terminal route commonly match the same
// path, and all of them take part in the dispatch. Matching reads layer
// state only, so repeated calls with an unchanged layer list give
// identical results.
func (r *Router) match(path, method string) matchResult {
	var m matchResult
	for _, l := range r.layers {
		if !l.Match(path) {
			continue
		}
		m.path = append(m.path, l)
		if len(l.methods) == 0 || slices.Contains(l.methods, method) {
			m.pathAndMethod = append(m.pathAndMethod, l)
			if len(l.methods) > 0 {
				m.route = true
			}
		}
	}
	return m
}

// Routes returns the dispatcher handler. ServeHTTP seeds every request
// with it; it can also be registered on another router (via Use or
// UseAt) to nest this router's dispatch inside that router's chain, with
// the surrounding chain continuing when nothing here matches the method.
//
// For each request the dispatcher matches the effective path, records
// every path-matched layer on the context, and splices the matched
// layers' handler chains after itself: each matched layer contributes a
// binding step (captures, parameters, routing metadata) followed by its
// handlers, in registration order. When the path matches only middleware
// or nothing at all, the dispatcher steps straight to the next handler in
// the surrounding chain.
func (r *Router) Routes() HandlerFunc {
	return func(c *Context) {
		r.Freeze()

		path := c.pathOverride
		if path == "" {
			path = r.routerPath
		}
		if path == "" {
			path = c.Request.URL.Path
		}

		matched := r.match(path, c.Request.Method)
		c.matched = append(c.matched, matched.path...)
		c.router = r

		if !matched.route {
			c.Next()
			return
		}

		mostSpecific := matched.pathAndMethod[len(matched.pathAndMethod)-1]
		c.matchedPath = mostSpecific.pattern
		if mostSpecific.name != "" {
			c.matchedName = mostSpecific.name
		}

		if r.observability != nil {
			c.SetLogger(r.observability.BuildRequestLogger(c.RequestContext(), c.Request, c.matchedPath))
		}

		chain := make([]HandlerFunc, 0, len(matched.pathAndMethod)*2)
		for _, layer := range matched.pathAndMethod {
			chain = append(chain, func(c *Context) {
				c.captures = layer.Captures(path)
				layer.mergeParams(c, c.captures)
				c.routerPath = layer.pattern
				c.routerName = layer.name
				c.Next()
			})
			chain = append(chain, layer.stack...)
		}

		c.spliceHandlers(chain)
		c.Next()
	}
}
