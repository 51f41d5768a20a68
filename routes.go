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
	"strings"
)

// GET adds a route that matches GET requests to the specified path.
// The path can contain parameters using the :param syntax. GET routes
// also answer HEAD requests with the same handler chain.
// Returns the Layer for naming and reverse routing.
//
// Example:
//
//	r.GET("/users/:id", getUserHandler)
//	r.GET("/health", healthCheckHandler)
//	r.GET("/users/:id", getUserHandler).SetName("user")
func (r *Router) GET(path string, handlers ...HandlerFunc) *Layer {
	return r.mustRegister([]string{http.MethodGet}, path, handlers)
}

// POST adds a route that matches POST requests to the specified path.
// Commonly used for creating resources and handling form submissions.
//
// Example:
//
//	r.POST("/users", createUserHandler)
//	r.POST("/login", loginHandler)
func (r *Router) POST(path string, handlers ...HandlerFunc) *Layer {
	return r.mustRegister([]string{http.MethodPost}, path, handlers)
}

// PUT adds a route that matches PUT requests to the specified path.
// Typically used for updating or replacing entire resources.
//
// Example:
//
//	r.PUT("/users/:id", updateUserHandler)
func (r *Router) PUT(path string, handlers ...HandlerFunc) *Layer {
	return r.mustRegister([]string{http.MethodPut}, path, handlers)
}

// DELETE adds a route that matches DELETE requests to the specified path.
// Used for removing resources from the server.
//
// Example:
//
//	r.DELETE("/users/:id", deleteUserHandler)
func (r *Router) DELETE(path string, handlers ...HandlerFunc) *Layer {
	return r.mustRegister([]string{http.MethodDelete}, path, handlers)
}

// PATCH adds a route that matches PATCH requests to the specified path.
// Used for partial updates to resources.
//
// Example:
//
//	r.PATCH("/users/:id", partialUpdateHandler)
func (r *Router) PATCH(path string, handlers ...HandlerFunc) *Layer {
	return r.mustRegister([]string{http.MethodPatch}, path, handlers)
}

// HEAD adds a route that matches HEAD requests to the specified path.
// Note that GET registrations answer HEAD automatically; an explicit
// HEAD route is only needed when HEAD behaves differently from GET.
func (r *Router) HEAD(path string, handlers ...HandlerFunc) *Layer {
	return r.mustRegister([]string{http.MethodHead}, path, handlers)
}

// OPTIONS adds a route that matches OPTIONS requests to the specified
// path. For automatic Allow-header responses, prefer WithAllowedMethods
// over hand-written OPTIONS routes.
func (r *Router) OPTIONS(path string, handlers ...HandlerFunc) *Layer {
	return r.mustRegister([]string{http.MethodOptions}, path, handlers)
}

// Handle adds a route answering an arbitrary method list, for method
// combinations without a dedicated shorthand.
//
// Example:
//
//	r.Handle([]string{http.MethodGet, http.MethodPost}, "/form", formHandler)
func (r *Router) Handle(methods []string, path string, handlers ...HandlerFunc) *Layer {
	return r.mustRegister(methods, path, handlers)
}

// All adds a route answering every standard HTTP method, not just the
// router's implemented-method list.
//
// Example:
//
//	r.All("/ping", pingHandler)
func (r *Router) All(path string, handlers ...HandlerFunc) *Layer {
	return r.mustRegister(standardMethods, path, handlers)
}

// Use registers middleware that runs for every request path, in
// registration order relative to routes. Each middleware becomes its own
// method-less layer matching any path, with capture suppression so the
// catch-all group does not leak a positional parameter.
//
// Example:
//
//	r.Use(requestid.New(), recovery.New())
func (r *Router) Use(middleware ...HandlerFunc) *Router {
	for _, m := range middleware {
		r.useLayer("(.*)", m, true)
	}
	return r
}

// UseAt registers middleware under a path pattern: it runs for every
// request whose path begins with a match of the pattern. Pattern
// parameters are captured into the request parameters as usual.
//
// Example:
//
//	r.UseAt("/admin", requireAdmin)
//	r.UseAt("/tenants/:tenant", loadTenant)
func (r *Router) UseAt(path string, middleware ...HandlerFunc) *Router {
	for _, m := range middleware {
		r.useLayer(path, m, false)
	}
	return r
}

// UseAtEach registers middleware under several path patterns at once.
//
// Example:
//
//	r.UseAtEach([]string{"/admin", "/internal"}, requireStaff)
func (r *Router) UseAtEach(paths []string, middleware ...HandlerFunc) *Router {
	for _, path := range paths {
		r.UseAt(path, middleware...)
	}
	return r
}

// useLayer registers one middleware as a method-less, prefix-matching
// layer.
func (r *Router) useLayer(path string, m HandlerFunc, ignoreCaptures bool) {
	endFalse := false
	if _, err := r.Register(RouteSpec{
		Path:           path,
		Handlers:       []HandlerFunc{m},
		End:            &endFalse,
		IgnoreCaptures: ignoreCaptures,
	}); err != nil {
		panic(fmt.Sprintf("router: use %s: %v", path, err))
	}
}

// Prefix sets the router's path prefix: it is prepended to every layer
// registered so far and to all later registrations. A trailing slash is
// stripped. Calling Prefix a second time compounds onto already-prefixed
// layers, so set it once, early, or use WithPrefix at construction.
//
// Example:
//
//	r.Prefix("/api/v1")
func (r *Router) Prefix(prefix string) *Router {
	r.checkFrozen("Prefix")
	prefix = strings.TrimSuffix(prefix, "/")
	r.prefix = prefix
	for _, l := range r.layers {
		l.SetPrefix(prefix)
	}
	return r
}

// Param declares a validator for a named route parameter. The validator
// applies to every layer registered so far and replays onto later
// registrations and mounts, so one declaration covers the whole route
// table. Validators run ahead of route handlers, ordered by where their
// parameters appear in the pattern rather than by declaration order.
// Declaring the same name twice adds a second validator; it does not
// replace the first on layers that already received it.
//
// Example:
//
//	r.Param("id", func(c *router.Context, id string) {
//	    if _, err := strconv.Atoi(id); err != nil {
//	        c.Error(httperror.New(http.StatusBadRequest, "id must be numeric"))
//	        return
//	    }
//	    c.Next()
//	})
func (r *Router) Param(name string, fn ParamHandlerFunc) *Router {
	r.checkFrozen("Param")
	if fn == nil {
		panic(fmt.Sprintf("router: nil parameter handler for %q", name))
	}

	if r.params == nil {
		r.params = make(map[string]ParamHandlerFunc)
	}
	if _, exists := r.params[name]; !exists {
		r.paramOrder = append(r.paramOrder, name)
	}
	r.params[name] = fn

	for _, l := range r.layers {
		l.Param(name, fn)
	}
	return r
}

// Redirect answers source with a redirect to destination. A zero code
// defaults to 301. Both source and destination may be route names, which
// resolve through URL at registration time; destination may also be an
// absolute URL, or "back" to follow the Referer header (falling back to
// "/").
//
// Example:
//
//	r.GET("/sign-in", signIn).SetName("sign-in")
//	r.Redirect("/login", "sign-in", 0)
func (r *Router) Redirect(source, destination string, code int) *Router {
	if code == 0 {
		code = http.StatusMovedPermanently
	}

	if !strings.HasPrefix(source, "/") {
		resolved, err := r.URL(source, nil)
		if err != nil {
			panic(fmt.Sprintf("router: redirect source %q: %v", source, err))
		}
		source = resolved
	}
	if !strings.HasPrefix(destination, "/") && destination != "back" && !strings.Contains(destination, "://") {
		resolved, err := r.URL(destination, nil)
		if err != nil {
			panic(fmt.Sprintf("router: redirect destination %q: %v", destination, err))
		}
		destination = resolved
	}

	r.All(source, func(c *Context) {
		target := destination
		if target == "back" {
			target = c.Request.Header.Get("Referer")
			if target == "" {
				target = "/"
			}
		}
		c.Redirect(code, target)
	})
	return r
}

// Route returns the first registered layer with the given name, or nil
// when no layer carries it. With duplicate names, registration order
// decides.
func (r *Router) Route(name string) *Layer {
	for _, l := range r.layers {
		if l.name == name {
			return l
		}
	}
	return nil
}

// URL generates a path for the named route. An unknown name yields
// ErrRouteNotFound as a value: URL generation commonly happens inside
// request handlers, where a panic would be disruptive.
//
// Example:
//
//	r.GET("/users/:id", showUser).SetName("user")
//	u, err := r.URL("user", map[string]string{"id": "3"})
//	// "/users/3"
func (r *Router) URL(name string, params map[string]string, opts ...URLOption) (string, error) {
	l := r.Route(name)
	if l == nil {
		return "", fmt.Errorf("%w: %q", ErrRouteNotFound, name)
	}
	return l.URL(params, opts...)
}

// URLArgs generates a path for the named route from positional values,
// consumed in the order the pattern declares its parameters.
//
// Example:
//
//	u, err := r.URLArgs("user", "3") // "/users/3"
func (r *Router) URLArgs(name string, values ...string) (string, error) {
	l := r.Route(name)
	if l == nil {
		return "", fmt.Errorf("%w: %q", ErrRouteNotFound, name)
	}
	return l.URLArgs(values...)
}
