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

//go:build !integration

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDispatch_RegistrationOrder verifies that every matching layer runs in
// registration order, with no most-specific-wins reordering. Routes are
// registered as A (/user catch-all), B (/app catch-all), C (global
// catch-all); a request under /user must run A first and C second, never B.
func TestDispatch_RegistrationOrder(t *testing.T) {
	t.Parallel()

	r := MustNew()
	var order []string
	r.GET("/user/(.*)", func(c *Context) {
		order = append(order, "A")
		c.Next()
	})
	r.GET("/app/(.*)", func(c *Context) {
		order = append(order, "B")
		c.Next()
	})
	r.GET("(.*)", func(c *Context) {
		order = append(order, "C")
		_ = c.String(http.StatusOK, "done")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/x", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"A", "C"}, order)
	assert.Equal(t, "done", w.Body.String())
}

// TestDispatch_BroadRouteMasksSpecific pins the first-registered-wins
// execution model: a catch-all registered ahead of a specific route runs
// first, and if it does not continue the chain, the specific route is
// never reached.
func TestDispatch_BroadRouteMasksSpecific(t *testing.T) {
	t.Parallel()

	r := MustNew()
	specificRan := false
	r.GET("(.*)", func(c *Context) {
		_ = c.String(http.StatusOK, "broad")
	})
	r.GET("/users/:id", func(c *Context) {
		specificRan = true
		_ = c.String(http.StatusOK, "specific")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/9", nil))

	assert.Equal(t, "broad", w.Body.String())
	assert.False(t, specificRan, "A non-continuing early layer must mask later layers")
}

func TestDispatch_ShortCircuitKeepsResponse(t *testing.T) {
	t.Parallel()

	r := MustNew()
	var order []string
	r.GET("/user/(.*)", func(c *Context) {
		order = append(order, "A")
		_ = c.String(http.StatusForbidden, "blocked")
		// No Next: the rest of the dispatch must not run.
	})
	r.GET("(.*)", func(c *Context) {
		order = append(order, "C")
		_ = c.String(http.StatusOK, "fallthrough")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/x", nil))

	assert.Equal(t, []string{"A"}, order)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "blocked", w.Body.String())
}

func TestDispatch_AbortStopsUnwoundChain(t *testing.T) {
	t.Parallel()

	r := MustNew()
	var order []string
	r.Use(func(c *Context) {
		order = append(order, "pre")
		c.Next()
		order = append(order, "post")
		c.Next() // No-op after Abort.
	})
	r.GET("/guarded", func(c *Context) {
		order = append(order, "deny")
		_ = c.String(http.StatusForbidden, "denied")
		c.Abort()
	})
	r.GET("/guarded", func(c *Context) {
		order = append(order, "second")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))

	assert.Equal(t, []string{"pre", "deny", "post"}, order)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMatch_Internals(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.Use(func(c *Context) { c.Next() })
	r.GET("/users", func(c *Context) {})
	r.POST("/users", func(c *Context) {})

	m := r.match("/users", http.MethodGet)
	assert.Len(t, m.path, 3, "Middleware and both routes match by path")
	assert.Len(t, m.pathAndMethod, 2, "Middleware and the GET route match by method")
	assert.True(t, m.route)

	m = r.match("/users", http.MethodDelete)
	assert.Len(t, m.path, 3)
	assert.Len(t, m.pathAndMethod, 1, "Only the method-less middleware qualifies")
	assert.False(t, m.route)

	m = r.match("/missing", http.MethodGet)
	assert.Len(t, m.path, 1, "Only the catch-all middleware matches")
	assert.False(t, m.route)
}

func TestMatch_Idempotent(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/user/(.*)", func(c *Context) { c.Next() })
	r.GET("(.*)", func(c *Context) {})

	first := r.match("/user/x", http.MethodGet)
	second := r.match("/user/x", http.MethodGet)

	assert.Equal(t, first, second, "Matching must not mutate router or layer state")
	require.Len(t, second.path, 2)
	assert.Same(t, first.path[0], second.path[0])
	assert.Same(t, first.path[1], second.path[1])
}

func TestDispatch_MatchedMetadata(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.Use(func(c *Context) { c.Next() })
	r.GET("/users/:id", func(c *Context) {
		assert.Equal(t, "/users/:id", c.MatchedPath())
		assert.Equal(t, "user", c.MatchedName())
		assert.Equal(t, "/users/:id", c.RoutePattern())
		assert.Equal(t, "/users/:id", c.RouterPath())
		assert.Equal(t, "user", c.RouterName())
		assert.Len(t, c.Matched(), 2, "Middleware and route both matched by path")
		_ = c.String(http.StatusOK, "ok")
	}).SetName("user")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/3", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDispatch_MostSpecificDecidesMatchedPath(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/files/(.*)", func(c *Context) { c.Next() })
	r.GET("/files/:name", func(c *Context) {
		_ = c.String(http.StatusOK, c.MatchedPath())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/report", nil))

	assert.Equal(t, "/files/:name", w.Body.String(),
		"The last matched route in registration order labels the request")
}

func TestDispatch_CustomParamExpression(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET(`/users/:id(\d+)`, func(c *Context) {
		_ = c.String(http.StatusOK, c.Param("id"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/42", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/abc", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDispatch_OptionalParameter(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/files/:name?", func(c *Context) {
		_ = c.String(http.StatusOK, "name="+c.Param("name"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/readme", nil))
	assert.Equal(t, "name=readme", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "name=", w.Body.String())
}

func TestDispatch_CaseInsensitiveByDefault(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/Users", func(c *Context) { _ = c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDispatch_CaseSensitiveOption(t *testing.T) {
	t.Parallel()

	r := MustNew(WithCaseSensitive(true))
	r.GET("/Users", func(c *Context) { _ = c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/Users", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDispatch_TrailingSlashOptionalByDefault(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/users", func(c *Context) { _ = c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDispatch_StrictSlashOption(t *testing.T) {
	t.Parallel()

	r := MustNew(WithStrictSlash(true))
	r.GET("/users", func(c *Context) { _ = c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDispatch_EncodedParameterDecoded(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/users/:name", func(c *Context) {
		_ = c.String(http.StatusOK, c.Param("name"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/jo%20hn", nil))

	assert.Equal(t, "jo hn", w.Body.String())
}

func TestMergeParams_MalformedEscapeKeptRaw(t *testing.T) {
	t.Parallel()

	l, err := newLayer("", "/users/:name", []string{http.MethodGet}, []HandlerFunc{func(c *Context) {}}, layerOptions{end: true})
	require.NoError(t, err)

	c := NewContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	caps := l.Captures("/users/jo%20hn")
	l.mergeParams(c, caps)
	assert.Equal(t, "jo hn", c.Param("name"))

	caps = l.Captures("/users/jo%zzhn")
	l.mergeParams(c, caps)
	assert.Equal(t, "jo%zzhn", c.Param("name"),
		"A capture that fails percent-decoding keeps its raw form")
}

func TestWithRouterPath_FixedMatching(t *testing.T) {
	t.Parallel()

	r := MustNew(WithRouterPath("/internal/health"))
	r.GET("/internal/health", func(c *Context) {
		_ = c.String(http.StatusOK, "healthy")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whatever/the/proxy/sent", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", w.Body.String())
}

func TestSetRouterPath_OverridesMatching(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/target", func(c *Context) {
		_ = c.String(http.StatusOK, "target")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/elsewhere", nil)
	c := NewContext(&responseWriter{ResponseWriter: w}, req)
	c.handlers = []HandlerFunc{r.Routes()}
	c.SetRouterPath("/target")
	c.Next()

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "target", w.Body.String())
}

// TestNestedDispatch rewires requests through a second router: the outer
// catch-all rewrites the matching path and hands off to the inner router's
// dispatcher.
func TestNestedDispatch_PathRewrite(t *testing.T) {
	t.Parallel()

	inner := MustNew()
	inner.GET("/v2/data", func(c *Context) {
		_ = c.String(http.StatusOK, "v2 data")
	})

	outer := MustNew()
	outer.GET("(.*)", func(c *Context) {
		c.SetRouterPath("/v2" + c.Request.URL.Path)
		c.Next()
	}, inner.Routes())

	w := httptest.NewRecorder()
	outer.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/data", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v2 data", w.Body.String())
}

func TestNestedDispatch_FallsThroughToOuterChain(t *testing.T) {
	t.Parallel()

	inner := MustNew()
	inner.GET("/known", func(c *Context) {
		_ = c.String(http.StatusOK, "inner")
	})

	outer := MustNew()
	outer.GET("(.*)", inner.Routes(), func(c *Context) {
		_ = c.String(http.StatusOK, "outer fallback")
	})

	w := httptest.NewRecorder()
	outer.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/known", nil))
	assert.Equal(t, "inner", w.Body.String())

	w = httptest.NewRecorder()
	outer.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, "outer fallback", w.Body.String(),
		"An unmatched inner dispatch must continue the surrounding chain")
}

func TestDispatch_ParamsAccumulateAcrossLayers(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.UseAt("/orgs/:org", func(c *Context) { c.Next() })
	r.GET("/orgs/:org/repos/:repo", func(c *Context) {
		assert.Equal(t, map[string]string{"org": "acme", "repo": "site"}, c.AllParams())
		_ = c.String(http.StatusOK, c.Param("org")+"/"+c.Param("repo"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orgs/acme/repos/site", nil))

	assert.Equal(t, "acme/site", w.Body.String())
}

func TestDispatch_EmptyOptionalCaptureDoesNotClobber(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.UseAt("/docs/:section", func(c *Context) { c.Next() })
	r.GET("/docs/:section/:page?", func(c *Context) {
		_ = c.String(http.StatusOK, "section="+c.Param("section")+" page="+c.Param("page"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/install", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "section=install page=", w.Body.String(),
		"An absent optional capture must not erase parameters from outer layers")
}
