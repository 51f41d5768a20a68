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

package router_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"cascade.dev/router"
	"cascade.dev/router/httperror"
)

// ExampleNew demonstrates creating a new router.
func ExampleNew() {
	r, err := router.New()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	r.GET("/", func(c *router.Context) {
		c.JSON(http.StatusOK, map[string]string{"message": "Hello World"})
	})

	fmt.Println("Router created successfully")
	// Output: Router created successfully
}

// ExampleMustNew demonstrates creating a router that panics on error.
func ExampleMustNew() {
	r := router.MustNew()

	r.GET("/health", func(c *router.Context) {
		c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	fmt.Println("Router created")
	// Output: Router created
}

// ExampleRouter_GET demonstrates registering a GET route with a path
// parameter. GET routes answer HEAD requests as well.
func ExampleRouter_GET() {
	r := router.MustNew()

	r.GET("/users/:id", func(c *router.Context) {
		userID := c.Param("id")
		c.JSON(http.StatusOK, map[string]string{"user_id": userID})
	})

	fmt.Println("GET route registered")
	// Output: GET route registered
}

// ExampleRouter_Use demonstrates registering middleware that runs before
// every matched route.
func ExampleRouter_Use() {
	r := router.MustNew()

	r.Use(func(c *router.Context) {
		c.Header("X-Request-Start", "now")
		c.Next()
	})

	r.GET("/users", func(c *router.Context) {
		c.JSON(http.StatusOK, []string{"ana", "bo"})
	})

	fmt.Println("Middleware registered")
	// Output: Middleware registered
}

// ExampleRouter_UseAt demonstrates middleware scoped to a path prefix.
func ExampleRouter_UseAt() {
	r := router.MustNew()

	r.UseAt("/admin", func(c *router.Context) {
		if c.Request.Header.Get("Authorization") == "" {
			c.Error(httperror.New(http.StatusUnauthorized, "credentials required"))
			return
		}
		c.Next()
	})

	r.GET("/admin/users", func(c *router.Context) {
		c.JSON(http.StatusOK, []string{"root"})
	})

	fmt.Println("Scoped middleware registered")
	// Output: Scoped middleware registered
}

// ExampleRouter_Param demonstrates a parameter validator that runs before
// any handler of a route declaring that parameter.
func ExampleRouter_Param() {
	r := router.MustNew()

	r.Param("id", func(c *router.Context, value string) {
		if value == "" {
			c.Error(httperror.New(http.StatusBadRequest, "id must not be empty"))
			return
		}
		c.Next()
	})

	r.GET("/users/:id", func(c *router.Context) {
		c.JSON(http.StatusOK, map[string]string{"user_id": c.Param("id")})
	})

	fmt.Println("Validator registered")
	// Output: Validator registered
}

// ExampleRouter_Mount demonstrates absorbing a subrouter under a prefix.
// The combined pattern keeps its parameters visible.
func ExampleRouter_Mount() {
	posts := router.MustNew()
	posts.GET("/:pid", func(c *router.Context) {
		c.JSON(http.StatusOK, map[string]string{
			"forum": c.Param("fid"),
			"post":  c.Param("pid"),
		})
	})

	r := router.MustNew()
	r.Mount("/forums/:fid/posts", posts)

	fmt.Println(r.Layers()[0].Pattern())
	// Output: /forums/:fid/posts/:pid
}

// ExampleRouter_URL demonstrates reverse routing from a route name.
func ExampleRouter_URL() {
	r := router.MustNew()
	r.GET("/users/:id", func(c *router.Context) {}).SetName("user")

	u, err := r.URL("user", map[string]string{"id": "3"})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println(u)
	// Output: /users/3
}

// ExampleRouter_URL_query demonstrates appending a query string during
// URL generation. Keys are encoded in sorted order.
func ExampleRouter_URL_query() {
	r := router.MustNew()
	r.GET("/books/:category", func(c *router.Context) {}).SetName("books")

	u, err := r.URL("books",
		map[string]string{"category": "programming"},
		router.WithQuery(url.Values{"page": {"3"}, "limit": {"10"}}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println(u)
	// Output: /books/programming?limit=10&page=3
}

// ExampleRouter_URL_missing demonstrates that unknown route names yield
// an error value rather than a panic.
func ExampleRouter_URL_missing() {
	r := router.MustNew()

	_, err := r.URL("nope", nil)
	fmt.Println(errors.Is(err, router.ErrRouteNotFound))
	// Output: true
}

// ExampleRouter_URLArgs demonstrates positional URL generation.
func ExampleRouter_URLArgs() {
	r := router.MustNew()
	r.GET("/users/:id/posts/:pid", func(c *router.Context) {}).SetName("user-post")

	u, err := r.URLArgs("user-post", "7", "42")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println(u)
	// Output: /users/7/posts/42
}

// ExampleBuildURL demonstrates rendering a path template without a
// router.
func ExampleBuildURL() {
	u, err := router.BuildURL("/users/:id", map[string]string{"id": "7"})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println(u)
	// Output: /users/7
}

// ExampleRouter_Redirect demonstrates a named redirect route.
func ExampleRouter_Redirect() {
	r := router.MustNew()
	r.GET("/sign-in", func(c *router.Context) {
		c.HTML(http.StatusOK, "<form>...</form>")
	}).SetName("sign-in")

	r.Redirect("/login", "sign-in", http.StatusMovedPermanently)

	fmt.Println("Redirect registered")
	// Output: Redirect registered
}

// ExampleRouter_All demonstrates registering a handler for every
// standard HTTP method.
func ExampleRouter_All() {
	r := router.MustNew()

	r.All("/ping", func(c *router.Context) {
		c.String(http.StatusOK, "pong")
	})

	fmt.Println("Catch-all method route registered")
	// Output: Catch-all method route registered
}
