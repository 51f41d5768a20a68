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

// ParameterReader defines the interface for reading request parameters,
// query strings, form values, cookies, and other request data.
//
// This interface enables:
//   - Easier testing by allowing mock implementations
//   - Clearer separation of concerns
//   - Composition with other interfaces
//
// Example usage:
//
//	func processRequest(reader ParameterReader) {
//	    userID := reader.Param("id")
//	    page := reader.Query("page")
//	}
type ParameterReader interface {
	// Param returns the value of the URL path parameter by key.
	// Returns empty string if the parameter is not found.
	//
	// Example:
	//   Route: /users/:id
	//   Request: /users/123
	//   c.Param("id") // Returns "123"
	Param(key string) string

	// Query returns the value of the URL query parameter by key.
	// Returns empty string if the parameter is not found.
	//
	// Example:
	//   Request: /search?q=golang&page=2
	//   c.Query("q")    // Returns "golang"
	//   c.Query("page") // Returns "2"
	Query(key string) string

	// QueryDefault returns the value of the URL query parameter by key,
	// or the default value if the parameter is not found.
	//
	// Example:
	//   c.QueryDefault("page", "1") // Returns "1" if "page" is not in query
	QueryDefault(key, defaultValue string) string

	// FormValue returns the value of the form field by key.
	// Handles both application/x-www-form-urlencoded and multipart/form-data.
	// Returns empty string if the field is not found.
	FormValue(key string) string

	// FormValueDefault returns the value of the form field by key,
	// or the default value if the field is not found.
	FormValueDefault(key, defaultValue string) string

	// AllParams returns all accumulated route parameters as a map.
	// Returns a new map (copy) to prevent external modification.
	AllParams() map[string]string

	// AllQueries returns all query parameters as a map.
	// For parameters with multiple values, returns the last value.
	AllQueries() map[string]string

	// GetCookie returns the value of the named cookie.
	// Returns an error if the cookie is not found.
	GetCookie(name string) (string, error)
}

// ResponseWriter defines the interface for writing HTTP responses.
//
// All response methods return errors explicitly, following Go's idiomatic error handling.
// Callers must check and handle errors appropriately.
//
// Example:
//
//	if err := c.JSON(200, user); err != nil {
//	    c.Logger().Error("failed to write json", "err", err)
//	    return
//	}
type ResponseWriter interface {
	// Response methods (all return errors)
	JSON(code int, obj any) error
	YAML(code int, obj any) error
	String(code int, value string) error
	Stringf(code int, format string, values ...any) error
	HTML(code int, html string) error
	Data(code int, contentType string, data []byte) error

	// Status and headers
	Status(code int)
	Header(key, value string)
	Redirect(code int, location string)
	NoContent()
	SetCookie(name, value string, maxAge int, path, domain string, secure, httpOnly bool)
}

// ContextReader combines ParameterReader with methods that read routing
// state recorded during dispatch: which layers matched, under which
// patterns, and the captures behind the current parameter bindings.
//
// Example usage:
//
//	func logRoute(reader ContextReader) {
//	    pattern := reader.RoutePattern()
//	    // "/users/:id" rather than "/users/123"
//	}
type ContextReader interface {
	ParameterReader

	// RoutePattern returns the matched route pattern, or
	// RoutePatternUnmatched when dispatch recorded none.
	// Example: "/users/:id"
	RoutePattern() string

	// MatchedPath returns the pattern of the most specific layer matched
	// by both path and method.
	MatchedPath() string

	// MatchedName returns the route name of the most specific matched
	// layer that carries one.
	MatchedName() string

	// RouterPath returns the pattern of the most recently entered layer.
	RouterPath() string

	// RouterName returns the name of the most recently entered layer.
	RouterName() string

	// Captures returns the positional captures of the most recently
	// entered layer.
	Captures() []string
}

// ContextWriter combines ResponseWriter with additional context writing methods.
// This interface extends ResponseWriter with methods that write context-specific
// responses.
type ContextWriter interface {
	ResponseWriter
}

// Ensure Context implements all interfaces at compile time.
var (
	_ ParameterReader = (*Context)(nil)
	_ ResponseWriter  = (*Context)(nil)
	_ ContextReader   = (*Context)(nil)
	_ ContextWriter   = (*Context)(nil)
)
