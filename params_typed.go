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
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrParamMissing is returned when a required parameter is not found.
	ErrParamMissing = errors.New("parameter not found")

	// ErrParamInvalid is returned when a parameter cannot be parsed.
	ErrParamInvalid = errors.New("invalid parameter value")
)

// ParamInt parses a path parameter as an int.
// Returns an error if the parameter is missing or cannot be parsed.
//
// Example:
//
//	r.GET("/users/:id", func(c *router.Context) {
//	    id, err := c.ParamInt("id")
//	    if err != nil {
//	        c.Error(httperror.New(http.StatusBadRequest, "id must be an integer"))
//	        return
//	    }
//	    // Use id...
//	})
func (c *Context) ParamInt(name string) (int, error) {
	s := c.Param(name)
	if s == "" {
		return 0, fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	val, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%w)", ErrParamInvalid, name, err)
	}

	return val, nil
}

// ParamInt64 parses a path parameter as an int64.
// Returns an error if the parameter is missing or cannot be parsed.
func (c *Context) ParamInt64(name string) (int64, error) {
	s := c.Param(name)
	if s == "" {
		return 0, fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%w)", ErrParamInvalid, name, err)
	}

	return val, nil
}

// ParamFloat64 parses a path parameter as a float64.
// Returns an error if the parameter is missing or cannot be parsed.
func (c *Context) ParamFloat64(name string) (float64, error) {
	s := c.Param(name)
	if s == "" {
		return 0, fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%w)", ErrParamInvalid, name, err)
	}

	return val, nil
}

// ParamEnum validates that a path parameter is one of the allowed values.
// Returns an error if the parameter is missing or not in the allowed list.
func (c *Context) ParamEnum(name string, allowed ...string) (string, error) {
	s := c.Param(name)
	if s == "" {
		return "", fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	if slices.Contains(allowed, s) {
		return s, nil
	}

	return "", fmt.Errorf("%w: %s (value %q not in allowed list: %v)", ErrParamInvalid, name, s, allowed)
}

// QueryInt parses a query parameter as an int, returning the default value if not present or invalid.
//
// Example:
//
//	r.GET("/users", func(c *router.Context) {
//	    page := c.QueryInt("page", 1)
//	    limit := c.QueryInt("limit", 10)
//	    // Use page and limit...
//	})
func (c *Context) QueryInt(name string, def int) int {
	q := c.Query(name)
	if q == "" {
		return def
	}

	if v, err := strconv.Atoi(q); err == nil {
		return v
	}

	return def
}

// QueryBool parses a query parameter as a bool, returning the default value if not present.
// Valid values: "true", "1", "yes", "on" (case-insensitive) = true; all others = false.
func (c *Context) QueryBool(name string, def bool) bool {
	q := c.Query(name)
	if q == "" {
		return def
	}

	q = strings.ToLower(strings.TrimSpace(q))
	switch q {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}

// QueryStrings splits a comma-separated query parameter into a slice of strings.
// Returns an empty slice if the parameter is not present.
// Whitespace around each value is trimmed.
//
// Example:
//
//	// ?tags=go,rust,python
//	tags := c.QueryStrings("tags") // Returns ["go", "rust", "python"]
func (c *Context) QueryStrings(name string) []string {
	val := c.Query(name)
	if val == "" {
		return nil
	}

	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}

	return result
}
